package mongodb

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/lalith-99/lingomatch/internal/models"
	"github.com/lalith-99/lingomatch/internal/repository"
)

type ProfileStore struct {
	coll *mongo.Collection
}

func NewProfileStore(db *mongo.Database) *ProfileStore {
	return &ProfileStore{coll: db.Collection(profilesCollection)}
}

// Create inserts by _id; a duplicate key means someone else got there first.
func (s *ProfileStore) Create(ctx context.Context, p *models.Profile) (bool, error) {
	ts := now()
	doc := profileDoc{
		ID:           p.ID,
		Email:        p.Email,
		DisplayName:  p.DisplayName,
		PhotoURL:     p.PhotoURL,
		BlockedUsers: []string{},
		CreatedAt:    ts,
		UpdatedAt:    ts,
	}
	if _, err := s.coll.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return false, nil
		}
		return false, fmt.Errorf("insert profile: %w", err)
	}
	return true, nil
}

func (s *ProfileStore) GetByID(ctx context.Context, id string) (*models.Profile, error) {
	var doc profileDoc
	err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return doc.model(), nil
}

func (s *ProfileStore) UpdateLanguages(ctx context.Context, id string, native, target models.Language) error {
	update := bson.M{"$set": bson.M{
		"nativeLanguage":       string(native),
		"targetLanguage":       string(target),
		"profileSetupComplete": true,
		"updatedAt":            now(),
	}}
	res, err := s.coll.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return fmt.Errorf("update profile languages: %w", err)
	}
	if res.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (s *ProfileStore) AddBlock(ctx context.Context, ownerID, blockedID string) error {
	res, err := s.coll.UpdateOne(ctx,
		bson.M{"_id": ownerID},
		bson.M{"$addToSet": bson.M{"blockedUsers": blockedID}},
	)
	if err != nil {
		return fmt.Errorf("add block: %w", err)
	}
	if res.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (s *ProfileStore) RemoveBlock(ctx context.Context, ownerID, blockedID string) error {
	_, err := s.coll.UpdateOne(ctx,
		bson.M{"_id": ownerID},
		bson.M{"$pull": bson.M{"blockedUsers": blockedID}},
	)
	if err != nil {
		return fmt.Errorf("remove block: %w", err)
	}
	return nil
}

func (s *ProfileStore) ListComplete(ctx context.Context) ([]models.Profile, error) {
	return s.find(ctx, bson.M{"profileSetupComplete": true})
}

func (s *ProfileStore) ListByLanguages(ctx context.Context, native, target models.Language) ([]models.Profile, error) {
	return s.find(ctx, bson.M{
		"profileSetupComplete": true,
		"nativeLanguage":       string(native),
		"targetLanguage":       string(target),
	})
}

func (s *ProfileStore) find(ctx context.Context, filter bson.M) ([]models.Profile, error) {
	cursor, err := s.coll.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	defer cursor.Close(ctx)

	profiles := make([]models.Profile, 0)
	for cursor.Next(ctx) {
		var doc profileDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode profile: %w", err)
		}
		profiles = append(profiles, *doc.model())
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("iterate profiles: %w", err)
	}
	return profiles, nil
}
