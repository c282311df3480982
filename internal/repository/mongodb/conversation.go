package mongodb

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/lalith-99/lingomatch/internal/models"
)

type ConversationStore struct {
	coll *mongo.Collection
}

func NewConversationStore(db *mongo.Database) *ConversationStore {
	return &ConversationStore{coll: db.Collection(conversationsCollection)}
}

// CreateIfAbsent uses the deterministic id as _id, so the server's unique
// _id index decides the single winner.
func (s *ConversationStore) CreateIfAbsent(ctx context.Context, c *models.Conversation) (*models.Conversation, bool, error) {
	a, b := models.SortedPair(c.Participants[0], c.Participants[1])
	doc := conversationDoc{
		ID:           c.ID,
		Participants: []string{a, b},
		CreatedAt:    now(),
	}
	_, err := s.coll.InsertOne(ctx, doc)
	if err == nil {
		return doc.model(), true, nil
	}
	if !mongo.IsDuplicateKeyError(err) {
		return nil, false, fmt.Errorf("insert conversation: %w", err)
	}

	existing, err := s.GetByID(ctx, c.ID)
	if err != nil {
		return nil, false, err
	}
	if existing == nil {
		return nil, false, fmt.Errorf("conversation %s vanished after conflict", c.ID)
	}
	return existing, false, nil
}

func (s *ConversationStore) GetByID(ctx context.Context, id string) (*models.Conversation, error) {
	var doc conversationDoc
	err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("get conversation: %w", err)
	}
	return doc.model(), nil
}

func (s *ConversationStore) ListByParticipant(ctx context.Context, userID string) ([]models.Conversation, error) {
	// Nulls sort lowest, so descending puts conversations without messages last.
	opts := options.Find().SetSort(bson.D{
		{Key: "lastMessageTimestamp", Value: -1},
		{Key: "createdAt", Value: -1},
	})
	cursor, err := s.coll.Find(ctx, bson.M{"participants": userID}, opts)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	defer cursor.Close(ctx)

	conversations := make([]models.Conversation, 0)
	for cursor.Next(ctx) {
		var doc conversationDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode conversation: %w", err)
		}
		conversations = append(conversations, *doc.model())
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("iterate conversations: %w", err)
	}
	return conversations, nil
}
