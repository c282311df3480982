// Package mongodb stores profiles, conversations and messages as MongoDB
// documents. Message appends use multi-document transactions, so the
// server must run as a replica set.
package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/lalith-99/lingomatch/internal/repository"
)

const (
	profilesCollection      = "profiles"
	conversationsCollection = "conversations"
	messagesCollection      = "messages"
	accountsCollection      = "accounts"
)

type DB struct {
	client *mongo.Client
	db     *mongo.Database
	logger *zap.Logger
}

func Connect(ctx context.Context, uri, database string, logger *zap.Logger) (*DB, error) {
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	logger.Info("MongoDB connection established", zap.String("database", database))
	return &DB{client: client, db: client.Database(database), logger: logger}, nil
}

// EnsureIndexes creates the indexes the stores depend on. The unique email
// index is what turns a duplicate sign-up into ErrAlreadyExists.
func (d *DB) EnsureIndexes(ctx context.Context) error {
	indexes := map[string][]mongo.IndexModel{
		accountsCollection: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		profilesCollection: {
			{Keys: bson.D{
				{Key: "profileSetupComplete", Value: 1},
				{Key: "nativeLanguage", Value: 1},
				{Key: "targetLanguage", Value: 1},
			}},
		},
		conversationsCollection: {
			{Keys: bson.D{{Key: "participants", Value: 1}, {Key: "lastMessageTimestamp", Value: -1}}},
		},
		messagesCollection: {
			{Keys: bson.D{
				{Key: "conversationId", Value: 1},
				{Key: "timestamp", Value: 1},
				{Key: "seq", Value: 1},
			}},
		},
	}
	for coll, idx := range indexes {
		if _, err := d.db.Collection(coll).Indexes().CreateMany(ctx, idx); err != nil {
			return fmt.Errorf("create %s indexes: %w", coll, err)
		}
	}
	return nil
}

func (d *DB) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := d.client.Disconnect(ctx); err != nil {
		d.logger.Warn("disconnect mongo", zap.Error(err))
		return
	}
	d.logger.Info("disconnected from MongoDB")
}

func (d *DB) Health(ctx context.Context) error {
	return d.client.Ping(ctx, nil)
}

func (d *DB) Store() repository.Store {
	return repository.Store{
		Profiles:      NewProfileStore(d.db),
		Conversations: NewConversationStore(d.db),
		Messages:      NewMessageStore(d.db),
		Accounts:      NewAccountStore(d.db),
		Close:         d.Close,
	}
}

// now truncates to the millisecond precision BSON dates keep, so a value we
// return matches what a later read decodes.
func now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

var (
	_ repository.ProfileRepository      = (*ProfileStore)(nil)
	_ repository.ConversationRepository = (*ConversationStore)(nil)
	_ repository.MessageRepository      = (*MessageStore)(nil)
	_ repository.AccountRepository      = (*AccountStore)(nil)
)
