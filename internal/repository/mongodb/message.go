package mongodb

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/lalith-99/lingomatch/internal/models"
	"github.com/lalith-99/lingomatch/internal/repository"
)

type MessageStore struct {
	client        *mongo.Client
	conversations *mongo.Collection
	messages      *mongo.Collection
}

func NewMessageStore(db *mongo.Database) *MessageStore {
	return &MessageStore{
		client:        db.Client(),
		conversations: db.Collection(conversationsCollection),
		messages:      db.Collection(messagesCollection),
	}
}

// Append runs the summary update and the message insert in one transaction.
// The summary update comes first: it fails fast on a missing conversation,
// and the $inc on messageCount both hands out the message's seq and makes
// concurrent appends to the same conversation conflict and retry.
func (s *MessageStore) Append(ctx context.Context, conversationID, senderID, text string) (*models.Message, error) {
	session, err := s.client.StartSession()
	if err != nil {
		return nil, fmt.Errorf("start session: %w", err)
	}
	defer session.EndSession(ctx)

	result, err := session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		ts := now()
		update := bson.M{
			"$inc": bson.M{"messageCount": 1},
			"$set": bson.M{
				"lastMessageText":      text,
				"lastMessageTimestamp": ts,
				"lastMessageSenderId":  senderID,
			},
		}
		var conv conversationDoc
		err := s.conversations.FindOneAndUpdate(sc,
			bson.M{"_id": conversationID},
			update,
			options.FindOneAndUpdate().SetReturnDocument(options.After),
		).Decode(&conv)
		if err != nil {
			if errors.Is(err, mongo.ErrNoDocuments) {
				return nil, repository.ErrNotFound
			}
			return nil, fmt.Errorf("update conversation summary: %w", err)
		}

		doc := messageDoc{
			ID:             uuid.NewString(),
			ConversationID: conversationID,
			SenderID:       senderID,
			Text:           text,
			Timestamp:      ts,
			Seq:            conv.MessageCount,
		}
		if _, err := s.messages.InsertOne(sc, doc); err != nil {
			return nil, fmt.Errorf("insert message: %w", err)
		}
		return doc.model(), nil
	})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("append message: %w", err)
	}

	msg := result.(models.Message)
	return &msg, nil
}

func (s *MessageStore) ListByConversation(ctx context.Context, conversationID string) ([]models.Message, error) {
	opts := options.Find().SetSort(bson.D{
		{Key: "timestamp", Value: 1},
		{Key: "seq", Value: 1},
	})
	cursor, err := s.messages.Find(ctx, bson.M{"conversationId": conversationID}, opts)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer cursor.Close(ctx)

	messages := make([]models.Message, 0)
	for cursor.Next(ctx) {
		var doc messageDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode message: %w", err)
		}
		messages = append(messages, doc.model())
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}
	return messages, nil
}
