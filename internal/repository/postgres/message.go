package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lalith-99/lingomatch/internal/models"
	"github.com/lalith-99/lingomatch/internal/repository"
)

type MessageStore struct {
	pool *pgxpool.Pool
}

func NewMessageStore(pool *pgxpool.Pool) *MessageStore {
	return &MessageStore{pool: pool}
}

// Append writes the message and the conversation summary in one transaction.
//
// The conversation row is locked first, so appends to the same conversation
// serialise and clock_timestamp() is taken after the lock: timestamps within a
// conversation never go backwards and the summary always describes the
// newest message.
func (s *MessageStore) Append(ctx context.Context, conversationID, senderID, text string) (*models.Message, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin append: %w", err)
	}
	// Rollback after Commit is a no-op.
	defer tx.Rollback(ctx)

	var locked string
	err = tx.QueryRow(ctx,
		`SELECT id FROM conversations WHERE id = $1 FOR UPDATE`,
		conversationID,
	).Scan(&locked)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("lock conversation: %w", err)
	}

	msg := models.Message{
		ID:             uuid.NewString(),
		ConversationID: conversationID,
		SenderID:       senderID,
		Text:           text,
	}
	err = tx.QueryRow(ctx, `
		INSERT INTO messages (id, conversation_id, sender_id, body, created_at)
		VALUES ($1, $2, $3, $4, clock_timestamp())
		RETURNING seq, created_at`,
		msg.ID, conversationID, senderID, text,
	).Scan(&msg.Seq, &msg.Timestamp)
	if err != nil {
		return nil, fmt.Errorf("insert message: %w", err)
	}

	_, err = tx.Exec(ctx, `
		UPDATE conversations
		SET last_message_text = $2,
		    last_message_at = $3,
		    last_message_sender_id = $4
		WHERE id = $1`,
		conversationID, text, msg.Timestamp, senderID,
	)
	if err != nil {
		return nil, fmt.Errorf("update conversation summary: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit append: %w", err)
	}
	return &msg, nil
}

func (s *MessageStore) ListByConversation(ctx context.Context, conversationID string) ([]models.Message, error) {
	query := `
		SELECT seq, id, conversation_id, sender_id, body, created_at
		FROM messages
		WHERE conversation_id = $1
		ORDER BY created_at ASC, seq ASC`

	rows, err := s.pool.Query(ctx, query, conversationID)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	messages := make([]models.Message, 0)
	for rows.Next() {
		var msg models.Message
		if err := rows.Scan(
			&msg.Seq,
			&msg.ID,
			&msg.ConversationID,
			&msg.SenderID,
			&msg.Text,
			&msg.Timestamp,
		); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}

	return messages, nil
}
