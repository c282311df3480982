package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lalith-99/lingomatch/internal/models"
)

type ConversationStore struct {
	pool *pgxpool.Pool
}

func NewConversationStore(pool *pgxpool.Pool) *ConversationStore {
	return &ConversationStore{pool: pool}
}

const conversationColumns = `
	id, user_a, user_b,
	last_message_text, last_message_at, last_message_sender_id,
	created_at`

func scanConversation(row pgx.Row) (*models.Conversation, error) {
	var c models.Conversation
	var userA, userB string
	err := row.Scan(
		&c.ID,
		&userA,
		&userB,
		&c.LastMessageText,
		&c.LastMessageTimestamp,
		&c.LastMessageSenderID,
		&c.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	c.Participants = []string{userA, userB}
	return &c, nil
}

// CreateIfAbsent relies on the primary key for exactly-once creation.
// A concurrent insert of the same id blocks until the winner commits, then
// DO NOTHING returns no row and we read the winner's record instead.
func (s *ConversationStore) CreateIfAbsent(ctx context.Context, c *models.Conversation) (*models.Conversation, bool, error) {
	userA, userB := models.SortedPair(c.Participants[0], c.Participants[1])

	insert := `
		INSERT INTO conversations (id, user_a, user_b, created_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (id) DO NOTHING
		RETURNING ` + conversationColumns

	conv, err := scanConversation(s.pool.QueryRow(ctx, insert, c.ID, userA, userB))
	if err == nil {
		return conv, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
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
	query := `SELECT ` + conversationColumns + ` FROM conversations WHERE id = $1`

	conv, err := scanConversation(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get conversation: %w", err)
	}
	return conv, nil
}

func (s *ConversationStore) ListByParticipant(ctx context.Context, userID string) ([]models.Conversation, error) {
	query := `
		SELECT ` + conversationColumns + `
		FROM conversations
		WHERE user_a = $1 OR user_b = $1
		ORDER BY last_message_at DESC NULLS LAST, created_at DESC`

	rows, err := s.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	defer rows.Close()

	conversations := make([]models.Conversation, 0)
	for rows.Next() {
		conv, err := scanConversation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan conversation: %w", err)
		}
		conversations = append(conversations, *conv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate conversations: %w", err)
	}

	return conversations, nil
}
