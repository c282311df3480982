//go:generate mockgen -source=interfaces.go -destination=mocks/mock_repository.go -package=mocks

package repository

import (
	"context"
	"errors"

	"github.com/lalith-99/lingomatch/internal/models"
)

// Every method takes ctx first: a cancelled request cancels its store call.
//
// Lookups return nil, nil when the row does not exist so callers can tell
// "absent" apart from a store failure. Mutations that target a row that
// must exist return ErrNotFound instead.

var (
	// ErrNotFound means the row a mutation targets does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists means a unique key is already taken.
	ErrAlreadyExists = errors.New("already exists")
)

// ProfileRepository stores user profiles and their block lists.
type ProfileRepository interface {
	// Create inserts p unless a profile with the same ID exists. It reports
	// whether this call created the row; an existing row is never touched.
	Create(ctx context.Context, p *models.Profile) (bool, error)

	// GetByID returns the profile with BlockedUsers filled in. Returns nil, nil if not found.
	GetByID(ctx context.Context, id string) (*models.Profile, error)

	// UpdateLanguages sets both languages and marks setup complete.
	UpdateLanguages(ctx context.Context, id string, native, target models.Language) error

	// AddBlock adds blockedID to ownerID's block set. Re-blocking is a no-op.
	AddBlock(ctx context.Context, ownerID, blockedID string) error

	// RemoveBlock removes blockedID from ownerID's block set. No-op if absent.
	RemoveBlock(ctx context.Context, ownerID, blockedID string) error

	// ListComplete returns every profile with setup complete, ordered by id.
	ListComplete(ctx context.Context) ([]models.Profile, error)

	// ListByLanguages returns complete profiles with exactly this language
	// pair, ordered by id. It is a prefilter; eligibility is decided by the
	// caller.
	ListByLanguages(ctx context.Context, native, target models.Language) ([]models.Profile, error)
}

// ConversationRepository stores pairwise conversations keyed by
// models.ConversationKey.
type ConversationRepository interface {
	// CreateIfAbsent inserts c unless a conversation with c.ID exists, in
	// which case the stored one is returned. Exactly one concurrent caller
	// for the same ID sees created == true.
	CreateIfAbsent(ctx context.Context, c *models.Conversation) (conv *models.Conversation, created bool, err error)

	// GetByID returns nil, nil if not found.
	GetByID(ctx context.Context, id string) (*models.Conversation, error)

	// ListByParticipant returns the user's conversations, newest message
	// first, conversations without messages last.
	ListByParticipant(ctx context.Context, userID string) ([]models.Conversation, error)
}

// MessageRepository stores the per-conversation message log.
type MessageRepository interface {
	// Append inserts a message with a store-assigned timestamp and updates
	// the conversation's last-message summary in the same atomic unit.
	// Returns ErrNotFound if the conversation does not exist.
	Append(ctx context.Context, conversationID, senderID, text string) (*models.Message, error)

	// ListByConversation returns messages oldest first, ties by insertion order.
	ListByConversation(ctx context.Context, conversationID string) ([]models.Message, error)
}

// AccountRepository stores email/password credentials.
type AccountRepository interface {
	// Create inserts a. Returns ErrAlreadyExists if the email is taken.
	Create(ctx context.Context, a *models.Account) error

	// GetByEmail looks up by normalised email. Returns nil, nil if not found.
	GetByEmail(ctx context.Context, email string) (*models.Account, error)
}

// Store bundles one implementation of each repository over the same backend.
type Store struct {
	Profiles      ProfileRepository
	Conversations ConversationRepository
	Messages      MessageRepository
	Accounts      AccountRepository

	// Close releases the backend's resources. May be nil.
	Close func()
}
