package postgres

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lalith-99/lingomatch/internal/repository"
)

// NewStore wires every store to the same pool. The pool is goroutine-safe
// and owned by the caller.
func NewStore(pool *pgxpool.Pool) repository.Store {
	return repository.Store{
		Profiles:      NewProfileStore(pool),
		Conversations: NewConversationStore(pool),
		Messages:      NewMessageStore(pool),
		Accounts:      NewAccountStore(pool),
	}
}

var (
	_ repository.ProfileRepository      = (*ProfileStore)(nil)
	_ repository.ConversationRepository = (*ConversationStore)(nil)
	_ repository.MessageRepository      = (*MessageStore)(nil)
	_ repository.AccountRepository      = (*AccountStore)(nil)
)
