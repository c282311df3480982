// Package memory is an in-process implementation of the repository
// interfaces. All stores built on the same DB share one lock, so every
// method is a single critical section.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lalith-99/lingomatch/internal/models"
	"github.com/lalith-99/lingomatch/internal/repository"
)

type DB struct {
	mu sync.Mutex

	profiles      map[string]*models.Profile
	blocks        map[string]map[string]struct{}
	conversations map[string]*models.Conversation
	messages      map[string][]models.Message
	accounts      map[string]*models.Account
	seq           int64

	now func() time.Time
}

func NewDB() *DB {
	return &DB{
		profiles:      make(map[string]*models.Profile),
		blocks:        make(map[string]map[string]struct{}),
		conversations: make(map[string]*models.Conversation),
		messages:      make(map[string][]models.Message),
		accounts:      make(map[string]*models.Account),
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// NewStore returns every repository backed by a fresh DB.
func NewStore() repository.Store {
	db := NewDB()
	return repository.Store{
		Profiles:      NewProfileStore(db),
		Conversations: NewConversationStore(db),
		Messages:      NewMessageStore(db),
		Accounts:      NewAccountStore(db),
	}
}

// timestamp never returns a value earlier than the previous one.
func (db *DB) timestamp(last *time.Time) time.Time {
	ts := db.now()
	if last != nil && ts.Before(*last) {
		return *last
	}
	return ts
}

func (db *DB) profileCopy(p *models.Profile) *models.Profile {
	out := *p
	blocked := make([]string, 0, len(db.blocks[p.ID]))
	for id := range db.blocks[p.ID] {
		blocked = append(blocked, id)
	}
	sort.Strings(blocked)
	out.BlockedUsers = blocked
	return &out
}

func conversationCopy(c *models.Conversation) *models.Conversation {
	out := *c
	out.Participants = append([]string(nil), c.Participants...)
	return &out
}

type ProfileStore struct{ db *DB }

func NewProfileStore(db *DB) *ProfileStore { return &ProfileStore{db: db} }

func (s *ProfileStore) Create(_ context.Context, p *models.Profile) (bool, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	if _, ok := s.db.profiles[p.ID]; ok {
		return false, nil
	}
	now := s.db.now()
	s.db.profiles[p.ID] = &models.Profile{
		ID:          p.ID,
		Email:       p.Email,
		DisplayName: p.DisplayName,
		PhotoURL:    p.PhotoURL,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	return true, nil
}

func (s *ProfileStore) GetByID(_ context.Context, id string) (*models.Profile, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	p, ok := s.db.profiles[id]
	if !ok {
		return nil, nil
	}
	return s.db.profileCopy(p), nil
}

func (s *ProfileStore) UpdateLanguages(_ context.Context, id string, native, target models.Language) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	p, ok := s.db.profiles[id]
	if !ok {
		return repository.ErrNotFound
	}
	p.NativeLanguage = native
	p.TargetLanguage = target
	p.ProfileSetupComplete = true
	p.UpdatedAt = s.db.now()
	return nil
}

func (s *ProfileStore) AddBlock(_ context.Context, ownerID, blockedID string) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	if _, ok := s.db.profiles[ownerID]; !ok {
		return repository.ErrNotFound
	}
	set, ok := s.db.blocks[ownerID]
	if !ok {
		set = make(map[string]struct{})
		s.db.blocks[ownerID] = set
	}
	set[blockedID] = struct{}{}
	return nil
}

func (s *ProfileStore) RemoveBlock(_ context.Context, ownerID, blockedID string) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	delete(s.db.blocks[ownerID], blockedID)
	return nil
}

func (s *ProfileStore) ListComplete(_ context.Context) ([]models.Profile, error) {
	return s.filter(func(p *models.Profile) bool { return p.ProfileSetupComplete }), nil
}

func (s *ProfileStore) ListByLanguages(_ context.Context, native, target models.Language) ([]models.Profile, error) {
	return s.filter(func(p *models.Profile) bool {
		return p.ProfileSetupComplete && p.NativeLanguage == native && p.TargetLanguage == target
	}), nil
}

func (s *ProfileStore) filter(keep func(*models.Profile) bool) []models.Profile {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	out := make([]models.Profile, 0)
	for _, p := range s.db.profiles {
		if keep(p) {
			out = append(out, *s.db.profileCopy(p))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

type ConversationStore struct{ db *DB }

func NewConversationStore(db *DB) *ConversationStore { return &ConversationStore{db: db} }

func (s *ConversationStore) CreateIfAbsent(_ context.Context, c *models.Conversation) (*models.Conversation, bool, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	if existing, ok := s.db.conversations[c.ID]; ok {
		return conversationCopy(existing), false, nil
	}
	a, b := models.SortedPair(c.Participants[0], c.Participants[1])
	conv := &models.Conversation{
		ID:           c.ID,
		Participants: []string{a, b},
		CreatedAt:    s.db.now(),
	}
	s.db.conversations[c.ID] = conv
	return conversationCopy(conv), true, nil
}

func (s *ConversationStore) GetByID(_ context.Context, id string) (*models.Conversation, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	c, ok := s.db.conversations[id]
	if !ok {
		return nil, nil
	}
	return conversationCopy(c), nil
}

func (s *ConversationStore) ListByParticipant(_ context.Context, userID string) ([]models.Conversation, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	out := make([]models.Conversation, 0)
	for _, c := range s.db.conversations {
		if c.HasParticipant(userID) {
			out = append(out, *conversationCopy(c))
		}
	}
	models.SortConversations(out)
	return out, nil
}

type MessageStore struct{ db *DB }

func NewMessageStore(db *DB) *MessageStore { return &MessageStore{db: db} }

func (s *MessageStore) Append(_ context.Context, conversationID, senderID, text string) (*models.Message, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	conv, ok := s.db.conversations[conversationID]
	if !ok {
		return nil, repository.ErrNotFound
	}

	s.db.seq++
	ts := s.db.timestamp(conv.LastMessageTimestamp)
	msg := models.Message{
		ID:             uuid.NewString(),
		ConversationID: conversationID,
		SenderID:       senderID,
		Text:           text,
		Timestamp:      ts,
		Seq:            s.db.seq,
	}
	s.db.messages[conversationID] = append(s.db.messages[conversationID], msg)

	body, sender := text, senderID
	conv.LastMessageText = &body
	conv.LastMessageTimestamp = &ts
	conv.LastMessageSenderID = &sender
	return &msg, nil
}

func (s *MessageStore) ListByConversation(_ context.Context, conversationID string) ([]models.Message, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	out := append(make([]models.Message, 0, len(s.db.messages[conversationID])), s.db.messages[conversationID]...)
	models.SortMessages(out)
	return out, nil
}

type AccountStore struct{ db *DB }

func NewAccountStore(db *DB) *AccountStore { return &AccountStore{db: db} }

func (s *AccountStore) Create(_ context.Context, a *models.Account) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	a.Email = models.NormalizeEmail(a.Email)
	if _, ok := s.db.accounts[a.Email]; ok {
		return repository.ErrAlreadyExists
	}
	a.CreatedAt = s.db.now()
	stored := *a
	s.db.accounts[a.Email] = &stored
	return nil
}

func (s *AccountStore) GetByEmail(_ context.Context, email string) (*models.Account, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	a, ok := s.db.accounts[models.NormalizeEmail(email)]
	if !ok {
		return nil, nil
	}
	out := *a
	return &out, nil
}

var (
	_ repository.ProfileRepository      = (*ProfileStore)(nil)
	_ repository.ConversationRepository = (*ConversationStore)(nil)
	_ repository.MessageRepository      = (*MessageStore)(nil)
	_ repository.AccountRepository      = (*AccountStore)(nil)
)
