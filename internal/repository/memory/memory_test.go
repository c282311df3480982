package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lalith-99/lingomatch/internal/models"
	"github.com/lalith-99/lingomatch/internal/repository"
)

func TestProfileCreateIfAbsent(t *testing.T) {
	ctx := context.Background()
	s := NewProfileStore(NewDB())

	created, err := s.Create(ctx, &models.Profile{ID: "u1", DisplayName: "first"})
	require.NoError(t, err)
	assert.True(t, created)

	created, err = s.Create(ctx, &models.Profile{ID: "u1", DisplayName: "second"})
	require.NoError(t, err)
	assert.False(t, created)

	p, err := s.GetByID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "first", p.DisplayName)

	missing, err := s.GetByID(ctx, "nobody")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestProfileMutationsOnMissingRow(t *testing.T) {
	ctx := context.Background()
	s := NewProfileStore(NewDB())

	assert.ErrorIs(t, s.UpdateLanguages(ctx, "ghost", "en", "pt"), repository.ErrNotFound)
	assert.ErrorIs(t, s.AddBlock(ctx, "ghost", "u2"), repository.ErrNotFound)
	assert.NoError(t, s.RemoveBlock(ctx, "ghost", "u2"))
}

func TestReturnedProfilesAreCopies(t *testing.T) {
	ctx := context.Background()
	s := NewProfileStore(NewDB())
	_, err := s.Create(ctx, &models.Profile{ID: "u1"})
	require.NoError(t, err)
	require.NoError(t, s.AddBlock(ctx, "u1", "u2"))

	p, err := s.GetByID(ctx, "u1")
	require.NoError(t, err)
	p.BlockedUsers[0] = "tampered"
	p.DisplayName = "tampered"

	again, err := s.GetByID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"u2"}, again.BlockedUsers)
	assert.Empty(t, again.DisplayName)
}

func TestListByLanguages(t *testing.T) {
	ctx := context.Background()
	s := NewProfileStore(NewDB())
	for _, p := range []struct {
		id             string
		native, target models.Language
	}{
		{"c", "pt", "en"},
		{"a", "pt", "en"},
		{"b", "en", "pt"},
		{"d", "", ""},
	} {
		_, err := s.Create(ctx, &models.Profile{ID: p.id})
		require.NoError(t, err)
		if p.native != "" {
			require.NoError(t, s.UpdateLanguages(ctx, p.id, p.native, p.target))
		}
	}

	got, err := s.ListByLanguages(ctx, "pt", "en")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].ID)
	assert.Equal(t, "c", got[1].ID)

	complete, err := s.ListComplete(ctx)
	require.NoError(t, err)
	assert.Len(t, complete, 3)
}

func TestConversationCreateIfAbsentConcurrent(t *testing.T) {
	ctx := context.Background()
	s := NewConversationStore(NewDB())

	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, created, err := s.CreateIfAbsent(ctx, &models.Conversation{
				ID:           models.ConversationKey("x", "y"),
				Participants: []string{"y", "x"},
			})
			assert.NoError(t, err)
			if created {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, wins)
	conv, err := s.GetByID(ctx, "x:y")
	require.NoError(t, err)
	assert.Equal(t, []string{"x", "y"}, conv.Participants)
}

func TestAppendOnMissingConversation(t *testing.T) {
	_, err := NewMessageStore(NewDB()).Append(context.Background(), "a:b", "a", "hi")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestAppendTimestampsNeverGoBackwards(t *testing.T) {
	ctx := context.Background()
	db := NewDB()
	clock := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	db.now = func() time.Time { return clock }

	convs := NewConversationStore(db)
	msgs := NewMessageStore(db)
	_, _, err := convs.CreateIfAbsent(ctx, &models.Conversation{ID: "a:b", Participants: []string{"a", "b"}})
	require.NoError(t, err)

	first, err := msgs.Append(ctx, "a:b", "a", "first")
	require.NoError(t, err)

	clock = clock.Add(-time.Minute)
	second, err := msgs.Append(ctx, "a:b", "b", "second")
	require.NoError(t, err)
	assert.False(t, second.Timestamp.Before(first.Timestamp))

	list, err := msgs.ListByConversation(ctx, "a:b")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "first", list[0].Text)
	assert.Equal(t, "second", list[1].Text)
}

func TestAccountEmailIsCaseInsensitive(t *testing.T) {
	ctx := context.Background()
	s := NewAccountStore(NewDB())

	require.NoError(t, s.Create(ctx, &models.Account{ID: "1", Email: "Ana@Example.com", PasswordHash: "h"}))
	assert.ErrorIs(t, s.Create(ctx, &models.Account{ID: "2", Email: "ana@example.COM"}), repository.ErrAlreadyExists)

	a, err := s.GetByEmail(ctx, "ANA@example.com")
	require.NoError(t, err)
	require.NotNil(t, a)
	assert.Equal(t, "1", a.ID)
}
