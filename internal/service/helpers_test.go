package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/lalith-99/lingomatch/internal/apperr"
	"github.com/lalith-99/lingomatch/internal/models"
	"github.com/lalith-99/lingomatch/internal/realtime"
	"github.com/lalith-99/lingomatch/internal/repository"
	"github.com/lalith-99/lingomatch/internal/repository/memory"
)

type fixture struct {
	svc      *Services
	store    repository.Store
	notifier *realtime.LocalNotifier
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore()
	notifier := realtime.NewLocalNotifier()
	tokens := TokenConfig{Secret: "service-test-secret-0123456789abcdef", TTL: time.Hour}
	return &fixture{
		svc:      New(store, notifier, tokens, zap.NewNop()),
		store:    store,
		notifier: notifier,
	}
}

// user creates a profile and, when native and target are set, completes setup.
func (f *fixture) user(t *testing.T, id string, native, target models.Language) *models.Profile {
	t.Helper()
	ctx := context.Background()
	p, _, err := f.svc.Profiles.EnsureProfile(ctx, models.Identity{UID: id, DisplayName: id})
	require.NoError(t, err)
	if native == "" {
		return p
	}
	p, err = f.svc.Profiles.CompleteSetup(ctx, id, native, target)
	require.NoError(t, err)
	return p
}

// pair creates two complementary users and their conversation.
func (f *fixture) pair(t *testing.T, a, b string) *models.Conversation {
	t.Helper()
	f.user(t, a, models.LanguageEnglish, models.LanguagePortuguese)
	f.user(t, b, models.LanguagePortuguese, models.LanguageEnglish)
	conv, _, err := f.svc.Conversations.GetOrCreate(context.Background(), a, b)
	require.NoError(t, err)
	return conv
}

func requireCode(t *testing.T, err error, code apperr.Code) {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, code, apperr.CodeOf(err), "error: %v", err)
}
