package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"

	"github.com/lalith-99/lingomatch/internal/apperr"
	"github.com/lalith-99/lingomatch/internal/models"
	"github.com/lalith-99/lingomatch/internal/realtime"
	"github.com/lalith-99/lingomatch/internal/repository/mocks"
)

func TestGetOrCreateConversation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.user(t, "ana", "en", "pt")
	f.user(t, "bia", "pt", "en")

	conv, created, err := f.svc.Conversations.GetOrCreate(ctx, "bia", "ana")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "ana:bia", conv.ID)
	assert.Equal(t, []string{"ana", "bia"}, conv.Participants)
	assert.Nil(t, conv.LastMessageText)
	assert.Nil(t, conv.LastMessageTimestamp)
	assert.False(t, conv.CreatedAt.IsZero())

	again, created, err := f.svc.Conversations.GetOrCreate(ctx, "ana", "bia")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, conv.ID, again.ID)
	assert.Equal(t, conv.CreatedAt, again.CreatedAt)
}

func TestGetOrCreateConversationRejects(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.user(t, "ana", "en", "pt")
	f.user(t, "bia", "pt", "en")
	f.user(t, "dan", "en", "es")
	f.user(t, "eve", "pt", "en")
	require.NoError(t, f.svc.Profiles.Block(ctx, "eve", "ana"))

	tests := []struct {
		name string
		a, b string
		code apperr.Code
	}{
		{"same user", "ana", "ana", apperr.CodeInvalidArgument},
		{"empty id", "ana", "", apperr.CodeInvalidArgument},
		{"unknown user", "ana", "ghost", apperr.CodeNotFound},
		{"blocked by other", "ana", "eve", apperr.CodePermissionDenied},
		{"blocked, reversed call", "eve", "ana", apperr.CodePermissionDenied},
		{"not language partners", "ana", "dan", apperr.CodePermissionDenied},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := f.svc.Conversations.GetOrCreate(ctx, tt.a, tt.b)
			requireCode(t, err, tt.code)
		})
	}

	convs, err := f.svc.Conversations.ListForUser(ctx, "ana")
	require.NoError(t, err)
	assert.Empty(t, convs, "rejected calls must not create anything")
}

func TestExistingConversationSurvivesLanguageChange(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	conv := f.pair(t, "ana", "bia")

	_, err := f.svc.Profiles.CompleteSetup(ctx, "ana", "fr", "de")
	require.NoError(t, err)

	again, created, err := f.svc.Conversations.GetOrCreate(ctx, "ana", "bia")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, conv.ID, again.ID)
}

func TestBlockAfterCreationDeniesResolution(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.pair(t, "ana", "bia")
	require.NoError(t, f.svc.Profiles.Block(ctx, "bia", "ana"))

	_, _, err := f.svc.Conversations.GetOrCreate(ctx, "ana", "bia")
	requireCode(t, err, apperr.CodePermissionDenied)
}

func TestConcurrentGetOrCreateCreatesOnce(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.user(t, "ana", "en", "pt")
	f.user(t, "bia", "pt", "en")

	const n = 64
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		created int
		seen    = map[string]struct{}{}
	)
	start := make(chan struct{})
	for i := 0; i < n; i++ {
		a, b := "ana", "bia"
		if i%2 == 1 {
			a, b = b, a
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			conv, c, err := f.svc.Conversations.GetOrCreate(ctx, a, b)
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			defer mu.Unlock()
			if c {
				created++
			}
			seen[conv.ID] = struct{}{}
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, 1, created)
	assert.Len(t, seen, 1)

	convs, err := f.svc.Conversations.ListForUser(ctx, "ana")
	require.NoError(t, err)
	assert.Len(t, convs, 1)
}

func TestGetConversationChecksParticipant(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	conv := f.pair(t, "ana", "bia")
	f.user(t, "caio", "pt", "en")

	got, err := f.svc.Conversations.Get(ctx, "bia", conv.ID)
	require.NoError(t, err)
	assert.Equal(t, conv.ID, got.ID)

	_, err = f.svc.Conversations.Get(ctx, "caio", conv.ID)
	requireCode(t, err, apperr.CodePermissionDenied)

	_, err = f.svc.Conversations.Get(ctx, "ana", models.ConversationKey("ana", "zed"))
	requireCode(t, err, apperr.CodeNotFound)
}

func TestListForUserOrdersByLastMessage(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.user(t, "ana", "en", "pt")
	f.user(t, "bia", "pt", "en")
	f.user(t, "caio", "pt", "en")
	f.user(t, "duda", "pt", "en")

	withBia, _, err := f.svc.Conversations.GetOrCreate(ctx, "ana", "bia")
	require.NoError(t, err)
	withCaio, _, err := f.svc.Conversations.GetOrCreate(ctx, "ana", "caio")
	require.NoError(t, err)
	empty, _, err := f.svc.Conversations.GetOrCreate(ctx, "ana", "duda")
	require.NoError(t, err)

	_, err = f.svc.Messages.Append(ctx, "ana", withCaio.ID, "oi")
	require.NoError(t, err)
	time.Sleep(2 * time.Millisecond)
	_, err = f.svc.Messages.Append(ctx, "bia", withBia.ID, "hello")
	require.NoError(t, err)

	convs, err := f.svc.Conversations.ListForUser(ctx, "ana")
	require.NoError(t, err)
	require.Len(t, convs, 3)
	assert.Equal(t, []string{withBia.ID, withCaio.ID, empty.ID}, []string{convs[0].ID, convs[1].ID, convs[2].ID})
}

func TestGetOrCreateRejectsIDsThatCollideOnKey(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	// Rows written straight to the store, as an older deployment or another
	// backend could have left them.
	for _, p := range []struct {
		id             string
		native, target models.Language
	}{
		{"a:b", "en", "pt"},
		{"c", "pt", "en"},
		{"a", "en", "pt"},
		{"b:c", "pt", "en"},
	} {
		_, err := f.store.Profiles.Create(ctx, &models.Profile{ID: p.id})
		require.NoError(t, err)
		require.NoError(t, f.store.Profiles.UpdateLanguages(ctx, p.id, p.native, p.target))
	}

	_, _, err := f.svc.Conversations.GetOrCreate(ctx, "a:b", "c")
	requireCode(t, err, apperr.CodeInvalidArgument)
	_, _, err = f.svc.Conversations.GetOrCreate(ctx, "a", "b:c")
	requireCode(t, err, apperr.CodeInvalidArgument)

	stored, err := f.store.Conversations.GetByID(ctx, "a:b:c")
	require.NoError(t, err)
	assert.Nil(t, stored)
	for _, uid := range []string{"a", "c"} {
		convs, err := f.svc.Conversations.ListForUser(ctx, uid)
		require.NoError(t, err)
		assert.Empty(t, convs)
	}
}

func TestGetOrCreateRefusesConversationOfAnotherPair(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.user(t, "ana", "en", "pt")
	f.user(t, "bia", "pt", "en")

	_, _, err := f.store.Conversations.CreateIfAbsent(ctx, &models.Conversation{
		ID:           models.ConversationKey("ana", "bia"),
		Participants: []string{"ana", "zed"},
	})
	require.NoError(t, err)
	_, err = f.store.Messages.Append(ctx, "ana:bia", "zed", "private")
	require.NoError(t, err)

	conv, created, err := f.svc.Conversations.GetOrCreate(ctx, "bia", "ana")
	requireCode(t, err, apperr.CodeInternal)
	assert.Nil(t, conv)
	assert.False(t, created)
}

func TestGetOrCreateChecksParticipantsAfterLostRace(t *testing.T) {
	ctx := context.Background()
	ctrl := gomock.NewController(t)

	profiles := mocks.NewMockProfileRepository(ctrl)
	conversations := mocks.NewMockConversationRepository(ctrl)

	profiles.EXPECT().GetByID(gomock.Any(), "ana").Return(&models.Profile{
		ID: "ana", NativeLanguage: "en", TargetLanguage: "pt", ProfileSetupComplete: true, BlockedUsers: []string{},
	}, nil)
	profiles.EXPECT().GetByID(gomock.Any(), "bia").Return(&models.Profile{
		ID: "bia", NativeLanguage: "pt", TargetLanguage: "en", ProfileSetupComplete: true, BlockedUsers: []string{},
	}, nil)
	conversations.EXPECT().GetByID(gomock.Any(), "ana:bia").Return(nil, nil)
	conversations.EXPECT().CreateIfAbsent(gomock.Any(), gomock.Any()).
		Return(&models.Conversation{ID: "ana:bia", Participants: []string{"ana", "zed"}}, false, nil)

	svc := NewConversationService(profiles, conversations, realtime.NewLocalNotifier(), zap.NewNop())
	_, _, err := svc.GetOrCreate(ctx, "ana", "bia")

	requireCode(t, err, apperr.CodeInternal)
	assert.Equal(t, "conversation key collision", apperr.MessageOf(err))
}
