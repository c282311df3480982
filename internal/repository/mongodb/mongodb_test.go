package mongodb

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcmongodb "github.com/testcontainers/testcontainers-go/modules/mongodb"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"

	"github.com/lalith-99/lingomatch/internal/models"
	"github.com/lalith-99/lingomatch/internal/repository"
)

var (
	testDB         *DB
	skipReason     string
	mongoContainer *tcmongodb.MongoDBContainer
)

func TestMain(m *testing.M) {
	ctx := context.Background()

	// Transactions need a replica set, even a single-member one.
	container, err := tcmongodb.Run(ctx, "mongo:7", tcmongodb.WithReplicaSet("rs0"))
	if err != nil {
		skipReason = "mongo container unavailable: " + err.Error()
		os.Exit(m.Run())
	}
	mongoContainer = container

	connStr, err := container.ConnectionString(ctx)
	if err != nil {
		log.Fatalf("failed to get connection string: %v", err)
	}
	uri, err := directURI(connStr)
	if err != nil {
		log.Fatalf("failed to build mongo uri: %v", err)
	}

	testDB, err = Connect(ctx, uri, "lingomatch_test", zap.NewNop())
	if err != nil {
		log.Fatalf("failed to connect: %v", err)
	}
	if err := testDB.EnsureIndexes(ctx); err != nil {
		log.Fatalf("failed to create indexes: %v", err)
	}

	code := m.Run()

	testDB.Close()
	if err := testcontainers.TerminateContainer(mongoContainer); err != nil {
		log.Printf("failed to terminate container: %s", err)
	}
	os.Exit(code)
}

// directURI talks to the single member directly. The member advertises a
// host name that is only resolvable inside the container network.
func directURI(connStr string) (string, error) {
	u, err := url.Parse(connStr)
	if err != nil {
		return "", fmt.Errorf("parse %q: %w", connStr, err)
	}
	q := u.Query()
	q.Del("replicaSet")
	q.Set("directConnection", "true")
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func newTestStore(t *testing.T) repository.Store {
	t.Helper()
	if skipReason != "" {
		t.Skip(skipReason)
	}
	t.Cleanup(func() {
		ctx := context.Background()
		for _, coll := range []string{messagesCollection, conversationsCollection, profilesCollection, accountsCollection} {
			_, err := testDB.db.Collection(coll).DeleteMany(ctx, bson.M{})
			require.NoError(t, err)
		}
	})
	return testDB.Store()
}

func seedProfile(t *testing.T, s repository.Store, id string, native, target models.Language) {
	t.Helper()
	ctx := context.Background()
	_, err := s.Profiles.Create(ctx, &models.Profile{ID: id, DisplayName: id})
	require.NoError(t, err)
	if native != "" {
		require.NoError(t, s.Profiles.UpdateLanguages(ctx, id, native, target))
	}
}

func Test_ProfileCreateIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	created, err := s.Profiles.Create(ctx, &models.Profile{ID: "u1", DisplayName: "Ana"})
	require.NoError(t, err)
	assert.True(t, created)

	created, err = s.Profiles.Create(ctx, &models.Profile{ID: "u1", DisplayName: "Other"})
	require.NoError(t, err)
	assert.False(t, created)

	p, err := s.Profiles.GetByID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "Ana", p.DisplayName)
	assert.False(t, p.ProfileSetupComplete)
	assert.Equal(t, models.Language(""), p.NativeLanguage)
	assert.Equal(t, []string{}, p.BlockedUsers)

	missing, err := s.Profiles.GetByID(ctx, "nobody")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func Test_ProfileBlocksAreIdempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedProfile(t, s, "a", "en", "pt")

	assert.ErrorIs(t, s.Profiles.AddBlock(ctx, "ghost", "a"), repository.ErrNotFound)
	assert.NoError(t, s.Profiles.RemoveBlock(ctx, "ghost", "a"))

	require.NoError(t, s.Profiles.AddBlock(ctx, "a", "z"))
	require.NoError(t, s.Profiles.AddBlock(ctx, "a", "b"))
	require.NoError(t, s.Profiles.AddBlock(ctx, "a", "b"))

	p, err := s.Profiles.GetByID(ctx, "a")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"b", "z"}, p.BlockedUsers)

	require.NoError(t, s.Profiles.RemoveBlock(ctx, "a", "z"))
	require.NoError(t, s.Profiles.RemoveBlock(ctx, "a", "z"))
	require.NoError(t, s.Profiles.RemoveBlock(ctx, "a", "never-blocked"))

	p, err = s.Profiles.GetByID(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, p.BlockedUsers)
}

func Test_ProfileLanguageQueries(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedProfile(t, s, "c", "pt", "en")
	seedProfile(t, s, "a", "pt", "en")
	seedProfile(t, s, "b", "en", "pt")
	seedProfile(t, s, "d", "", "")

	assert.ErrorIs(t, s.Profiles.UpdateLanguages(ctx, "ghost", "en", "pt"), repository.ErrNotFound)

	partners, err := s.Profiles.ListByLanguages(ctx, "pt", "en")
	require.NoError(t, err)
	require.Len(t, partners, 2)
	assert.Equal(t, "a", partners[0].ID)
	assert.Equal(t, "c", partners[1].ID)

	complete, err := s.Profiles.ListComplete(ctx)
	require.NoError(t, err)
	assert.Len(t, complete, 3)
}

func Test_ConversationCreateIfAbsentConcurrent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0
	start := make(chan struct{})
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			conv, created, err := s.Conversations.CreateIfAbsent(ctx, &models.Conversation{
				ID:           models.ConversationKey("bia", "ana"),
				Participants: []string{"bia", "ana"},
			})
			if !assert.NoError(t, err) {
				return
			}
			assert.Equal(t, "ana:bia", conv.ID)
			assert.Equal(t, []string{"ana", "bia"}, conv.Participants)
			if created {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	close(start)
	wg.Wait()
	assert.Equal(t, 1, wins)

	convs, err := s.Conversations.ListByParticipant(ctx, "bia")
	require.NoError(t, err)
	require.Len(t, convs, 1)
	assert.Nil(t, convs[0].LastMessageText)
	assert.Nil(t, convs[0].LastMessageTimestamp)
}

func Test_MessageAppendIsAtomic(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.Messages.Append(ctx, "ana:bia", "ana", "hi")
	assert.ErrorIs(t, err, repository.ErrNotFound)
	msgs, err := s.Messages.ListByConversation(ctx, "ana:bia")
	require.NoError(t, err)
	assert.Empty(t, msgs, "a failed append must not leave a message behind")

	_, _, err = s.Conversations.CreateIfAbsent(ctx, &models.Conversation{ID: "ana:bia", Participants: []string{"ana", "bia"}})
	require.NoError(t, err)

	for _, text := range []string{"one", "two", "three"} {
		_, err := s.Messages.Append(ctx, "ana:bia", "ana", text)
		require.NoError(t, err)
	}
	last, err := s.Messages.Append(ctx, "ana:bia", "bia", "four")
	require.NoError(t, err)

	msgs, err = s.Messages.ListByConversation(ctx, "ana:bia")
	require.NoError(t, err)
	require.Len(t, msgs, 4)
	texts := []string{msgs[0].Text, msgs[1].Text, msgs[2].Text, msgs[3].Text}
	assert.Equal(t, []string{"one", "two", "three", "four"}, texts)
	assert.Equal(t, int64(4), msgs[3].Seq)

	conv, err := s.Conversations.GetByID(ctx, "ana:bia")
	require.NoError(t, err)
	require.NotNil(t, conv.LastMessageText)
	assert.Equal(t, "four", *conv.LastMessageText)
	assert.Equal(t, "bia", *conv.LastMessageSenderID)
	assert.True(t, conv.LastMessageTimestamp.Equal(last.Timestamp))
}

func Test_ConcurrentAppendsKeepSummaryOnNewest(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	_, _, err := s.Conversations.CreateIfAbsent(ctx, &models.Conversation{ID: "ana:bia", Participants: []string{"ana", "bia"}})
	require.NoError(t, err)

	const n = 8
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := s.Messages.Append(ctx, "ana:bia", "ana", fmt.Sprintf("msg-%d", i))
			assert.NoError(t, err)
		}()
	}
	close(start)
	wg.Wait()

	msgs, err := s.Messages.ListByConversation(ctx, "ana:bia")
	require.NoError(t, err)
	require.Len(t, msgs, n)

	seqs := make(map[int64]struct{}, n)
	newest := msgs[0]
	for _, m := range msgs {
		seqs[m.Seq] = struct{}{}
		if m.Seq > newest.Seq {
			newest = m
		}
	}
	assert.Len(t, seqs, n, "every append gets its own seq")
	assert.Equal(t, int64(n), newest.Seq)

	conv, err := s.Conversations.GetByID(ctx, "ana:bia")
	require.NoError(t, err)
	require.NotNil(t, conv.LastMessageText)
	assert.Equal(t, newest.Text, *conv.LastMessageText)
	assert.True(t, conv.LastMessageTimestamp.Equal(newest.Timestamp))
}

func Test_ListByParticipantPutsEmptyLast(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, other := range []string{"bia", "caio", "duda"} {
		_, _, err := s.Conversations.CreateIfAbsent(ctx, &models.Conversation{
			ID:           models.ConversationKey("ana", other),
			Participants: []string{"ana", other},
		})
		require.NoError(t, err)
	}
	_, err := s.Messages.Append(ctx, "ana:caio", "ana", "first")
	require.NoError(t, err)
	// Stored timestamps only keep milliseconds.
	time.Sleep(5 * time.Millisecond)
	_, err = s.Messages.Append(ctx, "ana:bia", "ana", "second")
	require.NoError(t, err)

	convs, err := s.Conversations.ListByParticipant(ctx, "ana")
	require.NoError(t, err)
	require.Len(t, convs, 3)
	assert.Equal(t, []string{"ana:bia", "ana:caio", "ana:duda"}, []string{convs[0].ID, convs[1].ID, convs[2].ID})
	assert.Nil(t, convs[2].LastMessageTimestamp)

	none, err := s.Conversations.ListByParticipant(ctx, "zed")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func Test_AccountUniqueEmail(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Accounts.Create(ctx, &models.Account{ID: "1", Email: "Ana@Example.com", PasswordHash: "h"}))
	err := s.Accounts.Create(ctx, &models.Account{ID: "2", Email: "ana@example.com", PasswordHash: "h"})
	assert.ErrorIs(t, err, repository.ErrAlreadyExists)

	a, err := s.Accounts.GetByEmail(ctx, "ANA@EXAMPLE.COM")
	require.NoError(t, err)
	require.NotNil(t, a)
	assert.Equal(t, "1", a.ID)

	missing, err := s.Accounts.GetByEmail(ctx, "nobody@example.com")
	require.NoError(t, err)
	assert.Nil(t, missing)
}
