package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zulandar/agentdesk/internal/db"
	"github.com/zulandar/agentdesk/internal/models"
	"github.com/zulandar/agentdesk/internal/telegraph"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeSyncer struct {
	calls  int
	failed int
	err    error
}

func (f *fakeSyncer) SyncEveryone(ctx context.Context) (int, int, error) {
	f.calls++
	return 3, f.failed, f.err
}

type fakePoster struct {
	msgs []telegraph.OutboundMessage
	full bool
}

func (f *fakePoster) Enqueue(msg telegraph.OutboundMessage) bool {
	if f.full {
		return false
	}
	f.msgs = append(f.msgs, msg)
	return true
}

func TestNew_RegistersConfiguredJobs(t *testing.T) {
	gormDB, err := db.OpenMemory()
	require.NoError(t, err)

	s, err := New(Options{
		BalanceCron: "*/15 * * * *",
		Wallets:     &fakeSyncer{},
		DigestCron:  "0 9 * * *",
		DB:          gormDB,
		Poster:      &fakePoster{},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"balance-sync", "digest"}, s.Jobs())
}

func TestNew_SkipsUnconfiguredJobs(t *testing.T) {
	s, err := New(Options{BalanceCron: "*/15 * * * *", DigestCron: "0 9 * * *"})
	require.NoError(t, err)
	assert.Empty(t, s.Jobs())
}

func TestNew_InvalidCron(t *testing.T) {
	_, err := New(Options{BalanceCron: "whenever", Wallets: &fakeSyncer{}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "balance-sync")
}

func TestSyncBalances(t *testing.T) {
	syncer := &fakeSyncer{failed: 1}
	s, err := New(Options{Wallets: syncer})
	require.NoError(t, err)

	require.NoError(t, s.SyncBalances(context.Background()))
	assert.Equal(t, 1, syncer.calls)

	syncer.err = errors.New("db down")
	assert.ErrorContains(t, s.SyncBalances(context.Background()), "db down")
}

func TestPostDigest(t *testing.T) {
	gormDB, err := db.OpenMemory()
	require.NoError(t, err)
	now := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	require.NoError(t, gormDB.Create(&models.NFT{
		ID: "n-1", UserID: "u-1", WalletID: "w-1", Name: "Dragon", CreatedAt: now.Add(-time.Hour),
	}).Error)

	poster := &fakePoster{}
	s, err := New(Options{DB: gormDB, Poster: poster})
	require.NoError(t, err)
	s.now = func() time.Time { return now }

	require.NoError(t, s.PostDigest(context.Background()))
	require.Len(t, poster.msgs, 1)
	assert.Equal(t, "Daily Digest", poster.msgs[0].Text)
	require.Len(t, poster.msgs[0].Events, 1)
	assert.Contains(t, poster.msgs[0].Events[0].Body, "1 NFTs")
}

func TestPostDigest_EmptyPeriodPostsNothing(t *testing.T) {
	gormDB, err := db.OpenMemory()
	require.NoError(t, err)

	poster := &fakePoster{}
	s, err := New(Options{DB: gormDB, Poster: poster})
	require.NoError(t, err)

	require.NoError(t, s.PostDigest(context.Background()))
	assert.Empty(t, poster.msgs)
}

func TestPostDigest_QueueFull(t *testing.T) {
	gormDB, err := db.OpenMemory()
	require.NoError(t, err)
	now := time.Now().UTC()
	require.NoError(t, gormDB.Create(&models.Feedback{UserID: "u", Rating: 5, Body: "x", CreatedAt: now.Add(-time.Minute)}).Error)

	s, err := New(Options{DB: gormDB, Poster: &fakePoster{full: true}})
	require.NoError(t, err)
	s.now = func() time.Time { return now }
	assert.ErrorContains(t, s.PostDigest(context.Background()), "queue full")
}

func TestStartStop(t *testing.T) {
	s, err := New(Options{BalanceCron: "@every 1h", Wallets: &fakeSyncer{}})
	require.NoError(t, err)
	s.Start(context.Background())
	s.Stop()
}
