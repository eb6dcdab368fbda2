package redisstore_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jensholdgaard/cricket-auctionbot/internal/clock"
	"github.com/jensholdgaard/cricket-auctionbot/internal/config"
	"github.com/jensholdgaard/cricket-auctionbot/internal/store"
	"github.com/jensholdgaard/cricket-auctionbot/internal/store/redisstore"
	"github.com/jensholdgaard/cricket-auctionbot/internal/store/storetest"
)

func openRepos(t *testing.T, cfg config.DatabaseConfig) *store.Repositories {
	t.Helper()
	repos, err := store.Open(context.Background(), cfg, clock.NewMock(storetest.Now))
	require.NoError(t, err)
	t.Cleanup(func() { repos.Close() })
	return repos
}

func TestSnapshots(t *testing.T) {
	storetest.Snapshots(t, openRepos(t, storetest.Redis(t)).Snapshots)
}

func TestEvents(t *testing.T) {
	storetest.Events(t, openRepos(t, storetest.Redis(t)).Events)
}

func TestKeyspaceIsolation(t *testing.T) {
	ctx := context.Background()
	lions := openRepos(t, storetest.Redis(t))
	tigers := openRepos(t, storetest.Redis(t))

	require.NoError(t, lions.Snapshots.Save(ctx, "team", []byte(`{"id":"lions"}`)))

	_, err := tigers.Snapshots.Load(ctx, "team")
	assert.ErrorIs(t, err, store.ErrNotFound)
	keys, err := tigers.Snapshots.Keys(ctx)
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestConnect_Unreachable(t *testing.T) {
	_, err := redisstore.Connect(context.Background(), config.RedisConfig{Addr: "127.0.0.1:1"})
	assert.ErrorContains(t, err, "connecting to redis at 127.0.0.1:1")
}
