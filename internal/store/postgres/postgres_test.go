package postgres_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jensholdgaard/cricket-auctionbot/internal/clock"
	"github.com/jensholdgaard/cricket-auctionbot/internal/event"
	"github.com/jensholdgaard/cricket-auctionbot/internal/store"
	"github.com/jensholdgaard/cricket-auctionbot/internal/store/postgres"
	"github.com/jensholdgaard/cricket-auctionbot/internal/store/storetest"
)

func openRepos(t *testing.T) *store.Repositories {
	t.Helper()
	repos, err := store.Open(context.Background(), storetest.Postgres(t, "sqlx"), clock.NewMock(storetest.Now))
	require.NoError(t, err)
	t.Cleanup(func() { repos.Close() })
	return repos
}

func TestSnapshots(t *testing.T) {
	storetest.Snapshots(t, openRepos(t).Snapshots)
}

func TestEvents(t *testing.T) {
	storetest.Events(t, openRepos(t).Events)
}

func TestMigrate_Idempotent(t *testing.T) {
	cfg := storetest.Postgres(t, "sqlx")
	ctx := context.Background()

	db, closer, err := postgres.OpenDB(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(func() { closer.Close() })

	for i := range 2 {
		require.NoError(t, postgres.Migrate(ctx, db), "run %d", i+1)
	}
}

func TestSnapshotRepo_StoresJSONB(t *testing.T) {
	repos := openRepos(t)
	ctx := context.Background()

	require.NoError(t, repos.Snapshots.Save(ctx, "lions", []byte(`{"version":2,   "id":"s1"}`)))
	got, err := repos.Snapshots.Load(ctx, "lions")
	require.NoError(t, err)
	assert.Equal(t, `{"id": "s1", "version": 2}`, string(got))

	err = repos.Snapshots.Save(ctx, "lions", []byte(`not json`))
	assert.Error(t, err, "jsonb column must reject a malformed snapshot")
}

func TestEventStore_LoadByTypeOldestFirst(t *testing.T) {
	cfg := storetest.Postgres(t, "sqlx")
	ctx := context.Background()
	db, closer, err := postgres.OpenDB(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(func() { closer.Close() })
	require.NoError(t, postgres.Migrate(ctx, db))

	es := postgres.NewEventStore(sqlx.NewDb(db, "postgres"), clock.NewMock(storetest.Now))
	for i, at := range []time.Duration{3 * time.Minute, time.Minute, 2 * time.Minute} {
		err := es.Append(ctx, event.Event{
			AggregateID: fmt.Sprintf("s%d", i),
			Type:        event.QueueShuffled,
			Data:        json.RawMessage(`{"queued":4}`),
			Version:     1,
			CreatedAt:   storetest.Now.Add(at),
		})
		require.NoError(t, err)
	}

	shuffled, err := es.LoadByType(ctx, event.QueueShuffled)
	require.NoError(t, err)
	require.Len(t, shuffled, 3)
	assert.Equal(t, []string{"s1", "s2", "s0"},
		[]string{shuffled[0].AggregateID, shuffled[1].AggregateID, shuffled[2].AggregateID})
}

func TestIsUniqueViolation(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"unique violation", &pq.Error{Code: "23505"}, true},
		{"wrapped", fmt.Errorf("inserting: %w", &pq.Error{Code: "23505"}), true},
		{"other sqlstate", &pq.Error{Code: "23502"}, false},
		{"plain error", errors.New("boom"), false},
		{"nil", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, postgres.IsUniqueViolation(tt.err))
		})
	}
}
