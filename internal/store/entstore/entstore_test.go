package entstore_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jensholdgaard/cricket-auctionbot/internal/clock"
	"github.com/jensholdgaard/cricket-auctionbot/internal/event"
	"github.com/jensholdgaard/cricket-auctionbot/internal/store"
	_ "github.com/jensholdgaard/cricket-auctionbot/internal/store/entstore"
	"github.com/jensholdgaard/cricket-auctionbot/internal/store/storetest"
)

func TestSnapshots(t *testing.T) {
	repos, err := store.Open(context.Background(), storetest.Postgres(t, "ent"), clock.NewMock(storetest.Now))
	require.NoError(t, err)
	t.Cleanup(func() { repos.Close() })

	storetest.Snapshots(t, repos.Snapshots)
}

func TestEvents(t *testing.T) {
	repos, err := store.Open(context.Background(), storetest.Postgres(t, "ent"), clock.NewMock(storetest.Now))
	require.NoError(t, err)
	t.Cleanup(func() { repos.Close() })

	storetest.Events(t, repos.Events)
}

// The ent and sqlx drivers share one schema, so either can read what the
// other wrote.
func TestSharesSchemaWithSqlx(t *testing.T) {
	ctx := context.Background()
	cfg := storetest.Postgres(t, "ent")
	clk := clock.NewMock(storetest.Now)

	ent, err := store.Open(ctx, cfg, clk)
	require.NoError(t, err)
	t.Cleanup(func() { ent.Close() })

	cfg.Driver = "sqlx"
	sqlx, err := store.Open(ctx, cfg, clk)
	require.NoError(t, err)
	t.Cleanup(func() { sqlx.Close() })

	require.NoError(t, ent.Snapshots.Save(ctx, "lions", []byte(`{"id":"lions-1"}`)))
	require.NoError(t, ent.Events.Append(ctx, event.Event{AggregateID: "lions-1", Type: event.RosterImported, Version: 1}))

	got, err := sqlx.Snapshots.Load(ctx, "lions")
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"lions-1"}`, string(got))

	events, err := sqlx.Events.Load(ctx, "lions-1")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, event.RosterImported, events[0].Type)
	assert.JSONEq(t, `null`, string(events[0].Data))
}
