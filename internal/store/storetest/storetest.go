// Package storetest holds the behaviour every store driver must share and
// the container helpers the integration tests run it against.
package storetest

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jensholdgaard/cricket-auctionbot/internal/event"
	"github.com/jensholdgaard/cricket-auctionbot/internal/store"
)

// Now is the instant event stores under test must be built with, e.g.
// clock.NewMock(storetest.Now).
var Now = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

// Snapshots exercises a fresh, empty store.SnapshotRepository.
func Snapshots(t *testing.T, repo store.SnapshotRepository) {
	t.Helper()
	ctx := context.Background()

	_, err := repo.Load(ctx, "lions")
	require.ErrorIs(t, err, store.ErrNotFound, "Load on an empty store")

	keys, err := repo.Keys(ctx)
	require.NoError(t, err)
	assert.Empty(t, keys)

	body := []byte(`{"id":"lions-1","version":1}`)
	require.NoError(t, repo.Save(ctx, "lions", body))
	body[2] = 'X'
	got, err := repo.Load(ctx, "lions")
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"lions-1","version":1}`, string(got), "caller's buffer must not alias the stored snapshot")

	require.NoError(t, repo.Save(ctx, "tigers", []byte(`{"id":"tigers-1"}`)))
	require.NoError(t, repo.Save(ctx, "lions", []byte(`{"id":"lions-1","version":2}`)))

	got, err = repo.Load(ctx, "lions")
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"lions-1","version":2}`, string(got), "Save replaces the previous snapshot")

	keys, err = repo.Keys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"lions", "tigers"}, keys)

	require.NoError(t, repo.Delete(ctx, "lions"))
	assert.ErrorIs(t, repo.Delete(ctx, "lions"), store.ErrNotFound, "second Delete")
	_, err = repo.Load(ctx, "lions")
	assert.ErrorIs(t, err, store.ErrNotFound, "Load after Delete")

	keys, err = repo.Keys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"tigers"}, keys)
}

// Events exercises a fresh, empty event.Store whose clock reads Now.
func Events(t *testing.T, es event.Store) {
	t.Helper()
	ctx := context.Background()
	explicit := Now.Add(-time.Hour)

	require.NoError(t, es.Append(ctx,
		event.Event{AggregateID: "s1", Type: event.LotWon, Data: json.RawMessage(`{"player_id":"p1","bid":150}`), Version: 2},
		event.Event{AggregateID: "s1", Type: event.LotOpened, Data: json.RawMessage(`{"player_id":"p1"}`), Version: 1},
		event.Event{AggregateID: "s2", Type: event.LotOpened, Data: json.RawMessage(`{"player_id":"p9"}`), Version: 1, CreatedAt: explicit},
	))
	require.NoError(t, es.Append(ctx), "empty Append")

	loaded, err := es.Load(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, loaded, 2)
	assert.Equal(t, 1, loaded[0].Version)
	assert.Equal(t, event.LotOpened, loaded[0].Type)
	assert.Equal(t, 2, loaded[1].Version)
	assert.JSONEq(t, `{"player_id":"p1","bid":150}`, string(loaded[1].Data))
	assert.NotEmpty(t, loaded[0].ID)
	assert.NotEqual(t, loaded[0].ID, loaded[1].ID)
	assert.True(t, loaded[0].CreatedAt.Equal(Now), "zero CreatedAt stamped, got %v", loaded[0].CreatedAt)

	other, err := es.Load(ctx, "s2")
	require.NoError(t, err)
	require.Len(t, other, 1)
	assert.True(t, other[0].CreatedAt.Equal(explicit), "explicit CreatedAt kept, got %v", other[0].CreatedAt)

	none, err := es.Load(ctx, "missing")
	require.NoError(t, err)
	assert.Empty(t, none)

	opened, err := es.LoadByType(ctx, event.LotOpened)
	require.NoError(t, err)
	assert.Len(t, opened, 2)

	err = es.Append(ctx,
		event.Event{AggregateID: "s1", Type: event.DecisionUndone, Data: json.RawMessage(`{}`), Version: 3},
		event.Event{AggregateID: "s1", Type: event.LotLost, Data: json.RawMessage(`{}`), Version: 2},
	)
	require.Error(t, err, "Append over an existing version")
	assert.True(t, errors.Is(err, event.ErrDuplicateVersion), "error %v is not ErrDuplicateVersion", err)

	undone, err := es.LoadByType(ctx, event.DecisionUndone)
	require.NoError(t, err)
	assert.Empty(t, undone, "rejected batch must not leave events behind")
	loaded, err = es.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Len(t, loaded, 2)
}
