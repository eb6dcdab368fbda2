package memstore_test

import (
	"context"
	"errors"
	"testing"

	"github.com/jensholdgaard/cricket-auctionbot/internal/clock"
	"github.com/jensholdgaard/cricket-auctionbot/internal/config"
	"github.com/jensholdgaard/cricket-auctionbot/internal/event"
	"github.com/jensholdgaard/cricket-auctionbot/internal/store"
	"github.com/jensholdgaard/cricket-auctionbot/internal/store/memstore"
	"github.com/jensholdgaard/cricket-auctionbot/internal/store/storetest"
)

func TestSnapshots(t *testing.T) {
	storetest.Snapshots(t, memstore.NewSnapshots())
}

func TestEvents(t *testing.T) {
	storetest.Events(t, memstore.NewEvents(clock.NewMock(storetest.Now)))
}

func TestEvents_DuplicateWithinBatch(t *testing.T) {
	es := memstore.NewEvents(clock.Real{})
	ctx := context.Background()

	err := es.Append(ctx,
		event.Event{AggregateID: "s1", Type: event.LotOpened, Version: 1},
		event.Event{AggregateID: "s1", Type: event.LotLost, Version: 1},
	)
	if !errors.Is(err, event.ErrDuplicateVersion) {
		t.Fatalf("Append error = %v, want ErrDuplicateVersion", err)
	}
	if got, _ := es.Load(ctx, "s1"); len(got) != 0 {
		t.Errorf("rejected batch stored %d events", len(got))
	}

	// The same version on another aggregate is fine.
	err = es.Append(ctx,
		event.Event{AggregateID: "s1", Type: event.LotOpened, Version: 1},
		event.Event{AggregateID: "s2", Type: event.LotOpened, Version: 1},
	)
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
}

func TestDriver(t *testing.T) {
	repos, err := store.Open(context.Background(), config.DatabaseConfig{Driver: "memory"}, clock.Real{})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := repos.Ping(context.Background()); err != nil {
		t.Errorf("Ping: %v", err)
	}
	if err := repos.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
}
