// Package entstore provides the "ent" store.Driver: the Postgres schema of
// the sqlx driver accessed through plain database/sql, the layer ent
// generates code on top of.
package entstore

import (
	"context"

	_ "github.com/lib/pq" // postgres driver

	"github.com/jensholdgaard/cricket-auctionbot/internal/clock"
	"github.com/jensholdgaard/cricket-auctionbot/internal/config"
	"github.com/jensholdgaard/cricket-auctionbot/internal/store"
	"github.com/jensholdgaard/cricket-auctionbot/internal/store/postgres"
)

func init() {
	store.Register("ent", open)
}

func open(ctx context.Context, cfg config.DatabaseConfig, clk clock.Clock) (*store.Repositories, error) {
	db, closer, err := postgres.OpenDB(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if cfg.AutoMigrate {
		if err := postgres.Migrate(ctx, db); err != nil {
			closer.Close()
			return nil, err
		}
	}
	return &store.Repositories{
		Snapshots: NewSnapshotRepo(db, clk),
		Events:    NewEventStore(db, clk),
		Closer:    closer,
		Ping:      db.PingContext,
	}, nil
}
