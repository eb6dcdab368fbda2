// Package postgres provides the "sqlx" store.Driver and the schema and
// statements every Postgres-backed driver shares.
package postgres

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"slices"

	"github.com/XSAM/otelsql"
	"github.com/jmoiron/sqlx"
	"go.opentelemetry.io/otel/metric"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	"github.com/jensholdgaard/cricket-auctionbot/internal/clock"
	"github.com/jensholdgaard/cricket-auctionbot/internal/config"
	"github.com/jensholdgaard/cricket-auctionbot/internal/store"
)

//go:embed migrations/*.sql
var migrations embed.FS

func init() {
	store.Register("sqlx", openSqlx)
}

func openSqlx(ctx context.Context, cfg config.DatabaseConfig, clk clock.Clock) (*store.Repositories, error) {
	db, closer, err := OpenDB(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if cfg.AutoMigrate {
		if err := Migrate(ctx, db); err != nil {
			closer.Close()
			return nil, err
		}
	}
	dbx := sqlx.NewDb(db, "postgres")
	return &store.Repositories{
		Snapshots: NewSnapshotRepo(dbx, clk),
		Events:    NewEventStore(dbx, clk),
		Closer:    closer,
		Ping:      db.PingContext,
	}, nil
}

// OpenDB opens a lib/pq pool wrapped by otelsql, exports its pool
// statistics as OTel metrics and pings it. The returned Closer releases
// both.
func OpenDB(ctx context.Context, cfg config.DatabaseConfig) (*sql.DB, io.Closer, error) {
	opts := []otelsql.Option{otelsql.WithAttributes(semconv.DBSystemPostgreSQL)}
	db, err := otelsql.Open("postgres", cfg.DSN(), opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("opening postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("pinging postgres at %s:%d: %w", cfg.Host, cfg.Port, err)
	}
	stats, err := otelsql.RegisterDBStatsMetrics(db, opts...)
	if err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("registering pool metrics: %w", err)
	}
	return db, pool{db: db, stats: stats}, nil
}

type pool struct {
	db    *sql.DB
	stats metric.Registration
}

func (p pool) Close() error {
	return errors.Join(p.stats.Unregister(), p.db.Close())
}

// Execer is the subset of *sql.DB and *sqlx.DB that Migrate needs.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Migrate applies the embedded schema files in name order. Every statement
// is idempotent.
func Migrate(ctx context.Context, db Execer) error {
	names, err := fs.Glob(migrations, "migrations/*.sql")
	if err != nil {
		return fmt.Errorf("listing migrations: %w", err)
	}
	slices.Sort(names)
	for _, name := range names {
		body, err := migrations.ReadFile(name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}
		if _, err := db.ExecContext(ctx, string(body)); err != nil {
			return fmt.Errorf("applying migration %s: %w", name, err)
		}
	}
	return nil
}
