package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/jensholdgaard/cricket-auctionbot/internal/clock"
	"github.com/jensholdgaard/cricket-auctionbot/internal/store"
)

// SnapshotRepo keeps one jsonb row per team key.
type SnapshotRepo struct {
	db    *sqlx.DB
	clock clock.Clock
}

// NewSnapshotRepo returns a new SnapshotRepo.
func NewSnapshotRepo(db *sqlx.DB, clk clock.Clock) *SnapshotRepo {
	return &SnapshotRepo{db: db, clock: clk}
}

func (r *SnapshotRepo) Save(ctx context.Context, key string, data []byte) error {
	if _, err := r.db.ExecContext(ctx, UpsertSnapshotSQL, key, string(data), r.clock.Now().UTC()); err != nil {
		return fmt.Errorf("saving snapshot %s: %w", key, err)
	}
	return nil
}

func (r *SnapshotRepo) Load(ctx context.Context, key string) ([]byte, error) {
	var data []byte
	switch err := r.db.GetContext(ctx, &data, SelectSnapshotSQL, key); {
	case errors.Is(err, sql.ErrNoRows):
		return nil, store.ErrNotFound
	case err != nil:
		return nil, fmt.Errorf("loading snapshot %s: %w", key, err)
	}
	return data, nil
}

func (r *SnapshotRepo) Delete(ctx context.Context, key string) error {
	res, err := r.db.ExecContext(ctx, DeleteSnapshotSQL, key)
	if err != nil {
		return fmt.Errorf("deleting snapshot %s: %w", key, err)
	}
	return Deleted(res)
}

func (r *SnapshotRepo) Keys(ctx context.Context) ([]string, error) {
	keys := []string{}
	if err := r.db.SelectContext(ctx, &keys, SnapshotKeysSQL); err != nil {
		return nil, fmt.Errorf("listing snapshot keys: %w", err)
	}
	return keys, nil
}

// Deleted maps a DELETE that touched no row to store.ErrNotFound.
func Deleted(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("counting deleted rows: %w", err)
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}
