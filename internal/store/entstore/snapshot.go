package entstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jensholdgaard/cricket-auctionbot/internal/clock"
	"github.com/jensholdgaard/cricket-auctionbot/internal/store"
	"github.com/jensholdgaard/cricket-auctionbot/internal/store/postgres"
)

// SnapshotRepo is the database/sql implementation of store.SnapshotRepository.
type SnapshotRepo struct {
	db    *sql.DB
	clock clock.Clock
}

// NewSnapshotRepo returns a new SnapshotRepo.
func NewSnapshotRepo(db *sql.DB, clk clock.Clock) *SnapshotRepo {
	return &SnapshotRepo{db: db, clock: clk}
}

func (r *SnapshotRepo) Save(ctx context.Context, key string, data []byte) error {
	if _, err := r.db.ExecContext(ctx, postgres.UpsertSnapshotSQL, key, string(data), r.clock.Now().UTC()); err != nil {
		return fmt.Errorf("saving snapshot %s: %w", key, err)
	}
	return nil
}

func (r *SnapshotRepo) Load(ctx context.Context, key string) ([]byte, error) {
	var data []byte
	err := r.db.QueryRowContext(ctx, postgres.SelectSnapshotSQL, key).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading snapshot %s: %w", key, err)
	}
	return data, nil
}

func (r *SnapshotRepo) Delete(ctx context.Context, key string) error {
	res, err := r.db.ExecContext(ctx, postgres.DeleteSnapshotSQL, key)
	if err != nil {
		return fmt.Errorf("deleting snapshot %s: %w", key, err)
	}
	return postgres.Deleted(res)
}

func (r *SnapshotRepo) Keys(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, postgres.SnapshotKeysSQL)
	if err != nil {
		return nil, fmt.Errorf("listing snapshot keys: %w", err)
	}
	defer rows.Close()

	keys := []string{}
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("scanning snapshot key: %w", err)
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}
