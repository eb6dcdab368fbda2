package store

import (
	"context"
	"errors"
)

// ErrNotFound is returned when no snapshot exists for a key.
var ErrNotFound = errors.New("snapshot not found")

// SnapshotRepository persists whole-session snapshots, one per team key.
// Save replaces any previous snapshot for the key.
type SnapshotRepository interface {
	Save(ctx context.Context, key string, data []byte) error
	Load(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
	Keys(ctx context.Context) ([]string, error)
}
