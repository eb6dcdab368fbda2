package redisstore

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/redis/go-redis/v9"

	"github.com/jensholdgaard/cricket-auctionbot/internal/store"
)

// SnapshotRepo implements store.SnapshotRepository on Redis strings. A set
// tracks the saved keys so Keys avoids a SCAN.
type SnapshotRepo struct {
	rdb  *redis.Client
	keys Keyspace
}

// NewSnapshotRepo returns a new SnapshotRepo.
func NewSnapshotRepo(rdb *redis.Client, keys Keyspace) *SnapshotRepo {
	return &SnapshotRepo{rdb: rdb, keys: keys}
}

func (r *SnapshotRepo) Save(ctx context.Context, key string, data []byte) error {
	_, err := r.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Set(ctx, r.keys.snapshot(key), data, 0)
		p.SAdd(ctx, r.keys.snapshotIndex(), key)
		return nil
	})
	if err != nil {
		return fmt.Errorf("saving snapshot %s: %w", key, err)
	}
	return nil
}

func (r *SnapshotRepo) Load(ctx context.Context, key string) ([]byte, error) {
	data, err := r.rdb.Get(ctx, r.keys.snapshot(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading snapshot %s: %w", key, err)
	}
	return data, nil
}

func (r *SnapshotRepo) Delete(ctx context.Context, key string) error {
	var del *redis.IntCmd
	_, err := r.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		del = p.Del(ctx, r.keys.snapshot(key))
		p.SRem(ctx, r.keys.snapshotIndex(), key)
		return nil
	})
	if err != nil {
		return fmt.Errorf("deleting snapshot %s: %w", key, err)
	}
	if del.Val() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *SnapshotRepo) Keys(ctx context.Context) ([]string, error) {
	keys, err := r.rdb.SMembers(ctx, r.keys.snapshotIndex()).Result()
	if err != nil {
		return nil, fmt.Errorf("listing snapshot keys: %w", err)
	}
	slices.Sort(keys)
	return keys, nil
}
