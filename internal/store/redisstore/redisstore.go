// Package redisstore provides a store.Driver backed by Redis. Snapshots are
// plain string keys; events are JSON entries in per-aggregate and per-type
// lists.
package redisstore

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/jensholdgaard/cricket-auctionbot/internal/clock"
	"github.com/jensholdgaard/cricket-auctionbot/internal/config"
	"github.com/jensholdgaard/cricket-auctionbot/internal/store"
)

func init() {
	store.Register("redis", openRedis)
}

func openRedis(ctx context.Context, cfg config.DatabaseConfig, clk clock.Clock) (*store.Repositories, error) {
	rdb, err := Connect(ctx, cfg.Redis)
	if err != nil {
		return nil, err
	}
	keys := Keyspace(cfg.Redis.KeyPrefix)
	return &store.Repositories{
		Snapshots: NewSnapshotRepo(rdb, keys),
		Events:    NewEventStore(rdb, keys, clk),
		Closer:    rdb,
		Ping:      func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
	}, nil
}

// Connect opens and verifies a Redis connection.
func Connect(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("connecting to redis at %s: %w", cfg.Addr, err)
	}
	return rdb, nil
}

// Keyspace builds every key the driver touches from one prefix.
type Keyspace string

func (k Keyspace) snapshot(key string) string { return string(k) + "snapshot:" + key }
func (k Keyspace) snapshotIndex() string { return string(k) + "snapshots" }
func (k Keyspace) aggregate(id string) string { return string(k) + "events:aggregate:" + id }
func (k Keyspace) eventType(t string) string { return string(k) + "events:type:" + t }
func (k Keyspace) versions(id string) string { return string(k) + "events:versions:" + id }
