package storetest

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	_ "github.com/lib/pq" // postgres driver
	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/jensholdgaard/cricket-auctionbot/internal/config"
)

// Containers are started once per test binary and removed by the
// testcontainers reaper when it exits.
var (
	pgOnce sync.Once
	pgURL  *url.URL
	pgErr  error
	pgSeq  atomic.Int64

	redisOnce sync.Once
	redisAddr string
	redisErr  error
	redisSeq  atomic.Int64
)

// Postgres creates an empty database in the shared Postgres container and
// returns a config that opens it with the named driver. It skips the test
// in -short mode.
func Postgres(t *testing.T, driver string) config.DatabaseConfig {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	ctx := context.Background()

	pgOnce.Do(func() {
		ctr, err := tcpostgres.Run(ctx, "postgres:16-alpine",
			tcpostgres.WithDatabase("auctionbot"),
			tcpostgres.WithUsername("test"),
			tcpostgres.WithPassword("test"),
			testcontainers.WithWaitStrategy(
				wait.ForLog("database system is ready to accept connections").
					WithOccurrence(2).
					WithStartupTimeout(30*time.Second),
			),
		)
		if err != nil {
			pgErr = fmt.Errorf("starting postgres container: %w", err)
			return
		}
		dsn, err := ctr.ConnectionString(ctx, "sslmode=disable")
		if err != nil {
			pgErr = fmt.Errorf("getting connection string: %w", err)
			return
		}
		pgURL, pgErr = url.Parse(dsn)
	})
	if pgErr != nil {
		t.Fatal(pgErr)
	}

	admin, err := sql.Open("postgres", pgURL.String())
	if err != nil {
		t.Fatalf("opening admin connection: %v", err)
	}
	defer admin.Close()

	name := fmt.Sprintf("test_%d", pgSeq.Add(1))
	if _, err := admin.ExecContext(ctx, "CREATE DATABASE "+name); err != nil {
		t.Fatalf("creating database %s: %v", name, err)
	}

	port, err := strconv.Atoi(pgURL.Port())
	if err != nil {
		t.Fatalf("parsing postgres port: %v", err)
	}
	password, _ := pgURL.User.Password()
	return config.DatabaseConfig{
		Host:        pgURL.Hostname(),
		Port:        port,
		User:        pgURL.User.Username(),
		Password:    password,
		DBName:      name,
		SSLMode:     "disable",
		Driver:      driver,
		AutoMigrate: true,
	}
}

// Redis returns a config for the redis driver pointing at the shared
// container, with a key prefix no other test in the binary uses. It skips
// the test in -short mode.
func Redis(t *testing.T) config.DatabaseConfig {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	redisOnce.Do(func() {
		ctx := context.Background()
		ctr, err := tcredis.Run(ctx, "redis:7-alpine")
		if err != nil {
			redisErr = fmt.Errorf("starting redis container: %w", err)
			return
		}
		uri, err := ctr.ConnectionString(ctx)
		if err != nil {
			redisErr = fmt.Errorf("getting connection string: %w", err)
			return
		}
		opts, err := redis.ParseURL(uri)
		if err != nil {
			redisErr = fmt.Errorf("parsing connection string: %w", err)
			return
		}
		redisAddr = opts.Addr
	})
	if redisErr != nil {
		t.Fatal(redisErr)
	}
	return config.DatabaseConfig{
		Driver: "redis",
		Redis: config.RedisConfig{
			Addr:      redisAddr,
			KeyPrefix: fmt.Sprintf("test%d:", redisSeq.Add(1)),
		},
	}
}
