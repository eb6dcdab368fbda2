package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/jensholdgaard/cricket-auctionbot/internal/clock"
	"github.com/jensholdgaard/cricket-auctionbot/internal/config"
	"github.com/jensholdgaard/cricket-auctionbot/internal/event"
)

// ErrUnknownDriver is returned by Open for a driver name nothing registered.
var ErrUnknownDriver = errors.New("unknown store driver")

// Repositories is what a driver hands back: the session snapshot store,
// the audit log and the hooks main needs for health and shutdown.
type Repositories struct {
	Snapshots SnapshotRepository
	Events    event.Store
	// Closer releases the driver's connection. Nil for in-process drivers.
	Closer io.Closer
	// Ping backs the store readiness check.
	Ping func(ctx context.Context) error
}

// Close releases the driver's resources, if any.
func (r *Repositories) Close() error {
	if r.Closer == nil {
		return nil
	}
	return r.Closer.Close()
}

// Driver opens a backend and returns its repositories.
type Driver func(ctx context.Context, cfg config.DatabaseConfig, clk clock.Clock) (*Repositories, error)

var (
	driversMu sync.RWMutex
	drivers   = map[string]Driver{}
)

// Register makes a driver available to Open under name. Driver packages
// call it from init; registering a name twice or a nil driver panics.
func Register(name string, d Driver) {
	driversMu.Lock()
	defer driversMu.Unlock()
	if d == nil {
		panic("store: Register driver is nil")
	}
	if _, dup := drivers[name]; dup {
		panic("store: Register called twice for driver " + name)
	}
	drivers[name] = d
}

// Drivers returns the registered driver names, sorted.
func Drivers() []string {
	driversMu.RLock()
	defer driversMu.RUnlock()
	return slices.Sorted(maps.Keys(drivers))
}

// Open runs the driver named by cfg.Driver.
func Open(ctx context.Context, cfg config.DatabaseConfig, clk clock.Clock) (*Repositories, error) {
	driversMu.RLock()
	d, ok := drivers[cfg.Driver]
	driversMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w %q (registered: %s)", ErrUnknownDriver, cfg.Driver, strings.Join(Drivers(), ", "))
	}
	repos, err := d(ctx, cfg, clk)
	if err != nil {
		return nil, fmt.Errorf("opening %s store: %w", cfg.Driver, err)
	}
	return repos, nil
}
