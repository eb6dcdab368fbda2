// Package memstore provides an in-process store.Driver. State does not
// survive a restart; it backs local runs and tests.
package memstore

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"sync"

	"github.com/jensholdgaard/cricket-auctionbot/internal/clock"
	"github.com/jensholdgaard/cricket-auctionbot/internal/config"
	"github.com/jensholdgaard/cricket-auctionbot/internal/event"
	"github.com/jensholdgaard/cricket-auctionbot/internal/store"
)

func init() {
	store.Register("memory", openMemory)
}

func openMemory(_ context.Context, _ config.DatabaseConfig, clk clock.Clock) (*store.Repositories, error) {
	return &store.Repositories{
		Snapshots: NewSnapshots(),
		Events:    NewEvents(clk),
		Ping:      func(context.Context) error { return nil },
	}, nil
}

// Snapshots implements store.SnapshotRepository over a map.
type Snapshots struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewSnapshots returns an empty Snapshots.
func NewSnapshots() *Snapshots {
	return &Snapshots{data: map[string][]byte{}}
}

func (s *Snapshots) Save(_ context.Context, key string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = slices.Clone(data)
	return nil
}

func (s *Snapshots) Load(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.data[key]
	if !ok {
		return nil, store.ErrNotFound
	}
	return slices.Clone(data), nil
}

func (s *Snapshots) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data[key]; !ok {
		return store.ErrNotFound
	}
	delete(s.data, key)
	return nil
}

func (s *Snapshots) Keys(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.data))
	for k := range s.data {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys, nil
}

// Events implements event.Store over a slice.
type Events struct {
	mu     sync.RWMutex
	events []event.Event
	clock  clock.Clock
}

// NewEvents returns an empty Events.
func NewEvents(clk clock.Clock) *Events {
	return &Events{clock: clk}
}

// Append stores the batch, assigning sequential IDs and stamping a zero
// CreatedAt with the store's clock. A version already held by the
// aggregate, in the store or earlier in the batch, rejects the whole batch.
func (s *Events) Append(_ context.Context, events ...event.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	type aggVersion struct {
		id      string
		version int
	}
	seen := make(map[aggVersion]bool, len(events))
	for _, e := range events {
		seen[aggVersion{e.AggregateID, e.Version}] = false
	}
	for _, e := range s.events {
		if _, ok := seen[aggVersion{e.AggregateID, e.Version}]; ok {
			return fmt.Errorf("appending %s v%d: %w", e.AggregateID, e.Version, event.ErrDuplicateVersion)
		}
	}
	for _, e := range events {
		k := aggVersion{e.AggregateID, e.Version}
		if seen[k] {
			return fmt.Errorf("appending %s v%d: %w", e.AggregateID, e.Version, event.ErrDuplicateVersion)
		}
		seen[k] = true
	}

	now := s.clock.Now()
	for _, e := range events {
		e.ID = strconv.Itoa(len(s.events) + 1)
		if e.CreatedAt.IsZero() {
			e.CreatedAt = now
		}
		s.events = append(s.events, e)
	}
	return nil
}

func (s *Events) Load(_ context.Context, aggregateID string) ([]event.Event, error) {
	out := s.filter(func(e event.Event) bool { return e.AggregateID == aggregateID })
	slices.SortStableFunc(out, func(a, b event.Event) int { return a.Version - b.Version })
	return out, nil
}

func (s *Events) LoadByType(_ context.Context, eventType event.Type) ([]event.Event, error) {
	return s.filter(func(e event.Event) bool { return e.Type == eventType }), nil
}

func (s *Events) filter(keep func(event.Event) bool) []event.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []event.Event
	for _, e := range s.events {
		if keep(e) {
			out = append(out, e)
		}
	}
	return out
}
