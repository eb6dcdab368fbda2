package redisstore

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/jensholdgaard/cricket-auctionbot/internal/clock"
	"github.com/jensholdgaard/cricket-auctionbot/internal/event"
)

// appendScript pushes every event or none. KEYS[1] is the aggregate list,
// KEYS[2] the aggregate's version set and KEYS[2+i] the type list of event i.
// ARGV holds version and payload pairs.
var appendScript = redis.NewScript(`
	local n = #ARGV / 2
	local seen = {}
	for i = 1, n do
		local v = ARGV[2*i-1]
		if seen[v] or redis.call('SISMEMBER', KEYS[2], v) == 1 then
			return redis.error_reply('duplicate version ' .. v)
		end
		seen[v] = true
	end
	for i = 1, n do
		redis.call('SADD', KEYS[2], ARGV[2*i-1])
		redis.call('RPUSH', KEYS[1], ARGV[2*i])
		redis.call('RPUSH', KEYS[2+i], ARGV[2*i])
	end
	return n
`)

// EventStore implements event.Store on Redis lists.
type EventStore struct {
	rdb   *redis.Client
	keys  Keyspace
	clock clock.Clock
}

// NewEventStore returns a new EventStore.
func NewEventStore(rdb *redis.Client, keys Keyspace, clk clock.Clock) *EventStore {
	return &EventStore{rdb: rdb, keys: keys, clock: clk}
}

// Append stores events atomically per aggregate. IDs are random UUIDs and a
// zero CreatedAt is stamped with the store's clock.
func (s *EventStore) Append(ctx context.Context, events ...event.Event) error {
	byAggregate := map[string][]event.Event{}
	var order []string
	for _, e := range events {
		if _, ok := byAggregate[e.AggregateID]; !ok {
			order = append(order, e.AggregateID)
		}
		byAggregate[e.AggregateID] = append(byAggregate[e.AggregateID], e)
	}

	for _, id := range order {
		if err := s.appendAggregate(ctx, id, byAggregate[id]); err != nil {
			return err
		}
	}
	return nil
}

func (s *EventStore) appendAggregate(ctx context.Context, id string, events []event.Event) error {
	keys := []string{s.keys.aggregate(id), s.keys.versions(id)}
	args := make([]any, 0, 2*len(events))
	for _, e := range events {
		e.ID = uuid.NewString()
		if e.CreatedAt.IsZero() {
			e.CreatedAt = s.clock.Now()
		}
		payload, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("encoding event (aggregate=%s, version=%d): %w", id, e.Version, err)
		}
		keys = append(keys, s.keys.eventType(string(e.Type)))
		args = append(args, e.Version, payload)
	}

	if err := appendScript.Run(ctx, s.rdb, keys, args...).Err(); err != nil {
		if strings.Contains(err.Error(), "duplicate version") {
			return fmt.Errorf("appending events (aggregate=%s): %w", id, event.ErrDuplicateVersion)
		}
		return fmt.Errorf("appending events (aggregate=%s): %w", id, err)
	}
	return nil
}

func (s *EventStore) Load(ctx context.Context, aggregateID string) ([]event.Event, error) {
	events, err := s.loadList(ctx, s.keys.aggregate(aggregateID))
	if err != nil {
		return nil, fmt.Errorf("loading events: %w", err)
	}
	slices.SortStableFunc(events, func(a, b event.Event) int { return a.Version - b.Version })
	return events, nil
}

func (s *EventStore) LoadByType(ctx context.Context, eventType event.Type) ([]event.Event, error) {
	events, err := s.loadList(ctx, s.keys.eventType(string(eventType)))
	if err != nil {
		return nil, fmt.Errorf("loading events by type: %w", err)
	}
	return events, nil
}

func (s *EventStore) loadList(ctx context.Context, key string) ([]event.Event, error) {
	raw, err := s.rdb.LRange(ctx, key, 0, -1).Result()
	if err != nil {
		return nil, err
	}
	events := make([]event.Event, 0, len(raw))
	for _, r := range raw {
		var e event.Event
		if err := json.Unmarshal([]byte(r), &e); err != nil {
			return nil, fmt.Errorf("decoding event: %w", err)
		}
		events = append(events, e)
	}
	return events, nil
}
