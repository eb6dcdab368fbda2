package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/jensholdgaard/cricket-auctionbot/internal/clock"
	"github.com/jensholdgaard/cricket-auctionbot/internal/event"
)

// EventStore is the sqlx implementation of event.Store. IDs come from the
// events.id sequence.
type EventStore struct {
	db    *sqlx.DB
	clock clock.Clock
}

// NewEventStore returns a new EventStore.
func NewEventStore(db *sqlx.DB, clk clock.Clock) *EventStore {
	return &EventStore{db: db, clock: clk}
}

// eventRow is the insert shape of an event. lib/pq sends []byte as bytea,
// so the payload travels as text for the jsonb column.
type eventRow struct {
	AggregateID string     `db:"aggregate_id"`
	Type        event.Type `db:"type"`
	Data        string     `db:"data"`
	Version     int        `db:"version"`
	CreatedAt   time.Time  `db:"created_at"`
}

// Append writes the batch as one multi-row INSERT, so a version clash
// rejects every row.
func (s *EventStore) Append(ctx context.Context, events ...event.Event) error {
	if len(events) == 0 {
		return nil
	}
	now := s.clock.Now().UTC()
	rows := make([]eventRow, len(events))
	for i, e := range events {
		rows[i] = eventRow{
			AggregateID: e.AggregateID,
			Type:        e.Type,
			Data:        payload(e.Data),
			Version:     e.Version,
			CreatedAt:   now,
		}
		if !e.CreatedAt.IsZero() {
			rows[i].CreatedAt = e.CreatedAt.UTC()
		}
	}

	if _, err := s.db.NamedExecContext(ctx, insertEventsNamed, rows); err != nil {
		if IsUniqueViolation(err) {
			return fmt.Errorf("appending %d events: %w", len(rows), event.ErrDuplicateVersion)
		}
		return fmt.Errorf("appending %d events: %w", len(rows), err)
	}
	return nil
}

func (s *EventStore) Load(ctx context.Context, aggregateID string) ([]event.Event, error) {
	var events []event.Event
	if err := s.db.SelectContext(ctx, &events, EventsByAggregateSQL, aggregateID); err != nil {
		return nil, fmt.Errorf("loading events for %s: %w", aggregateID, err)
	}
	return events, nil
}

func (s *EventStore) LoadByType(ctx context.Context, eventType event.Type) ([]event.Event, error) {
	var events []event.Event
	if err := s.db.SelectContext(ctx, &events, EventsByTypeSQL, eventType); err != nil {
		return nil, fmt.Errorf("loading %s events: %w", eventType, err)
	}
	return events, nil
}

// payload maps an absent payload to a JSON null so the NOT NULL column
// accepts it.
func payload(data json.RawMessage) string {
	if len(data) == 0 {
		return "null"
	}
	return string(data)
}
