package entstore

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jensholdgaard/cricket-auctionbot/internal/clock"
	"github.com/jensholdgaard/cricket-auctionbot/internal/event"
	"github.com/jensholdgaard/cricket-auctionbot/internal/store/postgres"
)

// EventStore is the database/sql implementation of event.Store.
type EventStore struct {
	db    *sql.DB
	clock clock.Clock
}

// NewEventStore returns a new EventStore.
func NewEventStore(db *sql.DB, clk clock.Clock) *EventStore {
	return &EventStore{db: db, clock: clk}
}

// Append inserts the batch row by row inside one transaction.
func (s *EventStore) Append(ctx context.Context, events ...event.Event) (err error) {
	if len(events) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	now := s.clock.Now().UTC()
	for _, e := range events {
		at := now
		if !e.CreatedAt.IsZero() {
			at = e.CreatedAt.UTC()
		}
		data := "null"
		if len(e.Data) > 0 {
			data = string(e.Data)
		}
		if _, err = tx.ExecContext(ctx, postgres.InsertEventSQL, e.AggregateID, e.Type, data, e.Version, at); err != nil {
			if postgres.IsUniqueViolation(err) {
				err = event.ErrDuplicateVersion
			}
			return fmt.Errorf("inserting %s v%d: %w", e.AggregateID, e.Version, err)
		}
	}
	return tx.Commit()
}

func (s *EventStore) Load(ctx context.Context, aggregateID string) ([]event.Event, error) {
	return s.query(ctx, postgres.EventsByAggregateSQL, aggregateID)
}

func (s *EventStore) LoadByType(ctx context.Context, eventType event.Type) ([]event.Event, error) {
	return s.query(ctx, postgres.EventsByTypeSQL, eventType)
}

func (s *EventStore) query(ctx context.Context, q string, arg any) ([]event.Event, error) {
	rows, err := s.db.QueryContext(ctx, q, arg)
	if err != nil {
		return nil, fmt.Errorf("querying events: %w", err)
	}
	defer rows.Close()

	var events []event.Event
	for rows.Next() {
		var e event.Event
		if err := rows.Scan(&e.ID, &e.AggregateID, &e.Type, &e.Data, &e.Version, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning event: %w", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading events: %w", err)
	}
	return events, nil
}
