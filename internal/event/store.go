package event

import (
	"context"
	"errors"
)

// ErrDuplicateVersion is returned by Append when an aggregate already holds
// an event with one of the given versions. Nothing from the batch is stored.
var ErrDuplicateVersion = errors.New("duplicate event version")

// Store is the append-only audit log behind a session. Implementations
// assign IDs and stamp a zero CreatedAt with their own clock.
type Store interface {
	// Append stores the events of one batch together or not at all.
	Append(ctx context.Context, events ...Event) error
	// Load returns an aggregate's events in version order.
	Load(ctx context.Context, aggregateID string) ([]Event, error)
	// LoadByType returns every event of one type, oldest first.
	LoadByType(ctx context.Context, eventType Type) ([]Event, error)
}
