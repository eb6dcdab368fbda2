package postgres

import (
	"errors"

	"github.com/lib/pq"
)

// Statements shared by this driver and the database/sql driver in entstore.
// Both run against the schema in migrations/.
const (
	SelectSnapshotSQL = `SELECT data FROM snapshots WHERE key = $1`
	DeleteSnapshotSQL = `DELETE FROM snapshots WHERE key = $1`
	SnapshotKeysSQL   = `SELECT key FROM snapshots ORDER BY key`
	InsertEventSQL    = `INSERT INTO events (aggregate_id, type, data, version, created_at) VALUES ($1, $2, $3, $4, $5)`

	UpsertSnapshotSQL = `INSERT INTO snapshots (key, data, updated_at) VALUES ($1, $2, $3)
		ON CONFLICT (key) DO UPDATE SET data = EXCLUDED.data, updated_at = EXCLUDED.updated_at`

	EventsByAggregateSQL = `SELECT id, aggregate_id, type, data, version, created_at
		FROM events WHERE aggregate_id = $1 ORDER BY version`

	EventsByTypeSQL = `SELECT id, aggregate_id, type, data, version, created_at
		FROM events WHERE type = $1 ORDER BY created_at, id`
)

// insertEventsNamed is the batch form of InsertEventSQL; sqlx expands the
// VALUES tuple once per row.
const insertEventsNamed = `INSERT INTO events (aggregate_id, type, data, version, created_at)
	VALUES (:aggregate_id, :type, :data, :version, :created_at)`

// uniqueViolation is the Postgres SQLSTATE for a unique constraint failure.
const uniqueViolation pq.ErrorCode = "23505"

// IsUniqueViolation reports whether err is a Postgres unique constraint
// failure, such as a second event with the same aggregate version.
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}
