package event

import (
	"encoding/json"
	"time"
)

// Type identifies an event kind.
type Type string

const (
	RosterImported Type = "roster.imported"
	QueueShuffled  Type = "queue.shuffled"

	LotOpened      Type = "lot.opened"
	LotWon         Type = "lot.won"
	LotLost        Type = "lot.lost"
	DecisionUndone Type = "decision.undone"

	SettingsApplied Type = "settings.applied"
	RulesApplied    Type = "rules.applied"
)

// Event represents a single domain event.
type Event struct {
	ID          string          `json:"id" db:"id"`
	AggregateID string          `json:"aggregate_id" db:"aggregate_id"`
	Type        Type            `json:"type" db:"type"`
	Data        json.RawMessage `json:"data" db:"data"`
	Version     int             `json:"version" db:"version"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
}

// RosterImportedData is the payload for RosterImported events.
type RosterImportedData struct {
	Source  string `json:"source"`
	Players int    `json:"players"`
}

// QueueShuffledData is the payload for QueueShuffled events.
type QueueShuffledData struct {
	Queued int `json:"queued"`
}

// LotOpenedData is the payload for LotOpened events.
type LotOpenedData struct {
	PlayerID string `json:"player_id"`
	Name     string `json:"name"`
}

// LotWonData is the payload for LotWon events.
type LotWonData struct {
	PlayerID string `json:"player_id"`
	Bid      int    `json:"bid"`
}

// LotLostData is the payload for LotLost events.
type LotLostData struct {
	PlayerID string `json:"player_id"`
}

// DecisionUndoneData is the payload for DecisionUndone events.
// Bid is zero when the reverted decision was a loss.
type DecisionUndoneData struct {
	PlayerID string `json:"player_id"`
	Kind     string `json:"kind"`
	Bid      int    `json:"bid,omitempty"`
}

// SettingsAppliedData is the payload for SettingsApplied events.
type SettingsAppliedData struct {
	TotalPoints      int `json:"total_points"`
	PlayersNeeded    int `json:"players_needed"`
	MinBasePerPlayer int `json:"min_base_per_player"`
}

// RulesAppliedData is the payload for RulesApplied events.
type RulesAppliedData struct {
	Rules int `json:"rules"`
}
