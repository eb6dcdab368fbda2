package auction

import (
	"encoding/json"
	"fmt"
)

// Decision is a committed outcome that Undo can reverse. The set is closed:
// Won and Lost are the only implementations.
type Decision interface {
	isDecision()
	Subject() string
}

// Won records a player bought at Bid.
type Won struct {
	PlayerID string
	Bid      int
}

// Lost records a player passed on.
type Lost struct {
	PlayerID string
}

func (Won) isDecision()  {}
func (Lost) isDecision() {}

// Subject returns the player the decision is about.
func (w Won) Subject() string { return w.PlayerID }

// Subject returns the player the decision is about.
func (l Lost) Subject() string { return l.PlayerID }

const (
	kindWon  = "won"
	kindLost = "lost"
)

func kindOf(d Decision) string {
	switch d.(type) {
	case Won:
		return kindWon
	case Lost:
		return kindLost
	}
	return ""
}

// decisionRecord is the wire form of a Decision.
type decisionRecord struct {
	Type     string `json:"type"`
	PlayerID string `json:"player_id"`
	Bid      int    `json:"bid,omitempty"`
}

// Log is the undo stack, oldest first.
type Log []Decision

// MarshalJSON encodes each entry as {type, player_id, bid}.
func (l Log) MarshalJSON() ([]byte, error) {
	recs := make([]decisionRecord, 0, len(l))
	for _, d := range l {
		switch d := d.(type) {
		case Won:
			recs = append(recs, decisionRecord{Type: kindWon, PlayerID: d.PlayerID, Bid: d.Bid})
		case Lost:
			recs = append(recs, decisionRecord{Type: kindLost, PlayerID: d.PlayerID})
		default:
			return nil, fmt.Errorf("unknown decision %T", d)
		}
	}
	return json.Marshal(recs)
}

// UnmarshalJSON decodes the wire form, rejecting unknown entry types.
func (l *Log) UnmarshalJSON(data []byte) error {
	var recs []decisionRecord
	if err := json.Unmarshal(data, &recs); err != nil {
		return err
	}
	out := make(Log, 0, len(recs))
	for i, r := range recs {
		switch r.Type {
		case kindWon:
			out = append(out, Won{PlayerID: r.PlayerID, Bid: r.Bid})
		case kindLost:
			out = append(out, Lost{PlayerID: r.PlayerID})
		default:
			return fmt.Errorf("log entry %d: unknown decision type %q", i, r.Type)
		}
	}
	*l = out
	return nil
}
