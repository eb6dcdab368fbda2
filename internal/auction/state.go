package auction

import (
	"encoding/json"
	"fmt"

	"github.com/jensholdgaard/cricket-auctionbot/internal/budget"
	"github.com/jensholdgaard/cricket-auctionbot/internal/roster"
	"github.com/jensholdgaard/cricket-auctionbot/internal/rules"
)

// Phase is the machine-level state.
type Phase string

const (
	PhaseIdle   Phase = "idle"
	PhaseActive Phase = "active"
)

// State is a detached copy of a session. It is what gets persisted and
// what every read-side component works from.
type State struct {
	ID      string          `json:"id"`
	Players []roster.Player `json:"players"`
	Queue   []string        `json:"queue"`
	Active  string          `json:"active,omitempty"`
	Log     Log             `json:"log"`
	Budget  budget.Budget   `json:"budget"`
	Rules   rules.RuleSet   `json:"rules"`
	Version int             `json:"version"`
}

// Phase reports whether a lot is open.
func (s State) Phase() Phase {
	if s.Active == "" {
		return PhaseIdle
	}
	return PhaseActive
}

// Player looks a player up by id.
func (s State) Player(id string) (roster.Player, bool) {
	for _, p := range s.Players {
		if p.ID == id {
			return p, true
		}
	}
	return roster.Player{}, false
}

// Lot returns the player under the hammer, if any.
func (s State) Lot() (roster.Player, bool) {
	if s.Active == "" {
		return roster.Player{}, false
	}
	return s.Player(s.Active)
}

// Ledger derives the spend view for this state.
func (s State) Ledger() budget.Ledger {
	return budget.NewLedger(s.Budget, s.Players)
}

// Marshal encodes the state for a snapshot store.
func (s State) Marshal() ([]byte, error) {
	return json.Marshal(s)
}

// DecodeState parses and validates a persisted snapshot.
func DecodeState(data []byte) (State, error) {
	var s State
	if err := json.Unmarshal(data, &s); err != nil {
		return State{}, fmt.Errorf("%w: %w", ErrMalformedSnapshot, err)
	}
	if err := s.validate(); err != nil {
		return State{}, err
	}
	return s, nil
}

// validate checks the cross-field invariants a restored state must hold.
func (s State) validate() error {
	bad := func(format string, args ...any) error {
		return fmt.Errorf("%w: %s", ErrMalformedSnapshot, fmt.Sprintf(format, args...))
	}

	if s.ID == "" {
		return bad("missing id")
	}
	if err := s.Budget.Validate(); err != nil {
		return bad("%v", err)
	}
	if err := s.Rules.Validate(); err != nil {
		return bad("%v", err)
	}

	byID := make(map[string]roster.Player, len(s.Players))
	for _, p := range s.Players {
		if p.ID == "" {
			return bad("player %q has no id", p.Name)
		}
		if _, dup := byID[p.ID]; dup {
			return bad("duplicate player id %q", p.ID)
		}
		if err := checkPlayer(p); err != nil {
			return bad("%v", err)
		}
		byID[p.ID] = p
	}

	queued := make(map[string]struct{}, len(s.Queue))
	for _, id := range s.Queue {
		p, ok := byID[id]
		if !ok || !p.IsPending() {
			return bad("queued player %q is not pending", id)
		}
		if _, dup := queued[id]; dup {
			return bad("player %q queued twice", id)
		}
		queued[id] = struct{}{}
	}

	if s.Active != "" {
		if p, ok := byID[s.Active]; !ok || !p.IsPending() {
			return bad("active player %q is not pending", s.Active)
		}
	}

	logged := make(map[string]struct{}, len(s.Log))
	for i, d := range s.Log {
		p, ok := byID[d.Subject()]
		if !ok {
			return bad("log entry %d: unknown player %q", i, d.Subject())
		}
		if _, dup := logged[p.ID]; dup {
			return bad("log entry %d: player %q logged twice", i, p.ID)
		}
		logged[p.ID] = struct{}{}
		switch d := d.(type) {
		case Won:
			if !p.IsWon() || *p.FinalBid != d.Bid {
				return bad("log entry %d: player %q is not won at %d", i, p.ID, d.Bid)
			}
		case Lost:
			if p.Status != roster.StatusLost {
				return bad("log entry %d: player %q is not lost", i, p.ID)
			}
		}
	}
	return nil
}

// checkPlayer enforces that a final bid exists exactly when the player is won
// and never undercuts the base.
func checkPlayer(p roster.Player) error {
	switch p.Status {
	case roster.StatusPending, roster.StatusLost:
		if p.FinalBid != nil {
			return fmt.Errorf("player %q is %s but has a final bid", p.ID, p.Status)
		}
	case roster.StatusWon:
		if p.FinalBid == nil {
			return fmt.Errorf("player %q is won without a final bid", p.ID)
		}
		if *p.FinalBid < p.Base {
			return fmt.Errorf("player %q won at %d below base %d", p.ID, *p.FinalBid, p.Base)
		}
	default:
		return fmt.Errorf("player %q has unknown status %q", p.ID, p.Status)
	}
	return nil
}
