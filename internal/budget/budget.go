// Package budget tracks spend against the auction purse and enforces the
// guardrail that keeps enough points for the remaining mandatory slots.
package budget

import (
	"errors"
	"fmt"

	"github.com/jensholdgaard/cricket-auctionbot/internal/roster"
)

// Errors returned by budget checks.
var (
	ErrGuardrailViolation = errors.New("bid breaks the budget guardrail")
	ErrInvalidBudget      = errors.New("invalid budget")
)

// Budget holds the purse totals for a session. MinBasePerPlayer is the
// single source for the per-slot reserve.
type Budget struct {
	TotalPoints      int `json:"total_points" yaml:"total_points"`
	PlayersNeeded    int `json:"players_needed" yaml:"players_needed"`
	MinBasePerPlayer int `json:"min_base_per_player" yaml:"min_base_per_player"`
}

// Validate checks the totals are usable.
func (b Budget) Validate() error {
	switch {
	case b.TotalPoints <= 0:
		return fmt.Errorf("%w: total_points must be positive, got %d", ErrInvalidBudget, b.TotalPoints)
	case b.PlayersNeeded <= 0:
		return fmt.Errorf("%w: players_needed must be positive, got %d", ErrInvalidBudget, b.PlayersNeeded)
	case b.MinBasePerPlayer < 0:
		return fmt.Errorf("%w: min_base_per_player must not be negative, got %d", ErrInvalidBudget, b.MinBasePerPlayer)
	}
	return nil
}

// Ledger is a read-only view of spend derived from a player snapshot.
type Ledger struct {
	Budget Budget `json:"budget"`
	Spent  int    `json:"spent"`
	Won    int    `json:"won"`
}

// NewLedger sums the final bids of every won player.
func NewLedger(b Budget, players []roster.Player) Ledger {
	l := Ledger{Budget: b}
	for _, p := range players {
		if !p.IsWon() {
			continue
		}
		l.Won++
		if p.FinalBid != nil {
			l.Spent += *p.FinalBid
		}
	}
	return l
}

// RemainingBudget is the unspent purse, never below zero.
func (l Ledger) RemainingBudget() int {
	return max(0, l.Budget.TotalPoints-l.Spent)
}

// RemainingSlots is the number of mandatory slots still open.
func (l Ledger) RemainingSlots() int {
	return max(0, l.Budget.PlayersNeeded-l.Won)
}

// Reserve is the minimum spend needed to fill slots at base price.
func (l Ledger) Reserve(slots int) int {
	return max(0, slots) * l.Budget.MinBasePerPlayer
}

// MaxBid is the largest spend the guardrail allows right now.
func (l Ledger) MaxBid() int {
	return max(0, l.RemainingBudget()-l.Reserve(l.RemainingSlots()-1))
}

// GuardrailOK reports whether committing spend still leaves enough for the
// remaining mandatory slots. A nonzero spend fills one slot; a zero spend
// checks the current position.
func (l Ledger) GuardrailOK(spend int) bool {
	slots := l.RemainingSlots()
	if spend != 0 {
		slots = max(0, slots-1)
	}
	return l.RemainingBudget()-spend >= l.Reserve(slots)
}

// Check is GuardrailOK returning a descriptive error.
func (l Ledger) Check(spend int) error {
	if l.GuardrailOK(spend) {
		return nil
	}
	slots := l.RemainingSlots()
	if spend != 0 {
		slots = max(0, slots-1)
	}
	return fmt.Errorf("%w: spending %d leaves %d for %d slots needing %d",
		ErrGuardrailViolation, spend, l.RemainingBudget()-spend, slots, l.Reserve(slots))
}

// Patch is a partial set of totals; nil fields keep the current value.
type Patch struct {
	TotalPoints      *int `json:"totalPoints,omitempty"`
	PlayersNeeded    *int `json:"playersNeeded,omitempty"`
	MinBasePerPlayer *int `json:"minBasePerPlayer,omitempty"`
}

// Empty reports whether the patch changes nothing.
func (p Patch) Empty() bool {
	return p.TotalPoints == nil && p.PlayersNeeded == nil && p.MinBasePerPlayer == nil
}

// Apply returns b with the present fields of p overlaid.
func (p Patch) Apply(b Budget) Budget {
	if p.TotalPoints != nil {
		b.TotalPoints = *p.TotalPoints
	}
	if p.PlayersNeeded != nil {
		b.PlayersNeeded = *p.PlayersNeeded
	}
	if p.MinBasePerPlayer != nil {
		b.MinBasePerPlayer = *p.MinBasePerPlayer
	}
	return b
}
