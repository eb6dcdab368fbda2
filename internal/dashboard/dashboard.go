// Package dashboard assembles the read-only board shown to operators:
// purse position, quota compliance and bidding advice for every player
// still on the table.
package dashboard

import (
	"cmp"
	"slices"

	"github.com/jensholdgaard/cricket-auctionbot/internal/auction"
	"github.com/jensholdgaard/cricket-auctionbot/internal/budget"
	"github.com/jensholdgaard/cricket-auctionbot/internal/priority"
	"github.com/jensholdgaard/cricket-auctionbot/internal/roster"
	"github.com/jensholdgaard/cricket-auctionbot/internal/rules"
	"github.com/jensholdgaard/cricket-auctionbot/internal/valuation"
)

// Purse is the ledger together with its derived figures.
type Purse struct {
	budget.Ledger
	RemainingBudget int  `json:"remaining_budget"`
	RemainingSlots  int  `json:"remaining_slots"`
	Reserve         int  `json:"reserve"`
	MaxBid          int  `json:"max_bid"`
	GuardrailOK     bool `json:"guardrail_ok"`
}

// NewPurse derives the purse figures from l.
func NewPurse(l budget.Ledger) Purse {
	return Purse{
		Ledger:          l,
		RemainingBudget: l.RemainingBudget(),
		RemainingSlots:  l.RemainingSlots(),
		Reserve:         l.Reserve(l.RemainingSlots()),
		MaxBid:          l.MaxBid(),
		GuardrailOK:     l.GuardrailOK(0),
	}
}

// Candidate is a pending player with its valuation and advice.
type Candidate struct {
	Player roster.Player   `json:"player"`
	Value  float64         `json:"value"`
	Tier   valuation.Tier  `json:"tier"`
	Advice priority.Advice `json:"advice"`
}

// Counts tallies players by status.
type Counts struct {
	Total   int `json:"total"`
	Pending int `json:"pending"`
	Won     int `json:"won"`
	Lost    int `json:"lost"`
	Queued  int `json:"queued"`
}

// Board is everything an operator needs for the next decision.
type Board struct {
	SessionID  string          `json:"session_id"`
	Version    int             `json:"version"`
	Phase      auction.Phase   `json:"phase"`
	Purse      Purse           `json:"purse"`
	Compliance rules.Report    `json:"compliance"`
	Active     *Candidate      `json:"active,omitempty"`
	Candidates []Candidate     `json:"candidates"`
	Won        []roster.Player `json:"won"`
	Counts     Counts          `json:"counts"`
}

// Build computes the board for st. Candidates are ordered by value, best
// first, with ties broken by tier and then name.
func Build(st auction.State) Board {
	ledger := st.Ledger()
	b := Board{
		SessionID:  st.ID,
		Version:    st.Version,
		Phase:      st.Phase(),
		Purse:      NewPurse(ledger),
		Compliance: rules.Evaluate(st.Players, st.Rules),
		Candidates: []Candidate{},
		Won:        []roster.Player{},
		Counts:     Counts{Total: len(st.Players), Queued: len(st.Queue)},
	}

	for _, p := range st.Players {
		switch p.Status {
		case roster.StatusWon:
			b.Counts.Won++
			b.Won = append(b.Won, p)
		case roster.StatusLost:
			b.Counts.Lost++
		default:
			b.Counts.Pending++
			c := candidate(p, st, ledger)
			b.Candidates = append(b.Candidates, c)
			if p.ID == st.Active {
				b.Active = &c
			}
		}
	}

	slices.SortStableFunc(b.Candidates, func(x, y Candidate) int {
		return cmp.Or(
			cmp.Compare(y.Value, x.Value),
			cmp.Compare(x.Tier.Rank, y.Tier.Rank),
			cmp.Compare(x.Player.Name, y.Player.Name),
		)
	})
	return b
}

func candidate(p roster.Player, st auction.State, l budget.Ledger) Candidate {
	v := valuation.ValueScore(p, st.Players, st.Rules)
	return Candidate{
		Player: p,
		Value:  v,
		Tier:   valuation.TierFromScore(v),
		Advice: priority.Advise(p, l),
	}
}
