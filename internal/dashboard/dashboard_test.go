package dashboard_test

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/peterldowns/testy/check"

	"github.com/jensholdgaard/cricket-auctionbot/internal/auction"
	"github.com/jensholdgaard/cricket-auctionbot/internal/budget"
	"github.com/jensholdgaard/cricket-auctionbot/internal/dashboard"
	"github.com/jensholdgaard/cricket-auctionbot/internal/priority"
	"github.com/jensholdgaard/cricket-auctionbot/internal/roster"
	"github.com/jensholdgaard/cricket-auctionbot/internal/rules"
	"github.com/jensholdgaard/cricket-auctionbot/internal/valuation"
)

var purse = budget.Budget{TotalPoints: 1000, PlayersNeeded: 6, MinBasePerPlayer: 50}

func newSession(t *testing.T, rs rules.RuleSet) *auction.Session {
	t.Helper()
	s, err := auction.New("board", purse, rs, auction.WithShuffle(func(int, func(i, j int)) {}))
	if err != nil {
		t.Fatal(err)
	}
	players := []roster.Player{
		{ID: "a", Name: "Arjun", Role: "Batsman", Rating: 90, Base: 50, Category: 2, Status: roster.StatusPending},
		{ID: "b", Name: "Bilal", Role: "Bowler", Rating: 40, Base: 100, Category: 1, Status: roster.StatusPending},
		{ID: "c", Name: "Chris", Role: "Wicket Keeper", Rating: 60, Base: 60, Category: 3, IsWK: true, Status: roster.StatusPending},
		{ID: "d", Name: "Dev", Role: "Batsman", Rating: 30, Base: 50, Category: 5, Status: roster.StatusPending},
	}
	if err := s.Import("test", players); err != nil {
		t.Fatal(err)
	}
	return s
}

func ids(cs []dashboard.Candidate) string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = c.Player.ID
	}
	return strings.Join(out, ",")
}

func TestBuild(t *testing.T) {
	s := newSession(t, nil)
	if err := s.MarkWon("b", 120); err != nil {
		t.Fatal(err)
	}
	s.NextPlayer()
	st := s.Snapshot()

	b := dashboard.Build(st)

	check.Equal(t, "board", b.SessionID)
	check.Equal(t, st.Version, b.Version)
	check.Equal(t, auction.PhaseActive, b.Phase)
	check.Equal(t, dashboard.Counts{Total: 4, Pending: 3, Won: 1, Lost: 0, Queued: 2}, b.Counts)

	check.Equal(t, 120, b.Purse.Spent)
	check.Equal(t, 880, b.Purse.RemainingBudget)
	check.Equal(t, 5, b.Purse.RemainingSlots)
	check.Equal(t, 250, b.Purse.Reserve)
	check.Equal(t, 680, b.Purse.MaxBid)
	check.True(t, b.Purse.GuardrailOK)

	// Chris is the only keeper left; Arjun and Dev share a role.
	check.Equal(t, "c,a,d", ids(b.Candidates))
	check.Equal(t, 6.8, b.Candidates[0].Value)
	check.Equal(t, valuation.TierMustBid, b.Candidates[0].Tier)

	if b.Active == nil {
		t.Fatal("expected an active lot")
	}
	check.Equal(t, "a", b.Active.Player.ID)
	check.Equal(t, priority.Advise(b.Active.Player, st.Ledger()), b.Active.Advice)

	check.Equal(t, 1, len(b.Won))
	check.Equal(t, "b", b.Won[0].ID)
	check.Equal(t, 0, len(b.Compliance.PerRule))
}

func TestBuild_UsesQuotaRules(t *testing.T) {
	s := newSession(t, rules.Default())
	st := s.Snapshot()

	b := dashboard.Build(st)

	check.Equal(t, len(rules.Default()), len(b.Compliance.PerRule))
	check.False(t, b.Compliance.AllMinOK)
	for _, c := range b.Candidates {
		check.Equal(t, valuation.ValueScore(c.Player, st.Players, st.Rules), c.Value)
		check.Equal(t, valuation.TierFromScore(c.Value), c.Tier)
	}
	for i := 1; i < len(b.Candidates); i++ {
		if b.Candidates[i-1].Value < b.Candidates[i].Value {
			t.Errorf("candidates out of order at %d: %v < %v", i, b.Candidates[i-1].Value, b.Candidates[i].Value)
		}
	}
	check.Equal(t, auction.PhaseIdle, b.Phase)
	check.Nil(t, b.Active)
}

func TestBuild_AllDecided(t *testing.T) {
	s := newSession(t, nil)
	for _, id := range []string{"a", "b", "c", "d"} {
		if err := s.MarkLost(id); err != nil {
			t.Fatal(err)
		}
	}

	b := dashboard.Build(s.Snapshot())
	check.Equal(t, 4, b.Counts.Lost)
	check.Equal(t, 0, len(b.Candidates))

	data, err := json.Marshal(b)
	check.Nil(t, err)
	check.True(t, strings.Contains(string(data), `"candidates":[]`))
	check.False(t, strings.Contains(string(data), `"active"`))
}
