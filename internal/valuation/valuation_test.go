package valuation_test

import (
	"testing"

	"github.com/peterldowns/testy/check"

	"github.com/jensholdgaard/cricket-auctionbot/internal/roster"
	"github.com/jensholdgaard/cricket-auctionbot/internal/rules"
	"github.com/jensholdgaard/cricket-auctionbot/internal/valuation"
)

func player(id, role string, rating float64, base int) roster.Player {
	return roster.Player{ID: id, Name: id, Role: role, Rating: rating, Base: base, Status: roster.StatusPending}
}

func TestTierFromScore(t *testing.T) {
	tests := []struct {
		score float64
		want  string
	}{
		{3.0, "Must Bid"},
		{2.2, "Must Bid"},
		{2.199999, "Strong"},
		{1.8, "Strong"},
		{1.79, "Consider"},
		{1.4, "Consider"},
		{1.39, "Pass"},
		{0, "Pass"},
		{-4, "Pass"},
	}

	for _, tt := range tests {
		check.Equal(t, tt.want, valuation.TierFromScore(tt.score).Label)
	}
}

func TestValueScore_CoreTerm(t *testing.T) {
	// 80 / 100^0.85 = 80 / 50.1187... = 1.596... -> 1.6
	p := player("p", "Batsman", 80, 100)
	other := player("q", "Batsman", 10, 100)

	got := valuation.ValueScore(p, []roster.Player{p, other}, nil)
	check.Equal(t, 1.6, got)
}

func TestValueScore_ZeroBaseTreatedAsOne(t *testing.T) {
	p := player("p", "Batsman", 2.25, 0)
	other := player("q", "Batsman", 10, 100)

	got := valuation.ValueScore(p, []roster.Player{p, other}, nil)
	check.Equal(t, 2.3, got)
}

func TestValueScore_Scarcity(t *testing.T) {
	p := player("p", "Bowler", 80, 100)
	lostBowler := player("q", "bowler", 50, 50)
	lostBowler.Status = roster.StatusLost
	batter := player("r", "Batsman", 50, 50)

	got := valuation.ValueScore(p, []roster.Player{p, lostBowler, batter}, nil)
	check.Equal(t, 6.6, got)

	pendingBowler := player("s", "BOWLER ", 50, 50)
	got = valuation.ValueScore(p, []roster.Player{p, pendingBowler}, nil)
	check.Equal(t, 1.6, got)
}

func TestValueScore_UnmetQuotaBonus(t *testing.T) {
	keeper := player("k", "Wicket Keeper", 80, 100)
	keeper.IsWK = true
	keeper.BattingHand = roster.HandLeft
	rival := player("r", "Wicket Keeper", 40, 100)

	isWK, left, bowler := true, "Left", "Bowler"
	one := 1
	rs := rules.RuleSet{
		{IsWK: &isWK, MinCount: 1},
		{BattingHand: &left, MinCount: 1},
		{Role: &bowler, MinCount: 1},
		{IsWK: &isWK, MinCount: 0, MaxCount: &one},
	}

	// Matches two unmet minimum rules: 1.6 + 8 + 8.
	got := valuation.ValueScore(keeper, []roster.Player{keeper, rival}, rs)
	check.Equal(t, 17.6, got)

	// Once a left-handed keeper is won both rules are met.
	bid := 120
	wonKeeper := player("w", "Wicket Keeper", 50, 100)
	wonKeeper.IsWK = true
	wonKeeper.BattingHand = roster.HandLeft
	wonKeeper.Status = roster.StatusWon
	wonKeeper.FinalBid = &bid

	got = valuation.ValueScore(keeper, []roster.Player{keeper, rival, wonKeeper}, rs)
	check.Equal(t, 1.6, got)
}
