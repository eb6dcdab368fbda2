// Package priority holds the advisory bid heuristics: a priority score,
// a suggested price cap and a win-probability estimate. None of these
// gate a commit; the budget guardrail does that.
package priority

import (
	"github.com/jensholdgaard/cricket-auctionbot/internal/roster"
)

const (
	// MaxPriority is the ceiling of Priority.
	MaxPriority = 120.0

	perfWeight         = 0.85
	wicketKeeperBoost  = 6.0
	leftHandBoost      = 4.0
	availableBoost     = 8.0
	unavailablePenalty = -10.0
	allRounderFactor   = 1.05

	battingWeight = 0.55
	bowlingWeight = 0.45
)

var categoryBoost = map[int]float64{1: 12, 2: 8, 3: 4, 4: 0}

// PerformanceIndex returns a 0–100 form rating. A recorded historical
// index wins; otherwise batting and bowling figures are normalised to
// [0,1] each and blended. Without any figures the rating stands in.
func PerformanceIndex(p roster.Player) float64 {
	if p.PerfIndex != nil {
		return clamp(*p.PerfIndex, 0, 100)
	}

	s := p.Stats
	if !s.HasBatting() && !s.HasBowling() {
		return clamp(p.Rating, 0, 100)
	}

	batting := mean(
		norm(s.BattingAverage, func(v float64) float64 { return v / 50 }),
		norm(s.StrikeRate, func(v float64) float64 { return v / 150 }),
	)
	bowling := mean(
		norm(s.Wickets, func(v float64) float64 { return v / 25 }),
		norm(s.Economy, func(v float64) float64 { return (12 - v) / 6 }),
	)
	return 100 * (battingWeight*batting + bowlingWeight*bowling)
}

// Priority scores how hard to chase p, in [0, MaxPriority].
func Priority(p roster.Player) float64 {
	score := perfWeight * PerformanceIndex(p)
	if p.IsWK {
		score += wicketKeeperBoost
	}
	if p.IsLeftHanded() {
		score += leftHandBoost
	}
	if p.Availability == roster.AvailabilityFull {
		score += availableBoost
	} else {
		score += unavailablePenalty
	}
	score += categoryBoost[p.Category]
	if p.IsAllRounder() {
		score *= allRounderFactor
	}
	return clamp(score, 0, MaxPriority)
}

// norm applies f to a present value and clamps the result to [0,1].
func norm(v *float64, f func(float64) float64) *float64 {
	if v == nil {
		return nil
	}
	n := clamp(f(*v), 0, 1)
	return &n
}

// mean averages the present values; zero when none are present.
func mean(vals ...*float64) float64 {
	var sum float64
	var n int
	for _, v := range vals {
		if v != nil {
			sum += *v
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

func clamp(v, lo, hi float64) float64 {
	return max(lo, min(hi, v))
}
