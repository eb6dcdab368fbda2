// Package valuation scores a player's value for money and maps the score
// to a bidding tier.
package valuation

import (
	"math"

	"github.com/shopspring/decimal"

	"github.com/jensholdgaard/cricket-auctionbot/internal/roster"
	"github.com/jensholdgaard/cricket-auctionbot/internal/rules"
)

const (
	baseExponent  = 0.85
	scarcityBonus = 5.0
	quotaBonus    = 8.0

	scorePrecision int32 = 1
)

// ValueScore rates p against the pool: rating per dampened base price,
// plus a bonus when p is the last pending player of its role and a bonus
// for every unmet minimum quota p would help fill.
func ValueScore(p roster.Player, all []roster.Player, rs rules.RuleSet) float64 {
	score := p.Rating / math.Pow(float64(max(p.Base, 1)), baseExponent)

	if lastOfRole(p, all) {
		score += scarcityBonus
	}

	for _, r := range rules.Unmet(all, rs) {
		if r.Matches(p) {
			score += quotaBonus
		}
	}

	rounded, _ := decimal.NewFromFloat(score).Round(scorePrecision).Float64()
	return rounded
}

func lastOfRole(p roster.Player, all []roster.Player) bool {
	for _, o := range all {
		if o.ID == p.ID || !o.IsPending() {
			continue
		}
		if o.SameRole(p.Role) {
			return false
		}
	}
	return true
}
