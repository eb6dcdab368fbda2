package valuation

// Tier is a coarse bidding recommendation.
type Tier struct {
	Label string `json:"label"`
	Rank  int    `json:"rank"`
}

var (
	TierMustBid  = Tier{Label: "Must Bid", Rank: 1}
	TierStrong   = Tier{Label: "Strong", Rank: 2}
	TierConsider = Tier{Label: "Consider", Rank: 3}
	TierPass     = Tier{Label: "Pass", Rank: 4}
)

// thresholds are checked highest first.
var thresholds = []struct {
	min  float64
	tier Tier
}{
	{2.2, TierMustBid},
	{1.8, TierStrong},
	{1.4, TierConsider},
}

// TierFromScore maps a value score to its tier.
func TierFromScore(score float64) Tier {
	for _, th := range thresholds {
		if score >= th.min {
			return th.tier
		}
	}
	return TierPass
}
