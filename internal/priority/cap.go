package priority

import (
	"github.com/shopspring/decimal"

	"github.com/jensholdgaard/cricket-auctionbot/internal/budget"
	"github.com/jensholdgaard/cricket-auctionbot/internal/roster"
)

var (
	categoryWeight = map[int]float64{1: 1.35, 2: 1.2, 3: 1.05, 4: 0.95, 5: 0.9}
	categoryAdjust = map[int]float64{1: 1.1, 2: 1.05, 3: 1.0, 4: 0.97, 5: 0.95}
)

const (
	minWinProbability = 0.05
	maxWinProbability = 0.95
)

// Band is a suggested price range.
type Band struct {
	Low  int `json:"low"`
	High int `json:"high"`
}

// Advice is the advisory read-out for one player.
type Advice struct {
	PlayerID       string  `json:"player_id"`
	Performance    float64 `json:"performance"`
	Priority       float64 `json:"priority"`
	Cap            int     `json:"cap"`
	Band           Band    `json:"band"`
	WinProbability float64 `json:"win_probability"`
}

// SuggestedCap proposes the most to pay for p. It blends a purse-driven
// estimate with a base-price-driven one, takes the larger, and never
// exceeds what the remaining mandatory slots allow.
func SuggestedCap(p roster.Player, l budget.Ledger) int {
	minBase := l.Budget.MinBasePerPlayer
	capValue := min(max(purseEstimate(p, l), baseEstimate(p)), float64(ceiling(l)))
	rounded := int(decimal.NewFromFloat(capValue).Round(0).IntPart())
	return max(rounded, minBase)
}

// Advise bundles priority, cap, band and win probability for p.
func Advise(p roster.Player, l budget.Ledger) Advice {
	c := SuggestedCap(p, l)
	low := min(p.Base, c)
	return Advice{
		PlayerID:       p.ID,
		Performance:    round2(PerformanceIndex(p)),
		Priority:       round2(Priority(p)),
		Cap:            c,
		Band:           Band{Low: low, High: c},
		WinProbability: round2(WinProbability(p, c)),
	}
}

// WinProbability estimates the chance of landing p at capValue: how far the
// cap reaches from base price towards a stretched market price.
func WinProbability(p roster.Player, capValue int) float64 {
	market := 1.5 * baseEstimate(p)
	spread := max(market-float64(p.Base), 1)
	return clamp((float64(capValue)-float64(p.Base))/spread, minWinProbability, maxWinProbability)
}

// purseEstimate scales the average per-slot budget by priority and category.
func purseEstimate(p roster.Player, l budget.Ledger) float64 {
	avg := float64(l.RemainingBudget()) / float64(max(l.RemainingSlots(), 1))
	priorityFactor := 0.6 + 0.9*(Priority(p)/MaxPriority)
	return avg * priorityFactor * weightFor(categoryWeight, p.Category)
}

// baseEstimate scales the base price by form and a small category nudge.
func baseEstimate(p roster.Player) float64 {
	perfFactor := 1.0 + 0.5*(PerformanceIndex(p)/100)
	return float64(p.Base) * perfFactor * weightFor(categoryAdjust, p.Category)
}

// ceiling is the hard limit leaving the minimum base for every other open slot.
func ceiling(l budget.Ledger) int {
	minBase := l.Budget.MinBasePerPlayer
	return max(minBase, l.RemainingBudget()-minBase*max(0, l.RemainingSlots()-1))
}

func weightFor(weights map[int]float64, category int) float64 {
	if w, ok := weights[category]; ok {
		return w
	}
	return weights[roster.LowestCategory]
}

func round2(v float64) float64 {
	f, _ := decimal.NewFromFloat(v).Round(2).Float64()
	return f
}
