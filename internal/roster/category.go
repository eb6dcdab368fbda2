package roster

// Rank bands mapping a player's rank to a price category.
var rankBands = []struct {
	maxRank  int
	category int
}{
	{16, 1},
	{24, 2},
	{32, 3},
	{40, 4},
}

// LowestCategory is the category of unranked or low-ranked players.
const LowestCategory = 5

// CategoryFromRank maps rank 1–16 to 1, 17–24 to 2, 25–32 to 3, 33–40 to 4
// and everything else, including a missing rank, to 5.
func CategoryFromRank(rank int) int {
	if rank < 1 {
		return LowestCategory
	}
	for _, b := range rankBands {
		if rank <= b.maxRank {
			return b.category
		}
	}
	return LowestCategory
}

// CategoryBases maps a category to its default base price.
type CategoryBases map[int]int

// DefaultCategoryBases returns the stock base price per category.
func DefaultCategoryBases() CategoryBases {
	return CategoryBases{1: 100, 2: 80, 3: 60, 4: 50, 5: 50}
}

// For returns the base price for a category, falling back to the
// lowest category's price.
func (c CategoryBases) For(category int) int {
	if v, ok := c[category]; ok {
		return v
	}
	return c[LowestCategory]
}

// FillBase sets the base price of every player with a blank base from
// its category. A won player's base never exceeds its final bid.
func FillBase(players []Player, bases CategoryBases) {
	for i := range players {
		p := &players[i]
		if p.Base > 0 {
			continue
		}
		p.Base = bases.For(p.Category)
		if p.FinalBid != nil && *p.FinalBid < p.Base {
			p.Base = *p.FinalBid
		}
	}
}
