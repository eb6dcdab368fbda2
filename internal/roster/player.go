// Package roster holds the player pool model and its tabular import/export.
package roster

import "strings"

// Status is the auction outcome of a player.
type Status string

const (
	StatusPending Status = "pending"
	StatusWon     Status = "won"
	StatusLost    Status = "lost"
)

// Hand is a batting hand.
type Hand string

const (
	HandUnset Hand = ""
	HandLeft  Hand = "Left"
	HandRight Hand = "Right"
)

// Availability describes how much of the season a player can play.
type Availability string

const (
	AvailabilityUnknown Availability = ""
	AvailabilityFull    Availability = "full"
	AvailabilityPartial Availability = "partial"
)

// Stats are optional historical batting and bowling figures.
type Stats struct {
	BattingAverage *float64 `json:"batting_average,omitempty"`
	StrikeRate     *float64 `json:"strike_rate,omitempty"`
	Wickets        *float64 `json:"wickets,omitempty"`
	Economy        *float64 `json:"economy,omitempty"`
}

// HasBatting reports whether any batting figure is present.
func (s Stats) HasBatting() bool { return s.BattingAverage != nil || s.StrikeRate != nil }

// HasBowling reports whether any bowling figure is present.
func (s Stats) HasBowling() bool { return s.Wickets != nil || s.Economy != nil }

// Player is a candidate in the auction pool.
//
// FinalBid is set if and only if Status is StatusWon.
type Player struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	Role         string       `json:"role"`
	Rank         int          `json:"rank,omitempty"`
	Category     int          `json:"category"`
	Rating       float64      `json:"rating"`
	Base         int          `json:"base"`
	BattingHand  Hand         `json:"batting_hand,omitempty"`
	IsWK         bool         `json:"is_wk"`
	Status       Status       `json:"status"`
	FinalBid     *int         `json:"final_bid,omitempty"`
	DOB          string       `json:"dob,omitempty"`
	Alumni       string       `json:"alumni,omitempty"`
	Age          *int         `json:"age,omitempty"`
	PerfIndex    *float64     `json:"perf_index,omitempty"`
	Stats        Stats        `json:"stats"`
	Availability Availability `json:"availability,omitempty"`
}

// IsPending reports whether the player is still available.
func (p Player) IsPending() bool { return p.Status == StatusPending }

// IsWon reports whether the player was bought.
func (p Player) IsWon() bool { return p.Status == StatusWon }

// SameRole compares roles ignoring case and surrounding space.
func (p Player) SameRole(role string) bool {
	return strings.EqualFold(strings.TrimSpace(p.Role), strings.TrimSpace(role))
}

// IsAllRounder reports whether the role names an all-rounder
// ("All Rounder", "all-rounder", "Allrounder").
func (p Player) IsAllRounder() bool {
	r := strings.ToLower(p.Role)
	return strings.Contains(r, "all") && strings.Contains(r, "round")
}

// IsLeftHanded reports whether the player bats left-handed.
func (p Player) IsLeftHanded() bool { return p.BattingHand == HandLeft }

// Clone returns a deep copy of p.
func (p Player) Clone() Player {
	c := p
	c.FinalBid = cloneInt(p.FinalBid)
	c.Age = cloneInt(p.Age)
	c.PerfIndex = cloneFloat(p.PerfIndex)
	c.Stats = Stats{
		BattingAverage: cloneFloat(p.Stats.BattingAverage),
		StrikeRate:     cloneFloat(p.Stats.StrikeRate),
		Wickets:        cloneFloat(p.Stats.Wickets),
		Economy:        cloneFloat(p.Stats.Economy),
	}
	return c
}

// CloneAll deep-copies a player slice.
func CloneAll(players []Player) []Player {
	out := make([]Player, len(players))
	for i, p := range players {
		out[i] = p.Clone()
	}
	return out
}

func cloneInt(v *int) *int {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func cloneFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

// ParseHand normalises free-text batting hand values.
func ParseHand(s string) Hand {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "l", "left", "lhb", "left-handed", "left hand":
		return HandLeft
	case "r", "right", "rhb", "right-handed", "right hand":
		return HandRight
	default:
		return HandUnset
	}
}

// ParseAvailability normalises availability values. Anything that is not
// clearly full availability counts as partial; blank stays unknown.
func ParseAvailability(s string) Availability {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return AvailabilityUnknown
	case "full", "yes", "y", "100", "100%", "all":
		return AvailabilityFull
	default:
		return AvailabilityPartial
	}
}
