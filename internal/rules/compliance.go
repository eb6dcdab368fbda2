package rules

import "github.com/jensholdgaard/cricket-auctionbot/internal/roster"

// RuleStatus is the evaluation of a single rule.
type RuleStatus struct {
	Rule  Rule `json:"rule"`
	Count int  `json:"count"`
	MinOK bool `json:"min_ok"`
	MaxOK bool `json:"max_ok"`
	OK    bool `json:"ok"`
}

// Report is the compliance of a won roster against a rule set.
type Report struct {
	PerRule  []RuleStatus `json:"per_rule"`
	AllMinOK bool         `json:"all_min_ok"`
	AllMaxOK bool         `json:"all_max_ok"`
}

// Evaluate counts won players matching each rule. It holds no state, so
// every call reflects the current won set.
func Evaluate(players []roster.Player, rs RuleSet) Report {
	rep := Report{
		PerRule:  make([]RuleStatus, 0, len(rs)),
		AllMinOK: true,
		AllMaxOK: true,
	}
	for _, r := range rs {
		st := RuleStatus{Rule: r, Count: CountWon(players, r)}
		st.MinOK = st.Count >= r.MinCount
		st.MaxOK = r.MaxCount == nil || st.Count <= *r.MaxCount
		st.OK = st.MinOK && st.MaxOK

		rep.AllMinOK = rep.AllMinOK && st.MinOK
		rep.AllMaxOK = rep.AllMaxOK && st.MaxOK
		rep.PerRule = append(rep.PerRule, st)
	}
	return rep
}

// CountWon returns the number of won players matching r.
func CountWon(players []roster.Player, r Rule) int {
	n := 0
	for _, p := range players {
		if p.IsWon() && r.Matches(p) {
			n++
		}
	}
	return n
}

// Unmet returns the rules with a positive minimum not yet reached.
func Unmet(players []roster.Player, rs RuleSet) []Rule {
	var out []Rule
	for _, r := range rs {
		if r.MinCount > 0 && CountWon(players, r) < r.MinCount {
			out = append(out, r)
		}
	}
	return out
}
