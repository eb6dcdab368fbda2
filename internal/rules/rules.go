// Package rules models roster-composition quotas and evaluates a won
// roster against them.
package rules

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/jensholdgaard/cricket-auctionbot/internal/roster"
)

// ErrInvalidRule is returned for rules whose bounds are inconsistent.
var ErrInvalidRule = errors.New("invalid rule")

// Rule is a quota over players matching every present predicate field.
// Nil predicate fields are wildcards.
type Rule struct {
	Label       string  `yaml:"label,omitempty" json:"label,omitempty"`
	Role        *string `yaml:"role,omitempty" json:"role,omitempty"`
	BattingHand *string `yaml:"batting_hand,omitempty" json:"batting_hand,omitempty"`
	IsWK        *bool   `yaml:"is_wk,omitempty" json:"is_wk,omitempty"`
	MinCount    int     `yaml:"min_count" json:"min_count"`
	MaxCount    *int    `yaml:"max_count,omitempty" json:"max_count,omitempty"`
}

// RuleSet is the session's quota configuration.
type RuleSet []Rule

// Matches reports whether p satisfies every predicate of the rule.
// Role and batting hand compare case-insensitively.
func (r Rule) Matches(p roster.Player) bool {
	if r.Role != nil && !p.SameRole(*r.Role) {
		return false
	}
	if r.BattingHand != nil && !strings.EqualFold(strings.TrimSpace(*r.BattingHand), string(p.BattingHand)) {
		return false
	}
	if r.IsWK != nil && *r.IsWK != p.IsWK {
		return false
	}
	return true
}

// Name returns the label, or a description built from the predicates.
func (r Rule) Name() string {
	if r.Label != "" {
		return r.Label
	}
	var parts []string
	if r.Role != nil {
		parts = append(parts, "role="+*r.Role)
	}
	if r.BattingHand != nil {
		parts = append(parts, "hand="+*r.BattingHand)
	}
	if r.IsWK != nil {
		parts = append(parts, fmt.Sprintf("wk=%t", *r.IsWK))
	}
	if len(parts) == 0 {
		return "any player"
	}
	return strings.Join(parts, ",")
}

// Validate checks the rule's bounds.
func (r Rule) Validate() error {
	if r.MinCount < 0 {
		return fmt.Errorf("%w: %s: min_count %d is negative", ErrInvalidRule, r.Name(), r.MinCount)
	}
	if r.MaxCount != nil && *r.MaxCount < r.MinCount {
		return fmt.Errorf("%w: %s: max_count %d below min_count %d", ErrInvalidRule, r.Name(), *r.MaxCount, r.MinCount)
	}
	return nil
}

// Validate checks every rule in the set.
func (rs RuleSet) Validate() error {
	for _, r := range rs {
		if err := r.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Clone deep-copies the rule set.
func (rs RuleSet) Clone() RuleSet {
	if rs == nil {
		return nil
	}
	out := make(RuleSet, len(rs))
	for i, r := range rs {
		out[i] = Rule{
			Label:       r.Label,
			Role:        cloneString(r.Role),
			BattingHand: cloneString(r.BattingHand),
			IsWK:        cloneBool(r.IsWK),
			MinCount:    r.MinCount,
			MaxCount:    cloneInt(r.MaxCount),
		}
	}
	return out
}

// Parse decodes a rule set from YAML or JSON. The document is either a
// list of rules or a mapping with a "rules" key.
func Parse(data []byte) (RuleSet, error) {
	var rs RuleSet
	if err := yaml.Unmarshal(data, &rs); err != nil {
		var doc struct {
			Rules RuleSet `yaml:"rules"`
		}
		if err2 := yaml.Unmarshal(data, &doc); err2 != nil {
			return nil, fmt.Errorf("parsing rules: %w", err)
		}
		rs = doc.Rules
	}
	if err := rs.Validate(); err != nil {
		return nil, err
	}
	return rs, nil
}

// LoadFile reads a rule set from a YAML or JSON file.
func LoadFile(path string) (RuleSet, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("reading rules file: %w", err)
	}
	return Parse(data)
}

// Default is the stock quota set used when none is configured.
func Default() RuleSet {
	return RuleSet{
		{Label: "Wicket keepers", IsWK: ptr(true), MinCount: 1, MaxCount: ptr(2)},
		{Label: "Bowlers", Role: ptr("Bowler"), MinCount: 3},
		{Label: "All rounders", Role: ptr("All Rounder"), MinCount: 2},
		{Label: "Left-handed batters", BattingHand: ptr("Left"), MinCount: 1},
	}
}

func ptr[T any](v T) *T { return &v }

func cloneString(v *string) *string {
	if v == nil {
		return nil
	}
	return ptr(*v)
}

func cloneBool(v *bool) *bool {
	if v == nil {
		return nil
	}
	return ptr(*v)
}

func cloneInt(v *int) *int {
	if v == nil {
		return nil
	}
	return ptr(*v)
}
