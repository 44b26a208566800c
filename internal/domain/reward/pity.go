package reward

import (
	"fmt"
	"sort"
)

// PityRule guarantees a rarity after a run of consecutive duplicate draws.
// When the current draw would be the Threshold-th consecutive outcome, that
// is, the counter stands at Threshold-1, its rarity is ForcedRarity: an
// exact override of the roll, not a floor.
type PityRule struct {
	Threshold    int
	ForcedRarity Rarity
}

// Validate checks a single rule.
func (r PityRule) Validate() error {
	if r.Threshold < 1 {
		return fmt.Errorf("pity rule: threshold %d: %w", r.Threshold, ErrValueOutOfRange)
	}
	if !r.ForcedRarity.IsValid() {
		return fmt.Errorf("pity rule: forced rarity %q: %w", r.ForcedRarity, ErrUnknownRarity)
	}
	return nil
}

// PityTable holds the configured guarantee rules. At most one rule applies
// per draw: the one with the highest threshold that the counter satisfies.
type PityTable []PityRule

// NewPityTable validates the rules and returns them sorted by descending
// threshold so ActiveRule can take the first match.
func NewPityTable(rules []PityRule) (PityTable, error) {
	seen := make(map[int]bool, len(rules))
	for _, rule := range rules {
		if err := rule.Validate(); err != nil {
			return nil, err
		}
		if seen[rule.Threshold] {
			return nil, fmt.Errorf("pity table: duplicate threshold %d: %w", rule.Threshold, ErrConfigurationInvalid)
		}
		seen[rule.Threshold] = true
	}

	table := make(PityTable, len(rules))
	copy(table, rules)
	sort.Slice(table, func(i, j int) bool {
		return table[i].Threshold > table[j].Threshold
	})
	return table, nil
}

// ActiveRule returns the highest-threshold rule the upcoming draw satisfies,
// or false if none qualifies. The upcoming draw extends the run by one, so a
// rule fires once the counter stands at Threshold-1. Rules do not stack: a
// counter of 12 against thresholds {5, 10} activates only the threshold-10
// rule.
func (t PityTable) ActiveRule(consecutiveDuplicates int) (PityRule, bool) {
	for _, rule := range t {
		if consecutiveDuplicates+1 >= rule.Threshold {
			return rule, true
		}
	}
	return PityRule{}, false
}
