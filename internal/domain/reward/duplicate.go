package reward

import "fmt"

// DuplicateRewardTable maps each rarity tier to the ticket bonus granted
// when a draw resolves to an item the student already owns. The item is not
// granted twice; the bonus is the compensation.
type DuplicateRewardTable map[Rarity]int

// Validate checks that every tier has a non-negative bonus and that bonuses
// are monotonically non-decreasing in rarity: a legendary duplicate must
// never pay less than an epic one. This is an invariant of the table, not
// a style convention.
func (t DuplicateRewardTable) Validate() error {
	tiers := AllRarities()
	for _, tier := range tiers {
		bonus, ok := t[tier]
		if !ok {
			return fmt.Errorf("duplicate rewards: missing tier %q: %w", tier, ErrConfigurationInvalid)
		}
		if bonus < 0 {
			return fmt.Errorf("duplicate rewards: tier %q bonus %d: %w", tier, bonus, ErrNegativeValue)
		}
	}

	for i := 1; i < len(tiers); i++ {
		lower, higher := tiers[i-1], tiers[i]
		if t[higher] < t[lower] {
			return fmt.Errorf("duplicate rewards: %s bonus %d below %s bonus %d: %w",
				higher, t[higher], lower, t[lower], ErrBonusNotMonotonic)
		}
	}

	return nil
}

// BonusFor returns the ticket bonus for a duplicate of the given tier.
func (t DuplicateRewardTable) BonusFor(tier Rarity) int {
	return t[tier]
}
