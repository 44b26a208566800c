package reward

import (
	"fmt"
	"sort"
)

// Rarity is the ordered tier of a catalog item: common < rare < epic < legendary.
type Rarity string

const (
	RarityCommon    Rarity = "common"
	RarityRare      Rarity = "rare"
	RarityEpic      Rarity = "epic"
	RarityLegendary Rarity = "legendary"
)

// rarityRank orders tiers for comparisons and for monotonicity checks on the
// duplicate reward table.
var rarityRank = map[Rarity]int{
	RarityCommon:    0,
	RarityRare:      1,
	RarityEpic:      2,
	RarityLegendary: 3,
}

// AllRarities lists every tier in ascending order.
func AllRarities() []Rarity {
	return []Rarity{RarityCommon, RarityRare, RarityEpic, RarityLegendary}
}

// IsValid reports whether the rarity is one of the known tiers.
func (r Rarity) IsValid() bool {
	_, ok := rarityRank[r]
	return ok
}

// Rank returns the ordinal position of the tier (common = 0).
func (r Rarity) Rank() int {
	return rarityRank[r]
}

// AtLeast reports whether r is the same tier as other or higher.
func (r Rarity) AtLeast(other Rarity) bool {
	return rarityRank[r] >= rarityRank[other]
}

// String returns the tier name.
func (r Rarity) String() string {
	return string(r)
}

// ══════════════════════════════════════════════════════════════════════════════
// RARITY RESOLUTION
// ══════════════════════════════════════════════════════════════════════════════

// RarityWeights maps each tier to its draw probability. Weights are
// fractions of 1; they may sum to less than 1, in which case the remainder
// is assigned to common (documented fallback, never silent truncation).
type RarityWeights map[Rarity]float64

// weightEpsilon absorbs float accumulation noise when checking the sum.
const weightEpsilon = 1e-9

// Validate checks that every tier is known, every weight is non-negative,
// and the total does not exceed 1.
func (w RarityWeights) Validate() error {
	if len(w) == 0 {
		return fmt.Errorf("rarity weights: %w", ErrNoWeights)
	}

	var sum float64
	for tier, weight := range w {
		if !tier.IsValid() {
			return fmt.Errorf("rarity weights: unknown tier %q: %w", tier, ErrUnknownRarity)
		}
		if weight < 0 {
			return fmt.Errorf("rarity weights: tier %q has negative weight %v: %w", tier, weight, ErrNegativeWeight)
		}
		sum += weight
	}

	if sum > 1+weightEpsilon {
		return fmt.Errorf("rarity weights: sum %v exceeds 1: %w", sum, ErrWeightsExceedOne)
	}

	return nil
}

// Resolve maps a single uniform roll in [0, 1) onto a tier.
//
// Tiers occupy cumulative bands ordered from rarest to most common, e.g.
// legendary 0–1%, epic 1–8%, rare 8–30%, common 30–100%. A roll past the
// last configured band falls through to common: under-specified weights
// widen the common band rather than failing the draw.
func (w RarityWeights) Resolve(src RandomSource) Rarity {
	roll := src.Float64()

	// Rarest first so the narrowest bands sit at the start of [0, 1).
	tiers := make([]Rarity, 0, len(w))
	for tier := range w {
		tiers = append(tiers, tier)
	}
	sort.Slice(tiers, func(i, j int) bool {
		return tiers[i].Rank() > tiers[j].Rank()
	})

	var cumulative float64
	for _, tier := range tiers {
		cumulative += w[tier]
		if roll < cumulative {
			return tier
		}
	}

	return RarityCommon
}
