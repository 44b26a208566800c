package reward

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRarity_Ordering(t *testing.T) {
	assert.True(t, RarityLegendary.AtLeast(RarityEpic))
	assert.True(t, RarityEpic.AtLeast(RarityEpic))
	assert.False(t, RarityRare.AtLeast(RarityEpic))
	assert.True(t, RarityCommon.AtLeast(RarityCommon))

	assert.True(t, RarityCommon.IsValid())
	assert.False(t, Rarity("mythic").IsValid())
}

func TestRarityWeights_Validate(t *testing.T) {
	valid := RarityWeights{
		RarityLegendary: 0.01,
		RarityEpic:      0.07,
		RarityRare:      0.22,
		RarityCommon:    0.70,
	}
	assert.NoError(t, valid.Validate())

	assert.ErrorIs(t, RarityWeights{}.Validate(), ErrNoWeights)

	unknown := RarityWeights{Rarity("mythic"): 0.5}
	assert.ErrorIs(t, unknown.Validate(), ErrUnknownRarity)

	negative := RarityWeights{RarityCommon: -0.1}
	assert.ErrorIs(t, negative.Validate(), ErrNegativeWeight)

	overflow := RarityWeights{RarityCommon: 0.8, RarityRare: 0.5}
	assert.ErrorIs(t, overflow.Validate(), ErrWeightsExceedOne)

	// Under-specified weights are valid; the remainder belongs to common.
	partial := RarityWeights{RarityLegendary: 0.01, RarityEpic: 0.07}
	assert.NoError(t, partial.Validate())
}

func TestRarityWeights_Resolve_BandBoundaries(t *testing.T) {
	weights := RarityWeights{
		RarityLegendary: 0.01,
		RarityEpic:      0.07,
		RarityRare:      0.22,
		RarityCommon:    0.70,
	}

	tests := []struct {
		roll float64
		want Rarity
	}{
		{0.0, RarityLegendary},
		{0.009, RarityLegendary},
		{0.01, RarityEpic},
		{0.0799, RarityEpic},
		{0.08, RarityRare},
		{0.2999, RarityRare},
		{0.30, RarityCommon},
		{0.999, RarityCommon},
	}

	for _, tt := range tests {
		got := weights.Resolve(FixedSource(tt.roll))
		assert.Equal(t, tt.want, got, "roll %v", tt.roll)
	}
}

func TestRarityWeights_Resolve_FallbackToCommon(t *testing.T) {
	// Only 8% of the space is configured; everything past it is common.
	weights := RarityWeights{
		RarityLegendary: 0.01,
		RarityEpic:      0.07,
	}

	assert.Equal(t, RarityEpic, weights.Resolve(FixedSource(0.05)))
	assert.Equal(t, RarityCommon, weights.Resolve(FixedSource(0.08)))
	assert.Equal(t, RarityCommon, weights.Resolve(FixedSource(0.95)))
}

func TestRarityWeights_Resolve_EmpiricalFrequencies(t *testing.T) {
	weights := RarityWeights{
		RarityLegendary: 0.01,
		RarityEpic:      0.07,
		RarityRare:      0.22,
		RarityCommon:    0.70,
	}
	require.NoError(t, weights.Validate())

	const trials = 100_000
	src := NewSeededSource(42)

	counts := make(map[Rarity]int)
	for i := 0; i < trials; i++ {
		counts[weights.Resolve(src)]++
	}

	for tier, want := range weights {
		got := float64(counts[tier]) / trials
		assert.LessOrEqual(t, math.Abs(got-want), 0.01,
			"tier %s: got frequency %v, want %v", tier, got, want)
	}
}

func TestRarityWeights_Resolve_DeterministicWithSeed(t *testing.T) {
	weights := RarityWeights{
		RarityLegendary: 0.01,
		RarityEpic:      0.07,
		RarityRare:      0.22,
		RarityCommon:    0.70,
	}

	first := make([]Rarity, 100)
	src := NewSeededSource(7)
	for i := range first {
		first[i] = weights.Resolve(src)
	}

	second := make([]Rarity, 100)
	src = NewSeededSource(7)
	for i := range second {
		second[i] = weights.Resolve(src)
	}

	assert.Equal(t, first, second)
}
