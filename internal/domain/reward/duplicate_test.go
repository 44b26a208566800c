package reward

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDuplicateRewardTable_Validate(t *testing.T) {
	valid := DuplicateRewardTable{
		RarityCommon:    1,
		RarityRare:      2,
		RarityEpic:      4,
		RarityLegendary: 10,
	}
	assert.NoError(t, valid.Validate())

	// Equal bonuses across adjacent tiers are allowed.
	flat := DuplicateRewardTable{
		RarityCommon:    2,
		RarityRare:      2,
		RarityEpic:      2,
		RarityLegendary: 2,
	}
	assert.NoError(t, flat.Validate())

	missing := DuplicateRewardTable{
		RarityCommon: 1,
		RarityRare:   2,
		RarityEpic:   4,
	}
	assert.ErrorIs(t, missing.Validate(), ErrConfigurationInvalid)

	negative := DuplicateRewardTable{
		RarityCommon:    -1,
		RarityRare:      2,
		RarityEpic:      4,
		RarityLegendary: 10,
	}
	assert.ErrorIs(t, negative.Validate(), ErrNegativeValue)

	// A legendary duplicate paying less than an epic one is rejected.
	inverted := DuplicateRewardTable{
		RarityCommon:    1,
		RarityRare:      2,
		RarityEpic:      4,
		RarityLegendary: 3,
	}
	assert.ErrorIs(t, inverted.Validate(), ErrBonusNotMonotonic)
}

func TestDuplicateRewardTable_BonusMonotonicInRarity(t *testing.T) {
	table := DuplicateRewardTable{
		RarityCommon:    1,
		RarityRare:      2,
		RarityEpic:      4,
		RarityLegendary: 10,
	}

	tiers := AllRarities()
	for i := 1; i < len(tiers); i++ {
		assert.GreaterOrEqual(t, table.BonusFor(tiers[i]), table.BonusFor(tiers[i-1]))
	}
}
