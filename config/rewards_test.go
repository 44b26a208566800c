package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/classdeck/reward-engine/internal/domain/reward"
)

const validRewardsYAML = `
version: "1"
items:
  - id: sticker-star
    rarity: common
    set: stickers
  - id: badge-silver
    rarity: rare
    set: badges
  - id: badge-gold
    rarity: epic
    set: badges
  - id: trophy-class
    rarity: legendary
    set: trophies
rarity_weights:
  legendary: 0.01
  epic: 0.07
  rare: 0.22
  common: 0.70
pity_rules:
  - threshold: 5
    forced_rarity: epic
duplicate_bonuses:
  common: 1
  rare: 2
  epic: 4
  legendary: 10
`

func TestParseRewardTables(t *testing.T) {
	tables, err := ParseRewardTables([]byte(validRewardsYAML))
	require.NoError(t, err)

	assert.Equal(t, 4, tables.Catalog.Size())

	epic, err := tables.Catalog.ItemsOfRarity(reward.RarityEpic)
	require.NoError(t, err)
	assert.Len(t, epic, 1)

	rule, ok := tables.PityRules.ActiveRule(5)
	require.True(t, ok)
	assert.Equal(t, reward.RarityEpic, rule.ForcedRarity)

	assert.Equal(t, 10, tables.Duplicates.BonusFor(reward.RarityLegendary))
}

func TestParseRewardTables_RejectsBadYAML(t *testing.T) {
	_, err := ParseRewardTables([]byte("items: [not valid"))
	assert.Error(t, err)
}

func TestParseRewardTables_RejectsEmptyWeightedTier(t *testing.T) {
	// Legendary has weight but no items.
	bad := `
items:
  - id: sticker-star
    rarity: common
    set: stickers
rarity_weights:
  legendary: 0.01
  common: 0.99
duplicate_bonuses:
  common: 1
  rare: 2
  epic: 4
  legendary: 10
`
	_, err := ParseRewardTables([]byte(bad))
	assert.ErrorIs(t, err, reward.ErrEmptyCatalogTier)
}

func TestParseRewardTables_RejectsNonMonotonicBonuses(t *testing.T) {
	bad := `
items:
  - id: sticker-star
    rarity: common
    set: stickers
rarity_weights:
  common: 1.0
duplicate_bonuses:
  common: 5
  rare: 2
  epic: 4
  legendary: 10
`
	_, err := ParseRewardTables([]byte(bad))
	assert.ErrorIs(t, err, reward.ErrBonusNotMonotonic)
}

func TestParseRewardTables_RejectsPityRuleOnEmptyTier(t *testing.T) {
	bad := `
items:
  - id: sticker-star
    rarity: common
    set: stickers
rarity_weights:
  common: 1.0
pity_rules:
  - threshold: 5
    forced_rarity: legendary
duplicate_bonuses:
  common: 1
  rare: 2
  epic: 4
  legendary: 10
`
	_, err := ParseRewardTables([]byte(bad))
	assert.ErrorIs(t, err, reward.ErrEmptyCatalogTier)
}
