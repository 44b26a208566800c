package reward

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testItems() []CatalogItem {
	return []CatalogItem{
		{ID: "sticker-star", Rarity: RarityCommon, SetID: "stickers"},
		{ID: "sticker-moon", Rarity: RarityCommon, SetID: "stickers"},
		{ID: "badge-silver", Rarity: RarityRare, SetID: "badges"},
		{ID: "badge-gold", Rarity: RarityEpic, SetID: "badges"},
		{ID: "trophy-class", Rarity: RarityLegendary, SetID: "trophies"},
	}
}

func TestNewCatalog_Validation(t *testing.T) {
	_, err := NewCatalog(nil)
	assert.ErrorIs(t, err, ErrConfigurationInvalid)

	_, err = NewCatalog([]CatalogItem{{ID: "", Rarity: RarityCommon, SetID: "s"}})
	assert.ErrorIs(t, err, ErrEmptyValue)

	_, err = NewCatalog([]CatalogItem{{ID: "a", Rarity: Rarity("mythic"), SetID: "s"}})
	assert.ErrorIs(t, err, ErrUnknownRarity)

	_, err = NewCatalog([]CatalogItem{
		{ID: "a", Rarity: RarityCommon, SetID: "s"},
		{ID: "a", Rarity: RarityRare, SetID: "s"},
	})
	assert.ErrorIs(t, err, ErrConfigurationInvalid)
}

func TestCatalog_ItemsOfRarity(t *testing.T) {
	catalog, err := NewCatalog(testItems())
	require.NoError(t, err)

	common, err := catalog.ItemsOfRarity(RarityCommon)
	require.NoError(t, err)
	assert.Len(t, common, 2)

	epic, err := catalog.ItemsOfRarity(RarityEpic)
	require.NoError(t, err)
	assert.Len(t, epic, 1)
	assert.Equal(t, "badge-gold", epic[0].ID)
}

func TestCatalog_EmptyTierIsConfigurationError(t *testing.T) {
	catalog, err := NewCatalog([]CatalogItem{
		{ID: "sticker-star", Rarity: RarityCommon, SetID: "stickers"},
	})
	require.NoError(t, err)

	_, err = catalog.ItemsOfRarity(RarityLegendary)
	assert.ErrorIs(t, err, ErrEmptyCatalogTier)

	_, err = catalog.RandomItem(RarityLegendary, FixedSource(0.5))
	assert.ErrorIs(t, err, ErrEmptyCatalogTier)
}

func TestCatalog_RandomItem(t *testing.T) {
	catalog, err := NewCatalog(testItems())
	require.NoError(t, err)

	item, err := catalog.RandomItem(RarityCommon, FixedSource(0.0))
	require.NoError(t, err)
	assert.Equal(t, RarityCommon, item.Rarity)

	// A seeded source must eventually visit every item of the tier.
	src := NewSeededSource(3)
	seen := make(map[string]bool)
	for i := 0; i < 200; i++ {
		item, err := catalog.RandomItem(RarityCommon, src)
		require.NoError(t, err)
		seen[item.ID] = true
	}
	assert.Len(t, seen, 2)
}

func TestCatalog_ValidateAgainst(t *testing.T) {
	catalog, err := NewCatalog([]CatalogItem{
		{ID: "sticker-star", Rarity: RarityCommon, SetID: "stickers"},
		{ID: "badge-gold", Rarity: RarityEpic, SetID: "badges"},
	})
	require.NoError(t, err)

	weights := RarityWeights{RarityEpic: 0.1, RarityCommon: 0.9}
	rules, err := NewPityTable([]PityRule{{Threshold: 5, ForcedRarity: RarityEpic}})
	require.NoError(t, err)

	assert.NoError(t, catalog.ValidateAgainst(weights, rules))

	// A positive weight on a tier with no items fails at startup.
	badWeights := RarityWeights{RarityLegendary: 0.01, RarityCommon: 0.99}
	assert.ErrorIs(t, catalog.ValidateAgainst(badWeights, rules), ErrEmptyCatalogTier)

	// A pity rule forcing an empty tier fails at startup.
	badRules, err := NewPityTable([]PityRule{{Threshold: 5, ForcedRarity: RarityLegendary}})
	require.NoError(t, err)
	assert.ErrorIs(t, catalog.ValidateAgainst(weights, badRules), ErrEmptyCatalogTier)
}
