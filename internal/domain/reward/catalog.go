package reward

import (
	"fmt"
)

// CatalogItem is one drawable item: an identifier, a rarity tier, and a set
// identifier used for grouping in collection views (no behavior attached).
type CatalogItem struct {
	ID     string
	Rarity Rarity
	SetID  string
	Name   string
}

// Validate checks the item's fields.
func (i CatalogItem) Validate() error {
	if i.ID == "" {
		return fmt.Errorf("catalog item: %w: id", ErrEmptyValue)
	}
	if !i.Rarity.IsValid() {
		return fmt.Errorf("catalog item %q: rarity %q: %w", i.ID, i.Rarity, ErrUnknownRarity)
	}
	if i.SetID == "" {
		return fmt.Errorf("catalog item %q: %w: set id", i.ID, ErrEmptyValue)
	}
	return nil
}

// Catalog is the read-only set of drawable items, indexed by tier. It is
// built once at startup and shared across all concurrent draws without
// locking.
type Catalog struct {
	items  map[string]CatalogItem
	byTier map[Rarity][]CatalogItem
}

// NewCatalog builds a catalog from the given items. Duplicate item IDs and
// invalid items are rejected.
func NewCatalog(items []CatalogItem) (*Catalog, error) {
	if len(items) == 0 {
		return nil, fmt.Errorf("catalog: %w: no items", ErrConfigurationInvalid)
	}

	c := &Catalog{
		items:  make(map[string]CatalogItem, len(items)),
		byTier: make(map[Rarity][]CatalogItem),
	}

	for _, item := range items {
		if err := item.Validate(); err != nil {
			return nil, err
		}
		if _, exists := c.items[item.ID]; exists {
			return nil, fmt.Errorf("catalog: duplicate item id %q: %w", item.ID, ErrConfigurationInvalid)
		}
		c.items[item.ID] = item
		c.byTier[item.Rarity] = append(c.byTier[item.Rarity], item)
	}

	return c, nil
}

// Item looks up a single item by ID.
func (c *Catalog) Item(id string) (CatalogItem, bool) {
	item, ok := c.items[id]
	return item, ok
}

// Size returns the total number of items.
func (c *Catalog) Size() int {
	return len(c.items)
}

// ItemsOfRarity returns every item of the given tier. An empty tier is a
// configuration error: the caller must not substitute a different rarity.
func (c *Catalog) ItemsOfRarity(tier Rarity) ([]CatalogItem, error) {
	items := c.byTier[tier]
	if len(items) == 0 {
		return nil, fmt.Errorf("catalog: tier %q: %w", tier, ErrEmptyCatalogTier)
	}
	return items, nil
}

// RandomItem picks one item of the given tier uniformly at random.
func (c *Catalog) RandomItem(tier Rarity, src RandomSource) (CatalogItem, error) {
	items, err := c.ItemsOfRarity(tier)
	if err != nil {
		return CatalogItem{}, err
	}

	idx := int(src.Float64() * float64(len(items)))
	if idx >= len(items) {
		// Float64 is in [0, 1), but guard the boundary anyway.
		idx = len(items) - 1
	}
	return items[idx], nil
}

// ValidateAgainst checks that every tier carrying a positive weight or named
// by a pity rule actually has items, so misconfiguration fails at startup
// instead of mid-draw.
func (c *Catalog) ValidateAgainst(weights RarityWeights, rules PityTable) error {
	for tier, weight := range weights {
		if weight > 0 {
			if _, err := c.ItemsOfRarity(tier); err != nil {
				return err
			}
		}
	}
	// Common is the documented fallback tier, so it must never be empty.
	if _, err := c.ItemsOfRarity(RarityCommon); err != nil {
		return err
	}
	for _, rule := range rules {
		if _, err := c.ItemsOfRarity(rule.ForcedRarity); err != nil {
			return err
		}
	}
	return nil
}
