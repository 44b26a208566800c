package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/classdeck/reward-engine/internal/domain/reward"
)

// RewardTables is the read-only reward configuration loaded from YAML:
// the item catalog, rarity weights, pity rules, and duplicate bonuses.
// It is built once at startup and shared across all draws.
type RewardTables struct {
	Catalog    *reward.Catalog
	Weights    reward.RarityWeights
	PityRules  reward.PityTable
	Duplicates reward.DuplicateRewardTable
}

// Raw reward config mirroring the YAML schema.
type rawRewards struct {
	Version string     `yaml:"version"`
	Items   []rawItem  `yaml:"items"`
	Weights rawWeights `yaml:"rarity_weights"`
	Pity    []rawPity  `yaml:"pity_rules"`
	Bonuses rawBonuses `yaml:"duplicate_bonuses"`
}

type rawItem struct {
	ID     string `yaml:"id"`
	Name   string `yaml:"name,omitempty"`
	Rarity string `yaml:"rarity"`
	Set    string `yaml:"set"`
}

type rawWeights struct {
	Common    float64 `yaml:"common"`
	Rare      float64 `yaml:"rare"`
	Epic      float64 `yaml:"epic"`
	Legendary float64 `yaml:"legendary"`
}

type rawPity struct {
	Threshold    int    `yaml:"threshold"`
	ForcedRarity string `yaml:"forced_rarity"`
}

type rawBonuses struct {
	Common    int `yaml:"common"`
	Rare      int `yaml:"rare"`
	Epic      int `yaml:"epic"`
	Legendary int `yaml:"legendary"`
}

// LoadRewardTables reads and validates the reward configuration file.
// Any structural or semantic problem (empty tier with positive weight, a
// pity rule forcing an empty tier, non-monotonic bonuses) fails here so
// misconfiguration never surfaces mid-draw.
func LoadRewardTables(path string) (*RewardTables, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read reward config %s: %w", path, err)
	}
	return ParseRewardTables(data)
}

// ParseRewardTables builds validated reward tables from YAML bytes.
func ParseRewardTables(data []byte) (*RewardTables, error) {
	var raw rawRewards
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse reward config: %w", err)
	}

	items := make([]reward.CatalogItem, 0, len(raw.Items))
	for _, it := range raw.Items {
		items = append(items, reward.CatalogItem{
			ID:     it.ID,
			Name:   it.Name,
			Rarity: reward.Rarity(it.Rarity),
			SetID:  it.Set,
		})
	}

	catalog, err := reward.NewCatalog(items)
	if err != nil {
		return nil, fmt.Errorf("reward config: %w", err)
	}

	weights := reward.RarityWeights{
		reward.RarityCommon:    raw.Weights.Common,
		reward.RarityRare:      raw.Weights.Rare,
		reward.RarityEpic:      raw.Weights.Epic,
		reward.RarityLegendary: raw.Weights.Legendary,
	}
	if err := weights.Validate(); err != nil {
		return nil, fmt.Errorf("reward config: %w", err)
	}

	rules := make([]reward.PityRule, 0, len(raw.Pity))
	for _, r := range raw.Pity {
		rules = append(rules, reward.PityRule{
			Threshold:    r.Threshold,
			ForcedRarity: reward.Rarity(r.ForcedRarity),
		})
	}
	pity, err := reward.NewPityTable(rules)
	if err != nil {
		return nil, fmt.Errorf("reward config: %w", err)
	}

	bonuses := reward.DuplicateRewardTable{
		reward.RarityCommon:    raw.Bonuses.Common,
		reward.RarityRare:      raw.Bonuses.Rare,
		reward.RarityEpic:      raw.Bonuses.Epic,
		reward.RarityLegendary: raw.Bonuses.Legendary,
	}
	if err := bonuses.Validate(); err != nil {
		return nil, fmt.Errorf("reward config: %w", err)
	}

	if err := catalog.ValidateAgainst(weights, pity); err != nil {
		return nil, fmt.Errorf("reward config: %w", err)
	}

	return &RewardTables{
		Catalog:    catalog,
		Weights:    weights,
		PityRules:  pity,
		Duplicates: bonuses,
	}, nil
}
