// Package projections implements read models for CQRS pattern.
// Projections are denormalized views optimized for fast reads.
// They are updated asynchronously when domain events occur.
package projections

import (
	"sort"
	"sync"
	"time"

	"github.com/classdeck/reward-engine/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// DRAW STATS VIEW - Denormalized Read Model
// ══════════════════════════════════════════════════════════════════════════════

// DrawStatsView accumulates draw outcome statistics from domain events:
// per-rarity and per-item counts, duplicate rate, and pity frequency.
// It answers operator questions about whether the configured weights
// produce the intended distribution in practice.
//
// The view is best-effort: it rebuilds empty on restart and events are
// applied after commit, so counts may briefly trail the ledger.
type DrawStatsView struct {
	mu sync.RWMutex

	// totals per event class
	drawsTotal      int64
	drawsRejected   int64
	duplicatesTotal int64
	pityTotal       int64
	ticketsCredited int64

	// drawsByRarity counts committed draws per rarity tier.
	drawsByRarity map[string]int64

	// drawsByItem counts committed draws per catalog item.
	drawsByItem map[string]int64

	// lastUpdated is the timestamp of the last applied event.
	lastUpdated time.Time

	// version is incremented on each update for cache invalidation.
	version int64
}

// NewDrawStatsView creates an empty statistics view.
func NewDrawStatsView() *DrawStatsView {
	return &DrawStatsView{
		drawsByRarity: make(map[string]int64),
		drawsByItem:   make(map[string]int64),
	}
}

// HandleEvent applies one domain event to the view. It is registered on the
// event bus and must tolerate events it does not care about.
func (v *DrawStatsView) HandleEvent(event shared.Event) error {
	payload := event.Payload()

	v.mu.Lock()
	defer v.mu.Unlock()

	switch event.EventType() {
	case shared.EventDrawCommitted:
		v.drawsTotal++
		if rarity, ok := payload["rarity"].(string); ok {
			v.drawsByRarity[rarity]++
		}
		if itemID, ok := payload["item_id"].(string); ok {
			v.drawsByItem[itemID]++
		}
		if dup, ok := payload["is_duplicate"].(bool); ok && dup {
			v.duplicatesTotal++
		}
	case shared.EventDrawRejected:
		v.drawsRejected++
	case shared.EventPityTriggered:
		v.pityTotal++
	case shared.EventTicketsCredited:
		if units, ok := payload["units"].(int); ok {
			v.ticketsCredited += int64(units)
		}
	default:
		return nil
	}

	v.lastUpdated = event.OccurredAt()
	v.version++
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// SNAPSHOT QUERIES
// ══════════════════════════════════════════════════════════════════════════════

// RarityCount is one rarity tier with its draw count.
type RarityCount struct {
	Rarity string `json:"rarity"`
	Draws  int64  `json:"draws"`
}

// ItemCount is one catalog item with its draw count.
type ItemCount struct {
	ItemID string `json:"item_id"`
	Draws  int64  `json:"draws"`
}

// DrawStatsSnapshot is a point-in-time copy of the statistics.
type DrawStatsSnapshot struct {
	DrawsTotal      int64         `json:"draws_total"`
	DrawsRejected   int64         `json:"draws_rejected"`
	DuplicatesTotal int64         `json:"duplicates_total"`
	DuplicateRate   float64       `json:"duplicate_rate"`
	PityTotal       int64         `json:"pity_total"`
	TicketsCredited int64         `json:"tickets_credited"`
	ByRarity        []RarityCount `json:"by_rarity"`
	TopItems        []ItemCount   `json:"top_items"`
	LastUpdated     time.Time     `json:"last_updated"`
	Version         int64         `json:"version"`
}

// Snapshot returns a consistent copy of the current statistics. TopItems is
// capped at topN items by draw count; topN <= 0 means all items.
func (v *DrawStatsView) Snapshot(topN int) DrawStatsSnapshot {
	v.mu.RLock()
	defer v.mu.RUnlock()

	snap := DrawStatsSnapshot{
		DrawsTotal:      v.drawsTotal,
		DrawsRejected:   v.drawsRejected,
		DuplicatesTotal: v.duplicatesTotal,
		PityTotal:       v.pityTotal,
		TicketsCredited: v.ticketsCredited,
		ByRarity:        make([]RarityCount, 0, len(v.drawsByRarity)),
		TopItems:        make([]ItemCount, 0, len(v.drawsByItem)),
		LastUpdated:     v.lastUpdated,
		Version:         v.version,
	}
	if v.drawsTotal > 0 {
		snap.DuplicateRate = float64(v.duplicatesTotal) / float64(v.drawsTotal)
	}

	for rarity, draws := range v.drawsByRarity {
		snap.ByRarity = append(snap.ByRarity, RarityCount{Rarity: rarity, Draws: draws})
	}
	sort.Slice(snap.ByRarity, func(i, j int) bool {
		if snap.ByRarity[i].Draws != snap.ByRarity[j].Draws {
			return snap.ByRarity[i].Draws > snap.ByRarity[j].Draws
		}
		return snap.ByRarity[i].Rarity < snap.ByRarity[j].Rarity
	})

	for itemID, draws := range v.drawsByItem {
		snap.TopItems = append(snap.TopItems, ItemCount{ItemID: itemID, Draws: draws})
	}
	sort.Slice(snap.TopItems, func(i, j int) bool {
		if snap.TopItems[i].Draws != snap.TopItems[j].Draws {
			return snap.TopItems[i].Draws > snap.TopItems[j].Draws
		}
		return snap.TopItems[i].ItemID < snap.TopItems[j].ItemID
	})
	if topN > 0 && len(snap.TopItems) > topN {
		snap.TopItems = snap.TopItems[:topN]
	}

	return snap
}

// Reset clears all accumulated statistics.
func (v *DrawStatsView) Reset() {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.drawsTotal = 0
	v.drawsRejected = 0
	v.duplicatesTotal = 0
	v.pityTotal = 0
	v.ticketsCredited = 0
	v.drawsByRarity = make(map[string]int64)
	v.drawsByItem = make(map[string]int64)
	v.lastUpdated = time.Time{}
	v.version++
}
