package command

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/classdeck/reward-engine/internal/domain/reward"
	"github.com/classdeck/reward-engine/internal/domain/shared"
)

func drawTestConfig(t *testing.T, random reward.RandomSource) RequestDrawHandlerConfig {
	t.Helper()

	catalog, err := reward.NewCatalog([]reward.CatalogItem{
		{ID: "sticker-star", Rarity: reward.RarityCommon, SetID: "stickers"},
		{ID: "sticker-moon", Rarity: reward.RarityCommon, SetID: "stickers"},
		{ID: "badge-silver", Rarity: reward.RarityRare, SetID: "badges"},
		{ID: "badge-gold", Rarity: reward.RarityEpic, SetID: "badges"},
		{ID: "trophy-class", Rarity: reward.RarityLegendary, SetID: "trophies"},
	})
	require.NoError(t, err)

	rules, err := reward.NewPityTable([]reward.PityRule{
		{Threshold: 5, ForcedRarity: reward.RarityEpic},
	})
	require.NoError(t, err)

	return RequestDrawHandlerConfig{
		Catalog: catalog,
		Weights: reward.RarityWeights{
			reward.RarityLegendary: 0.01,
			reward.RarityEpic:      0.07,
			reward.RarityRare:      0.22,
			reward.RarityCommon:    0.70,
		},
		PityRules: rules,
		Duplicates: reward.DuplicateRewardTable{
			reward.RarityCommon:    1,
			reward.RarityRare:      2,
			reward.RarityEpic:      4,
			reward.RarityLegendary: 10,
		},
		Random:   random,
		DrawCost: 1,
	}
}

func TestRequestDraw_InsufficientTickets(t *testing.T) {
	ledger := newMemLedger(5)
	pub := &fakePublisher{}
	h := NewRequestDrawHandler(ledger, &fakeCache{}, pub, drawTestConfig(t, reward.FixedSource(0.5)))

	_, err := h.Handle(context.Background(), RequestDrawCommand{StudentID: "s1"})
	assert.ErrorIs(t, err, reward.ErrInsufficientTickets)

	// A rejected draw changes nothing.
	acc := ledger.snapshot("s1")
	assert.Equal(t, 0, acc.TicketBalance)
	assert.Equal(t, 0, acc.ConsecutiveDuplicates)
	assert.Equal(t, 0, acc.OwnedCount())
	assert.Empty(t, ledger.entriesFor("s1"))

	// The refusal itself is observable.
	events := pub.published()
	require.Len(t, events, 1)
	assert.Equal(t, shared.EventDrawRejected, events[0].EventType())
}

func TestRequestDraw_NewItem(t *testing.T) {
	ledger := newMemLedger(5)
	pub := &fakePublisher{}
	// Roll 0.5 lands in the common band; first common item at roll 0.5 of 2.
	h := NewRequestDrawHandler(ledger, &fakeCache{}, pub, drawTestConfig(t, reward.FixedSource(0.5)))

	_, err := ledger.Credit(context.Background(), "s1", 10) // 2 tickets
	require.NoError(t, err)

	res, err := h.Handle(context.Background(), RequestDrawCommand{StudentID: "s1"})
	require.NoError(t, err)

	assert.Equal(t, reward.RarityCommon, res.Rarity)
	assert.False(t, res.IsDuplicate)
	assert.False(t, res.PityTriggered)
	assert.Equal(t, -1, res.TicketDelta)
	require.Len(t, res.Entries, 1)
	assert.Equal(t, reward.CauseDrawCost, res.Entries[0].Cause)

	acc := ledger.snapshot("s1")
	assert.Equal(t, 1, acc.TicketBalance)
	assert.True(t, acc.Owns(res.ItemID))
	assert.Equal(t, 0, acc.ConsecutiveDuplicates)

	types := eventTypes(pub.published())
	assert.Contains(t, types, shared.EventDrawCommitted)
	assert.Contains(t, types, shared.EventItemAcquired)
	assert.NotContains(t, types, shared.EventPityTriggered)
}

func TestRequestDraw_Duplicate(t *testing.T) {
	ledger := newMemLedger(5)
	pub := &fakePublisher{}
	h := NewRequestDrawHandler(ledger, &fakeCache{}, pub, drawTestConfig(t, reward.FixedSource(0.5)))

	_, err := ledger.Credit(context.Background(), "s1", 15) // 3 tickets
	require.NoError(t, err)

	first, err := h.Handle(context.Background(), RequestDrawCommand{StudentID: "s1"})
	require.NoError(t, err)
	require.False(t, first.IsDuplicate)

	// Same fixed roll resolves to the same item again.
	second, err := h.Handle(context.Background(), RequestDrawCommand{StudentID: "s1"})
	require.NoError(t, err)

	assert.True(t, second.IsDuplicate)
	assert.Equal(t, first.ItemID, second.ItemID)
	assert.Equal(t, 0, second.TicketDelta) // -1 cost +1 common bonus
	require.Len(t, second.Entries, 2)
	assert.Equal(t, reward.CauseDrawCost, second.Entries[0].Cause)
	assert.Equal(t, reward.CauseDuplicateBonus, second.Entries[1].Cause)
	assert.Equal(t, 1, second.Entries[1].TicketDelta)

	acc := ledger.snapshot("s1")
	assert.Equal(t, 1, acc.OwnedCount(), "owned set unchanged by the duplicate")
	assert.Equal(t, 1, acc.ConsecutiveDuplicates)

	types := eventTypes(pub.published())
	assert.NotContains(t, types, shared.EventPityTriggered)
}

// With the counter one short of the threshold, the next draw completes the
// run: its rarity is forced regardless of the roll, the counter resets, and
// the new item is granted.
func TestRequestDraw_PityForcesEpic(t *testing.T) {
	ledger := newMemLedger(5)
	pub := &fakePublisher{}
	h := NewRequestDrawHandler(ledger, &fakeCache{}, pub, drawTestConfig(t, reward.FixedSource(0.99)))

	// Reach four consecutive duplicates by drawing the same common item
	// repeatedly with a roll pinned deep in the common band.
	commonHandler := NewRequestDrawHandler(ledger, &fakeCache{}, &fakePublisher{}, drawTestConfig(t, reward.FixedSource(0.5)))
	_, err := ledger.Credit(context.Background(), "s1", 35) // 7 tickets
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		_, err := commonHandler.Handle(context.Background(), RequestDrawCommand{StudentID: "s1"})
		require.NoError(t, err)
	}
	require.Equal(t, 4, ledger.snapshot("s1").ConsecutiveDuplicates)

	// Roll 0.99 would resolve common, but the guarantee forces epic.
	res, err := h.Handle(context.Background(), RequestDrawCommand{StudentID: "s1"})
	require.NoError(t, err)

	assert.True(t, res.PityTriggered)
	assert.Equal(t, reward.RarityEpic, res.Rarity)
	assert.False(t, res.IsDuplicate)

	acc := ledger.snapshot("s1")
	assert.Equal(t, 0, acc.ConsecutiveDuplicates, "new item resets the counter")
	assert.True(t, acc.Owns("badge-gold"))

	types := eventTypes(pub.published())
	assert.Contains(t, types, shared.EventPityTriggered)

	for _, e := range pub.published() {
		if pity, ok := e.(shared.PityTriggeredEvent); ok {
			assert.Equal(t, 5, pity.Threshold)
			assert.Equal(t, "epic", pity.ForcedRarity)
		}
	}
}

// A student down to their last ticket after four straight duplicates is
// guaranteed the forced tier on the fifth draw.
func TestRequestDraw_PityFiresOnLastTicket(t *testing.T) {
	ledger := newMemLedger(5)
	pub := &fakePublisher{}
	h := NewRequestDrawHandler(ledger, &fakeCache{}, pub, drawTestConfig(t, reward.FixedSource(0.99)))

	acc, err := reward.NewAccount("s1")
	require.NoError(t, err)
	acc.TicketBalance = 1
	acc.ConsecutiveDuplicates = 4
	ledger.accounts["s1"] = acc

	res, err := h.Handle(context.Background(), RequestDrawCommand{StudentID: "s1"})
	require.NoError(t, err)

	assert.True(t, res.PityTriggered)
	assert.Equal(t, reward.RarityEpic, res.Rarity)

	after := ledger.snapshot("s1")
	assert.Equal(t, 0, after.TicketBalance)
	assert.Equal(t, 0, after.ConsecutiveDuplicates)
}

func TestRequestDraw_EmptyForcedTierAborted(t *testing.T) {
	catalog, err := reward.NewCatalog([]reward.CatalogItem{
		{ID: "sticker-star", Rarity: reward.RarityCommon, SetID: "stickers"},
	})
	require.NoError(t, err)
	rules, err := reward.NewPityTable([]reward.PityRule{
		{Threshold: 2, ForcedRarity: reward.RarityEpic},
	})
	require.NoError(t, err)

	ledger := newMemLedger(5)
	h := NewRequestDrawHandler(ledger, &fakeCache{}, &fakePublisher{}, RequestDrawHandlerConfig{
		Catalog:    catalog,
		Weights:    reward.RarityWeights{reward.RarityCommon: 1.0},
		PityRules:  rules,
		Duplicates: reward.DuplicateRewardTable{reward.RarityCommon: 1, reward.RarityRare: 1, reward.RarityEpic: 1, reward.RarityLegendary: 1},
		Random:     reward.FixedSource(0.5),
		DrawCost:   1,
	})

	_, err = ledger.Credit(context.Background(), "s1", 10)
	require.NoError(t, err)

	// First draw owns the only common item.
	_, err = h.Handle(context.Background(), RequestDrawCommand{StudentID: "s1"})
	require.NoError(t, err)

	// Second draw duplicates, counter 1; the third draw would be the second
	// consecutive duplicate, so the pity rule forces epic, which has no items.
	_, err = h.Handle(context.Background(), RequestDrawCommand{StudentID: "s1"})
	require.NoError(t, err)

	before := ledger.snapshot("s1")
	_, err = h.Handle(context.Background(), RequestDrawCommand{StudentID: "s1"})
	assert.ErrorIs(t, err, reward.ErrEmptyCatalogTier)

	// The aborted draw applied nothing.
	after := ledger.snapshot("s1")
	assert.Equal(t, before.TicketBalance, after.TicketBalance)
	assert.Equal(t, before.ConsecutiveDuplicates, after.ConsecutiveDuplicates)
}

func eventTypes(events []shared.Event) []shared.EventType {
	types := make([]shared.EventType, 0, len(events))
	for _, e := range events {
		types = append(types, e.EventType())
	}
	return types
}
