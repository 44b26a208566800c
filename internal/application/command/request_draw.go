package command

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/classdeck/reward-engine/internal/domain/reward"
	"github.com/classdeck/reward-engine/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// REQUEST DRAW COMMAND
// Orchestrates one draw: pity check, rarity roll, item selection, duplicate
// conversion, and the atomic ledger commit. The whole resolution runs inside
// the ledger's transaction, so the counters it reads are the counters the
// commit applies to.
// ══════════════════════════════════════════════════════════════════════════════

// RequestDrawCommand asks for one draw on behalf of a student.
type RequestDrawCommand struct {
	// StudentID is the internal ID of the student.
	StudentID string

	// CorrelationID for tracing.
	CorrelationID string
}

// Validate validates the command.
func (c RequestDrawCommand) Validate() error {
	if c.StudentID == "" {
		return fmt.Errorf("request_draw: student_id is required: %w", shared.ErrInvalidID)
	}
	return nil
}

// RequestDrawResult contains the committed outcome of one draw.
type RequestDrawResult struct {
	// StudentID is the internal ID of the student.
	StudentID string

	// ItemID is the catalog item the draw resolved to.
	ItemID string

	// ItemName is the display name of the item.
	ItemName string

	// Rarity is the resolved rarity tier.
	Rarity reward.Rarity

	// SetID groups the item for collection views.
	SetID string

	// IsDuplicate is true when the student already owned the item.
	IsDuplicate bool

	// PityTriggered is true when a guarantee rule forced the rarity.
	PityTriggered bool

	// TicketDelta is the net balance change applied by the draw.
	TicketDelta int

	// Entries are the ledger records committed for this draw.
	Entries []reward.Entry

	// Events contains domain events generated.
	Events []shared.Event

	// RecordedAt is when the draw was committed.
	RecordedAt time.Time
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// RequestDrawHandler handles the RequestDrawCommand.
type RequestDrawHandler struct {
	ledger         reward.Ledger
	cache          reward.Cache
	eventPublisher shared.EventPublisher

	catalog    *reward.Catalog
	weights    reward.RarityWeights
	pityRules  reward.PityTable
	duplicates reward.DuplicateRewardTable
	random     reward.RandomSource

	drawCost int
}

// RequestDrawHandlerConfig contains the read-only draw configuration.
type RequestDrawHandlerConfig struct {
	Catalog    *reward.Catalog
	Weights    reward.RarityWeights
	PityRules  reward.PityTable
	Duplicates reward.DuplicateRewardTable
	Random     reward.RandomSource
	DrawCost   int
}

// NewRequestDrawHandler creates a new RequestDrawHandler.
// The cache may be nil when Redis is disabled.
func NewRequestDrawHandler(
	ledger reward.Ledger,
	cache reward.Cache,
	eventPublisher shared.EventPublisher,
	config RequestDrawHandlerConfig,
) *RequestDrawHandler {
	random := config.Random
	if random == nil {
		random = reward.NewCryptoSource()
	}
	cost := config.DrawCost
	if cost < 1 {
		cost = 1
	}

	return &RequestDrawHandler{
		ledger:         ledger,
		cache:          cache,
		eventPublisher: eventPublisher,
		catalog:        config.Catalog,
		weights:        config.Weights,
		pityRules:      config.PityRules,
		duplicates:     config.Duplicates,
		random:         random,
		drawCost:       cost,
	}
}

// Handle executes the request draw command.
//
// The resolver runs while the ledger holds the student's row lock: the
// duplicate counter that feeds the pity check and the owned set that feeds
// the duplicate check cannot change between resolution and commit.
func (h *RequestDrawHandler) Handle(ctx context.Context, cmd RequestDrawCommand) (*RequestDrawResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("request_draw: validation failed: %w", err)
	}

	res, err := h.ledger.ApplyDraw(ctx, cmd.StudentID, h.drawCost, h.resolve)
	if err != nil {
		if errors.Is(err, reward.ErrInsufficientTickets) {
			rejected := shared.NewDrawRejectedEvent(cmd.StudentID, "insufficient_tickets")
			if cmd.CorrelationID != "" {
				rejected.BaseEvent = rejected.BaseEvent.WithCorrelationID(cmd.CorrelationID)
			}
			_ = h.eventPublisher.Publish(rejected)
		}
		return nil, fmt.Errorf("request_draw: %w", err)
	}

	if h.cache != nil {
		_ = h.cache.Invalidate(ctx, cmd.StudentID)
	}

	result := &RequestDrawResult{
		StudentID:     cmd.StudentID,
		ItemID:        res.Item.ID,
		ItemName:      res.Item.Name,
		Rarity:        res.Item.Rarity,
		SetID:         res.Item.SetID,
		IsDuplicate:   res.IsDuplicate,
		PityTriggered: res.PityTriggered,
		TicketDelta:   res.TicketDelta,
		Entries:       res.Entries,
		Events:        make([]shared.Event, 0, 3),
		RecordedAt:    time.Now().UTC(),
	}

	result.Events = append(result.Events, h.buildEvents(cmd, res)...)
	for _, event := range result.Events {
		_ = h.eventPublisher.Publish(event)
	}

	return result, nil
}

// resolve determines the draw outcome against the locked account state.
func (h *RequestDrawHandler) resolve(account *reward.Account) (reward.DrawOutcome, error) {
	var tier reward.Rarity
	var pityTriggered bool

	var pityThreshold int
	if rule, ok := h.pityRules.ActiveRule(account.ConsecutiveDuplicates); ok {
		// An exact override of the roll, not a floor.
		tier = rule.ForcedRarity
		pityTriggered = true
		pityThreshold = rule.Threshold
	} else {
		tier = h.weights.Resolve(h.random)
	}

	item, err := h.catalog.RandomItem(tier, h.random)
	if err != nil {
		return reward.DrawOutcome{}, err
	}

	outcome := reward.DrawOutcome{
		Item:          item,
		PityTriggered: pityTriggered,
		PityThreshold: pityThreshold,
	}
	if account.Owns(item.ID) {
		outcome.IsDuplicate = true
		outcome.Bonus = h.duplicates.BonusFor(item.Rarity)
	}
	return outcome, nil
}

func (h *RequestDrawHandler) buildEvents(cmd RequestDrawCommand, res *reward.DrawResult) []shared.Event {
	events := make([]shared.Event, 0, 3)

	committed := shared.NewDrawCommittedEvent(
		cmd.StudentID,
		res.Item.ID,
		res.Item.Rarity.String(),
		res.IsDuplicate,
		res.PityTriggered,
		res.TicketDelta,
	)
	if cmd.CorrelationID != "" {
		committed.BaseEvent = committed.BaseEvent.WithCorrelationID(cmd.CorrelationID)
	}
	events = append(events, committed)

	if !res.IsDuplicate {
		acquired := shared.NewItemAcquiredEvent(cmd.StudentID, res.Item.ID, res.Item.Rarity.String(), res.Item.SetID)
		if cmd.CorrelationID != "" {
			acquired.BaseEvent = acquired.BaseEvent.WithCorrelationID(cmd.CorrelationID)
		}
		events = append(events, acquired)
	}

	if res.PityTriggered {
		pity := shared.NewPityTriggeredEvent(cmd.StudentID, res.Item.Rarity.String(), res.PityThreshold)
		if cmd.CorrelationID != "" {
			pity.BaseEvent = pity.BaseEvent.WithCorrelationID(cmd.CorrelationID)
		}
		events = append(events, pity)
	}

	return events
}
