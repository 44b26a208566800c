// Package command contains write operations (CQRS - Commands).
package command

import (
	"context"
	"fmt"
	"time"

	"github.com/classdeck/reward-engine/internal/domain/reward"
	"github.com/classdeck/reward-engine/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// AWARD MERIT POINTS COMMAND
// Reacts to the external stat tracker's "points changed" signal and feeds the
// delta into ticket accrual. The engine never decides when points are granted.
// ══════════════════════════════════════════════════════════════════════════════

// AwardMeritPointsCommand carries one merit-point delta for a student.
// Delta is negative when the stat tracker reverses a previous grant.
type AwardMeritPointsCommand struct {
	// StudentID is the internal ID of the student.
	StudentID string

	// Delta is the signed merit-point change.
	Delta int

	// CorrelationID for tracing.
	CorrelationID string
}

// Validate validates the command.
func (c AwardMeritPointsCommand) Validate() error {
	if c.StudentID == "" {
		return fmt.Errorf("award_points: student_id is required: %w", shared.ErrInvalidID)
	}
	if c.Delta == 0 {
		return fmt.Errorf("award_points: delta must be non-zero: %w", shared.ErrValidation)
	}
	return nil
}

// AwardMeritPointsResult contains the committed outcome of one accrual.
type AwardMeritPointsResult struct {
	// StudentID is the internal ID of the student.
	StudentID string

	// Delta is the applied merit-point change.
	Delta int

	// UnitsCredited is the number of whole tickets minted by this delta.
	UnitsCredited int

	// NewBalance is the ticket balance after the credit.
	NewBalance int

	// NewProgress is the accrual progress after the credit.
	NewProgress int

	// Events contains domain events generated.
	Events []shared.Event

	// RecordedAt is when the credit was committed.
	RecordedAt time.Time
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// AwardMeritPointsHandler handles the AwardMeritPointsCommand.
type AwardMeritPointsHandler struct {
	ledger         reward.Ledger
	cache          reward.Cache
	eventPublisher shared.EventPublisher
}

// NewAwardMeritPointsHandler creates a new AwardMeritPointsHandler.
// The cache may be nil when Redis is disabled.
func NewAwardMeritPointsHandler(
	ledger reward.Ledger,
	cache reward.Cache,
	eventPublisher shared.EventPublisher,
) *AwardMeritPointsHandler {
	return &AwardMeritPointsHandler{
		ledger:         ledger,
		cache:          cache,
		eventPublisher: eventPublisher,
	}
}

// Handle executes the award merit points command.
func (h *AwardMeritPointsHandler) Handle(ctx context.Context, cmd AwardMeritPointsCommand) (*AwardMeritPointsResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("award_points: validation failed: %w", err)
	}

	res, err := h.ledger.Credit(ctx, cmd.StudentID, cmd.Delta)
	if err != nil {
		return nil, fmt.Errorf("award_points: credit failed: %w", err)
	}

	// The balance changed; drop the stale snapshot.
	if h.cache != nil {
		_ = h.cache.Invalidate(ctx, cmd.StudentID)
	}

	result := &AwardMeritPointsResult{
		StudentID:     cmd.StudentID,
		Delta:         cmd.Delta,
		UnitsCredited: res.Units,
		NewBalance:    res.NewBalance,
		NewProgress:   res.NewProgress,
		Events:        make([]shared.Event, 0, 2),
		RecordedAt:    time.Now().UTC(),
	}

	recorded := shared.NewMeritPointsRecordedEvent(cmd.StudentID, cmd.Delta, res.NewProgress)
	if cmd.CorrelationID != "" {
		recorded.BaseEvent = recorded.BaseEvent.WithCorrelationID(cmd.CorrelationID)
	}
	result.Events = append(result.Events, recorded)

	if res.Units > 0 {
		event := shared.NewTicketsCreditedEvent(cmd.StudentID, res.Units, res.NewBalance, res.NewProgress)
		if cmd.CorrelationID != "" {
			event.BaseEvent = event.BaseEvent.WithCorrelationID(cmd.CorrelationID)
		}
		result.Events = append(result.Events, event)
	}

	for _, event := range result.Events {
		_ = h.eventPublisher.Publish(event)
	}

	return result, nil
}
