package shared

import "time"

// EventType represents the type of domain event.
type EventType string

// Domain event types. Each event represents something significant that
// happened inside the reward engine and that sibling views may react to.
// Observers subscribe explicitly; nothing is broadcast ambiently.
const (
	// Accrual events
	EventMeritPointsRecorded EventType = "reward.merit_points_recorded"
	EventTicketsCredited     EventType = "reward.tickets_credited"

	// Draw events
	EventDrawCommitted EventType = "reward.draw_committed"
	EventDrawRejected  EventType = "reward.draw_rejected"
	EventPityTriggered EventType = "reward.pity_triggered"
	EventItemAcquired  EventType = "reward.item_acquired"
)

// Event is the base interface for all domain events.
type Event interface {
	// EventType returns the type of the event.
	EventType() EventType

	// OccurredAt returns when the event occurred.
	OccurredAt() time.Time

	// AggregateID returns the ID of the aggregate that produced this event.
	AggregateID() string

	// Payload returns the event data as a map for serialization.
	Payload() map[string]interface{}
}

// BaseEvent provides common event functionality.
type BaseEvent struct {
	Type          EventType `json:"type"`
	Timestamp     time.Time `json:"timestamp"`
	AggregateId   string    `json:"aggregate_id"`
	Version       int       `json:"version"`
	CorrelationID string    `json:"correlation_id,omitempty"`
}

// EventType implements Event interface.
func (e BaseEvent) EventType() EventType {
	return e.Type
}

// OccurredAt implements Event interface.
func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// AggregateID implements Event interface.
func (e BaseEvent) AggregateID() string {
	return e.AggregateId
}

// NewBaseEvent creates a new base event.
func NewBaseEvent(eventType EventType, aggregateID string) BaseEvent {
	return BaseEvent{
		Type:        eventType,
		Timestamp:   time.Now().UTC(),
		AggregateId: aggregateID,
		Version:     1,
	}
}

// WithCorrelationID sets the correlation ID for tracing.
func (e BaseEvent) WithCorrelationID(id string) BaseEvent {
	e.CorrelationID = id
	return e
}

// ═══════════════════════════════════════════════════════════════════════════
// Accrual Events
// ═══════════════════════════════════════════════════════════════════════════

// TicketsCreditedEvent is emitted when accrued merit points cross the credit
// threshold and whole ticket units are minted.
type TicketsCreditedEvent struct {
	BaseEvent
	StudentID  string `json:"student_id"`
	Units      int    `json:"units"`
	NewBalance int    `json:"new_balance"`
	Progress   int    `json:"progress"`
}

// Payload implements Event interface.
func (e TicketsCreditedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"student_id":  e.StudentID,
		"units":       e.Units,
		"new_balance": e.NewBalance,
		"progress":    e.Progress,
	}
}

// NewTicketsCreditedEvent creates a new TicketsCreditedEvent.
func NewTicketsCreditedEvent(studentID string, units, newBalance, progress int) TicketsCreditedEvent {
	return TicketsCreditedEvent{
		BaseEvent:  NewBaseEvent(EventTicketsCredited, studentID),
		StudentID:  studentID,
		Units:      units,
		NewBalance: newBalance,
		Progress:   progress,
	}
}

// MeritPointsRecordedEvent is emitted for every accepted merit-point delta,
// whether or not it minted tickets. It is the audit trail of the external
// stat tracker's signals.
type MeritPointsRecordedEvent struct {
	BaseEvent
	StudentID   string `json:"student_id"`
	Delta       int    `json:"delta"`
	NewProgress int    `json:"new_progress"`
}

// Payload implements Event interface.
func (e MeritPointsRecordedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"student_id":   e.StudentID,
		"delta":        e.Delta,
		"new_progress": e.NewProgress,
	}
}

// NewMeritPointsRecordedEvent creates a new MeritPointsRecordedEvent.
func NewMeritPointsRecordedEvent(studentID string, delta, newProgress int) MeritPointsRecordedEvent {
	return MeritPointsRecordedEvent{
		BaseEvent:   NewBaseEvent(EventMeritPointsRecorded, studentID),
		StudentID:   studentID,
		Delta:       delta,
		NewProgress: newProgress,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Draw Events
// ═══════════════════════════════════════════════════════════════════════════

// DrawCommittedEvent is emitted after a draw transaction has been fully
// committed: cost deducted, item or duplicate bonus applied, ledger appended.
type DrawCommittedEvent struct {
	BaseEvent
	StudentID     string `json:"student_id"`
	ItemID        string `json:"item_id"`
	Rarity        string `json:"rarity"`
	IsDuplicate   bool   `json:"is_duplicate"`
	PityTriggered bool   `json:"pity_triggered"`
	TicketDelta   int    `json:"ticket_delta"`
}

// Payload implements Event interface.
func (e DrawCommittedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"student_id":     e.StudentID,
		"item_id":        e.ItemID,
		"rarity":         e.Rarity,
		"is_duplicate":   e.IsDuplicate,
		"pity_triggered": e.PityTriggered,
		"ticket_delta":   e.TicketDelta,
	}
}

// NewDrawCommittedEvent creates a new DrawCommittedEvent.
func NewDrawCommittedEvent(studentID, itemID, rarity string, isDuplicate, pityTriggered bool, ticketDelta int) DrawCommittedEvent {
	return DrawCommittedEvent{
		BaseEvent:     NewBaseEvent(EventDrawCommitted, studentID),
		StudentID:     studentID,
		ItemID:        itemID,
		Rarity:        rarity,
		IsDuplicate:   isDuplicate,
		PityTriggered: pityTriggered,
		TicketDelta:   ticketDelta,
	}
}

// ItemAcquiredEvent is emitted when a draw grants an item the student did not
// own before. Duplicate draws do not emit this event.
type ItemAcquiredEvent struct {
	BaseEvent
	StudentID string `json:"student_id"`
	ItemID    string `json:"item_id"`
	Rarity    string `json:"rarity"`
	SetID     string `json:"set_id"`
}

// Payload implements Event interface.
func (e ItemAcquiredEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"student_id": e.StudentID,
		"item_id":    e.ItemID,
		"rarity":     e.Rarity,
		"set_id":     e.SetID,
	}
}

// NewItemAcquiredEvent creates a new ItemAcquiredEvent.
func NewItemAcquiredEvent(studentID, itemID, rarity, setID string) ItemAcquiredEvent {
	return ItemAcquiredEvent{
		BaseEvent: NewBaseEvent(EventItemAcquired, studentID),
		StudentID: studentID,
		ItemID:    itemID,
		Rarity:    rarity,
		SetID:     setID,
	}
}

// DrawRejectedEvent is emitted when a draw request is refused before any
// state change, for example when the ticket balance cannot cover the cost.
type DrawRejectedEvent struct {
	BaseEvent
	StudentID string `json:"student_id"`
	Reason    string `json:"reason"`
}

// Payload implements Event interface.
func (e DrawRejectedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"student_id": e.StudentID,
		"reason":     e.Reason,
	}
}

// NewDrawRejectedEvent creates a new DrawRejectedEvent.
func NewDrawRejectedEvent(studentID, reason string) DrawRejectedEvent {
	return DrawRejectedEvent{
		BaseEvent: NewBaseEvent(EventDrawRejected, studentID),
		StudentID: studentID,
		Reason:    reason,
	}
}

// PityTriggeredEvent is emitted when a guarantee rule overrode the rolled
// rarity for a draw.
type PityTriggeredEvent struct {
	BaseEvent
	StudentID    string `json:"student_id"`
	ForcedRarity string `json:"forced_rarity"`
	Threshold    int    `json:"threshold"`
}

// Payload implements Event interface.
func (e PityTriggeredEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"student_id":    e.StudentID,
		"forced_rarity": e.ForcedRarity,
		"threshold":     e.Threshold,
	}
}

// NewPityTriggeredEvent creates a new PityTriggeredEvent.
func NewPityTriggeredEvent(studentID, forcedRarity string, threshold int) PityTriggeredEvent {
	return PityTriggeredEvent{
		BaseEvent:    NewBaseEvent(EventPityTriggered, studentID),
		StudentID:    studentID,
		ForcedRarity: forcedRarity,
		Threshold:    threshold,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Event Bus Interfaces
// ═══════════════════════════════════════════════════════════════════════════

// EventHandler processes a single domain event.
type EventHandler func(event Event) error

// EventPublisher publishes domain events.
type EventPublisher interface {
	Publish(event Event) error
}

// EventSubscriber subscribes handlers to domain events.
type EventSubscriber interface {
	Subscribe(eventType EventType, handler EventHandler) error
	SubscribeAll(handler EventHandler) error
}

// EventBus combines publishing and subscribing.
type EventBus interface {
	EventPublisher
	EventSubscriber
	Close() error
}
