package reward

import (
	"fmt"
	"time"
)

// Cause classifies a ledger entry by the operation that produced it.
type Cause string

const (
	// CauseDrawCost - the ticket deducted to pay for a draw.
	CauseDrawCost Cause = "draw-cost"
	// CauseDuplicateBonus - the compensation credited for a duplicate draw.
	CauseDuplicateBonus Cause = "duplicate-bonus"
	// CauseAccrualCredit - tickets minted when merit points crossed the
	// accrual threshold.
	CauseAccrualCredit Cause = "accrual-credit"
)

// IsValid reports whether the cause is one of the known kinds.
func (c Cause) IsValid() bool {
	switch c {
	case CauseDrawCost, CauseDuplicateBonus, CauseAccrualCredit:
		return true
	default:
		return false
	}
}

// Entry is one append-only audit record of a ticket or ownership mutation.
// Entries are never updated or deleted.
type Entry struct {
	// ID is a UUID assigned when the entry is appended.
	ID string

	// StudentID identifies the account the mutation applied to.
	StudentID string

	// TicketDelta is the signed change to the ticket balance: negative for
	// a draw cost, positive for a bonus or accrual credit.
	TicketDelta int

	// ItemID names the item a draw resolved to, empty for accrual credits.
	ItemID string

	// Cause classifies the mutation.
	Cause Cause

	// RecordedAt is when the entry was committed.
	RecordedAt time.Time
}

// Validate checks the entry's fields.
func (e Entry) Validate() error {
	if e.StudentID == "" {
		return fmt.Errorf("ledger entry: %w: student id", ErrEmptyValue)
	}
	if !e.Cause.IsValid() {
		return fmt.Errorf("ledger entry: unknown cause %q: %w", e.Cause, ErrConfigurationInvalid)
	}
	if e.Cause == CauseDrawCost && e.TicketDelta > 0 {
		return fmt.Errorf("ledger entry: draw cost delta %d must not be positive: %w", e.TicketDelta, ErrValueOutOfRange)
	}
	if e.Cause != CauseDrawCost && e.TicketDelta < 0 {
		return fmt.Errorf("ledger entry: %s delta %d must not be negative: %w", e.Cause, e.TicketDelta, ErrValueOutOfRange)
	}
	return nil
}

// DrawResult is the committed outcome of one draw returned to the caller.
type DrawResult struct {
	// Item is the catalog item the draw resolved to.
	Item CatalogItem

	// IsDuplicate is true when the student already owned the item; the
	// duplicate bonus was credited instead of granting the item again.
	IsDuplicate bool

	// PityTriggered is true when a guarantee rule overrode the rolled
	// rarity for this draw, and PityThreshold is that rule's threshold.
	PityTriggered bool
	PityThreshold int

	// TicketDelta is the net balance change: -cost for a new item,
	// bonus-cost for a duplicate.
	TicketDelta int

	// Entries are the ledger records committed for this draw: always the
	// cost entry, plus the bonus entry for duplicates.
	Entries []Entry
}

// AccrualResult is the committed outcome of one merit-point credit.
type AccrualResult struct {
	// Units is the number of whole tickets minted by this delta.
	Units int

	// NewBalance is the ticket balance after the credit.
	NewBalance int

	// NewProgress is the accrual progress after the credit.
	NewProgress int

	// Entry is the ledger record, present only when Units > 0.
	Entry *Entry
}
