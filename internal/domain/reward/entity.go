// Package reward contains the domain model of the classroom reward economy:
// ticket accrual from merit points, weighted catalog draws, pity guarantees,
// and duplicate-to-bonus conversion. It is the core of the business logic
// and has no external dependencies.
package reward

import (
	"errors"
	"fmt"
	"time"

	"github.com/classdeck/reward-engine/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// DOMAIN ERRORS
// ══════════════════════════════════════════════════════════════════════════════

var (
	// ErrInsufficientTickets - the student cannot afford the draw cost.
	ErrInsufficientTickets = errors.New("insufficient tickets for draw")

	// ErrEmptyCatalogTier - a required rarity tier has no catalog items.
	ErrEmptyCatalogTier = fmt.Errorf("catalog tier has no items: %w", shared.ErrConfiguration)

	// ErrAccountNotFound - no reward account exists for the student.
	ErrAccountNotFound = errors.New("reward account not found")

	// ErrUnknownRarity - a rarity value outside the known tiers.
	ErrUnknownRarity = fmt.Errorf("unknown rarity tier: %w", shared.ErrInvalidInput)

	// ErrNoWeights - the rarity weight table is empty.
	ErrNoWeights = fmt.Errorf("no rarity weights configured: %w", shared.ErrConfiguration)

	// ErrNegativeWeight - a rarity weight below zero.
	ErrNegativeWeight = fmt.Errorf("rarity weight must be non-negative: %w", shared.ErrConfiguration)

	// ErrWeightsExceedOne - rarity weights summing to more than 1.
	ErrWeightsExceedOne = fmt.Errorf("rarity weights must not sum to more than 1: %w", shared.ErrConfiguration)

	// ErrBonusNotMonotonic - a higher tier paying a smaller duplicate bonus.
	ErrBonusNotMonotonic = fmt.Errorf("duplicate bonus must not decrease with rarity: %w", shared.ErrConfiguration)

	// ErrConfigurationInvalid - a structurally invalid reward configuration.
	ErrConfigurationInvalid = fmt.Errorf("invalid reward configuration: %w", shared.ErrConfiguration)

	// Shared validation sentinels reused for this aggregate's value checks.
	ErrValueOutOfRange = shared.ErrValueOutOfRange
	ErrNegativeValue   = shared.ErrNegativeValue
	ErrEmptyValue      = shared.ErrEmptyValue
)

// ══════════════════════════════════════════════════════════════════════════════
// MAIN ENTITY: ACCOUNT
// ══════════════════════════════════════════════════════════════════════════════

// Account is a student's reward state: spendable ticket balance, accrual
// progress toward the next ticket, the consecutive-duplicate counter that
// feeds the pity rules, and the set of owned item IDs.
//
// Accounts are mutated only through the ledger; every mutation is a single
// atomic unit serialized per student.
type Account struct {
	// StudentID references the student entity owned elsewhere.
	StudentID string

	// TicketBalance is the spendable currency. Never negative.
	TicketBalance int

	// AccrualProgress is merit points accumulated since the last ticket
	// credit. Always less than the accrual threshold.
	AccrualProgress int

	// ConsecutiveDuplicates counts duplicate draws since the last new item.
	ConsecutiveDuplicates int

	// OwnedItemIDs is the set of catalog item IDs the student owns.
	OwnedItemIDs map[string]struct{}

	// Version supports optimistic concurrency at the persistence layer.
	Version int

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewAccount creates a zero-state account for a student. Accounts are
// provisioned lazily on the first reward operation.
func NewAccount(studentID string) (*Account, error) {
	if studentID == "" {
		return nil, fmt.Errorf("account: %w: student id", ErrEmptyValue)
	}

	now := time.Now().UTC()
	return &Account{
		StudentID:    studentID,
		OwnedItemIDs: make(map[string]struct{}),
		Version:      1,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// Owns reports whether the student already owns the item.
func (a *Account) Owns(itemID string) bool {
	_, ok := a.OwnedItemIDs[itemID]
	return ok
}

// CanAfford reports whether the balance covers the given cost.
func (a *Account) CanAfford(cost int) bool {
	return a.TicketBalance >= cost
}

// CreditTickets adds whole ticket units and records the new accrual
// progress. Units may be zero when a delta did not cross the threshold.
func (a *Account) CreditTickets(units, newProgress int) error {
	if units < 0 {
		return fmt.Errorf("account %s: credit units %d: %w", a.StudentID, units, ErrNegativeValue)
	}
	if newProgress < 0 {
		return fmt.Errorf("account %s: accrual progress %d: %w", a.StudentID, newProgress, ErrNegativeValue)
	}

	a.TicketBalance += units
	a.AccrualProgress = newProgress
	a.UpdatedAt = time.Now().UTC()
	return nil
}

// ApplyNewItem commits a non-duplicate draw: deduct the cost, grant the
// item exactly once, reset the duplicate counter.
func (a *Account) ApplyNewItem(item CatalogItem, cost int) error {
	if err := a.spend(cost); err != nil {
		return err
	}
	a.OwnedItemIDs[item.ID] = struct{}{}
	a.ConsecutiveDuplicates = 0
	a.UpdatedAt = time.Now().UTC()
	return nil
}

// ApplyDuplicate commits a duplicate draw: deduct the cost, credit the
// bonus, bump the duplicate counter. The owned set is untouched.
func (a *Account) ApplyDuplicate(bonus, cost int) error {
	if bonus < 0 {
		return fmt.Errorf("account %s: duplicate bonus %d: %w", a.StudentID, bonus, ErrNegativeValue)
	}
	if err := a.spend(cost); err != nil {
		return err
	}
	a.TicketBalance += bonus
	a.ConsecutiveDuplicates++
	a.UpdatedAt = time.Now().UTC()
	return nil
}

// spend deducts cost from the balance, refusing to go negative.
func (a *Account) spend(cost int) error {
	if cost < 0 {
		return fmt.Errorf("account %s: draw cost %d: %w", a.StudentID, cost, ErrNegativeValue)
	}
	if a.TicketBalance < cost {
		return fmt.Errorf("account %s: balance %d, cost %d: %w",
			a.StudentID, a.TicketBalance, cost, ErrInsufficientTickets)
	}
	a.TicketBalance -= cost
	return nil
}

// OwnedCount returns the number of distinct items owned.
func (a *Account) OwnedCount() int {
	return len(a.OwnedItemIDs)
}

// String returns a compact representation for logging.
func (a *Account) String() string {
	return fmt.Sprintf(
		"Account{Student: %s, Tickets: %d, Progress: %d, Dupes: %d, Items: %d}",
		a.StudentID, a.TicketBalance, a.AccrualProgress, a.ConsecutiveDuplicates, len(a.OwnedItemIDs),
	)
}

// Clone creates a deep copy of the account.
func (a *Account) Clone() *Account {
	if a == nil {
		return nil
	}

	clone := *a
	clone.OwnedItemIDs = make(map[string]struct{}, len(a.OwnedItemIDs))
	for id := range a.OwnedItemIDs {
		clone.OwnedItemIDs[id] = struct{}{}
	}
	return &clone
}
