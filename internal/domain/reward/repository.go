package reward

import (
	"context"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// REPOSITORY INTERFACES
// These interfaces define the contract for reward state persistence.
// Implementations live in infrastructure/persistence.
// ══════════════════════════════════════════════════════════════════════════════

// AccountRepository covers the read side of reward accounts. All writes go
// through the Ledger.
type AccountRepository interface {
	// GetByStudent returns a student's reward account.
	// Returns ErrAccountNotFound if no account exists yet.
	GetByStudent(ctx context.Context, studentID string) (*Account, error)

	// Exists checks whether a reward account exists for the student.
	Exists(ctx context.Context, studentID string) (bool, error)
}

// DrawOutcome is the resolved result of a draw before it is committed: the
// selected item, whether it duplicates an owned item, whether pity fired,
// and the bonus to credit for a duplicate.
type DrawOutcome struct {
	Item          CatalogItem
	IsDuplicate   bool
	PityTriggered bool
	PityThreshold int
	Bonus         int
}

// DrawResolver resolves a draw outcome against the account's current state.
// The ledger invokes it while the account row is locked, so the duplicate
// counter and owned set it reads cannot change before the commit.
type DrawResolver func(account *Account) (DrawOutcome, error)

// Ledger is the sole mutation boundary for reward accounts. Each method is
// one atomic unit of work, serialized per student: no concurrent reader
// observes a partially applied operation, and concurrent operations on
// different students do not block each other.
//
// Accounts are provisioned lazily with zero defaults on first use.
type Ledger interface {
	// Credit applies a merit-point delta to the student's accrual progress
	// and mints whole tickets when the threshold is crossed. Negative
	// deltas drain progress down to zero and never revoke minted tickets.
	Credit(ctx context.Context, studentID string, delta int) (*AccrualResult, error)

	// ApplyDraw runs one draw as a single transaction: load and lock the
	// account, verify the balance covers cost, resolve the outcome via the
	// callback, apply the mutation, append the ledger entries, commit.
	// Returns ErrInsufficientTickets without any mutation when the balance
	// is too low.
	ApplyDraw(ctx context.Context, studentID string, cost int, resolve DrawResolver) (*DrawResult, error)
}

// LedgerRepository covers the read side of the append-only ledger, consumed
// by audit and acquisition-history views.
type LedgerRepository interface {
	// ListByStudent returns a student's ledger entries, newest first.
	ListByStudent(ctx context.Context, studentID string, opts ListOptions) ([]Entry, error)

	// CountByStudent returns the number of entries for a student.
	CountByStudent(ctx context.Context, studentID string) (int, error)
}

// ListOptions contains pagination parameters for ledger queries.
type ListOptions struct {
	// Offset - number of entries to skip.
	Offset int

	// Limit - maximum number of entries to return.
	Limit int

	// Since - include only entries recorded at or after this time.
	Since time.Time
}

// DefaultListOptions returns the default pagination parameters.
func DefaultListOptions() ListOptions {
	return ListOptions{
		Offset: 0,
		Limit:  50,
	}
}

// WithOffset sets the offset.
func (o ListOptions) WithOffset(offset int) ListOptions {
	o.Offset = offset
	return o
}

// WithLimit sets the limit.
func (o ListOptions) WithLimit(limit int) ListOptions {
	o.Limit = limit
	return o
}

// WithSince restricts results to entries recorded at or after t.
func (o ListOptions) WithSince(t time.Time) ListOptions {
	o.Since = t
	return o
}

// ══════════════════════════════════════════════════════════════════════════════
// CACHE INTERFACE
// ══════════════════════════════════════════════════════════════════════════════

// Cache defines caching operations for account snapshots. The ledger
// invalidates on every commit; readers fall through to the repository on
// a miss.
type Cache interface {
	// Get fetches an account snapshot from the cache.
	Get(ctx context.Context, studentID string) (*Account, error)

	// Set stores an account snapshot with a TTL.
	Set(ctx context.Context, account *Account, ttl time.Duration) error

	// Invalidate removes a student's cached snapshot.
	Invalidate(ctx context.Context, studentID string) error
}
