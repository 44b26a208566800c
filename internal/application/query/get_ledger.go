package query

import (
	"context"
	"fmt"
	"time"

	"github.com/classdeck/reward-engine/internal/domain/reward"
	"github.com/classdeck/reward-engine/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET LEDGER QUERY
// Returns a student's acquisition history from the append-only ledger, for
// audit and history views. Not required for engine correctness.
// ══════════════════════════════════════════════════════════════════════════════

// GetLedgerQuery contains the parameters for the ledger listing.
type GetLedgerQuery struct {
	// StudentID - internal ID of the student.
	StudentID string

	// Offset - number of entries to skip.
	Offset int

	// Limit - maximum entries to return (default 50, capped at 200).
	Limit int

	// Since - include only entries recorded at or after this time.
	Since time.Time
}

// Validate checks and normalizes the query parameters.
func (q *GetLedgerQuery) Validate() error {
	if q.StudentID == "" {
		return fmt.Errorf("get_ledger: student_id is required: %w", shared.ErrInvalidID)
	}
	if q.Offset < 0 {
		q.Offset = 0
	}
	if q.Limit <= 0 {
		q.Limit = 50
	}
	if q.Limit > 200 {
		q.Limit = 200
	}
	return nil
}

// LedgerEntryDTO is one ledger record for presentation.
type LedgerEntryDTO struct {
	ID          string    `json:"id"`
	TicketDelta int       `json:"ticket_delta"`
	ItemID      string    `json:"item_id,omitempty"`
	ItemName    string    `json:"item_name,omitempty"`
	Rarity      string    `json:"rarity,omitempty"`
	Cause       string    `json:"cause"`
	RecordedAt  time.Time `json:"recorded_at"`
}

// LedgerPageDTO is one page of a student's ledger.
type LedgerPageDTO struct {
	StudentID string           `json:"student_id"`
	Total     int              `json:"total"`
	Offset    int              `json:"offset"`
	Limit     int              `json:"limit"`
	Entries   []LedgerEntryDTO `json:"entries"`
}

// GetLedgerHandler handles the GetLedgerQuery.
type GetLedgerHandler struct {
	repo     reward.LedgerRepository
	accounts reward.AccountRepository
	catalog  *reward.Catalog
}

// NewGetLedgerHandler creates a new GetLedgerHandler.
func NewGetLedgerHandler(repo reward.LedgerRepository, accounts reward.AccountRepository, catalog *reward.Catalog) *GetLedgerHandler {
	return &GetLedgerHandler{repo: repo, accounts: accounts, catalog: catalog}
}

// Handle executes the get ledger query.
func (h *GetLedgerHandler) Handle(ctx context.Context, q GetLedgerQuery) (*LedgerPageDTO, error) {
	if err := q.Validate(); err != nil {
		return nil, fmt.Errorf("get_ledger: %w", err)
	}

	opts := reward.DefaultListOptions().
		WithOffset(q.Offset).
		WithLimit(q.Limit).
		WithSince(q.Since)

	entries, err := h.repo.ListByStudent(ctx, q.StudentID, opts)
	if err != nil {
		return nil, fmt.Errorf("get_ledger: list entries: %w", err)
	}

	total, err := h.repo.CountByStudent(ctx, q.StudentID)
	if err != nil {
		return nil, fmt.Errorf("get_ledger: count entries: %w", err)
	}

	// An empty ledger is normal for a known student; for a student the
	// engine has never seen, say so instead of serving an empty page.
	if total == 0 {
		exists, err := h.accounts.Exists(ctx, q.StudentID)
		if err != nil {
			return nil, fmt.Errorf("get_ledger: check account: %w", err)
		}
		if !exists {
			return nil, fmt.Errorf("get_ledger: student %s: %w", q.StudentID, reward.ErrAccountNotFound)
		}
	}

	page := &LedgerPageDTO{
		StudentID: q.StudentID,
		Total:     total,
		Offset:    q.Offset,
		Limit:     q.Limit,
		Entries:   make([]LedgerEntryDTO, 0, len(entries)),
	}

	for _, e := range entries {
		dto := LedgerEntryDTO{
			ID:          e.ID,
			TicketDelta: e.TicketDelta,
			ItemID:      e.ItemID,
			Cause:       string(e.Cause),
			RecordedAt:  e.RecordedAt,
		}
		if e.ItemID != "" {
			if item, ok := h.catalog.Item(e.ItemID); ok {
				dto.ItemName = item.Name
				dto.Rarity = item.Rarity.String()
			}
		}
		page.Entries = append(page.Entries, dto)
	}

	return page, nil
}
