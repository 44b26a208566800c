// Package query contains read operations (CQRS - Queries).
package query

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/classdeck/reward-engine/internal/domain/reward"
	"github.com/classdeck/reward-engine/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET ACCOUNT QUERY
// Returns a student's reward snapshot for the presentation layer: tickets,
// accrual progress, duplicate streak, and the owned collection.
// ══════════════════════════════════════════════════════════════════════════════

// GetAccountQuery contains the parameters for the account snapshot.
type GetAccountQuery struct {
	// StudentID - internal ID of the student.
	StudentID string
}

// Validate checks the query parameters.
func (q *GetAccountQuery) Validate() error {
	if q.StudentID == "" {
		return fmt.Errorf("get_account: student_id is required: %w", shared.ErrInvalidID)
	}
	return nil
}

// OwnedItemDTO is one owned catalog item enriched with catalog data.
type OwnedItemDTO struct {
	ID     string `json:"id"`
	Name   string `json:"name,omitempty"`
	Rarity string `json:"rarity"`
	SetID  string `json:"set_id"`
}

// AccountDTO is the presentation snapshot of a reward account.
type AccountDTO struct {
	StudentID             string         `json:"student_id"`
	TicketBalance         int            `json:"ticket_balance"`
	AccrualProgress       int            `json:"accrual_progress"`
	AccrualThreshold      int            `json:"accrual_threshold"`
	ConsecutiveDuplicates int            `json:"consecutive_duplicates"`
	OwnedItems            []OwnedItemDTO `json:"owned_items"`
	UpdatedAt             time.Time      `json:"updated_at"`
}

// GetAccountHandler handles the GetAccountQuery.
//
// Reads go through the cache first and fall back to the repository. A
// student with no account yet gets a zero snapshot, matching the lazy
// provisioning done on the write path.
type GetAccountHandler struct {
	repo    reward.AccountRepository
	cache   reward.Cache
	catalog *reward.Catalog

	accrualThreshold int
	cacheTTL         time.Duration
}

// NewGetAccountHandler creates a new GetAccountHandler.
// The cache may be nil when Redis is disabled.
func NewGetAccountHandler(
	repo reward.AccountRepository,
	cache reward.Cache,
	catalog *reward.Catalog,
	accrualThreshold int,
	cacheTTL time.Duration,
) *GetAccountHandler {
	return &GetAccountHandler{
		repo:             repo,
		cache:            cache,
		catalog:          catalog,
		accrualThreshold: accrualThreshold,
		cacheTTL:         cacheTTL,
	}
}

// Handle executes the get account query.
func (h *GetAccountHandler) Handle(ctx context.Context, q GetAccountQuery) (*AccountDTO, error) {
	if err := q.Validate(); err != nil {
		return nil, fmt.Errorf("get_account: %w", err)
	}

	account, err := h.load(ctx, q.StudentID)
	if err != nil {
		return nil, fmt.Errorf("get_account: %w", err)
	}

	return h.toDTO(account), nil
}

func (h *GetAccountHandler) load(ctx context.Context, studentID string) (*reward.Account, error) {
	if h.cache != nil {
		if cached, err := h.cache.Get(ctx, studentID); err == nil && cached != nil {
			return cached, nil
		}
	}

	account, err := h.repo.GetByStudent(ctx, studentID)
	if err != nil {
		if errors.Is(err, reward.ErrAccountNotFound) {
			// No reward operation has touched this student yet.
			return reward.NewAccount(studentID)
		}
		return nil, err
	}

	if h.cache != nil {
		_ = h.cache.Set(ctx, account, h.cacheTTL)
	}
	return account, nil
}

func (h *GetAccountHandler) toDTO(account *reward.Account) *AccountDTO {
	owned := make([]OwnedItemDTO, 0, len(account.OwnedItemIDs))
	for id := range account.OwnedItemIDs {
		dto := OwnedItemDTO{ID: id}
		if item, ok := h.catalog.Item(id); ok {
			dto.Name = item.Name
			dto.Rarity = item.Rarity.String()
			dto.SetID = item.SetID
		}
		owned = append(owned, dto)
	}
	sort.Slice(owned, func(i, j int) bool { return owned[i].ID < owned[j].ID })

	return &AccountDTO{
		StudentID:             account.StudentID,
		TicketBalance:         account.TicketBalance,
		AccrualProgress:       account.AccrualProgress,
		AccrualThreshold:      h.accrualThreshold,
		ConsecutiveDuplicates: account.ConsecutiveDuplicates,
		OwnedItems:            owned,
		UpdatedAt:             account.UpdatedAt,
	}
}
