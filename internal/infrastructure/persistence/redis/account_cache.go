package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/classdeck/reward-engine/internal/domain/reward"
)

// AccountCache implements reward.Cache over Redis. Snapshots are stored as
// JSON with a TTL; the owned set travels as a sorted-free slice and is
// rebuilt on read.
type AccountCache struct {
	cache      *Cache
	defaultTTL time.Duration
}

// NewAccountCache creates an account snapshot cache.
func NewAccountCache(cache *Cache, defaultTTL time.Duration) *AccountCache {
	if defaultTTL <= 0 {
		defaultTTL = 5 * time.Minute
	}
	return &AccountCache{cache: cache, defaultTTL: defaultTTL}
}

// accountSnapshot is the wire form of a cached account.
type accountSnapshot struct {
	StudentID             string    `json:"student_id"`
	TicketBalance         int       `json:"ticket_balance"`
	AccrualProgress       int       `json:"accrual_progress"`
	ConsecutiveDuplicates int       `json:"consecutive_duplicates"`
	OwnedItemIDs          []string  `json:"owned_item_ids"`
	Version               int       `json:"version"`
	CreatedAt             time.Time `json:"created_at"`
	UpdatedAt             time.Time `json:"updated_at"`
}

// Get implements reward.Cache. Returns ErrCacheMiss when no snapshot is
// cached for the student.
func (c *AccountCache) Get(ctx context.Context, studentID string) (*reward.Account, error) {
	var snap accountSnapshot
	if err := c.cache.Get(ctx, AccountKey(studentID), &snap); err != nil {
		if errors.Is(err, ErrCacheMiss) {
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("account cache get %s: %w", studentID, err)
	}

	account := &reward.Account{
		StudentID:             snap.StudentID,
		TicketBalance:         snap.TicketBalance,
		AccrualProgress:       snap.AccrualProgress,
		ConsecutiveDuplicates: snap.ConsecutiveDuplicates,
		OwnedItemIDs:          make(map[string]struct{}, len(snap.OwnedItemIDs)),
		Version:               snap.Version,
		CreatedAt:             snap.CreatedAt,
		UpdatedAt:             snap.UpdatedAt,
	}
	for _, id := range snap.OwnedItemIDs {
		account.OwnedItemIDs[id] = struct{}{}
	}
	return account, nil
}

// Set implements reward.Cache.
func (c *AccountCache) Set(ctx context.Context, account *reward.Account, ttl time.Duration) error {
	if account == nil {
		return ErrCacheNilValue
	}
	if ttl <= 0 {
		ttl = c.defaultTTL
	}

	snap := accountSnapshot{
		StudentID:             account.StudentID,
		TicketBalance:         account.TicketBalance,
		AccrualProgress:       account.AccrualProgress,
		ConsecutiveDuplicates: account.ConsecutiveDuplicates,
		OwnedItemIDs:          make([]string, 0, len(account.OwnedItemIDs)),
		Version:               account.Version,
		CreatedAt:             account.CreatedAt,
		UpdatedAt:             account.UpdatedAt,
	}
	for id := range account.OwnedItemIDs {
		snap.OwnedItemIDs = append(snap.OwnedItemIDs, id)
	}

	if err := c.cache.Set(ctx, AccountKey(account.StudentID), snap, ttl); err != nil {
		return fmt.Errorf("account cache set %s: %w", account.StudentID, err)
	}
	return nil
}

// Invalidate implements reward.Cache. Called by write paths after every
// committed mutation.
func (c *AccountCache) Invalidate(ctx context.Context, studentID string) error {
	if err := c.cache.Delete(ctx, AccountKey(studentID)); err != nil {
		return fmt.Errorf("account cache invalidate %s: %w", studentID, err)
	}
	return nil
}
