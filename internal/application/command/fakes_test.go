package command

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/classdeck/reward-engine/internal/domain/reward"
	"github.com/classdeck/reward-engine/internal/domain/shared"
)

// memLedger is an in-memory reward.Ledger with the same atomicity contract
// as the persistent one: each operation is one critical section, so
// concurrent handler tests exercise real interleavings.
type memLedger struct {
	mu       sync.Mutex
	accrual  reward.Accrual
	accounts map[string]*reward.Account
	entries  map[string][]reward.Entry
}

func newMemLedger(threshold int) *memLedger {
	accrual, err := reward.NewAccrual(threshold)
	if err != nil {
		panic(err)
	}
	return &memLedger{
		accrual:  accrual,
		accounts: make(map[string]*reward.Account),
		entries:  make(map[string][]reward.Entry),
	}
}

func (l *memLedger) account(studentID string) *reward.Account {
	acc, ok := l.accounts[studentID]
	if !ok {
		acc, _ = reward.NewAccount(studentID)
		l.accounts[studentID] = acc
	}
	return acc
}

func (l *memLedger) Credit(_ context.Context, studentID string, delta int) (*reward.AccrualResult, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	acc := l.account(studentID)
	newProgress, units := l.accrual.Advance(acc.AccrualProgress, delta)
	if err := acc.CreditTickets(units, newProgress); err != nil {
		return nil, err
	}

	res := &reward.AccrualResult{
		Units:       units,
		NewBalance:  acc.TicketBalance,
		NewProgress: acc.AccrualProgress,
	}
	if units > 0 {
		entry := reward.Entry{
			ID:          uuid.NewString(),
			StudentID:   studentID,
			TicketDelta: units,
			Cause:       reward.CauseAccrualCredit,
			RecordedAt:  time.Now().UTC(),
		}
		l.entries[studentID] = append(l.entries[studentID], entry)
		res.Entry = &entry
	}
	return res, nil
}

func (l *memLedger) ApplyDraw(_ context.Context, studentID string, cost int, resolve reward.DrawResolver) (*reward.DrawResult, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	acc := l.account(studentID)
	if !acc.CanAfford(cost) {
		return nil, fmt.Errorf("student %s: %w", studentID, reward.ErrInsufficientTickets)
	}

	outcome, err := resolve(acc)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	entries := []reward.Entry{{
		ID:          uuid.NewString(),
		StudentID:   studentID,
		TicketDelta: -cost,
		ItemID:      outcome.Item.ID,
		Cause:       reward.CauseDrawCost,
		RecordedAt:  now,
	}}

	if outcome.IsDuplicate {
		if err := acc.ApplyDuplicate(outcome.Bonus, cost); err != nil {
			return nil, err
		}
		entries = append(entries, reward.Entry{
			ID:          uuid.NewString(),
			StudentID:   studentID,
			TicketDelta: outcome.Bonus,
			ItemID:      outcome.Item.ID,
			Cause:       reward.CauseDuplicateBonus,
			RecordedAt:  now,
		})
	} else {
		if err := acc.ApplyNewItem(outcome.Item, cost); err != nil {
			return nil, err
		}
	}

	l.entries[studentID] = append(l.entries[studentID], entries...)

	delta := -cost
	if outcome.IsDuplicate {
		delta += outcome.Bonus
	}
	return &reward.DrawResult{
		Item:          outcome.Item,
		IsDuplicate:   outcome.IsDuplicate,
		PityTriggered: outcome.PityTriggered,
		PityThreshold: outcome.PityThreshold,
		TicketDelta:   delta,
		Entries:       entries,
	}, nil
}

func (l *memLedger) snapshot(studentID string) *reward.Account {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.account(studentID).Clone()
}

func (l *memLedger) entriesFor(studentID string) []reward.Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]reward.Entry(nil), l.entries[studentID]...)
}

// fakeCache records invalidations.
type fakeCache struct {
	mu          sync.Mutex
	invalidated []string
}

func (c *fakeCache) Get(context.Context, string) (*reward.Account, error) {
	return nil, reward.ErrAccountNotFound
}

func (c *fakeCache) Set(context.Context, *reward.Account, time.Duration) error {
	return nil
}

func (c *fakeCache) Invalidate(_ context.Context, studentID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidated = append(c.invalidated, studentID)
	return nil
}

// fakePublisher records published events.
type fakePublisher struct {
	mu     sync.Mutex
	events []shared.Event
}

func (p *fakePublisher) Publish(event shared.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *fakePublisher) published() []shared.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]shared.Event(nil), p.events...)
}
