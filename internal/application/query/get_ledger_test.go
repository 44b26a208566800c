package query

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/classdeck/reward-engine/internal/domain/reward"
)

type stubLedgerRepo struct {
	entries []reward.Entry
}

func (r *stubLedgerRepo) ListByStudent(_ context.Context, studentID string, opts reward.ListOptions) ([]reward.Entry, error) {
	var out []reward.Entry
	for _, e := range r.entries {
		if e.StudentID != studentID {
			continue
		}
		if !opts.Since.IsZero() && e.RecordedAt.Before(opts.Since) {
			continue
		}
		out = append(out, e)
	}
	if opts.Offset >= len(out) {
		return nil, nil
	}
	out = out[opts.Offset:]
	if len(out) > opts.Limit {
		out = out[:opts.Limit]
	}
	return out, nil
}

func (r *stubLedgerRepo) CountByStudent(_ context.Context, studentID string) (int, error) {
	n := 0
	for _, e := range r.entries {
		if e.StudentID == studentID {
			n++
		}
	}
	return n, nil
}

func accountsFor(studentIDs ...string) *stubAccountRepo {
	repo := &stubAccountRepo{accounts: make(map[string]*reward.Account)}
	for _, id := range studentIDs {
		acc, _ := reward.NewAccount(id)
		repo.accounts[id] = acc
	}
	return repo
}

func TestGetLedger_Page(t *testing.T) {
	now := time.Now().UTC()
	repo := &stubLedgerRepo{entries: []reward.Entry{
		{ID: "e1", StudentID: "s1", TicketDelta: 2, Cause: reward.CauseAccrualCredit, RecordedAt: now.Add(-2 * time.Hour)},
		{ID: "e2", StudentID: "s1", TicketDelta: -1, ItemID: "badge-gold", Cause: reward.CauseDrawCost, RecordedAt: now.Add(-time.Hour)},
		{ID: "e3", StudentID: "s2", TicketDelta: -1, ItemID: "sticker-star", Cause: reward.CauseDrawCost, RecordedAt: now},
	}}

	h := NewGetLedgerHandler(repo, accountsFor("s1", "s2"), queryCatalog(t))

	page, err := h.Handle(context.Background(), GetLedgerQuery{StudentID: "s1"})
	require.NoError(t, err)

	assert.Equal(t, 2, page.Total)
	require.Len(t, page.Entries, 2)
	assert.Equal(t, "accrual-credit", page.Entries[0].Cause)
	assert.Equal(t, "Gold Badge", page.Entries[1].ItemName)
	assert.Equal(t, "epic", page.Entries[1].Rarity)
}

func TestGetLedger_Pagination(t *testing.T) {
	now := time.Now().UTC()
	var entries []reward.Entry
	for i := 0; i < 5; i++ {
		entries = append(entries, reward.Entry{
			ID: string(rune('a' + i)), StudentID: "s1", TicketDelta: 1,
			Cause: reward.CauseAccrualCredit, RecordedAt: now,
		})
	}
	h := NewGetLedgerHandler(&stubLedgerRepo{entries: entries}, accountsFor("s1"), queryCatalog(t))

	page, err := h.Handle(context.Background(), GetLedgerQuery{StudentID: "s1", Offset: 3, Limit: 10})
	require.NoError(t, err)

	assert.Equal(t, 5, page.Total)
	assert.Len(t, page.Entries, 2)
}

// An empty page is served only for students the engine knows about; a
// student with no account at all is reported as not found.
func TestGetLedger_UnknownStudent(t *testing.T) {
	h := NewGetLedgerHandler(&stubLedgerRepo{}, accountsFor("known"), queryCatalog(t))

	_, err := h.Handle(context.Background(), GetLedgerQuery{StudentID: "ghost"})
	assert.ErrorIs(t, err, reward.ErrAccountNotFound)

	page, err := h.Handle(context.Background(), GetLedgerQuery{StudentID: "known"})
	require.NoError(t, err)
	assert.Equal(t, 0, page.Total)
	assert.Empty(t, page.Entries)
}

func TestGetLedger_Validation(t *testing.T) {
	h := NewGetLedgerHandler(&stubLedgerRepo{}, accountsFor("s1"), queryCatalog(t))

	_, err := h.Handle(context.Background(), GetLedgerQuery{})
	assert.Error(t, err)

	// Limits are normalized, not rejected.
	page, err := h.Handle(context.Background(), GetLedgerQuery{StudentID: "s1", Limit: 1000, Offset: -2})
	require.NoError(t, err)
	assert.Equal(t, 200, page.Limit)
	assert.Equal(t, 0, page.Offset)
}
