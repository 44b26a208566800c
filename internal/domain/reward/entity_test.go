package reward

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAccount(t *testing.T) {
	_, err := NewAccount("")
	assert.ErrorIs(t, err, ErrEmptyValue)

	acc, err := NewAccount("student-1")
	require.NoError(t, err)
	assert.Equal(t, "student-1", acc.StudentID)
	assert.Equal(t, 0, acc.TicketBalance)
	assert.Equal(t, 0, acc.AccrualProgress)
	assert.Equal(t, 0, acc.ConsecutiveDuplicates)
	assert.Equal(t, 0, acc.OwnedCount())
	assert.Equal(t, 1, acc.Version)
}

func TestAccount_CreditTickets(t *testing.T) {
	acc, err := NewAccount("student-1")
	require.NoError(t, err)

	require.NoError(t, acc.CreditTickets(2, 3))
	assert.Equal(t, 2, acc.TicketBalance)
	assert.Equal(t, 3, acc.AccrualProgress)

	require.NoError(t, acc.CreditTickets(0, 4))
	assert.Equal(t, 2, acc.TicketBalance)
	assert.Equal(t, 4, acc.AccrualProgress)

	assert.ErrorIs(t, acc.CreditTickets(-1, 0), ErrNegativeValue)
	assert.ErrorIs(t, acc.CreditTickets(1, -1), ErrNegativeValue)
}

func TestAccount_ApplyNewItem(t *testing.T) {
	acc, err := NewAccount("student-1")
	require.NoError(t, err)
	acc.TicketBalance = 3
	acc.ConsecutiveDuplicates = 4

	item := CatalogItem{ID: "badge-gold", Rarity: RarityEpic, SetID: "badges"}
	require.NoError(t, acc.ApplyNewItem(item, 1))

	assert.Equal(t, 2, acc.TicketBalance)
	assert.True(t, acc.Owns("badge-gold"))
	assert.Equal(t, 1, acc.OwnedCount())
	assert.Equal(t, 0, acc.ConsecutiveDuplicates)
}

func TestAccount_ApplyDuplicate(t *testing.T) {
	acc, err := NewAccount("student-1")
	require.NoError(t, err)
	acc.TicketBalance = 3
	acc.OwnedItemIDs["badge-gold"] = struct{}{}
	acc.ConsecutiveDuplicates = 2

	require.NoError(t, acc.ApplyDuplicate(4, 1))

	assert.Equal(t, 6, acc.TicketBalance) // 3 - 1 + 4
	assert.Equal(t, 1, acc.OwnedCount())
	assert.Equal(t, 3, acc.ConsecutiveDuplicates)

	assert.ErrorIs(t, acc.ApplyDuplicate(-1, 1), ErrNegativeValue)
}

func TestAccount_BalanceNeverGoesNegative(t *testing.T) {
	acc, err := NewAccount("student-1")
	require.NoError(t, err)

	item := CatalogItem{ID: "sticker-star", Rarity: RarityCommon, SetID: "stickers"}
	err = acc.ApplyNewItem(item, 1)
	assert.ErrorIs(t, err, ErrInsufficientTickets)

	// A rejected draw changes nothing.
	assert.Equal(t, 0, acc.TicketBalance)
	assert.False(t, acc.Owns("sticker-star"))
	assert.Equal(t, 0, acc.ConsecutiveDuplicates)

	err = acc.ApplyDuplicate(5, 1)
	assert.ErrorIs(t, err, ErrInsufficientTickets)
	assert.Equal(t, 0, acc.TicketBalance)
}

func TestAccount_Clone(t *testing.T) {
	acc, err := NewAccount("student-1")
	require.NoError(t, err)
	acc.TicketBalance = 5
	acc.OwnedItemIDs["badge-gold"] = struct{}{}

	clone := acc.Clone()
	clone.TicketBalance = 99
	clone.OwnedItemIDs["sticker-star"] = struct{}{}

	assert.Equal(t, 5, acc.TicketBalance)
	assert.Equal(t, 1, acc.OwnedCount())
	assert.Equal(t, 2, clone.OwnedCount())

	var nilAcc *Account
	assert.Nil(t, nilAcc.Clone())
}
