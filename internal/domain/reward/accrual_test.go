package reward

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAccrual_RejectsBadThreshold(t *testing.T) {
	_, err := NewAccrual(0)
	assert.ErrorIs(t, err, ErrValueOutOfRange)

	_, err = NewAccrual(-5)
	assert.ErrorIs(t, err, ErrValueOutOfRange)

	a, err := NewAccrual(5)
	require.NoError(t, err)
	assert.Equal(t, 5, a.Threshold)
}

func TestAccrual_Advance(t *testing.T) {
	a, err := NewAccrual(5)
	require.NoError(t, err)

	tests := []struct {
		name         string
		progress     int
		delta        int
		wantProgress int
		wantUnits    int
	}{
		{"below threshold", 0, 3, 3, 0},
		{"exactly threshold", 0, 5, 0, 1},
		{"crosses once with remainder", 4, 3, 2, 1},
		{"crosses several times", 2, 14, 1, 3},
		{"zero delta", 3, 0, 3, 0},
		{"reversal drains progress", 3, -2, 1, 0},
		{"reversal clamps at zero", 2, -7, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotProgress, gotUnits := a.Advance(tt.progress, tt.delta)
			assert.Equal(t, tt.wantProgress, gotProgress)
			assert.Equal(t, tt.wantUnits, gotUnits)
		})
	}
}

// Any way of slicing a total of k*threshold+r points into deltas must mint
// exactly k tickets and leave progress r.
func TestAccrual_BatchingInvariant(t *testing.T) {
	a, err := NewAccrual(5)
	require.NoError(t, err)

	batches := [][]int{
		{17},
		{1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1},
		{5, 5, 5, 2},
		{3, 3, 3, 3, 3, 2},
		{16, 1},
	}

	for _, deltas := range batches {
		progress, total := 0, 0
		for _, d := range deltas {
			var units int
			progress, units = a.Advance(progress, d)
			total += units
		}
		assert.Equal(t, 3, total, "deltas %v", deltas)
		assert.Equal(t, 2, progress, "deltas %v", deltas)
	}
}

func TestAccrual_ReversalNeverRevokesMintedTickets(t *testing.T) {
	a, err := NewAccrual(5)
	require.NoError(t, err)

	// Mint two tickets, then reverse more points than the remaining progress.
	progress, units := a.Advance(0, 12)
	require.Equal(t, 2, units)
	require.Equal(t, 2, progress)

	progress, units = a.Advance(progress, -12)
	assert.Equal(t, 0, progress)
	assert.Equal(t, 0, units)
}
