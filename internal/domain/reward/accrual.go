package reward

import "fmt"

// Accrual converts merit-point deltas into whole ticket units. Points pile
// up in a running progress counter; every time the counter crosses the
// threshold a ticket is minted and the remainder carries forward.
//
// Reversals (negative deltas) only drain the running progress. They stop at
// zero and never claw back tickets that were already minted; the product
// decision is that a credited ticket stays credited.
type Accrual struct {
	Threshold int
}

// NewAccrual validates the credit threshold.
func NewAccrual(threshold int) (Accrual, error) {
	if threshold < 1 {
		return Accrual{}, fmt.Errorf("accrual: threshold %d: %w", threshold, ErrValueOutOfRange)
	}
	return Accrual{Threshold: threshold}, nil
}

// Advance applies a merit-point delta to the current progress and returns
// the new progress plus the number of whole ticket units minted.
//
// For positive deltas: units = floor((progress+delta)/threshold) -
// floor(progress/threshold), and the stored progress is the new total
// modulo the threshold. For negative deltas the progress is clamped at
// zero and units is always zero.
func (a Accrual) Advance(progress, delta int) (newProgress, units int) {
	if delta <= 0 {
		newProgress = progress + delta
		if newProgress < 0 {
			newProgress = 0
		}
		return newProgress, 0
	}

	total := progress + delta
	units = total / a.Threshold
	newProgress = total % a.Threshold
	return newProgress, units
}
