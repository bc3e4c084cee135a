package domain

import (
	"errors"
	"math/big"
)

// ErrAllocationMismatch is returned when allocation numerators do not add up
// to the total numerator.
var ErrAllocationMismatch = errors.New("allocations dont add up")

// AllocationSetting splits the per-epoch emission across pools keyed by expiry.
type AllocationSetting struct {
	Expiries   []int64
	Numerators []*big.Int
}

// Validate checks that the numerators match the expiries and add up to total.
func (a AllocationSetting) Validate(total *big.Int) error {
	if len(a.Expiries) == 0 || len(a.Expiries) != len(a.Numerators) {
		return ErrAllocationMismatch
	}
	sum := new(big.Int)
	for _, n := range a.Numerators {
		if n == nil || n.Sign() < 0 {
			return ErrAllocationMismatch
		}
		sum.Add(sum, n)
	}
	if total == nil || sum.Cmp(total) != 0 {
		return ErrAllocationMismatch
	}
	return nil
}

// NumeratorFor returns the allocation numerator of a pool expiry, or nil.
func (a AllocationSetting) NumeratorFor(expiry int64) *big.Int {
	for i, e := range a.Expiries {
		if e == expiry && i < len(a.Numerators) {
			return a.Numerators[i]
		}
	}
	return nil
}
