package rewards

import (
	"errors"
	"fmt"
	"math/big"

	"liquidity-mining-lab/internal/domain"
)

// ErrInvalidAllocation is returned when an allocation ratio cannot be applied.
var ErrInvalidAllocation = errors.New("invalid allocation ratio")

// Claimable returns bucket 0 of every user.
func (l Ledger) Claimable() []*big.Int {
	out := make([]*big.Int, len(l))
	for i, buckets := range l {
		if len(buckets) == 0 {
			out[i] = new(big.Int)
			continue
		}
		out[i] = new(big.Int).Set(buckets[0])
	}
	return out
}

// UserTotal sums every bucket of one user.
func (l Ledger) UserTotal(userID int) *big.Int {
	sum := new(big.Int)
	if userID < 0 || userID >= len(l) {
		return sum
	}
	for _, v := range l[userID] {
		sum.Add(sum, v)
	}
	return sum
}

// Total sums every bucket of every user.
func (l Ledger) Total() *big.Int {
	sum := new(big.Int)
	for i := range l {
		sum.Add(sum, l.UserTotal(i))
	}
	return sum
}

// Clone returns a deep copy of the ledger.
func (l Ledger) Clone() Ledger {
	out := make(Ledger, len(l))
	for i, buckets := range l {
		out[i] = make([]*big.Int, len(buckets))
		for j, v := range buckets {
			out[i][j] = new(big.Int).Set(v)
		}
	}
	return out
}

// Pad returns the ledger extended with zero rows up to users. Users that never
// acted do not appear in the history but still hold a ledger row.
func (l Ledger) Pad(users, vesting int) Ledger {
	if len(l) >= users {
		return l
	}
	out := append(Ledger{}, l...)
	return append(out, newLedger(users-len(l), vesting)...)
}

// ApplyAllocation scales every cell by numerator/total with truncation.
// Used when the pool receives only part of the epoch emission, so numerator
// may not exceed total.
func ApplyAllocation(l Ledger, numerator, total *big.Int) (Ledger, error) {
	if numerator == nil || total == nil || total.Sign() <= 0 || numerator.Sign() < 0 {
		return nil, ErrInvalidAllocation
	}
	if numerator.Cmp(total) > 0 {
		return nil, fmt.Errorf("%w: %s/%s exceeds the emission", ErrInvalidAllocation, numerator, total)
	}
	out := l.Clone()
	for _, buckets := range out {
		for _, v := range buckets {
			v.Mul(v, numerator)
			v.Quo(v, total)
		}
	}
	return out, nil
}

// DivideBy divides every cell by div with truncation, the form the claim
// checks use when the allocation is a simple fraction.
func DivideBy(l Ledger, div int64) (Ledger, error) {
	if div <= 0 {
		return nil, ErrInvalidAllocation
	}
	return ApplyAllocation(l, big.NewInt(1), big.NewInt(div))
}

// Rows flattens the ledger into storable expectation rows, one per user and bucket.
func (l Ledger) Rows(scenarioID, runID string, evalEpoch int) []*domain.RewardExpectation {
	var rows []*domain.RewardExpectation
	for user, buckets := range l {
		for bucket, v := range buckets {
			rows = append(rows, &domain.RewardExpectation{
				ScenarioID: scenarioID,
				RunID:      runID,
				EvalEpoch:  evalEpoch,
				UserID:     user,
				Bucket:     bucket,
				Amount:     new(big.Int).Set(v),
			})
		}
	}
	return rows
}

// FromRows rebuilds a ledger from expectation rows. Missing cells are zero.
func FromRows(rows []*domain.RewardExpectation, vesting int) Ledger {
	users := 0
	for _, r := range rows {
		if r.UserID+1 > users {
			users = r.UserID + 1
		}
		if r.Bucket+1 > vesting {
			vesting = r.Bucket + 1
		}
	}
	l := newLedger(users, vesting)
	for _, r := range rows {
		if r.UserID < 0 || r.Bucket < 0 || r.Amount == nil {
			continue
		}
		l[r.UserID][r.Bucket].Set(r.Amount)
	}
	return l
}
