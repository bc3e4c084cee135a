// Package verification cross-checks observed reward claims against the
// rewards re-derived by the simulator.
package verification

import (
	"context"
	"math/big"

	"liquidity-mining-lab/internal/domain"
	"liquidity-mining-lab/internal/rewards"
)

// DefaultTolerance is the absolute difference, in reward token base units,
// allowed between an observed claim and the simulated amount.
const DefaultTolerance = 100

// Divergence sources.
const (
	SourceClaim       = "claim"       // observed claim vs simulated bucket 0
	SourceExpectation = "expectation" // stored ledger snapshot vs fresh simulation
)

// Divergence represents a mismatch for one user.
type Divergence struct {
	UserID   int
	Source   string
	Bucket   int
	Expected *big.Int
	Actual   *big.Int // nil when nothing was observed
	Reason   string
}

// EpochResult contains the result of verifying one scenario at one epoch.
type EpochResult struct {
	ScenarioID  string
	EvalEpoch   int
	Match       bool
	Checked     int // claims compared
	Divergences []Divergence
	Ledger      rewards.Ledger // expected rewards after the allocation divisor
}

// Report contains results for consecutive evaluation epochs.
type Report struct {
	ScenarioID      string
	TotalChecks     int
	MatchedEpochs   int
	DivergentEpochs int
	Results         []EpochResult
}

// Match reports whether every epoch matched.
func (r *Report) Match() bool {
	return r.DivergentEpochs == 0
}

// Verifier checks stored scenarios against observed claims.
type Verifier interface {
	// VerifyEpoch re-simulates the scenario at evalEpoch and compares every
	// user's claim made at that epoch.
	VerifyEpoch(ctx context.Context, scenarioID string, evalEpoch int) (*EpochResult, error)

	// VerifyEpochs runs VerifyEpoch for count consecutive epochs from first.
	VerifyEpochs(ctx context.Context, scenarioID string, first, count int) (*Report, error)
}

// ApproxEqual reports whether |expected - actual| <= tolerance.
func ApproxEqual(expected, actual, tolerance *big.Int) bool {
	diff := new(big.Int).Sub(expected, actual)
	return diff.CmpAbs(tolerance) <= 0
}

// CompareClaims compares bucket 0 of the ledger with observed claims.
// The ledger is expected to already carry the allocation divisor.
// Users without a claim and claims of users outside the ledger diverge.
func CompareClaims(ledger rewards.Ledger, claims []*domain.ClaimObservation, tolerance *big.Int) []Divergence {
	var divergences []Divergence

	observed := make(map[int]*big.Int, len(claims))
	for _, c := range claims {
		if c.UserID < 0 || c.UserID >= len(ledger) {
			divergences = append(divergences, Divergence{
				UserID: c.UserID,
				Source: SourceClaim,
				Actual: c.Amount,
				Reason: "claim from unknown user",
			})
			continue
		}
		observed[c.UserID] = c.Amount
	}

	for user, expected := range ledger.Claimable() {
		actual, ok := observed[user]
		if !ok {
			divergences = append(divergences, Divergence{
				UserID:   user,
				Source:   SourceClaim,
				Expected: expected,
				Reason:   "no claim observed",
			})
			continue
		}
		if !ApproxEqual(expected, actual, tolerance) {
			divergences = append(divergences, Divergence{
				UserID:   user,
				Source:   SourceClaim,
				Expected: expected,
				Actual:   actual,
				Reason:   "outside tolerance",
			})
		}
	}

	return divergences
}

// CompareLedgers compares a stored ledger snapshot with a fresh simulation
// cell by cell, exactly.
func CompareLedgers(stored, simulated rewards.Ledger) []Divergence {
	var divergences []Divergence

	users := len(stored)
	if len(simulated) > users {
		users = len(simulated)
	}
	for u := 0; u < users; u++ {
		var s, m []*big.Int
		if u < len(stored) {
			s = stored[u]
		}
		if u < len(simulated) {
			m = simulated[u]
		}
		buckets := len(s)
		if len(m) > buckets {
			buckets = len(m)
		}
		for k := 0; k < buckets; k++ {
			sv, mv := cell(s, k), cell(m, k)
			if sv.Cmp(mv) != 0 {
				divergences = append(divergences, Divergence{
					UserID:   u,
					Source:   SourceExpectation,
					Bucket:   k,
					Expected: mv,
					Actual:   sv,
					Reason:   "stored expectation differs",
				})
			}
		}
	}
	return divergences
}

func cell(buckets []*big.Int, k int) *big.Int {
	if k < len(buckets) && buckets[k] != nil {
		return buckets[k]
	}
	return new(big.Int)
}
