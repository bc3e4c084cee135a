package verification

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"liquidity-mining-lab/internal/domain"
	"liquidity-mining-lab/internal/replay"
	"liquidity-mining-lab/internal/rewards"
	"liquidity-mining-lab/internal/storage"
)

// Verification errors.
var (
	// ErrScenarioNotFound is returned when scenario ID doesn't exist.
	ErrScenarioNotFound = errors.New("scenario not found")

	// ErrInvalidHistory is returned when the stored actions do not replay:
	// duplicate timestamps, unknown users or a balance going negative.
	ErrInvalidHistory = errors.New("stored history cannot be replayed")

	// ErrInvalidEpochCount is returned when VerifyEpochs is asked for fewer
	// than one or more than domain.MaxEpochs epochs.
	ErrInvalidEpochCount = errors.New("invalid epoch count")
)

// ReplayVerifier implements Verifier by loading the stored action history,
// re-running the simulator and comparing against stored claims.
type ReplayVerifier struct {
	scenarioStore    storage.ScenarioStore
	claimStore       storage.ClaimStore
	expectationStore storage.ExpectationStore
	runner           *replay.Runner

	tolerance     *big.Int
	allocationDiv int64
}

// ReplayVerifierOptions contains configuration for creating a ReplayVerifier.
type ReplayVerifierOptions struct {
	ScenarioStore storage.ScenarioStore
	ActionStore   storage.ActionStore
	ClaimStore    storage.ClaimStore

	// ExpectationStore is optional. When set, stored ledger snapshots for the
	// same scenario and epoch are checked against the fresh simulation.
	ExpectationStore storage.ExpectationStore

	Tolerance     *big.Int // defaults to DefaultTolerance
	AllocationDiv int64    // defaults to 1
}

// NewReplayVerifier creates a new ReplayVerifier.
func NewReplayVerifier(opts ReplayVerifierOptions) *ReplayVerifier {
	tolerance := opts.Tolerance
	if tolerance == nil {
		tolerance = big.NewInt(DefaultTolerance)
	}
	div := opts.AllocationDiv
	if div <= 0 {
		div = 1
	}
	return &ReplayVerifier{
		scenarioStore:    opts.ScenarioStore,
		claimStore:       opts.ClaimStore,
		expectationStore: opts.ExpectationStore,
		runner:           replay.NewRunner(opts.ActionStore),
		tolerance:        tolerance,
		allocationDiv:    div,
	}
}

// Compile-time interface check.
var _ Verifier = (*ReplayVerifier)(nil)

// VerifyEpoch verifies every user's claim at evalEpoch.
func (v *ReplayVerifier) VerifyEpoch(ctx context.Context, scenarioID string, evalEpoch int) (*EpochResult, error) {
	// 1. Load scenario and history
	sc, err := v.scenarioStore.GetByID(ctx, scenarioID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrScenarioNotFound
		}
		return nil, err
	}

	// 2. The stored actions must replay cleanly before they are re-simulated
	if err := v.runner.RunAll(ctx, scenarioID, replay.NewBalanceTracker(sc.Users)); err != nil {
		if isReplayError(err) {
			return nil, fmt.Errorf("%w: %s: %w", ErrInvalidHistory, scenarioID, err)
		}
		return nil, fmt.Errorf("replay history: %w", err)
	}

	history, err := v.runner.LoadHistory(ctx, scenarioID, sc.Params, sc.Users)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("load history: %w", err)
	}

	// 3. Re-simulate
	ledger, err := rewards.ExpectedRewards(history, sc.Params, evalEpoch)
	if err != nil {
		return nil, err
	}
	ledger = ledger.Pad(sc.Users, sc.Params.VestingEpochs)

	result := &EpochResult{
		ScenarioID: scenarioID,
		EvalEpoch:  evalEpoch,
	}

	// 4. Stored snapshots must equal the fresh run exactly
	if v.expectationStore != nil {
		rows, err := v.expectationStore.GetByScenarioEpoch(ctx, scenarioID, evalEpoch)
		if err != nil {
			return nil, fmt.Errorf("load expectations: %w", err)
		}
		if len(rows) > 0 {
			stored := rewards.FromRows(rows, sc.Params.VestingEpochs)
			result.Divergences = append(result.Divergences, CompareLedgers(stored, ledger)...)
		}
	}

	// 5. Compare claims against the allocated share
	expected, err := rewards.DivideBy(ledger, v.allocationDiv)
	if err != nil {
		return nil, err
	}
	result.Ledger = expected

	claims, err := v.claimStore.GetByScenarioEpoch(ctx, scenarioID, evalEpoch)
	if err != nil {
		return nil, fmt.Errorf("load claims: %w", err)
	}
	result.Checked = len(claims)
	result.Divergences = append(result.Divergences, CompareClaims(expected, claims, v.tolerance)...)
	result.Match = len(result.Divergences) == 0

	return result, nil
}

// VerifyEpochs verifies count consecutive epochs starting at first.
func (v *ReplayVerifier) VerifyEpochs(ctx context.Context, scenarioID string, first, count int) (*Report, error) {
	if count < 1 || count > domain.MaxEpochs {
		return nil, fmt.Errorf("%w: %d", ErrInvalidEpochCount, count)
	}

	report := &Report{
		ScenarioID: scenarioID,
		Results:    make([]EpochResult, 0, count),
	}

	for i := 0; i < count; i++ {
		result, err := v.VerifyEpoch(ctx, scenarioID, first+i)
		if err != nil {
			return nil, err
		}
		report.Results = append(report.Results, *result)
		report.TotalChecks += result.Checked
		if result.Match {
			report.MatchedEpochs++
		} else {
			report.DivergentEpochs++
		}
	}

	return report, nil
}

func isReplayError(err error) bool {
	return errors.Is(err, replay.ErrInvalidOrdering) ||
		errors.Is(err, replay.ErrNegativeBalance) ||
		errors.Is(err, replay.ErrUnknownUser)
}
