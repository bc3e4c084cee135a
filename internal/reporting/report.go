package reporting

import "time"

// Report represents a simulation report: the schedule, the per-epoch
// accounting, the expected ledgers and, when claims were checked, the
// verification outcome.
type Report struct {
	// Metadata
	GeneratedAt  time.Time
	ScenarioName string
	ScenarioID   string
	Users        int

	Params ParamsSection

	// One run per evaluated epoch, sorted by eval epoch
	Runs []RunSection

	// Epoch accounting of the last run, which covers every earlier epoch
	Epochs []EpochRow

	// Set when claims were verified
	Verification *VerificationSection
}

// ParamsSection describes the reward schedule.
type ParamsSection struct {
	StartTime       int64
	EpochDuration   int64
	NumberOfEpochs  int
	VestingEpochs   int
	RewardsPerEpoch string
	AllocationDiv   int64
}

// RunSection is the expected ledger at one evaluation epoch.
type RunSection struct {
	RunID     string
	EvalEpoch int
	Rows      []LedgerRow
	Total     string // sum over users and buckets
	Claimable string // sum of bucket 0
}

// LedgerRow is one user's buckets. Buckets[0] is claimable at the eval epoch.
type LedgerRow struct {
	UserID  int
	Buckets []string
	Total   string
}

// EpochRow is the stake-seconds accounting of one simulated epoch.
type EpochRow struct {
	Epoch             int
	TotalStakeSeconds string
	Skipped           bool
	Users             []EpochUserRow
}

// EpochUserRow is one user's share of an epoch.
type EpochUserRow struct {
	UserID          int
	StakeSeconds    string
	PerVestingEpoch string
}

// VerificationSection summarizes claim verification.
type VerificationSection struct {
	Tolerance       string
	MatchedEpochs   int
	DivergentEpochs int
	TotalChecks     int
	Divergences     []DivergenceRow
}

// DivergenceRow lists one mismatch.
type DivergenceRow struct {
	EvalEpoch int
	UserID    int
	Source    string
	Bucket    int
	Expected  string
	Actual    string
	Reason    string
}
