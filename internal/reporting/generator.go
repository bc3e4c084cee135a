package reporting

import (
	"math/big"
	"sort"
	"time"

	"liquidity-mining-lab/internal/domain"
	"liquidity-mining-lab/internal/rewards"
	"liquidity-mining-lab/internal/verification"
)

// Run is one simulation to include in a report.
type Run struct {
	RunID  string
	Result *rewards.Result
	Ledger rewards.Ledger // ledger after the allocation divisor; Result.Ledger when nil
}

// Generator builds reports from simulation results.
type Generator struct {
	now func() time.Time // Injectable clock for deterministic output
}

// NewGenerator creates a new report generator.
func NewGenerator() *Generator {
	return &Generator{
		now: func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Generate produces a report for runs of one scenario.
func (g *Generator) Generate(name, scenarioID string, users int, params domain.LiqParams, allocationDiv int64, runs []Run) *Report {
	if allocationDiv <= 0 {
		allocationDiv = 1
	}

	r := &Report{
		GeneratedAt:  g.now(),
		ScenarioName: name,
		ScenarioID:   scenarioID,
		Users:        users,
		Params: ParamsSection{
			StartTime:       params.StartTime,
			EpochDuration:   params.EpochDuration,
			NumberOfEpochs:  params.NumberOfEpochs,
			VestingEpochs:   params.VestingEpochs,
			RewardsPerEpoch: intString(params.RewardsPerEpoch),
			AllocationDiv:   allocationDiv,
		},
	}

	sorted := make([]Run, len(runs))
	copy(sorted, runs)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Result.EvalEpoch < sorted[j].Result.EvalEpoch
	})

	for _, run := range sorted {
		ledger := run.Ledger
		if ledger == nil {
			ledger = run.Result.Ledger
		}
		r.Runs = append(r.Runs, runSection(run.RunID, run.Result.EvalEpoch, ledger))
	}
	if len(sorted) > 0 {
		r.Epochs = epochRows(sorted[len(sorted)-1].Result.Epochs)
	}

	return r
}

// AddVerification attaches a verification report.
func (g *Generator) AddVerification(r *Report, v *verification.Report, tolerance *big.Int) {
	section := &VerificationSection{
		Tolerance:       intString(tolerance),
		MatchedEpochs:   v.MatchedEpochs,
		DivergentEpochs: v.DivergentEpochs,
		TotalChecks:     v.TotalChecks,
	}
	for _, res := range v.Results {
		for _, d := range res.Divergences {
			section.Divergences = append(section.Divergences, DivergenceRow{
				EvalEpoch: res.EvalEpoch,
				UserID:    d.UserID,
				Source:    d.Source,
				Bucket:    d.Bucket,
				Expected:  intString(d.Expected),
				Actual:    intString(d.Actual),
				Reason:    d.Reason,
			})
		}
	}
	r.Verification = section
}

func runSection(runID string, evalEpoch int, ledger rewards.Ledger) RunSection {
	s := RunSection{
		RunID:     runID,
		EvalEpoch: evalEpoch,
		Total:     ledger.Total().String(),
	}

	claimable := new(big.Int)
	for user, buckets := range ledger {
		row := LedgerRow{
			UserID:  user,
			Buckets: make([]string, len(buckets)),
			Total:   ledger.UserTotal(user).String(),
		}
		for k, v := range buckets {
			row.Buckets[k] = v.String()
		}
		if len(buckets) > 0 {
			claimable.Add(claimable, buckets[0])
		}
		s.Rows = append(s.Rows, row)
	}
	s.Claimable = claimable.String()
	return s
}

func epochRows(summaries []rewards.EpochSummary) []EpochRow {
	rows := make([]EpochRow, 0, len(summaries))
	for _, es := range summaries {
		row := EpochRow{
			Epoch:             es.Epoch,
			TotalStakeSeconds: intString(es.TotalStakeSeconds),
			Skipped:           es.Skipped,
		}
		for user, ss := range es.UserStakeSeconds {
			u := EpochUserRow{
				UserID:          user,
				StakeSeconds:    intString(ss),
				PerVestingEpoch: "0",
			}
			if user < len(es.PerVestingEpoch) {
				u.PerVestingEpoch = intString(es.PerVestingEpoch[user])
			}
			row.Users = append(row.Users, u)
		}
		rows = append(rows, row)
	}
	return rows
}

// intString renders nil as "-".
func intString(v *big.Int) string {
	if v == nil {
		return "-"
	}
	return v.String()
}
