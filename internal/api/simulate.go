package api

import (
	"errors"
	"fmt"
	"math/big"
	"net/http"

	"liquidity-mining-lab/internal/domain"
	"liquidity-mining-lab/internal/pipeline"
	"liquidity-mining-lab/internal/rewards"
	"liquidity-mining-lab/internal/scenario"
)

// errPersistDisabled is returned when persistence is requested without stores.
var errPersistDisabled = errors.New("persistence is not configured")

// maxEvalEpoch is past the last vesting epoch of the longest schedule.
const maxEvalEpoch = domain.MaxEpochs + domain.MaxVestingEpochs

// SimulateRequest is the body of POST /v1/simulate. The scenario fields
// follow the YAML scenario format.
type SimulateRequest struct {
	scenario.File

	// EvalEpoch defaults to the epoch after the last one with actions.
	EvalEpoch  int                `json:"eval_epoch"`
	FourEpochs bool               `json:"four_epochs"`
	Allocation *AllocationRequest `json:"allocation,omitempty"`
	Persist    bool               `json:"persist"`
}

// AllocationRequest is an allocation setting across pools keyed by expiry.
// The numerators must add up to the schedule's total numerator; the ledger is
// scaled by the share of the pool with Expiry.
type AllocationRequest struct {
	Expiries   []int64  `json:"expiries"`
	Numerators []string `json:"numerators"`
	Expiry     int64    `json:"expiry"`
}

// share validates the setting against total and returns the pool numerator.
func (ar *AllocationRequest) share(total *big.Int) (*big.Int, error) {
	setting := domain.AllocationSetting{
		Expiries:   ar.Expiries,
		Numerators: make([]*big.Int, 0, len(ar.Numerators)),
	}
	for i, s := range ar.Numerators {
		n, err := scenario.ParseAmount(s)
		if err != nil {
			return nil, fmt.Errorf("allocation numerator %d: %w", i, err)
		}
		setting.Numerators = append(setting.Numerators, n)
	}
	if err := setting.Validate(total); err != nil {
		return nil, err
	}
	numerator := setting.NumeratorFor(ar.Expiry)
	if numerator == nil {
		return nil, fmt.Errorf("%w: no pool with expiry %d", domain.ErrAllocationMismatch, ar.Expiry)
	}
	return numerator, nil
}

// SimulateResponse is the body returned by POST /v1/simulate.
type SimulateResponse struct {
	ScenarioID string          `json:"scenario_id"`
	Users      int             `json:"users"`
	Runs       []RunResponse   `json:"runs"`
	Epochs     []EpochResponse `json:"epochs"`
}

// RunResponse is one evaluated ledger. Amounts are decimal strings.
type RunResponse struct {
	RunID     string     `json:"run_id"`
	EvalEpoch int        `json:"eval_epoch"`
	Ledger    [][]string `json:"ledger"`
	Claimable []string   `json:"claimable"`
	Total     string     `json:"total"`
}

// EpochResponse is the stake-seconds accounting of one simulated epoch.
type EpochResponse struct {
	Epoch             int      `json:"epoch"`
	Skipped           bool     `json:"skipped"`
	TotalStakeSeconds string   `json:"total_stake_seconds"`
	UserStakeSeconds  []string `json:"user_stake_seconds"`
	PerVestingEpoch   []string `json:"per_vesting_epoch"`
}

func (a *API) handleSimulate(w http.ResponseWriter, r *http.Request) error {
	var req SimulateRequest
	if err := ParseRequest(w, r, &req); err != nil {
		return err
	}

	sc, err := req.Build()
	if err != nil {
		return BadRequest(err)
	}
	if sc.Name == "" {
		sc.Name = "api"
	}

	var numerator *big.Int
	if req.Allocation != nil {
		if numerator, err = req.Allocation.share(sc.Params.TotalNumerator); err != nil {
			return BadRequest(err)
		}
	}

	if req.EvalEpoch > maxEvalEpoch {
		return BadRequest(fmt.Errorf("%w: eval_epoch %d exceeds %d", rewards.ErrInvalidEpoch, req.EvalEpoch, maxEvalEpoch))
	}
	evalEpoch := req.EvalEpoch
	if evalEpoch == 0 {
		evalEpoch = sc.EvalEpoch()
	}
	opts := pipeline.Options{EvalEpochs: []int{evalEpoch}}
	if req.FourEpochs {
		opts.EvalEpochs = pipeline.FourEpochs(evalEpoch)
	}

	p := pipeline.NewSimulationPipeline().WithMetrics(a.metrics).WithLogger(a.logger)
	if req.Persist {
		if a.scenarioStore == nil {
			return HTTPError(errPersistDisabled, http.StatusServiceUnavailable)
		}
		p = p.WithStores(a.scenarioStore, a.actionStore, a.expectationStore)
	}

	out, err := p.Run(r.Context(), sc, opts)
	if err != nil {
		if isInputError(err) {
			return BadRequest(err)
		}
		return err
	}

	resp := SimulateResponse{
		ScenarioID: out.ScenarioID,
		Users:      sc.Users,
	}
	for _, run := range out.Runs {
		ledger := run.Ledger
		if numerator != nil {
			if ledger, err = rewards.ApplyAllocation(ledger, numerator, sc.Params.TotalNumerator); err != nil {
				return BadRequest(err)
			}
		}
		resp.Runs = append(resp.Runs, runResponse(run.RunID, run.Result.EvalEpoch, ledger))
	}
	if n := len(out.Runs); n > 0 {
		resp.Epochs = epochResponses(out.Runs[n-1].Result.Epochs)
	}

	return WriteJSON(w, resp)
}

func isInputError(err error) bool {
	for _, target := range []error{
		scenario.ErrInvalidScenario,
		domain.ErrInvalidParams,
		rewards.ErrInvalidEpoch,
		rewards.ErrInvalidAllocation,
		domain.ErrAllocationMismatch,
		pipeline.ErrNoEvalEpochs,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func runResponse(runID string, evalEpoch int, ledger rewards.Ledger) RunResponse {
	resp := RunResponse{
		RunID:     runID,
		EvalEpoch: evalEpoch,
		Ledger:    make([][]string, len(ledger)),
		Claimable: decimals(ledger.Claimable()),
		Total:     ledger.Total().String(),
	}
	for i, buckets := range ledger {
		resp.Ledger[i] = decimals(buckets)
	}
	return resp
}

func epochResponses(summaries []rewards.EpochSummary) []EpochResponse {
	out := make([]EpochResponse, 0, len(summaries))
	for _, s := range summaries {
		out = append(out, EpochResponse{
			Epoch:             s.Epoch,
			Skipped:           s.Skipped,
			TotalStakeSeconds: s.TotalStakeSeconds.String(),
			UserStakeSeconds:  decimals(s.UserStakeSeconds),
			PerVestingEpoch:   decimals(s.PerVestingEpoch),
		})
	}
	return out
}

func decimals(values []*big.Int) []string {
	out := make([]string, len(values))
	for i, v := range values {
		if v == nil {
			out[i] = "0"
			continue
		}
		out[i] = v.String()
	}
	return out
}
