package api

import (
	"errors"
	"fmt"
	"math/big"
	"net/http"

	"liquidity-mining-lab/internal/domain"
	"liquidity-mining-lab/internal/scenario"
	"liquidity-mining-lab/internal/verification"
)

var errVerifyDisabled = errors.New("verification stores are not configured")

// VerifyRequest is the body of POST /v1/verify.
type VerifyRequest struct {
	ScenarioID    string `json:"scenario_id"`
	EvalEpoch     int    `json:"eval_epoch"`
	Epochs        int    `json:"epochs,omitempty"`         // consecutive epochs to check, default 1
	Tolerance     string `json:"tolerance,omitempty"`      // default 100
	AllocationDiv int64  `json:"allocation_div,omitempty"` // default 1
}

// VerifyResponse is the body returned by POST /v1/verify.
type VerifyResponse struct {
	ScenarioID      string                `json:"scenario_id"`
	Match           bool                  `json:"match"`
	TotalChecks     int                   `json:"total_checks"`
	MatchedEpochs   int                   `json:"matched_epochs"`
	DivergentEpochs int                   `json:"divergent_epochs"`
	Results         []EpochResultResponse `json:"results"`
}

// EpochResultResponse is the verification of one eval epoch.
type EpochResultResponse struct {
	EvalEpoch   int                  `json:"eval_epoch"`
	Match       bool                 `json:"match"`
	Checked     int                  `json:"checked"`
	Divergences []DivergenceResponse `json:"divergences"`
}

// DivergenceResponse is one mismatch. Actual is empty when nothing was observed.
type DivergenceResponse struct {
	UserID   int    `json:"user_id"`
	Source   string `json:"source"`
	Bucket   int    `json:"bucket"`
	Expected string `json:"expected"`
	Actual   string `json:"actual,omitempty"`
	Reason   string `json:"reason"`
}

func (a *API) handleVerify(w http.ResponseWriter, r *http.Request) error {
	if a.scenarioStore == nil || a.actionStore == nil || a.claimStore == nil {
		return HTTPError(errVerifyDisabled, http.StatusServiceUnavailable)
	}

	var req VerifyRequest
	if err := ParseRequest(w, r, &req); err != nil {
		return err
	}
	if req.ScenarioID == "" {
		return BadRequest(errors.New("scenario_id is required"))
	}
	if req.EvalEpoch < 1 {
		return BadRequest(fmt.Errorf("eval_epoch must be >= 1, got %d", req.EvalEpoch))
	}
	if req.Epochs < 0 || req.Epochs > domain.MaxEpochs {
		return BadRequest(fmt.Errorf("epochs must be in [1, %d], got %d", domain.MaxEpochs, req.Epochs))
	}
	epochs := req.Epochs
	if epochs == 0 {
		epochs = 1
	}

	tolerance := big.NewInt(verification.DefaultTolerance)
	if req.Tolerance != "" {
		t, err := scenario.ParseAmount(req.Tolerance)
		if err != nil {
			return BadRequest(fmt.Errorf("tolerance: %w", err))
		}
		tolerance = t
	}

	v := verification.NewReplayVerifier(verification.ReplayVerifierOptions{
		ScenarioStore:    a.scenarioStore,
		ActionStore:      a.actionStore,
		ClaimStore:       a.claimStore,
		ExpectationStore: a.expectationStore,
		Tolerance:        tolerance,
		AllocationDiv:    req.AllocationDiv,
	})

	report, err := v.VerifyEpochs(r.Context(), req.ScenarioID, req.EvalEpoch, epochs)
	if err != nil {
		a.metrics.RecordVerificationError()
		switch {
		case errors.Is(err, verification.ErrScenarioNotFound):
			return NotFound(err)
		case errors.Is(err, verification.ErrInvalidEpochCount):
			return BadRequest(err)
		case errors.Is(err, verification.ErrInvalidHistory):
			return HTTPError(err, http.StatusUnprocessableEntity)
		}
		return err
	}

	for _, res := range report.Results {
		bySource := make(map[string]int)
		for _, d := range res.Divergences {
			bySource[d.Source]++
		}
		a.metrics.RecordVerification(res.Match, res.Checked, bySource)
	}
	a.logger.Printf("verified %s epochs %d..%d: match=%v", req.ScenarioID, req.EvalEpoch, req.EvalEpoch+epochs-1, report.Match())

	return WriteJSON(w, verifyResponse(report))
}

func verifyResponse(report *verification.Report) VerifyResponse {
	resp := VerifyResponse{
		ScenarioID:      report.ScenarioID,
		Match:           report.Match(),
		TotalChecks:     report.TotalChecks,
		MatchedEpochs:   report.MatchedEpochs,
		DivergentEpochs: report.DivergentEpochs,
		Results:         make([]EpochResultResponse, 0, len(report.Results)),
	}
	for _, res := range report.Results {
		er := EpochResultResponse{
			EvalEpoch:   res.EvalEpoch,
			Match:       res.Match,
			Checked:     res.Checked,
			Divergences: make([]DivergenceResponse, 0, len(res.Divergences)),
		}
		for _, d := range res.Divergences {
			dr := DivergenceResponse{
				UserID: d.UserID,
				Source: d.Source,
				Bucket: d.Bucket,
				Reason: d.Reason,
			}
			if d.Expected != nil {
				dr.Expected = d.Expected.String()
			}
			if d.Actual != nil {
				dr.Actual = d.Actual.String()
			}
			er.Divergences = append(er.Divergences, dr)
		}
		resp.Results = append(resp.Results, er)
	}
	return resp
}
