package api

import (
	"errors"
	"net/http"

	"liquidity-mining-lab/internal/pipeline"
	"liquidity-mining-lab/internal/scenario"
	"liquidity-mining-lab/internal/storage"
)

var errClaimsDisabled = errors.New("claim storage is not configured")

// ClaimsRequest is the body of POST /v1/claims. It follows the YAML claims format.
type ClaimsRequest = scenario.ClaimsFile

// ClaimsResponse is the body returned by POST /v1/claims.
type ClaimsResponse struct {
	ScenarioID string `json:"scenario_id"`
	Stored     int    `json:"stored"`
	Duplicates int    `json:"duplicates"`
}

func (a *API) handleClaims(w http.ResponseWriter, r *http.Request) error {
	if a.scenarioStore == nil || a.claimStore == nil {
		return HTTPError(errClaimsDisabled, http.StatusServiceUnavailable)
	}

	var req ClaimsRequest
	if err := ParseRequest(w, r, &req); err != nil {
		return err
	}
	claims, err := req.Observations()
	if err != nil {
		return BadRequest(err)
	}

	res, err := pipeline.NewClaimIngester(a.scenarioStore, a.claimStore).
		WithMetrics(a.metrics).
		WithLogger(a.logger).
		Ingest(r.Context(), req.ScenarioID, claims)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return NotFound(err)
	case errors.Is(err, pipeline.ErrClaimOutsideScenario), errors.Is(err, storage.ErrInvalidInput):
		return BadRequest(err)
	case err != nil:
		return err
	}

	return WriteJSON(w, ClaimsResponse{
		ScenarioID: req.ScenarioID,
		Stored:     res.Stored,
		Duplicates: res.Duplicates,
	})
}
