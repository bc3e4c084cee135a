package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"liquidity-mining-lab/internal/domain"
)

// ComputeRunID computes a deterministic run_id using SHA256.
// Formula: SHA256(scenario_id|params|eval_epoch)
// Returns hex-encoded hash (64 characters).
func ComputeRunID(scenarioID string, params domain.LiqParams, evalEpoch int) string {
	data := fmt.Sprintf("%s|%s|%d",
		scenarioID,
		paramsKey(params),
		evalEpoch,
	)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
