package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"liquidity-mining-lab/internal/domain"
)

// ComputeScenarioID computes a deterministic scenario_id using SHA256.
// Formula: SHA256(name|params|user:time:kind:amount;...) over the actions in
// history order. Epoch-end markers are ignored.
// Returns hex-encoded hash (64 characters).
func ComputeScenarioID(name string, params domain.LiqParams, history domain.StakeHistory) string {
	var b strings.Builder
	b.WriteString(name)
	b.WriteByte('|')
	b.WriteString(paramsKey(params))
	b.WriteByte('|')

	for _, a := range history.Actions() {
		if a.IsEpochEnd() {
			continue
		}
		fmt.Fprintf(&b, "%d:%d:%s:%s;", a.UserID, a.Time, a.Kind, intString(a.Amount))
	}

	hash := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(hash[:])
}
