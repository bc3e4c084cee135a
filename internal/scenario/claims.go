package scenario

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"liquidity-mining-lab/internal/domain"
)

// ErrInvalidClaim is returned for malformed claim observations.
var ErrInvalidClaim = errors.New("invalid claim")

// ClaimFile is one reward balance observed after claiming.
type ClaimFile struct {
	User       int    `yaml:"user" json:"user"`
	Epoch      int    `yaml:"epoch" json:"epoch"`
	Amount     string `yaml:"amount" json:"amount"`
	ObservedAt int64  `yaml:"observed_at" json:"observed_at"` // unix ms, optional
}

// ClaimsFile is the YAML claims format, also accepted as JSON by the HTTP API.
// ScenarioID may be left empty when the caller supplies it.
type ClaimsFile struct {
	ScenarioID string      `yaml:"scenario_id" json:"scenario_id"`
	Claims     []ClaimFile `yaml:"claims" json:"claims"`
}

// LoadClaimsFile reads and parses a claims file.
func LoadClaimsFile(path string) (*ClaimsFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read claims file: %w", err)
	}
	cf, err := ParseClaims(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cf, nil
}

// ParseClaims decodes a YAML claims file.
func ParseClaims(data []byte) (*ClaimsFile, error) {
	var cf ClaimsFile
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return nil, fmt.Errorf("decode claims: %w", err)
	}
	return &cf, nil
}

// Observations validates the claims and converts them for storage.
func (cf ClaimsFile) Observations() ([]*domain.ClaimObservation, error) {
	if cf.ScenarioID == "" {
		return nil, fmt.Errorf("%w: scenario_id is required", ErrInvalidClaim)
	}

	out := make([]*domain.ClaimObservation, 0, len(cf.Claims))
	for i, c := range cf.Claims {
		if c.User < 0 || c.User >= domain.MaxUsers {
			return nil, fmt.Errorf("%w: claim %d has user %d outside [0, %d)", ErrInvalidClaim, i, c.User, domain.MaxUsers)
		}
		if c.Epoch < 1 {
			return nil, fmt.Errorf("%w: claim %d has epoch %d", ErrInvalidClaim, i, c.Epoch)
		}
		amount, err := ParseAmount(c.Amount)
		if err != nil {
			return nil, fmt.Errorf("%w: claim %d: %w", ErrInvalidClaim, i, err)
		}
		out = append(out, &domain.ClaimObservation{
			ScenarioID: cf.ScenarioID,
			UserID:     c.User,
			Epoch:      c.Epoch,
			Amount:     amount,
			ObservedAt: c.ObservedAt,
		})
	}
	return out, nil
}
