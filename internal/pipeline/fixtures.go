package pipeline

import (
	"context"
	"fmt"
	"math/big"

	"liquidity-mining-lab/internal/domain"
	"liquidity-mining-lab/internal/scenario"
	"liquidity-mining-lab/internal/storage"
)

// FixtureStores are the stores seeded by LoadFixtures.
type FixtureStores struct {
	Scenarios    storage.ScenarioStore
	Actions      storage.ActionStore
	Expectations storage.ExpectationStore
	Claims       storage.ClaimStore
}

// Fixture identifies a seeded scenario.
type Fixture struct {
	Name       string
	ScenarioID string
	EvalEpochs []int
}

// LoadFixtures stores every built-in scenario under params together with
// claims at four consecutive eval epochs. Each claim equals the simulated
// claimable amount less the user index, which keeps it within the default
// verification tolerance.
func LoadFixtures(ctx context.Context, stores FixtureStores, params domain.LiqParams) ([]Fixture, error) {
	p := NewSimulationPipeline().WithStores(stores.Scenarios, stores.Actions, stores.Expectations)
	var ingester *ClaimIngester
	if stores.Scenarios != nil && stores.Claims != nil {
		ingester = NewClaimIngester(stores.Scenarios, stores.Claims)
	}

	var fixtures []Fixture
	for _, name := range scenario.Names() {
		sc, err := scenario.ByName(name, params)
		if err != nil {
			return nil, err
		}

		evalEpochs := FourEpochs(sc.EvalEpoch())
		out, err := p.Run(ctx, sc, Options{EvalEpochs: evalEpochs})
		if err != nil {
			return nil, fmt.Errorf("fixture %s: %w", name, err)
		}

		for _, run := range out.Runs {
			if ingester == nil {
				break
			}
			claims := fixtureClaims(run.Result.EvalEpoch, run.Ledger.Claimable())
			if _, err := ingester.Ingest(ctx, out.ScenarioID, claims); err != nil {
				return nil, fmt.Errorf("fixture %s: %w", name, err)
			}
		}

		fixtures = append(fixtures, Fixture{
			Name:       name,
			ScenarioID: out.ScenarioID,
			EvalEpochs: evalEpochs,
		})
	}
	return fixtures, nil
}

// fixtureClaims returns one claim per user, short of claimable by the user index.
func fixtureClaims(epoch int, claimable []*big.Int) []*domain.ClaimObservation {
	claims := make([]*domain.ClaimObservation, 0, len(claimable))
	for userID, amount := range claimable {
		observed := new(big.Int).Set(amount)
		if dust := big.NewInt(int64(userID)); observed.Cmp(dust) >= 0 {
			observed.Sub(observed, dust)
		}
		claims = append(claims, &domain.ClaimObservation{
			UserID: userID,
			Epoch:  epoch,
			Amount: observed,
		})
	}
	return claims
}
