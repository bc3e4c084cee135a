package storage

import (
	"context"

	"liquidity-mining-lab/internal/domain"
)

// ScenarioStore provides access to scenarios storage.
type ScenarioStore interface {
	// Insert adds a new scenario. Returns ErrDuplicateKey if scenario_id exists.
	Insert(ctx context.Context, s *domain.ScenarioRecord) error

	// GetByID retrieves a scenario by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, scenarioID string) (*domain.ScenarioRecord, error)

	// List retrieves all scenarios ordered by scenario_id ASC.
	List(ctx context.Context) ([]*domain.ScenarioRecord, error)
}

// ActionStore provides access to stake_actions storage.
type ActionStore interface {
	// Insert adds a new action. Returns ErrDuplicateKey if (scenario_id, user_id, timestamp) exists.
	Insert(ctx context.Context, a *domain.ActionRecord) error

	// InsertBulk adds multiple actions atomically. Fails entire batch on any duplicate.
	InsertBulk(ctx context.Context, actions []*domain.ActionRecord) error

	// GetByScenario retrieves all actions of a scenario, ordered by timestamp ASC.
	GetByScenario(ctx context.Context, scenarioID string) ([]*domain.ActionRecord, error)
}

// ExpectationStore provides access to reward_expectations storage.
type ExpectationStore interface {
	// InsertBulk adds a ledger snapshot. Fails entire batch on duplicate (run_id, user_id, bucket).
	InsertBulk(ctx context.Context, rows []*domain.RewardExpectation) error

	// GetByRun retrieves a ledger snapshot ordered by user_id, bucket ASC.
	GetByRun(ctx context.Context, runID string) ([]*domain.RewardExpectation, error)

	// GetByScenarioEpoch retrieves the snapshot for a scenario evaluated at evalEpoch.
	GetByScenarioEpoch(ctx context.Context, scenarioID string, evalEpoch int) ([]*domain.RewardExpectation, error)
}

// ClaimStore provides access to reward_claims storage.
type ClaimStore interface {
	// Insert adds an observed claim. Returns ErrDuplicateKey if (scenario_id, user_id, epoch) exists.
	Insert(ctx context.Context, c *domain.ClaimObservation) error

	// GetByScenarioEpoch retrieves claims made at epoch, ordered by user_id ASC.
	GetByScenarioEpoch(ctx context.Context, scenarioID string, epoch int) ([]*domain.ClaimObservation, error)

	// GetByUser retrieves all claims of a user ordered by epoch ASC.
	GetByUser(ctx context.Context, scenarioID string, userID int) ([]*domain.ClaimObservation, error)
}
