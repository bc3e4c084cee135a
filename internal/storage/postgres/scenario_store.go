package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"liquidity-mining-lab/internal/domain"
	"liquidity-mining-lab/internal/storage"
)

// ScenarioStore implements storage.ScenarioStore using PostgreSQL.
type ScenarioStore struct {
	pool *Pool
}

// NewScenarioStore creates a new ScenarioStore.
func NewScenarioStore(pool *Pool) *ScenarioStore {
	return &ScenarioStore{pool: pool}
}

// Compile-time interface check.
var _ storage.ScenarioStore = (*ScenarioStore)(nil)

const scenarioColumns = `
	scenario_id, description, users, start_time, epoch_duration, number_of_epochs, vesting_epochs,
	rewards_per_epoch::text, total_numerator::text, initial_lp_amount::text, created_at
`

// Insert adds a new scenario. Returns ErrDuplicateKey if scenario_id exists.
func (s *ScenarioStore) Insert(ctx context.Context, rec *domain.ScenarioRecord) error {
	if rec == nil || rec.ScenarioID == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO scenarios (
			scenario_id, description, users, start_time, epoch_duration, number_of_epochs, vesting_epochs,
			rewards_per_epoch, total_numerator, initial_lp_amount
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8::numeric, $9::numeric, $10::numeric)
	`

	p := rec.Params
	_, err := s.pool.Exec(ctx, query,
		rec.ScenarioID,
		rec.Description,
		rec.Users,
		p.StartTime,
		p.EpochDuration,
		p.NumberOfEpochs,
		p.VestingEpochs,
		numericArg(p.RewardsPerEpoch),
		numericArg(p.TotalNumerator),
		numericArg(p.InitialLPAmount),
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert scenario: %w", err)
	}
	return nil
}

// GetByID retrieves a scenario by its ID. Returns ErrNotFound if not exists.
func (s *ScenarioStore) GetByID(ctx context.Context, scenarioID string) (*domain.ScenarioRecord, error) {
	query := `SELECT ` + scenarioColumns + ` FROM scenarios WHERE scenario_id = $1`

	rec, err := scanScenario(s.pool.QueryRow(ctx, query, scenarioID))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get scenario by id: %w", err)
	}
	return rec, nil
}

// List retrieves all scenarios ordered by scenario_id ASC.
func (s *ScenarioStore) List(ctx context.Context) ([]*domain.ScenarioRecord, error) {
	query := `SELECT ` + scenarioColumns + ` FROM scenarios ORDER BY scenario_id ASC`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list scenarios: %w", err)
	}
	defer rows.Close()

	var result []*domain.ScenarioRecord
	for rows.Next() {
		rec, err := scanScenario(rows)
		if err != nil {
			return nil, fmt.Errorf("scan scenario row: %w", err)
		}
		result = append(result, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate scenario rows: %w", err)
	}
	return result, nil
}

func scanScenario(row pgx.Row) (*domain.ScenarioRecord, error) {
	var (
		rec                         domain.ScenarioRecord
		reward, numerator, initialLP *string
	)

	err := row.Scan(
		&rec.ScenarioID,
		&rec.Description,
		&rec.Users,
		&rec.Params.StartTime,
		&rec.Params.EpochDuration,
		&rec.Params.NumberOfEpochs,
		&rec.Params.VestingEpochs,
		&reward,
		&numerator,
		&initialLP,
		&rec.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if rec.Params.RewardsPerEpoch, err = parseNumeric(reward); err != nil {
		return nil, err
	}
	if rec.Params.TotalNumerator, err = parseNumeric(numerator); err != nil {
		return nil, err
	}
	if rec.Params.InitialLPAmount, err = parseNumeric(initialLP); err != nil {
		return nil, err
	}
	return &rec, nil
}
