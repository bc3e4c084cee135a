package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"liquidity-mining-lab/internal/domain"
	"liquidity-mining-lab/internal/storage"
)

// ActionStore implements storage.ActionStore using PostgreSQL.
type ActionStore struct {
	pool *Pool
}

// NewActionStore creates a new ActionStore.
func NewActionStore(pool *Pool) *ActionStore {
	return &ActionStore{pool: pool}
}

// Compile-time interface check.
var _ storage.ActionStore = (*ActionStore)(nil)

const insertActionQuery = `
	INSERT INTO stake_actions (
		scenario_id, user_id, epoch, timestamp, kind, amount
	) VALUES ($1, $2, $3, $4, $5, $6::numeric)
`

// Insert adds a new action. Returns ErrDuplicateKey if exists.
func (s *ActionStore) Insert(ctx context.Context, a *domain.ActionRecord) error {
	if a == nil || a.ScenarioID == "" || a.Amount == nil {
		return storage.ErrInvalidInput
	}

	_, err := s.pool.Exec(ctx, insertActionQuery,
		a.ScenarioID,
		a.UserID,
		a.Epoch,
		a.Timestamp,
		string(a.Kind),
		numericArg(a.Amount),
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert stake action: %w", err)
	}
	return nil
}

// InsertBulk adds multiple actions atomically. Fails entire batch on any duplicate.
func (s *ActionStore) InsertBulk(ctx context.Context, actions []*domain.ActionRecord) error {
	if len(actions) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, a := range actions {
		if a == nil || a.ScenarioID == "" || a.Amount == nil {
			return storage.ErrInvalidInput
		}
		_, err := tx.Exec(ctx, insertActionQuery,
			a.ScenarioID,
			a.UserID,
			a.Epoch,
			a.Timestamp,
			string(a.Kind),
			numericArg(a.Amount),
		)
		if err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert stake action in bulk: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// GetByScenario retrieves all actions of a scenario, ordered by timestamp ASC.
func (s *ActionStore) GetByScenario(ctx context.Context, scenarioID string) ([]*domain.ActionRecord, error) {
	query := `
		SELECT id, scenario_id, user_id, epoch, timestamp, kind, amount::text, created_at
		FROM stake_actions
		WHERE scenario_id = $1
		ORDER BY timestamp ASC, id ASC
	`

	rows, err := s.pool.Query(ctx, query, scenarioID)
	if err != nil {
		return nil, fmt.Errorf("get stake actions by scenario: %w", err)
	}
	defer rows.Close()

	return scanActions(rows)
}

// scanActions scans multiple rows into a slice of ActionRecord.
func scanActions(rows pgx.Rows) ([]*domain.ActionRecord, error) {
	var actions []*domain.ActionRecord

	for rows.Next() {
		var (
			a      domain.ActionRecord
			kind   string
			amount *string
		)

		err := rows.Scan(
			&a.ID,
			&a.ScenarioID,
			&a.UserID,
			&a.Epoch,
			&a.Timestamp,
			&kind,
			&amount,
			&a.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan stake action row: %w", err)
		}

		a.Kind = domain.ActionKind(kind)
		if a.Amount, err = parseNumeric(amount); err != nil {
			return nil, fmt.Errorf("scan stake action amount: %w", err)
		}
		actions = append(actions, &a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate stake action rows: %w", err)
	}

	return actions, nil
}
