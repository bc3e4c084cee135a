package clickhouse

import (
	"context"
	"fmt"
	"math/big"

	"liquidity-mining-lab/internal/domain"
	"liquidity-mining-lab/internal/storage"
)

// ExpectationStore implements storage.ExpectationStore using ClickHouse.
// Amounts are stored as decimal strings since uint256 values overflow Decimal256.
type ExpectationStore struct {
	conn *Conn
}

// NewExpectationStore creates a new ExpectationStore.
func NewExpectationStore(conn *Conn) *ExpectationStore {
	return &ExpectationStore{conn: conn}
}

// Compile-time interface check.
var _ storage.ExpectationStore = (*ExpectationStore)(nil)

// InsertBulk adds a ledger snapshot. Fails entire batch on duplicate (run_id, user_id, bucket).
func (s *ExpectationStore) InsertBulk(ctx context.Context, rows []*domain.RewardExpectation) error {
	if len(rows) == 0 {
		return nil
	}

	type key struct {
		runID  string
		userID int
		bucket int
	}
	seen := make(map[key]struct{}, len(rows))
	runs := make(map[string]struct{})
	for _, r := range rows {
		if r == nil || r.RunID == "" || r.ScenarioID == "" || r.Amount == nil || r.Amount.Sign() < 0 {
			return storage.ErrInvalidInput
		}
		k := key{r.RunID, r.UserID, r.Bucket}
		if _, exists := seen[k]; exists {
			return storage.ErrDuplicateKey
		}
		seen[k] = struct{}{}
		runs[r.RunID] = struct{}{}
	}

	// MergeTree does not enforce uniqueness; a snapshot is written once per run.
	for runID := range runs {
		exists, err := s.runExists(ctx, runID)
		if err != nil {
			return fmt.Errorf("check exists: %w", err)
		}
		if exists {
			return storage.ErrDuplicateKey
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO reward_expectations (
			scenario_id, run_id, eval_epoch, user_id, bucket, amount
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, r := range rows {
		err = batch.Append(
			r.ScenarioID, r.RunID, uint32(r.EvalEpoch),
			uint32(r.UserID), uint32(r.Bucket), r.Amount.String(),
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetByRun retrieves a ledger snapshot ordered by user_id, bucket ASC.
func (s *ExpectationStore) GetByRun(ctx context.Context, runID string) ([]*domain.RewardExpectation, error) {
	query := `
		SELECT scenario_id, run_id, eval_epoch, user_id, bucket, amount
		FROM reward_expectations
		WHERE run_id = ?
		ORDER BY user_id ASC, bucket ASC
	`
	return s.query(ctx, query, runID)
}

// GetByScenarioEpoch retrieves the snapshot for a scenario evaluated at evalEpoch.
func (s *ExpectationStore) GetByScenarioEpoch(ctx context.Context, scenarioID string, evalEpoch int) ([]*domain.RewardExpectation, error) {
	query := `
		SELECT scenario_id, run_id, eval_epoch, user_id, bucket, amount
		FROM reward_expectations
		WHERE scenario_id = ? AND eval_epoch = ?
		ORDER BY run_id ASC, user_id ASC, bucket ASC
	`
	return s.query(ctx, query, scenarioID, uint32(evalEpoch))
}

func (s *ExpectationStore) query(ctx context.Context, query string, args ...any) ([]*domain.RewardExpectation, error) {
	rows, err := s.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query reward expectations: %w", err)
	}
	defer rows.Close()

	var result []*domain.RewardExpectation
	for rows.Next() {
		var (
			r                       domain.RewardExpectation
			evalEpoch, user, bucket uint32
			amount                  string
		)
		if err := rows.Scan(&r.ScenarioID, &r.RunID, &evalEpoch, &user, &bucket, &amount); err != nil {
			return nil, fmt.Errorf("scan reward expectation: %w", err)
		}
		v, ok := new(big.Int).SetString(amount, 10)
		if !ok {
			return nil, fmt.Errorf("parse amount %q", amount)
		}
		r.EvalEpoch = int(evalEpoch)
		r.UserID = int(user)
		r.Bucket = int(bucket)
		r.Amount = v
		result = append(result, &r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reward expectations: %w", err)
	}
	return result, nil
}

func (s *ExpectationStore) runExists(ctx context.Context, runID string) (bool, error) {
	var count uint64
	err := s.conn.QueryRow(ctx, `
		SELECT count() FROM reward_expectations WHERE run_id = ?
	`, runID).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
