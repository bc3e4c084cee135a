package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"liquidity-mining-lab/internal/domain"
	"liquidity-mining-lab/internal/storage"
)

// ClaimStore implements storage.ClaimStore using PostgreSQL.
type ClaimStore struct {
	pool *Pool
}

// NewClaimStore creates a new ClaimStore.
func NewClaimStore(pool *Pool) *ClaimStore {
	return &ClaimStore{pool: pool}
}

// Compile-time interface check.
var _ storage.ClaimStore = (*ClaimStore)(nil)

// Insert adds an observed claim. Returns ErrDuplicateKey if exists.
func (s *ClaimStore) Insert(ctx context.Context, c *domain.ClaimObservation) error {
	if c == nil || c.ScenarioID == "" || c.Amount == nil {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO reward_claims (scenario_id, user_id, epoch, amount, observed_at)
		VALUES ($1, $2, $3, $4::numeric, $5)
	`

	_, err := s.pool.Exec(ctx, query,
		c.ScenarioID,
		c.UserID,
		c.Epoch,
		numericArg(c.Amount),
		c.ObservedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert reward claim: %w", err)
	}
	return nil
}

// GetByScenarioEpoch retrieves claims made at epoch, ordered by user_id ASC.
func (s *ClaimStore) GetByScenarioEpoch(ctx context.Context, scenarioID string, epoch int) ([]*domain.ClaimObservation, error) {
	query := `
		SELECT id, scenario_id, user_id, epoch, amount::text, observed_at
		FROM reward_claims
		WHERE scenario_id = $1 AND epoch = $2
		ORDER BY user_id ASC
	`

	rows, err := s.pool.Query(ctx, query, scenarioID, epoch)
	if err != nil {
		return nil, fmt.Errorf("get reward claims by epoch: %w", err)
	}
	defer rows.Close()

	return scanClaims(rows)
}

// GetByUser retrieves all claims of a user ordered by epoch ASC.
func (s *ClaimStore) GetByUser(ctx context.Context, scenarioID string, userID int) ([]*domain.ClaimObservation, error) {
	query := `
		SELECT id, scenario_id, user_id, epoch, amount::text, observed_at
		FROM reward_claims
		WHERE scenario_id = $1 AND user_id = $2
		ORDER BY epoch ASC
	`

	rows, err := s.pool.Query(ctx, query, scenarioID, userID)
	if err != nil {
		return nil, fmt.Errorf("get reward claims by user: %w", err)
	}
	defer rows.Close()

	return scanClaims(rows)
}

func scanClaims(rows pgx.Rows) ([]*domain.ClaimObservation, error) {
	var claims []*domain.ClaimObservation

	for rows.Next() {
		var (
			c      domain.ClaimObservation
			amount *string
		)
		if err := rows.Scan(&c.ID, &c.ScenarioID, &c.UserID, &c.Epoch, &amount, &c.ObservedAt); err != nil {
			return nil, fmt.Errorf("scan reward claim row: %w", err)
		}
		var err error
		if c.Amount, err = parseNumeric(amount); err != nil {
			return nil, fmt.Errorf("scan reward claim amount: %w", err)
		}
		claims = append(claims, &c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reward claim rows: %w", err)
	}
	return claims, nil
}
