package clickhouse_test

import (
	"context"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"liquidity-mining-lab/internal/domain"
	"liquidity-mining-lab/internal/storage"
	"liquidity-mining-lab/internal/storage/clickhouse"
)

func expectation(runID string, evalEpoch, user, bucket int, amount *big.Int) *domain.RewardExpectation {
	return &domain.RewardExpectation{
		ScenarioID: "s1",
		RunID:      runID,
		EvalEpoch:  evalEpoch,
		UserID:     user,
		Bucket:     bucket,
		Amount:     amount,
	}
}

func TestExpectationStore(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := clickhouse.NewExpectationStore(conn)
	ctx := context.Background()

	huge := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))

	t.Run("insert and get by run", func(t *testing.T) {
		require.NoError(t, store.InsertBulk(ctx, []*domain.RewardExpectation{
			expectation("run-1", 5, 1, 0, big.NewInt(300)),
			expectation("run-1", 5, 0, 1, big.NewInt(200)),
			expectation("run-1", 5, 0, 0, huge),
		}))

		got, err := store.GetByRun(ctx, "run-1")
		require.NoError(t, err)
		require.Len(t, got, 3)
		assert.Equal(t, 0, got[0].UserID)
		assert.Equal(t, 0, got[0].Bucket)
		assert.Equal(t, 0, huge.Cmp(got[0].Amount))
		assert.Equal(t, 1, got[1].Bucket)
		assert.Equal(t, 1, got[2].UserID)
		assert.Equal(t, 5, got[2].EvalEpoch)
	})

	t.Run("run written once", func(t *testing.T) {
		err := store.InsertBulk(ctx, []*domain.RewardExpectation{
			expectation("run-1", 5, 2, 0, big.NewInt(1)),
		})
		assert.ErrorIs(t, err, storage.ErrDuplicateKey)
	})

	t.Run("intra-batch duplicate", func(t *testing.T) {
		err := store.InsertBulk(ctx, []*domain.RewardExpectation{
			expectation("run-2", 6, 0, 0, big.NewInt(1)),
			expectation("run-2", 6, 0, 0, big.NewInt(2)),
		})
		assert.ErrorIs(t, err, storage.ErrDuplicateKey)
	})

	t.Run("by scenario epoch", func(t *testing.T) {
		require.NoError(t, store.InsertBulk(ctx, []*domain.RewardExpectation{
			expectation("run-3", 6, 0, 0, big.NewInt(10)),
		}))

		got, err := store.GetByScenarioEpoch(ctx, "s1", 6)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "run-3", got[0].RunID)
		assert.Equal(t, "10", got[0].Amount.String())
	})

	t.Run("invalid input", func(t *testing.T) {
		err := store.InsertBulk(ctx, []*domain.RewardExpectation{
			expectation("run-4", 6, 0, 0, big.NewInt(-1)),
		})
		assert.ErrorIs(t, err, storage.ErrInvalidInput)
	})
}
