package postgres_test

import (
	"context"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"liquidity-mining-lab/internal/domain"
	"liquidity-mining-lab/internal/storage"
	"liquidity-mining-lab/internal/storage/postgres"
)

func action(scenarioID string, user int, ts int64, kind domain.ActionKind, amount int64) *domain.ActionRecord {
	return &domain.ActionRecord{
		ScenarioID: scenarioID,
		UserID:     user,
		Epoch:      1,
		Timestamp:  ts,
		Kind:       kind,
		Amount:     big.NewInt(amount),
	}
}

func TestActionStore(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := postgres.NewActionStore(pool)
	ctx := context.Background()

	t.Run("insert and get by scenario", func(t *testing.T) {
		require.NoError(t, store.Insert(ctx, action("s1", 0, 200, domain.ActionStake, 10)))
		require.NoError(t, store.Insert(ctx, action("s1", 1, 100, domain.ActionStake, 20)))
		require.NoError(t, store.Insert(ctx, action("s2", 0, 150, domain.ActionStake, 5)))

		got, err := store.GetByScenario(ctx, "s1")
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, int64(100), got[0].Timestamp)
		assert.Equal(t, 1, got[0].UserID)
		assert.Equal(t, domain.ActionStake, got[0].Kind)
		assert.Equal(t, "20", got[0].Amount.String())
		assert.NotZero(t, got[0].ID)
	})

	t.Run("duplicate key", func(t *testing.T) {
		err := store.Insert(ctx, action("s1", 0, 200, domain.ActionWithdraw, 1))
		assert.ErrorIs(t, err, storage.ErrDuplicateKey)
	})

	t.Run("bulk is atomic", func(t *testing.T) {
		err := store.InsertBulk(ctx, []*domain.ActionRecord{
			action("s3", 0, 10, domain.ActionStake, 1),
			action("s3", 0, 10, domain.ActionWithdraw, 1),
		})
		assert.ErrorIs(t, err, storage.ErrDuplicateKey)

		got, err := store.GetByScenario(ctx, "s3")
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("bulk insert keeps order and wide amounts", func(t *testing.T) {
		big256 := new(big.Int).Lsh(big.NewInt(1), 200)
		rec := action("s4", 2, 30, domain.ActionStake, 0)
		rec.Amount = big256
		require.NoError(t, store.InsertBulk(ctx, []*domain.ActionRecord{
			action("s4", 0, 10, domain.ActionStake, 1),
			action("s4", 1, 20, domain.ActionStake, 2),
			rec,
		}))

		got, err := store.GetByScenario(ctx, "s4")
		require.NoError(t, err)
		require.Len(t, got, 3)
		assert.Equal(t, int64(10), got[0].Timestamp)
		assert.Equal(t, int64(20), got[1].Timestamp)
		assert.Equal(t, 0, big256.Cmp(got[2].Amount))
	})

	t.Run("invalid input", func(t *testing.T) {
		assert.ErrorIs(t, store.Insert(ctx, nil), storage.ErrInvalidInput)
		assert.ErrorIs(t, store.Insert(ctx, &domain.ActionRecord{ScenarioID: "s"}), storage.ErrInvalidInput)
	})
}
