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

func TestClaimStore(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := postgres.NewClaimStore(pool)
	ctx := context.Background()

	claim := func(user, epoch int, amount int64) *domain.ClaimObservation {
		return &domain.ClaimObservation{
			ScenarioID: "s1",
			UserID:     user,
			Epoch:      epoch,
			Amount:     big.NewInt(amount),
			ObservedAt: 1_700_000_000_000,
		}
	}

	require.NoError(t, store.Insert(ctx, claim(1, 5, 700)))
	require.NoError(t, store.Insert(ctx, claim(0, 5, 500)))
	require.NoError(t, store.Insert(ctx, claim(0, 6, 900)))

	t.Run("by epoch", func(t *testing.T) {
		got, err := store.GetByScenarioEpoch(ctx, "s1", 5)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, 0, got[0].UserID)
		assert.Equal(t, "500", got[0].Amount.String())
		assert.Equal(t, 1, got[1].UserID)
	})

	t.Run("by user", func(t *testing.T) {
		got, err := store.GetByUser(ctx, "s1", 0)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, 5, got[0].Epoch)
		assert.Equal(t, 6, got[1].Epoch)
	})

	t.Run("duplicate", func(t *testing.T) {
		assert.ErrorIs(t, store.Insert(ctx, claim(0, 5, 1)), storage.ErrDuplicateKey)
	})

	t.Run("empty result", func(t *testing.T) {
		got, err := store.GetByScenarioEpoch(ctx, "other", 5)
		require.NoError(t, err)
		assert.Empty(t, got)
	})
}
