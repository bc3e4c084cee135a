package memory

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"liquidity-mining-lab/internal/domain"
	"liquidity-mining-lab/internal/storage"
)

func TestExpectationStore_InsertBulkAndGet(t *testing.T) {
	store := NewExpectationStore()
	ctx := context.Background()

	rows := []*domain.RewardExpectation{
		{ScenarioID: "s", RunID: "r1", EvalEpoch: 5, UserID: 1, Bucket: 0, Amount: big.NewInt(30)},
		{ScenarioID: "s", RunID: "r1", EvalEpoch: 5, UserID: 0, Bucket: 1, Amount: big.NewInt(20)},
		{ScenarioID: "s", RunID: "r1", EvalEpoch: 5, UserID: 0, Bucket: 0, Amount: big.NewInt(10)},
		{ScenarioID: "s", RunID: "r2", EvalEpoch: 6, UserID: 0, Bucket: 0, Amount: big.NewInt(99)},
	}
	if err := store.InsertBulk(ctx, rows); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	got, err := store.GetByScenarioEpoch(ctx, "s", 5)
	if err != nil {
		t.Fatalf("GetByScenarioEpoch failed: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("Expected 3 rows, got %d", len(got))
	}
	wantAmounts := []int64{10, 20, 30}
	for i, w := range wantAmounts {
		if got[i].Amount.Int64() != w {
			t.Errorf("row %d amount = %s, want %d", i, got[i].Amount, w)
		}
	}

	byRun, _ := store.GetByRun(ctx, "r2")
	if len(byRun) != 1 {
		t.Errorf("Expected 1 row for r2, got %d", len(byRun))
	}

	if err := store.InsertBulk(ctx, rows[:1]); !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey, got %v", err)
	}
}
