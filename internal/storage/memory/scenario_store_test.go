package memory

import (
	"context"
	"errors"
	"testing"

	"liquidity-mining-lab/internal/domain"
	"liquidity-mining-lab/internal/storage"
)

func TestScenarioStore_InsertGetList(t *testing.T) {
	store := NewScenarioStore()
	ctx := context.Background()

	for _, id := range []string{"b", "a"} {
		rec := &domain.ScenarioRecord{ScenarioID: id, Users: 2, Params: domain.DefaultLiqParams()}
		if err := store.Insert(ctx, rec); err != nil {
			t.Fatalf("Insert %s failed: %v", id, err)
		}
	}

	got, err := store.GetByID(ctx, "a")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.Users != 2 || got.Params.VestingEpochs != 4 {
		t.Errorf("Unexpected scenario: %+v", got)
	}

	list, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(list) != 2 || list[0].ScenarioID != "a" {
		t.Errorf("Unexpected list order: %v", list)
	}

	if _, err := store.GetByID(ctx, "missing"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
	if err := store.Insert(ctx, &domain.ScenarioRecord{ScenarioID: "a"}); !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey, got %v", err)
	}
}
