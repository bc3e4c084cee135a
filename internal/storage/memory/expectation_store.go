package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"liquidity-mining-lab/internal/domain"
	"liquidity-mining-lab/internal/storage"
)

// ExpectationStore is an in-memory implementation of storage.ExpectationStore.
type ExpectationStore struct {
	mu   sync.RWMutex
	data map[string]*domain.RewardExpectation
}

// NewExpectationStore creates a new in-memory expectation store.
func NewExpectationStore() *ExpectationStore {
	return &ExpectationStore{
		data: make(map[string]*domain.RewardExpectation),
	}
}

func expectationKey(runID string, userID, bucket int) string {
	return fmt.Sprintf("%s|%d|%d", runID, userID, bucket)
}

// InsertBulk adds a ledger snapshot. Fails entire batch on any duplicate.
func (s *ExpectationStore) InsertBulk(_ context.Context, rows []*domain.RewardExpectation) error {
	if len(rows) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batchKeys := make(map[string]struct{}, len(rows))
	for _, r := range rows {
		if r == nil || r.RunID == "" || r.ScenarioID == "" || r.Amount == nil {
			return storage.ErrInvalidInput
		}
		key := expectationKey(r.RunID, r.UserID, r.Bucket)
		if _, exists := s.data[key]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[key]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[key] = struct{}{}
	}

	for _, r := range rows {
		c := *r
		c.Amount = copyInt(r.Amount)
		s.data[expectationKey(r.RunID, r.UserID, r.Bucket)] = &c
	}
	return nil
}

// GetByRun retrieves a ledger snapshot ordered by user_id, bucket ASC.
func (s *ExpectationStore) GetByRun(_ context.Context, runID string) ([]*domain.RewardExpectation, error) {
	return s.filter(func(r *domain.RewardExpectation) bool {
		return r.RunID == runID
	}), nil
}

// GetByScenarioEpoch retrieves the snapshot for a scenario evaluated at evalEpoch.
func (s *ExpectationStore) GetByScenarioEpoch(_ context.Context, scenarioID string, evalEpoch int) ([]*domain.RewardExpectation, error) {
	return s.filter(func(r *domain.RewardExpectation) bool {
		return r.ScenarioID == scenarioID && r.EvalEpoch == evalEpoch
	}), nil
}

func (s *ExpectationStore) filter(keep func(*domain.RewardExpectation) bool) []*domain.RewardExpectation {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.RewardExpectation
	for _, r := range s.data {
		if keep(r) {
			c := *r
			c.Amount = copyInt(r.Amount)
			result = append(result, &c)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].RunID != result[j].RunID {
			return result[i].RunID < result[j].RunID
		}
		if result[i].UserID != result[j].UserID {
			return result[i].UserID < result[j].UserID
		}
		return result[i].Bucket < result[j].Bucket
	})
	return result
}

var _ storage.ExpectationStore = (*ExpectationStore)(nil)
