package memory

import (
	"context"
	"sort"
	"sync"

	"liquidity-mining-lab/internal/domain"
	"liquidity-mining-lab/internal/storage"
)

// ScenarioStore is an in-memory implementation of storage.ScenarioStore.
type ScenarioStore struct {
	mu   sync.RWMutex
	data map[string]*domain.ScenarioRecord
}

// NewScenarioStore creates a new in-memory scenario store.
func NewScenarioStore() *ScenarioStore {
	return &ScenarioStore{
		data: make(map[string]*domain.ScenarioRecord),
	}
}

// Insert adds a new scenario. Returns ErrDuplicateKey if scenario_id exists.
func (s *ScenarioStore) Insert(_ context.Context, rec *domain.ScenarioRecord) error {
	if rec == nil || rec.ScenarioID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[rec.ScenarioID]; exists {
		return storage.ErrDuplicateKey
	}

	s.data[rec.ScenarioID] = copyScenario(rec)
	return nil
}

// GetByID retrieves a scenario by its ID. Returns ErrNotFound if not exists.
func (s *ScenarioStore) GetByID(_ context.Context, scenarioID string) (*domain.ScenarioRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.data[scenarioID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return copyScenario(rec), nil
}

// List retrieves all scenarios ordered by scenario_id ASC.
func (s *ScenarioStore) List(_ context.Context) ([]*domain.ScenarioRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.ScenarioRecord, 0, len(s.data))
	for _, rec := range s.data {
		result = append(result, copyScenario(rec))
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].ScenarioID < result[j].ScenarioID
	})
	return result, nil
}

func copyScenario(rec *domain.ScenarioRecord) *domain.ScenarioRecord {
	c := *rec
	c.Params.RewardsPerEpoch = copyInt(rec.Params.RewardsPerEpoch)
	c.Params.TotalNumerator = copyInt(rec.Params.TotalNumerator)
	c.Params.InitialLPAmount = copyInt(rec.Params.InitialLPAmount)
	return &c
}

var _ storage.ScenarioStore = (*ScenarioStore)(nil)
