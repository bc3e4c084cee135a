package memory

import (
	"context"
	"fmt"
	"math/big"
	"sort"
	"sync"

	"liquidity-mining-lab/internal/domain"
	"liquidity-mining-lab/internal/storage"
)

// ActionStore is an in-memory implementation of storage.ActionStore.
type ActionStore struct {
	mu     sync.RWMutex
	data   map[string]*domain.ActionRecord // keyed by composite key
	nextID int64
}

// NewActionStore creates a new in-memory action store.
func NewActionStore() *ActionStore {
	return &ActionStore{
		data: make(map[string]*domain.ActionRecord),
	}
}

// actionKey generates a unique key for an action.
func actionKey(scenarioID string, userID int, timestamp int64) string {
	return fmt.Sprintf("%s|%d|%d", scenarioID, userID, timestamp)
}

func validAction(a *domain.ActionRecord) bool {
	if a == nil || a.ScenarioID == "" || a.Amount == nil || a.Amount.Sign() < 0 {
		return false
	}
	return a.Kind == domain.ActionStake || a.Kind == domain.ActionWithdraw
}

// Insert adds a new action. Returns ErrDuplicateKey if exists.
func (s *ActionStore) Insert(_ context.Context, a *domain.ActionRecord) error {
	if !validAction(a) {
		return storage.ErrInvalidInput
	}

	key := actionKey(a.ScenarioID, a.UserID, a.Timestamp)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[key]; exists {
		return storage.ErrDuplicateKey
	}

	s.data[key] = s.stamp(a)
	return nil
}

// InsertBulk adds multiple actions atomically. Fails entire batch on any duplicate.
func (s *ActionStore) InsertBulk(_ context.Context, actions []*domain.ActionRecord) error {
	if len(actions) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batchKeys := make(map[string]struct{}, len(actions))

	for _, a := range actions {
		if !validAction(a) {
			return storage.ErrInvalidInput
		}
		key := actionKey(a.ScenarioID, a.UserID, a.Timestamp)
		if _, exists := s.data[key]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[key]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[key] = struct{}{}
	}

	for _, a := range actions {
		s.data[actionKey(a.ScenarioID, a.UserID, a.Timestamp)] = s.stamp(a)
	}

	return nil
}

// GetByScenario retrieves all actions of a scenario, ordered by timestamp ASC.
func (s *ActionStore) GetByScenario(_ context.Context, scenarioID string) ([]*domain.ActionRecord, error) {
	return s.filter(func(a *domain.ActionRecord) bool {
		return a.ScenarioID == scenarioID
	}), nil
}

func (s *ActionStore) filter(keep func(*domain.ActionRecord) bool) []*domain.ActionRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.ActionRecord
	for _, a := range s.data {
		if keep(a) {
			result = append(result, copyAction(a))
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Timestamp != result[j].Timestamp {
			return result[i].Timestamp < result[j].Timestamp
		}
		return result[i].ID < result[j].ID
	})
	return result
}

// stamp copies a and assigns the next ID. Caller holds the write lock.
func (s *ActionStore) stamp(a *domain.ActionRecord) *domain.ActionRecord {
	s.nextID++
	c := copyAction(a)
	c.ID = s.nextID
	return c
}

func copyAction(a *domain.ActionRecord) *domain.ActionRecord {
	c := *a
	c.Amount = copyInt(a.Amount)
	return &c
}

func copyInt(v *big.Int) *big.Int {
	if v == nil {
		return nil
	}
	return new(big.Int).Set(v)
}

var _ storage.ActionStore = (*ActionStore)(nil)
