package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"liquidity-mining-lab/internal/domain"
	"liquidity-mining-lab/internal/storage"
)

// ClaimStore is an in-memory implementation of storage.ClaimStore.
type ClaimStore struct {
	mu     sync.RWMutex
	data   map[string]*domain.ClaimObservation
	nextID int64
}

// NewClaimStore creates a new in-memory claim store.
func NewClaimStore() *ClaimStore {
	return &ClaimStore{
		data: make(map[string]*domain.ClaimObservation),
	}
}

func claimKey(scenarioID string, userID, epoch int) string {
	return fmt.Sprintf("%s|%d|%d", scenarioID, userID, epoch)
}

// Insert adds an observed claim. Returns ErrDuplicateKey if exists.
func (s *ClaimStore) Insert(_ context.Context, c *domain.ClaimObservation) error {
	if c == nil || c.ScenarioID == "" || c.Amount == nil {
		return storage.ErrInvalidInput
	}

	key := claimKey(c.ScenarioID, c.UserID, c.Epoch)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[key]; exists {
		return storage.ErrDuplicateKey
	}

	s.nextID++
	cp := *c
	cp.ID = s.nextID
	cp.Amount = copyInt(c.Amount)
	s.data[key] = &cp
	return nil
}

// GetByScenarioEpoch retrieves claims made at epoch, ordered by user_id ASC.
func (s *ClaimStore) GetByScenarioEpoch(_ context.Context, scenarioID string, epoch int) ([]*domain.ClaimObservation, error) {
	result := s.filter(func(c *domain.ClaimObservation) bool {
		return c.ScenarioID == scenarioID && c.Epoch == epoch
	})
	sort.Slice(result, func(i, j int) bool {
		return result[i].UserID < result[j].UserID
	})
	return result, nil
}

// GetByUser retrieves all claims of a user ordered by epoch ASC.
func (s *ClaimStore) GetByUser(_ context.Context, scenarioID string, userID int) ([]*domain.ClaimObservation, error) {
	result := s.filter(func(c *domain.ClaimObservation) bool {
		return c.ScenarioID == scenarioID && c.UserID == userID
	})
	sort.Slice(result, func(i, j int) bool {
		return result[i].Epoch < result[j].Epoch
	})
	return result, nil
}

func (s *ClaimStore) filter(keep func(*domain.ClaimObservation) bool) []*domain.ClaimObservation {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.ClaimObservation
	for _, c := range s.data {
		if keep(c) {
			cp := *c
			cp.Amount = copyInt(c.Amount)
			result = append(result, &cp)
		}
	}
	return result
}

var _ storage.ClaimStore = (*ClaimStore)(nil)
