package memory

import (
	"context"
	"sort"
	"sync"

	"risklab/internal/domain"
	"risklab/internal/storage"
)

// SimulationRunStore is an in-memory implementation of storage.SimulationRunStore.
type SimulationRunStore struct {
	mu   sync.RWMutex
	data map[string]*domain.SimulationResult // keyed by run_id
}

// NewSimulationRunStore creates a new in-memory run store.
func NewSimulationRunStore() *SimulationRunStore {
	return &SimulationRunStore{
		data: make(map[string]*domain.SimulationResult),
	}
}

// Insert adds a run result. Returns ErrDuplicateKey if run_id exists.
func (s *SimulationRunStore) Insert(_ context.Context, r *domain.SimulationResult) error {
	if r == nil || r.RunID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[r.RunID]; exists {
		return storage.ErrDuplicateKey
	}

	s.data[r.RunID] = copyResult(r)
	return nil
}

// GetByID retrieves a run by its ID. Returns ErrNotFound if not exists.
func (s *SimulationRunStore) GetByID(_ context.Context, runID string) (*domain.SimulationResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, exists := s.data[runID]
	if !exists {
		return nil, storage.ErrNotFound
	}

	return copyResult(r), nil
}

// GetRecent retrieves up to limit runs, ordered by started_at DESC.
func (s *SimulationRunStore) GetRecent(_ context.Context, limit int) ([]*domain.SimulationResult, error) {
	if limit <= 0 {
		return nil, storage.ErrInvalidInput
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.SimulationResult, 0, len(s.data))
	for _, r := range s.data {
		result = append(result, copyResult(r))
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].StartedAt != result[j].StartedAt {
			return result[i].StartedAt > result[j].StartedAt
		}
		return result[i].RunID < result[j].RunID
	})

	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// copyResult deep-copies a result so callers cannot mutate stored state.
func copyResult(r *domain.SimulationResult) *domain.SimulationResult {
	copy := *r
	copy.Percentiles = append([]domain.PercentilePoint(nil), r.Percentiles...)
	copy.Outcomes = append([]float64(nil), r.Outcomes...)
	return &copy
}

var _ storage.SimulationRunStore = (*SimulationRunStore)(nil)
