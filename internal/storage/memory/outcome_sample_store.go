package memory

import (
	"context"
	"math"
	"sort"
	"sync"

	"risklab/internal/domain"
	"risklab/internal/storage"
)

// OutcomeSampleStore is an in-memory implementation of storage.OutcomeSampleStore.
type OutcomeSampleStore struct {
	mu   sync.RWMutex
	data map[string][]*domain.IterationOutcome // keyed by run_id
}

// NewOutcomeSampleStore creates a new in-memory outcome sample store.
func NewOutcomeSampleStore() *OutcomeSampleStore {
	return &OutcomeSampleStore{
		data: make(map[string][]*domain.IterationOutcome),
	}
}

// InsertBulk adds a run's outcome sample in one batch.
func (s *OutcomeSampleStore) InsertBulk(_ context.Context, samples []*domain.IterationOutcome) error {
	if len(samples) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, o := range samples {
		if o == nil || o.RunID == "" || o.Iteration < 0 {
			return storage.ErrInvalidInput
		}
	}
	for _, o := range samples {
		copy := *o
		s.data[o.RunID] = append(s.data[o.RunID], &copy)
	}

	return nil
}

// GetByRunID retrieves all outcomes for a run, ordered by iteration ASC.
func (s *OutcomeSampleStore) GetByRunID(_ context.Context, runID string) ([]*domain.IterationOutcome, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored := s.data[runID]
	result := make([]*domain.IterationOutcome, 0, len(stored))
	for _, o := range stored {
		copy := *o
		result = append(result, &copy)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Iteration < result[j].Iteration
	})
	return result, nil
}

// Quantiles re-aggregates the persisted sample with linear interpolation
// between order statistics.
func (s *OutcomeSampleStore) Quantiles(_ context.Context, runID string, percentiles []float64) ([]float64, error) {
	for _, p := range percentiles {
		if math.IsNaN(p) || p <= 0 || p >= 100 {
			return nil, storage.ErrInvalidInput
		}
	}

	s.mu.RLock()
	losses := make([]float64, 0, len(s.data[runID]))
	for _, o := range s.data[runID] {
		losses = append(losses, o.Loss)
	}
	s.mu.RUnlock()

	if len(losses) == 0 {
		return nil, storage.ErrNotFound
	}
	sort.Float64s(losses)

	result := make([]float64, len(percentiles))
	for i, p := range percentiles {
		rank := p / 100 * float64(len(losses)-1)
		lo := int(math.Floor(rank))
		hi := int(math.Ceil(rank))
		if lo == hi {
			result[i] = losses[lo]
			continue
		}
		frac := rank - float64(lo)
		result[i] = losses[lo] + frac*(losses[hi]-losses[lo])
	}
	return result, nil
}

var _ storage.OutcomeSampleStore = (*OutcomeSampleStore)(nil)
