package memory

import (
	"context"
	"sort"
	"sync"

	"risklab/internal/domain"
	"risklab/internal/storage"
)

// ScenarioStore is an in-memory implementation of storage.ScenarioStore.
type ScenarioStore struct {
	mu   sync.RWMutex
	data map[string]*domain.RiskScenario // keyed by scenario_id
}

// NewScenarioStore creates a new in-memory scenario store.
func NewScenarioStore() *ScenarioStore {
	return &ScenarioStore{
		data: make(map[string]*domain.RiskScenario),
	}
}

// Insert adds a new scenario. Returns ErrDuplicateKey if scenario_id exists.
func (s *ScenarioStore) Insert(_ context.Context, sc *domain.RiskScenario) error {
	if sc == nil || sc.ScenarioID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[sc.ScenarioID]; exists {
		return storage.ErrDuplicateKey
	}

	copy := *sc
	s.data[sc.ScenarioID] = &copy
	return nil
}

// InsertBulk adds multiple scenarios atomically. Fails entire batch on any duplicate.
func (s *ScenarioStore) InsertBulk(_ context.Context, scenarios []*domain.RiskScenario) error {
	if len(scenarios) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Track keys in this batch to detect intra-batch duplicates
	batchKeys := make(map[string]struct{}, len(scenarios))

	for _, sc := range scenarios {
		if sc == nil || sc.ScenarioID == "" {
			return storage.ErrInvalidInput
		}
		if _, exists := s.data[sc.ScenarioID]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[sc.ScenarioID]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[sc.ScenarioID] = struct{}{}
	}

	for _, sc := range scenarios {
		copy := *sc
		s.data[sc.ScenarioID] = &copy
	}

	return nil
}

// GetByID retrieves a scenario by its ID. Returns ErrNotFound if not exists.
func (s *ScenarioStore) GetByID(_ context.Context, scenarioID string) (*domain.RiskScenario, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sc, exists := s.data[scenarioID]
	if !exists {
		return nil, storage.ErrNotFound
	}

	copy := *sc
	return &copy, nil
}

// GetByName retrieves all scenarios with a given name, ordered by created_at ASC.
func (s *ScenarioStore) GetByName(_ context.Context, name string) ([]*domain.RiskScenario, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.RiskScenario
	for _, sc := range s.data {
		if sc.Name == name {
			copy := *sc
			result = append(result, &copy)
		}
	}

	sortScenarios(result)
	return result, nil
}

// GetAll retrieves all scenarios, ordered by created_at ASC, scenario_id ASC.
func (s *ScenarioStore) GetAll(_ context.Context) ([]*domain.RiskScenario, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.RiskScenario, 0, len(s.data))
	for _, sc := range s.data {
		copy := *sc
		result = append(result, &copy)
	}

	sortScenarios(result)
	return result, nil
}

func sortScenarios(scenarios []*domain.RiskScenario) {
	sort.Slice(scenarios, func(i, j int) bool {
		if scenarios[i].CreatedAt != scenarios[j].CreatedAt {
			return scenarios[i].CreatedAt < scenarios[j].CreatedAt
		}
		return scenarios[i].ScenarioID < scenarios[j].ScenarioID
	})
}

var _ storage.ScenarioStore = (*ScenarioStore)(nil)
