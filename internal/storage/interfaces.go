package storage

import (
	"context"

	"risklab/internal/domain"
)

// ScenarioStore provides access to risk_scenarios storage.
type ScenarioStore interface {
	// Insert adds a new scenario. Returns ErrDuplicateKey if scenario_id exists.
	Insert(ctx context.Context, s *domain.RiskScenario) error

	// InsertBulk adds multiple scenarios atomically. Fails entire batch on any duplicate.
	InsertBulk(ctx context.Context, scenarios []*domain.RiskScenario) error

	// GetByID retrieves a scenario by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, scenarioID string) (*domain.RiskScenario, error)

	// GetByName retrieves all scenarios with a given name, ordered by created_at ASC.
	// Names are not unique: recalibrated estimates produce new scenario ids.
	GetByName(ctx context.Context, name string) ([]*domain.RiskScenario, error)

	// GetAll retrieves all scenarios, ordered by created_at ASC, scenario_id ASC.
	GetAll(ctx context.Context) ([]*domain.RiskScenario, error)
}

// SimulationRunStore provides access to simulation_runs storage.
type SimulationRunStore interface {
	// Insert adds a completed or partial run result. Returns ErrDuplicateKey
	// if run_id exists.
	Insert(ctx context.Context, r *domain.SimulationResult) error

	// GetByID retrieves a run by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, runID string) (*domain.SimulationResult, error)

	// GetRecent retrieves up to limit runs, ordered by started_at DESC.
	GetRecent(ctx context.Context, limit int) ([]*domain.SimulationResult, error)
}

// OutcomeSampleStore provides access to outcome_samples storage: the
// per-iteration loss sample of full-retention runs.
type OutcomeSampleStore interface {
	// InsertBulk adds a run's outcome sample in one batch.
	InsertBulk(ctx context.Context, samples []*domain.IterationOutcome) error

	// GetByRunID retrieves all outcomes for a run, ordered by iteration ASC.
	GetByRunID(ctx context.Context, runID string) ([]*domain.IterationOutcome, error)

	// Quantiles re-aggregates the persisted sample: one loss value per
	// requested percentile (ascending, in (0,100)).
	Quantiles(ctx context.Context, runID string, percentiles []float64) ([]float64, error)
}
