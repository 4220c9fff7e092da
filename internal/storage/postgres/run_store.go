package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"risklab/internal/domain"
	"risklab/internal/storage"
)

// SimulationRunStore implements storage.SimulationRunStore using PostgreSQL.
// Percentile curves are stored as JSONB; scalar metrics as flat columns so
// runs can be compared and filtered in SQL.
type SimulationRunStore struct {
	pool *Pool
}

// NewSimulationRunStore creates a new SimulationRunStore.
func NewSimulationRunStore(pool *Pool) *SimulationRunStore {
	return &SimulationRunStore{pool: pool}
}

// Compile-time interface check.
var _ storage.SimulationRunStore = (*SimulationRunStore)(nil)

const selectRunColumns = `
	run_id, status, seed,
	iterations_requested, iterations_completed, execution_time_ms,
	scenario_count, started_at, percentiles,
	var_95, var_99, expected_shortfall_95, probability_of_ruin,
	mean, median, stddev, skewness, min_loss, max_loss,
	annual_loss_expectancy, single_loss_expectancy, discounted_exposure
`

// Insert adds a run result. Returns ErrDuplicateKey if run_id exists.
func (s *SimulationRunStore) Insert(ctx context.Context, r *domain.SimulationResult) error {
	percentiles, err := json.Marshal(r.Percentiles)
	if err != nil {
		return fmt.Errorf("marshal percentiles: %w", err)
	}

	query := `
		INSERT INTO simulation_runs (
			run_id, status, seed,
			iterations_requested, iterations_completed, execution_time_ms,
			scenario_count, started_at, percentiles,
			var_95, var_99, expected_shortfall_95, probability_of_ruin,
			mean, median, stddev, skewness, min_loss, max_loss,
			annual_loss_expectancy, single_loss_expectancy, discounted_exposure
		) VALUES (
			$1, $2, $3,
			$4, $5, $6,
			$7, $8, $9,
			$10, $11, $12, $13,
			$14, $15, $16, $17, $18, $19,
			$20, $21, $22
		)
	`

	_, err = s.pool.Exec(ctx, query,
		r.RunID, string(r.Status), r.Seed,
		r.IterationsRequested, r.IterationsCompleted, r.ExecutionTimeMs,
		r.ScenarioCount, r.StartedAt, percentiles,
		r.RiskMetrics.VaR95, r.RiskMetrics.VaR99,
		r.RiskMetrics.ExpectedShortfall95, r.RiskMetrics.ProbabilityOfRuin,
		r.Statistics.Mean, r.Statistics.Median, r.Statistics.Stddev,
		r.Statistics.Skewness, r.Statistics.Min, r.Statistics.Max,
		r.Projection.AnnualLossExpectancy, r.Projection.SingleLossExpectancy,
		r.Projection.DiscountedExposure,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert simulation run: %w", err)
	}
	return nil
}

// GetByID retrieves a run by its ID. Returns ErrNotFound if not exists.
func (s *SimulationRunStore) GetByID(ctx context.Context, runID string) (*domain.SimulationResult, error) {
	query := `
		SELECT ` + selectRunColumns + `
		FROM simulation_runs
		WHERE run_id = $1
	`

	row := s.pool.QueryRow(ctx, query, runID)
	r, err := scanRun(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get simulation run by id: %w", err)
	}
	return r, nil
}

// GetRecent retrieves up to limit runs, ordered by started_at DESC.
func (s *SimulationRunStore) GetRecent(ctx context.Context, limit int) ([]*domain.SimulationResult, error) {
	if limit <= 0 {
		return nil, storage.ErrInvalidInput
	}

	query := `
		SELECT ` + selectRunColumns + `
		FROM simulation_runs
		ORDER BY started_at DESC, run_id ASC
		LIMIT $1
	`

	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("get recent simulation runs: %w", err)
	}
	defer rows.Close()

	var results []*domain.SimulationResult
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan simulation run row: %w", err)
		}
		results = append(results, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate simulation run rows: %w", err)
	}

	return results, nil
}

// scanRun scans a single row into a SimulationResult.
func scanRun(row pgx.Row) (*domain.SimulationResult, error) {
	var (
		r           domain.SimulationResult
		status      string
		percentiles []byte
	)

	err := row.Scan(
		&r.RunID, &status, &r.Seed,
		&r.IterationsRequested, &r.IterationsCompleted, &r.ExecutionTimeMs,
		&r.ScenarioCount, &r.StartedAt, &percentiles,
		&r.RiskMetrics.VaR95, &r.RiskMetrics.VaR99,
		&r.RiskMetrics.ExpectedShortfall95, &r.RiskMetrics.ProbabilityOfRuin,
		&r.Statistics.Mean, &r.Statistics.Median, &r.Statistics.Stddev,
		&r.Statistics.Skewness, &r.Statistics.Min, &r.Statistics.Max,
		&r.Projection.AnnualLossExpectancy, &r.Projection.SingleLossExpectancy,
		&r.Projection.DiscountedExposure,
	)
	if err != nil {
		return nil, err
	}

	r.Status = domain.RunStatus(status)
	if err := json.Unmarshal(percentiles, &r.Percentiles); err != nil {
		return nil, fmt.Errorf("unmarshal percentiles: %w", err)
	}

	return &r, nil
}
