package clickhouse

import (
	"context"
	"fmt"
	"math"
	"strings"

	"risklab/internal/domain"
	"risklab/internal/storage"
)

// OutcomeSampleStore implements storage.OutcomeSampleStore using ClickHouse.
// Outcome samples are write-once bulk data: MergeTree append with no
// uniqueness enforcement, re-aggregated server-side with exact quantiles.
type OutcomeSampleStore struct {
	conn *Conn
}

// NewOutcomeSampleStore creates a new OutcomeSampleStore.
func NewOutcomeSampleStore(conn *Conn) *OutcomeSampleStore {
	return &OutcomeSampleStore{conn: conn}
}

// Compile-time interface check.
var _ storage.OutcomeSampleStore = (*OutcomeSampleStore)(nil)

// InsertBulk adds a run's outcome sample in one batch.
func (s *OutcomeSampleStore) InsertBulk(ctx context.Context, samples []*domain.IterationOutcome) error {
	if len(samples) == 0 {
		return nil
	}
	for _, o := range samples {
		if o == nil || o.RunID == "" || o.Iteration < 0 {
			return storage.ErrInvalidInput
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO outcome_samples (run_id, iteration, loss)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, o := range samples {
		if err := batch.Append(o.RunID, uint64(o.Iteration), o.Loss); err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// GetByRunID retrieves all outcomes for a run, ordered by iteration ASC.
func (s *OutcomeSampleStore) GetByRunID(ctx context.Context, runID string) ([]*domain.IterationOutcome, error) {
	query := `
		SELECT run_id, iteration, loss
		FROM outcome_samples
		WHERE run_id = ?
		ORDER BY iteration ASC
	`

	rows, err := s.conn.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("get outcomes by run id: %w", err)
	}
	defer rows.Close()

	var outcomes []*domain.IterationOutcome
	for rows.Next() {
		var (
			o         domain.IterationOutcome
			iteration uint64
		)
		if err := rows.Scan(&o.RunID, &iteration, &o.Loss); err != nil {
			return nil, fmt.Errorf("scan outcome row: %w", err)
		}
		o.Iteration = int(iteration)
		outcomes = append(outcomes, &o)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate outcome rows: %w", err)
	}

	return outcomes, nil
}

// Quantiles re-aggregates the persisted sample server-side.
// quantilesExactInclusive interpolates linearly between order statistics, the
// same estimator the engine uses at finalize.
func (s *OutcomeSampleStore) Quantiles(ctx context.Context, runID string, percentiles []float64) ([]float64, error) {
	if len(percentiles) == 0 {
		return nil, storage.ErrInvalidInput
	}

	levels := make([]string, len(percentiles))
	for i, p := range percentiles {
		if math.IsNaN(p) || p <= 0 || p >= 100 {
			return nil, storage.ErrInvalidInput
		}
		levels[i] = fmt.Sprintf("%g", p/100)
	}

	query := fmt.Sprintf(`
		SELECT quantilesExactInclusive(%s)(loss), count()
		FROM outcome_samples
		WHERE run_id = ?
	`, strings.Join(levels, ", "))

	var (
		quantiles []float64
		count     uint64
	)
	row := s.conn.QueryRow(ctx, query, runID)
	if err := row.Scan(&quantiles, &count); err != nil {
		return nil, fmt.Errorf("query quantiles: %w", err)
	}
	if count == 0 {
		return nil, storage.ErrNotFound
	}

	return quantiles, nil
}
