package domain

import (
	"fmt"
	"math"
	"runtime"
	"time"
)

// Default simulation parameters.
const (
	DefaultIterations       = 10_000
	DefaultBatchSize        = 1_000
	DefaultTimeHorizonYears = 1
	DefaultProgressInterval = 250 * time.Millisecond
)

// DefaultConfidenceLevels are the percentiles reported when the caller does
// not request a specific set.
var DefaultConfidenceLevels = []float64{5, 10, 25, 50, 75, 90, 95, 99}

// SimulationParameters configures one Monte Carlo run.
// Corresponds to simulation_runs table columns in PostgreSQL.
type SimulationParameters struct {
	// Iterations is the number of Monte Carlo trials. Must be positive.
	Iterations int `json:"iterations"`

	// ConfidenceLevels are the percentiles to report, ascending, in (0,100).
	ConfidenceLevels []float64 `json:"confidence_levels"`

	// TimeHorizonYears and DiscountRate drive the discounted multi-year
	// exposure projection. They do not affect the core sampler.
	TimeHorizonYears int     `json:"time_horizon_years"`
	DiscountRate     float64 `json:"discount_rate"`

	// Seed fixes the random stream for bit-for-bit reproducible results.
	// When nil the engine picks a seed and records it on the result.
	Seed *int64 `json:"seed,omitempty"`

	// CatastrophicLossThreshold defines "ruin" for the probability-of-ruin
	// metric: the fraction of iterations whose total loss is >= threshold.
	CatastrophicLossThreshold float64 `json:"catastrophic_loss_threshold"`

	// RetainOutcomes keeps the full per-iteration loss sample in memory (and
	// makes it available for persistence). When false the engine runs in
	// bounded-memory mode and percentiles come from a deterministic sample.
	RetainOutcomes bool `json:"retain_outcomes"`

	// Workers is the parallel batch worker count. 0 means GOMAXPROCS.
	Workers int `json:"workers,omitempty"`

	// BatchSize is the iteration batch granularity for scheduling, progress
	// and cancellation checks. 0 means DefaultBatchSize.
	BatchSize int `json:"batch_size,omitempty"`

	// ProgressInterval bounds the cadence of progress snapshots.
	// 0 means DefaultProgressInterval.
	ProgressInterval time.Duration `json:"-"`
}

// DefaultParameters returns parameters with all defaults applied.
func DefaultParameters() SimulationParameters {
	return SimulationParameters{
		Iterations:       DefaultIterations,
		ConfidenceLevels: append([]float64(nil), DefaultConfidenceLevels...),
		TimeHorizonYears: DefaultTimeHorizonYears,
	}
}

// Validate checks parameter invariants. All failures wrap ErrInvalidParameters.
func (p *SimulationParameters) Validate() error {
	if p.Iterations <= 0 {
		return fmt.Errorf("%w: iterations %d must be positive", ErrInvalidParameters, p.Iterations)
	}
	if len(p.ConfidenceLevels) == 0 {
		return fmt.Errorf("%w: confidence_levels must not be empty", ErrInvalidParameters)
	}
	prev := 0.0
	for _, cl := range p.ConfidenceLevels {
		if math.IsNaN(cl) || cl <= 0 || cl >= 100 {
			return fmt.Errorf("%w: confidence level %v outside (0,100)", ErrInvalidParameters, cl)
		}
		if cl <= prev {
			return fmt.Errorf("%w: confidence_levels must be strictly ascending", ErrInvalidParameters)
		}
		prev = cl
	}
	if p.TimeHorizonYears < 0 {
		return fmt.Errorf("%w: time_horizon_years %d is negative", ErrInvalidParameters, p.TimeHorizonYears)
	}
	if math.IsNaN(p.DiscountRate) || math.IsInf(p.DiscountRate, 0) || p.DiscountRate < 0 {
		return fmt.Errorf("%w: discount_rate %v must be finite and non-negative", ErrInvalidParameters, p.DiscountRate)
	}
	if math.IsNaN(p.CatastrophicLossThreshold) || math.IsInf(p.CatastrophicLossThreshold, 0) {
		return fmt.Errorf("%w: catastrophic_loss_threshold must be finite", ErrInvalidParameters)
	}
	if p.Workers < 0 {
		return fmt.Errorf("%w: workers %d is negative", ErrInvalidParameters, p.Workers)
	}
	if p.BatchSize < 0 {
		return fmt.Errorf("%w: batch_size %d is negative", ErrInvalidParameters, p.BatchSize)
	}
	return nil
}

// EffectiveWorkers returns the worker count after defaulting.
func (p *SimulationParameters) EffectiveWorkers() int {
	if p.Workers > 0 {
		return p.Workers
	}
	return runtime.GOMAXPROCS(0)
}

// EffectiveBatchSize returns the batch size after defaulting, capped at the
// iteration count.
func (p *SimulationParameters) EffectiveBatchSize() int {
	size := p.BatchSize
	if size <= 0 {
		size = DefaultBatchSize
	}
	if size > p.Iterations {
		size = p.Iterations
	}
	return size
}

// EffectiveProgressInterval returns the progress cadence after defaulting.
func (p *SimulationParameters) EffectiveProgressInterval() time.Duration {
	if p.ProgressInterval > 0 {
		return p.ProgressInterval
	}
	return DefaultProgressInterval
}
