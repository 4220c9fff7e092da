package domain

// RunStatus describes how a simulation run ended.
type RunStatus string

// Run status constants.
const (
	StatusComplete RunStatus = "COMPLETE" // all requested iterations ran
	StatusPartial  RunStatus = "PARTIAL"  // cancelled before completion
	StatusEmpty    RunStatus = "EMPTY"    // zero iterations or empty scenario set
)

// PercentilePoint maps one requested percentile to its loss value.
// Points are ordered by ascending percentile; values are non-decreasing by
// construction of the underlying order statistic.
type PercentilePoint struct {
	Percentile float64 `json:"percentile"` // in (0,100)
	Loss       float64 `json:"loss"`       // monetary loss at that percentile
}

// RiskMetrics holds tail-risk measures of the loss distribution.
type RiskMetrics struct {
	VaR95               float64 `json:"var_95"`                // 95th percentile loss
	VaR99               float64 `json:"var_99"`                // 99th percentile loss
	ExpectedShortfall95 float64 `json:"expected_shortfall_95"` // mean loss at or above VaR95
	ProbabilityOfRuin   float64 `json:"probability_of_ruin"`   // fraction of iterations >= threshold
}

// SummaryStatistics holds sample statistics of the loss distribution.
// Stddev is the sample standard deviation (n-1 denominator); Skewness is the
// Fisher-Pearson coefficient, 0 for a zero-variance sample.
type SummaryStatistics struct {
	Mean     float64 `json:"mean"`
	Median   float64 `json:"median"`
	Stddev   float64 `json:"stddev"`
	Skewness float64 `json:"skewness"`
	Min      float64 `json:"min"`
	Max      float64 `json:"max"`
}

// FinancialProjection carries the discounted multi-year exposure derived from
// the simulated annual loss distribution.
type FinancialProjection struct {
	AnnualLossExpectancy float64 `json:"annual_loss_expectancy"` // mean simulated annual loss
	SingleLossExpectancy float64 `json:"single_loss_expectancy"` // ALE / 365
	DiscountedExposure   float64 `json:"discounted_exposure"`    // sum of ALE/(1+r)^t over the horizon
}

// SimulationResult is the immutable outcome of one completed or cancelled
// run. Owned by the caller that requested the run.
// Corresponds to simulation_runs table in PostgreSQL.
type SimulationResult struct {
	RunID  string    `json:"run_id"` // deterministic hash
	Status RunStatus `json:"status"`

	// Seed is the seed actually used, recorded so any run can be replayed.
	Seed int64 `json:"seed"`

	Percentiles []PercentilePoint   `json:"percentiles"`
	RiskMetrics RiskMetrics         `json:"risk_metrics"`
	Statistics  SummaryStatistics   `json:"statistics"`
	Projection  FinancialProjection `json:"projection"`

	IterationsRequested int   `json:"iterations_requested"`
	IterationsCompleted int   `json:"iterations_completed"`
	ExecutionTimeMs     int64 `json:"execution_time_ms"`
	ScenarioCount       int   `json:"scenario_count"`
	StartedAt           int64 `json:"started_at"` // Unix timestamp (ms)

	// Outcomes is the full per-iteration loss sample in iteration order
	// (Outcomes[i] is iteration i's total loss), present only when the run
	// was configured with RetainOutcomes.
	Outcomes []float64 `json:"-"`
}

// Partial reports whether the run was cancelled before all requested
// iterations completed.
func (r *SimulationResult) Partial() bool {
	return r.Status == StatusPartial
}

// PercentileValue returns the loss at the requested percentile, or false if
// that percentile was not part of the run's confidence levels.
func (r *SimulationResult) PercentileValue(p float64) (float64, bool) {
	for _, pt := range r.Percentiles {
		if pt.Percentile == p {
			return pt.Loss, true
		}
	}
	return 0, false
}
