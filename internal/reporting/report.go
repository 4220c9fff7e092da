package reporting

import "time"

// Report is the rendered view of the scenario inventory and run history,
// with a detailed breakdown of one focal run.
type Report struct {
	// Metadata
	GeneratedAt   time.Time
	ScenarioCount int
	RunCount      int

	// Scenario inventory (sorted by expected loss DESC)
	Scenarios []ScenarioRow

	// Run history (sorted by started_at DESC)
	Runs []RunSummaryRow

	// Detail of the focal run; nil when no run exists.
	Detail *RunDetail
}

// ScenarioRow is one scenario in the inventory table.
type ScenarioRow struct {
	ScenarioID        string
	Name              string
	ProbabilityAnnual float64
	ImpactMin         float64
	ImpactLikely      float64
	ImpactMax         float64
	ExpectedLoss      float64 // probability * triangular mean impact
}

// RunSummaryRow is one run in the history table.
type RunSummaryRow struct {
	RunID               string
	Status              string
	Seed                int64
	IterationsCompleted int
	Mean                float64
	Median              float64
	VaR95               float64
	ExpectedShortfall95 float64
	ProbabilityOfRuin   float64
	ExecutionTimeMs     int64
	StartedAt           int64 // Unix ms
}

// RunDetail is the focal run breakdown: full percentile curve, tail metrics,
// loss exceedance table and the financial projection.
type RunDetail struct {
	RunID               string
	Status              string
	Seed                int64
	IterationsRequested int
	IterationsCompleted int

	Mean     float64
	Median   float64
	Stddev   float64
	Skewness float64
	MinLoss  float64
	MaxLoss  float64

	VaR95               float64
	VaR99               float64
	ExpectedShortfall95 float64
	ProbabilityOfRuin   float64

	Percentiles    []PercentileRow
	LossExceedance []ExceedanceRow

	AnnualLossExpectancy float64
	SingleLossExpectancy float64
	DiscountedExposure   float64
}

// PercentileRow is one point on the percentile curve.
type PercentileRow struct {
	Percentile float64
	Loss       float64
}

// ExceedanceRow reads "the annual loss exceeds Loss with probability
// Probability", derived from the percentile curve.
type ExceedanceRow struct {
	Loss        float64
	Probability float64
}
