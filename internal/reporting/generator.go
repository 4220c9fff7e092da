package reporting

import (
	"context"
	"sort"
	"time"

	"risklab/internal/domain"
	"risklab/internal/engine"
	"risklab/internal/observability"
	"risklab/internal/storage"
)

// historyLimit bounds the run history table.
const historyLimit = 50

// Generator produces reports from stored scenarios and runs.
type Generator struct {
	scenarioStore storage.ScenarioStore
	runStore      storage.SimulationRunStore
	now           func() time.Time // Injectable clock for deterministic output
}

// NewGenerator creates a new report generator.
func NewGenerator(scenarioStore storage.ScenarioStore, runStore storage.SimulationRunStore) *Generator {
	return &Generator{
		scenarioStore: scenarioStore,
		runStore:      runStore,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Generate produces a report with the most recent run as the focal run.
func (g *Generator) Generate(ctx context.Context) (*Report, error) {
	return g.generate(ctx, "")
}

// GenerateForRun produces a report focused on a specific run.
// Returns storage.ErrNotFound if the run does not exist.
func (g *Generator) GenerateForRun(ctx context.Context, runID string) (*Report, error) {
	return g.generate(ctx, runID)
}

func (g *Generator) generate(ctx context.Context, focalRunID string) (*Report, error) {
	scenarios, err := g.scenarioStore.GetAll(ctx)
	if err != nil {
		return nil, err
	}

	runs, err := g.runStore.GetRecent(ctx, historyLimit)
	if err != nil {
		return nil, err
	}

	report := &Report{
		GeneratedAt:   g.now(),
		ScenarioCount: len(scenarios),
		RunCount:      len(runs),
		Scenarios:     buildScenarioRows(scenarios),
		Runs:          buildRunRows(runs),
	}

	focal, err := g.focalRun(ctx, focalRunID, runs)
	if err != nil {
		return nil, err
	}
	if focal != nil {
		report.Detail = buildRunDetail(focal)
	}

	observability.RecordReportGenerated()
	return report, nil
}

// focalRun resolves the run to detail: an explicit id, or the most recent.
func (g *Generator) focalRun(ctx context.Context, runID string, recent []*domain.SimulationResult) (*domain.SimulationResult, error) {
	if runID != "" {
		return g.runStore.GetByID(ctx, runID)
	}
	if len(recent) == 0 {
		return nil, nil
	}
	return recent[0], nil
}

// buildScenarioRows builds the inventory, sorted by expected loss DESC so the
// dominant risks lead the table.
func buildScenarioRows(scenarios []*domain.RiskScenario) []ScenarioRow {
	rows := make([]ScenarioRow, len(scenarios))
	for i, s := range scenarios {
		rows[i] = ScenarioRow{
			ScenarioID:        s.ScenarioID,
			Name:              s.Name,
			ProbabilityAnnual: s.ProbabilityAnnual,
			ImpactMin:         s.Impact.Min,
			ImpactLikely:      s.Impact.Likely,
			ImpactMax:         s.Impact.Max,
			ExpectedLoss:      s.ProbabilityAnnual * engine.TriangularMean(s.Impact),
		}
	}

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].ExpectedLoss != rows[j].ExpectedLoss {
			return rows[i].ExpectedLoss > rows[j].ExpectedLoss
		}
		return rows[i].ScenarioID < rows[j].ScenarioID
	})
	return rows
}

// buildRunRows maps stored results onto history rows; order is inherited from
// the store (started_at DESC).
func buildRunRows(runs []*domain.SimulationResult) []RunSummaryRow {
	rows := make([]RunSummaryRow, len(runs))
	for i, r := range runs {
		rows[i] = RunSummaryRow{
			RunID:               r.RunID,
			Status:              string(r.Status),
			Seed:                r.Seed,
			IterationsCompleted: r.IterationsCompleted,
			Mean:                r.Statistics.Mean,
			Median:              r.Statistics.Median,
			VaR95:               r.RiskMetrics.VaR95,
			ExpectedShortfall95: r.RiskMetrics.ExpectedShortfall95,
			ProbabilityOfRuin:   r.RiskMetrics.ProbabilityOfRuin,
			ExecutionTimeMs:     r.ExecutionTimeMs,
			StartedAt:           r.StartedAt,
		}
	}
	return rows
}

func buildRunDetail(r *domain.SimulationResult) *RunDetail {
	detail := &RunDetail{
		RunID:               r.RunID,
		Status:              string(r.Status),
		Seed:                r.Seed,
		IterationsRequested: r.IterationsRequested,
		IterationsCompleted: r.IterationsCompleted,

		Mean:     r.Statistics.Mean,
		Median:   r.Statistics.Median,
		Stddev:   r.Statistics.Stddev,
		Skewness: r.Statistics.Skewness,
		MinLoss:  r.Statistics.Min,
		MaxLoss:  r.Statistics.Max,

		VaR95:               r.RiskMetrics.VaR95,
		VaR99:               r.RiskMetrics.VaR99,
		ExpectedShortfall95: r.RiskMetrics.ExpectedShortfall95,
		ProbabilityOfRuin:   r.RiskMetrics.ProbabilityOfRuin,

		AnnualLossExpectancy: r.Projection.AnnualLossExpectancy,
		SingleLossExpectancy: r.Projection.SingleLossExpectancy,
		DiscountedExposure:   r.Projection.DiscountedExposure,
	}

	for _, p := range r.Percentiles {
		detail.Percentiles = append(detail.Percentiles, PercentileRow{
			Percentile: p.Percentile,
			Loss:       p.Loss,
		})
		// The p-th percentile loss is exceeded with probability 1 - p/100.
		detail.LossExceedance = append(detail.LossExceedance, ExceedanceRow{
			Loss:        p.Loss,
			Probability: 1 - p.Percentile/100,
		})
	}
	return detail
}
