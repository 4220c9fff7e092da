package reporting

import (
	"fmt"
	"strings"
)

// RenderRunsCSV renders the run history as a CSV string.
func RenderRunsCSV(runs []RunSummaryRow) string {
	var sb strings.Builder

	sb.WriteString("run_id,status,seed,iterations_completed,")
	sb.WriteString("mean,median,var_95,expected_shortfall_95,probability_of_ruin,")
	sb.WriteString("execution_time_ms,started_at\n")

	for _, r := range runs {
		sb.WriteString(fmt.Sprintf("%s,%s,%d,%d,%.6f,%.6f,%.6f,%.6f,%.6f,%d,%d\n",
			r.RunID,
			r.Status,
			r.Seed,
			r.IterationsCompleted,
			r.Mean,
			r.Median,
			r.VaR95,
			r.ExpectedShortfall95,
			r.ProbabilityOfRuin,
			r.ExecutionTimeMs,
			r.StartedAt,
		))
	}

	return sb.String()
}

// RenderExceedanceCSV renders a focal run's loss exceedance curve as CSV.
func RenderExceedanceCSV(d *RunDetail) string {
	var sb strings.Builder

	sb.WriteString("percentile,loss,exceedance_probability\n")
	for i, p := range d.Percentiles {
		sb.WriteString(fmt.Sprintf("%.2f,%.6f,%.6f\n",
			p.Percentile, p.Loss, d.LossExceedance[i].Probability))
	}

	return sb.String()
}
