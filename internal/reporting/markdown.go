package reporting

import (
	"fmt"
	"strings"
	"time"
)

// RenderMarkdown renders a report as a Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	// Header
	sb.WriteString("# Risk Simulation Report\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))
	sb.WriteString(fmt.Sprintf("Scenarios: %d | Runs: %d\n\n", r.ScenarioCount, r.RunCount))

	// Scenario inventory
	sb.WriteString("## Scenario Inventory\n\n")
	if len(r.Scenarios) > 0 {
		sb.WriteString("| Scenario | P(annual) | Min | Likely | Max | Expected Loss |\n")
		sb.WriteString("|----------|-----------|-----|--------|-----|---------------|\n")
		for _, s := range r.Scenarios {
			sb.WriteString(fmt.Sprintf("| %s | %.4f | %.2f | %.2f | %.2f | %.2f |\n",
				s.Name, s.ProbabilityAnnual,
				s.ImpactMin, s.ImpactLikely, s.ImpactMax, s.ExpectedLoss))
		}
	} else {
		sb.WriteString("No scenarios registered.\n")
	}
	sb.WriteString("\n")

	// Run history
	sb.WriteString("## Run History\n\n")
	if len(r.Runs) > 0 {
		sb.WriteString("| Run | Status | Seed | Iterations | Mean | Median | VaR95 | ES95 | P(ruin) | Time (ms) |\n")
		sb.WriteString("|-----|--------|------|------------|------|--------|-------|------|---------|-----------|\n")
		for _, run := range r.Runs {
			sb.WriteString(fmt.Sprintf("| %s | %s | %d | %d | %.2f | %.2f | %.2f | %.2f | %.4f | %d |\n",
				shortID(run.RunID), run.Status, run.Seed, run.IterationsCompleted,
				run.Mean, run.Median, run.VaR95, run.ExpectedShortfall95,
				run.ProbabilityOfRuin, run.ExecutionTimeMs))
		}
	} else {
		sb.WriteString("No runs recorded.\n")
	}
	sb.WriteString("\n")

	// Focal run detail
	if r.Detail != nil {
		renderDetail(&sb, r.Detail)
	}

	return sb.String()
}

func renderDetail(sb *strings.Builder, d *RunDetail) {
	sb.WriteString(fmt.Sprintf("## Run %s\n\n", shortID(d.RunID)))
	sb.WriteString(fmt.Sprintf("Status: %s | Seed: %d | Iterations: %d/%d\n\n",
		d.Status, d.Seed, d.IterationsCompleted, d.IterationsRequested))

	sb.WriteString("### Summary Statistics\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Mean | %.2f |\n", d.Mean))
	sb.WriteString(fmt.Sprintf("| Median | %.2f |\n", d.Median))
	sb.WriteString(fmt.Sprintf("| Stddev | %.2f |\n", d.Stddev))
	sb.WriteString(fmt.Sprintf("| Skewness | %.4f |\n", d.Skewness))
	sb.WriteString(fmt.Sprintf("| Min | %.2f |\n", d.MinLoss))
	sb.WriteString(fmt.Sprintf("| Max | %.2f |\n", d.MaxLoss))
	sb.WriteString("\n")

	sb.WriteString("### Risk Metrics\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| VaR 95%% | %.2f |\n", d.VaR95))
	sb.WriteString(fmt.Sprintf("| VaR 99%% | %.2f |\n", d.VaR99))
	sb.WriteString(fmt.Sprintf("| Expected Shortfall 95%% | %.2f |\n", d.ExpectedShortfall95))
	sb.WriteString(fmt.Sprintf("| Probability of Ruin | %.4f |\n", d.ProbabilityOfRuin))
	sb.WriteString("\n")

	sb.WriteString("### Loss Exceedance\n\n")
	if len(d.LossExceedance) > 0 {
		sb.WriteString("| Annual Loss | P(exceed) |\n")
		sb.WriteString("|-------------|-----------|\n")
		for _, e := range d.LossExceedance {
			sb.WriteString(fmt.Sprintf("| %.2f | %.4f |\n", e.Loss, e.Probability))
		}
	} else {
		sb.WriteString("No percentile data available.\n")
	}
	sb.WriteString("\n")

	sb.WriteString("### Financial Projection\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Annual Loss Expectancy | %.2f |\n", d.AnnualLossExpectancy))
	sb.WriteString(fmt.Sprintf("| Single Loss Expectancy | %.2f |\n", d.SingleLossExpectancy))
	sb.WriteString(fmt.Sprintf("| Discounted Exposure | %.2f |\n", d.DiscountedExposure))
	sb.WriteString("\n")
}

// shortID truncates a hash id for table display.
func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
