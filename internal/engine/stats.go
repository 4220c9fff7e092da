package engine

import (
	"math"
	"sort"

	"risklab/internal/domain"
)

// percentile computes the p-th percentile (p in (0,100)) of a sorted sample
// by linear interpolation between the two bracketing order statistics, using
// rank = p/100 * (n-1).
func percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n == 1 {
		return sorted[0]
	}

	rank := p / 100 * float64(n-1)
	lower := int(math.Floor(rank))
	upper := int(math.Ceil(rank))
	if lower == upper {
		return sorted[lower]
	}

	weight := rank - float64(lower)
	return sorted[lower]*(1-weight) + sorted[upper]*weight
}

// conditionalTail computes the expected shortfall at threshold: the mean of
// all outcomes at or above it. When no outcome lies at or above the
// threshold (degenerate tail) it returns the threshold itself, so
// CVaR(p) >= VaR(p) always holds.
func conditionalTail(sorted []float64, threshold float64) float64 {
	// First index at or above the threshold.
	idx := sort.SearchFloat64s(sorted, threshold)
	if idx >= len(sorted) {
		return threshold
	}

	sum := 0.0
	for _, v := range sorted[idx:] {
		sum += v
	}
	return sum / float64(len(sorted)-idx)
}

// finalize turns the merged accumulator into an immutable SimulationResult.
// Percentile metrics come from the sorted sample: exact in retention mode,
// a deterministic strided approximation in bounded-memory mode. Moment
// statistics and probability of ruin are exact in both modes.
func finalize(acc *accumulator, params *domain.SimulationParameters, status domain.RunStatus) *domain.SimulationResult {
	result := &domain.SimulationResult{
		Status:              status,
		IterationsRequested: params.Iterations,
		IterationsCompleted: int(acc.count),
	}

	if acc.count == 0 {
		// Zero-valued statistics rather than division by zero.
		result.Status = domain.StatusEmpty
		result.Percentiles = make([]domain.PercentilePoint, len(params.ConfidenceLevels))
		for i, cl := range params.ConfidenceLevels {
			result.Percentiles[i] = domain.PercentilePoint{Percentile: cl}
		}
		return result
	}

	sorted := make([]float64, len(acc.sample))
	copy(sorted, acc.sample)
	sort.Float64s(sorted)

	result.Percentiles = make([]domain.PercentilePoint, len(params.ConfidenceLevels))
	for i, cl := range params.ConfidenceLevels {
		result.Percentiles[i] = domain.PercentilePoint{
			Percentile: cl,
			Loss:       percentile(sorted, cl),
		}
	}

	var95 := percentile(sorted, 95)
	result.RiskMetrics = domain.RiskMetrics{
		VaR95:               var95,
		VaR99:               percentile(sorted, 99),
		ExpectedShortfall95: conditionalTail(sorted, var95),
		ProbabilityOfRuin:   acc.probabilityOfRuin(),
	}

	result.Statistics = domain.SummaryStatistics{
		Mean:     acc.mean,
		Median:   percentile(sorted, 50),
		Stddev:   acc.stddev(),
		Skewness: acc.skewness(),
		Min:      acc.min,
		Max:      acc.max,
	}

	result.Projection = projectExposure(acc.mean, params.TimeHorizonYears, params.DiscountRate)

	if acc.retain {
		// The merged sample is in batch-index order, which is global
		// iteration order; keep it that way so Outcomes[i] is iteration i.
		// Percentile math above works on its own sorted copy.
		result.Outcomes = append([]float64(nil), acc.sample...)
	}

	return result
}

// projectExposure discounts the simulated annual loss expectancy over the
// configured horizon. Year t contributes ALE / (1+rate)^t.
func projectExposure(annualLossExpectancy float64, horizonYears int, discountRate float64) domain.FinancialProjection {
	p := domain.FinancialProjection{
		AnnualLossExpectancy: annualLossExpectancy,
		SingleLossExpectancy: annualLossExpectancy / 365,
	}

	for t := 1; t <= horizonYears; t++ {
		p.DiscountedExposure += annualLossExpectancy / math.Pow(1+discountRate, float64(t))
	}
	return p
}

// snapshot produces a RunningStatistics projection from an in-flight
// accumulator. Percentile estimates sort a copy of the current sample; the
// sample is bounded, so this stays cheap at progress cadence.
func snapshot(acc *accumulator) domain.RunningStatistics {
	rs := domain.RunningStatistics{
		Count:      int(acc.count),
		Mean:       acc.mean,
		SampleSize: len(acc.sample),
	}
	if acc.count == 0 {
		return rs
	}
	rs.Min = acc.min
	rs.Max = acc.max

	if len(acc.sample) > 0 {
		sorted := make([]float64, len(acc.sample))
		copy(sorted, acc.sample)
		sort.Float64s(sorted)
		rs.MedianEst = percentile(sorted, 50)
		rs.P95Est = percentile(sorted, 95)
	}
	return rs
}
