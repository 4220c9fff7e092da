package engine

import "math"

// accumulator folds per-iteration loss totals into mergeable summary state:
// count, central moments up to order three, min/max, ruin count, and either
// the full outcome set (retention mode) or a deterministic strided sample
// (bounded-memory mode).
//
// Merging uses the pairwise central-moment update (Pebay 2008), so batches
// can be accumulated independently and combined afterwards. The executor
// merges batches in batch-index order, which pins the floating point
// summation order and makes results bit-identical for any worker count.
type accumulator struct {
	count int64
	mean  float64
	m2    float64 // sum of squared deviations from the mean
	m3    float64 // sum of cubed deviations from the mean

	min float64
	max float64

	ruinThreshold float64
	ruinCount     int64

	// retain keeps every outcome; otherwise outcomes at global iteration
	// indices divisible by stride are kept as the percentile sample.
	retain bool
	stride int
	sample []float64
}

func newAccumulator(ruinThreshold float64, retain bool, stride int) *accumulator {
	if stride < 1 {
		stride = 1
	}
	return &accumulator{
		min:           math.Inf(1),
		max:           math.Inf(-1),
		ruinThreshold: ruinThreshold,
		retain:        retain,
		stride:        stride,
	}
}

// add folds one iteration total. iteration is the global iteration index,
// used only for deterministic sample selection in bounded-memory mode.
func (a *accumulator) add(total float64, iteration int) {
	a.count++
	n := float64(a.count)

	delta := total - a.mean
	deltaN := delta / n
	term := delta * deltaN * (n - 1)

	a.m3 += term*deltaN*(n-2) - 3*deltaN*a.m2
	a.m2 += term
	a.mean += deltaN

	if total < a.min {
		a.min = total
	}
	if total > a.max {
		a.max = total
	}
	if total >= a.ruinThreshold {
		a.ruinCount++
	}

	if a.retain || iteration%a.stride == 0 {
		a.sample = append(a.sample, total)
	}
}

// merge folds b into a. b must use the same ruin threshold and sampling
// configuration. Sample order follows merge order, so callers that need
// reproducibility must merge in a fixed order.
func (a *accumulator) merge(b *accumulator) {
	if b.count == 0 {
		return
	}
	if a.count == 0 {
		sample := a.sample
		*a = *b
		// Keep an owned sample slice: the same batch may be merged into
		// several accumulators (running stats and the final merge), and a
		// shared backing array would let their appends clobber each other.
		a.sample = append(sample[:0], b.sample...)
		return
	}

	na := float64(a.count)
	nb := float64(b.count)
	n := na + nb
	delta := b.mean - a.mean

	m3 := a.m3 + b.m3 +
		delta*delta*delta*na*nb*(na-nb)/(n*n) +
		3*delta*(na*b.m2-nb*a.m2)/n
	m2 := a.m2 + b.m2 + delta*delta*na*nb/n

	a.mean = a.mean + delta*nb/n
	a.m2 = m2
	a.m3 = m3
	a.count += b.count

	if b.min < a.min {
		a.min = b.min
	}
	if b.max > a.max {
		a.max = b.max
	}
	a.ruinCount += b.ruinCount
	a.sample = append(a.sample, b.sample...)
}

// stddev returns the sample standard deviation (n-1 denominator), 0 when
// fewer than two outcomes have been folded.
func (a *accumulator) stddev() float64 {
	if a.count < 2 {
		return 0
	}
	return math.Sqrt(a.m2 / float64(a.count-1))
}

// skewness returns the Fisher-Pearson coefficient of skewness, the third
// standardized moment g1 = sqrt(n) * m3 / m2^(3/2). Returns 0 for a
// zero-variance sample.
func (a *accumulator) skewness() float64 {
	if a.count < 2 || a.m2 == 0 {
		return 0
	}
	n := float64(a.count)
	return math.Sqrt(n) * a.m3 / math.Pow(a.m2, 1.5)
}

// probabilityOfRuin returns the exact fraction of outcomes at or above the
// ruin threshold. Exact in both retention modes: the count is maintained
// incrementally, not derived from the sample.
func (a *accumulator) probabilityOfRuin() float64 {
	if a.count == 0 {
		return 0
	}
	return float64(a.ruinCount) / float64(a.count)
}
