package engine

import (
	"math"

	"risklab/internal/domain"
)

// SampleLoss draws one random outcome for one scenario in one iteration.
//
// First a Bernoulli occurrence trial: if the uniform draw exceeds the annual
// probability the scenario does not occur and contributes 0. Otherwise the
// loss magnitude is drawn from the triangular distribution
// (min, mode=likely, max) by inverse-CDF sampling.
//
// The occurrence draw is always consumed, even for probability 0 or 1, so
// that a scenario's draw count per iteration is constant and the substream
// stays aligned across scenario parameter changes.
func SampleLoss(s *domain.RiskScenario, rng *Stream) float64 {
	u := rng.Float64()
	if u >= s.ProbabilityAnnual {
		// Not triggered this iteration. probability 0 never triggers
		// (u >= 0 always), probability 1 always does (u < 1 always).
		return 0
	}
	return sampleTriangular(s.Impact, rng)
}

// sampleTriangular draws from the triangular distribution via the standard
// inverse-CDF transform.
//
// With f = (mode-min)/(max-min):
//
//	r <= f: loss = min + sqrt(r * (max-min) * (mode-min))
//	r >  f: loss = max - sqrt((1-r) * (max-min) * (max-mode))
//
// f = 0 (mode == min) sends every draw through the upper branch and f = 1
// (mode == max) through the lower branch, which is the correct limit of the
// CDF in both cases.
func sampleTriangular(i domain.ImpactEstimate, rng *Stream) float64 {
	width := i.Max - i.Min
	if width == 0 {
		// Point mass: deterministic amount when triggered, no magnitude
		// draw consumed.
		return i.Min
	}

	f := (i.Likely - i.Min) / width
	r := rng.Float64()

	if r <= f {
		return i.Min + math.Sqrt(r*width*(i.Likely-i.Min))
	}
	return i.Max - math.Sqrt((1-r)*width*(i.Max-i.Likely))
}

// TriangularMean returns the theoretical mean (min+mode+max)/3 of a
// triangular impact estimate. Used by the calibration summary and tests.
func TriangularMean(i domain.ImpactEstimate) float64 {
	return (i.Min + i.Likely + i.Max) / 3
}
