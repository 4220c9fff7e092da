// Package calibration converts expert-elicited risk estimates into
// simulation-ready scenarios, correcting for estimator overconfidence using
// Hubbard's calibrated estimation methodology.
package calibration

import (
	"errors"
	"fmt"
	"math"

	"risklab/internal/domain"
	"risklab/internal/engine"
	"risklab/internal/idhash"
	"risklab/internal/observability"
)

// Conversion errors.
var (
	// ErrInvalidEstimate is returned when a raw estimate cannot be converted.
	ErrInvalidEstimate = errors.New("invalid raw estimate")

	// ErrUnknownFrequencyBand is returned for an unrecognized frequency band.
	ErrUnknownFrequencyBand = errors.New("unknown frequency band")
)

// Adapter converts raw expert estimates into validated risk scenarios.
type Adapter interface {
	Convert(raw *domain.RawScenario) (*domain.RiskScenario, error)
	Summarize(raws []*domain.RawScenario) (*domain.CalibrationReport, error)
}

// bandProbability maps qualitative frequency bands to annual occurrence
// probabilities.
var bandProbability = map[string]float64{
	domain.FrequencyRare:     0.05,
	domain.FrequencyUnlikely: 0.10,
	domain.FrequencyPossible: 0.30,
	domain.FrequencyLikely:   0.60,
	domain.FrequencyFrequent: 0.95,
}

// wideningFactor is the fractional interval widening applied per calibration
// level, correcting for the overconfidence typical of each (Hubbard's
// standard bias correction factors).
var wideningFactor = map[string]float64{
	domain.CalibrationUncalibrated: 0.30,
	domain.CalibrationBasic:        0.20,
	domain.CalibrationIntermediate: 0.10,
	domain.CalibrationExpert:       0.02,
}

// HubbardAdapter maps 90% confidence interval expert estimates to scenario
// parameters. The loss CI becomes a triangular impact estimate, widened
// according to the estimator's calibration level.
type HubbardAdapter struct{}

var _ Adapter = (*HubbardAdapter)(nil)

func NewHubbardAdapter() *HubbardAdapter {
	return &HubbardAdapter{}
}

// Convert produces a validated RiskScenario from one raw estimate.
// All failures wrap ErrInvalidEstimate.
func (a *HubbardAdapter) Convert(raw *domain.RawScenario) (*domain.RiskScenario, error) {
	if raw == nil {
		return nil, fmt.Errorf("%w: nil estimate", ErrInvalidEstimate)
	}
	if raw.Name == "" {
		return nil, fmt.Errorf("%w: estimate has no name", ErrInvalidEstimate)
	}

	prob, err := a.probability(raw)
	if err != nil {
		return nil, err
	}

	lower, upper := raw.LossLower, raw.LossUpper
	if math.IsNaN(lower) || math.IsNaN(upper) || math.IsInf(lower, 0) || math.IsInf(upper, 0) {
		return nil, fmt.Errorf("%w: %q: non-finite loss bounds", ErrInvalidEstimate, raw.Name)
	}
	if lower < 0 || upper < lower {
		return nil, fmt.Errorf("%w: %q: loss bounds [%v, %v] are not ordered and non-negative",
			ErrInvalidEstimate, raw.Name, lower, upper)
	}

	median := raw.LossMedian
	if median == 0 {
		median = interpolateMedian(lower, upper)
	}
	if median < lower || median > upper {
		return nil, fmt.Errorf("%w: %q: loss median %v outside [%v, %v]",
			ErrInvalidEstimate, raw.Name, median, lower, upper)
	}

	lower, upper = widen(lower, upper, raw.CalibrationLevel)

	s := &domain.RiskScenario{
		Name:              raw.Name,
		ProbabilityAnnual: prob,
		Impact:            domain.ImpactEstimate{Min: lower, Likely: median, Max: upper},
	}
	s.ScenarioID = idhash.ComputeScenarioID(s.Name, s.ProbabilityAnnual, s.Impact.Min, s.Impact.Likely, s.Impact.Max)

	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrInvalidEstimate, raw.Name, err)
	}
	return s, nil
}

// Summarize converts a batch, collecting per-estimate failures instead of
// aborting, and reports aggregate statistics over the converted set.
func (a *HubbardAdapter) Summarize(raws []*domain.RawScenario) (*domain.CalibrationReport, error) {
	report := &domain.CalibrationReport{TotalScenarios: len(raws)}

	probSum := 0.0
	for _, raw := range raws {
		s, err := a.Convert(raw)
		if err != nil {
			report.Rejected++
			report.RejectionReasons = append(report.RejectionReasons, err.Error())
			continue
		}
		report.Converted++
		probSum += s.ProbabilityAnnual
		report.TotalExpectedLoss += s.ProbabilityAnnual * engine.TriangularMean(s.Impact)
		if s.Impact.Max > report.MaxSingleLoss {
			report.MaxSingleLoss = s.Impact.Max
		}
	}
	if report.Converted > 0 {
		report.MeanProbability = probSum / float64(report.Converted)
	}

	observability.RecordCalibration(report.Converted, report.Rejected)
	return report, nil
}

// ConvertAll converts a batch, failing on the first unconvertible estimate.
func (a *HubbardAdapter) ConvertAll(raws []*domain.RawScenario) ([]*domain.RiskScenario, error) {
	scenarios := make([]*domain.RiskScenario, 0, len(raws))
	for _, raw := range raws {
		s, err := a.Convert(raw)
		if err != nil {
			return nil, err
		}
		scenarios = append(scenarios, s)
	}
	return scenarios, nil
}

func (a *HubbardAdapter) probability(raw *domain.RawScenario) (float64, error) {
	if raw.ProbabilityAnnual > 0 {
		if math.IsNaN(raw.ProbabilityAnnual) || raw.ProbabilityAnnual > 1 {
			return 0, fmt.Errorf("%w: %q: probability %v outside (0,1]",
				ErrInvalidEstimate, raw.Name, raw.ProbabilityAnnual)
		}
		return raw.ProbabilityAnnual, nil
	}
	p, ok := bandProbability[raw.FrequencyBand]
	if !ok {
		return 0, fmt.Errorf("%w: %q: band %q", ErrUnknownFrequencyBand, raw.Name, raw.FrequencyBand)
	}
	return p, nil
}

// interpolateMedian fills a missing median. Loss magnitudes are typically
// right-skewed, so the geometric mean is used when the interval allows it.
func interpolateMedian(lower, upper float64) float64 {
	if lower > 0 {
		return math.Sqrt(lower * upper)
	}
	return (lower + upper) / 2
}

// widen applies the overconfidence correction: the interval grows by the
// level's factor, split evenly across both ends, floored at zero loss.
func widen(lower, upper float64, level string) (float64, float64) {
	factor, ok := wideningFactor[level]
	if !ok {
		factor = wideningFactor[domain.CalibrationUncalibrated]
	}
	extra := (upper - lower) * factor / 2
	lower -= extra
	if lower < 0 {
		lower = 0
	}
	return lower, upper + extra
}
