package calibration

import (
	"errors"
	"math"
	"testing"

	"risklab/internal/domain"
)

func TestHubbardAdapter_ConvertExplicitProbability(t *testing.T) {
	a := NewHubbardAdapter()

	s, err := a.Convert(&domain.RawScenario{
		Name:              "ransomware",
		ProbabilityAnnual: 0.2,
		LossLower:         100_000,
		LossUpper:         900_000,
		LossMedian:        300_000,
		CalibrationLevel:  domain.CalibrationExpert,
	})
	if err != nil {
		t.Fatalf("convert failed: %v", err)
	}

	if s.ProbabilityAnnual != 0.2 {
		t.Errorf("probability = %v, want 0.2", s.ProbabilityAnnual)
	}
	if s.Impact.Likely != 300_000 {
		t.Errorf("likely = %v, want 300000", s.Impact.Likely)
	}
	// Expert level widens the 800k interval by 2%: 8k split across both ends.
	if s.Impact.Min != 96_000 {
		t.Errorf("min = %v, want 96000", s.Impact.Min)
	}
	if s.Impact.Max != 904_000 {
		t.Errorf("max = %v, want 904000", s.Impact.Max)
	}
	if s.ScenarioID == "" {
		t.Error("scenario id not assigned")
	}
}

func TestHubbardAdapter_ConvertFrequencyBands(t *testing.T) {
	a := NewHubbardAdapter()

	tests := []struct {
		band string
		want float64
	}{
		{domain.FrequencyRare, 0.05},
		{domain.FrequencyUnlikely, 0.10},
		{domain.FrequencyPossible, 0.30},
		{domain.FrequencyLikely, 0.60},
		{domain.FrequencyFrequent, 0.95},
	}

	for _, tt := range tests {
		t.Run(tt.band, func(t *testing.T) {
			s, err := a.Convert(&domain.RawScenario{
				Name:          "outage",
				FrequencyBand: tt.band,
				LossLower:     1000,
				LossUpper:     9000,
			})
			if err != nil {
				t.Fatalf("convert failed: %v", err)
			}
			if s.ProbabilityAnnual != tt.want {
				t.Errorf("probability = %v, want %v", s.ProbabilityAnnual, tt.want)
			}
		})
	}
}

func TestHubbardAdapter_MedianInterpolation(t *testing.T) {
	a := NewHubbardAdapter()

	// Positive lower bound: geometric mean.
	s, err := a.Convert(&domain.RawScenario{
		Name:             "breach",
		FrequencyBand:    domain.FrequencyPossible,
		LossLower:        1000,
		LossUpper:        9000,
		CalibrationLevel: domain.CalibrationExpert,
	})
	if err != nil {
		t.Fatalf("convert failed: %v", err)
	}
	if want := 3000.0; s.Impact.Likely != want {
		t.Errorf("interpolated median = %v, want %v", s.Impact.Likely, want)
	}

	// Zero lower bound: arithmetic midpoint.
	s, err = a.Convert(&domain.RawScenario{
		Name:          "minor incident",
		FrequencyBand: domain.FrequencyFrequent,
		LossLower:     0,
		LossUpper:     10_000,
	})
	if err != nil {
		t.Fatalf("convert failed: %v", err)
	}
	if s.Impact.Likely != 5000 {
		t.Errorf("interpolated median = %v, want 5000", s.Impact.Likely)
	}
}

func TestHubbardAdapter_WideningByCalibrationLevel(t *testing.T) {
	a := NewHubbardAdapter()

	width := func(level string) float64 {
		s, err := a.Convert(&domain.RawScenario{
			Name:             "phishing",
			FrequencyBand:    domain.FrequencyLikely,
			LossLower:        10_000,
			LossUpper:        50_000,
			CalibrationLevel: level,
		})
		if err != nil {
			t.Fatalf("convert at level %s failed: %v", level, err)
		}
		return s.Impact.Max - s.Impact.Min
	}

	// Less calibrated estimators get wider corrected intervals.
	levels := []string{
		domain.CalibrationExpert,
		domain.CalibrationIntermediate,
		domain.CalibrationBasic,
		domain.CalibrationUncalibrated,
	}
	prev := 0.0
	for _, level := range levels {
		w := width(level)
		if w <= prev {
			t.Errorf("width at %s = %v, not wider than %v", level, w, prev)
		}
		prev = w
	}

	// Unknown level defaults to the uncalibrated correction.
	if got, want := width(""), width(domain.CalibrationUncalibrated); got != want {
		t.Errorf("default width = %v, want uncalibrated width %v", got, want)
	}
}

func TestHubbardAdapter_WideningFloorsAtZero(t *testing.T) {
	a := NewHubbardAdapter()

	s, err := a.Convert(&domain.RawScenario{
		Name:             "near-zero loss",
		FrequencyBand:    domain.FrequencyRare,
		LossLower:        100,
		LossUpper:        1_000_000,
		CalibrationLevel: domain.CalibrationUncalibrated,
	})
	if err != nil {
		t.Fatalf("convert failed: %v", err)
	}
	if s.Impact.Min != 0 {
		t.Errorf("widened min = %v, want floored at 0", s.Impact.Min)
	}
}

func TestHubbardAdapter_ConvertRejections(t *testing.T) {
	a := NewHubbardAdapter()

	tests := []struct {
		name string
		raw  *domain.RawScenario
		want error
	}{
		{"nil estimate", nil, ErrInvalidEstimate},
		{"missing name", &domain.RawScenario{FrequencyBand: domain.FrequencyRare, LossUpper: 1}, ErrInvalidEstimate},
		{"unknown band", &domain.RawScenario{Name: "x", FrequencyBand: "SOMETIMES", LossUpper: 1}, ErrUnknownFrequencyBand},
		{"probability above one", &domain.RawScenario{Name: "x", ProbabilityAnnual: 1.5, LossUpper: 1}, ErrInvalidEstimate},
		{"inverted bounds", &domain.RawScenario{Name: "x", FrequencyBand: domain.FrequencyRare, LossLower: 10, LossUpper: 5}, ErrInvalidEstimate},
		{"negative lower", &domain.RawScenario{Name: "x", FrequencyBand: domain.FrequencyRare, LossLower: -5, LossUpper: 5}, ErrInvalidEstimate},
		{"median outside bounds", &domain.RawScenario{Name: "x", FrequencyBand: domain.FrequencyRare, LossLower: 1, LossUpper: 5, LossMedian: 10}, ErrInvalidEstimate},
		{"non-finite upper", &domain.RawScenario{Name: "x", FrequencyBand: domain.FrequencyRare, LossUpper: math.Inf(1)}, ErrInvalidEstimate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := a.Convert(tt.raw); !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestHubbardAdapter_Summarize(t *testing.T) {
	a := NewHubbardAdapter()

	raws := []*domain.RawScenario{
		{Name: "a", ProbabilityAnnual: 0.5,
			LossLower: 1000, LossUpper: 1000, LossMedian: 1000,
			CalibrationLevel: domain.CalibrationExpert},
		{Name: "b", ProbabilityAnnual: 0.1,
			LossLower: 2000, LossUpper: 2000, LossMedian: 2000,
			CalibrationLevel: domain.CalibrationExpert},
		{Name: "bad", FrequencyBand: "NEVER", LossUpper: 1},
	}

	report, err := a.Summarize(raws)
	if err != nil {
		t.Fatalf("summarize failed: %v", err)
	}

	if report.TotalScenarios != 3 || report.Converted != 2 || report.Rejected != 1 {
		t.Fatalf("counts = %d/%d/%d, want 3/2/1",
			report.TotalScenarios, report.Converted, report.Rejected)
	}
	if len(report.RejectionReasons) != 1 {
		t.Errorf("rejection reasons = %d, want 1", len(report.RejectionReasons))
	}
	if !almostEqual(report.MeanProbability, 0.3, 1e-12) {
		t.Errorf("mean probability = %v, want 0.3", report.MeanProbability)
	}
	// Point masses survive expert widening almost unchanged (zero width), so
	// expected loss is 0.5*1000 + 0.1*2000.
	if !almostEqual(report.TotalExpectedLoss, 700, 1e-9) {
		t.Errorf("total expected loss = %v, want 700", report.TotalExpectedLoss)
	}
	if report.MaxSingleLoss != 2000 {
		t.Errorf("max single loss = %v, want 2000", report.MaxSingleLoss)
	}
}

func TestHubbardAdapter_ConvertAll(t *testing.T) {
	a := NewHubbardAdapter()

	raws := []*domain.RawScenario{
		{Name: "a", FrequencyBand: domain.FrequencyLikely, LossLower: 100, LossUpper: 500},
		{Name: "b", FrequencyBand: "BOGUS", LossLower: 100, LossUpper: 500},
	}

	if _, err := a.ConvertAll(raws); !errors.Is(err, ErrUnknownFrequencyBand) {
		t.Errorf("err = %v, want ErrUnknownFrequencyBand", err)
	}

	scenarios, err := a.ConvertAll(raws[:1])
	if err != nil {
		t.Fatalf("convert all failed: %v", err)
	}
	if len(scenarios) != 1 {
		t.Fatalf("converted %d scenarios, want 1", len(scenarios))
	}
}

func almostEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}
