package domain

// Frequency bands for qualitative likelihood elicitation. Each band maps to
// an annual occurrence probability inside the calibration adapter.
const (
	FrequencyRare     = "RARE"     // less than once per decade
	FrequencyUnlikely = "UNLIKELY" // roughly once per decade
	FrequencyPossible = "POSSIBLE" // every few years
	FrequencyLikely   = "LIKELY"   // most years
	FrequencyFrequent = "FREQUENT" // at least annually
)

// Expert calibration levels, ordered from widest to narrowest interval
// correction. From Hubbard's calibrated estimation methodology.
const (
	CalibrationUncalibrated = "UNCALIBRATED"
	CalibrationBasic        = "BASIC"
	CalibrationIntermediate = "INTERMEDIATE"
	CalibrationExpert       = "EXPERT"
)

// RawScenario is an expert-elicited risk estimate before calibration: a
// qualitative frequency band (or an explicit annual probability) plus a 90%
// confidence interval on the loss magnitude.
type RawScenario struct {
	Name string `json:"name"`

	// FrequencyBand is one of the Frequency* constants. Ignored when
	// ProbabilityAnnual is set (> 0).
	FrequencyBand     string  `json:"frequency_band,omitempty"`
	ProbabilityAnnual float64 `json:"probability_annual,omitempty"`

	// LossLower and LossUpper bound the 90% CI of the loss magnitude.
	// LossMedian is optional; when zero the adapter interpolates it.
	LossLower  float64 `json:"loss_lower"`
	LossUpper  float64 `json:"loss_upper"`
	LossMedian float64 `json:"loss_median,omitempty"`

	// CalibrationLevel of the estimator, one of the Calibration* constants.
	// Empty means UNCALIBRATED.
	CalibrationLevel string `json:"calibration_level,omitempty"`
}

// CalibrationReport summarizes a batch of converted scenarios.
type CalibrationReport struct {
	TotalScenarios    int      `json:"total_scenarios"`
	Converted         int      `json:"converted"`
	Rejected          int      `json:"rejected"`
	RejectionReasons  []string `json:"rejection_reasons,omitempty"`
	MeanProbability   float64  `json:"mean_probability"`
	TotalExpectedLoss float64  `json:"total_expected_loss"` // sum of p * triangular mean
	MaxSingleLoss     float64  `json:"max_single_loss"`     // largest impact.max seen
}
