package domain

import (
	"errors"
	"fmt"
	"math"
)

// Validation errors surfaced before any sampling starts.
var (
	// ErrInvalidScenario is returned when a scenario violates its invariants.
	ErrInvalidScenario = errors.New("invalid scenario")

	// ErrInvalidParameters is returned when simulation parameters are unusable.
	ErrInvalidParameters = errors.New("invalid parameters")
)

// ImpactEstimate is a three-point loss magnitude estimate in monetary units.
// Invariant: 0 <= Min <= Likely <= Max. Min == Likely == Max is a valid
// point-mass estimate.
type ImpactEstimate struct {
	Min    float64 `json:"min"`    // lower bound
	Likely float64 `json:"likely"` // mode (most likely loss)
	Max    float64 `json:"max"`    // upper bound
}

// RiskScenario describes one discrete risk: an annual occurrence probability
// and a bounded loss magnitude estimate. Immutable once passed to the engine;
// owned by the caller.
// Corresponds to risk_scenarios table in PostgreSQL.
type RiskScenario struct {
	ScenarioID        string         `json:"scenario_id"`          // PRIMARY KEY, deterministic hash
	Name              string         `json:"name"`                 // human-readable label
	ProbabilityAnnual float64        `json:"probability_annual"`   // occurrence probability per year, in [0,1]
	Impact            ImpactEstimate `json:"impact"`
	CreatedAt         int64          `json:"created_at,omitempty"` // record creation timestamp (ms)
}

// Validate checks scenario invariants. All failures wrap ErrInvalidScenario.
func (s *RiskScenario) Validate() error {
	if s == nil {
		return fmt.Errorf("%w: nil scenario", ErrInvalidScenario)
	}
	if math.IsNaN(s.ProbabilityAnnual) || s.ProbabilityAnnual < 0 || s.ProbabilityAnnual > 1 {
		return fmt.Errorf("%w: scenario %q: probability_annual %v outside [0,1]",
			ErrInvalidScenario, s.Name, s.ProbabilityAnnual)
	}
	i := s.Impact
	if math.IsNaN(i.Min) || math.IsNaN(i.Likely) || math.IsNaN(i.Max) ||
		math.IsInf(i.Min, 0) || math.IsInf(i.Likely, 0) || math.IsInf(i.Max, 0) {
		return fmt.Errorf("%w: scenario %q: non-finite impact estimate", ErrInvalidScenario, s.Name)
	}
	if i.Min < 0 {
		return fmt.Errorf("%w: scenario %q: impact.min %v is negative", ErrInvalidScenario, s.Name, i.Min)
	}
	if i.Min > i.Max {
		return fmt.Errorf("%w: scenario %q: impact.min %v > impact.max %v",
			ErrInvalidScenario, s.Name, i.Min, i.Max)
	}
	if i.Likely < i.Min || i.Likely > i.Max {
		return fmt.Errorf("%w: scenario %q: impact.likely %v outside [%v, %v]",
			ErrInvalidScenario, s.Name, i.Likely, i.Min, i.Max)
	}
	return nil
}

// ValidateScenarios validates a scenario set, failing on the first violation.
func ValidateScenarios(scenarios []*RiskScenario) error {
	for _, s := range scenarios {
		if err := s.Validate(); err != nil {
			return err
		}
	}
	return nil
}
