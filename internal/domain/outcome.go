package domain

// IterationOutcome is one simulated iteration's total loss, persisted when a
// run retains its full outcome sample.
// Corresponds to outcome_samples table in ClickHouse.
type IterationOutcome struct {
	RunID     string  `json:"run_id"`
	Iteration int     `json:"iteration"` // global iteration index within the run
	Loss      float64 `json:"loss"`      // total loss across all scenarios
}
