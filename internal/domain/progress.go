package domain

// RunningStatistics is a cheap, continuously updated projection of the loss
// distribution, emitted while a run is in flight. Percentile fields are
// approximations over the sample collected so far and must not be read as
// final order statistics.
type RunningStatistics struct {
	Count      int     `json:"count"` // iterations folded in so far
	Mean       float64 `json:"mean"`
	Min        float64 `json:"min"`
	Max        float64 `json:"max"`
	SampleSize int     `json:"sample_size"` // size of the percentile sample
	MedianEst  float64 `json:"median_est"`  // approximate median
	P95Est     float64 `json:"p95_est"`     // approximate 95th percentile
}

// ProgressUpdate is one frame on the progress stream. Final is set on the
// terminating frame, which also carries the run's result.
type ProgressUpdate struct {
	IterationsCompleted int               `json:"iterations_completed"`
	TotalIterations     int               `json:"total_iterations"`
	Paused              bool              `json:"paused"`
	Running             RunningStatistics `json:"running"`
	Final               bool              `json:"final"`
	Result              *SimulationResult `json:"result,omitempty"`
}
