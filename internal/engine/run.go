package engine

import (
	"context"
	"sync"
	"time"

	"risklab/internal/domain"
	"risklab/internal/idhash"
)

// Run is the handle for an in-flight simulation. It is the only path by
// which a caller affects a running simulation: cancellation, pause/resume,
// and progress observation all go through the handle; the executor itself
// never blocks on the caller.
type Run struct {
	id        string
	scenarios []*domain.RiskScenario
	params    domain.SimulationParameters
	seed      int64
	startedAt time.Time

	mu        sync.Mutex
	cond      *sync.Cond
	paused    bool
	cancelled bool

	progress chan domain.ProgressUpdate
	done     chan struct{}
	result   *domain.SimulationResult
}

func newRun(scenarios []*domain.RiskScenario, params domain.SimulationParameters, seed int64) *Run {
	r := &Run{
		scenarios: scenarios,
		params:    params,
		seed:      seed,
		startedAt: time.Now(),
		progress:  make(chan domain.ProgressUpdate, progressBuffer),
		done:      make(chan struct{}),
	}
	r.cond = sync.NewCond(&r.mu)

	// All run_id inputs are fixed at creation, so the id is available to
	// callers before the run finishes.
	scenarioIDs := make([]string, len(scenarios))
	for i, s := range scenarios {
		scenarioIDs[i] = s.ScenarioID
	}
	r.id = idhash.ComputeRunID(seed, params.Iterations, scenarioIDs, r.startedAt.UnixMilli())

	return r
}

// ID returns the run's deterministic id, available from creation.
func (r *Run) ID() string {
	return r.id
}

// Seed returns the seed the run is using. When the caller did not provide
// one this is the seed the engine chose, recorded so the run can be
// replayed.
func (r *Run) Seed() int64 {
	return r.seed
}

// Cancel requests cooperative cancellation. The executor stops dispatching
// new batches, finishes in-flight ones, and produces a partial result.
// Idempotent; a no-op after completion.
func (r *Run) Cancel() {
	select {
	case <-r.done:
		return
	default:
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancelled {
		return
	}
	r.cancelled = true
	r.cond.Broadcast()
}

// Pause stops dispatching new batches without losing partial statistics.
// Idempotent; a no-op after completion.
func (r *Run) Pause() {
	select {
	case <-r.done:
		return
	default:
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.paused = true
}

// Resume restarts batch dispatch after a Pause.
// Idempotent; a no-op after completion.
func (r *Run) Resume() {
	select {
	case <-r.done:
		return
	default:
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.paused {
		return
	}
	r.paused = false
	r.cond.Broadcast()
}

// Paused reports whether batch dispatch is currently gated.
func (r *Run) Paused() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.paused
}

// Progress returns the progress stream. Snapshots are emitted at a bounded
// cadence and never block the executor: frames are dropped when the
// consumer lags. The stream terminates with a final frame carrying the
// result, then closes. Wait is the authoritative completion path.
func (r *Run) Progress() <-chan domain.ProgressUpdate {
	return r.progress
}

// Wait blocks until the run finishes (complete, partial, or empty) or the
// context is done. The returned result is immutable and owned by the caller.
func (r *Run) Wait(ctx context.Context) (*domain.SimulationResult, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-r.done:
		return r.result, nil
	}
}

// Result returns the final result, or nil while the run is still executing.
func (r *Run) Result() *domain.SimulationResult {
	select {
	case <-r.done:
		return r.result
	default:
		return nil
	}
}

// awaitDispatch blocks while paused. Returns false when the run has been
// cancelled and dispatch must stop.
func (r *Run) awaitDispatch() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for r.paused && !r.cancelled {
		r.cond.Wait()
	}
	return !r.cancelled
}

// finish publishes the result and closes the progress stream and done gate.
func (r *Run) finish(result *domain.SimulationResult) {
	r.result = result

	final := domain.ProgressUpdate{
		IterationsCompleted: result.IterationsCompleted,
		TotalIterations:     result.IterationsRequested,
		Final:               true,
		Result:              result,
	}
	select {
	case r.progress <- final:
	default:
	}
	close(r.progress)
	close(r.done)
}

// emit publishes an intermediate progress frame without blocking.
func (r *Run) emit(completed int, running domain.RunningStatistics) {
	update := domain.ProgressUpdate{
		IterationsCompleted: completed,
		TotalIterations:     r.params.Iterations,
		Paused:              r.Paused(),
		Running:             running,
	}
	select {
	case r.progress <- update:
	default:
	}
}
