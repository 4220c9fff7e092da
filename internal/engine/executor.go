// Package engine implements the Monte Carlo risk simulation engine: seeded
// scenario sampling, a parallel batch executor with pause/cancel control,
// and streaming statistics aggregation.
package engine

import (
	"context"
	"sync"
	"time"

	"risklab/internal/domain"
	"risklab/internal/observability"
)

const (
	// progressBuffer is the progress channel capacity. Slow consumers lose
	// intermediate frames rather than stalling the executor.
	progressBuffer = 16

	// maxSampleSize bounds the percentile sample in bounded-memory mode.
	maxSampleSize = 10_000
)

// batchOut carries one finished batch back to the collector. The batch
// index pins the merge order at finalize.
type batchOut struct {
	index int
	acc   *accumulator
}

// Start validates inputs eagerly, then launches the simulation on a worker
// pool and returns its handle without blocking. Configuration errors fail
// the whole run before any work is scheduled.
func Start(ctx context.Context, scenarios []*domain.RiskScenario, params domain.SimulationParameters) (*Run, error) {
	return start(ctx, scenarios, params, "async")
}

// RunSync is the blocking variant of Start for batch use.
func RunSync(ctx context.Context, scenarios []*domain.RiskScenario, params domain.SimulationParameters) (*domain.SimulationResult, error) {
	r, err := start(ctx, scenarios, params, "sync")
	if err != nil {
		return nil, err
	}
	return r.Wait(ctx)
}

func start(ctx context.Context, scenarios []*domain.RiskScenario, params domain.SimulationParameters, mode string) (*Run, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if err := domain.ValidateScenarios(scenarios); err != nil {
		return nil, err
	}

	r := newRun(scenarios, params, chooseSeed(&params))
	observability.RecordRunStarted(mode)

	go r.execute(ctx)
	return r, nil
}

// chooseSeed returns the caller's seed, or derives one from the clock when
// none was provided. The chosen seed is recorded on the result either way.
func chooseSeed(params *domain.SimulationParameters) int64 {
	if params.Seed != nil {
		return *params.Seed
	}
	return time.Now().UnixNano()
}

// execute runs the simulation to completion or cancellation.
//
// Iterations are partitioned into fixed-size batches. A dispatcher feeds
// batch indices to the worker pool, honoring pause and cancellation between
// batches; workers fold their batch into an independent accumulator; the
// collector merges finished batches into running statistics for progress,
// and at the end re-merges them in batch-index order so the final result is
// bit-identical for any worker count.
func (r *Run) execute(ctx context.Context) {
	// An empty scenario set is a sentinel result, not an error.
	if len(r.scenarios) == 0 {
		empty := newAccumulator(r.params.CatastrophicLossThreshold, false, 1)
		r.completeRun(finalize(empty, &r.params, domain.StatusEmpty))
		return
	}

	// Propagate context cancellation into cooperative run cancellation.
	watchDone := make(chan struct{})
	defer close(watchDone)
	go func() {
		select {
		case <-ctx.Done():
			r.Cancel()
		case <-watchDone:
		}
	}()

	batchSize := r.params.EffectiveBatchSize()
	numBatches := (r.params.Iterations + batchSize - 1) / batchSize
	stride := sampleStride(r.params.Iterations, r.params.RetainOutcomes)

	batchCh := make(chan int)
	resultCh := make(chan batchOut, r.params.EffectiveWorkers())

	var wg sync.WaitGroup
	for w := 0; w < r.params.EffectiveWorkers(); w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for index := range batchCh {
				started := time.Now()
				acc := r.runBatch(index, batchSize, stride)
				observability.RecordBatchDuration(time.Since(started).Seconds())
				resultCh <- batchOut{index: index, acc: acc}
			}
		}()
	}

	// Dispatcher: issues batch indices in order, gated by pause, stopped by
	// cancellation. In-flight batches always complete, so the dispatched
	// prefix [0, dispatched) is exactly the set of finished batches.
	dispatchedCh := make(chan int, 1)
	go func() {
		dispatched := 0
		for i := 0; i < numBatches; i++ {
			if !r.awaitDispatch() {
				break
			}
			batchCh <- i
			dispatched++
		}
		close(batchCh)
		dispatchedCh <- dispatched
	}()

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	// Collector: progressive running statistics at bounded cadence.
	batches := make(map[int]*accumulator, numBatches)
	running := newAccumulator(r.params.CatastrophicLossThreshold, r.params.RetainOutcomes, stride)
	completed := 0
	interval := r.params.EffectiveProgressInterval()
	lastEmit := time.Now()

	for out := range resultCh {
		batches[out.index] = out.acc
		running.merge(out.acc)
		completed += int(out.acc.count)
		observability.RecordIterations(int(out.acc.count))

		if time.Since(lastEmit) >= interval {
			r.emit(completed, snapshot(running))
			lastEmit = time.Now()
		}
	}

	dispatched := <-dispatchedCh

	// Deterministic final merge in batch-index order.
	final := newAccumulator(r.params.CatastrophicLossThreshold, r.params.RetainOutcomes, stride)
	for i := 0; i < dispatched; i++ {
		final.merge(batches[i])
	}

	status := domain.StatusComplete
	if dispatched < numBatches {
		status = domain.StatusPartial
	}
	r.completeRun(finalize(final, &r.params, status))
}

// completeRun stamps run identity and timing onto the result and publishes it.
func (r *Run) completeRun(result *domain.SimulationResult) {
	result.RunID = r.id
	result.Seed = r.seed
	result.ScenarioCount = len(r.scenarios)
	result.StartedAt = r.startedAt.UnixMilli()
	result.ExecutionTimeMs = time.Since(r.startedAt).Milliseconds()

	observability.RecordRunFinished(string(result.Status), time.Since(r.startedAt).Seconds())
	r.finish(result)
}

// runBatch simulates iterations [index*batchSize, min((index+1)*batchSize, N)).
// Each iteration derives its own substream from (seed, iteration index) and
// sums sampled losses across all scenarios into one total.
func (r *Run) runBatch(index, batchSize, stride int) *accumulator {
	start := index * batchSize
	end := start + batchSize
	if end > r.params.Iterations {
		end = r.params.Iterations
	}

	acc := newAccumulator(r.params.CatastrophicLossThreshold, r.params.RetainOutcomes, stride)
	for i := start; i < end; i++ {
		rng := NewStream(r.seed, i)
		total := 0.0
		for _, s := range r.scenarios {
			total += SampleLoss(s, rng)
		}
		acc.add(total, i)
	}
	return acc
}

// sampleStride returns the deterministic sampling stride for bounded-memory
// mode: every stride-th iteration (by global index) joins the percentile
// sample. Retention mode keeps everything.
func sampleStride(iterations int, retain bool) int {
	if retain || iterations <= maxSampleSize {
		return 1
	}
	return (iterations + maxSampleSize - 1) / maxSampleSize
}
