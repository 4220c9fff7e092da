package memory

import (
	"context"
	"errors"
	"math"
	"testing"

	"risklab/internal/domain"
	"risklab/internal/storage"
)

func TestOutcomeSampleStore_InsertBulkAndGet(t *testing.T) {
	store := NewOutcomeSampleStore()
	ctx := context.Background()

	samples := []*domain.IterationOutcome{
		{RunID: "r1", Iteration: 2, Loss: 300},
		{RunID: "r1", Iteration: 0, Loss: 100},
		{RunID: "r1", Iteration: 1, Loss: 200},
		{RunID: "r2", Iteration: 0, Loss: 999},
	}

	if err := store.InsertBulk(ctx, samples); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	got, err := store.GetByRunID(ctx, "r1")
	if err != nil {
		t.Fatalf("GetByRunID failed: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("GetByRunID returned %d outcomes, want 3", len(got))
	}
	for i, o := range got {
		if o.Iteration != i {
			t.Errorf("outcome %d has iteration %d, want iteration order", i, o.Iteration)
		}
	}
}

func TestOutcomeSampleStore_InvalidInput(t *testing.T) {
	store := NewOutcomeSampleStore()
	ctx := context.Background()

	err := store.InsertBulk(ctx, []*domain.IterationOutcome{{RunID: "", Iteration: 0, Loss: 1}})
	if !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput, got %v", err)
	}
}

func TestOutcomeSampleStore_Quantiles(t *testing.T) {
	store := NewOutcomeSampleStore()
	ctx := context.Background()

	var samples []*domain.IterationOutcome
	for i := 0; i < 101; i++ {
		samples = append(samples, &domain.IterationOutcome{
			RunID: "r1", Iteration: i, Loss: float64(i * 10),
		})
	}
	if err := store.InsertBulk(ctx, samples); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	got, err := store.Quantiles(ctx, "r1", []float64{50, 95})
	if err != nil {
		t.Fatalf("Quantiles failed: %v", err)
	}
	// Losses 0..1000 in steps of 10: p50 = 500, p95 = 950.
	if math.Abs(got[0]-500) > 1e-9 || math.Abs(got[1]-950) > 1e-9 {
		t.Errorf("quantiles = %v, want [500 950]", got)
	}
}

func TestOutcomeSampleStore_QuantilesErrors(t *testing.T) {
	store := NewOutcomeSampleStore()
	ctx := context.Background()

	if _, err := store.Quantiles(ctx, "missing", []float64{50}); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
	if _, err := store.Quantiles(ctx, "r1", []float64{0}); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput for percentile 0, got %v", err)
	}
}
