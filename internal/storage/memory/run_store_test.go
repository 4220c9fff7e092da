package memory

import (
	"context"
	"errors"
	"testing"

	"risklab/internal/domain"
	"risklab/internal/storage"
)

func testResult(runID string, startedAt int64) *domain.SimulationResult {
	return &domain.SimulationResult{
		RunID:               runID,
		Status:              domain.StatusComplete,
		Seed:                42,
		IterationsRequested: 10_000,
		IterationsCompleted: 10_000,
		ScenarioCount:       2,
		StartedAt:           startedAt,
		Percentiles: []domain.PercentilePoint{
			{Percentile: 50, Loss: 12_000},
			{Percentile: 95, Loss: 88_000},
		},
		Statistics: domain.SummaryStatistics{Mean: 15_000, Median: 12_000},
	}
}

func TestSimulationRunStore_InsertAndGet(t *testing.T) {
	store := NewSimulationRunStore()
	ctx := context.Background()

	if err := store.Insert(ctx, testResult("r1", 1000)); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	got, err := store.GetByID(ctx, "r1")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.Seed != 42 || got.Statistics.Mean != 15_000 {
		t.Errorf("result mismatch: %+v", got)
	}
	if len(got.Percentiles) != 2 {
		t.Errorf("percentiles = %d, want 2", len(got.Percentiles))
	}
}

func TestSimulationRunStore_DuplicateKey(t *testing.T) {
	store := NewSimulationRunStore()
	ctx := context.Background()

	if err := store.Insert(ctx, testResult("r1", 1000)); err != nil {
		t.Fatalf("First insert failed: %v", err)
	}

	err := store.Insert(ctx, testResult("r1", 2000))
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey, got %v", err)
	}
}

func TestSimulationRunStore_NotFound(t *testing.T) {
	store := NewSimulationRunStore()

	_, err := store.GetByID(context.Background(), "nonexistent")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestSimulationRunStore_GetRecent(t *testing.T) {
	store := NewSimulationRunStore()
	ctx := context.Background()

	_ = store.Insert(ctx, testResult("r1", 1000))
	_ = store.Insert(ctx, testResult("r2", 3000))
	_ = store.Insert(ctx, testResult("r3", 2000))

	got, err := store.GetRecent(ctx, 2)
	if err != nil {
		t.Fatalf("GetRecent failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("GetRecent returned %d runs, want 2", len(got))
	}
	if got[0].RunID != "r2" || got[1].RunID != "r3" {
		t.Errorf("expected newest-first order, got %s, %s", got[0].RunID, got[1].RunID)
	}

	if _, err := store.GetRecent(ctx, 0); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput for limit 0, got %v", err)
	}
}

func TestSimulationRunStore_ReturnsCopies(t *testing.T) {
	store := NewSimulationRunStore()
	ctx := context.Background()

	_ = store.Insert(ctx, testResult("r1", 1000))

	got, _ := store.GetByID(ctx, "r1")
	got.Percentiles[0].Loss = -1

	again, _ := store.GetByID(ctx, "r1")
	if again.Percentiles[0].Loss != 12_000 {
		t.Error("store returned a reference to internal percentile state")
	}
}
