package memory

import (
	"context"
	"errors"
	"testing"

	"risklab/internal/domain"
	"risklab/internal/storage"
)

func testScenario(id, name string, createdAt int64) *domain.RiskScenario {
	return &domain.RiskScenario{
		ScenarioID:        id,
		Name:              name,
		ProbabilityAnnual: 0.3,
		Impact:            domain.ImpactEstimate{Min: 1000, Likely: 5000, Max: 20000},
		CreatedAt:         createdAt,
	}
}

func TestScenarioStore_InsertAndGet(t *testing.T) {
	store := NewScenarioStore()
	ctx := context.Background()

	if err := store.Insert(ctx, testScenario("s1", "breach", 1000)); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	got, err := store.GetByID(ctx, "s1")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.Name != "breach" || got.ProbabilityAnnual != 0.3 {
		t.Errorf("scenario mismatch: %+v", got)
	}
}

func TestScenarioStore_DuplicateKey(t *testing.T) {
	store := NewScenarioStore()
	ctx := context.Background()

	if err := store.Insert(ctx, testScenario("s1", "breach", 1000)); err != nil {
		t.Fatalf("First insert failed: %v", err)
	}

	err := store.Insert(ctx, testScenario("s1", "breach", 2000))
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey, got %v", err)
	}
}

func TestScenarioStore_NotFound(t *testing.T) {
	store := NewScenarioStore()

	_, err := store.GetByID(context.Background(), "nonexistent")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestScenarioStore_InsertBulk(t *testing.T) {
	store := NewScenarioStore()
	ctx := context.Background()

	scenarios := []*domain.RiskScenario{
		testScenario("s1", "breach", 1000),
		testScenario("s2", "outage", 2000),
		testScenario("s3", "fraud", 3000),
	}

	if err := store.InsertBulk(ctx, scenarios); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	all, err := store.GetAll(ctx)
	if err != nil {
		t.Fatalf("GetAll failed: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("GetAll returned %d scenarios, want 3", len(all))
	}
	// Ordered by created_at ASC.
	if all[0].ScenarioID != "s1" || all[2].ScenarioID != "s3" {
		t.Errorf("unexpected order: %s, %s, %s", all[0].ScenarioID, all[1].ScenarioID, all[2].ScenarioID)
	}
}

func TestScenarioStore_InsertBulkIntraBatchDuplicate(t *testing.T) {
	store := NewScenarioStore()
	ctx := context.Background()

	scenarios := []*domain.RiskScenario{
		testScenario("s1", "breach", 1000),
		testScenario("s1", "breach again", 2000),
	}

	err := store.InsertBulk(ctx, scenarios)
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Fatalf("Expected ErrDuplicateKey, got %v", err)
	}

	// Batch must fail atomically.
	if _, err := store.GetByID(ctx, "s1"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("partial batch was inserted: %v", err)
	}
}

func TestScenarioStore_GetByName(t *testing.T) {
	store := NewScenarioStore()
	ctx := context.Background()

	_ = store.Insert(ctx, testScenario("s1", "breach", 2000))
	_ = store.Insert(ctx, testScenario("s2", "breach", 1000))
	_ = store.Insert(ctx, testScenario("s3", "outage", 3000))

	got, err := store.GetByName(ctx, "breach")
	if err != nil {
		t.Fatalf("GetByName failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("GetByName returned %d scenarios, want 2", len(got))
	}
	if got[0].ScenarioID != "s2" {
		t.Errorf("expected created_at ordering, got %s first", got[0].ScenarioID)
	}
}

func TestScenarioStore_ReturnsCopies(t *testing.T) {
	store := NewScenarioStore()
	ctx := context.Background()

	_ = store.Insert(ctx, testScenario("s1", "breach", 1000))

	got, _ := store.GetByID(ctx, "s1")
	got.Name = "mutated"

	again, _ := store.GetByID(ctx, "s1")
	if again.Name != "breach" {
		t.Error("store returned a reference to internal state")
	}
}
