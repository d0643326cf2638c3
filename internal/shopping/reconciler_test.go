package shopping

import (
	"context"
	"path/filepath"
	"testing"

	"pantry-planner/internal/database"
	"pantry-planner/internal/shared"
)

func newTestReconciler(t *testing.T) (*Reconciler, *Repository) {
	t.Helper()
	db, err := database.NewDB(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	repo := NewRepository(db.SQL)
	return NewReconciler(repo), repo
}

func TestReconcileMergesBatch(t *testing.T) {
	rc, repo := newTestReconciler(t)
	ctx := context.Background()

	result, err := rc.Reconcile(ctx, "hh-1", []Shortfall{
		{Name: "tomato", Quantity: 3, Unit: "piece"},
		{Name: "egg", Quantity: 3, Unit: "piece"},
	})
	if err != nil {
		t.Fatalf("Reconcile failed: %v", err)
	}
	if len(result.Entries) != 2 {
		t.Fatalf("Expected 2 entries, got %d", len(result.Entries))
	}
	if n := len(shared.Failures(result.Reports)); n != 0 {
		t.Errorf("Expected no failed items, got %d", n)
	}

	entries, err := repo.ListActive(ctx, "hh-1")
	if err != nil {
		t.Fatalf("ListActive failed: %v", err)
	}
	if len(entries) != 2 {
		t.Errorf("Expected 2 active entries, got %d", len(entries))
	}
}

func TestReconcileIsAdditive(t *testing.T) {
	rc, repo := newTestReconciler(t)
	ctx := context.Background()

	batch := []Shortfall{{Name: "tomato", Quantity: 3}}
	if _, err := rc.Reconcile(ctx, "hh-1", batch); err != nil {
		t.Fatalf("First reconcile failed: %v", err)
	}
	if _, err := rc.Reconcile(ctx, "hh-1", batch); err != nil {
		t.Fatalf("Second reconcile failed: %v", err)
	}

	entries, err := repo.ListActive(ctx, "hh-1")
	if err != nil {
		t.Fatalf("ListActive failed: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("Expected one active entry, got %d", len(entries))
	}
	// Needs compound across reconciles: 3 + 3.
	if entries[0].ToBuyQuantity != 6 {
		t.Errorf("Expected summed quantity 6, got %g", entries[0].ToBuyQuantity)
	}
}

func TestReconcileDropsNonPositiveQuantities(t *testing.T) {
	rc, repo := newTestReconciler(t)
	ctx := context.Background()

	result, err := rc.Reconcile(ctx, "hh-1", []Shortfall{
		{Name: "ghost", Quantity: 0},
		{Name: "phantom", Quantity: -2},
		{Name: "real", Quantity: 1},
	})
	if err != nil {
		t.Fatalf("Reconcile failed: %v", err)
	}
	if len(result.Entries) != 1 || result.Entries[0].Name != "real" {
		t.Errorf("Expected only the positive shortfall to land, got %+v", result.Entries)
	}

	entries, err := repo.ListActive(ctx, "hh-1")
	if err != nil {
		t.Fatalf("ListActive failed: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("Expected 1 active entry, got %d", len(entries))
	}
}

func TestReconcileReportsMissingName(t *testing.T) {
	rc, _ := newTestReconciler(t)

	result, err := rc.Reconcile(context.Background(), "hh-1", []Shortfall{
		{Name: "   ", Quantity: 2},
		{Name: "carrot", Quantity: 2},
	})
	if err != nil {
		t.Fatalf("Reconcile failed: %v", err)
	}

	failed := shared.Failures(result.Reports)
	if len(failed) != 1 || failed[0].Reason != "missing ingredient name" {
		t.Errorf("Expected one missing-name failure, got %+v", failed)
	}
	if len(result.Entries) != 1 || result.Entries[0].Name != "carrot" {
		t.Errorf("Expected the batch to continue past the bad item, got %+v", result.Entries)
	}
}
