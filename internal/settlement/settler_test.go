package settlement

import (
	"context"
	"path/filepath"
	"testing"

	"pantry-planner/internal/database"
	"pantry-planner/internal/inventory"
	"pantry-planner/internal/shared"
	"pantry-planner/internal/shopping"
)

type testEnv struct {
	settler *Settler
	entries *shopping.Repository
	pantry  *inventory.Repository
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	db, err := database.NewDB(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	entries := shopping.NewRepository(db.SQL)
	pantry := inventory.NewRepository(db.SQL)
	return testEnv{
		settler: NewSettler(db.SQL, entries, pantry),
		entries: entries,
		pantry:  pantry,
	}
}

func (e testEnv) addEntry(t *testing.T, householdID string, s shopping.Shortfall) *shopping.Entry {
	t.Helper()
	entry, err := e.entries.UpsertIncrement(context.Background(), householdID, s)
	if err != nil {
		t.Fatalf("Failed to seed shopping entry: %v", err)
	}
	return entry
}

func TestSettleMovesQuantityIntoInventory(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	// Pantry already holds 2 tomatoes; the purchase adds 3 more.
	if _, err := env.pantry.AddQuantity(ctx, "hh-1", "tomato", "piece", "", 2); err != nil {
		t.Fatalf("Failed to seed inventory: %v", err)
	}
	entry := env.addEntry(t, "hh-1", shopping.Shortfall{Name: "tomato", Quantity: 3, Unit: "piece"})

	result, err := env.settler.Settle(ctx, "hh-1", []string{entry.ID})
	if err != nil {
		t.Fatalf("Settle failed: %v", err)
	}
	if result.MovedCount != 1 {
		t.Errorf("Expected MovedCount 1, got %d", result.MovedCount)
	}

	item, err := env.pantry.GetByName(ctx, "hh-1", "tomato")
	if err != nil {
		t.Fatalf("GetByName failed: %v", err)
	}
	if item.Quantity != 5 {
		t.Errorf("Expected pantry quantity 5 after settle, got %g", item.Quantity)
	}

	active, err := env.entries.ListActive(ctx, "hh-1")
	if err != nil {
		t.Fatalf("ListActive failed: %v", err)
	}
	if len(active) != 0 {
		t.Errorf("Expected empty active list after settle, got %+v", active)
	}
}

func TestSettleIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	entry := env.addEntry(t, "hh-1", shopping.Shortfall{Name: "egg", Quantity: 6, Unit: "piece"})

	first, err := env.settler.Settle(ctx, "hh-1", []string{entry.ID})
	if err != nil {
		t.Fatalf("First settle failed: %v", err)
	}
	if first.MovedCount != 1 {
		t.Fatalf("Expected first settle to move 1 entry, got %d", first.MovedCount)
	}

	second, err := env.settler.Settle(ctx, "hh-1", []string{entry.ID})
	if err != nil {
		t.Fatalf("Second settle failed: %v", err)
	}
	if second.MovedCount != 0 {
		t.Errorf("Expected second settle to move nothing, got %d", second.MovedCount)
	}
	if len(second.Reports) != 1 || !second.Reports[0].OK || second.Reports[0].Reason != "already completed" {
		t.Errorf("Expected already-completed report, got %+v", second.Reports)
	}

	// The quantity moved exactly once.
	item, err := env.pantry.GetByName(ctx, "hh-1", "egg")
	if err != nil {
		t.Fatalf("GetByName failed: %v", err)
	}
	if item.Quantity != 6 {
		t.Errorf("Expected pantry quantity 6, got %g", item.Quantity)
	}
}

func TestSettleReportsUnknownEntry(t *testing.T) {
	env := newTestEnv(t)

	result, err := env.settler.Settle(context.Background(), "hh-1", []string{"no-such-id"})
	if err != nil {
		t.Fatalf("Settle failed: %v", err)
	}
	if result.MovedCount != 0 {
		t.Errorf("Expected MovedCount 0, got %d", result.MovedCount)
	}
	failed := shared.Failures(result.Reports)
	if len(failed) != 1 || failed[0].Reason != "entry not found" {
		t.Errorf("Expected entry-not-found report, got %+v", result.Reports)
	}
}

func TestSettleContinuesPastBadEntry(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	good := env.addEntry(t, "hh-1", shopping.Shortfall{Name: "flour", Quantity: 500, Unit: "g"})

	result, err := env.settler.Settle(ctx, "hh-1", []string{"bogus", good.ID})
	if err != nil {
		t.Fatalf("Settle failed: %v", err)
	}
	if result.MovedCount != 1 {
		t.Errorf("Expected the good entry to settle, got MovedCount %d", result.MovedCount)
	}
	if len(result.Reports) != 2 {
		t.Fatalf("Expected 2 reports, got %+v", result.Reports)
	}
	if result.Reports[0].OK || result.Reports[1].OK != true {
		t.Errorf("Expected first report failed and second OK, got %+v", result.Reports)
	}

	item, err := env.pantry.GetByName(ctx, "hh-1", "flour")
	if err != nil {
		t.Fatalf("GetByName failed: %v", err)
	}
	if item == nil || item.Quantity != 500 {
		t.Errorf("Expected flour 500 in pantry, got %+v", item)
	}
}

func TestSettleMovesTheEditedToBuyQuantity(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	entry := env.addEntry(t, "hh-1", shopping.Shortfall{Name: "rice", Quantity: 500, Unit: "g"})

	// The user bumps the amount before settling; the settle must move the
	// edited quantity, not what the entry held when it was created.
	if err := env.entries.SetToBuyQuantity(ctx, "hh-1", entry.ID, 1000); err != nil {
		t.Fatalf("SetToBuyQuantity failed: %v", err)
	}

	result, err := env.settler.Settle(ctx, "hh-1", []string{entry.ID})
	if err != nil {
		t.Fatalf("Settle failed: %v", err)
	}
	if result.MovedCount != 1 {
		t.Fatalf("Expected MovedCount 1, got %d", result.MovedCount)
	}

	item, err := env.pantry.GetByName(ctx, "hh-1", "rice")
	if err != nil {
		t.Fatalf("GetByName failed: %v", err)
	}
	if item == nil || item.Quantity != 1000 {
		t.Errorf("Expected pantry to receive the edited quantity 1000, got %+v", item)
	}
}

func TestSettleRespectsHouseholdScope(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	entry := env.addEntry(t, "hh-1", shopping.Shortfall{Name: "milk", Quantity: 1, Unit: "l"})

	result, err := env.settler.Settle(ctx, "hh-2", []string{entry.ID})
	if err != nil {
		t.Fatalf("Settle failed: %v", err)
	}
	if result.MovedCount != 0 {
		t.Errorf("Expected no movement across households, got %d", result.MovedCount)
	}

	// hh-1's entry is still active and its pantry untouched.
	active, err := env.entries.ListActive(ctx, "hh-1")
	if err != nil {
		t.Fatalf("ListActive failed: %v", err)
	}
	if len(active) != 1 {
		t.Errorf("Expected hh-1 entry to remain active, got %+v", active)
	}
}
