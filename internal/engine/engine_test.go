package engine

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"pantry-planner/internal/database"
	"pantry-planner/internal/inventory"
	"pantry-planner/internal/metrics"
	"pantry-planner/internal/planner"
	"pantry-planner/internal/recipe"
	"pantry-planner/internal/settlement"
	"pantry-planner/internal/shared"
	"pantry-planner/internal/shopping"
)

type testEnv struct {
	engine  *Engine
	plans   *planner.PlanRepository
	recipes *recipe.Repository
	pantry  *inventory.Repository
	entries *shopping.Repository
	metrics *metrics.Store
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	db, err := database.NewDB(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	recipes := recipe.NewRepository(db.SQL)
	plans := planner.NewPlanRepository(db.SQL, recipes)
	pantry := inventory.NewRepository(db.SQL)
	entries := shopping.NewRepository(db.SQL)
	metricsStore := metrics.NewStore(db.SQL)
	eng := New(
		plans,
		pantry,
		shopping.NewReconciler(entries),
		settlement.NewSettler(db.SQL, entries, pantry),
		metricsStore,
	)
	return testEnv{engine: eng, plans: plans, recipes: recipes, pantry: pantry, entries: entries, metrics: metricsStore}
}

func (e testEnv) planMeal(t *testing.T, householdID string, rec recipe.Recipe) string {
	t.Helper()
	ctx := context.Background()
	if err := e.recipes.Save(ctx, rec); err != nil {
		t.Fatalf("Failed to save recipe: %v", err)
	}
	mealID, err := e.plans.Save(ctx, householdID, rec.ID, "monday", 1)
	if err != nil {
		t.Fatalf("Failed to plan meal: %v", err)
	}
	return mealID
}

func TestCheckAvailability(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	if _, err := env.pantry.AddQuantity(ctx, "hh-1", "tomato", "piece", "", 2); err != nil {
		t.Fatalf("Failed to seed inventory: %v", err)
	}
	mealID := env.planMeal(t, "hh-1", recipe.Recipe{
		ID:    "rec-1",
		Title: "Shakshuka",
		Ingredients: []recipe.IngredientRequirement{
			{Name: "tomato", Quantity: 5, Unit: "piece"},
			{Name: "egg", Quantity: 3, Unit: "piece"},
		},
	})

	result, err := env.engine.CheckAvailability(ctx, "hh-1", mealID)
	if err != nil {
		t.Fatalf("CheckAvailability failed: %v", err)
	}
	if len(result.LowStock) != 1 || result.LowStock[0].Shortfall != 3 {
		t.Errorf("Expected tomato shortfall of 3, got %+v", result.LowStock)
	}
	if len(result.OutOfStock) != 1 || result.OutOfStock[0].Name != "egg" {
		t.Errorf("Expected egg out of stock, got %+v", result.OutOfStock)
	}
}

func TestCheckAvailabilityUnknownMeal(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.engine.CheckAvailability(context.Background(), "hh-1", "no-such-meal")
	if !errors.Is(err, shared.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestCheckAvailabilityIsHouseholdScoped(t *testing.T) {
	env := newTestEnv(t)

	mealID := env.planMeal(t, "hh-1", recipe.Recipe{
		ID:          "rec-1",
		Title:       "Toast",
		Ingredients: []recipe.IngredientRequirement{{Name: "bread", Quantity: 2}},
	})

	_, err := env.engine.CheckAvailability(context.Background(), "hh-2", mealID)
	if !errors.Is(err, shared.ErrNotFound) {
		t.Errorf("Expected another household's check to miss the meal, got %v", err)
	}
}

func TestAddShortfallToShoppingList(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	result, err := env.engine.AddShortfallToShoppingList(ctx, "hh-1", []shopping.Shortfall{
		{Name: "tomato", Quantity: 3, Unit: "piece"},
		{Name: "egg", Quantity: 3, Unit: "piece"},
	})
	if err != nil {
		t.Fatalf("AddShortfallToShoppingList failed: %v", err)
	}
	if len(result.Entries) != 2 {
		t.Errorf("Expected 2 entries, got %+v", result.Entries)
	}

	active, err := env.entries.ListActive(ctx, "hh-1")
	if err != nil {
		t.Fatalf("ListActive failed: %v", err)
	}
	if len(active) != 2 {
		t.Errorf("Expected 2 active entries, got %d", len(active))
	}
}

func TestSettlePurchases(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	res, err := env.engine.AddShortfallToShoppingList(ctx, "hh-1", []shopping.Shortfall{
		{Name: "egg", Quantity: 3, Unit: "piece"},
	})
	if err != nil {
		t.Fatalf("AddShortfallToShoppingList failed: %v", err)
	}

	settled, err := env.engine.SettlePurchases(ctx, "hh-1", []string{res.Entries[0].ID})
	if err != nil {
		t.Fatalf("SettlePurchases failed: %v", err)
	}
	if settled.MovedCount != 1 {
		t.Errorf("Expected MovedCount 1, got %d", settled.MovedCount)
	}

	item, err := env.pantry.GetByName(ctx, "hh-1", "egg")
	if err != nil {
		t.Fatalf("GetByName failed: %v", err)
	}
	if item == nil || item.Quantity != 3 {
		t.Errorf("Expected 3 eggs in pantry, got %+v", item)
	}
}

func TestCancelledContextIsNotRetryable(t *testing.T) {
	env := newTestEnv(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := env.engine.AddShortfallToShoppingList(ctx, "hh-1", []shopping.Shortfall{
		{Name: "tomato", Quantity: 1},
	})
	if err == nil {
		t.Fatal("Expected error with cancelled context")
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled to surface, got %v", err)
	}
	if shared.IsRetryable(err) {
		t.Errorf("Expected cancellation not to be classified retryable, got %v", err)
	}
}

func TestOperationsRecordMetrics(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	if _, err := env.engine.AddShortfallToShoppingList(ctx, "hh-1", []shopping.Shortfall{
		{Name: "tomato", Quantity: 1},
	}); err != nil {
		t.Fatalf("AddShortfallToShoppingList failed: %v", err)
	}

	usage, err := env.metrics.GetDailyUsage(7)
	if err != nil {
		t.Fatalf("GetDailyUsage failed: %v", err)
	}
	found := false
	for _, u := range usage {
		if u.Operation == "reconcile" {
			found = true
		}
	}
	if !found {
		t.Errorf("Expected a reconcile metric row, got %+v", usage)
	}
}
