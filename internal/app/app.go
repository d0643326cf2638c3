// Package app drives the engine from the command line.
package app

import (
	"context"
	"fmt"

	"pantry-planner/internal/clipper"
	"pantry-planner/internal/engine"
	"pantry-planner/internal/inventory"
	"pantry-planner/internal/planner"
	"pantry-planner/internal/recipe"
	"pantry-planner/internal/shopping"
	"pantry-planner/internal/storage"
)

// App holds the application's dependencies.
type App struct {
	Engine  *engine.Engine
	Clipper *clipper.Clipper
	Plans   *planner.PlanRepository
	Recipes *recipe.Repository
	Pantry  *inventory.Repository
	Entries *shopping.Repository
	Exports *storage.ExportStore
}

// ClipRecipe imports a recipe from a URL and prints a summary.
func (a *App) ClipRecipe(ctx context.Context, url string) error {
	if a.Clipper == nil {
		return fmt.Errorf("recipe import requires GEMINI_API_KEY or GROQ_API_KEY")
	}

	fmt.Printf("Importing recipe from %s...\n", url)
	rec, err := a.Clipper.ClipURL(ctx, url)
	if err != nil {
		return fmt.Errorf("failed to clip recipe: %w", err)
	}

	fmt.Printf("Saved \"%s\" (%d ingredients)\n", rec.Title, len(rec.Ingredients))
	for _, ing := range rec.Ingredients {
		fmt.Printf("  - %g %s %s\n", ing.Quantity, ing.Unit, ing.Name)
	}
	return nil
}

// PlanMeal schedules a recipe (looked up by title) and prints the meal id.
func (a *App) PlanMeal(ctx context.Context, householdID, title string) error {
	rec, err := a.Recipes.FindByTitle(ctx, title)
	if err != nil {
		return err
	}
	if rec == nil {
		return fmt.Errorf("no recipe titled %q; import it first with the clip command", title)
	}

	mealID, err := a.Plans.Save(ctx, householdID, rec.ID, "", 1)
	if err != nil {
		return err
	}
	fmt.Printf("Planned \"%s\" (meal %s)\n", rec.Title, mealID)
	return nil
}

// CheckMeal prints the availability partitions for a planned meal.
func (a *App) CheckMeal(ctx context.Context, householdID, mealID string) error {
	result, err := a.Engine.CheckAvailability(ctx, householdID, mealID)
	if err != nil {
		return fmt.Errorf("failed to check meal: %w", err)
	}

	fmt.Println("\n=== IN STOCK ===")
	for _, r := range result.Available {
		fmt.Printf("- %s (%g %s)\n", r.Name, r.Quantity, r.Unit)
	}
	fmt.Println("\n=== RUNNING LOW ===")
	for _, r := range result.LowStock {
		fmt.Printf("- %s: have %g, need %g %s (short %g)\n", r.Name, r.AvailableQuantity, r.Quantity, r.Unit, r.Shortfall)
	}
	fmt.Println("\n=== MISSING ===")
	for _, r := range result.OutOfStock {
		fmt.Printf("- %s (%g %s)\n", r.Name, r.Quantity, r.Unit)
	}
	for _, w := range result.Warnings {
		fmt.Printf("warning: %s\n", w)
	}
	return nil
}

// Shop checks a meal and merges its shortfalls into the shopping list.
func (a *App) Shop(ctx context.Context, householdID, mealID string) error {
	result, err := a.Engine.CheckAvailability(ctx, householdID, mealID)
	if err != nil {
		return fmt.Errorf("failed to check meal: %w", err)
	}

	shortfalls := result.Shortfalls()
	if len(shortfalls) == 0 {
		fmt.Println("Nothing missing; shopping list unchanged.")
		return nil
	}

	recResult, err := a.Engine.AddShortfallToShoppingList(ctx, householdID, shortfalls)
	if err != nil {
		return fmt.Errorf("failed to update shopping list: %w", err)
	}

	fmt.Println("Shopping list updated:")
	for _, e := range recResult.Entries {
		fmt.Printf("- %s: buy %g %s\n", e.Name, e.ToBuyQuantity, e.Unit)
	}
	for _, rep := range recResult.Reports {
		if !rep.OK {
			fmt.Printf("skipped %q: %s\n", rep.Ref, rep.Reason)
		}
	}
	return nil
}

// Settle marks entries purchased and moves their quantities into the pantry.
func (a *App) Settle(ctx context.Context, householdID string, entryIDs []string) error {
	result, err := a.Engine.SettlePurchases(ctx, householdID, entryIDs)
	if err != nil {
		return fmt.Errorf("failed to settle purchases: %w", err)
	}

	fmt.Printf("Moved %d entries into the pantry.\n", result.MovedCount)
	for _, rep := range result.Reports {
		if !rep.OK {
			fmt.Printf("failed %s: %s\n", rep.Ref, rep.Reason)
		} else if rep.Reason != "" {
			fmt.Printf("%s: %s\n", rep.Ref, rep.Reason)
		}
	}
	return nil
}

// ShowList prints the active shopping list with entry ids for -settle.
func (a *App) ShowList(ctx context.Context, householdID string) error {
	entries, err := a.Entries.ListActive(ctx, householdID)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Println("Shopping list is empty.")
		return nil
	}
	fmt.Println("=== SHOPPING LIST ===")
	for _, e := range entries {
		fmt.Printf("- %s: buy %g %s (id %s)\n", e.Name, e.ToBuyQuantity, e.Unit, e.ID)
	}
	return nil
}

// ExportList writes the active shopping list to a file for printing/sharing.
func (a *App) ExportList(ctx context.Context, householdID string) error {
	entries, err := a.Entries.ListActive(ctx, householdID)
	if err != nil {
		return err
	}
	path, err := a.Exports.Save(householdID, entries)
	if err != nil {
		return err
	}
	fmt.Printf("Exported %d entries to %s\n", len(entries), path)
	return nil
}

// ShowPantry prints the household's inventory.
func (a *App) ShowPantry(ctx context.Context, householdID string) error {
	items, err := a.Pantry.Snapshot(ctx, householdID)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		fmt.Println("Pantry is empty.")
		return nil
	}
	fmt.Println("=== PANTRY ===")
	for _, it := range items {
		fmt.Printf("- %s: %g %s\n", it.Name, it.Quantity, it.Unit)
	}
	return nil
}
