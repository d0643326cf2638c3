package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"pantry-planner/internal/app"
	"pantry-planner/internal/clipper"
	"pantry-planner/internal/config"
	"pantry-planner/internal/database"
	"pantry-planner/internal/engine"
	"pantry-planner/internal/inventory"
	"pantry-planner/internal/llm"
	"pantry-planner/internal/metrics"
	"pantry-planner/internal/planner"
	"pantry-planner/internal/recipe"
	"pantry-planner/internal/settlement"
	"pantry-planner/internal/shopping"
	"pantry-planner/internal/storage"
)

func main() {
	ctx := context.Background()

	cfg, err := config.NewFromEnv()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.NewDB(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	recipeRepo := recipe.NewRepository(db.SQL)
	pantryRepo := inventory.NewRepository(db.SQL)
	entryRepo := shopping.NewRepository(db.SQL)
	planRepo := planner.NewPlanRepository(db.SQL, recipeRepo)
	metricsStore := metrics.NewStore(db.SQL)

	reconciler := shopping.NewReconciler(entryRepo)
	settler := settlement.NewSettler(db.SQL, entryRepo, pantryRepo)
	eng := engine.New(planRepo, pantryRepo, reconciler, settler, metricsStore)

	var recipeClipper *clipper.Clipper
	if cfg.HasLLM() {
		textGen, closer, err := newTextGenerator(ctx, cfg)
		if err != nil {
			log.Fatalf("Failed to initialize LLM client: %v", err)
		}
		if closer != nil {
			defer closer.Close()
		}
		recipeClipper = clipper.NewClipper(recipeRepo, textGen, metricsStore)
	}

	exportStore, err := storage.NewExportStore("data/exports")
	if err != nil {
		log.Fatalf("Failed to initialize export store: %v", err)
	}

	application := &app.App{
		Engine:  eng,
		Clipper: recipeClipper,
		Plans:   planRepo,
		Recipes: recipeRepo,
		Pantry:  pantryRepo,
		Entries: entryRepo,
		Exports: exportStore,
	}

	householdID := os.Getenv("HOUSEHOLD_ID")

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	// Every command is scoped to one household; there is no implicit default.
	requireHousehold := func() {
		if householdID == "" {
			log.Fatal("HOUSEHOLD_ID environment variable not set")
		}
	}

	switch os.Args[1] {
	case "clip":
		if len(os.Args) < 3 {
			log.Fatal("Usage: pantry-planner clip <url>")
		}
		if err := application.ClipRecipe(ctx, os.Args[2]); err != nil {
			log.Fatalf("Clip failed: %v", err)
		}
	case "plan":
		requireHousehold()
		if len(os.Args) < 3 {
			log.Fatal("Usage: pantry-planner plan <recipe title>")
		}
		if err := application.PlanMeal(ctx, householdID, os.Args[2]); err != nil {
			log.Fatalf("Plan failed: %v", err)
		}
	case "check":
		requireHousehold()
		if len(os.Args) < 3 {
			log.Fatal("Usage: pantry-planner check <meal id>")
		}
		if err := application.CheckMeal(ctx, householdID, os.Args[2]); err != nil {
			log.Fatalf("Check failed: %v", err)
		}
	case "shop":
		requireHousehold()
		if len(os.Args) < 3 {
			log.Fatal("Usage: pantry-planner shop <meal id>")
		}
		if err := application.Shop(ctx, householdID, os.Args[2]); err != nil {
			log.Fatalf("Shop failed: %v", err)
		}
	case "list":
		requireHousehold()
		if err := application.ShowList(ctx, householdID); err != nil {
			log.Fatalf("List failed: %v", err)
		}
	case "settle":
		requireHousehold()
		if len(os.Args) < 3 {
			log.Fatal("Usage: pantry-planner settle <entry id> [entry id...]")
		}
		if err := application.Settle(ctx, householdID, os.Args[2:]); err != nil {
			log.Fatalf("Settle failed: %v", err)
		}
	case "export":
		requireHousehold()
		if err := application.ExportList(ctx, householdID); err != nil {
			log.Fatalf("Export failed: %v", err)
		}
	case "pantry":
		requireHousehold()
		if err := application.ShowPantry(ctx, householdID); err != nil {
			log.Fatalf("Pantry failed: %v", err)
		}
	case "stock":
		requireHousehold()
		stockCmd := flag.NewFlagSet("stock", flag.ExitOnError)
		name := stockCmd.String("name", "", "Ingredient name")
		qty := stockCmd.Float64("qty", 0, "Quantity to add")
		unit := stockCmd.String("unit", "", "Unit")
		category := stockCmd.String("category", "", "Grocery category")
		stockCmd.Parse(os.Args[2:])
		if *name == "" || *qty <= 0 {
			log.Fatal("Usage: pantry-planner stock -name <name> -qty <n> [-unit u] [-category c]")
		}
		item, err := pantryRepo.AddQuantity(ctx, householdID, *name, *unit, *category, *qty)
		if err != nil {
			log.Fatalf("Stock failed: %v", err)
		}
		fmt.Printf("Pantry now holds %g %s %s\n", item.Quantity, item.Unit, item.Name)
	default:
		fmt.Printf("Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func newTextGenerator(ctx context.Context, cfg *config.Config) (llm.TextGenerator, llm.Closer, error) {
	if cfg.GeminiAPIKey != "" {
		client, err := llm.NewGeminiClient(ctx, cfg.GeminiAPIKey, "gemini-2.0-flash")
		if err != nil {
			return nil, nil, err
		}
		return client, client, nil
	}
	return llm.NewGroqClient(cfg.GroqAPIKey), nil, nil
}

func printUsage() {
	fmt.Println("Usage: pantry-planner <command> [arguments]")
	fmt.Println("\nCommands:")
	fmt.Println("  clip <url>             Import a recipe from a web page")
	fmt.Println("  plan <recipe title>    Schedule a meal from an imported recipe")
	fmt.Println("  check <meal id>        Show which ingredients are missing for a meal")
	fmt.Println("  shop <meal id>         Merge a meal's shortfalls into the shopping list")
	fmt.Println("  list                   Show the active shopping list")
	fmt.Println("  settle <entry id>...   Mark entries purchased and restock the pantry")
	fmt.Println("  export                 Write the shopping list to a file")
	fmt.Println("  pantry                 Show current inventory")
	fmt.Println("  stock -name -qty       Manually add stock to the pantry")
	fmt.Println("\nSet HOUSEHOLD_ID to scope all commands to your household.")
}
