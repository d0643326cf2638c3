package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

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
	"pantry-planner/internal/telegram"
)

func main() {
	// 1. Load Configuration
	cfg, err := config.NewFromEnv()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.RequireTelegram(); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx := context.Background()

	// 2. Initialize the SQLite database
	db, err := database.NewDB(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	// 3. Initialize repositories
	recipeRepo := recipe.NewRepository(db.SQL)
	pantryRepo := inventory.NewRepository(db.SQL)
	entryRepo := shopping.NewRepository(db.SQL)
	planRepo := planner.NewPlanRepository(db.SQL, recipeRepo)
	sessionRepo := telegram.NewSessionRepository(db.SQL)
	metricsStore := metrics.NewStore(db.SQL)

	// 4. Initialize the engine
	reconciler := shopping.NewReconciler(entryRepo)
	settler := settlement.NewSettler(db.SQL, entryRepo, pantryRepo)
	eng := engine.New(planRepo, pantryRepo, reconciler, settler, metricsStore)

	// 5. Recipe import needs an LLM; the engine itself does not.
	var recipeClipper *clipper.Clipper
	if cfg.HasLLM() {
		var textGen llm.TextGenerator
		if cfg.GeminiAPIKey != "" {
			geminiClient, err := llm.NewGeminiClient(ctx, cfg.GeminiAPIKey, "gemini-2.0-flash")
			if err != nil {
				log.Fatalf("Failed to create Gemini client: %v", err)
			}
			defer geminiClient.Close()
			textGen = geminiClient
		} else {
			textGen = llm.NewGroqClient(cfg.GroqAPIKey)
		}
		recipeClipper = clipper.NewClipper(recipeRepo, textGen, metricsStore)
	} else {
		log.Println("No LLM key configured; recipe import disabled")
	}

	// 6. Initialize Telegram Bot
	bot, err := telegram.NewBot(cfg, eng, recipeClipper, sessionRepo, planRepo, recipeRepo, pantryRepo, entryRepo, metricsStore)
	if err != nil {
		log.Fatalf("Failed to initialize Telegram Bot: %v", err)
	}

	// 7. Start Server with Graceful Shutdown
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	bot.RegisterHandlers()

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: nil,
	}

	go func() {
		log.Printf("Pantry Bot Server listening on port %s", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctxShutdown); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exiting")
}
