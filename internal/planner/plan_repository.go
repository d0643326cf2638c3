package planner

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"pantry-planner/internal/recipe"
	"pantry-planner/internal/shared"

	"github.com/google/uuid"
)

// PlanRepository is a database-backed repository for planned meals.
type PlanRepository struct {
	db         *sql.DB
	recipeRepo *recipe.Repository
}

// NewPlanRepository creates a new PlanRepository.
func NewPlanRepository(d *sql.DB, recipeRepo *recipe.Repository) *PlanRepository {
	return &PlanRepository{db: d, recipeRepo: recipeRepo}
}

// Save inserts a new planned meal and returns its ID.
func (r *PlanRepository) Save(ctx context.Context, householdID, recipeID, day string, servings int) (string, error) {
	if servings <= 0 {
		servings = 1
	}
	id := uuid.NewString()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO planned_meals (id, household_id, recipe_id, day, servings, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		id, householdID, recipeID, day, servings, time.Now().UTC())
	if err != nil {
		return "", fmt.Errorf("failed to save planned meal: %w", err)
	}
	return id, nil
}

// Get retrieves a planned meal scoped to the household. Returns nil when no
// meal matches.
func (r *PlanRepository) Get(ctx context.Context, householdID, mealID string) (*PlannedMeal, error) {
	var m PlannedMeal
	err := r.db.QueryRowContext(ctx, `
		SELECT id, household_id, recipe_id, day, servings, created_at
		FROM planned_meals WHERE household_id = ? AND id = ?`,
		householdID, mealID).
		Scan(&m.ID, &m.HouseholdID, &m.RecipeID, &m.Day, &m.Servings, &m.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get planned meal %s: %w", mealID, err)
	}
	return &m, nil
}

// List retrieves all planned meals for the household, newest first.
func (r *PlanRepository) List(ctx context.Context, householdID string) ([]PlannedMeal, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, household_id, recipe_id, day, servings, created_at
		FROM planned_meals WHERE household_id = ? ORDER BY created_at DESC`,
		householdID)
	if err != nil {
		return nil, fmt.Errorf("failed to list planned meals: %w", err)
	}
	defer rows.Close()

	var meals []PlannedMeal
	for rows.Next() {
		var m PlannedMeal
		if err := rows.Scan(&m.ID, &m.HouseholdID, &m.RecipeID, &m.Day, &m.Servings, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan planned meal: %w", err)
		}
		meals = append(meals, m)
	}
	return meals, rows.Err()
}

// Delete removes a planned meal.
func (r *PlanRepository) Delete(ctx context.Context, householdID, mealID string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM planned_meals WHERE household_id = ? AND id = ?`, householdID, mealID)
	if err != nil {
		return fmt.Errorf("failed to delete planned meal %s: %w", mealID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return shared.NotFoundf("planned meal %s", mealID)
	}
	return nil
}

// RequirementsForMeal resolves the meal's recipe and returns its ingredient
// requirements. This is the input side of an availability check.
func (r *PlanRepository) RequirementsForMeal(ctx context.Context, householdID, mealID string) ([]recipe.IngredientRequirement, error) {
	meal, err := r.Get(ctx, householdID, mealID)
	if err != nil {
		return nil, err
	}
	if meal == nil {
		return nil, shared.NotFoundf("planned meal %s", mealID)
	}

	rec, err := r.recipeRepo.Get(ctx, meal.RecipeID)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, shared.NotFoundf("recipe %s for planned meal %s", meal.RecipeID, mealID)
	}
	return rec.Ingredients, nil
}
