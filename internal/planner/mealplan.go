// Package planner holds the household's planned meals: the link between a
// recipe and the day it will be cooked. A planned meal is what an
// availability check runs against.
package planner

import "time"

// PlannedMeal represents one recipe scheduled by a household. The requirement
// list comes from the recipe and is immutable once the meal is planned.
type PlannedMeal struct {
	ID          string    `json:"id"`
	HouseholdID string    `json:"household_id"`
	RecipeID    string    `json:"recipe_id"`
	Day         string    `json:"day"`
	Servings    int       `json:"servings"`
	CreatedAt   time.Time `json:"created_at"`
}
