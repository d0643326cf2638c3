package recipe

// IngredientRequirement is one ingredient a recipe calls for. Requirements
// are normalized once, at ingestion, and are immutable once attached to a
// planned meal.
type IngredientRequirement struct {
	Name     string  `json:"name"`
	Quantity float64 `json:"quantity"`
	Unit     string  `json:"unit"`
	Category string  `json:"category"`
	IsMain   bool    `json:"is_main"`
}

// Recipe represents a recipe after normalization by the extractor.
type Recipe struct {
	ID           string                  `json:"id"`
	Title        string                  `json:"title"`
	Ingredients  []IngredientRequirement `json:"ingredients"`
	Instructions string                  `json:"instructions"`
	Tags         []string                `json:"tags"`
	PrepTime     string                  `json:"prep_time"`
	Servings     string                  `json:"servings"`
	SourceURL    string                  `json:"source_url"`
	UpdatedAt    string                  `json:"updated_at"`
}
