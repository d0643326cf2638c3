package shopping

import "time"

// Entry is one shopping-list row. While IsCompleted is false the
// (household, lowercase name) pair is unique; completing an entry is terminal
// and moves it out of the active set, so a later shortfall for the same name
// creates a fresh entry instead of resurrecting history.
type Entry struct {
	ID          string `json:"id"`
	HouseholdID string `json:"household_id"`
	Name        string `json:"name"`
	// RequiredQuantity is what the recipes need in aggregate; ToBuyQuantity is
	// what the user still intends to buy. They diverge only when the user
	// manually edits ToBuyQuantity.
	RequiredQuantity float64    `json:"required_quantity"`
	ToBuyQuantity    float64    `json:"to_buy_quantity"`
	Unit             string     `json:"unit"`
	Category         string     `json:"category"`
	IsCompleted      bool       `json:"is_completed"`
	Notes            string     `json:"notes"`
	AddedAt          time.Time  `json:"added_at"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"`
}

// Shortfall is the quantity of an ingredient needed beyond what inventory
// currently holds, as produced by an availability check or a manual add.
type Shortfall struct {
	Name     string  `json:"name"`
	Quantity float64 `json:"quantity"`
	Unit     string  `json:"unit"`
	Category string  `json:"category"`
}
