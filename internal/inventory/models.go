package inventory

import "time"

// Item represents one ingredient the household currently holds. The
// (household, lowercase name) pair is unique; quantity is never negative.
// Deleting an item removes the row entirely, there are no tombstones.
type Item struct {
	ID          int64     `json:"id"`
	HouseholdID string    `json:"household_id"`
	Name        string    `json:"name"`
	Quantity    float64   `json:"quantity"`
	Unit        string    `json:"unit"`
	Category    string    `json:"category"`
	UpdatedAt   time.Time `json:"updated_at"`
}
