package inventory

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"pantry-planner/internal/shared"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx, so repository calls can run
// standalone or inside a settlement transaction.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Repository handles persistence of inventory items.
type Repository struct {
	q DBTX
}

// NewRepository creates a new inventory repository.
func NewRepository(d *sql.DB) *Repository {
	return &Repository{q: d}
}

// WithTx returns a repository bound to the given transaction.
func (r *Repository) WithTx(tx *sql.Tx) *Repository {
	return &Repository{q: tx}
}

const itemColumns = `id, household_id, name, quantity, unit, category, updated_at`

func scanItem(row interface{ Scan(dest ...any) error }) (*Item, error) {
	var it Item
	err := row.Scan(&it.ID, &it.HouseholdID, &it.Name, &it.Quantity, &it.Unit, &it.Category, &it.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &it, nil
}

// Snapshot returns all inventory items for a household in one consistent
// read. Availability checks run against this single snapshot so results stay
// consistent with each other even if inventory changes mid-batch elsewhere.
func (r *Repository) Snapshot(ctx context.Context, householdID string) ([]Item, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT `+itemColumns+` FROM inventory_items WHERE household_id = ? ORDER BY name_key`,
		householdID)
	if err != nil {
		return nil, fmt.Errorf("failed to read inventory snapshot: %w", err)
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan inventory item: %w", err)
		}
		items = append(items, *it)
	}
	return items, rows.Err()
}

// GetByName looks up an item by case-insensitive name. Returns nil when no
// item matches.
func (r *Repository) GetByName(ctx context.Context, householdID, name string) (*Item, error) {
	row := r.q.QueryRowContext(ctx,
		`SELECT `+itemColumns+` FROM inventory_items WHERE household_id = ? AND name_key = ?`,
		householdID, shared.NormalizeName(name))
	it, err := scanItem(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get inventory item by name: %w", err)
	}
	return it, nil
}

// AddQuantity increments an item's quantity, creating the row when the
// household has no item with that name yet. The increment happens in a single
// upsert statement so concurrent settlements never lose updates.
func (r *Repository) AddQuantity(ctx context.Context, householdID, name, unit, category string, delta float64) (*Item, error) {
	if delta < 0 {
		return nil, fmt.Errorf("inventory increment must not be negative, got %g", delta)
	}
	row := r.q.QueryRowContext(ctx, `
		INSERT INTO inventory_items (household_id, name, name_key, quantity, unit, category, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (household_id, name_key) DO UPDATE SET
			quantity = quantity + excluded.quantity,
			updated_at = excluded.updated_at
		RETURNING `+itemColumns,
		householdID, strings.TrimSpace(name), shared.NormalizeName(name), delta, unit, category, time.Now().UTC())
	it, err := scanItem(row)
	if err != nil {
		return nil, fmt.Errorf("failed to add inventory quantity for %q: %w", name, err)
	}
	return it, nil
}

// SetQuantity overwrites an item's quantity (manual pantry edit).
func (r *Repository) SetQuantity(ctx context.Context, householdID string, id int64, quantity float64) error {
	if quantity < 0 {
		return fmt.Errorf("inventory quantity must not be negative, got %g", quantity)
	}
	res, err := r.q.ExecContext(ctx,
		`UPDATE inventory_items SET quantity = ?, updated_at = ? WHERE household_id = ? AND id = ?`,
		quantity, time.Now().UTC(), householdID, id)
	if err != nil {
		return fmt.Errorf("failed to set inventory quantity: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return shared.NotFoundf("inventory item %d", id)
	}
	return nil
}

// Delete removes an item entirely. Deleting an unknown id is reported as not
// found so manual edits can distinguish a stale UI from success.
func (r *Repository) Delete(ctx context.Context, householdID string, id int64) error {
	res, err := r.q.ExecContext(ctx,
		`DELETE FROM inventory_items WHERE household_id = ? AND id = ?`,
		householdID, id)
	if err != nil {
		return fmt.Errorf("failed to delete inventory item: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return shared.NotFoundf("inventory item %d", id)
	}
	return nil
}
