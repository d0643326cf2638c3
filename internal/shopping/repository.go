package shopping

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"pantry-planner/internal/shared"

	"github.com/google/uuid"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Repository handles persistence of shopping-list entries.
type Repository struct {
	q DBTX
}

// NewRepository creates a new shopping-list repository.
func NewRepository(d *sql.DB) *Repository {
	return &Repository{q: d}
}

// WithTx returns a repository bound to the given transaction.
func (r *Repository) WithTx(tx *sql.Tx) *Repository {
	return &Repository{q: tx}
}

const entryColumns = `id, household_id, name, required_quantity, to_buy_quantity, unit, category, is_completed, notes, added_at, completed_at`

func scanEntry(row interface{ Scan(dest ...any) error }) (*Entry, error) {
	var e Entry
	var completedAt sql.NullTime
	err := row.Scan(&e.ID, &e.HouseholdID, &e.Name, &e.RequiredQuantity, &e.ToBuyQuantity,
		&e.Unit, &e.Category, &e.IsCompleted, &e.Notes, &e.AddedAt, &completedAt)
	if err != nil {
		return nil, err
	}
	if completedAt.Valid {
		t := completedAt.Time
		e.CompletedAt = &t
	}
	return &e, nil
}

// UpsertIncrement merges one shortfall into the active list: it creates a new
// entry, or increments required_quantity and to_buy_quantity of the existing
// active entry with the same name. The whole merge is a single statement
// against the partial unique index on (household_id, name_key, is_completed=0),
// so concurrent reconciles for the same name converge to the summed quantity
// instead of racing into duplicates.
func (r *Repository) UpsertIncrement(ctx context.Context, householdID string, s Shortfall) (*Entry, error) {
	row := r.q.QueryRowContext(ctx, `
		INSERT INTO shopping_list_entries
			(id, household_id, name, name_key, required_quantity, to_buy_quantity, unit, category, is_completed, notes, added_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, 0, '', ?)
		ON CONFLICT (household_id, name_key) WHERE is_completed = 0 DO UPDATE SET
			required_quantity = required_quantity + excluded.required_quantity,
			to_buy_quantity = to_buy_quantity + excluded.to_buy_quantity
		RETURNING `+entryColumns,
		uuid.NewString(), householdID, strings.TrimSpace(s.Name), shared.NormalizeName(s.Name),
		s.Quantity, s.Quantity, s.Unit, s.Category, time.Now().UTC())
	e, err := scanEntry(row)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("shopping entry for %q: %w", s.Name, shared.ErrConflict)
		}
		return nil, fmt.Errorf("failed to upsert shopping entry for %q: %w", s.Name, err)
	}
	return e, nil
}

// ListActive returns the entries not yet marked purchased, oldest first.
func (r *Repository) ListActive(ctx context.Context, householdID string) ([]Entry, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT `+entryColumns+` FROM shopping_list_entries
		 WHERE household_id = ? AND is_completed = 0 ORDER BY added_at, name_key`,
		householdID)
	if err != nil {
		return nil, fmt.Errorf("failed to list active shopping entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan shopping entry: %w", err)
		}
		entries = append(entries, *e)
	}
	return entries, rows.Err()
}

// GetByID fetches one entry scoped to the household. Returns nil when no
// entry matches.
func (r *Repository) GetByID(ctx context.Context, householdID, id string) (*Entry, error) {
	row := r.q.QueryRowContext(ctx,
		`SELECT `+entryColumns+` FROM shopping_list_entries WHERE household_id = ? AND id = ?`,
		householdID, id)
	e, err := scanEntry(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get shopping entry %s: %w", id, err)
	}
	return e, nil
}

// MarkCompleted transitions an entry ACTIVE -> COMPLETED. The transition is
// terminal; the WHERE clause makes a second call (or a concurrent settle that
// lost the race) report false instead of rewriting history.
func (r *Repository) MarkCompleted(ctx context.Context, householdID, id string) (bool, error) {
	res, err := r.q.ExecContext(ctx, `
		UPDATE shopping_list_entries SET is_completed = 1, completed_at = ?
		WHERE household_id = ? AND id = ? AND is_completed = 0`,
		time.Now().UTC(), householdID, id)
	if err != nil {
		return false, fmt.Errorf("failed to mark shopping entry %s completed: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected for entry %s: %w", id, err)
	}
	return n == 1, nil
}

// SetToBuyQuantity applies a manual edit of how much the user still intends
// to buy. RequiredQuantity is left alone so the two fields can diverge.
func (r *Repository) SetToBuyQuantity(ctx context.Context, householdID, id string, quantity float64) error {
	if quantity < 0 {
		return fmt.Errorf("to-buy quantity must not be negative, got %g", quantity)
	}
	res, err := r.q.ExecContext(ctx, `
		UPDATE shopping_list_entries SET to_buy_quantity = ?
		WHERE household_id = ? AND id = ? AND is_completed = 0`,
		quantity, householdID, id)
	if err != nil {
		return fmt.Errorf("failed to set to-buy quantity for entry %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return shared.NotFoundf("active shopping entry %s", id)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
