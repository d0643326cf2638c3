package shopping

import (
	"context"
	"fmt"
	"log"
	"math"

	"pantry-planner/internal/shared"
)

// Reconciler merges shortfalls into the shopping list without creating
// duplicate active entries for the same ingredient.
type Reconciler struct {
	repo *Repository
}

// NewReconciler creates a new Reconciler.
func NewReconciler(repo *Repository) *Reconciler {
	return &Reconciler{repo: repo}
}

// ReconcileResult carries the merged entries plus a per-item report; bad
// items never abort the batch.
type ReconcileResult struct {
	Entries []Entry
	Reports []shared.ItemReport
}

// Reconcile merges a batch of shortfalls into the household's active list.
//
// Semantics are additive, not idempotent-replace: reconciling the same
// shortfall twice doubles the quantity, because the underlying need compounds
// across meals. Callers that want to avoid double-counting one unmodified
// meal must not reconcile it twice.
//
// Per-item rules: quantity <= 0 is dropped silently (nothing to buy); a
// missing name fails that item in the report and the batch continues.
func (rc *Reconciler) Reconcile(ctx context.Context, householdID string, shortfalls []Shortfall) (ReconcileResult, error) {
	var result ReconcileResult
	for _, s := range shortfalls {
		if shared.NormalizeName(s.Name) == "" {
			log.Printf("Warning: dropping shopping-list shortfall with empty name (household %s)", householdID)
			result.Reports = append(result.Reports, shared.ItemReport{
				Ref:    s.Name,
				Reason: "missing ingredient name",
			})
			continue
		}
		if s.Quantity <= 0 || math.IsNaN(s.Quantity) || math.IsInf(s.Quantity, 0) {
			// Nothing to buy.
			continue
		}

		entry, err := rc.repo.UpsertIncrement(ctx, householdID, s)
		if err != nil {
			if shared.IsRetryable(err) {
				result.Reports = append(result.Reports, shared.ItemReport{
					Ref:    s.Name,
					Reason: err.Error(),
				})
				continue
			}
			// A store failure aborts the whole batch; nothing partial was
			// committed for this item.
			return result, fmt.Errorf("reconcile failed on %q: %w", s.Name, err)
		}
		result.Entries = append(result.Entries, *entry)
		result.Reports = append(result.Reports, shared.ItemReport{Ref: s.Name, OK: true})
	}
	return result, nil
}
