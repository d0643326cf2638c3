// Package engine exposes the three operations the rest of the system
// consumes: availability checks, shortfall reconciliation, and purchase
// settlement. Every operation takes an explicit household ID; there is no
// ambient current-household state.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"pantry-planner/internal/availability"
	"pantry-planner/internal/inventory"
	"pantry-planner/internal/metrics"
	"pantry-planner/internal/planner"
	"pantry-planner/internal/settlement"
	"pantry-planner/internal/shared"
	"pantry-planner/internal/shopping"
)

// Engine wires the availability checker, the reconciler, and the settler to
// their stores.
type Engine struct {
	plans        *planner.PlanRepository
	pantry       *inventory.Repository
	reconciler   *shopping.Reconciler
	settler      *settlement.Settler
	metricsStore *metrics.Store
}

// New creates a new Engine.
func New(
	plans *planner.PlanRepository,
	pantry *inventory.Repository,
	reconciler *shopping.Reconciler,
	settler *settlement.Settler,
	metricsStore *metrics.Store,
) *Engine {
	return &Engine{
		plans:        plans,
		pantry:       pantry,
		reconciler:   reconciler,
		settler:      settler,
		metricsStore: metricsStore,
	}
}

// CheckAvailability partitions a planned meal's requirements against the
// household's current inventory. The result is computed fresh on every call
// and never cached across inventory mutations.
func (e *Engine) CheckAvailability(ctx context.Context, householdID, mealID string) (availability.Result, error) {
	start := time.Now()

	reqs, err := e.plans.RequirementsForMeal(ctx, householdID, mealID)
	if err != nil {
		return availability.Result{}, err
	}

	snapshot, err := e.pantry.Snapshot(ctx, householdID)
	if err != nil {
		return availability.Result{}, asTransient(err)
	}

	result := availability.Check(reqs, snapshot)
	for _, skipped := range result.Skipped {
		log.Printf("Warning: meal %s has malformed requirement %q: %s", mealID, skipped.Ref, skipped.Reason)
	}
	for _, w := range result.Warnings {
		log.Printf("Warning: meal %s: %s", mealID, w)
	}

	e.record("check_availability", householdID, len(reqs), len(result.Skipped), start)
	return result, nil
}

// AddShortfallToShoppingList merges shortfalls into the household's active
// shopping list via the reconciler.
func (e *Engine) AddShortfallToShoppingList(ctx context.Context, householdID string, shortfalls []shopping.Shortfall) (shopping.ReconcileResult, error) {
	start := time.Now()

	result, err := e.reconciler.Reconcile(ctx, householdID, shortfalls)
	if err != nil {
		return result, asTransient(err)
	}

	e.record("reconcile", householdID, len(shortfalls), len(shared.Failures(result.Reports)), start)
	return result, nil
}

// SettlePurchases moves the given entries' to-buy quantities into inventory
// and completes them. Partial success is reported, never hidden.
func (e *Engine) SettlePurchases(ctx context.Context, householdID string, entryIDs []string) (settlement.SettleResult, error) {
	start := time.Now()

	result, err := e.settler.Settle(ctx, householdID, entryIDs)
	if err != nil {
		return result, err
	}

	e.record("settle", householdID, len(entryIDs), len(shared.Failures(result.Reports)), start)
	return result, nil
}

// asTransient marks store failures retryable. A cancelled or expired context
// is the caller's doing, not the store's, and passes through unchanged.
func asTransient(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("%w: %v", shared.ErrTransient, err)
}

func (e *Engine) record(operation, householdID string, items, failed int, start time.Time) {
	if e.metricsStore == nil {
		return
	}
	if err := e.metricsStore.Record(metrics.OperationMetric{
		Operation:   operation,
		HouseholdID: householdID,
		ItemCount:   items,
		FailedCount: failed,
		LatencyMS:   time.Since(start).Milliseconds(),
	}); err != nil {
		log.Printf("Warning: failed to record %s metric: %v", operation, err)
	}
}
