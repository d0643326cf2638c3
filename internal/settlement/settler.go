// Package settlement converts purchased shopping-list entries into inventory
// increments.
package settlement

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"sync"

	"pantry-planner/internal/inventory"
	"pantry-planner/internal/shared"
	"pantry-planner/internal/shopping"
)

// Settler moves purchased quantities from the shopping list into inventory.
type Settler struct {
	db      *sql.DB
	entries *shopping.Repository
	pantry  *inventory.Repository

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewSettler creates a new Settler.
func NewSettler(db *sql.DB, entries *shopping.Repository, pantry *inventory.Repository) *Settler {
	return &Settler{
		db:      db,
		entries: entries,
		pantry:  pantry,
		locks:   make(map[string]*sync.Mutex),
	}
}

// SettleResult reports the outcome of a settlement batch. MovedCount counts
// only fully-settled entries; per-entry reports let the caller retry just
// the failed subset.
type SettleResult struct {
	MovedCount int
	Reports    []shared.ItemReport
}

// Settle processes each entry id independently: load the entry, add its
// to-buy quantity to inventory, and complete it, all in one transaction per
// entry. A failure on one entry never corrupts its siblings.
//
// Settling an already-completed entry is a no-op, not an error: UI retries
// are expected, and the second call reports the entry as already completed
// without touching inventory again.
func (s *Settler) Settle(ctx context.Context, householdID string, entryIDs []string) (SettleResult, error) {
	lock := s.householdLock(householdID)
	lock.Lock()
	defer lock.Unlock()

	var result SettleResult
	for _, id := range entryIDs {
		if err := ctx.Err(); err != nil {
			return result, fmt.Errorf("settlement aborted: %w", err)
		}

		moved, report := s.settleOne(ctx, householdID, id)
		if moved {
			result.MovedCount++
		}
		result.Reports = append(result.Reports, report)
	}
	return result, nil
}

func (s *Settler) settleOne(ctx context.Context, householdID, id string) (bool, shared.ItemReport) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, shared.ItemReport{Ref: id, Reason: fmt.Sprintf("begin transaction: %v", err)}
	}
	defer tx.Rollback()

	entries := s.entries.WithTx(tx)

	// The entry is read inside the transaction so the quantity moved is the
	// quantity committed; a concurrent edit lands either fully before or
	// fully after this settle.
	entry, err := entries.GetByID(ctx, householdID, id)
	if err != nil {
		return false, shared.ItemReport{Ref: id, Reason: err.Error()}
	}
	if entry == nil {
		return false, shared.ItemReport{Ref: id, Reason: "entry not found"}
	}
	if entry.IsCompleted {
		return false, shared.ItemReport{Ref: id, OK: true, Reason: "already completed"}
	}

	if _, err := s.pantry.WithTx(tx).AddQuantity(ctx, householdID, entry.Name, entry.Unit, entry.Category, entry.ToBuyQuantity); err != nil {
		return false, shared.ItemReport{Ref: id, Reason: err.Error()}
	}

	completed, err := entries.MarkCompleted(ctx, householdID, id)
	if err != nil {
		return false, shared.ItemReport{Ref: id, Reason: err.Error()}
	}
	if !completed {
		// A concurrent settle completed it first; the rollback discards our
		// inventory increment so the quantity moves exactly once.
		return false, shared.ItemReport{Ref: id, OK: true, Reason: "already completed"}
	}

	if err := tx.Commit(); err != nil {
		return false, shared.ItemReport{Ref: id, Reason: fmt.Sprintf("commit: %v", err)}
	}

	log.Printf("Settled shopping entry %s (%s, %g %s) into inventory for household %s",
		id, entry.Name, entry.ToBuyQuantity, entry.Unit, householdID)
	return true, shared.ItemReport{Ref: id, OK: true}
}

// householdLock serializes settle batches per household. Entry transactions
// are already atomic, the lock only keeps two batches from interleaving
// their load/complete windows.
func (s *Settler) householdLock(householdID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[householdID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[householdID] = l
	}
	return l
}
