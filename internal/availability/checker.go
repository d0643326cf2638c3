// Package availability classifies a meal's required ingredients against an
// inventory snapshot: fully available, partially covered, or out of stock.
package availability

import (
	"fmt"
	"math"
	"strings"

	"pantry-planner/internal/inventory"
	"pantry-planner/internal/recipe"
	"pantry-planner/internal/shared"
	"pantry-planner/internal/shopping"
)

// LowStockItem is a requirement that inventory only partially covers.
type LowStockItem struct {
	recipe.IngredientRequirement
	AvailableQuantity float64 `json:"available_quantity"`
	// Shortfall is requirement minus stock, floored at zero.
	Shortfall float64 `json:"shortfall"`
}

// Result partitions the checked requirements. Every well-formed requirement
// lands in exactly one of the three partitions; malformed ones are reported
// in Skipped. The result is derived and never cached across inventory
// mutations.
type Result struct {
	Available  []recipe.IngredientRequirement `json:"available"`
	LowStock   []LowStockItem                 `json:"low_stock"`
	OutOfStock []recipe.IngredientRequirement `json:"out_of_stock"`

	// Skipped reports requirements dropped for data-quality reasons
	// (missing name, non-finite or negative quantity).
	Skipped []shared.ItemReport `json:"skipped,omitempty"`
	// Warnings records unit mismatches. Quantities are still compared as-is;
	// there is no unit conversion.
	Warnings []string `json:"warnings,omitempty"`
}

// Check partitions requirements against a single inventory snapshot.
//
// Matching is case-insensitive exact name equality. The function is pure: it
// never mutates its inputs and has no side effects, so a whole meal is
// checked against one consistent read of inventory. Malformed individual
// requirements are skipped and reported, never fatal to the batch.
func Check(requirements []recipe.IngredientRequirement, snapshot []inventory.Item) Result {
	byName := make(map[string]inventory.Item, len(snapshot))
	for _, it := range snapshot {
		byName[shared.NormalizeName(it.Name)] = it
	}

	var res Result
	for _, req := range requirements {
		key := shared.NormalizeName(req.Name)
		if key == "" {
			res.Skipped = append(res.Skipped, shared.ItemReport{Ref: req.Name, Reason: "missing ingredient name"})
			continue
		}
		if math.IsNaN(req.Quantity) || math.IsInf(req.Quantity, 0) || req.Quantity < 0 {
			res.Skipped = append(res.Skipped, shared.ItemReport{
				Ref:    req.Name,
				Reason: fmt.Sprintf("invalid quantity %g", req.Quantity),
			})
			continue
		}

		// Zero need is always satisfied, whatever the stock level.
		if req.Quantity == 0 {
			res.Available = append(res.Available, req)
			continue
		}

		item, ok := byName[key]
		if !ok || item.Quantity <= 0 {
			res.OutOfStock = append(res.OutOfStock, req)
			continue
		}

		if req.Unit != "" && item.Unit != "" && !strings.EqualFold(req.Unit, item.Unit) {
			res.Warnings = append(res.Warnings,
				fmt.Sprintf("%s: requirement in %q but inventory in %q, comparing quantities without conversion", req.Name, req.Unit, item.Unit))
		}

		if item.Quantity >= req.Quantity {
			res.Available = append(res.Available, req)
			continue
		}

		res.LowStock = append(res.LowStock, LowStockItem{
			IngredientRequirement: req,
			AvailableQuantity:     item.Quantity,
			Shortfall:             math.Max(0, req.Quantity-item.Quantity),
		})
	}
	return res
}

// Shortfalls flattens the result into reconciler input: the missing part of
// every low-stock requirement plus the full need of every out-of-stock one.
func (r Result) Shortfalls() []shopping.Shortfall {
	var out []shopping.Shortfall
	for _, ls := range r.LowStock {
		out = append(out, shopping.Shortfall{
			Name:     ls.Name,
			Quantity: ls.Shortfall,
			Unit:     ls.Unit,
			Category: ls.Category,
		})
	}
	for _, oos := range r.OutOfStock {
		out = append(out, shopping.Shortfall{
			Name:     oos.Name,
			Quantity: oos.Quantity,
			Unit:     oos.Unit,
			Category: oos.Category,
		})
	}
	return out
}
