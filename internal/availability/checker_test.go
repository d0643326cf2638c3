package availability

import (
	"math"
	"testing"

	"pantry-planner/internal/inventory"
	"pantry-planner/internal/recipe"
)

func req(name string, qty float64, unit string) recipe.IngredientRequirement {
	return recipe.IngredientRequirement{Name: name, Quantity: qty, Unit: unit}
}

func item(name string, qty float64, unit string) inventory.Item {
	return inventory.Item{Name: name, Quantity: qty, Unit: unit}
}

func TestCheckPartitions(t *testing.T) {
	snapshot := []inventory.Item{
		item("Tomato", 2, "piece"),
		item("flour", 500, "g"),
		item("milk", 0, "ml"),
	}
	reqs := []recipe.IngredientRequirement{
		req("tomato", 5, "piece"), // partially covered
		req("flour", 200, "g"),    // fully covered
		req("milk", 100, "ml"),    // zero stock
		req("egg", 3, "piece"),    // no inventory row
	}

	result := Check(reqs, snapshot)

	if len(result.Available) != 1 || result.Available[0].Name != "flour" {
		t.Errorf("Expected flour to be available, got %+v", result.Available)
	}
	if len(result.LowStock) != 1 {
		t.Fatalf("Expected 1 low-stock item, got %d", len(result.LowStock))
	}
	ls := result.LowStock[0]
	if ls.Name != "tomato" || ls.AvailableQuantity != 2 || ls.Shortfall != 3 {
		t.Errorf("Expected tomato low stock (have 2, short 3), got %+v", ls)
	}
	if len(result.OutOfStock) != 2 {
		t.Fatalf("Expected 2 out-of-stock items, got %d", len(result.OutOfStock))
	}
	if result.OutOfStock[0].Name != "milk" || result.OutOfStock[1].Name != "egg" {
		t.Errorf("Expected milk and egg out of stock, got %+v", result.OutOfStock)
	}
}

// Every well-formed requirement must land in exactly one partition.
func TestCheckPartitionCompleteness(t *testing.T) {
	snapshot := []inventory.Item{
		item("a", 10, ""), item("b", 1, ""), item("c", 0, ""),
	}
	reqs := []recipe.IngredientRequirement{
		req("a", 5, ""), req("b", 5, ""), req("c", 5, ""), req("d", 5, ""), req("e", 0, ""),
	}

	result := Check(reqs, snapshot)

	total := len(result.Available) + len(result.LowStock) + len(result.OutOfStock)
	if total != len(reqs) {
		t.Errorf("Expected %d requirements across partitions, got %d", len(reqs), total)
	}

	seen := map[string]int{}
	for _, r := range result.Available {
		seen[r.Name]++
	}
	for _, r := range result.LowStock {
		seen[r.Name]++
	}
	for _, r := range result.OutOfStock {
		seen[r.Name]++
	}
	for _, r := range reqs {
		if seen[r.Name] != 1 {
			t.Errorf("Requirement %q appeared in %d partitions, want 1", r.Name, seen[r.Name])
		}
	}
}

func TestCheckZeroQuantityAlwaysAvailable(t *testing.T) {
	// Zero need is satisfied even with nothing in stock.
	result := Check([]recipe.IngredientRequirement{req("saffron", 0, "g")}, nil)
	if len(result.Available) != 1 {
		t.Fatalf("Expected zero-quantity requirement to be available, got %+v", result)
	}
}

func TestCheckMatchingIsCaseInsensitive(t *testing.T) {
	result := Check(
		[]recipe.IngredientRequirement{req("TOMATO", 1, "piece")},
		[]inventory.Item{item("tomato", 5, "piece")},
	)
	if len(result.Available) != 1 {
		t.Errorf("Expected case-insensitive match to be available, got %+v", result)
	}
}

func TestCheckSkipsMalformedRequirements(t *testing.T) {
	reqs := []recipe.IngredientRequirement{
		req("", 5, ""),
		req("  ", 5, ""),
		req("bad-qty", math.NaN(), ""),
		req("negative", -1, ""),
		req("fine", 1, ""),
	}

	result := Check(reqs, nil)

	if len(result.Skipped) != 4 {
		t.Errorf("Expected 4 skipped requirements, got %d: %+v", len(result.Skipped), result.Skipped)
	}
	if len(result.OutOfStock) != 1 || result.OutOfStock[0].Name != "fine" {
		t.Errorf("Expected only the well-formed requirement to be classified, got %+v", result.OutOfStock)
	}
}

func TestCheckEmptyRequirements(t *testing.T) {
	result := Check(nil, []inventory.Item{item("tomato", 5, "piece")})
	if len(result.Available)+len(result.LowStock)+len(result.OutOfStock) != 0 {
		t.Errorf("Expected empty partitions for empty requirements, got %+v", result)
	}
}

func TestCheckUnitMismatchWarns(t *testing.T) {
	result := Check(
		[]recipe.IngredientRequirement{req("rice", 2, "kg")},
		[]inventory.Item{item("rice", 500, "g")},
	)
	if len(result.Warnings) != 1 {
		t.Fatalf("Expected a unit-mismatch warning, got %+v", result.Warnings)
	}
	// Quantities are still compared as-is: 500 >= 2.
	if len(result.Available) != 1 {
		t.Errorf("Expected rice to be classified available despite unit mismatch, got %+v", result)
	}
}

func TestShortfalls(t *testing.T) {
	result := Check(
		[]recipe.IngredientRequirement{
			req("tomato", 5, "piece"),
			req("egg", 3, "piece"),
			req("flour", 100, "g"),
		},
		[]inventory.Item{
			item("tomato", 2, "piece"),
			item("flour", 500, "g"),
		},
	)

	shortfalls := result.Shortfalls()
	if len(shortfalls) != 2 {
		t.Fatalf("Expected 2 shortfalls, got %+v", shortfalls)
	}
	if shortfalls[0].Name != "tomato" || shortfalls[0].Quantity != 3 {
		t.Errorf("Expected tomato shortfall of 3, got %+v", shortfalls[0])
	}
	if shortfalls[1].Name != "egg" || shortfalls[1].Quantity != 3 {
		t.Errorf("Expected egg shortfall of 3, got %+v", shortfalls[1])
	}
}
