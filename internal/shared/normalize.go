package shared

import "strings"

// NormalizeName produces the case-insensitive matching key used for both
// inventory rows and shopping-list entries. Matching is exact after
// normalization; there is no fuzzy matching.
func NormalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
