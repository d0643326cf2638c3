package shared

// ItemReport describes the outcome of a single item inside a batch operation.
// Per-item failures are collected and returned alongside successful results;
// a bad item never aborts its siblings.
type ItemReport struct {
	// Ref identifies the item: an ingredient name for reconcile batches,
	// an entry ID for settlement batches.
	Ref    string
	OK     bool
	Reason string
}

// Failures filters a report list down to the failed items, so callers can
// retry only the subset that did not go through.
func Failures(reports []ItemReport) []ItemReport {
	var failed []ItemReport
	for _, r := range reports {
		if !r.OK {
			failed = append(failed, r)
		}
	}
	return failed
}
