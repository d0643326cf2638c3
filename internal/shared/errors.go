package shared

import (
	"errors"
	"fmt"
)

// Sentinel errors for the engine. Callers classify failures with errors.Is.
var (
	// ErrNotFound means a referenced meal, entry, or inventory row has no record.
	ErrNotFound = errors.New("not found")

	// ErrConflict means a concurrent write hit the uniqueness constraint on
	// (household, name). The operation is re-entrant, so retrying is safe.
	ErrConflict = errors.New("conflict")

	// ErrTransient means the store was unreachable or timed out. No partial
	// state was committed; the whole operation can be retried.
	ErrTransient = errors.New("transient store error")
)

// NotFoundf wraps ErrNotFound with context.
func NotFoundf(format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, ErrNotFound)...)
}

// IsRetryable reports whether the caller should retry the operation.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConflict) || errors.Is(err, ErrTransient)
}
