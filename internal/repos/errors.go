package repos

import (
	"errors"
	"strings"
)

// ErrNotFound is returned by lookups when no row matches.
var ErrNotFound = errors.New("not found")

// ErrDuplicate is returned when an insert hits a uniqueness constraint.
// Callers treat it as an expected outcome for fingerprinted inserts, not a
// failure.
var ErrDuplicate = errors.New("duplicate row")

// IsUniqueViolation matches the constraint-violation message of both the
// postgres and sqlite drivers so the orchestrator does not depend on either.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrDuplicate) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate key value") ||
		strings.Contains(msg, "UNIQUE constraint failed")
}
