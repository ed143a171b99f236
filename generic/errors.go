/*
errors.go - Centralized error types for the generic engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Domain packages should wrap these errors with additional context.

ERROR CATEGORIES:
  1. Input errors - Records that violate the engine's input contract
  2. Lookup errors - Missing reps, plans, snapshots
  3. Cache errors - Memoization misses

USAGE:
  Domain packages wrap generic errors:

    if errors.Is(err, generic.ErrInvalidInput) {
        // 400 for the HTTP layer
    }

SEE ALSO:
  - commission/validate.go: Builds FieldErrors for deals, targets, KPIs
  - api/handlers.go: Maps errors to HTTP status codes
*/
package generic

import (
	"errors"
	"fmt"
	"strings"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidInput is returned when a record violates the input contract
	// (negative deposit, unknown enum value, missing required number).
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidPeriod is returned when a period key is malformed.
	ErrInvalidPeriod = errors.New("invalid period")

	// ErrNotFound is returned when a referenced record doesn't exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicate is returned when a uniqueness constraint is violated.
	ErrDuplicate = errors.New("duplicate record")

	// ErrUnknownRuleSet is returned when a plan names a rule set that isn't registered.
	ErrUnknownRuleSet = errors.New("unknown rule set")

	// ErrCacheMiss is returned by caches when a key is absent or expired.
	ErrCacheMiss = errors.New("cache miss")

	// ErrPeriodNotClosed is returned when snapshotting a period that is still open.
	ErrPeriodNotClosed = errors.New("period not closed")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// FieldError describes one invalid field on one record.
type FieldError struct {
	Record string // e.g. "deal d-17", "monthly target 2025-09"
	Field  string
	Reason string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s %s", e.Record, e.Field, e.Reason)
}

func (e *FieldError) Unwrap() error { return ErrInvalidInput }

// ValidationErrors collects every FieldError found in one pass so the caller
// can report all flagged records at once.
type ValidationErrors []*FieldError

func (ve ValidationErrors) Error() string {
	msgs := make([]string, len(ve))
	for i, e := range ve {
		msgs[i] = e.Error()
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

func (ve ValidationErrors) Unwrap() error { return ErrInvalidInput }

// OrNil returns nil for an empty collection so callers can `return errs.OrNil()`.
func (ve ValidationErrors) OrNil() error {
	if len(ve) == 0 {
		return nil
	}
	return ve
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrInvalidPeriod) ||
		errors.Is(err, ErrUnknownRuleSet) ||
		errors.Is(err, ErrPeriodNotClosed)
}

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
