/*
errors.go - Centralized error types for the books package

ERROR CATEGORIES:
  1. Input errors - rejected before anything is written
  2. Lookup errors - referenced record is missing
  3. Import errors - backup document could not be applied
  4. Store errors - substrate failures

Malformed persisted slots are NOT errors: they read as empty (fail-open).
Deleting a missing id is NOT an error either: it reports deleted=false.
*/
package books

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrRecordNotFound is returned by RecordStore.Remove* when no record has the id.
	ErrRecordNotFound = errors.New("record not found")

	// ErrInvalidInput is the parent of every ValidationError.
	ErrInvalidInput = errors.New("invalid input")

	// ErrMalformedImport is returned when a backup document cannot be parsed.
	// Nothing has been written when it is returned.
	ErrMalformedImport = errors.New("malformed import document")

	// ErrStoreUnavailable wraps substrate read/write failures.
	ErrStoreUnavailable = errors.New("store unavailable")
)

// =============================================================================
// STRUCTURED ERRORS
// =============================================================================

// ValidationError names the offending field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidInput
}

func invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid caller input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrMalformedImport)
}

// IsNotFound returns true if the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrRecordNotFound)
}
