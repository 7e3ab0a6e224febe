// Package apperr holds the request-level error taxonomy shared by services
// and handlers.  Upstream and normalization failures have their own types
// in the amadeus and flight packages; handlers tell them apart with
// errors.As.
package apperr

import (
	"errors"
	"fmt"
)

// ValidationError reports a malformed or missing request field.  Its message
// is safe to return to the caller verbatim.
type ValidationError struct {
	Message string
	Err     error
}

func (e *ValidationError) Error() string { return e.Message }

func (e *ValidationError) Unwrap() error { return e.Err }

// Invalid builds a ValidationError from a format string.
func Invalid(format string, args ...any) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// PersistenceError wraps a storage failure.  The wrapped error is logged but
// never shown to clients.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	if e.Err == nil {
		return "persistence: " + e.Op
	}
	return fmt.Sprintf("persistence: %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// Persistence wraps err as a PersistenceError for op.
func Persistence(op string, err error) error {
	return &PersistenceError{Op: op, Err: err}
}

// IsValidation reports whether err carries a ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}
