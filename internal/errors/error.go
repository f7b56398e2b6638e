// Package errors provides custom error types for inventory operations.
package errors

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation is matched by every ValidationError.
	ErrValidation = errors.New("validation failed")
	// ErrInvalidPageSize is returned when a page size outside the allowed set is requested.
	ErrInvalidPageSize = errors.New("invalid page size")
	// ErrKeyNotFound is returned by storage backends when nothing is stored under a key.
	ErrKeyNotFound = errors.New("key not found")
)

// ValidationError describes a rejected input field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Is reports ErrValidation as the target so callers can use errors.Is.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}
