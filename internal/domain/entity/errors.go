package entity

import (
	"errors"
	"fmt"
)

// Sentinel errors for domain layer operations.
var (
	// ErrGroupIDNotFound indicates that no group id could be extracted from the input text.
	ErrGroupIDNotFound = errors.New("group id not found")

	// ErrInvalidGroupID indicates that a value is not a canonical group id (digits only).
	ErrInvalidGroupID = errors.New("invalid group id")

	// ErrInvalidInput indicates that the provided input is invalid
	ErrInvalidInput = errors.New("invalid input")
)

// ValidationError represents a validation error with detailed field information.
// It implements the error interface and provides context about which field failed validation.
type ValidationError struct {
	Field   string
	Message string
}

// Error returns a formatted error message for the validation error.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error on field '%s': %s", e.Field, e.Message)
}
