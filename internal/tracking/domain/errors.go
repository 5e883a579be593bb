package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation marks input that violates a precondition of the core:
	// population below 1, negative volume, duplicate record for a day.
	ErrValidation = errors.New("validation failed")

	// ErrDuplicateRecord is returned when a household already has a waste
	// record for the date. It is an ErrValidation.
	ErrDuplicateRecord = fmt.Errorf("%w: household already has a waste record for this date", ErrValidation)

	// ErrConcurrencyConflict is returned when a household-scoped transaction
	// lost a race with another writer.
	ErrConcurrencyConflict = errors.New("concurrent modification of tracking periods")

	// ErrEmptyAggregate is returned when global statistics are requested while
	// no COMPLETE tracking period exists.
	ErrEmptyAggregate = errors.New("no complete tracking periods to aggregate")

	ErrNotFound          = errors.New("not found")
	ErrInvalidTransition = errors.New("invalid tracking period status transition")
)

// ValidationError names the offending field. It unwraps to ErrValidation.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// Invalid builds a *ValidationError.
func Invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}
