package model

import "errors"

// Sentinel kinds for domain errors.
var (
	ErrValidation        = errors.New("invalid domain value")
	ErrDuplicatePlayer   = errors.New("player already exists")
	ErrInconsistentState = errors.New("player cannot be found although it was successfully written")
)

// ValidationError reports a violated construction invariant.
type ValidationError struct {
	Field  string
	Reason string
}

func newValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

func (e *ValidationError) Error() string {
	return e.Field + " " + e.Reason
}

// Is makes errors.Is(err, ErrValidation) match any *ValidationError.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}
