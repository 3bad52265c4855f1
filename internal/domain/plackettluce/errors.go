package plackettluce

import (
	"errors"
	"fmt"
)

// ErrValidation is matched by every error returned for a malformed call.
var ErrValidation = errors.New("plackettluce: invalid input")

// ValidationError describes which argument of a call was rejected.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("plackettluce: invalid %s: %s", e.Field, e.Reason)
}

// Unwrap lets errors.Is match ErrValidation.
func (e *ValidationError) Unwrap() error { return ErrValidation }

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}
