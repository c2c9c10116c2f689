package models

import (
	"errors"
	"fmt"
)

// ErrNotFound marks a referenced course or run that does not exist.
var ErrNotFound = errors.New("not found")

// ValidationError reports a missing or malformed required field. It is
// raised before any mutation happens.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	if e.Msg != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Msg)
	}
	return fmt.Sprintf("%s is required", e.Field)
}

// Missing returns a ValidationError for a required field that was absent
// or empty.
func Missing(field string) error {
	return &ValidationError{Field: field}
}

// Invalid returns a ValidationError for a field that was present but
// malformed.
func Invalid(field, msg string) error {
	return &ValidationError{Field: field, Msg: msg}
}
