package models

import (
	"errors"
	"fmt"
)

// Custom errors
var (
	ErrNotFound           = errors.New("record not found")
	ErrNegativePoints     = errors.New("points must not be negative")
	ErrDuplicatePosition  = errors.New("duplicate standings position")
	ErrPositionOutOfRange = errors.New("standings position out of range")
	ErrInvalidRound       = errors.New("round must be positive")
)

// SchemaError reports upstream data that violates the results contract.
// It is fatal to whichever aggregation encountered it.
type SchemaError struct {
	Field string
	Value string
	Err   error
}

// NewSchemaError creates a new schema error
func NewSchemaError(field, value string, err error) *SchemaError {
	return &SchemaError{Field: field, Value: value, Err: err}
}

func (e *SchemaError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("schema violation in %s (%q): %v", e.Field, e.Value, e.Err)
	}
	return fmt.Sprintf("schema violation in %s (%q)", e.Field, e.Value)
}

func (e *SchemaError) Unwrap() error {
	return e.Err
}

// IsSchemaError reports whether err is or wraps a SchemaError
func IsSchemaError(err error) bool {
	var se *SchemaError
	return errors.As(err, &se)
}
