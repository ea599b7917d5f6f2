package models

import (
	"errors"
	"fmt"
	"strings"
)

// ErrValidation marks errors produced by ValidationErrors.
var ErrValidation = errors.New("validation failed")

// FieldError is a single validation failure.
type FieldError struct {
	Field   string
	Message string
}

func (e FieldError) Error() string { return e.String() }

func (e FieldError) String() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors collects field errors before returning them as one error.
type ValidationErrors struct {
	Errors []FieldError
}

// AddMessage records a failure for field.
func (v *ValidationErrors) AddMessage(field, message string) {
	v.Errors = append(v.Errors, FieldError{Field: field, Message: message})
}

// Err returns nil when nothing was recorded.
func (v *ValidationErrors) Err() error {
	if v == nil || len(v.Errors) == 0 {
		return nil
	}
	return v
}

func (v *ValidationErrors) Error() string {
	parts := make([]string, 0, len(v.Errors))
	for _, e := range v.Errors {
		parts = append(parts, e.String())
	}
	return strings.Join(parts, "; ")
}

// Unwrap lets errors.Is match ErrValidation.
func (v *ValidationErrors) Unwrap() error {
	return ErrValidation
}
