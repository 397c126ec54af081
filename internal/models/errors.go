package models

import "fmt"

// ValidationError marks a malformed or missing required field on a specific
// source record. The orchestrator retries these a small fixed number of
// times before skipping the customer.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Message)
}

func NewValidationError(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}
