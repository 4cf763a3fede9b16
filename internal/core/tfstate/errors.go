// Package tfstate contains pure functions for reading blue/green deployment
// state out of a Terraform state document.
// This is part of the Functional Core - all functions are pure with no I/O.
package tfstate

import (
	"errors"
	"fmt"
)

// =============================================================================
// Error Types
// =============================================================================

var (
	// ErrInvalidState is returned when the document is empty or not JSON.
	ErrInvalidState = errors.New("invalid terraform state")

	// ErrMalformedRecord is reported for a recognised resource whose
	// attributes cannot be read. The record is skipped.
	ErrMalformedRecord = errors.New("malformed snapshot record")

	// ErrDanglingBinding is reported when a listener points at a slot with
	// nothing deployed. The binding is dropped.
	ErrDanglingBinding = errors.New("stage bound to an empty slot")
)

// RecordError describes a resource record that was skipped.
type RecordError struct {
	Type    string // e.g., "aws_ecs_task_definition"
	Name    string // e.g., "helpdesk_a"
	Message string
	Err     error
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("%s.%s: %s", e.Type, e.Name, e.Message)
}

func (e *RecordError) Unwrap() error {
	return e.Err
}

// NewRecordError creates a new RecordError.
func NewRecordError(resourceType, name, message string, err error) *RecordError {
	return &RecordError{
		Type:    resourceType,
		Name:    name,
		Message: message,
		Err:     err,
	}
}
