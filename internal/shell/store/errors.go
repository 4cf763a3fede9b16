// Package store provides persistence for the plan history.
package store

import (
	"errors"
	"fmt"
)

// =============================================================================
// Error Types
// =============================================================================

var (
	// ErrNotFound is returned when no plan has the requested ID.
	ErrNotFound = errors.New("plan not found")

	ErrDuplicateID = errors.New("plan ID already recorded")

	ErrConnectionFailed = errors.New("plan history unavailable")
	ErrMigrationFailed  = errors.New("plan history migration failed")

	// ErrInvalidData is returned when a stored state or request column does
	// not decode.
	ErrInvalidData = errors.New("corrupt plan row")

	ErrTxFailed = errors.New("transaction failed")
)

// StoreError records which store operation failed and on which plan.
type StoreError struct {
	Op      string
	Entity  string
	ID      string
	Message string
	Err     error
}

func (e *StoreError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("%s %s %s: %s", e.Op, e.Entity, e.ID, e.Message)
	}
	if e.Entity != "" {
		return fmt.Sprintf("%s %s: %s", e.Op, e.Entity, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

func NewStoreError(op, entity, id, message string, err error) *StoreError {
	return &StoreError{
		Op:      op,
		Entity:  entity,
		ID:      id,
		Message: message,
		Err:     err,
	}
}
