package bluegreen

import (
	"errors"
	"fmt"

	"github.com/artpar/bgplan/internal/core/domain"
)

// =============================================================================
// Error Types
// =============================================================================

var (
	// ErrInvalidRequest is returned for malformed or contradictory request
	// parameters, or when the current state cannot satisfy the action.
	ErrInvalidRequest = errors.New("invalid deployment request")

	// ErrIllegalStateTransition is returned when the action is never safe
	// from the current presence triple.
	ErrIllegalStateTransition = errors.New("illegal state transition")
)

// RequestError describes why a request was rejected.
type RequestError struct {
	Field   string // e.g., "docker_image_digest"
	Message string
}

func (e *RequestError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return e.Message
}

func (e *RequestError) Unwrap() error {
	return ErrInvalidRequest
}

// NewRequestError creates a new RequestError.
func NewRequestError(field, message string) *RequestError {
	return &RequestError{
		Field:   field,
		Message: message,
	}
}

// TransitionError carries the presence triple and the action that was refused.
type TransitionError struct {
	Presence domain.Presence
	Action   domain.Action
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot %s: system state is invalid: %s", e.Action, e.Presence.Describe())
}

func (e *TransitionError) Unwrap() error {
	return ErrIllegalStateTransition
}
