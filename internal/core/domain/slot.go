// Package domain contains the deployment state types shared by the planner,
// the state reader and the plan history.
package domain

import (
	"errors"
	"fmt"
)

// =============================================================================
// Enum Errors
// =============================================================================

var (
	ErrUnknownSlot   = errors.New("unknown slot")
	ErrUnknownStage  = errors.New("unknown stage")
	ErrUnknownAction = errors.New("unknown action")
)

// =============================================================================
// Slot
// =============================================================================

// Slot identifies one of the three interchangeable infrastructure lanes.
// Each slot owns its own task definition, target group and service.
// The zero value means "no slot".
type Slot string

const (
	SlotNone Slot = ""
	SlotA    Slot = "a"
	SlotB    Slot = "b"
	SlotC    Slot = "c"
)

// AllSlots lists every slot in alphabetical order.
var AllSlots = []Slot{SlotA, SlotB, SlotC}

// IsValid reports whether s is one of the three known slots.
func (s Slot) IsValid() bool {
	return s == SlotA || s == SlotB || s == SlotC
}

// IsBound reports whether s references a slot at all.
func (s Slot) IsBound() bool {
	return s != SlotNone
}

// ParseSlot converts a slot identifier to a Slot.
func ParseSlot(raw string) (Slot, error) {
	s := Slot(raw)
	if !s.IsValid() {
		return SlotNone, fmt.Errorf("%w: %q", ErrUnknownSlot, raw)
	}
	return s, nil
}

// =============================================================================
// Stage
// =============================================================================

// Stage is a role held by at most one slot at a time.
type Stage string

const (
	StageActive   Stage = "active"
	StageInactive Stage = "inactive"
	StageStaging  Stage = "staging"
)

// AllStages lists every stage.
var AllStages = []Stage{StageActive, StageInactive, StageStaging}

// IsValid reports whether s is one of the known stages.
func (s Stage) IsValid() bool {
	return s == StageActive || s == StageInactive || s == StageStaging
}

// ParseStage converts a stage name to a Stage.
func ParseStage(raw string) (Stage, error) {
	s := Stage(raw)
	if !s.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownStage, raw)
	}
	return s, nil
}

// =============================================================================
// Action
// =============================================================================

// Action is a requested deployment operation.
type Action string

const (
	ActionDoNothing          Action = "do_nothing"
	ActionDeployToStaging    Action = "deploy_to_staging"
	ActionDestroyStaging     Action = "destroy_staging"
	ActionDeployToActive     Action = "deploy_to_active"
	ActionRollBackToPrevious Action = "roll_back_to_previous"
)

// AllActions lists every action.
var AllActions = []Action{
	ActionDoNothing,
	ActionDeployToStaging,
	ActionDestroyStaging,
	ActionDeployToActive,
	ActionRollBackToPrevious,
}

// IsValid reports whether a is one of the known actions.
func (a Action) IsValid() bool {
	for _, known := range AllActions {
		if a == known {
			return true
		}
	}
	return false
}

// ParseAction converts an action name to an Action.
func ParseAction(raw string) (Action, error) {
	a := Action(raw)
	if !a.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownAction, raw)
	}
	return a, nil
}

// ChangesSlots reports whether the action can touch slot-level resources.
// Only staging deploys and staging teardown do; the rest only rebind stages.
func (a Action) ChangesSlots() bool {
	return a == ActionDeployToStaging || a == ActionDestroyStaging
}
