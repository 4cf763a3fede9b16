package domain

import "fmt"

// =============================================================================
// Slot Parameters
// =============================================================================

// SlotParameters describes what is deployed in one slot.
// Empty strings stand for "not set".
type SlotParameters struct {
	DockerImageDigest string `json:"docker_image_digest,omitempty" yaml:"docker_image_digest,omitempty"`
	TaskDefinitionArn string `json:"task_definition_arn,omitempty" yaml:"task_definition_arn,omitempty"`

	// TaskDefinitionRef is what the service and listener resources point at:
	// a literal ARN, or a symbolic reference to a task definition that is
	// created in the same apply.
	TaskDefinitionRef string `json:"task_definition_ref,omitempty" yaml:"task_definition_ref,omitempty"`
}

// Deployed reports whether the slot carries a deployed task definition.
func (p SlotParameters) Deployed() bool {
	return p.DockerImageDigest != "" || p.TaskDefinitionArn != ""
}

// IsEmpty reports whether no field is set.
func (p SlotParameters) IsEmpty() bool {
	return p == SlotParameters{}
}

// =============================================================================
// Slot Table
// =============================================================================

// SlotTable holds the parameters of every slot.
type SlotTable struct {
	A SlotParameters `json:"a" yaml:"a"`
	B SlotParameters `json:"b" yaml:"b"`
	C SlotParameters `json:"c" yaml:"c"`
}

// Get returns the parameters of slot s. Unknown slots yield empty parameters.
func (t SlotTable) Get(s Slot) SlotParameters {
	switch s {
	case SlotA:
		return t.A
	case SlotB:
		return t.B
	case SlotC:
		return t.C
	default:
		return SlotParameters{}
	}
}

// With returns a copy of t with slot s replaced by p.
func (t SlotTable) With(s Slot, p SlotParameters) SlotTable {
	switch s {
	case SlotA:
		t.A = p
	case SlotB:
		t.B = p
	case SlotC:
		t.C = p
	}
	return t
}

// =============================================================================
// Stage Bindings
// =============================================================================

// StageBindings maps each stage to the slot it currently points at.
// SlotNone means the stage is unbound.
type StageBindings struct {
	Active   Slot `json:"active,omitempty" yaml:"active,omitempty"`
	Inactive Slot `json:"inactive,omitempty" yaml:"inactive,omitempty"`
	Staging  Slot `json:"staging,omitempty" yaml:"staging,omitempty"`
}

// Get returns the slot bound to stage.
func (b StageBindings) Get(stage Stage) Slot {
	switch stage {
	case StageActive:
		return b.Active
	case StageInactive:
		return b.Inactive
	case StageStaging:
		return b.Staging
	default:
		return SlotNone
	}
}

// With returns a copy of b with stage bound to s.
func (b StageBindings) With(stage Stage, s Slot) StageBindings {
	switch stage {
	case StageActive:
		b.Active = s
	case StageInactive:
		b.Inactive = s
	case StageStaging:
		b.Staging = s
	}
	return b
}

// Presence reports which stages are bound.
func (b StageBindings) Presence() Presence {
	return Presence{
		Active:   b.Active.IsBound(),
		Inactive: b.Inactive.IsBound(),
		Staging:  b.Staging.IsBound(),
	}
}

// =============================================================================
// Presence
// =============================================================================

// Presence is the (active, inactive, staging) triple of bound flags.
type Presence struct {
	Active   bool `json:"active" yaml:"active"`
	Inactive bool `json:"inactive" yaml:"inactive"`
	Staging  bool `json:"staging" yaml:"staging"`
}

// String renders the triple as "1-0-1".
func (p Presence) String() string {
	return fmt.Sprintf("%d-%d-%d", btoi(p.Active), btoi(p.Inactive), btoi(p.Staging))
}

// Describe renders the triple for humans.
func (p Presence) Describe() string {
	return fmt.Sprintf("active = %s, inactive = %s, staging = %s",
		existsWord(p.Active), existsWord(p.Inactive), existsWord(p.Staging))
}

func btoi(b bool) int {
	if b {
		return 1
	}
	return 0
}

func existsWord(b bool) string {
	if b {
		return "exists"
	}
	return "not exists"
}

// =============================================================================
// Deployment State
// =============================================================================

// DeploymentState is what is currently deployed for one service.
type DeploymentState struct {
	Slots  SlotTable     `json:"slots" yaml:"slots"`
	Stages StageBindings `json:"stages" yaml:"stages"`
}

// EmptyState returns the state of a service that was never deployed.
func EmptyState() DeploymentState {
	return DeploymentState{}
}

// Presence reports which stages are bound.
func (s DeploymentState) Presence() Presence {
	return s.Stages.Presence()
}

// Check verifies that every bound stage points at a deployed slot.
func (s DeploymentState) Check() error {
	for _, stage := range AllStages {
		slot := s.Stages.Get(stage)
		if !slot.IsBound() {
			continue
		}
		if !slot.IsValid() {
			return fmt.Errorf("stage %s: %w: %q", stage, ErrUnknownSlot, slot)
		}
		if !s.Slots.Get(slot).Deployed() {
			return fmt.Errorf("stage %s is bound to slot %s which has nothing deployed", stage, slot)
		}
	}
	return nil
}

// =============================================================================
// Deployment Request
// =============================================================================

// DeploymentRequest is the action a caller asks for, with the new version
// parameters when deploying to staging.
type DeploymentRequest struct {
	Action            Action `json:"action" yaml:"action"`
	DockerImageDigest string `json:"docker_image_digest,omitempty" yaml:"docker_image_digest,omitempty"`
	TaskDefinitionArn string `json:"task_definition_arn,omitempty" yaml:"task_definition_arn,omitempty"`
}

// =============================================================================
// Future Deployment State
// =============================================================================

// SlotFlags holds one boolean per slot.
type SlotFlags struct {
	A bool `json:"a" yaml:"a"`
	B bool `json:"b" yaml:"b"`
	C bool `json:"c" yaml:"c"`
}

// Get returns the flag of slot s.
func (f SlotFlags) Get(s Slot) bool {
	switch s {
	case SlotA:
		return f.A
	case SlotB:
		return f.B
	case SlotC:
		return f.C
	default:
		return false
	}
}

// With returns a copy of f with slot s set to v.
func (f SlotFlags) With(s Slot, v bool) SlotFlags {
	switch s {
	case SlotA:
		f.A = v
	case SlotB:
		f.B = v
	case SlotC:
		f.C = v
	}
	return f
}

// StageFlags holds one boolean per stage.
type StageFlags struct {
	Active   bool `json:"active" yaml:"active"`
	Inactive bool `json:"inactive" yaml:"inactive"`
	Staging  bool `json:"staging" yaml:"staging"`
}

// Get returns the flag of stage.
func (f StageFlags) Get(stage Stage) bool {
	switch stage {
	case StageActive:
		return f.Active
	case StageInactive:
		return f.Inactive
	case StageStaging:
		return f.Staging
	default:
		return false
	}
}

// With returns a copy of f with stage set to v.
func (f StageFlags) With(stage Stage, v bool) StageFlags {
	switch stage {
	case StageActive:
		f.Active = v
	case StageInactive:
		f.Inactive = v
	case StageStaging:
		f.Staging = v
	}
	return f
}

// Existence tells the template generator which slot and stage resources to
// materialize (true) or remove (false).
type Existence struct {
	Slots  SlotFlags  `json:"slots" yaml:"slots"`
	Stages StageFlags `json:"stages" yaml:"stages"`
}

// FutureDeploymentState is the target state after applying an action.
type FutureDeploymentState struct {
	Action      Action        `json:"action" yaml:"action"`
	StagingSlot Slot          `json:"staging_slot" yaml:"staging_slot"`
	Slots       SlotTable     `json:"slots" yaml:"slots"`
	Stages      StageBindings `json:"stages" yaml:"stages"`
	Existence   Existence     `json:"existence" yaml:"existence"`
}

// Presence reports which stages will be bound.
func (f FutureDeploymentState) Presence() Presence {
	return f.Stages.Presence()
}

// State returns the future state as a DeploymentState, dropping the
// existence decisions. Useful to chain plans.
func (f FutureDeploymentState) State() DeploymentState {
	return DeploymentState{Slots: f.Slots, Stages: f.Stages}
}
