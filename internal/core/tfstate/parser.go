package tfstate

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/distribution/reference"

	"github.com/artpar/bgplan/internal/core/domain"
)

// =============================================================================
// Document Parsing
// =============================================================================

// Parse decodes a Terraform state document.
func Parse(data []byte) (*State, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("%w: empty document", ErrInvalidState)
	}

	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidState, err)
	}

	return &state, nil
}

// =============================================================================
// Deployment State Extraction
// =============================================================================

// BuildState scans resources once and reconstructs the deployment state of
// service. Resources that are not task definitions, services or listeners
// of the service are ignored.
//
// Recognised resources that cannot be read are skipped and returned as
// record errors, so a partly broken snapshot still yields a best-effort
// state. Stages that end up bound to a slot with nothing deployed are
// unbound and reported as well.
func BuildState(resources []Resource, service string) (domain.DeploymentState, []*RecordError) {
	state := domain.EmptyState()
	var problems []*RecordError

	for _, res := range resources {
		var err *RecordError

		switch res.Type {
		case TypeTaskDefinition:
			state, err = applyTaskDefinition(state, res, service)
		case TypeService:
			state, err = applyService(state, res, service)
		case TypeListener:
			state, err = applyListener(state, res, service)
		}

		if err != nil {
			problems = append(problems, err)
		}
	}

	for _, stage := range domain.AllStages {
		slot := state.Stages.Get(stage)
		if slot.IsBound() && !state.Slots.Get(slot).Deployed() {
			state.Stages = state.Stages.With(stage, domain.SlotNone)
			problems = append(problems, NewRecordError(TypeListener, ResourceName(service, string(stage)),
				fmt.Sprintf("slot %s has no task definition, unbinding %s", slot, stage), ErrDanglingBinding))
		}
	}

	return state, problems
}

// ReadState parses data and extracts the deployment state of service.
func ReadState(data []byte, service string) (domain.DeploymentState, []*RecordError, error) {
	doc, err := Parse(data)
	if err != nil {
		return domain.EmptyState(), nil, err
	}
	state, problems := BuildState(doc.Resources, service)
	return state, problems, nil
}

// slotOf returns the slot a "{service}_{slot}" resource belongs to.
func slotOf(res Resource, service string) (domain.Slot, bool) {
	suffix, ok := TrimServicePrefix(service, res.Name)
	if !ok {
		return domain.SlotNone, false
	}
	slot, err := domain.ParseSlot(suffix)
	if err != nil {
		return domain.SlotNone, false
	}
	return slot, true
}

func firstInstance(res Resource) (Instance, *RecordError) {
	if len(res.Instances) == 0 {
		return Instance{}, NewRecordError(res.Type, res.Name, "resource has no instances", ErrMalformedRecord)
	}
	return res.Instances[0], nil
}

func applyTaskDefinition(state domain.DeploymentState, res Resource, service string) (domain.DeploymentState, *RecordError) {
	slot, ok := slotOf(res, service)
	if !ok {
		return state, nil
	}
	inst, recErr := firstInstance(res)
	if recErr != nil {
		return state, recErr
	}

	rawDefs, ok := inst.StringAttribute("container_definitions")
	if !ok {
		return state, NewRecordError(res.Type, res.Name, "missing container_definitions", ErrMalformedRecord)
	}
	var defs []containerDefinition
	if err := json.Unmarshal([]byte(rawDefs), &defs); err != nil {
		return state, NewRecordError(res.Type, res.Name, "container_definitions is not a JSON list: "+err.Error(), ErrMalformedRecord)
	}
	if len(defs) == 0 || defs[0].Image == "" {
		return state, NewRecordError(res.Type, res.Name, "first container definition has no image", ErrMalformedRecord)
	}

	// An image without tag or digest still proves the slot is deployed; keep
	// the slot and report the record.
	var problem *RecordError
	digest, err := ImageDigest(defs[0].Image)
	if err != nil {
		problem = NewRecordError(res.Type, res.Name, err.Error(), ErrMalformedRecord)
		digest = imageTail(defs[0].Image)
	}

	arn, _ := inst.StringAttribute("arn")

	params := state.Slots.Get(slot)
	params.DockerImageDigest = digest
	params.TaskDefinitionArn = arn
	state.Slots = state.Slots.With(slot, params)

	return state, problem
}

func applyService(state domain.DeploymentState, res Resource, service string) (domain.DeploymentState, *RecordError) {
	slot, ok := slotOf(res, service)
	if !ok {
		return state, nil
	}
	inst, recErr := firstInstance(res)
	if recErr != nil {
		return state, recErr
	}

	ref, ok := inst.StringAttribute("task_definition")
	if !ok {
		return state, NewRecordError(res.Type, res.Name, "missing task_definition", ErrMalformedRecord)
	}

	params := state.Slots.Get(slot)
	params.TaskDefinitionRef = ref
	state.Slots = state.Slots.With(slot, params)

	return state, nil
}

func applyListener(state domain.DeploymentState, res Resource, service string) (domain.DeploymentState, *RecordError) {
	suffix, ok := TrimServicePrefix(service, res.Name)
	if !ok {
		return state, nil
	}
	stage, err := domain.ParseStage(suffix)
	if err != nil {
		return state, nil
	}
	inst, recErr := firstInstance(res)
	if recErr != nil {
		return state, recErr
	}

	for _, dep := range inst.AllDependencies() {
		if !strings.HasPrefix(dep, TypeTargetGroup) {
			continue
		}
		slot, err := targetGroupSlot(dep)
		if err != nil {
			return state, NewRecordError(res.Type, res.Name, err.Error(), ErrMalformedRecord)
		}
		state.Stages = state.Stages.With(stage, slot)
		return state, nil
	}

	return state, NewRecordError(res.Type, res.Name, "no target group dependency", ErrMalformedRecord)
}

// targetGroupSlot extracts the slot from a dependency such as
// "aws_lb_target_group.helpdesk_a".
func targetGroupSlot(dep string) (domain.Slot, error) {
	idx := strings.LastIndex(dep, "_")
	if idx < 0 {
		return domain.SlotNone, fmt.Errorf("dependency %q carries no slot", dep)
	}
	return domain.ParseSlot(dep[idx+1:])
}

// =============================================================================
// Image References
// =============================================================================

// ImageDigest returns the trailing component of an image reference: the
// encoded digest of "repo@sha256:<hex>", or the tag of "repo:<tag>".
//
// Example:
//
//	ImageDigest("123456789012.dkr.ecr.us-east-1.amazonaws.com/web:" + hex) // returns hex
func ImageDigest(image string) (string, error) {
	ref, err := reference.ParseAnyReference(image)
	if err == nil {
		if digested, ok := ref.(reference.Digested); ok {
			return digested.Digest().Encoded(), nil
		}
		if tagged, ok := ref.(reference.Tagged); ok {
			return tagged.Tag(), nil
		}
		return "", fmt.Errorf("image %q has neither tag nor digest", image)
	}

	// Not a canonical reference (e.g. upper-case repository); fall back to
	// the component after the last colon.
	idx := strings.LastIndex(image, ":")
	if idx < 0 || idx == len(image)-1 || strings.Contains(image[idx+1:], "/") {
		return "", fmt.Errorf("cannot parse image %q: %v", image, err)
	}
	return image[idx+1:], nil
}

// imageTail is the lenient reading of an image the reference parser
// rejects: whatever follows the last colon, or the whole image when that
// colon belongs to a registry port or there is none.
func imageTail(image string) string {
	idx := strings.LastIndex(image, ":")
	if idx < 0 || idx == len(image)-1 || strings.Contains(image[idx+1:], "/") {
		return image
	}
	return image[idx+1:]
}
