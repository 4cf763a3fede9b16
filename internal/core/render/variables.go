// Package render flattens a future deployment state into the named values
// a template generator substitutes into its infrastructure templates.
// This is part of the Functional Core - all functions are pure with no I/O.
package render

import (
	"strconv"
	"strings"

	"github.com/artpar/bgplan/internal/core/domain"
)

// Variable is one named template value.
type Variable struct {
	Name  string `json:"name" yaml:"name"`
	Value string `json:"value" yaml:"value"`
}

// Parameter suffixes of per-slot variables.
const (
	ParamDockerImageDigest = "DOCKER_IMAGE_DIGEST"
	ParamTaskDefinitionArn = "TASK_DEFINITION_ARN"
	ParamTaskDefinitionArg = "TASK_DEFINITION_ARG"
	ParamCreate            = "CREATE"
	ParamLogicID           = "LOGIC_ID"
)

// Prefix normalises a service name into a variable prefix.
//
// Example:
//
//	Prefix("help-desk") // returns "HELP_DESK"
func Prefix(service string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(service) {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}
	return b.String()
}

// SlotVariable names a per-slot variable.
// Pattern: {PREFIX}_LOGIC_{SLOT}_{PARAM}
//
// Example:
//
//	SlotVariable("helpdesk", domain.SlotA, ParamDockerImageDigest) // returns "HELPDESK_LOGIC_A_DOCKER_IMAGE_DIGEST"
func SlotVariable(service string, slot domain.Slot, param string) string {
	return Prefix(service) + "_LOGIC_" + strings.ToUpper(string(slot)) + "_" + param
}

// StageVariable names a per-stage variable.
// Pattern: {PREFIX}_{STAGE}_{PARAM}
func StageVariable(service string, stage domain.Stage, param string) string {
	return Prefix(service) + "_" + strings.ToUpper(string(stage)) + "_" + param
}

// Variables returns every template value of future in a stable order:
// slots a, b, c then stages active, inactive, staging.
func Variables(service string, future domain.FutureDeploymentState) []Variable {
	vars := make([]Variable, 0, len(domain.AllSlots)*4+len(domain.AllStages)*2)

	for _, slot := range domain.AllSlots {
		params := future.Slots.Get(slot)
		vars = append(vars,
			Variable{SlotVariable(service, slot, ParamDockerImageDigest), params.DockerImageDigest},
			Variable{SlotVariable(service, slot, ParamTaskDefinitionArn), params.TaskDefinitionArn},
			Variable{SlotVariable(service, slot, ParamTaskDefinitionArg), params.TaskDefinitionRef},
			Variable{SlotVariable(service, slot, ParamCreate), strconv.FormatBool(future.Existence.Slots.Get(slot))},
		)
	}

	for _, stage := range domain.AllStages {
		vars = append(vars,
			Variable{StageVariable(service, stage, ParamLogicID), string(future.Stages.Get(stage))},
			Variable{StageVariable(service, stage, ParamCreate), strconv.FormatBool(future.Existence.Stages.Get(stage))},
		)
	}

	return vars
}

// Lookup returns the value of the named variable.
func Lookup(vars []Variable, name string) (string, bool) {
	for _, v := range vars {
		if v.Name == name {
			return v.Value, true
		}
	}
	return "", false
}
