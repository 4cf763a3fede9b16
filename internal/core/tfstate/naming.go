package tfstate

import (
	"fmt"
	"strings"

	"github.com/artpar/bgplan/internal/core/domain"
)

// =============================================================================
// Resource Types
// =============================================================================

// Terraform resource types the planner understands.
const (
	TypeTaskDefinition = "aws_ecs_task_definition"
	TypeService        = "aws_ecs_service"
	TypeListener       = "aws_lb_listener"
	TypeTargetGroup    = "aws_lb_target_group"
)

// =============================================================================
// Resource Naming Functions
// =============================================================================

// ResourceName generates the Terraform resource name for a slot or stage.
// Pattern: {service}_{suffix}
//
// Example:
//
//	ResourceName("helpdesk", "a")      // returns "helpdesk_a"
//	ResourceName("helpdesk", "active") // returns "helpdesk_active"
func ResourceName(service, suffix string) string {
	return fmt.Sprintf("%s_%s", service, suffix)
}

// TrimServicePrefix returns the part of name after "{service}_", and false
// when name does not carry the prefix.
func TrimServicePrefix(service, name string) (string, bool) {
	prefix := service + "_"
	if !strings.HasPrefix(name, prefix) {
		return "", false
	}
	return strings.TrimPrefix(name, prefix), true
}

// TaskDefinitionAddress returns the Terraform address of a slot's task definition.
// Pattern: aws_ecs_task_definition.{service}_{slot}
func TaskDefinitionAddress(service string, slot domain.Slot) string {
	return fmt.Sprintf("%s.%s", TypeTaskDefinition, ResourceName(service, string(slot)))
}

// TaskDefinitionRef returns the interpolation that resolves to the ARN of a
// task definition created in the same apply.
//
// Example:
//
//	TaskDefinitionRef("helpdesk", domain.SlotA) // returns "${aws_ecs_task_definition.helpdesk_a.arn}"
func TaskDefinitionRef(service string, slot domain.Slot) string {
	return fmt.Sprintf("${%s.arn}", TaskDefinitionAddress(service, slot))
}
