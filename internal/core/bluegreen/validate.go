package bluegreen

import (
	"fmt"
	"regexp"

	"github.com/artpar/bgplan/internal/core/domain"
)

// Request field names, as they appear in errors and on the wire.
const (
	FieldService           = "service"
	FieldAction            = "action"
	FieldDockerImageDigest = "docker_image_digest"
	FieldTaskDefinitionArn = "task_definition_arn"
)

var (
	servicePattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9\-]{0,62}$`)

	digestPattern = regexp.MustCompile(`^[A-Fa-f0-9]{64}$`)

	taskDefinitionArnPattern = regexp.MustCompile(
		`^arn:aws:ecs:[A-Za-z0-9\-_]{7,32}:[0-9]{12}:task-definition/[A-Za-z0-9\-_]{1,128}:[0-9]{1,4}$`)
)

// ValidateService checks that service can prefix Terraform resource names.
// Underscores are refused because they separate the service from the slot
// or stage suffix.
func ValidateService(service string) error {
	if !servicePattern.MatchString(service) {
		return NewRequestError(FieldService,
			fmt.Sprintf("%q is not a service name (letters, digits and '-', starting with a letter)", service))
	}
	return nil
}

// ValidateDigest checks that digest is a 64 character hex string.
func ValidateDigest(digest string) error {
	if !digestPattern.MatchString(digest) {
		return NewRequestError(FieldDockerImageDigest,
			fmt.Sprintf("%q is not a 64 character hexadecimal digest", digest))
	}
	return nil
}

// ValidateTaskDefinitionArn checks that arn names a versioned ECS task definition.
func ValidateTaskDefinitionArn(arn string) error {
	if !taskDefinitionArnPattern.MatchString(arn) {
		return NewRequestError(FieldTaskDefinitionArn,
			fmt.Sprintf("%q is not a task definition ARN (arn:aws:ecs:<region>:<account>:task-definition/<name>:<revision>)", arn))
	}
	return nil
}

// ValidateRequest checks a request on its own, without looking at the
// current deployment state.
//
// Rules:
//   - docker_image_digest and task_definition_arn are mutually exclusive
//   - deploy_to_staging needs exactly one of them
//   - destroy_staging, deploy_to_active and roll_back_to_previous take neither
//   - do_nothing ignores them
func ValidateRequest(req domain.DeploymentRequest) error {
	if !req.Action.IsValid() {
		return NewRequestError(FieldAction, fmt.Sprintf("invalid deployment option: %q", req.Action))
	}

	hasDigest := req.DockerImageDigest != ""
	hasArn := req.TaskDefinitionArn != ""

	if hasDigest && hasArn {
		return NewRequestError("", fmt.Sprintf("you can not specify both %s and %s",
			FieldDockerImageDigest, FieldTaskDefinitionArn))
	}

	switch req.Action {
	case domain.ActionDoNothing:
		// Parameters are ignored downstream.

	case domain.ActionDeployToStaging:
		if !hasDigest && !hasArn {
			return NewRequestError("", fmt.Sprintf("%s requires exactly one of %s or %s",
				req.Action, FieldDockerImageDigest, FieldTaskDefinitionArn))
		}

	case domain.ActionDestroyStaging, domain.ActionDeployToActive, domain.ActionRollBackToPrevious:
		if hasDigest || hasArn {
			return NewRequestError("", fmt.Sprintf("%s does not accept %s or %s",
				req.Action, FieldDockerImageDigest, FieldTaskDefinitionArn))
		}
	}

	if hasDigest {
		if err := ValidateDigest(req.DockerImageDigest); err != nil {
			return err
		}
	}
	if hasArn {
		if err := ValidateTaskDefinitionArn(req.TaskDefinitionArn); err != nil {
			return err
		}
	}

	return nil
}

// CheckPreconditions checks that the current state can satisfy the action.
func CheckPreconditions(state domain.DeploymentState, req domain.DeploymentRequest) error {
	presence := state.Presence()

	switch req.Action {
	case domain.ActionDeployToActive:
		if !presence.Staging {
			return NewRequestError("", "you cannot deploy to active because there is nothing in staging")
		}

	case domain.ActionRollBackToPrevious:
		if !presence.Active || !presence.Inactive {
			return NewRequestError("", "you cannot roll back to previous because you don't have both active and inactive deployed")
		}
	}

	return nil
}
