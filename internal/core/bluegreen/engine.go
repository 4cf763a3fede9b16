package bluegreen

import (
	"github.com/artpar/bgplan/internal/core/domain"
	"github.com/artpar/bgplan/internal/core/tfstate"
)

// =============================================================================
// Transition Engine
// =============================================================================

// ComputeFuture computes the target state of every slot and stage after
// applying req to state. It assumes req passed ValidateRequest,
// CheckPreconditions and CheckTransition; use Plan to run all of them.
//
// Slot parameters:
//   - do_nothing, deploy_to_active, roll_back_to_previous: unchanged
//   - deploy_to_staging: the staging slot takes the requested version
//   - destroy_staging: the staging slot is cleared
//
// Stage bindings:
//   - do_nothing: unchanged
//   - deploy_to_staging: staging → staging slot
//   - destroy_staging: staging → unbound
//   - deploy_to_active: active ← staging, inactive ← active, staging ← inactive
//   - roll_back_to_previous: active ↔ inactive
func ComputeFuture(service string, state domain.DeploymentState, req domain.DeploymentRequest) domain.FutureDeploymentState {
	stagingSlot := FindStagingSlot(state)

	future := domain.FutureDeploymentState{
		Action:      req.Action,
		StagingSlot: stagingSlot,
		Slots:       futureSlots(service, state, req, stagingSlot),
		Stages:      futureStages(state, req.Action, stagingSlot),
	}
	future.Existence = futureExistence(future, req.Action, stagingSlot)

	return future
}

func futureSlots(service string, state domain.DeploymentState, req domain.DeploymentRequest, stagingSlot domain.Slot) domain.SlotTable {
	switch req.Action {
	case domain.ActionDeployToStaging:
		return state.Slots.With(stagingSlot, requestedParameters(service, req, stagingSlot))

	case domain.ActionDestroyStaging:
		return state.Slots.With(stagingSlot, domain.SlotParameters{})

	default:
		return state.Slots
	}
}

// requestedParameters builds the parameters of a fresh staging deployment.
// A digest deploy creates a new task definition in the same apply, so the
// service refers to it symbolically; an ARN deploy reuses an existing one.
func requestedParameters(service string, req domain.DeploymentRequest, slot domain.Slot) domain.SlotParameters {
	if req.DockerImageDigest != "" {
		return domain.SlotParameters{
			DockerImageDigest: req.DockerImageDigest,
			TaskDefinitionRef: tfstate.TaskDefinitionRef(service, slot),
		}
	}
	return domain.SlotParameters{
		TaskDefinitionArn: req.TaskDefinitionArn,
		TaskDefinitionRef: req.TaskDefinitionArn,
	}
}

func futureStages(state domain.DeploymentState, action domain.Action, stagingSlot domain.Slot) domain.StageBindings {
	current := state.Stages

	switch action {
	case domain.ActionDeployToStaging:
		return current.With(domain.StageStaging, stagingSlot)

	case domain.ActionDestroyStaging:
		return current.With(domain.StageStaging, domain.SlotNone)

	case domain.ActionDeployToActive:
		return domain.StageBindings{
			Active:   current.Staging,
			Inactive: current.Active,
			Staging:  current.Inactive,
		}

	case domain.ActionRollBackToPrevious:
		return domain.StageBindings{
			Active:   current.Inactive,
			Inactive: current.Active,
			Staging:  current.Staging,
		}

	default:
		return current
	}
}

// futureExistence mirrors the future parameters and bindings. Only
// deploy_to_staging and destroy_staging change what exists, so they force
// the staging slot and stage on or off. A stage without a slot is never
// created.
func futureExistence(future domain.FutureDeploymentState, action domain.Action, stagingSlot domain.Slot) domain.Existence {
	var existence domain.Existence

	for _, slot := range domain.AllSlots {
		existence.Slots = existence.Slots.With(slot, future.Slots.Get(slot).Deployed())
	}
	for _, stage := range domain.AllStages {
		existence.Stages = existence.Stages.With(stage, future.Stages.Get(stage).IsBound())
	}

	switch action {
	case domain.ActionDeployToStaging:
		existence.Slots = existence.Slots.With(stagingSlot, true)
		existence.Stages = existence.Stages.With(domain.StageStaging, true)

	case domain.ActionDestroyStaging:
		existence.Slots = existence.Slots.With(stagingSlot, false)
		existence.Stages = existence.Stages.With(domain.StageStaging, false)
	}

	return existence
}
