package bluegreen

import (
	"testing"

	"github.com/artpar/bgplan/internal/core/domain"
	"github.com/artpar/bgplan/internal/core/tfstate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Plan Tests
// =============================================================================

func TestPlan_EmptyStateRejectsPromotionAndRollback(t *testing.T) {
	for _, action := range []domain.Action{domain.ActionDeployToActive, domain.ActionRollBackToPrevious} {
		t.Run(string(action), func(t *testing.T) {
			_, err := Plan(testService, domain.EmptyState(), domain.DeploymentRequest{Action: action})
			assert.ErrorIs(t, err, ErrInvalidRequest)
			assert.NotErrorIs(t, err, ErrIllegalStateTransition)
		})
	}
}

func TestPlan_BothParametersRejectedForEveryAction(t *testing.T) {
	for _, action := range domain.AllActions {
		_, err := Plan(testService, stateWith(domain.SlotA, domain.SlotB, domain.SlotC), domain.DeploymentRequest{
			Action:            action,
			DockerImageDigest: digestA,
			TaskDefinitionArn: testArn,
		})
		assert.ErrorIs(t, err, ErrInvalidRequest, action)
	}
}

func TestPlan_MalformedArnRejected(t *testing.T) {
	_, err := Plan(testService, domain.EmptyState(), domain.DeploymentRequest{
		Action:            domain.ActionDeployToStaging,
		TaskDefinitionArn: "arn:aws:ecs:us-east-1:123456789012:helpdesk",
	})
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestPlan_UnreachableStateIsIllegal(t *testing.T) {
	state := stateWith(domain.SlotNone, domain.SlotA, domain.SlotNone)

	_, err := Plan(testService, state, domain.DeploymentRequest{Action: domain.ActionDoNothing})
	assert.ErrorIs(t, err, ErrIllegalStateTransition)
}

func TestPlan_DigestToEmptyState(t *testing.T) {
	future, err := Plan(testService, domain.EmptyState(), domain.DeploymentRequest{
		Action:            domain.ActionDeployToStaging,
		DockerImageDigest: digestA,
	})
	require.NoError(t, err)

	assert.Equal(t, domain.SlotA, future.Stages.Staging)
	assert.Equal(t, digestA, future.Slots.A.DockerImageDigest)
	assert.True(t, future.Slots.B.IsEmpty())
	assert.True(t, future.Slots.C.IsEmpty())
	assert.False(t, future.Stages.Active.IsBound())
	assert.False(t, future.Stages.Inactive.IsBound())
}

// untaggedSnapshot has slot a live behind the active listener with an image
// that carries neither tag nor digest.
const untaggedSnapshot = `{
  "version": 4,
  "serial": 3,
  "resources": [
    {
      "type": "aws_ecs_task_definition",
      "name": "helpdesk_a",
      "instances": [{"attributes": {
        "arn": "arn:aws:ecs:us-east-1:123456789012:task-definition/helpdesk_a:7",
        "container_definitions": "[{\"name\":\"web\",\"image\":\"123456789012.dkr.ecr.us-east-1.amazonaws.com/helpdesk\"}]"
      }}]
    },
    {
      "type": "aws_lb_listener",
      "name": "helpdesk_active",
      "instances": [{"attributes": {}, "dependencies": ["aws_lb_target_group.helpdesk_a"]}]
    }
  ]
}`

func TestPlan_UntaggedLiveImageStaysActive(t *testing.T) {
	state, problems, err := tfstate.ReadState([]byte(untaggedSnapshot), testService)
	require.NoError(t, err)
	require.Len(t, problems, 1)
	assert.ErrorIs(t, problems[0], tfstate.ErrMalformedRecord)

	future, err := Plan(testService, state, domain.DeploymentRequest{
		Action:            domain.ActionDeployToStaging,
		DockerImageDigest: digestB,
	})
	require.NoError(t, err)

	assert.Equal(t, domain.SlotA, future.Stages.Active)
	assert.Equal(t, domain.SlotB, future.Stages.Staging)
	assert.Equal(t, state.Slots.A, future.Slots.A)
	assert.Equal(t, digestB, future.Slots.B.DockerImageDigest)
	assert.True(t, future.Existence.Stages.Active)
	assert.True(t, future.Existence.Slots.A)
}

// =============================================================================
// Round Trip Properties
// =============================================================================

func TestPlan_DeployThenDestroyRestoresPresence(t *testing.T) {
	for _, p := range allPresences() {
		if !IsReachable(p) {
			continue
		}
		t.Run(p.String(), func(t *testing.T) {
			state := stateForPresence(p)

			deployed, err := Plan(testService, state, domain.DeploymentRequest{
				Action:            domain.ActionDeployToStaging,
				DockerImageDigest: digestD,
			})
			require.NoError(t, err)

			destroyed, err := Plan(testService, deployed.State(), domain.DeploymentRequest{Action: domain.ActionDestroyStaging})
			require.NoError(t, err)

			assert.Equal(t, deployed.StagingSlot, destroyed.StagingSlot, "same slot both times")
			assert.Equal(t, domain.Presence{Active: p.Active, Inactive: p.Inactive}, destroyed.Presence())
			if !p.Staging {
				assert.Equal(t, p, destroyed.Presence())
			}
		})
	}
}

// Promotion rotates (staging, active, inactive) into (active, inactive,
// staging). Rolling back afterwards swaps active and inactive, which puts the
// previously active release back in front. Staging is not rotated back.
func TestPlan_PromoteThenRollBack(t *testing.T) {
	state := stateWith(domain.SlotA, domain.SlotB, domain.SlotC)

	promoted, err := Plan(testService, state, domain.DeploymentRequest{Action: domain.ActionDeployToActive})
	require.NoError(t, err)
	assert.Equal(t, domain.StageBindings{Active: domain.SlotC, Inactive: domain.SlotA, Staging: domain.SlotB}, promoted.Stages)

	rolledBack, err := Plan(testService, promoted.State(), domain.DeploymentRequest{Action: domain.ActionRollBackToPrevious})
	require.NoError(t, err)

	assert.Equal(t, state.Stages.Active, rolledBack.Stages.Active, "pre-promotion active is back")
	assert.Equal(t, state.Stages.Staging, rolledBack.Stages.Inactive, "promoted release is the rollback target")
	assert.Equal(t, promoted.Stages.Staging, rolledBack.Stages.Staging)

	again, err := Plan(testService, rolledBack.State(), domain.DeploymentRequest{Action: domain.ActionRollBackToPrevious})
	require.NoError(t, err)
	assert.Equal(t, promoted.Stages, again.Stages, "two swaps are the identity")
}

func TestPlan_FullLifecycle(t *testing.T) {
	state := domain.EmptyState()
	steps := []struct {
		req  domain.DeploymentRequest
		want domain.StageBindings
	}{
		{domain.DeploymentRequest{Action: domain.ActionDeployToStaging, DockerImageDigest: digestA},
			domain.StageBindings{Staging: domain.SlotA}},
		{domain.DeploymentRequest{Action: domain.ActionDeployToActive},
			domain.StageBindings{Active: domain.SlotA}},
		{domain.DeploymentRequest{Action: domain.ActionDeployToStaging, DockerImageDigest: digestB},
			domain.StageBindings{Active: domain.SlotA, Staging: domain.SlotB}},
		{domain.DeploymentRequest{Action: domain.ActionDeployToActive},
			domain.StageBindings{Active: domain.SlotB, Inactive: domain.SlotA}},
		{domain.DeploymentRequest{Action: domain.ActionDeployToStaging, TaskDefinitionArn: testArn},
			domain.StageBindings{Active: domain.SlotB, Inactive: domain.SlotA, Staging: domain.SlotC}},
		{domain.DeploymentRequest{Action: domain.ActionDeployToActive},
			domain.StageBindings{Active: domain.SlotC, Inactive: domain.SlotB, Staging: domain.SlotA}},
		{domain.DeploymentRequest{Action: domain.ActionRollBackToPrevious},
			domain.StageBindings{Active: domain.SlotB, Inactive: domain.SlotC, Staging: domain.SlotA}},
		{domain.DeploymentRequest{Action: domain.ActionDestroyStaging},
			domain.StageBindings{Active: domain.SlotB, Inactive: domain.SlotC}},
	}

	for i, step := range steps {
		future, err := Plan(testService, state, step.req)
		require.NoError(t, err, "step %d (%s)", i, step.req.Action)
		assert.Equal(t, step.want, future.Stages, "step %d (%s)", i, step.req.Action)
		state = future.State()
	}

	assert.True(t, state.Slots.A.IsEmpty(), "destroyed staging slot is cleared")
	assert.Equal(t, digestB, state.Slots.B.DockerImageDigest)
	assert.Equal(t, testArn, state.Slots.C.TaskDefinitionArn)
}

func TestPlan_RejectsBadServiceName(t *testing.T) {
	_, err := Plan("help_desk", domain.EmptyState(), domain.DeploymentRequest{Action: domain.ActionDoNothing})
	assert.ErrorIs(t, err, ErrInvalidRequest)
}
