package bluegreen

import (
	"strings"

	"github.com/artpar/bgplan/internal/core/domain"
)

const testService = "helpdesk"

var (
	digestA = strings.Repeat("a", 64)
	digestB = strings.Repeat("b", 64)
	digestC = strings.Repeat("c", 64)
	digestD = strings.Repeat("d", 64)

	testArn = "arn:aws:ecs:us-east-1:123456789012:task-definition/helpdesk:7"
)

func deployed(digest string) domain.SlotParameters {
	return domain.SlotParameters{
		DockerImageDigest: digest,
		TaskDefinitionArn: "arn:aws:ecs:us-east-1:123456789012:task-definition/helpdesk:1",
		TaskDefinitionRef: "arn:aws:ecs:us-east-1:123456789012:task-definition/helpdesk:1",
	}
}

// stateWith builds a consistent state where each bound stage points at a
// deployed slot.
func stateWith(active, inactive, staging domain.Slot) domain.DeploymentState {
	var state domain.DeploymentState
	digests := map[domain.Slot]string{domain.SlotA: digestA, domain.SlotB: digestB, domain.SlotC: digestC}
	for _, slot := range []domain.Slot{active, inactive, staging} {
		if slot.IsBound() {
			state.Slots = state.Slots.With(slot, deployed(digests[slot]))
		}
	}
	state.Stages = domain.StageBindings{Active: active, Inactive: inactive, Staging: staging}
	return state
}

// stateForPresence builds a reachable-looking state for a presence triple,
// using the slot layout the allocator would have produced.
func stateForPresence(p domain.Presence) domain.DeploymentState {
	var active, inactive, staging domain.Slot
	if p.Active {
		active = domain.SlotA
	}
	if p.Inactive {
		inactive = domain.SlotB
	}
	if p.Staging {
		staging = FindStagingSlot(stateWith(active, inactive, domain.SlotNone))
	}
	return stateWith(active, inactive, staging)
}

func allPresences() []domain.Presence {
	var out []domain.Presence
	for _, a := range []bool{false, true} {
		for _, i := range []bool{false, true} {
			for _, s := range []bool{false, true} {
				out = append(out, domain.Presence{Active: a, Inactive: i, Staging: s})
			}
		}
	}
	return out
}

func requestFor(action domain.Action) domain.DeploymentRequest {
	req := domain.DeploymentRequest{Action: action}
	if action == domain.ActionDeployToStaging {
		req.DockerImageDigest = digestD
	}
	return req
}
