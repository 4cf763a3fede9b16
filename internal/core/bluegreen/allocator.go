package bluegreen

import "github.com/artpar/bgplan/internal/core/domain"

// FindStagingSlot returns the slot a new staging deployment goes to: the
// alphabetically first slot held by neither Active nor Inactive.
//
// With three slots and two stages to avoid there is always at least one
// candidate, so the function is total.
func FindStagingSlot(state domain.DeploymentState) domain.Slot {
	for _, slot := range domain.AllSlots {
		if slot == state.Stages.Active || slot == state.Stages.Inactive {
			continue
		}
		return slot
	}
	// Unreachable: Active and Inactive can hold at most two slots.
	return domain.SlotNone
}
