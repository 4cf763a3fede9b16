package bluegreen

import "github.com/artpar/bgplan/internal/core/domain"

// =============================================================================
// Transition Validity Table
// =============================================================================

// Starting from the empty state, only these presence triples can be reached:
//
//	0-0-0  nothing deployed
//	0-0-1  first release in staging
//	1-0-0  first release promoted
//	1-0-1  second release in staging
//	1-1-0  active with a rollback target
//	1-1-1  active, rollback target and a release in staging
//
// Inactive is only ever bound by a promotion, which always binds Active too,
// so 0-1-0 and 0-1-1 are unreachable and every action on them is refused.

type transitionKey struct {
	action   domain.Action
	presence domain.Presence
}

func key(action domain.Action, active, inactive, staging bool) transitionKey {
	return transitionKey{
		action:   action,
		presence: domain.Presence{Active: active, Inactive: inactive, Staging: staging},
	}
}

const (
	off = false
	on  = true
)

// validTransitions lists all 40 (action, presence) combinations.
var validTransitions = map[transitionKey]bool{
	// do_nothing: legal on every reachable triple.
	key(domain.ActionDoNothing, off, off, off): true,
	key(domain.ActionDoNothing, off, off, on):  true,
	key(domain.ActionDoNothing, off, on, off):  false,
	key(domain.ActionDoNothing, off, on, on):   false,
	key(domain.ActionDoNothing, on, off, off):  true,
	key(domain.ActionDoNothing, on, off, on):   true,
	key(domain.ActionDoNothing, on, on, off):   true,
	key(domain.ActionDoNothing, on, on, on):    true,

	// deploy_to_staging: legal on every reachable triple, replacing what is
	// in staging when something already is.
	key(domain.ActionDeployToStaging, off, off, off): true,
	key(domain.ActionDeployToStaging, off, off, on):  true,
	key(domain.ActionDeployToStaging, off, on, off):  false,
	key(domain.ActionDeployToStaging, off, on, on):   false,
	key(domain.ActionDeployToStaging, on, off, off):  true,
	key(domain.ActionDeployToStaging, on, off, on):   true,
	key(domain.ActionDeployToStaging, on, on, off):   true,
	key(domain.ActionDeployToStaging, on, on, on):    true,

	// destroy_staging: legal on every reachable triple, a no-op when
	// nothing is staged.
	key(domain.ActionDestroyStaging, off, off, off): true,
	key(domain.ActionDestroyStaging, off, off, on):  true,
	key(domain.ActionDestroyStaging, off, on, off):  false,
	key(domain.ActionDestroyStaging, off, on, on):   false,
	key(domain.ActionDestroyStaging, on, off, off):  true,
	key(domain.ActionDestroyStaging, on, off, on):   true,
	key(domain.ActionDestroyStaging, on, on, off):   true,
	key(domain.ActionDestroyStaging, on, on, on):    true,

	// deploy_to_active: needs something in staging.
	key(domain.ActionDeployToActive, off, off, off): false,
	key(domain.ActionDeployToActive, off, off, on):  true,
	key(domain.ActionDeployToActive, off, on, off):  false,
	key(domain.ActionDeployToActive, off, on, on):   false,
	key(domain.ActionDeployToActive, on, off, off):  false,
	key(domain.ActionDeployToActive, on, off, on):   true,
	key(domain.ActionDeployToActive, on, on, off):   false,
	key(domain.ActionDeployToActive, on, on, on):    true,

	// roll_back_to_previous: needs both active and inactive.
	key(domain.ActionRollBackToPrevious, off, off, off): false,
	key(domain.ActionRollBackToPrevious, off, off, on):  false,
	key(domain.ActionRollBackToPrevious, off, on, off):  false,
	key(domain.ActionRollBackToPrevious, off, on, on):   false,
	key(domain.ActionRollBackToPrevious, on, off, off):  false,
	key(domain.ActionRollBackToPrevious, on, off, on):   false,
	key(domain.ActionRollBackToPrevious, on, on, off):   true,
	key(domain.ActionRollBackToPrevious, on, on, on):    true,
}

// IsValidTransition reports whether action is safe from presence.
// Unknown actions are never valid.
func IsValidTransition(action domain.Action, presence domain.Presence) bool {
	return validTransitions[transitionKey{action: action, presence: presence}]
}

// IsReachable reports whether presence can arise from the empty state
// through legal transitions.
func IsReachable(presence domain.Presence) bool {
	return IsValidTransition(domain.ActionDoNothing, presence)
}

// CheckTransition returns a *TransitionError when action is not safe from
// the current state.
func CheckTransition(state domain.DeploymentState, action domain.Action) error {
	presence := state.Presence()
	if !IsValidTransition(action, presence) {
		return &TransitionError{Presence: presence, Action: action}
	}
	return nil
}
