package bluegreen

import "github.com/artpar/bgplan/internal/core/domain"

// Plan validates req against state and computes the future state.
//
// Checks run in order: service name (ValidateService), request shape
// (ValidateRequest), state preconditions
// (CheckPreconditions), then the validity table (CheckTransition). Any
// failure stops the plan; nothing partial is returned.
//
// Example:
//
//	future, err := Plan("helpdesk", state, domain.DeploymentRequest{
//	    Action:            domain.ActionDeployToStaging,
//	    DockerImageDigest: digest,
//	})
//	if errors.Is(err, ErrInvalidRequest) {
//	    // fix the request
//	}
func Plan(service string, state domain.DeploymentState, req domain.DeploymentRequest) (domain.FutureDeploymentState, error) {
	if err := ValidateService(service); err != nil {
		return domain.FutureDeploymentState{}, err
	}
	if err := ValidateRequest(req); err != nil {
		return domain.FutureDeploymentState{}, err
	}
	if err := CheckPreconditions(state, req); err != nil {
		return domain.FutureDeploymentState{}, err
	}
	if err := CheckTransition(state, req.Action); err != nil {
		return domain.FutureDeploymentState{}, err
	}
	return ComputeFuture(service, state, req), nil
}
