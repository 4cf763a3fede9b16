// Package bluegreen provides the pure blue/green/staging state machine.
//
// Three interchangeable slots (a, b, c) are rotated through three stages
// (active, inactive, staging). Given what is deployed now and a requested
// action, the package decides which slot resources and stage resources the
// template generator must keep, create or remove. All functions are pure
// (no I/O, no side effects).
//
// # Functions
//
//   - Validation: check a request on its own (ValidateRequest) and against
//     the current state (CheckPreconditions)
//   - Allocation: pick the slot for a new staging release (FindStagingSlot)
//   - Validity: refuse unsafe (action, presence) pairs (CheckTransition)
//   - Transition: compute the target state (ComputeFuture)
//   - Plan: all of the above in order
//
// # Usage
//
// The imperative shell (internal/shell/planning) loads the current state
// from a Terraform snapshot once, then calls Plan.
//
//	state := loader.Load(ctx, service)
//	future, err := bluegreen.Plan(service, state, req)
package bluegreen
