package api

import (
	"time"

	"github.com/artpar/bgplan/internal/core/domain"
	"github.com/artpar/bgplan/internal/core/render"
)

// =============================================================================
// Request Types
// =============================================================================

// CreatePlanRequest is the request body for planning a deployment.
type CreatePlanRequest struct {
	Action            string `json:"action"`
	DockerImageDigest string `json:"docker_image_digest,omitempty"`
	TaskDefinitionArn string `json:"task_definition_arn,omitempty"`
}

// =============================================================================
// Response Types
// =============================================================================

// PlanResponse is the response for plan operations.
type PlanResponse struct {
	ID                string                        `json:"id"`
	Service           string                        `json:"service"`
	Action            string                        `json:"action"`
	DockerImageDigest string                        `json:"docker_image_digest,omitempty"`
	TaskDefinitionArn string                        `json:"task_definition_arn,omitempty"`
	Status            string                        `json:"status"`
	ErrorMessage      string                        `json:"error_message,omitempty"`
	SnapshotSerial    int64                         `json:"snapshot_serial"`
	RequestedBy       string                        `json:"requested_by,omitempty"`
	Current           domain.DeploymentState        `json:"current"`
	Future            *domain.FutureDeploymentState `json:"future,omitempty"`
	Variables         []render.Variable             `json:"variables,omitempty"`
	CreatedAt         time.Time                     `json:"created_at"`
}

// ListPlansResponse is one page of a service's plan history. Total counts
// every plan recorded for the service.
type ListPlansResponse struct {
	Plans  []PlanResponse `json:"plans"`
	Total  int            `json:"total"`
	Limit  int            `json:"limit"`
	Offset int            `json:"offset"`
}

// ErrorResponse is the error response format.
type ErrorResponse struct {
	Error  string `json:"error"`
	Code   string `json:"code"`
	Field  string `json:"field,omitempty"`
	PlanID string `json:"plan_id,omitempty"`
}

// HealthResponse is the health check response.
type HealthResponse struct {
	Status string `json:"status"`
}

// ReadyResponse is the readiness check response.
type ReadyResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// Error codes.
const (
	CodeInvalidRequest         = "invalid_request"
	CodeIllegalStateTransition = "illegal_state_transition"
	CodePlanNotFound           = "plan_not_found"
	CodeInternalError          = "internal_error"
)
