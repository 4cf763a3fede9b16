package api

import (
	"net/http"

	"github.com/artpar/bgplan/internal/shell/api/openapi"
)

// newDocs describes the routes served by Handler.Routes.
func newDocs(version string) *openapi.Generator {
	opts := []openapi.Option{openapi.WithErrorModel(ErrorResponse{})}
	if version != "" {
		opts = append(opts, openapi.WithVersion(version))
	}
	g := openapi.NewGenerator(opts...)

	g.RegisterOperation(openapi.Operation{
		Method:      http.MethodGet,
		Path:        "/health",
		OperationID: "health",
		Summary:     "Liveness check",
		Tag:         "Health",
		Response:    HealthResponse{},
	})
	g.RegisterOperation(openapi.Operation{
		Method:      http.MethodGet,
		Path:        "/ready",
		OperationID: "ready",
		Summary:     "Readiness check",
		Tag:         "Health",
		Response:    ReadyResponse{},
		Errors:      map[int]string{http.StatusServiceUnavailable: "Plan history unavailable"},
	})
	g.RegisterOperation(openapi.Operation{
		Method:      http.MethodPost,
		Path:        "/api/v1/services/{service}/plans",
		OperationID: "createPlan",
		Summary:     "Plan a deployment action against the service's current state",
		Tag:         "Plans",
		PathParams:  []string{"service"},
		Request:     CreatePlanRequest{},
		Response:    PlanResponse{},
		Status:      http.StatusCreated,
		Errors: map[int]string{
			http.StatusBadRequest:          "Invalid request parameters",
			http.StatusUnauthorized:        "Caller identity required",
			http.StatusForbidden:           "Invalid gateway secret",
			http.StatusConflict:            "Action is not legal from the current state",
			http.StatusInternalServerError: "Plan could not be recorded",
		},
	})
	g.RegisterOperation(openapi.Operation{
		Method:      http.MethodGet,
		Path:        "/api/v1/services/{service}/plans",
		OperationID: "listPlans",
		Summary:     "List the service's plans, newest first",
		Tag:         "Plans",
		PathParams:  []string{"service"},
		QueryParams: []string{"limit", "offset"},
		Response:    ListPlansResponse{},
		Errors: map[int]string{
			http.StatusBadRequest:   "Invalid service name",
			http.StatusUnauthorized: "Caller identity required",
			http.StatusForbidden:    "Invalid gateway secret",
		},
	})
	g.RegisterOperation(openapi.Operation{
		Method:      http.MethodGet,
		Path:        "/api/v1/plans/{id}",
		OperationID: "getPlan",
		Summary:     "Get a plan",
		Tag:         "Plans",
		PathParams:  []string{"id"},
		Response:    PlanResponse{},
		Errors: map[int]string{
			http.StatusNotFound:     "Plan not found",
			http.StatusUnauthorized: "Caller identity required",
			http.StatusForbidden:    "Invalid gateway secret",
		},
	})

	return g
}
