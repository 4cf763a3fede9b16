// Package api provides HTTP handlers for the bgplan API.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/artpar/bgplan/internal/core/bluegreen"
	"github.com/artpar/bgplan/internal/core/domain"
	"github.com/artpar/bgplan/internal/core/render"
	apimw "github.com/artpar/bgplan/internal/shell/api/middleware"
	"github.com/artpar/bgplan/internal/shell/api/openapi"
	"github.com/artpar/bgplan/internal/shell/store"
)

// =============================================================================
// Handler
// =============================================================================

// Planner is the planning service the handlers drive.
type Planner interface {
	Plan(ctx context.Context, service string, req domain.DeploymentRequest) (*domain.PlanRecord, error)
	Get(ctx context.Context, id string) (*domain.PlanRecord, error)
	History(ctx context.Context, service string, opts store.ListOptions) ([]domain.PlanRecord, int, error)
	Ready(ctx context.Context) error
}

// Handler provides HTTP handlers for the API.
type Handler struct {
	planner     Planner
	docs        *openapi.Generator
	logger      *slog.Logger
	auth        apimw.AuthConfig
	requireAuth bool
}

// Option configures a Handler.
type Option func(*Handler)

// WithAuth sets the gateway secret checked on /api/v1 routes.
func WithAuth(cfg apimw.AuthConfig) Option {
	return func(h *Handler) {
		h.auth = cfg
	}
}

// WithRequireAuth refuses /api/v1 requests that carry no caller identity.
func WithRequireAuth() Option {
	return func(h *Handler) {
		h.requireAuth = true
	}
}

// NewHandler creates a new API handler.
func NewHandler(p Planner, l *slog.Logger, version string, opts ...Option) *Handler {
	if l == nil {
		l = slog.Default()
	}
	h := &Handler{
		planner: p,
		docs:    newDocs(version),
		logger:  l,
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.auth.Logger == nil {
		h.auth.Logger = l
	}
	return h
}

// Routes returns the router with all routes configured.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(apimw.RequestLogger(h.logger))
	r.Use(h.jsonContentType)
	r.Use(h.requestIDHeader)

	// Health endpoints
	r.Get("/health", h.handleHealth)
	r.Get("/ready", h.handleReady)

	r.Get("/openapi.json", h.docs.Handler())

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(apimw.NewAuthMiddleware(h.auth).Handler)
		if h.requireAuth {
			r.Use(apimw.RequireAuth(h.logger))
		}

		r.Route("/services/{service}/plans", func(r chi.Router) {
			r.Post("/", h.handleCreatePlan)
			r.Get("/", h.handleListPlans)
		})
		r.Get("/plans/{id}", h.handleGetPlan)
	})

	return r
}

// =============================================================================
// Middleware
// =============================================================================

// jsonContentType sets Content-Type header to application/json.
func (h *Handler) jsonContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}

// requestIDHeader copies the request ID to the response header.
func (h *Handler) requestIDHeader(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if reqID := middleware.GetReqID(r.Context()); reqID != "" {
			w.Header().Set("X-Request-ID", reqID)
		}
		next.ServeHTTP(w, r)
	})
}

// =============================================================================
// Health Handlers
// =============================================================================

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, HealthResponse{Status: "healthy"})
}

func (h *Handler) handleReady(w http.ResponseWriter, r *http.Request) {
	checks := make(map[string]string)

	if err := h.planner.Ready(r.Context()); err != nil {
		h.logger.Warn("readiness check failed", "error", err)
		checks["database"] = "failed"
		h.writeJSON(w, http.StatusServiceUnavailable, ReadyResponse{
			Status: "not_ready",
			Checks: checks,
		})
		return
	}
	checks["database"] = "ok"

	h.writeJSON(w, http.StatusOK, ReadyResponse{
		Status: "ready",
		Checks: checks,
	})
}

// =============================================================================
// Plan Handlers
// =============================================================================

func (h *Handler) handleCreatePlan(w http.ResponseWriter, r *http.Request) {
	service := chi.URLParam(r, "service")

	var req CreatePlanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON", CodeInvalidRequest)
		return
	}

	record, err := h.planner.Plan(r.Context(), service, domain.DeploymentRequest{
		Action:            domain.Action(req.Action),
		DockerImageDigest: req.DockerImageDigest,
		TaskDefinitionArn: req.TaskDefinitionArn,
	})
	if err != nil {
		h.writePlanError(w, record, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, planToResponse(record))
}

func (h *Handler) handleListPlans(w http.ResponseWriter, r *http.Request) {
	service := chi.URLParam(r, "service")
	if err := bluegreen.ValidateService(service); err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error(), CodeInvalidRequest)
		return
	}

	opts := store.DefaultListOptions()
	if limit := r.URL.Query().Get("limit"); limit != "" {
		if l, err := strconv.Atoi(limit); err == nil {
			opts.Limit = l
		}
	}
	if offset := r.URL.Query().Get("offset"); offset != "" {
		if o, err := strconv.Atoi(offset); err == nil {
			opts.Offset = o
		}
	}
	opts = opts.Normalize()

	plans, total, err := h.planner.History(r.Context(), service, opts)
	if err != nil {
		h.logger.Error("failed to list plans", "service", service, "error", err)
		h.writeError(w, http.StatusInternalServerError, "failed to list plans", CodeInternalError)
		return
	}

	resp := ListPlansResponse{
		Plans:  make([]PlanResponse, 0, len(plans)),
		Total:  total,
		Limit:  opts.Limit,
		Offset: opts.Offset,
	}
	for i := range plans {
		resp.Plans = append(resp.Plans, planToResponse(&plans[i]))
	}

	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleGetPlan(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	record, err := h.planner.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			h.writeError(w, http.StatusNotFound, "plan not found", CodePlanNotFound)
			return
		}
		h.logger.Error("failed to get plan", "id", id, "error", err)
		h.writeError(w, http.StatusInternalServerError, "failed to get plan", CodeInternalError)
		return
	}

	h.writeJSON(w, http.StatusOK, planToResponse(record))
}

// =============================================================================
// Helpers
// =============================================================================

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("failed to encode JSON", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message, code string) {
	h.writeJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}

// writePlanError maps a planning failure to its status code.
func (h *Handler) writePlanError(w http.ResponseWriter, record *domain.PlanRecord, err error) {
	resp := ErrorResponse{Error: err.Error()}
	if record != nil {
		resp.PlanID = record.ID
	}

	var status int
	var reqErr *bluegreen.RequestError
	switch {
	case errors.Is(err, bluegreen.ErrInvalidRequest):
		status, resp.Code = http.StatusBadRequest, CodeInvalidRequest
		if errors.As(err, &reqErr) {
			resp.Field = reqErr.Field
		}
	case errors.Is(err, bluegreen.ErrIllegalStateTransition):
		status, resp.Code = http.StatusConflict, CodeIllegalStateTransition
	default:
		h.logger.Error("failed to plan", "error", err)
		status, resp.Code = http.StatusInternalServerError, CodeInternalError
		resp.Error = "failed to plan"
	}

	h.writeJSON(w, status, resp)
}

func planToResponse(p *domain.PlanRecord) PlanResponse {
	resp := PlanResponse{
		ID:                p.ID,
		Service:           p.Service,
		Action:            string(p.Request.Action),
		DockerImageDigest: p.Request.DockerImageDigest,
		TaskDefinitionArn: p.Request.TaskDefinitionArn,
		Status:            string(p.Status),
		ErrorMessage:      p.ErrorMessage,
		SnapshotSerial:    p.SnapshotSerial,
		RequestedBy:       p.RequestedBy,
		Current:           p.Current,
		Future:            p.Future,
		CreatedAt:         p.CreatedAt,
	}
	if p.Future != nil {
		resp.Variables = render.Variables(p.Service, *p.Future)
	}
	return resp
}
