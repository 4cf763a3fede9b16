// Package planning runs one planning invocation end to end: read the
// service's snapshot once, plan with the core, and record the outcome.
package planning

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/artpar/bgplan/internal/core/auth"
	"github.com/artpar/bgplan/internal/core/bluegreen"
	"github.com/artpar/bgplan/internal/core/domain"
	"github.com/artpar/bgplan/internal/shell/snapshot"
	"github.com/artpar/bgplan/internal/shell/store"
)

// ErrRecordFailed is returned when a plan was computed but could not be
// written to the history.
var ErrRecordFailed = errors.New("failed to record plan")

// LocatorFunc maps a service to the location of its snapshot.
type LocatorFunc func(service string) snapshot.Locator

// Service plans deployments for any number of services. It is safe for
// concurrent use; invocations share only the snapshot source and the store.
type Service struct {
	loader *snapshot.Loader
	locate LocatorFunc
	store  store.Store
	logger *slog.Logger
}

// Config holds the dependencies of a Service.
type Config struct {
	Loader  *snapshot.Loader
	Locator LocatorFunc

	// Store is optional; without it plans are not recorded.
	Store  store.Store
	Logger *slog.Logger
}

// NewService creates a planning service.
func NewService(cfg Config) *Service {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		loader: cfg.Loader,
		locate: cfg.Locator,
		store:  cfg.Store,
		logger: logger.With("component", "planning"),
	}
}

// Plan computes the future state of service for req.
//
// The returned record is never nil unless the service name is invalid. A
// rejected request returns the record (status rejected) together with the
// core error, which wraps bluegreen.ErrInvalidRequest or
// bluegreen.ErrIllegalStateTransition.
func (s *Service) Plan(ctx context.Context, service string, req domain.DeploymentRequest) (*domain.PlanRecord, error) {
	if err := bluegreen.ValidateService(service); err != nil {
		return nil, err
	}

	caller := auth.FromContext(ctx).Caller()
	logger := s.logger.With("service", service, "action", string(req.Action), "requested_by", caller)

	loaded := s.loader.Load(ctx, service, s.locate(service))

	record := domain.NewPlanRecord(service, req, loaded.State)
	record.SnapshotSerial = loaded.Serial
	record.RequestedBy = caller

	future, planErr := bluegreen.Plan(service, loaded.State, req)
	if planErr != nil {
		record.Reject(planErr)
		logger.Info("plan rejected",
			"plan_id", record.ID,
			"presence", loaded.State.Presence().String(),
			"error", planErr,
		)
	} else {
		record.Accept(future)
		logger.Info("plan computed",
			"plan_id", record.ID,
			"presence", loaded.State.Presence().String(),
			"future_presence", future.Presence().String(),
			"staging_slot", string(future.StagingSlot),
		)
	}

	if s.store != nil {
		if err := s.store.CreatePlan(ctx, record); err != nil {
			logger.Error("failed to record plan", "plan_id", record.ID, "error", err)
			return record, fmt.Errorf("%w: %w", ErrRecordFailed, err)
		}
	}

	return record, planErr
}

// Get returns a recorded plan.
func (s *Service) Get(ctx context.Context, id string) (*domain.PlanRecord, error) {
	if s.store == nil {
		return nil, store.NewStoreError("GetPlan", "plan", id, "plan history is disabled", store.ErrNotFound)
	}
	return s.store.GetPlan(ctx, id)
}

// History lists one page of the recorded plans of service, newest first,
// with the number of plans recorded for service in total.
func (s *Service) History(ctx context.Context, service string, opts store.ListOptions) ([]domain.PlanRecord, int, error) {
	if s.store == nil {
		return []domain.PlanRecord{}, 0, nil
	}
	plans, err := s.store.ListPlansByService(ctx, service, opts)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.store.CountPlansByService(ctx, service)
	if err != nil {
		return nil, 0, err
	}
	return plans, total, nil
}

// Ready reports whether the service's dependencies are usable.
func (s *Service) Ready(ctx context.Context) error {
	if s.store == nil {
		return nil
	}
	return s.store.Ping(ctx)
}
