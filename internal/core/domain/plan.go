package domain

import (
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// Plan Record
// =============================================================================

// PlanStatus is the outcome of a planning request.
type PlanStatus string

const (
	PlanStatusPlanned  PlanStatus = "planned"
	PlanStatusRejected PlanStatus = "rejected"
)

// PlanRecord is one planning request with its inputs and outcome, as kept in
// the plan history.
type PlanRecord struct {
	ID      string            `json:"id" yaml:"id"`
	Service string            `json:"service" yaml:"service"`
	Request DeploymentRequest `json:"request" yaml:"request"`
	Current DeploymentState   `json:"current" yaml:"current"`

	// Future is nil when the request was rejected.
	Future *FutureDeploymentState `json:"future,omitempty" yaml:"future,omitempty"`

	Status       PlanStatus `json:"status" yaml:"status"`
	ErrorMessage string     `json:"error_message,omitempty" yaml:"error_message,omitempty"`

	// SnapshotSerial is the serial of the state snapshot the plan was
	// computed from, 0 when there was none.
	SnapshotSerial int64 `json:"snapshot_serial" yaml:"snapshot_serial"`

	// RequestedBy is the caller that asked for the plan, empty when anonymous.
	RequestedBy string    `json:"requested_by,omitempty" yaml:"requested_by,omitempty"`
	CreatedAt   time.Time `json:"created_at" yaml:"created_at"`
}

// NewPlanRecord creates a record for a request against the current state.
func NewPlanRecord(service string, req DeploymentRequest, current DeploymentState) *PlanRecord {
	return &PlanRecord{
		ID:        uuid.New().String(),
		Service:   service,
		Request:   req,
		Current:   current,
		CreatedAt: time.Now().UTC(),
	}
}

// Accept records the computed future state.
func (p *PlanRecord) Accept(future FutureDeploymentState) {
	p.Future = &future
	p.Status = PlanStatusPlanned
	p.ErrorMessage = ""
}

// Reject records why no plan could be made.
func (p *PlanRecord) Reject(err error) {
	p.Future = nil
	p.Status = PlanStatusRejected
	p.ErrorMessage = err.Error()
}
