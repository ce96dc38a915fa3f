// Package order defines the Order aggregate: a request that certain tests be
// run on a Sample, shared between the LIS and instrument sides.
package order

import (
	"time"

	"github.com/hedgehog/ivdmiddleware/internal/domain/domainerr"
)

type Priority string

const (
	PriorityRoutine  Priority = "routine"
	PriorityStat     Priority = "stat"
	PriorityCritical Priority = "critical"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusCancelled  Status = "cancelled"
)

// Order is a request that certain tests be run on a Sample.
type Order struct {
	ID                   string     `json:"id" db:"id"`
	TenantID             string     `json:"tenant_id" db:"tenant_id"`
	ExternalLISOrderID   string     `json:"external_lis_order_id" db:"external_lis_order_id"`
	SampleID             string     `json:"sample_id" db:"sample_id"`
	PatientID            string     `json:"patient_id" db:"patient_id"`
	TestCodes            []string   `json:"test_codes" db:"test_codes"`
	Priority             Priority   `json:"priority" db:"priority"`
	AssignedInstrumentID *string    `json:"assigned_instrument_id,omitempty" db:"assigned_instrument_id"`
	AssignedAt           *time.Time `json:"assigned_at,omitempty" db:"assigned_at"`
	CompletedAt          *time.Time `json:"completed_at,omitempty" db:"completed_at"`
	Status               Status     `json:"status" db:"status"`
	CreatedAt            time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at" db:"updated_at"`
}

type Patch struct {
	Priority             *Priority
	AssignedInstrumentID *string
	AssignedAt           *time.Time
	CompletedAt          *time.Time
	Status               *Status
}

func (o *Order) Validate() error {
	if o.ExternalLISOrderID == "" {
		return domainerr.New("external_lis_order_id is required")
	}
	if o.SampleID == "" {
		return domainerr.New("sample_id is required")
	}
	if len(o.TestCodes) == 0 {
		return domainerr.New("test_codes must be non-empty")
	}
	switch o.Priority {
	case PriorityRoutine, PriorityStat, PriorityCritical:
	default:
		return domainerr.New("priority must be one of routine, stat, critical")
	}
	return nil
}

// CanAssignToInstrument reports whether the order may be assigned: only
// pending orders may be assigned to an instrument.
func (o *Order) CanAssignToInstrument() bool {
	return o.Status == StatusPending
}

func (o *Order) Apply(p Patch) {
	if p.Priority != nil {
		o.Priority = *p.Priority
	}
	if p.AssignedInstrumentID != nil {
		o.AssignedInstrumentID = p.AssignedInstrumentID
	}
	if p.AssignedAt != nil {
		o.AssignedAt = p.AssignedAt
	}
	if p.CompletedAt != nil {
		o.CompletedAt = p.CompletedAt
	}
	if p.Status != nil {
		o.Status = *p.Status
	}
}
