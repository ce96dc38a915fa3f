// Package sample defines the Sample aggregate: a physical specimen received
// from the LIS.
package sample

import (
	"time"

	"github.com/hedgehog/ivdmiddleware/internal/domain/domainerr"
)

// Status is the lifecycle state of a Sample.
type Status string

const (
	StatusPending     Status = "pending"
	StatusVerified    Status = "verified"
	StatusNeedsReview Status = "needs_review"
	StatusRejected    Status = "rejected"
)

// Sample is a physical specimen received from the LIS.
type Sample struct {
	ID            string    `json:"id" db:"id"`
	TenantID      string    `json:"tenant_id" db:"tenant_id"`
	ExternalLISID string    `json:"external_lis_id" db:"external_lis_id"`
	PatientID     string    `json:"patient_id" db:"patient_id"`
	SpecimenType  string    `json:"specimen_type" db:"specimen_type"`
	CollectionDate time.Time `json:"collection_date" db:"collection_date"`
	ReceivedDate  time.Time `json:"received_date" db:"received_date"`
	Status        Status    `json:"status" db:"status"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time `json:"updated_at" db:"updated_at"`
}

// Patch carries the fields an update operation may mutate. id, tenant_id and
// created_at are never patchable, per the design note on explicit mutable
// field lists.
type Patch struct {
	PatientID      *string
	SpecimenType   *string
	CollectionDate *time.Time
	ReceivedDate   *time.Time
	Status         *Status
}

// Validate checks creation-time invariants: collection_date <= received_date.
func (s *Sample) Validate() error {
	if s.ExternalLISID == "" {
		return domainerr.New("external_lis_id is required")
	}
	if s.PatientID == "" {
		return domainerr.New("patient_id is required")
	}
	if !s.CollectionDate.IsZero() && !s.ReceivedDate.IsZero() && s.CollectionDate.After(s.ReceivedDate) {
		return domainerr.New("collection_date must be on or before received_date")
	}
	return nil
}

// Apply mutates the patchable fields in place.
func (s *Sample) Apply(p Patch) {
	if p.PatientID != nil {
		s.PatientID = *p.PatientID
	}
	if p.SpecimenType != nil {
		s.SpecimenType = *p.SpecimenType
	}
	if p.CollectionDate != nil {
		s.CollectionDate = *p.CollectionDate
	}
	if p.ReceivedDate != nil {
		s.ReceivedDate = *p.ReceivedDate
	}
	if p.Status != nil {
		s.Status = *p.Status
	}
}
