// Package result defines the Result aggregate: one measurement for one test
// code belonging to a Sample, and the two independent status machines that
// govern it (verification and upload).
package result

import (
	"time"

	"github.com/hedgehog/ivdmiddleware/internal/domain/domainerr"
)

type VerificationStatus string

const (
	VerificationPending     VerificationStatus = "pending"
	VerificationVerified    VerificationStatus = "verified"
	VerificationNeedsReview VerificationStatus = "needs_review"
	VerificationRejected    VerificationStatus = "rejected"
)

// Terminal reports whether no further verification-status write may succeed.
func (s VerificationStatus) Terminal() bool {
	return s == VerificationVerified || s == VerificationRejected
}

type UploadStatus string

const (
	UploadPending UploadStatus = "pending"
	UploadSent    UploadStatus = "sent"
	UploadFailed  UploadStatus = "failed"
)

type VerificationMethod string

const (
	MethodAuto   VerificationMethod = "auto"
	MethodManual VerificationMethod = "manual"
)

// Result is one measurement for one test code belonging to a Sample.
type Result struct {
	ID                   string              `json:"id" db:"id"`
	TenantID             string              `json:"tenant_id" db:"tenant_id"`
	ExternalLISResultID  string              `json:"external_lis_result_id" db:"external_lis_result_id"`
	SampleID             string              `json:"sample_id" db:"sample_id"`
	OrderID              string              `json:"order_id" db:"order_id"`
	TestCode             string              `json:"test_code" db:"test_code"`
	TestName             string              `json:"test_name" db:"test_name"`
	Value                string              `json:"value" db:"value"`
	Unit                 string              `json:"unit" db:"unit"`
	ReferenceRangeLow    *float64            `json:"reference_range_low,omitempty" db:"reference_range_low"`
	ReferenceRangeHigh   *float64            `json:"reference_range_high,omitempty" db:"reference_range_high"`
	LISFlags             string              `json:"lis_flags" db:"lis_flags"`
	VerificationStatus   VerificationStatus  `json:"verification_status" db:"verification_status"`
	VerificationMethod   *VerificationMethod `json:"verification_method,omitempty" db:"verification_method"`
	UploadStatus         UploadStatus        `json:"upload_status" db:"upload_status"`
	UploadFailureCount   int                 `json:"upload_failure_count" db:"upload_failure_count"`
	UploadFailureReason  *string             `json:"upload_failure_reason,omitempty" db:"upload_failure_reason"`
	SentToLISAt          *time.Time          `json:"sent_to_lis_at,omitempty" db:"sent_to_lis_at"`
	CreatedAt            time.Time           `json:"created_at" db:"created_at"`
	UpdatedAt            time.Time           `json:"updated_at" db:"updated_at"`
}

func (r *Result) Validate() error {
	if r.ExternalLISResultID == "" {
		return domainerr.New("external_lis_result_id is required")
	}
	if r.SampleID == "" {
		return domainerr.New("sample_id is required")
	}
	if r.TestCode == "" {
		return domainerr.New("test_code is required")
	}
	if r.ReferenceRangeLow != nil && r.ReferenceRangeHigh != nil && *r.ReferenceRangeLow > *r.ReferenceRangeHigh {
		return domainerr.New("reference_range_low must be <= reference_range_high")
	}
	return nil
}

// SetVerificationOutcome applies the verification engine's decision,
// returning an error if the result is already terminal (immutability).
func (r *Result) SetVerificationOutcome(status VerificationStatus, method VerificationMethod) error {
	if r.VerificationStatus.Terminal() {
		return domainerr.New("result verification_status is terminal and cannot be modified")
	}
	r.VerificationStatus = status
	// method stays unset for needs_review: it is manual-pending until a
	// reviewer actually decides it.
	if status == VerificationVerified || status == VerificationRejected {
		r.VerificationMethod = &method
	}
	return nil
}

// MarkSent transitions upload_status to sent, clearing failure bookkeeping.
func (r *Result) MarkSent(at time.Time) {
	r.UploadStatus = UploadSent
	r.SentToLISAt = &at
	r.UploadFailureCount = 0
	r.UploadFailureReason = nil
}

// MarkUploadFailed increments the failure streak counter.
func (r *Result) MarkUploadFailed(reason string) {
	r.UploadStatus = UploadFailed
	r.UploadFailureCount++
	r.UploadFailureReason = &reason
}

// UploadEligible reports whether the result qualifies for the outbound
// upload projection given the tenant's LISConfig upload-settings flags.
func (r *Result) UploadEligible(uploadVerified, uploadRejected bool) bool {
	if r.UploadStatus != UploadPending {
		return false
	}
	switch r.VerificationStatus {
	case VerificationVerified:
		return uploadVerified
	case VerificationRejected:
		return uploadRejected
	default:
		return false
	}
}
