// Package resultdecision defines ResultDecision: an immutable per-result
// verdict recorded inside a Review. Once written a ResultDecision is never
// updated — the repository exposes no update operation.
package resultdecision

import (
	"time"

	"github.com/hedgehog/ivdmiddleware/internal/domain/domainerr"
)

type Decision string

const (
	DecisionApproved Decision = "approved"
	DecisionRejected Decision = "rejected"
)

// ResultDecision is an immutable per-result verdict inside a Review.
type ResultDecision struct {
	ID        string    `json:"id" db:"id"`
	TenantID  string    `json:"tenant_id" db:"tenant_id"`
	ReviewID  string    `json:"review_id" db:"review_id"`
	ResultID  string    `json:"result_id" db:"result_id"`
	Decision  Decision  `json:"decision" db:"decision"`
	Comments  *string   `json:"comments,omitempty" db:"comments"`
	DecidedAt time.Time `json:"decided_at" db:"decided_at"`
}

func (d *ResultDecision) Validate() error {
	if d.ReviewID == "" {
		return domainerr.New("review_id is required")
	}
	if d.ResultID == "" {
		return domainerr.New("result_id is required")
	}
	if d.Decision == DecisionRejected && (d.Comments == nil || *d.Comments == "") {
		return domainerr.New("comments are required when rejecting a result")
	}
	switch d.Decision {
	case DecisionApproved, DecisionRejected:
	default:
		return domainerr.New("decision must be approved or rejected")
	}
	return nil
}
