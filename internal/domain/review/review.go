// Package review defines the Review aggregate: a sample-scoped decision
// record created when any result of that sample requires manual review.
package review

import (
	"time"

	"github.com/hedgehog/ivdmiddleware/internal/domain/domainerr"
)

type State string

const (
	StatePending     State = "pending"
	StateInProgress  State = "in_progress"
	StateApproved    State = "approved"
	StateRejected    State = "rejected"
	StateEscalated   State = "escalated"
)

// Terminal reports whether no further write to this Review may succeed.
func (s State) Terminal() bool {
	return s == StateApproved || s == StateRejected
}

type Decision string

const (
	DecisionApproveAll Decision = "approve_all"
	DecisionRejectAll  Decision = "reject_all"
	DecisionPartial    Decision = "partial"
)

// transitions enumerates the state machine
var transitions = map[State]map[State]bool{
	StatePending:    {StateInProgress: true, StateApproved: true, StateRejected: true, StateEscalated: true},
	StateInProgress: {StateApproved: true, StateRejected: true, StateEscalated: true},
	StateEscalated:  {StateApproved: true, StateRejected: true},
}

// CanTransition reports whether from -> to is a legal state machine edge.
func CanTransition(from, to State) bool {
	return transitions[from][to]
}

// Review is a sample-scoped decision record.
type Review struct {
	ID               string     `json:"id" db:"id"`
	TenantID         string     `json:"tenant_id" db:"tenant_id"`
	SampleID         string     `json:"sample_id" db:"sample_id"`
	State            State      `json:"state" db:"state"`
	Decision         *Decision  `json:"decision,omitempty" db:"decision"`
	ReviewerUserID   *string    `json:"reviewer_user_id,omitempty" db:"reviewer_user_id"`
	Comments         *string    `json:"comments,omitempty" db:"comments"`
	EscalationReason *string    `json:"escalation_reason,omitempty" db:"escalation_reason"`
	SubmittedAt      *time.Time `json:"submitted_at,omitempty" db:"submitted_at"`
	CompletedAt      *time.Time `json:"completed_at,omitempty" db:"completed_at"`
	CreatedAt        time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at" db:"updated_at"`
}

func (r *Review) Validate() error {
	if r.SampleID == "" {
		return domainerr.New("sample_id is required")
	}
	return nil
}

// EnsureMutable fails any mutation attempted on a terminal review.
func (r *Review) EnsureMutable() error {
	if r.State.Terminal() {
		return domainerr.New("review is in a terminal state and cannot be modified")
	}
	return nil
}

// Transition moves the review to `to`, failing if the edge is not legal.
func (r *Review) Transition(to State) error {
	if err := r.EnsureMutable(); err != nil {
		return err
	}
	if !CanTransition(r.State, to) {
		return domainerr.New("illegal review state transition")
	}
	r.State = to
	return nil
}

// Complete finalizes the review with a decision, stamping submitted_at (if
// unset) and completed_at.
func (r *Review) Complete(state State, decision Decision, now time.Time) error {
	if err := r.Transition(state); err != nil {
		return err
	}
	r.Decision = &decision
	if r.SubmittedAt == nil {
		r.SubmittedAt = &now
	}
	r.CompletedAt = &now
	return nil
}
