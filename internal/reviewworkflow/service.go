// Package reviewworkflow implements the manual review workflow: creating a
// Review when a sample has results the verification engine could not
// auto-verify, recording per-result approve/reject decisions, escalating to
// a pathologist, and auto-completing the Review and its Sample's status once
// every needs_review result has a decision. The audit-trail ResultDecision
// rows it writes are immutable by construction (the repository exposes no
// update method).
package reviewworkflow

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hedgehog/ivdmiddleware/internal/apperrors"
	"github.com/hedgehog/ivdmiddleware/internal/domain/result"
	"github.com/hedgehog/ivdmiddleware/internal/domain/resultdecision"
	"github.com/hedgehog/ivdmiddleware/internal/domain/review"
	"github.com/hedgehog/ivdmiddleware/internal/domain/sample"
	"github.com/hedgehog/ivdmiddleware/internal/repository"
	"github.com/hedgehog/ivdmiddleware/internal/reviewworkflow/samplelock"
)

// Service implements the review workflow described in package doc.
type Service struct {
	Reviews   repository.ReviewRepository
	Decisions repository.ResultDecisionRepository
	Results   repository.ResultRepository
	Samples   repository.SampleRepository

	locks *samplelock.Striped
}

func NewService(reviews repository.ReviewRepository, decisions repository.ResultDecisionRepository, results repository.ResultRepository, samples repository.SampleRepository) *Service {
	return &Service{
		Reviews:   reviews,
		Decisions: decisions,
		Results:   results,
		Samples:   samples,
		locks:     samplelock.New(),
	}
}

// CreateReview opens a review for a sample; reviewerUserID, if set, puts the
// review straight into in_progress instead of pending.
func (s *Service) CreateReview(ctx context.Context, tenantID, sampleID string, reviewerUserID *string) (*review.Review, error) {
	if _, err := s.Samples.GetByID(ctx, tenantID, sampleID); err != nil {
		return nil, err
	}
	if existing, err := s.Reviews.GetBySampleID(ctx, tenantID, sampleID); err == nil && existing != nil {
		return nil, apperrors.Conflict(fmt.Sprintf("review already exists for sample %q", sampleID))
	}

	state := review.StatePending
	if reviewerUserID != nil {
		state = review.StateInProgress
	}
	r := &review.Review{
		TenantID:       tenantID,
		SampleID:       sampleID,
		State:          state,
		ReviewerUserID: reviewerUserID,
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	if err := s.Reviews.Create(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

// ReviewDetail is the aggregate read shape returned by GetReview.
type ReviewDetail struct {
	Review    *review.Review
	Decisions []*resultdecision.ResultDecision
}

func (s *Service) GetReview(ctx context.Context, tenantID, reviewID string) (*ReviewDetail, error) {
	r, err := s.Reviews.GetByID(ctx, tenantID, reviewID)
	if err != nil {
		return nil, err
	}
	decisions, err := s.Decisions.ListByReview(ctx, tenantID, reviewID)
	if err != nil {
		return nil, err
	}
	return &ReviewDetail{Review: r, Decisions: decisions}, nil
}

func (s *Service) ListQueue(ctx context.Context, tenantID string, filter repository.ReviewFilter, page repository.Page) ([]*review.Review, int, error) {
	if filter.EscalatedOnly {
		escalated := review.StateEscalated
		filter.State = &escalated
	}
	return s.Reviews.List(ctx, tenantID, filter, page)
}

// ApproveSample approves every needs_review result on the review's sample in
// one pass, completing the review as approve_all.
func (s *Service) ApproveSample(ctx context.Context, tenantID, reviewID, userID string, comments *string) (*review.Review, error) {
	unlock := s.lockForReview(ctx, tenantID, reviewID)
	defer unlock()

	r, err := s.loadMutable(ctx, tenantID, reviewID)
	if err != nil {
		return nil, err
	}
	if !review.CanTransition(r.State, review.StateApproved) {
		return nil, apperrors.InvalidStateTransition(fmt.Sprintf("cannot transition review from %s to %s", r.State, review.StateApproved))
	}

	pending, err := s.resultsNeedingReview(ctx, tenantID, r.SampleID)
	if err != nil {
		return nil, err
	}
	for _, res := range pending {
		if err := s.decideResultInternal(ctx, tenantID, reviewID, res, resultdecision.DecisionApproved, comments); err != nil {
			return nil, err
		}
	}

	now := time.Now()
	decision := review.DecisionApproveAll
	if err := r.Complete(review.StateApproved, decision, now); err != nil {
		return nil, err
	}
	r.Comments = comments
	if err := s.Reviews.Update(ctx, r); err != nil {
		return nil, err
	}
	if err := s.setSampleStatus(ctx, tenantID, r.SampleID, sample.StatusVerified); err != nil {
		return nil, err
	}
	return r, nil
}

// RejectSample rejects every needs_review result on the review's sample in
// one pass, completing the review as reject_all.
func (s *Service) RejectSample(ctx context.Context, tenantID, reviewID, userID string, comments *string) (*review.Review, error) {
	if err := requireComments(comments); err != nil {
		return nil, err
	}

	unlock := s.lockForReview(ctx, tenantID, reviewID)
	defer unlock()

	r, err := s.loadMutable(ctx, tenantID, reviewID)
	if err != nil {
		return nil, err
	}
	if !review.CanTransition(r.State, review.StateRejected) {
		return nil, apperrors.InvalidStateTransition(fmt.Sprintf("cannot transition review from %s to %s", r.State, review.StateRejected))
	}

	pending, err := s.resultsNeedingReview(ctx, tenantID, r.SampleID)
	if err != nil {
		return nil, err
	}
	for _, res := range pending {
		if err := s.decideResultInternal(ctx, tenantID, reviewID, res, resultdecision.DecisionRejected, comments); err != nil {
			return nil, err
		}
	}

	now := time.Now()
	if err := r.Complete(review.StateRejected, review.DecisionRejectAll, now); err != nil {
		return nil, err
	}
	r.Comments = comments
	if err := s.Reviews.Update(ctx, r); err != nil {
		return nil, err
	}
	if err := s.setSampleStatus(ctx, tenantID, r.SampleID, sample.StatusRejected); err != nil {
		return nil, err
	}
	return r, nil
}

// ApproveResult records an approval for a single result inside an
// in-progress review, then auto-completes the review if that was the last
// needs_review result.
func (s *Service) ApproveResult(ctx context.Context, tenantID, reviewID, resultID, userID string, comments *string) (*resultdecision.ResultDecision, error) {
	unlock := s.lockForReview(ctx, tenantID, reviewID)
	defer unlock()

	r, err := s.loadMutable(ctx, tenantID, reviewID)
	if err != nil {
		return nil, err
	}
	res, err := s.loadResultForReview(ctx, tenantID, r, resultID)
	if err != nil {
		return nil, err
	}

	decision, err := s.decideResultInternal(ctx, tenantID, reviewID, res, resultdecision.DecisionApproved, comments)
	if err != nil {
		return nil, err
	}
	if err := s.checkAndCompleteReview(ctx, tenantID, r); err != nil {
		return nil, err
	}
	return decision, nil
}

// RejectResult records a rejection for a single result inside an
// in-progress review, then auto-completes the review if that was the last
// needs_review result.
func (s *Service) RejectResult(ctx context.Context, tenantID, reviewID, resultID, userID string, comments *string) (*resultdecision.ResultDecision, error) {
	if err := requireComments(comments); err != nil {
		return nil, err
	}

	unlock := s.lockForReview(ctx, tenantID, reviewID)
	defer unlock()

	r, err := s.loadMutable(ctx, tenantID, reviewID)
	if err != nil {
		return nil, err
	}
	res, err := s.loadResultForReview(ctx, tenantID, r, resultID)
	if err != nil {
		return nil, err
	}

	decision, err := s.decideResultInternal(ctx, tenantID, reviewID, res, resultdecision.DecisionRejected, comments)
	if err != nil {
		return nil, err
	}
	if err := s.checkAndCompleteReview(ctx, tenantID, r); err != nil {
		return nil, err
	}
	return decision, nil
}

// EscalateReview hands a review to a pathologist, leaving its results
// untouched until the pathologist approves or rejects.
func (s *Service) EscalateReview(ctx context.Context, tenantID, reviewID, userID, reason string) (*review.Review, error) {
	if strings.TrimSpace(reason) == "" {
		return nil, apperrors.InvalidInput("escalation reason is required")
	}

	unlock := s.lockForReview(ctx, tenantID, reviewID)
	defer unlock()

	r, err := s.loadMutable(ctx, tenantID, reviewID)
	if err != nil {
		return nil, err
	}
	if !review.CanTransition(r.State, review.StateEscalated) {
		return nil, apperrors.InvalidStateTransition(fmt.Sprintf("cannot transition review from %s to %s", r.State, review.StateEscalated))
	}
	r.State = review.StateEscalated
	r.EscalationReason = &reason
	now := time.Now()
	if r.SubmittedAt == nil {
		r.SubmittedAt = &now
	}
	if err := s.Reviews.Update(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

func (s *Service) lockForReview(ctx context.Context, tenantID, reviewID string) func() {
	return s.locks.Lock(tenantID, reviewID)
}

// requireComments enforces that a rejection carries a non-empty rationale.
func requireComments(comments *string) error {
	if comments == nil || strings.TrimSpace(*comments) == "" {
		return apperrors.InvalidInput("rejection comments are required")
	}
	return nil
}

// loadMutable loads a review and fails if it is already in a terminal state.
func (s *Service) loadMutable(ctx context.Context, tenantID, reviewID string) (*review.Review, error) {
	r, err := s.Reviews.GetByID(ctx, tenantID, reviewID)
	if err != nil {
		return nil, err
	}
	if r.State.Terminal() {
		return nil, apperrors.Immutable(fmt.Sprintf("review %q is already %s and cannot be modified", reviewID, r.State))
	}
	return r, nil
}

func (s *Service) loadResultForReview(ctx context.Context, tenantID string, r *review.Review, resultID string) (*result.Result, error) {
	res, err := s.Results.GetByID(ctx, tenantID, resultID)
	if err != nil {
		return nil, err
	}
	if res.SampleID != r.SampleID {
		return nil, apperrors.InvalidInput(fmt.Sprintf("result %q does not belong to sample %q", resultID, r.SampleID))
	}
	return res, nil
}

func (s *Service) resultsNeedingReview(ctx context.Context, tenantID, sampleID string) ([]*result.Result, error) {
	all, err := s.Results.ListBySample(ctx, tenantID, sampleID)
	if err != nil {
		return nil, err
	}
	var out []*result.Result
	for _, r := range all {
		if r.VerificationStatus == result.VerificationNeedsReview {
			out = append(out, r)
		}
	}
	return out, nil
}

// decideResultInternal writes the immutable decision record and updates the
// result's verification status to match.
func (s *Service) decideResultInternal(ctx context.Context, tenantID, reviewID string, res *result.Result, d resultdecision.Decision, comments *string) (*resultdecision.ResultDecision, error) {
	decision := &resultdecision.ResultDecision{
		TenantID: tenantID,
		ReviewID: reviewID,
		ResultID: res.ID,
		Decision: d,
		Comments: comments,
	}
	if err := decision.Validate(); err != nil {
		return nil, err
	}
	if err := s.Decisions.Create(ctx, decision); err != nil {
		return nil, err
	}

	status := result.VerificationVerified
	if d == resultdecision.DecisionRejected {
		status = result.VerificationRejected
	}
	if err := res.SetVerificationOutcome(status, result.MethodManual); err != nil {
		return nil, err
	}
	if err := s.Results.Update(ctx, res); err != nil {
		return nil, err
	}
	return decision, nil
}

// checkAndCompleteReview completes the review once no result on its sample
// still needs review, deriving approve_all/reject_all/partial from the
// recorded decisions.
func (s *Service) checkAndCompleteReview(ctx context.Context, tenantID string, r *review.Review) error {
	pending, err := s.resultsNeedingReview(ctx, tenantID, r.SampleID)
	if err != nil {
		return err
	}
	if len(pending) > 0 {
		return nil
	}

	decisions, err := s.Decisions.ListByReview(ctx, tenantID, r.ID)
	if err != nil {
		return err
	}
	var approved, rejected int
	for _, d := range decisions {
		switch d.Decision {
		case resultdecision.DecisionApproved:
			approved++
		case resultdecision.DecisionRejected:
			rejected++
		}
	}

	var finalDecision review.Decision
	var sampleStatus sample.Status
	switch {
	case rejected == 0:
		finalDecision = review.DecisionApproveAll
		sampleStatus = sample.StatusVerified
	case approved == 0:
		finalDecision = review.DecisionRejectAll
		sampleStatus = sample.StatusRejected
	default:
		finalDecision = review.DecisionPartial
		sampleStatus = sample.StatusVerified
	}

	state := review.StateApproved
	if finalDecision == review.DecisionRejectAll {
		state = review.StateRejected
	}
	if err := r.Complete(state, finalDecision, time.Now()); err != nil {
		return err
	}
	if err := s.Reviews.Update(ctx, r); err != nil {
		return err
	}
	return s.setSampleStatus(ctx, tenantID, r.SampleID, sampleStatus)
}

func (s *Service) setSampleStatus(ctx context.Context, tenantID, sampleID string, status sample.Status) error {
	_, err := s.Samples.Update(ctx, tenantID, sampleID, sample.Patch{Status: &status})
	return err
}
