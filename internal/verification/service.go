package verification

import (
	"context"

	"github.com/hedgehog/ivdmiddleware/internal/apperrors"
	"github.com/hedgehog/ivdmiddleware/internal/domain/result"
	"github.com/hedgehog/ivdmiddleware/internal/repository"
	"github.com/hedgehog/ivdmiddleware/internal/reviewworkflow"
)

// Service is the orchestrator: it wraps the Engine and
// applies its decisions, persisting the result and opening a Review the
// first time a sample's results enter needs_review. Reviews is optional —
// a nil Reviews leaves review creation to the caller (used by tests that
// only want the bare verify/persist behavior).
type Service struct {
	Engine  *Engine
	Results repository.ResultRepository
	Reviews *reviewworkflow.Service
}

func NewService(engine *Engine, results repository.ResultRepository, reviews *reviewworkflow.Service) *Service {
	return &Service{Engine: engine, Results: results, Reviews: reviews}
}

// BatchOutcome aggregates the result of verifying many results at once,
// verify_batch/verify_sample_results contract.
type BatchOutcome struct {
	Total       int
	Verified    int
	NeedsReview int
	Errors      int
}

// VerifyResult loads, decides, and persists the outcome for one result.
// Reverifying an already-terminal result fails with KindImmutable.
func (s *Service) VerifyResult(ctx context.Context, tenantID, resultID string) (*result.Result, error) {
	r, err := s.Results.GetByID(ctx, tenantID, resultID)
	if err != nil {
		return nil, err
	}
	if err := s.applyDecision(ctx, tenantID, r); err != nil {
		return nil, err
	}
	return r, nil
}

// VerifyBatch verifies an explicit set of results, counting per-item
// failures (terminal state, missing settings) into Errors rather than
// aborting the batch.
func (s *Service) VerifyBatch(ctx context.Context, tenantID string, resultIDs []string) (BatchOutcome, error) {
	var outcome BatchOutcome
	for _, id := range resultIDs {
		outcome.Total++
		r, err := s.Results.GetByID(ctx, tenantID, id)
		if err != nil {
			outcome.Errors++
			continue
		}
		if err := s.applyDecision(ctx, tenantID, r); err != nil {
			outcome.Errors++
			continue
		}
		if r.VerificationStatus == result.VerificationVerified {
			outcome.Verified++
		} else {
			outcome.NeedsReview++
		}
	}
	return outcome, nil
}

// VerifySampleResults verifies every non-terminal result of a sample.
func (s *Service) VerifySampleResults(ctx context.Context, tenantID, sampleID string) (BatchOutcome, error) {
	results, err := s.Results.ListBySample(ctx, tenantID, sampleID)
	if err != nil {
		return BatchOutcome{}, err
	}
	ids := make([]string, 0, len(results))
	for _, r := range results {
		if !r.VerificationStatus.Terminal() {
			ids = append(ids, r.ID)
		}
	}
	return s.VerifyBatch(ctx, tenantID, ids)
}

// applyDecision runs the engine against r, persists the outcome, and opens
// a review on the sample the first time it needs one. A conflict from
// CreateReview (one already open for this sample) is the expected,
// idempotent case and is swallowed.
func (s *Service) applyDecision(ctx context.Context, tenantID string, r *result.Result) error {
	if r.VerificationStatus.Terminal() {
		return apperrors.Immutable("result verification_status is terminal and cannot be reverified")
	}

	decision, err := s.Engine.Decide(ctx, tenantID, r)
	if err != nil {
		return err
	}

	status := result.VerificationNeedsReview
	if decision.CanAutoVerify {
		status = result.VerificationVerified
	}
	if err := r.SetVerificationOutcome(status, result.MethodAuto); err != nil {
		return apperrors.Immutable(err.Error())
	}
	if err := s.Results.Update(ctx, r); err != nil {
		return err
	}

	if status == result.VerificationNeedsReview && s.Reviews != nil {
		if _, err := s.Reviews.CreateReview(ctx, tenantID, r.SampleID, nil); err != nil && apperrors.KindOf(err) != apperrors.KindConflict {
			return err
		}
	}
	return nil
}
