package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hedgehog/ivdmiddleware/internal/apperrors"
	"github.com/hedgehog/ivdmiddleware/internal/domain/resultdecision"
)

// ResultDecisionRepository stores immutable per-result verdicts: Create is
// the only write operation, matching "repository exposes no
// update operation; once written, only readable".
type ResultDecisionRepository struct {
	mu        sync.RWMutex
	decisions map[string]*resultdecision.ResultDecision
}

func NewResultDecisionRepository() *ResultDecisionRepository {
	return &ResultDecisionRepository{decisions: make(map[string]*resultdecision.ResultDecision)}
}

func (r *ResultDecisionRepository) Create(ctx context.Context, d *resultdecision.ResultDecision) error {
	if err := d.Validate(); err != nil {
		return apperrors.Wrap(apperrors.KindInvalidInput, "invalid result decision", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	if d.DecidedAt.IsZero() {
		d.DecidedAt = time.Now()
	}

	cp := *d
	r.decisions[d.ID] = &cp
	return nil
}

func (r *ResultDecisionRepository) ListByReview(ctx context.Context, tenantID, reviewID string) ([]*resultdecision.ResultDecision, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*resultdecision.ResultDecision
	for _, d := range r.decisions {
		if d.TenantID == tenantID && d.ReviewID == reviewID {
			cp := *d
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *ResultDecisionRepository) GetByReviewAndResult(ctx context.Context, tenantID, reviewID, resultID string) (*resultdecision.ResultDecision, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, d := range r.decisions {
		if d.TenantID == tenantID && d.ReviewID == reviewID && d.ResultID == resultID {
			cp := *d
			return &cp, nil
		}
	}
	return nil, apperrors.NotFound("result_decision", resultID)
}
