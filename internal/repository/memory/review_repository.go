package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hedgehog/ivdmiddleware/internal/apperrors"
	"github.com/hedgehog/ivdmiddleware/internal/domain/review"
	"github.com/hedgehog/ivdmiddleware/internal/repository"
)

type ReviewRepository struct {
	mu      sync.RWMutex
	reviews map[string]*review.Review
}

func NewReviewRepository() *ReviewRepository {
	return &ReviewRepository{reviews: make(map[string]*review.Review)}
}

func (r *ReviewRepository) Create(ctx context.Context, v *review.Review) error {
	if err := v.Validate(); err != nil {
		return apperrors.Wrap(apperrors.KindInvalidInput, "invalid review", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.reviews {
		if existing.TenantID == v.TenantID && existing.SampleID == v.SampleID {
			return apperrors.Conflict("a review already exists for this sample")
		}
	}

	now := time.Now()
	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	if v.State == "" {
		v.State = review.StatePending
	}
	v.CreatedAt = now
	v.UpdatedAt = now

	cp := *v
	r.reviews[v.ID] = &cp
	return nil
}

func (r *ReviewRepository) GetByID(ctx context.Context, tenantID, id string) (*review.Review, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	v, ok := r.reviews[id]
	if !ok || v.TenantID != tenantID {
		return nil, apperrors.NotFound("review", id)
	}
	cp := *v
	return &cp, nil
}

func (r *ReviewRepository) GetBySampleID(ctx context.Context, tenantID, sampleID string) (*review.Review, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, v := range r.reviews {
		if v.TenantID == tenantID && v.SampleID == sampleID {
			cp := *v
			return &cp, nil
		}
	}
	return nil, apperrors.NotFound("review", sampleID)
}

func (r *ReviewRepository) List(ctx context.Context, tenantID string, filter repository.ReviewFilter, page repository.Page) ([]*review.Review, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matched []*review.Review
	for _, v := range r.reviews {
		if v.TenantID != tenantID {
			continue
		}
		if filter.State != nil && v.State != *filter.State {
			continue
		}
		if filter.ReviewerUserID != nil && (v.ReviewerUserID == nil || *v.ReviewerUserID != *filter.ReviewerUserID) {
			continue
		}
		if filter.EscalatedOnly && v.State != review.StateEscalated {
			continue
		}
		cp := *v
		matched = append(matched, &cp)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].CreatedAt.After(matched[j].CreatedAt) })

	total := len(matched)
	return paginate(matched, page), total, nil
}

func (r *ReviewRepository) Update(ctx context.Context, v *review.Review) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.reviews[v.ID]
	if !ok || existing.TenantID != v.TenantID {
		return apperrors.NotFound("review", v.ID)
	}
	if existing.State.Terminal() && v.State != existing.State {
		return apperrors.Immutable("review is in a terminal state and cannot be modified")
	}

	v.UpdatedAt = time.Now()
	cp := *v
	r.reviews[v.ID] = &cp
	return nil
}
