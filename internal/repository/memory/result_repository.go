package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hedgehog/ivdmiddleware/internal/apperrors"
	"github.com/hedgehog/ivdmiddleware/internal/domain/result"
	"github.com/hedgehog/ivdmiddleware/internal/repository"
)

type ResultRepository struct {
	mu      sync.RWMutex
	results map[string]*result.Result
}

func NewResultRepository() *ResultRepository {
	return &ResultRepository{results: make(map[string]*result.Result)}
}

func (r *ResultRepository) Create(ctx context.Context, res *result.Result) error {
	if err := res.Validate(); err != nil {
		return apperrors.Wrap(apperrors.KindInvalidInput, "invalid result", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.results {
		if existing.TenantID == res.TenantID && existing.ExternalLISResultID == res.ExternalLISResultID {
			return apperrors.Conflict("result with this external_lis_result_id already exists for tenant")
		}
	}

	now := time.Now()
	if res.ID == "" {
		res.ID = uuid.NewString()
	}
	if res.VerificationStatus == "" {
		res.VerificationStatus = result.VerificationPending
	}
	if res.UploadStatus == "" {
		res.UploadStatus = result.UploadPending
	}
	res.CreatedAt = now
	res.UpdatedAt = now

	cp := *res
	r.results[res.ID] = &cp
	return nil
}

func (r *ResultRepository) GetByID(ctx context.Context, tenantID, id string) (*result.Result, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	res, ok := r.results[id]
	if !ok || res.TenantID != tenantID {
		return nil, apperrors.NotFound("result", id)
	}
	cp := *res
	return &cp, nil
}

func (r *ResultRepository) GetByExternalLISResultID(ctx context.Context, tenantID, externalID string) (*result.Result, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, res := range r.results {
		if res.TenantID == tenantID && res.ExternalLISResultID == externalID {
			cp := *res
			return &cp, nil
		}
	}
	return nil, apperrors.NotFound("result", externalID)
}

func (r *ResultRepository) ListBySample(ctx context.Context, tenantID, sampleID string) ([]*result.Result, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*result.Result
	for _, res := range r.results {
		if res.TenantID == tenantID && res.SampleID == sampleID {
			cp := *res
			out = append(out, &cp)
		}
	}
	return out, nil
}

// ListPriorByTestCode returns prior results for the same sample+test_code,
// excluding excludeID, created within lookback of asOf, newest first — the
// delta-check rule reads element [0] as "the most recent prior result".
func (r *ResultRepository) ListPriorByTestCode(ctx context.Context, tenantID, sampleID, testCode, excludeID string, lookback time.Duration, asOf time.Time) ([]*result.Result, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cutoff := asOf.Add(-lookback)
	var out []*result.Result
	for _, res := range r.results {
		if res.TenantID != tenantID || res.SampleID != sampleID || res.TestCode != testCode {
			continue
		}
		if res.ID == excludeID {
			continue
		}
		if res.CreatedAt.Before(cutoff) || res.CreatedAt.After(asOf) {
			continue
		}
		cp := *res
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *ResultRepository) List(ctx context.Context, tenantID string, filter repository.ResultFilter, page repository.Page) ([]*result.Result, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matched []*result.Result
	for _, res := range r.results {
		if res.TenantID != tenantID {
			continue
		}
		if filter.VerificationStatus != nil && res.VerificationStatus != *filter.VerificationStatus {
			continue
		}
		if filter.UploadStatus != nil && res.UploadStatus != *filter.UploadStatus {
			continue
		}
		if filter.SampleID != nil && res.SampleID != *filter.SampleID {
			continue
		}
		if filter.TestCode != nil && res.TestCode != *filter.TestCode {
			continue
		}
		cp := *res
		matched = append(matched, &cp)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].CreatedAt.After(matched[j].CreatedAt) })

	total := len(matched)
	return paginate(matched, page), total, nil
}

func (r *ResultRepository) ListUploadEligible(ctx context.Context, tenantID string, uploadVerified, uploadRejected bool, limit int) ([]*result.Result, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matched []*result.Result
	for _, res := range r.results {
		if res.TenantID != tenantID {
			continue
		}
		if !res.UploadEligible(uploadVerified, uploadRejected) {
			continue
		}
		cp := *res
		matched = append(matched, &cp)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].CreatedAt.Before(matched[j].CreatedAt) })

	if limit > 0 && len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

func (r *ResultRepository) Update(ctx context.Context, res *result.Result) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.results[res.ID]
	if !ok || existing.TenantID != res.TenantID {
		return apperrors.NotFound("result", res.ID)
	}

	// Immutability: a terminal verification_status may not change, though
	// upload_status transitions remain permitted on a terminal result per
	// testable-properties invariant 2.
	if existing.VerificationStatus.Terminal() && res.VerificationStatus != existing.VerificationStatus {
		return apperrors.Immutable("result verification_status is terminal and cannot be modified")
	}

	res.UpdatedAt = time.Now()
	cp := *res
	r.results[res.ID] = &cp
	return nil
}
