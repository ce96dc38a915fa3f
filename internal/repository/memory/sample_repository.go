// Package memory provides in-process repository realizations backed by
// sync.RWMutex-guarded maps: copy-on-read/write so callers can never mutate
// stored state through a returned pointer, and tenant_id is checked on
// every lookup so a wrong-tenant read returns not-found rather than leaking
// cross-tenant data.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hedgehog/ivdmiddleware/internal/apperrors"
	"github.com/hedgehog/ivdmiddleware/internal/domain/sample"
	"github.com/hedgehog/ivdmiddleware/internal/repository"
)

type SampleRepository struct {
	mu      sync.RWMutex
	samples map[string]*sample.Sample
}

func NewSampleRepository() *SampleRepository {
	return &SampleRepository{samples: make(map[string]*sample.Sample)}
}

func (r *SampleRepository) Create(ctx context.Context, s *sample.Sample) error {
	if err := s.Validate(); err != nil {
		return apperrors.Wrap(apperrors.KindInvalidInput, "invalid sample", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.samples {
		if existing.TenantID == s.TenantID && existing.ExternalLISID == s.ExternalLISID {
			return apperrors.Conflict("sample with this external_lis_id already exists for tenant")
		}
	}

	now := time.Now()
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if s.Status == "" {
		s.Status = sample.StatusPending
	}
	s.CreatedAt = now
	s.UpdatedAt = now

	cp := *s
	r.samples[s.ID] = &cp
	return nil
}

func (r *SampleRepository) GetByID(ctx context.Context, tenantID, id string) (*sample.Sample, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.samples[id]
	if !ok || s.TenantID != tenantID {
		return nil, apperrors.NotFound("sample", id)
	}
	cp := *s
	return &cp, nil
}

func (r *SampleRepository) GetByExternalLISID(ctx context.Context, tenantID, externalLISID string) (*sample.Sample, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, s := range r.samples {
		if s.TenantID == tenantID && s.ExternalLISID == externalLISID {
			cp := *s
			return &cp, nil
		}
	}
	return nil, apperrors.NotFound("sample", externalLISID)
}

func (r *SampleRepository) List(ctx context.Context, tenantID string, status *sample.Status, page repository.Page) ([]*sample.Sample, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matched []*sample.Sample
	for _, s := range r.samples {
		if s.TenantID != tenantID {
			continue
		}
		if status != nil && s.Status != *status {
			continue
		}
		cp := *s
		matched = append(matched, &cp)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].CreatedAt.After(matched[j].CreatedAt) })

	total := len(matched)
	return paginate(matched, page), total, nil
}

func (r *SampleRepository) Update(ctx context.Context, tenantID, id string, patch sample.Patch) (*sample.Sample, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.samples[id]
	if !ok || s.TenantID != tenantID {
		return nil, apperrors.NotFound("sample", id)
	}

	patched := *s
	patched.Apply(patch)
	if err := patched.Validate(); err != nil {
		return nil, apperrors.Wrap(apperrors.KindInvalidInput, "invalid sample update", err)
	}
	patched.UpdatedAt = time.Now()
	r.samples[id] = &patched

	cp := patched
	return &cp, nil
}

func (r *SampleRepository) Delete(ctx context.Context, tenantID, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.samples[id]
	if !ok || s.TenantID != tenantID {
		return apperrors.NotFound("sample", id)
	}
	delete(r.samples, id)
	return nil
}

// paginate applies a Page cursor (limit/offset over an already-sorted slice)
// with sane defaults so a zero-value Page returns everything.
func paginate[T any](items []T, page repository.Page) []T {
	offset := page.Offset
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return []T{}
	}
	end := len(items)
	if page.Limit > 0 && offset+page.Limit < end {
		end = offset + page.Limit
	}
	return items[offset:end]
}
