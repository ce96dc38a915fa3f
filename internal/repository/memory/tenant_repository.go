package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hedgehog/ivdmiddleware/internal/apperrors"
	"github.com/hedgehog/ivdmiddleware/internal/domain/tenant"
)

type TenantRepository struct {
	mu      sync.RWMutex
	tenants map[string]*tenant.Tenant
}

func NewTenantRepository() *TenantRepository {
	return &TenantRepository{tenants: make(map[string]*tenant.Tenant)}
}

func (r *TenantRepository) Create(ctx context.Context, t *tenant.Tenant) error {
	if err := t.Validate(); err != nil {
		return apperrors.Wrap(apperrors.KindInvalidInput, "invalid tenant", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	t.CreatedAt = now
	t.UpdatedAt = now

	cp := *t
	r.tenants[t.ID] = &cp
	return nil
}

func (r *TenantRepository) GetByID(ctx context.Context, id string) (*tenant.Tenant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.tenants[id]
	if !ok {
		return nil, apperrors.NotFound("tenant", id)
	}
	cp := *t
	return &cp, nil
}
