package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hedgehog/ivdmiddleware/internal/apperrors"
	"github.com/hedgehog/ivdmiddleware/internal/domain/lisconfig"
)

// LISConfigRepository enforces the one-per-tenant invariant
type LISConfigRepository struct {
	mu      sync.RWMutex
	configs map[string]*lisconfig.LISConfig
}

func NewLISConfigRepository() *LISConfigRepository {
	return &LISConfigRepository{configs: make(map[string]*lisconfig.LISConfig)}
}

func (r *LISConfigRepository) Create(ctx context.Context, c *lisconfig.LISConfig) error {
	if err := c.Validate(); err != nil {
		return apperrors.Wrap(apperrors.KindInvalidInput, "invalid LIS config", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.configs {
		if existing.TenantID == c.TenantID {
			return apperrors.Conflict("a LIS config already exists for tenant")
		}
	}

	now := time.Now()
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.ConnectionStatus == "" {
		c.ConnectionStatus = lisconfig.ConnectionInactive
	}
	c.CreatedAt = now
	c.UpdatedAt = now

	cp := *c
	r.configs[c.ID] = &cp
	return nil
}

func (r *LISConfigRepository) GetByTenant(ctx context.Context, tenantID string) (*lisconfig.LISConfig, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, c := range r.configs {
		if c.TenantID == tenantID {
			cp := *c
			return &cp, nil
		}
	}
	return nil, apperrors.NotFound("lis_config", tenantID)
}

// ListTenantIDs returns every tenant with a configured LIS integration, for
// the background pull/upload/retry loops to sweep.
func (r *LISConfigRepository) ListTenantIDs(ctx context.Context) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.configs))
	for _, c := range r.configs {
		ids = append(ids, c.TenantID)
	}
	return ids, nil
}

func (r *LISConfigRepository) Update(ctx context.Context, c *lisconfig.LISConfig) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.configs[c.ID]
	if !ok || existing.TenantID != c.TenantID {
		return apperrors.NotFound("lis_config", c.ID)
	}

	c.UpdatedAt = time.Now()
	cp := *c
	r.configs[c.ID] = &cp
	return nil
}
