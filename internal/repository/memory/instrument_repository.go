package memory

import (
	"context"
	"crypto/subtle"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hedgehog/ivdmiddleware/internal/apperrors"
	"github.com/hedgehog/ivdmiddleware/internal/domain/instrument"
	"github.com/hedgehog/ivdmiddleware/internal/repository"
)

type InstrumentRepository struct {
	mu          sync.RWMutex
	instruments map[string]*instrument.Instrument
}

func NewInstrumentRepository() *InstrumentRepository {
	return &InstrumentRepository{instruments: make(map[string]*instrument.Instrument)}
}

func (r *InstrumentRepository) Create(ctx context.Context, i *instrument.Instrument) error {
	if err := i.Validate(); err != nil {
		return apperrors.Wrap(apperrors.KindInvalidInput, "invalid instrument", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.instruments {
		if existing.TenantID == i.TenantID && existing.Name == i.Name {
			return apperrors.Conflict("instrument with this name already exists for tenant")
		}
		if existing.APIToken == i.APIToken {
			return apperrors.Conflict("api_token must be globally unique")
		}
	}

	now := time.Now()
	if i.ID == "" {
		i.ID = uuid.NewString()
	}
	if i.Status == "" {
		i.Status = instrument.StatusInactive
	}
	if i.APITokenCreatedAt.IsZero() {
		i.APITokenCreatedAt = now
	}
	i.CreatedAt = now
	i.UpdatedAt = now

	cp := *i
	r.instruments[i.ID] = &cp
	return nil
}

func (r *InstrumentRepository) GetByID(ctx context.Context, tenantID, id string) (*instrument.Instrument, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	i, ok := r.instruments[id]
	if !ok || i.TenantID != tenantID {
		return nil, apperrors.NotFound("instrument", id)
	}
	cp := *i
	return &cp, nil
}

func (r *InstrumentRepository) GetByName(ctx context.Context, tenantID, name string) (*instrument.Instrument, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, i := range r.instruments {
		if i.TenantID == tenantID && i.Name == name {
			cp := *i
			return &cp, nil
		}
	}
	return nil, apperrors.NotFound("instrument", name)
}

// GetByAPIToken resolves an instrument from its token alone — the token is
// the sole identifier the instrument side presents; tenant is derived from
// the resolved record instrument auth.
func (r *InstrumentRepository) GetByAPIToken(ctx context.Context, token string) (*instrument.Instrument, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, i := range r.instruments {
		if subtle.ConstantTimeCompare([]byte(i.APIToken), []byte(token)) == 1 {
			cp := *i
			return &cp, nil
		}
	}
	return nil, apperrors.Unauthorized("unknown instrument token")
}

func (r *InstrumentRepository) List(ctx context.Context, tenantID string, page repository.Page) ([]*instrument.Instrument, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matched []*instrument.Instrument
	for _, i := range r.instruments {
		if i.TenantID == tenantID {
			cp := *i
			matched = append(matched, &cp)
		}
	}
	sort.Slice(matched, func(a, b int) bool { return matched[a].CreatedAt.After(matched[b].CreatedAt) })

	total := len(matched)
	return paginate(matched, page), total, nil
}

func (r *InstrumentRepository) Update(ctx context.Context, i *instrument.Instrument) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.instruments[i.ID]
	if !ok || existing.TenantID != i.TenantID {
		return apperrors.NotFound("instrument", i.ID)
	}
	for id, other := range r.instruments {
		if id != i.ID && other.APIToken == i.APIToken {
			return apperrors.Conflict("api_token must be globally unique")
		}
	}

	i.UpdatedAt = time.Now()
	cp := *i
	r.instruments[i.ID] = &cp
	return nil
}

// ListAllActive returns every active instrument across every tenant, for the
// health reaper's periodic staleness sweep.
func (r *InstrumentRepository) ListAllActive(ctx context.Context) ([]*instrument.Instrument, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var active []*instrument.Instrument
	for _, i := range r.instruments {
		if i.Status == instrument.StatusActive {
			cp := *i
			active = append(active, &cp)
		}
	}
	return active, nil
}

func (r *InstrumentRepository) Delete(ctx context.Context, tenantID, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	i, ok := r.instruments[id]
	if !ok || i.TenantID != tenantID {
		return apperrors.NotFound("instrument", id)
	}
	delete(r.instruments, id)
	return nil
}
