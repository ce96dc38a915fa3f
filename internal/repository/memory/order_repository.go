package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hedgehog/ivdmiddleware/internal/apperrors"
	"github.com/hedgehog/ivdmiddleware/internal/domain/order"
)

type OrderRepository struct {
	mu     sync.RWMutex
	orders map[string]*order.Order
}

func NewOrderRepository() *OrderRepository {
	return &OrderRepository{orders: make(map[string]*order.Order)}
}

func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	if err := o.Validate(); err != nil {
		return apperrors.Wrap(apperrors.KindInvalidInput, "invalid order", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.orders {
		if existing.TenantID == o.TenantID && existing.ExternalLISOrderID == o.ExternalLISOrderID {
			return apperrors.Conflict("order with this external_lis_order_id already exists for tenant")
		}
	}

	now := time.Now()
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	if o.Status == "" {
		o.Status = order.StatusPending
	}
	o.CreatedAt = now
	o.UpdatedAt = now

	cp := *o
	r.orders[o.ID] = &cp
	return nil
}

func (r *OrderRepository) GetByID(ctx context.Context, tenantID, id string) (*order.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	o, ok := r.orders[id]
	if !ok || o.TenantID != tenantID {
		return nil, apperrors.NotFound("order", id)
	}
	cp := *o
	return &cp, nil
}

func (r *OrderRepository) GetByExternalLISOrderID(ctx context.Context, tenantID, externalID string) (*order.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, o := range r.orders {
		if o.TenantID == tenantID && o.ExternalLISOrderID == externalID {
			cp := *o
			return &cp, nil
		}
	}
	return nil, apperrors.NotFound("order", externalID)
}

func (r *OrderRepository) ListBySample(ctx context.Context, tenantID, sampleID string) ([]*order.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*order.Order
	for _, o := range r.orders {
		if o.TenantID == tenantID && o.SampleID == sampleID {
			cp := *o
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *OrderRepository) ListPending(ctx context.Context, tenantID string) ([]*order.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*order.Order
	for _, o := range r.orders {
		if o.TenantID == tenantID && o.Status == order.StatusPending {
			cp := *o
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *OrderRepository) Update(ctx context.Context, tenantID, id string, patch order.Patch) (*order.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	o, ok := r.orders[id]
	if !ok || o.TenantID != tenantID {
		return nil, apperrors.NotFound("order", id)
	}

	patched := *o
	patched.Apply(patch)
	patched.UpdatedAt = time.Now()
	r.orders[id] = &patched

	cp := patched
	return &cp, nil
}

func (r *OrderRepository) Delete(ctx context.Context, tenantID, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	o, ok := r.orders[id]
	if !ok || o.TenantID != tenantID {
		return apperrors.NotFound("order", id)
	}
	delete(r.orders, id)
	return nil
}
