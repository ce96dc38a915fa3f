package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/hedgehog/ivdmiddleware/internal/domain/instrumentquery"
	"github.com/hedgehog/ivdmiddleware/internal/repository"
)

// InstrumentQueryRepository stores immutable audit rows; there is no update
// or delete operation
type InstrumentQueryRepository struct {
	mu      sync.RWMutex
	queries map[string]*instrumentquery.InstrumentQuery
}

func NewInstrumentQueryRepository() *InstrumentQueryRepository {
	return &InstrumentQueryRepository{queries: make(map[string]*instrumentquery.InstrumentQuery)}
}

func (r *InstrumentQueryRepository) Create(ctx context.Context, q *instrumentquery.InstrumentQuery) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if q.ID == "" {
		q.ID = uuid.NewString()
	}
	cp := *q
	r.queries[q.ID] = &cp
	return nil
}

func (r *InstrumentQueryRepository) ListByInstrument(ctx context.Context, tenantID, instrumentID string, page repository.Page) ([]*instrumentquery.InstrumentQuery, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matched []*instrumentquery.InstrumentQuery
	for _, q := range r.queries {
		if q.TenantID == tenantID && q.InstrumentID == instrumentID {
			cp := *q
			matched = append(matched, &cp)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].QueryTimestamp.After(matched[j].QueryTimestamp) })

	total := len(matched)
	return paginate(matched, page), total, nil
}
