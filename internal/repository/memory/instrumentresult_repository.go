package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hedgehog/ivdmiddleware/internal/apperrors"
	"github.com/hedgehog/ivdmiddleware/internal/domain/instrumentresult"
)

type InstrumentResultRepository struct {
	mu      sync.RWMutex
	results map[string]*instrumentresult.InstrumentResult
}

func NewInstrumentResultRepository() *InstrumentResultRepository {
	return &InstrumentResultRepository{results: make(map[string]*instrumentresult.InstrumentResult)}
}

func (r *InstrumentResultRepository) Create(ctx context.Context, ir *instrumentresult.InstrumentResult) error {
	if err := ir.Validate(); err != nil {
		return apperrors.Wrap(apperrors.KindInvalidInput, "invalid instrument result", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	if ir.ID == "" {
		ir.ID = uuid.NewString()
	}
	if ir.Status == "" {
		ir.Status = instrumentresult.StatusReceived
	}
	ir.CreatedAt = now

	cp := *ir
	r.results[ir.ID] = &cp
	return nil
}

// GetByExternalID backs the (tenant_id, instrument_id,
// external_instrument_result_id) idempotency key
func (r *InstrumentResultRepository) GetByExternalID(ctx context.Context, tenantID, instrumentID, externalID string) (*instrumentresult.InstrumentResult, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, ir := range r.results {
		if ir.TenantID == tenantID && ir.InstrumentID == instrumentID && ir.ExternalInstrumentResultID == externalID {
			cp := *ir
			return &cp, nil
		}
	}
	return nil, apperrors.NotFound("instrument_result", externalID)
}

func (r *InstrumentResultRepository) Update(ctx context.Context, ir *instrumentresult.InstrumentResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.results[ir.ID]
	if !ok || existing.TenantID != ir.TenantID {
		return apperrors.NotFound("instrument_result", ir.ID)
	}
	cp := *ir
	r.results[ir.ID] = &cp
	return nil
}
