// Package instrumentintegration implements the instrument-facing half of
// the middleware: registration, token authentication, the host-query
// (pending-orders) endpoint, and the result-submission endpoint.
package instrumentintegration

import (
	"context"
	"time"

	"github.com/hedgehog/ivdmiddleware/internal/apperrors"
	"github.com/hedgehog/ivdmiddleware/internal/domain/instrument"
	"github.com/hedgehog/ivdmiddleware/internal/repository"
	"github.com/hedgehog/ivdmiddleware/internal/tokengen"
)

// InstrumentService owns the registry: creation, lookup, token auth, and
// the regenerate/deactivate lifecycle operations.
type InstrumentService struct {
	Instruments repository.InstrumentRepository
}

func NewInstrumentService(instruments repository.InstrumentRepository) *InstrumentService {
	return &InstrumentService{Instruments: instruments}
}

type CreateInstrumentInput struct {
	TenantID       string
	Name           string
	InstrumentType string
	APIToken       *string // auto-generated if nil
}

func (s *InstrumentService) CreateInstrument(ctx context.Context, in CreateInstrumentInput) (*instrument.Instrument, error) {
	token := in.APIToken
	if token == nil {
		generated, err := tokengen.New(tokengen.DefaultLength)
		if err != nil {
			return nil, apperrors.Internal("generate instrument api token", err)
		}
		token = &generated
	}

	now := time.Now()
	inst := &instrument.Instrument{
		TenantID:          in.TenantID,
		Name:              in.Name,
		APIToken:          *token,
		APITokenCreatedAt: now,
		InstrumentType:    in.InstrumentType,
		Status:            instrument.StatusInactive,
	}
	if err := inst.Validate(); err != nil {
		return nil, apperrors.Wrap(apperrors.KindInvalidInput, "invalid instrument", err)
	}
	if err := s.Instruments.Create(ctx, inst); err != nil {
		return nil, err
	}
	return inst, nil
}

func (s *InstrumentService) GetInstrument(ctx context.Context, tenantID, id string) (*instrument.Instrument, error) {
	return s.Instruments.GetByID(ctx, tenantID, id)
}

func (s *InstrumentService) ListInstruments(ctx context.Context, tenantID string, page repository.Page) ([]*instrument.Instrument, int, error) {
	return s.Instruments.List(ctx, tenantID, page)
}

// AuthenticateToken resolves X-Instrument-Token to an Instrument. An
// unknown token is a 401; the caller is responsible for the separate
// "status != active" 403 check (host-query and result-submission apply it
// slightly differently around their own audit/failure bookkeeping).
func (s *InstrumentService) AuthenticateToken(ctx context.Context, token string) (*instrument.Instrument, error) {
	inst, err := s.Instruments.GetByAPIToken(ctx, token)
	if err != nil {
		if apperrors.KindOf(err) == apperrors.KindNotFound {
			return nil, apperrors.Unauthorized("invalid instrument token")
		}
		return nil, err
	}
	return inst, nil
}

type UpdateInstrumentInput struct {
	Name           *string
	InstrumentType *string
	Status         *instrument.Status
}

func (s *InstrumentService) UpdateInstrument(ctx context.Context, tenantID, id string, in UpdateInstrumentInput) (*instrument.Instrument, error) {
	inst, err := s.Instruments.GetByID(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if in.Name != nil {
		inst.Name = *in.Name
	}
	if in.InstrumentType != nil {
		inst.InstrumentType = *in.InstrumentType
	}
	if in.Status != nil {
		inst.Status = *in.Status
	}
	if err := inst.Validate(); err != nil {
		return nil, apperrors.Wrap(apperrors.KindInvalidInput, "invalid instrument", err)
	}
	if err := s.Instruments.Update(ctx, inst); err != nil {
		return nil, err
	}
	return inst, nil
}

// DeactivateInstrument is the soft-delete the original service performs:
// set status to inactive rather than removing the row, so registered
// tokens and audit history remain intact.
func (s *InstrumentService) DeactivateInstrument(ctx context.Context, tenantID, id string) (*instrument.Instrument, error) {
	inactive := instrument.StatusInactive
	return s.UpdateInstrument(ctx, tenantID, id, UpdateInstrumentInput{Status: &inactive})
}

func (s *InstrumentService) RegenerateToken(ctx context.Context, tenantID, id string) (*instrument.Instrument, error) {
	inst, err := s.Instruments.GetByID(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	token, err := tokengen.New(tokengen.DefaultLength)
	if err != nil {
		return nil, apperrors.Internal("generate instrument api token", err)
	}
	inst.RegenerateToken(token, time.Now())
	if err := s.Instruments.Update(ctx, inst); err != nil {
		return nil, err
	}
	return inst, nil
}
