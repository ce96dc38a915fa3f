package instrumentintegration

import (
	"context"
	"time"

	"github.com/hedgehog/ivdmiddleware/internal/apperrors"
	"github.com/hedgehog/ivdmiddleware/internal/domain/instrument"
	"github.com/hedgehog/ivdmiddleware/internal/domain/instrumentquery"
	"github.com/hedgehog/ivdmiddleware/internal/domain/order"
	"github.com/hedgehog/ivdmiddleware/internal/instrumentadapter"
	"github.com/hedgehog/ivdmiddleware/internal/repository"
)

// QueryService implements the host-query endpoint: an
// instrument asks for its pending work. Adapter is optional — nil means
// pending orders are resolved directly against OrderRepository (the
// default when instruments talk to our HTTP surface directly); a non-nil
// Adapter delegates retrieval to a vendor driver instead, per
// instrumentadapter's documented "pluggable boundary" role.
type QueryService struct {
	Instruments *InstrumentService
	Orders      repository.OrderRepository
	Samples     repository.SampleRepository
	Queries     repository.InstrumentQueryRepository
	Repo        repository.InstrumentRepository
	Adapter     instrumentadapter.InstrumentAdapter
}

func NewQueryService(instruments *InstrumentService, repo repository.InstrumentRepository, orders repository.OrderRepository, samples repository.SampleRepository, queries repository.InstrumentQueryRepository, adapter instrumentadapter.InstrumentAdapter) *QueryService {
	return &QueryService{Instruments: instruments, Repo: repo, Orders: orders, Samples: samples, Queries: queries, Adapter: adapter}
}

type HostQueryInput struct {
	Token         string
	PatientID     *string
	SampleBarcode *string
}

type HostQueryResult struct {
	Orders           []instrumentadapter.OrderData
	QueryTimestamp   time.Time
	InstrumentStatus instrument.Status
}

// HostQuery authenticates the instrument, resolves pending orders, and
// writes an immutable audit row regardless of outcome.
func (s *QueryService) HostQuery(ctx context.Context, in HostQueryInput) (HostQueryResult, error) {
	inst, err := s.Instruments.AuthenticateToken(ctx, in.Token)
	if err != nil {
		return HostQueryResult{}, err
	}
	if inst.Status != instrument.StatusActive {
		return HostQueryResult{}, apperrors.Forbidden("instrument is not active")
	}

	queryTime := time.Now()
	orders, fetchErr := s.fetchPendingOrders(ctx, inst.TenantID, inst.ID, in.PatientID, in.SampleBarcode)
	responseTime := time.Now()

	audit := &instrumentquery.InstrumentQuery{
		TenantID:          inst.TenantID,
		InstrumentID:      inst.ID,
		QueryTimestamp:    queryTime,
		ResponseTimestamp: responseTime,
		ResponseTimeMS:    responseTime.Sub(queryTime).Milliseconds(),
		QueryPatientID:    in.PatientID,
		QuerySampleBarcode: in.SampleBarcode,
	}

	if fetchErr != nil {
		reason := fetchErr.Error()
		audit.ResponseStatus = instrumentquery.ResponseError
		audit.ErrorReason = &reason
		audit.OrdersReturnedCount = 0
		_ = s.Queries.Create(ctx, audit)

		inst.RecordFailure(responseTime, reason)
		_ = s.Repo.Update(ctx, inst)
		return HostQueryResult{}, apperrors.UpstreamFailure("retrieve pending orders", fetchErr)
	}

	audit.ResponseStatus = instrumentquery.ResponseSuccess
	audit.OrdersReturnedCount = len(orders)
	if err := s.Queries.Create(ctx, audit); err != nil {
		return HostQueryResult{}, err
	}

	inst.RecordSuccess(responseTime, true, false)
	if err := s.Repo.Update(ctx, inst); err != nil {
		return HostQueryResult{}, err
	}

	return HostQueryResult{Orders: orders, QueryTimestamp: queryTime, InstrumentStatus: inst.Status}, nil
}

func (s *QueryService) fetchPendingOrders(ctx context.Context, tenantID, instrumentID string, patientID, sampleBarcode *string) ([]instrumentadapter.OrderData, error) {
	if s.Adapter != nil {
		return s.Adapter.GetPendingOrders(ctx, tenantID, instrumentID, patientID, sampleBarcode)
	}

	pending, err := s.Orders.ListPending(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	var out []instrumentadapter.OrderData
	for _, o := range pending {
		if o.AssignedInstrumentID == nil || *o.AssignedInstrumentID != instrumentID {
			continue
		}
		if patientID != nil && o.PatientID != *patientID {
			continue
		}
		if sampleBarcode != nil && !s.sampleMatchesBarcode(ctx, tenantID, o, *sampleBarcode) {
			continue
		}
		out = append(out, orderToData(o))
	}
	return out, nil
}

func (s *QueryService) sampleMatchesBarcode(ctx context.Context, tenantID string, o *order.Order, barcode string) bool {
	sm, err := s.Samples.GetByID(ctx, tenantID, o.SampleID)
	if err != nil {
		return false
	}
	return sm.ExternalLISID == barcode
}

func orderToData(o *order.Order) instrumentadapter.OrderData {
	return instrumentadapter.OrderData{
		ExternalLISOrderID: o.ExternalLISOrderID,
		PatientID:          o.PatientID,
		TestCodes:          o.TestCodes,
		Priority:           string(o.Priority),
	}
}
