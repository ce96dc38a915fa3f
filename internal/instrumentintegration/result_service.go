package instrumentintegration

import (
	"context"
	"fmt"
	"time"

	"github.com/hedgehog/ivdmiddleware/internal/apperrors"
	"github.com/hedgehog/ivdmiddleware/internal/domain/instrument"
	"github.com/hedgehog/ivdmiddleware/internal/domain/instrumentresult"
	"github.com/hedgehog/ivdmiddleware/internal/domain/order"
	"github.com/hedgehog/ivdmiddleware/internal/domain/result"
	"github.com/hedgehog/ivdmiddleware/internal/instrumentadapter"
	"github.com/hedgehog/ivdmiddleware/internal/repository"
	"github.com/hedgehog/ivdmiddleware/internal/verification"
)

// ResultService implements the result-submission endpoint: validate the raw
// payload, record it as an InstrumentResult, map it into a canonical Result
// linked to the Order/Sample it belongs to, and trigger verification
// synchronously in the same request. Adapter is optional, mirroring
// QueryService: a non-nil Adapter delegates the whole ingest to a vendor
// driver's process_result instead.
type ResultService struct {
	Instruments       *InstrumentService
	Repo              repository.InstrumentRepository
	Orders            repository.OrderRepository
	Results           repository.ResultRepository
	InstrumentResults repository.InstrumentResultRepository
	Verification      *verification.Service
	Adapter           instrumentadapter.InstrumentAdapter
}

func NewResultService(instruments *InstrumentService, repo repository.InstrumentRepository, orders repository.OrderRepository, results repository.ResultRepository, instrumentResults repository.InstrumentResultRepository, verificationSvc *verification.Service, adapter instrumentadapter.InstrumentAdapter) *ResultService {
	return &ResultService{
		Instruments:       instruments,
		Repo:              repo,
		Orders:            orders,
		Results:           results,
		InstrumentResults: instrumentResults,
		Verification:      verificationSvc,
		Adapter:           adapter,
	}
}

type SubmitResultInput struct {
	Token                      string
	ExternalInstrumentResultID string
	TestCode                   string
	TestName                   string
	Value                      string
	Unit                       string
	ReferenceRangeLow          *float64
	ReferenceRangeHigh         *float64
	CollectionTimestamp        time.Time
}

// SubmitResultOutcome mirrors the {result_id, status, verification_queued,
// error_message?} response shape
type SubmitResultOutcome struct {
	ResultID           string
	Status             string // "accepted" or "rejected"
	VerificationQueued bool
	ErrorMessage       string
}

func (s *ResultService) SubmitResult(ctx context.Context, in SubmitResultInput) (SubmitResultOutcome, error) {
	inst, err := s.Instruments.AuthenticateToken(ctx, in.Token)
	if err != nil {
		return SubmitResultOutcome{}, err
	}
	if inst.Status != instrument.StatusActive {
		return SubmitResultOutcome{}, apperrors.Forbidden("instrument is not active")
	}

	if s.Adapter != nil {
		return s.submitViaAdapter(ctx, inst, in)
	}
	return s.submitDirect(ctx, inst, in)
}

func (s *ResultService) submitDirect(ctx context.Context, inst *instrument.Instrument, in SubmitResultInput) (SubmitResultOutcome, error) {
	tenantID := inst.TenantID

	if existing, err := s.InstrumentResults.GetByExternalID(ctx, tenantID, inst.ID, in.ExternalInstrumentResultID); err == nil {
		resultID := ""
		if existing.MappedResultID != nil {
			resultID = *existing.MappedResultID
		}
		return SubmitResultOutcome{ResultID: resultID, Status: "accepted", VerificationQueued: false}, nil
	} else if apperrors.KindOf(err) != apperrors.KindNotFound {
		return SubmitResultOutcome{}, err
	}

	ir := &instrumentresult.InstrumentResult{
		TenantID:                   tenantID,
		InstrumentID:               inst.ID,
		ExternalInstrumentResultID: in.ExternalInstrumentResultID,
		TestCode:                   in.TestCode,
		TestName:                   in.TestName,
		Value:                      in.Value,
		Unit:                       in.Unit,
		ReferenceRangeLow:          in.ReferenceRangeLow,
		ReferenceRangeHigh:         in.ReferenceRangeHigh,
		CollectionTimestamp:        in.CollectionTimestamp,
		Status:                     instrumentresult.StatusReceived,
	}
	if err := ir.Validate(); err != nil {
		return SubmitResultOutcome{}, apperrors.Wrap(apperrors.KindInvalidInput, "invalid instrument result payload", err)
	}
	if err := s.InstrumentResults.Create(ctx, ir); err != nil {
		return SubmitResultOutcome{}, err
	}

	now := time.Now()

	matched, err := s.findOrderForTestCode(ctx, tenantID, inst.ID, in.TestCode)
	if err != nil {
		ir.Status = instrumentresult.StatusRejected
		_ = s.InstrumentResults.Update(ctx, ir)
		inst.RecordSuccess(now, false, true) // the submission itself was received fine
		_ = s.Repo.Update(ctx, inst)
		return SubmitResultOutcome{Status: "rejected", ErrorMessage: err.Error()}, nil
	}

	r := &result.Result{
		TenantID:             tenantID,
		ExternalLISResultID:  fmt.Sprintf("instrument:%s:%s", inst.ID, in.ExternalInstrumentResultID),
		SampleID:             matched.SampleID,
		OrderID:              matched.ID,
		TestCode:             in.TestCode,
		TestName:             in.TestName,
		Value:                in.Value,
		Unit:                 in.Unit,
		ReferenceRangeLow:    in.ReferenceRangeLow,
		ReferenceRangeHigh:   in.ReferenceRangeHigh,
		VerificationStatus:   result.VerificationPending,
		UploadStatus:         result.UploadPending,
	}
	if err := r.Validate(); err != nil {
		ir.Status = instrumentresult.StatusRejected
		_ = s.InstrumentResults.Update(ctx, ir)
		return SubmitResultOutcome{}, apperrors.Wrap(apperrors.KindInvalidInput, "invalid mapped result", err)
	}
	if err := s.Results.Create(ctx, r); err != nil {
		return SubmitResultOutcome{}, err
	}

	ir.Status = instrumentresult.StatusMapped
	ir.MappedResultID = &r.ID
	if err := s.InstrumentResults.Update(ctx, ir); err != nil {
		return SubmitResultOutcome{}, err
	}

	inst.RecordSuccess(now, false, true)
	if err := s.Repo.Update(ctx, inst); err != nil {
		return SubmitResultOutcome{}, err
	}

	if _, err := s.Verification.VerifyResult(ctx, tenantID, r.ID); err != nil {
		return SubmitResultOutcome{ResultID: r.ID, Status: "accepted", VerificationQueued: false, ErrorMessage: err.Error()}, nil
	}

	return SubmitResultOutcome{ResultID: r.ID, Status: "accepted", VerificationQueued: true}, nil
}

// findOrderForTestCode looks for a pending order assigned to this
// instrument that requested the submitted test code — the link back to
// Sample/Order a bare instrument payload cannot otherwise supply.
func (s *ResultService) findOrderForTestCode(ctx context.Context, tenantID, instrumentID, testCode string) (*order.Order, error) {
	pending, err := s.Orders.ListPending(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	for _, o := range pending {
		if o.AssignedInstrumentID == nil || *o.AssignedInstrumentID != instrumentID {
			continue
		}
		for _, tc := range o.TestCodes {
			if tc == testCode {
				return o, nil
			}
		}
	}
	return nil, fmt.Errorf("no pending order assigned to this instrument requests test code %q", testCode)
}

func (s *ResultService) submitViaAdapter(ctx context.Context, inst *instrument.Instrument, in SubmitResultInput) (SubmitResultOutcome, error) {
	payload := instrumentadapter.ResultPayload{
		ExternalInstrumentResultID: in.ExternalInstrumentResultID,
		TestCode:                   in.TestCode,
		TestName:                   in.TestName,
		Value:                      in.Value,
		Unit:                       in.Unit,
		ReferenceRangeLow:          in.ReferenceRangeLow,
		ReferenceRangeHigh:         in.ReferenceRangeHigh,
		CollectionTimestamp:        in.CollectionTimestamp,
	}
	outcome, err := s.Adapter.ProcessResult(ctx, inst.TenantID, inst.ID, payload)
	now := time.Now()
	if err != nil {
		inst.RecordFailure(now, err.Error())
		_ = s.Repo.Update(ctx, inst)
		return SubmitResultOutcome{}, apperrors.UpstreamFailure("submit result to instrument driver", err)
	}
	inst.RecordSuccess(now, false, true)
	_ = s.Repo.Update(ctx, inst)
	return SubmitResultOutcome{
		ResultID:           outcome.ResultID,
		Status:             outcome.Status,
		VerificationQueued: outcome.VerificationQueued,
		ErrorMessage:       outcome.ErrorMessage,
	}, nil
}
