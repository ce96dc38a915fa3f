package lisintegration

import (
	"context"
	"time"

	"github.com/hedgehog/ivdmiddleware/internal/apperrors"
	"github.com/hedgehog/ivdmiddleware/internal/domain/result"
	"github.com/hedgehog/ivdmiddleware/internal/domain/sample"
	"github.com/hedgehog/ivdmiddleware/internal/lisadapter"
	"github.com/hedgehog/ivdmiddleware/internal/repository"
)

// SyncService implements the retrieval (pull) contract: upsert Samples by
// (tenant_id, external_lis_id), then idempotently create Results for each,
// all within a single pull loop body.
type SyncService struct {
	Configs repository.LISConfigRepository
	Samples repository.SampleRepository
	Results repository.ResultRepository
	Adapter lisadapter.LISAdapter
}

func NewSyncService(configs repository.LISConfigRepository, samples repository.SampleRepository, results repository.ResultRepository, adapter lisadapter.LISAdapter) *SyncService {
	return &SyncService{Configs: configs, Samples: samples, Results: results, Adapter: adapter}
}

// PullOutcome summarizes one retrieval pass for logging/metrics at the
// caller (the pull loop worker).
type PullOutcome struct {
	SamplesUpserted int
	ResultsCreated  int
}

// Pull runs one retrieval pass for a tenant: fetch samples modified since
// the config's last successful retrieval, upsert them, then fetch and
// idempotently create results for every sample touched this pass.
func (s *SyncService) Pull(ctx context.Context, tenantID string) (PullOutcome, error) {
	cfg, err := s.Configs.GetByTenant(ctx, tenantID)
	if err != nil {
		return PullOutcome{}, err
	}

	since := time.Time{}
	if cfg.LastSuccessfulRetrievalAt != nil {
		since = *cfg.LastSuccessfulRetrievalAt
	}

	samples, err := s.Adapter.GetSamples(ctx, since)
	if err != nil {
		now := time.Now()
		cfg.RecordConnectionFailure(now)
		_ = s.Configs.Update(ctx, cfg)
		return PullOutcome{}, apperrors.UpstreamFailure("fetch samples from LIS", err)
	}

	var outcome PullOutcome
	for _, sd := range samples {
		sampleID, err := s.upsertSample(ctx, tenantID, sd)
		if err != nil {
			continue
		}
		outcome.SamplesUpserted++

		created, err := s.pullResultsForSample(ctx, tenantID, sampleID, sd.ExternalLISID)
		if err != nil {
			continue
		}
		outcome.ResultsCreated += created
	}

	now := time.Now()
	cfg.RecordRetrievalSuccess(now)
	if err := s.Configs.Update(ctx, cfg); err != nil {
		return outcome, err
	}
	return outcome, nil
}

func (s *SyncService) upsertSample(ctx context.Context, tenantID string, sd lisadapter.SampleData) (string, error) {
	existing, err := s.Samples.GetByExternalLISID(ctx, tenantID, sd.ExternalLISID)
	if err == nil {
		patientID, specimenType, collectionDate, receivedDate := sd.PatientID, sd.SpecimenType, sd.CollectionDate, sd.ReceivedDate
		_, err := s.Samples.Update(ctx, tenantID, existing.ID, sample.Patch{
			PatientID:      &patientID,
			SpecimenType:   &specimenType,
			CollectionDate: &collectionDate,
			ReceivedDate:   &receivedDate,
		})
		if err != nil {
			return "", err
		}
		return existing.ID, nil
	}
	if apperrors.KindOf(err) != apperrors.KindNotFound {
		return "", err
	}

	newSample := &sample.Sample{
		TenantID:       tenantID,
		ExternalLISID:  sd.ExternalLISID,
		PatientID:      sd.PatientID,
		SpecimenType:   sd.SpecimenType,
		CollectionDate: sd.CollectionDate,
		ReceivedDate:   sd.ReceivedDate,
	}
	if err := newSample.Validate(); err != nil {
		return "", apperrors.Wrap(apperrors.KindInvalidInput, "invalid sample from LIS", err)
	}
	if err := s.Samples.Create(ctx, newSample); err != nil {
		return "", err
	}
	return newSample.ID, nil
}

// pullResultsForSample fetches results for one sample and creates any not
// already ingested, matching idempotently on external_lis_result_id.
func (s *SyncService) pullResultsForSample(ctx context.Context, tenantID, sampleID, sampleExternalLISID string) (int, error) {
	data, err := s.Adapter.GetResults(ctx, sampleExternalLISID)
	if err != nil {
		return 0, apperrors.UpstreamFailure("fetch results from LIS", err)
	}

	created := 0
	for _, rd := range data {
		if _, err := s.Results.GetByExternalLISResultID(ctx, tenantID, rd.ExternalLISResultID); err == nil {
			continue // already ingested, idempotent no-op
		} else if apperrors.KindOf(err) != apperrors.KindNotFound {
			return created, err
		}

		r := &result.Result{
			TenantID:             tenantID,
			ExternalLISResultID:  rd.ExternalLISResultID,
			SampleID:             sampleID,
			TestCode:             rd.TestCode,
			TestName:             rd.TestName,
			Value:                rd.Value,
			Unit:                 rd.Unit,
			ReferenceRangeLow:    rd.ReferenceRangeLow,
			ReferenceRangeHigh:   rd.ReferenceRangeHigh,
			LISFlags:             rd.LISFlags,
			VerificationStatus:   result.VerificationPending,
			UploadStatus:         result.UploadPending,
		}
		if err := r.Validate(); err != nil {
			return created, apperrors.Wrap(apperrors.KindInvalidInput, "invalid result from LIS", err)
		}
		if err := s.Results.Create(ctx, r); err != nil {
			return created, err
		}
		created++
	}
	return created, nil
}
