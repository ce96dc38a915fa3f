package lisintegration

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"github.com/hedgehog/ivdmiddleware/internal/apperrors"
	"github.com/hedgehog/ivdmiddleware/internal/domain/result"
	"github.com/hedgehog/ivdmiddleware/internal/lisadapter"
	"github.com/hedgehog/ivdmiddleware/internal/repository"
)

// UploadService implements the outbound (upload) contract: project
// upload-eligible results, batch up to upload_batch_size oldest-first, send
// through the LISAdapter observing upload_rate_limit, and reconcile
// per-result and aggregate bookkeeping from the response.
type UploadService struct {
	Configs repository.LISConfigRepository
	Results repository.ResultRepository
	Adapter lisadapter.LISAdapter
}

func NewUploadService(configs repository.LISConfigRepository, results repository.ResultRepository, adapter lisadapter.LISAdapter) *UploadService {
	return &UploadService{Configs: configs, Results: results, Adapter: adapter}
}

// UploadOutcome summarizes one upload pass for the caller (the upload loop
// worker).
type UploadOutcome struct {
	TotalSent   int
	TotalFailed int
}

// Upload runs one outbound pass for a tenant. limiter paces individual
// result sends against the tenant's upload_rate_limit (results/minute); the
// caller constructs it once per tenant and reuses it across passes so the
// token bucket persists between calls.
func (s *UploadService) Upload(ctx context.Context, tenantID string, limiter *rate.Limiter) (UploadOutcome, error) {
	cfg, err := s.Configs.GetByTenant(ctx, tenantID)
	if err != nil {
		return UploadOutcome{}, err
	}
	if !cfg.AutoUploadEnabled {
		return UploadOutcome{}, nil
	}

	eligible, err := s.Results.ListUploadEligible(ctx, tenantID, cfg.UploadVerifiedResults, cfg.UploadRejectedResults, cfg.UploadBatchSize)
	if err != nil {
		return UploadOutcome{}, err
	}
	if len(eligible) == 0 {
		return UploadOutcome{}, nil
	}

	if limiter != nil {
		if err := limiter.WaitN(ctx, len(eligible)); err != nil {
			return UploadOutcome{}, apperrors.Internal("rate limit wait interrupted", err)
		}
	}

	byID := make(map[string]*result.Result, len(eligible))
	payloads := make([]lisadapter.ResultPayload, 0, len(eligible))
	for _, r := range eligible {
		byID[r.ExternalLISResultID] = r
		method := ""
		if r.VerificationMethod != nil {
			method = string(*r.VerificationMethod)
		}
		payloads = append(payloads, lisadapter.ResultPayload{
			ExternalLISResultID: r.ExternalLISResultID,
			TestCode:            r.TestCode,
			Value:               r.Value,
			Unit:                r.Unit,
			VerificationStatus:  string(r.VerificationStatus),
			VerificationMethod:  method,
		})
	}

	sendResult, err := s.Adapter.SendResults(ctx, payloads)
	if err != nil {
		now := time.Now()
		cfg.RecordUploadOutcome(now, false, true)
		_ = s.Configs.Update(ctx, cfg)
		return UploadOutcome{}, apperrors.UpstreamFailure("send results to LIS", err)
	}

	failed := make(map[string]bool, len(sendResult.FailedResultIDs))
	for _, id := range sendResult.FailedResultIDs {
		failed[id] = true
	}

	now := time.Now()
	var totalSent, totalFailed int
	for externalID, r := range byID {
		if failed[externalID] {
			r.MarkUploadFailed(sendResult.ErrorMessage)
			totalFailed++
		} else {
			r.MarkSent(now)
			totalSent++
		}
		if err := s.Results.Update(ctx, r); err != nil {
			return UploadOutcome{TotalSent: totalSent, TotalFailed: totalFailed}, err
		}
	}

	cfg.RecordUploadOutcome(now, totalSent > 0, totalFailed > 0)
	if err := s.Configs.Update(ctx, cfg); err != nil {
		return UploadOutcome{TotalSent: totalSent, TotalFailed: totalFailed}, err
	}

	return UploadOutcome{TotalSent: totalSent, TotalFailed: totalFailed}, nil
}
