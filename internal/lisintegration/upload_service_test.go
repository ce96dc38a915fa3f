package lisintegration_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hedgehog/ivdmiddleware/internal/domain/lisconfig"
	"github.com/hedgehog/ivdmiddleware/internal/domain/result"
	"github.com/hedgehog/ivdmiddleware/internal/lisadapter"
	"github.com/hedgehog/ivdmiddleware/internal/lisintegration"
	"github.com/hedgehog/ivdmiddleware/internal/repository/memory"
)

const tenantID = "tenant-a"

func seedConfig(t *testing.T, configs *memory.LISConfigRepository, batchSize int) {
	t.Helper()
	cfg := &lisconfig.LISConfig{
		TenantID:              tenantID,
		IntegrationModel:      lisconfig.ModelPull,
		APIEndpointURL:        "https://lis.example.test",
		AutoUploadEnabled:     true,
		UploadVerifiedResults: true,
		UploadBatchSize:       batchSize,
		UploadRateLimit:       1000,
	}
	require.NoError(t, configs.Create(context.Background(), cfg))
}

func seedVerifiedResult(t *testing.T, results *memory.ResultRepository, externalID string) *result.Result {
	t.Helper()
	r := &result.Result{
		TenantID:             tenantID,
		ExternalLISResultID:  externalID,
		SampleID:             "sample-1",
		TestCode:             "WBC",
		Value:                "5.0",
		VerificationStatus:   result.VerificationVerified,
		UploadStatus:         result.UploadPending,
	}
	require.NoError(t, results.Create(context.Background(), r))
	return r
}

// TestUploadRetryMath covers a batch of two verified results where the LIS
// accepts one and rejects the other; the retry loop must pick the rejected
// one back up on the next pass.
func TestUploadRetryMath(t *testing.T) {
	ctx := context.Background()
	configs := memory.NewLISConfigRepository()
	results := memory.NewResultRepository()
	seedConfig(t, configs, 2)

	r1 := seedVerifiedResult(t, results, "ext-r1")
	r2 := seedVerifiedResult(t, results, "ext-r2")

	adapter := lisadapter.NewMockAdapter()
	adapter.SetSendBehavior(func(payloads []lisadapter.ResultPayload) lisadapter.SendResult {
		return lisadapter.SendResult{TotalSent: 1, TotalFailed: 1, FailedResultIDs: []string{"ext-r2"}, ErrorMessage: "LIS rejected malformed value"}
	})

	uploadSvc := lisintegration.NewUploadService(configs, results, adapter)
	outcome, err := uploadSvc.Upload(ctx, tenantID, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, outcome.TotalSent)
	assert.Equal(t, 1, outcome.TotalFailed)

	got1, err := results.GetByID(ctx, tenantID, r1.ID)
	require.NoError(t, err)
	assert.Equal(t, result.UploadSent, got1.UploadStatus)
	assert.NotNil(t, got1.SentToLISAt)
	assert.Equal(t, 0, got1.UploadFailureCount)

	got2, err := results.GetByID(ctx, tenantID, r2.ID)
	require.NoError(t, err)
	assert.Equal(t, result.UploadFailed, got2.UploadStatus)
	assert.Equal(t, 1, got2.UploadFailureCount)
	require.NotNil(t, got2.UploadFailureReason)

	// Second pass: nothing is upload-eligible because r2 is "failed", not
	// "pending" — the retry loop must reschedule it first.
	outcome, err = uploadSvc.Upload(ctx, tenantID, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, outcome.TotalSent)
	assert.Equal(t, 0, outcome.TotalFailed)

	retrySvc := lisintegration.NewRetryService(results)
	rescheduled, err := retrySvc.Reschedule(ctx, tenantID)
	require.NoError(t, err)
	assert.Equal(t, 1, rescheduled)

	adapter.SetSendBehavior(func(payloads []lisadapter.ResultPayload) lisadapter.SendResult {
		return lisadapter.SendResult{TotalSent: len(payloads)}
	})
	outcome, err = uploadSvc.Upload(ctx, tenantID, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, outcome.TotalSent)

	final, err := results.GetByID(ctx, tenantID, r2.ID)
	require.NoError(t, err)
	assert.Equal(t, result.UploadSent, final.UploadStatus)
	assert.Equal(t, 0, final.UploadFailureCount)
}

func TestUploadSkipsWhenAutoUploadDisabled(t *testing.T) {
	ctx := context.Background()
	configs := memory.NewLISConfigRepository()
	results := memory.NewResultRepository()
	cfg := &lisconfig.LISConfig{
		TenantID:              tenantID,
		IntegrationModel:      lisconfig.ModelPull,
		APIEndpointURL:        "https://lis.example.test",
		AutoUploadEnabled:     false,
		UploadVerifiedResults: true,
		UploadBatchSize:       10,
	}
	require.NoError(t, configs.Create(ctx, cfg))
	seedVerifiedResult(t, results, "ext-r1")

	adapter := lisadapter.NewMockAdapter()
	uploadSvc := lisintegration.NewUploadService(configs, results, adapter)
	outcome, err := uploadSvc.Upload(ctx, tenantID, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, outcome.TotalSent)
	assert.Empty(t, adapter.Sent())
}
