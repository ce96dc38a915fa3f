package lisintegration_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hedgehog/ivdmiddleware/internal/domain/lisconfig"
	"github.com/hedgehog/ivdmiddleware/internal/domain/sample"
	"github.com/hedgehog/ivdmiddleware/internal/lisadapter"
	"github.com/hedgehog/ivdmiddleware/internal/lisintegration"
	"github.com/hedgehog/ivdmiddleware/internal/repository/memory"
)

func TestPullUpsertsSamplesAndResultsIdempotently(t *testing.T) {
	ctx := context.Background()
	configs := memory.NewLISConfigRepository()
	samples := memory.NewSampleRepository()
	results := memory.NewResultRepository()
	seedConfig(t, configs, 100)

	adapter := lisadapter.NewMockAdapter()
	// Received after both pulls' since cut-off, so GetSamples serves the
	// sample again on the second pass.
	collected := time.Now().Add(time.Hour)
	received := collected.Add(time.Hour)
	adapter.SeedSample(lisadapter.SampleData{
		ExternalLISID:  "sample-ext-1",
		PatientID:      "pat-1",
		SpecimenType:   "blood",
		CollectionDate: collected,
		ReceivedDate:   received,
	})
	adapter.SeedResult("sample-ext-1", lisadapter.ResultData{
		ExternalLISResultID: "result-ext-1",
		SampleExternalLISID: "sample-ext-1",
		TestCode:             "WBC",
		Value:                "5.0",
	})

	svc := lisintegration.NewSyncService(configs, samples, results, adapter)
	outcome, err := svc.Pull(ctx, tenantID)
	require.NoError(t, err)
	assert.Equal(t, 1, outcome.SamplesUpserted)
	assert.Equal(t, 1, outcome.ResultsCreated)

	got, err := samples.GetByExternalLISID(ctx, tenantID, "sample-ext-1")
	require.NoError(t, err)
	assert.Equal(t, "pat-1", got.PatientID)
	assert.Equal(t, sample.StatusPending, got.Status)

	cfg, err := configs.GetByTenant(ctx, tenantID)
	require.NoError(t, err)
	require.NotNil(t, cfg.LastSuccessfulRetrievalAt)
	assert.Equal(t, lisconfig.ConnectionActive, cfg.ConnectionStatus)

	// Second pull: same sample/result data is a no-op, not a duplicate.
	outcome, err = svc.Pull(ctx, tenantID)
	require.NoError(t, err)
	assert.Equal(t, 1, outcome.SamplesUpserted) // upsert still "touches" it
	assert.Equal(t, 0, outcome.ResultsCreated)
}

func TestPullRecordsConnectionFailureOnAdapterError(t *testing.T) {
	ctx := context.Background()
	configs := memory.NewLISConfigRepository()
	samples := memory.NewSampleRepository()
	results := memory.NewResultRepository()
	seedConfig(t, configs, 100)

	adapter := lisadapter.NewMockAdapter()
	adapter.SetConnected(false)

	svc := lisintegration.NewSyncService(configs, samples, results, adapter)
	_, err := svc.Pull(ctx, tenantID)
	require.Error(t, err)

	cfg, err := configs.GetByTenant(ctx, tenantID)
	require.NoError(t, err)
	assert.Equal(t, 1, cfg.ConnectionFailureCount)
	assert.Equal(t, lisconfig.ConnectionInactive, cfg.ConnectionStatus)
}
