package workers_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/hedgehog/ivdmiddleware/internal/domain/instrument"
	"github.com/hedgehog/ivdmiddleware/internal/domain/lisconfig"
	"github.com/hedgehog/ivdmiddleware/internal/domain/result"
	"github.com/hedgehog/ivdmiddleware/internal/lisadapter"
	"github.com/hedgehog/ivdmiddleware/internal/lisintegration"
	"github.com/hedgehog/ivdmiddleware/internal/logging"
	"github.com/hedgehog/ivdmiddleware/internal/metrics"
	"github.com/hedgehog/ivdmiddleware/internal/repository"
	"github.com/hedgehog/ivdmiddleware/internal/repository/memory"
	"github.com/hedgehog/ivdmiddleware/internal/workers"
)

func newTestLogger(t *testing.T) *zap.SugaredLogger {
	t.Helper()
	l, err := logging.New(logging.Config{Environment: "development", Level: "error"})
	require.NoError(t, err)
	return l
}

func allPage() repository.Page {
	return repository.Page{Limit: 500}
}

func TestLoopRunFiresImmediatelyThenOnTicker(t *testing.T) {
	logger := newTestLogger(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var ticks int64
	loop := workers.Loop{
		Name:   "test",
		Period: 10 * time.Millisecond,
		Logger: logger,
		Tick: func(ctx context.Context) {
			atomic.AddInt64(&ticks, 1)
		},
	}

	done := make(chan struct{})
	go func() {
		loop.Run(ctx)
		close(done)
	}()

	// First tick fires without waiting a full period.
	require.Eventually(t, func() bool {
		return atomic.LoadInt64(&ticks) >= 1
	}, 100*time.Millisecond, time.Millisecond)

	// Ticker keeps firing until the context is cancelled.
	require.Eventually(t, func() bool {
		return atomic.LoadInt64(&ticks) >= 3
	}, time.Second, time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("loop did not stop after context cancellation")
	}
}

func TestLoopRunRecoversFromPanic(t *testing.T) {
	logger := newTestLogger(t)
	ctx, cancel := context.WithCancel(context.Background())

	var ticks int64
	loop := workers.Loop{
		Name:   "panicky",
		Period: 5 * time.Millisecond,
		Logger: logger,
		Tick: func(ctx context.Context) {
			atomic.AddInt64(&ticks, 1)
			panic("boom")
		},
	}

	done := make(chan struct{})
	go func() {
		loop.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		return atomic.LoadInt64(&ticks) >= 2
	}, time.Second, time.Millisecond)

	cancel()
	<-done
}

func TestPullLoopSweepsEveryTenant(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger(t)
	configs := memory.NewLISConfigRepository()
	samples := memory.NewSampleRepository()
	results := memory.NewResultRepository()

	require.NoError(t, configs.Create(ctx, &lisconfig.LISConfig{
		TenantID:         "tenant-a",
		IntegrationModel: lisconfig.ModelPull,
		APIEndpointURL:   "https://lis.example.test",
	}))

	adapter := lisadapter.NewMockAdapter()
	adapter.SeedSample(lisadapter.SampleData{
		ExternalLISID: "ext-s1",
		PatientID:     "patient-1",
		SpecimenType:  "blood",
	})
	adapter.SeedResult("ext-s1", lisadapter.ResultData{
		ExternalLISResultID: "ext-r1",
		TestCode:            "WBC",
		Value:               "5.0",
	})

	sync := lisintegration.NewSyncService(configs, samples, results, adapter)
	loop := workers.NewPullLoop(configs, sync, time.Hour, logger, metrics.New())

	loop.Tick(ctx)

	_, total, err := results.List(ctx, "tenant-a", repository.ResultFilter{}, allPage())
	require.NoError(t, err)
	assert.Equal(t, 1, total)
}

func TestRetryLoopReschedulesFailedUploads(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger(t)
	configs := memory.NewLISConfigRepository()
	results := memory.NewResultRepository()

	require.NoError(t, configs.Create(ctx, &lisconfig.LISConfig{
		TenantID:         "tenant-a",
		IntegrationModel: lisconfig.ModelPush,
		APIEndpointURL:   "https://lis.example.test",
	}))
	require.NoError(t, results.Create(ctx, &result.Result{
		TenantID:            "tenant-a",
		ExternalLISResultID: "ext-r1",
		SampleID:            "sample-1",
		TestCode:            "WBC",
		Value:               "5.0",
		VerificationStatus:  result.VerificationVerified,
		UploadStatus:        result.UploadFailed,
	}))

	retry := lisintegration.NewRetryService(results)
	loop := workers.NewRetryLoop(configs, retry, time.Hour, logger, metrics.New())

	loop.Tick(ctx)

	batch, _, err := results.List(ctx, "tenant-a", repository.ResultFilter{}, allPage())
	require.NoError(t, err)
	require.Len(t, batch, 1)
	assert.Equal(t, result.UploadPending, batch[0].UploadStatus)
}

func TestHealthReaperRecordsFailureForStaleInstrument(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger(t)
	instruments := memory.NewInstrumentRepository()

	stale := time.Now().Add(-time.Hour)
	require.NoError(t, instruments.Create(ctx, &instrument.Instrument{
		TenantID:          "tenant-a",
		Name:              "analyzer-1",
		APIToken:          "token-1",
		Status:            instrument.StatusActive,
		APITokenCreatedAt: stale,
	}))

	loop := workers.NewHealthReaper(instruments, 15*time.Minute, time.Hour, logger, metrics.New())
	loop.Tick(ctx)

	inst, err := instruments.GetByName(ctx, "tenant-a", "analyzer-1")
	require.NoError(t, err)
	assert.Equal(t, 1, inst.ConnectionFailureCount)
}

func TestHealthReaperLeavesFreshInstrumentAlone(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger(t)
	instruments := memory.NewInstrumentRepository()

	require.NoError(t, instruments.Create(ctx, &instrument.Instrument{
		TenantID:          "tenant-a",
		Name:              "analyzer-2",
		APIToken:          "token-2",
		Status:            instrument.StatusActive,
		APITokenCreatedAt: time.Now(),
	}))

	loop := workers.NewHealthReaper(instruments, 15*time.Minute, time.Hour, logger, metrics.New())
	loop.Tick(ctx)

	inst, err := instruments.GetByName(ctx, "tenant-a", "analyzer-2")
	require.NoError(t, err)
	assert.Equal(t, 0, inst.ConnectionFailureCount)
}
