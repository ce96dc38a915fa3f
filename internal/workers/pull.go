package workers

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/hedgehog/ivdmiddleware/internal/lisintegration"
	"github.com/hedgehog/ivdmiddleware/internal/metrics"
	"github.com/hedgehog/ivdmiddleware/internal/repository"
)

// NewPullLoop sweeps every tenant with a configured LIS integration and
// runs one SyncService.Pull retrieval pass each.
func NewPullLoop(configs repository.LISConfigRepository, sync *lisintegration.SyncService, period time.Duration, logger *zap.SugaredLogger, m *metrics.Collector) Loop {
	return Loop{
		Name:   "pull",
		Period: period,
		Logger: logger,
		Tick: func(ctx context.Context) {
			start := time.Now()
			defer recordLoopDuration(m, "pull", start)

			tenantIDs, err := configs.ListTenantIDs(ctx)
			if err != nil {
				logger.Errorw("pull loop: list tenants failed", "error", err)
				return
			}
			for _, tenantID := range tenantIDs {
				outcome, err := sync.Pull(ctx, tenantID)
				if err != nil {
					logger.Warnw("pull loop: tenant pull failed", "tenant_id", tenantID, "error", err)
					m.RecordLISRetrieval("failure")
					continue
				}
				m.RecordLISRetrieval("success")
				logger.Infow("pull loop: tenant pull complete",
					"tenant_id", tenantID,
					"samples_upserted", outcome.SamplesUpserted,
					"results_created", outcome.ResultsCreated)
			}
		},
	}
}
