package workers

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/hedgehog/ivdmiddleware/internal/lisintegration"
	"github.com/hedgehog/ivdmiddleware/internal/metrics"
	"github.com/hedgehog/ivdmiddleware/internal/repository"
)

// NewRetryLoop sweeps every tenant with a configured LIS integration and
// reschedules every upload_status=failed result back to pending, so the
// next UploadLoop pass re-attempts it.
func NewRetryLoop(configs repository.LISConfigRepository, retry *lisintegration.RetryService, period time.Duration, logger *zap.SugaredLogger, m *metrics.Collector) Loop {
	return Loop{
		Name:   "retry",
		Period: period,
		Logger: logger,
		Tick: func(ctx context.Context) {
			start := time.Now()
			defer recordLoopDuration(m, "retry", start)

			tenantIDs, err := configs.ListTenantIDs(ctx)
			if err != nil {
				logger.Errorw("retry loop: list tenants failed", "error", err)
				return
			}
			var totalDepth int
			for _, tenantID := range tenantIDs {
				rescheduled, err := retry.Reschedule(ctx, tenantID)
				if err != nil {
					logger.Warnw("retry loop: reschedule failed", "tenant_id", tenantID, "error", err)
					continue
				}
				if rescheduled > 0 {
					logger.Infow("retry loop: rescheduled failed uploads", "tenant_id", tenantID, "count", rescheduled)
				}
				totalDepth += rescheduled
			}
			m.SetLISRetryQueueDepth(totalDepth)
		},
	}
}
