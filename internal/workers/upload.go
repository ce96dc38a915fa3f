package workers

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/hedgehog/ivdmiddleware/internal/lisintegration"
	"github.com/hedgehog/ivdmiddleware/internal/metrics"
	"github.com/hedgehog/ivdmiddleware/internal/repository"
)

// NewUploadLoop sweeps every tenant with a configured LIS integration and
// runs one UploadService.Upload pass each, pacing sends against the
// tenant's upload_rate_limit (results/minute) with a persistent
// golang.org/x/time/rate limiter per tenant — the token bucket must
// survive between ticks, so it is kept in a map outside Tick's closure
// instead of rebuilt each pass.
func NewUploadLoop(configs repository.LISConfigRepository, upload *lisintegration.UploadService, period time.Duration, logger *zap.SugaredLogger, m *metrics.Collector) Loop {
	var mu sync.Mutex
	limiters := make(map[string]*rate.Limiter)

	return Loop{
		Name:   "upload",
		Period: period,
		Logger: logger,
		Tick: func(ctx context.Context) {
			start := time.Now()
			defer recordLoopDuration(m, "upload", start)

			tenantIDs, err := configs.ListTenantIDs(ctx)
			if err != nil {
				logger.Errorw("upload loop: list tenants failed", "error", err)
				return
			}
			for _, tenantID := range tenantIDs {
				cfg, err := configs.GetByTenant(ctx, tenantID)
				if err != nil {
					logger.Warnw("upload loop: get config failed", "tenant_id", tenantID, "error", err)
					continue
				}

				limiter := limiterFor(&mu, limiters, tenantID, cfg.UploadRateLimit)

				outcome, err := upload.Upload(ctx, tenantID, limiter)
				if err != nil {
					logger.Warnw("upload loop: tenant upload failed", "tenant_id", tenantID, "error", err)
					m.RecordLISUpload("failure")
					continue
				}
				if outcome.TotalSent > 0 || outcome.TotalFailed > 0 {
					m.RecordLISUpload("success")
					logger.Infow("upload loop: tenant upload complete",
						"tenant_id", tenantID,
						"sent", outcome.TotalSent,
						"failed", outcome.TotalFailed)
				}
			}
		},
	}
}

func limiterFor(mu *sync.Mutex, limiters map[string]*rate.Limiter, tenantID string, ratePerMinute int) *rate.Limiter {
	mu.Lock()
	defer mu.Unlock()

	if ratePerMinute <= 0 {
		return nil
	}
	if l, ok := limiters[tenantID]; ok {
		return l
	}
	l := rate.NewLimiter(rate.Limit(float64(ratePerMinute)/60.0), ratePerMinute)
	limiters[tenantID] = l
	return l
}
