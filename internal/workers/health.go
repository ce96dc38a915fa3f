package workers

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/hedgehog/ivdmiddleware/internal/domain/instrument"
	"github.com/hedgehog/ivdmiddleware/internal/metrics"
	"github.com/hedgehog/ivdmiddleware/internal/repository"
)

// NewHealthReaper periodically sweeps every active instrument and applies
// the 3-strike disconnect policy to ones that have gone quiet: an
// instrument that hasn't completed a successful query or result submission
// within staleThreshold is treated as a connection failure, the same path
// an actual failed call takes connection-health
// tracking. It also republishes the instruments_unhealthy gauge from the
// is_healthy projection of the active instruments it just swept.
func NewHealthReaper(instruments repository.InstrumentRepository, staleThreshold time.Duration, period time.Duration, logger *zap.SugaredLogger, m *metrics.Collector) Loop {
	return Loop{
		Name:   "health-reap",
		Period: period,
		Logger: logger,
		Tick: func(ctx context.Context) {
			start := time.Now()
			defer recordLoopDuration(m, "health-reap", start)

			active, err := instruments.ListAllActive(ctx)
			if err != nil {
				logger.Errorw("health reaper: list active instruments failed", "error", err)
				return
			}

			now := time.Now()
			unhealthy := 0
			for _, inst := range active {
				if isStale(inst, now, staleThreshold) {
					inst.RecordFailure(now, "no contact within staleness window")
					if err := instruments.Update(ctx, inst); err != nil {
						logger.Warnw("health reaper: update failed", "instrument_id", inst.ID, "error", err)
						continue
					}
					logger.Infow("health reaper: marked instrument stale",
						"instrument_id", inst.ID, "tenant_id", inst.TenantID,
						"connection_failure_count", inst.ConnectionFailureCount)
				}
				if !inst.IsHealthy() {
					unhealthy++
				}
			}
			m.SetInstrumentsUnhealthy(unhealthy)
		},
	}
}

func isStale(inst *instrument.Instrument, now time.Time, threshold time.Duration) bool {
	last := inst.APITokenCreatedAt
	if inst.LastSuccessfulQueryAt != nil && inst.LastSuccessfulQueryAt.After(last) {
		last = *inst.LastSuccessfulQueryAt
	}
	if inst.LastSuccessfulResultAt != nil && inst.LastSuccessfulResultAt.After(last) {
		last = *inst.LastSuccessfulResultAt
	}
	return now.Sub(last) > threshold
}
