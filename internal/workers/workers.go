// Package workers runs the long-lived background loops: LIS pull, LIS
// upload, upload-retry, and per-instrument health reaping. Each loop wraps
// its body in context cancellation and a time.Ticker at a configured
// period — ticker + ctx.Done() select, no error propagation to a caller,
// only logging and metrics.
package workers

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/hedgehog/ivdmiddleware/internal/metrics"
)

// Loop is the shared shape every background worker implements: run one
// pass over every tenant, called once per tick.
type Loop struct {
	Name   string
	Period time.Duration
	Logger *zap.SugaredLogger
	Tick   func(ctx context.Context)
}

// Run blocks until ctx is cancelled, invoking Tick once per Period. The
// first tick fires immediately rather than waiting a full period.
func (l Loop) Run(ctx context.Context) {
	l.Logger.Infow("worker loop starting", "worker", l.Name, "period", l.Period)
	l.runTick(ctx)

	ticker := time.NewTicker(l.Period)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			l.Logger.Infow("worker loop stopping", "worker", l.Name)
			return
		case <-ticker.C:
			l.runTick(ctx)
		}
	}
}

func (l Loop) runTick(ctx context.Context) {
	defer func() {
		if rec := recover(); rec != nil {
			l.Logger.Errorw("worker loop tick panicked", "worker", l.Name, "panic", rec)
		}
	}()
	l.Tick(ctx)
}

// recordLoopDuration is shared by every Tick implementation that records
// per-pass wall time against the metrics collector.
func recordLoopDuration(m *metrics.Collector, worker string, start time.Time) {
	m.RecordWorkerIteration(worker, time.Since(start))
}
