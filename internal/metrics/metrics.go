// Package metrics exposes Prometheus collectors for the HTTP surface,
// verification engine, review workflow, LIS integration, and instrument
// integration.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector owns every metric this service exports.
type Collector struct {
	registry *prometheus.Registry

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	verificationDecisionsTotal *prometheus.CounterVec
	reviewsOpenedTotal         *prometheus.CounterVec
	reviewsCompletedTotal      *prometheus.CounterVec
	reviewDecisionDuration     prometheus.Histogram

	lisUploadsTotal    *prometheus.CounterVec
	lisRetrievalsTotal *prometheus.CounterVec
	lisRetryQueueDepth prometheus.Gauge

	instrumentQueriesTotal *prometheus.CounterVec
	instrumentResultsTotal *prometheus.CounterVec
	instrumentsUnhealthy   prometheus.Gauge

	workerIterationDuration *prometheus.HistogramVec
}

// New builds and registers every collector against a fresh registry.
func New() *Collector {
	registry := prometheus.NewRegistry()

	c := &Collector{
		registry: registry,

		httpRequestsTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "ivdmw_http_requests_total",
				Help: "Total number of HTTP requests processed.",
			},
			[]string{"method", "route", "status_code"},
		),
		httpRequestDuration: promauto.With(registry).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ivdmw_http_request_duration_seconds",
				Help:    "HTTP request latency in seconds.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),

		verificationDecisionsTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "ivdmw_verification_decisions_total",
				Help: "Total number of verification-engine decisions by outcome.",
			},
			[]string{"outcome"},
		),
		reviewsOpenedTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "ivdmw_reviews_opened_total",
				Help: "Total number of reviews opened.",
			},
			[]string{"reason"},
		),
		reviewsCompletedTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "ivdmw_reviews_completed_total",
				Help: "Total number of reviews completed by decision.",
			},
			[]string{"decision"},
		),
		reviewDecisionDuration: promauto.With(registry).NewHistogram(
			prometheus.HistogramOpts{
				Name:    "ivdmw_review_decision_duration_seconds",
				Help:    "Time a review spent open before a decision was recorded.",
				Buckets: prometheus.ExponentialBuckets(1, 4, 10),
			},
		),

		lisUploadsTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "ivdmw_lis_uploads_total",
				Help: "Total number of result uploads to the LIS by outcome.",
			},
			[]string{"status"},
		),
		lisRetrievalsTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "ivdmw_lis_retrievals_total",
				Help: "Total number of per-tenant LIS pull passes (samples and results) by outcome.",
			},
			[]string{"status"},
		),
		lisRetryQueueDepth: promauto.With(registry).NewGauge(
			prometheus.GaugeOpts{
				Name: "ivdmw_lis_retry_queue_depth",
				Help: "Current number of LIS operations pending retry.",
			},
		),

		instrumentQueriesTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "ivdmw_instrument_queries_total",
				Help: "Total number of host-query requests from instruments by outcome.",
			},
			[]string{"status"},
		),
		instrumentResultsTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "ivdmw_instrument_results_total",
				Help: "Total number of result submissions from instruments by outcome.",
			},
			[]string{"status"},
		),
		instrumentsUnhealthy: promauto.With(registry).NewGauge(
			prometheus.GaugeOpts{
				Name: "ivdmw_instruments_unhealthy",
				Help: "Current number of active instruments with three or more consecutive connection failures.",
			},
		),

		workerIterationDuration: promauto.With(registry).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ivdmw_worker_iteration_duration_seconds",
				Help:    "Wall time of one background worker loop pass, by worker name.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"worker"},
		),
	}

	registry.MustRegister(prometheus.NewGoCollector())
	registry.MustRegister(prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))

	return c
}

func (c *Collector) RecordHTTPRequest(method, route string, statusCode int, d time.Duration) {
	c.httpRequestsTotal.WithLabelValues(method, route, statusCodeLabel(statusCode)).Inc()
	c.httpRequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

func (c *Collector) RecordVerificationDecision(outcome string) {
	c.verificationDecisionsTotal.WithLabelValues(outcome).Inc()
}

func (c *Collector) RecordReviewOpened(reason string) {
	c.reviewsOpenedTotal.WithLabelValues(reason).Inc()
}

func (c *Collector) RecordReviewCompleted(decision string, openFor time.Duration) {
	c.reviewsCompletedTotal.WithLabelValues(decision).Inc()
	c.reviewDecisionDuration.Observe(openFor.Seconds())
}

func (c *Collector) RecordLISUpload(status string) {
	c.lisUploadsTotal.WithLabelValues(status).Inc()
}

func (c *Collector) RecordLISRetrieval(status string) {
	c.lisRetrievalsTotal.WithLabelValues(status).Inc()
}

func (c *Collector) SetLISRetryQueueDepth(n int) {
	c.lisRetryQueueDepth.Set(float64(n))
}

func (c *Collector) RecordInstrumentQuery(status string) {
	c.instrumentQueriesTotal.WithLabelValues(status).Inc()
}

func (c *Collector) RecordInstrumentResult(status string) {
	c.instrumentResultsTotal.WithLabelValues(status).Inc()
}

func (c *Collector) SetInstrumentsUnhealthy(n int) {
	c.instrumentsUnhealthy.Set(float64(n))
}

func (c *Collector) RecordWorkerIteration(worker string, d time.Duration) {
	c.workerIterationDuration.WithLabelValues(worker).Observe(d.Seconds())
}

// Handler serves the Prometheus exposition format for this collector.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

func (c *Collector) Registry() *prometheus.Registry { return c.registry }

func statusCodeLabel(code int) string {
	switch {
	case code >= 500:
		return "5xx"
	case code >= 400:
		return "4xx"
	case code >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
