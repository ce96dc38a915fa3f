// Package telemetry sets up OpenTelemetry tracing. cmd/ivdmiddlewared wraps
// the HTTP router in HTTPMiddleware; the span helpers for instrument
// adapters, LIS adapters, verification and worker iterations have no callers
// in this module.
package telemetry

import (
	"context"
	"fmt"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
)

const (
	ServiceName = "ivdmiddleware"

	SpanNameHTTPRequest       = "http_request"
	SpanNameInstrumentAdapter = "instrument_adapter"
	SpanNameLISAdapter        = "lis_adapter"
	SpanNameVerification      = "verification"
	SpanNameWorkerIteration   = "worker_iteration"
)

// Config holds tracing configuration, sourced from config.Config.
type Config struct {
	Enabled      bool
	OTLPEndpoint string
	ServiceName  string
	Environment  string
	SamplingRate float64
}

// Provider manages OpenTelemetry tracing setup and lifecycle.
type Provider struct {
	config     *Config
	tracer     trace.Tracer
	provider   *sdktrace.TracerProvider
	propagator propagation.TextMapPropagator
}

func NewProvider(ctx context.Context, cfg *Config) (*Provider, error) {
	if !cfg.Enabled {
		return &Provider{config: cfg, tracer: otel.Tracer(cfg.ServiceName)}, nil
	}

	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpoint(cfg.OTLPEndpoint),
		otlptracehttp.WithInsecure(),
	)
	if err != nil {
		return nil, fmt.Errorf("create otlp exporter: %w", err)
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceNameKey.String(cfg.ServiceName),
			semconv.ServiceVersionKey.String("1.0.0"),
			semconv.DeploymentEnvironmentKey.String(cfg.Environment),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("build resource: %w", err)
	}

	var sampler sdktrace.Sampler
	switch {
	case cfg.SamplingRate >= 1.0:
		sampler = sdktrace.AlwaysSample()
	case cfg.SamplingRate <= 0.0:
		sampler = sdktrace.NeverSample()
	default:
		sampler = sdktrace.TraceIDRatioBased(cfg.SamplingRate)
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sampler),
	)
	otel.SetTracerProvider(provider)

	propagator := propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	)
	otel.SetTextMapPropagator(propagator)

	return &Provider{
		config:     cfg,
		tracer:     provider.Tracer(cfg.ServiceName),
		provider:   provider,
		propagator: propagator,
	}, nil
}

func (p *Provider) Tracer() trace.Tracer { return p.tracer }

func (p *Provider) Shutdown(ctx context.Context) error {
	if p.provider != nil {
		return p.provider.Shutdown(ctx)
	}
	return nil
}

func (p *Provider) StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return p.tracer.Start(ctx, name, opts...)
}

// HTTPMiddleware traces every inbound request.
func (p *Provider) HTTPMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !p.config.Enabled {
			next.ServeHTTP(w, r)
			return
		}

		ctx := p.propagator.Extract(r.Context(), propagation.HeaderCarrier(r.Header))
		spanCtx, span := p.StartSpan(ctx, SpanNameHTTPRequest,
			trace.WithAttributes(
				semconv.HTTPMethodKey.String(r.Method),
				semconv.HTTPTargetKey.String(r.URL.Path),
			),
			trace.WithSpanKind(trace.SpanKindServer),
		)
		defer span.End()

		wrapped := &statusCapture{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapped, r.WithContext(spanCtx))

		span.SetAttributes(semconv.HTTPStatusCodeKey.Int(wrapped.statusCode))
		if wrapped.statusCode >= 500 {
			span.SetStatus(codes.Error, fmt.Sprintf("HTTP %d", wrapped.statusCode))
		}
	})
}

type statusCapture struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusCapture) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

// InstrumentAdapterSpan traces a call into an instrument driver.
func (p *Provider) InstrumentAdapterSpan(ctx context.Context, instrumentID, operation string) (context.Context, trace.Span) {
	return p.StartSpan(ctx, SpanNameInstrumentAdapter,
		trace.WithAttributes(
			attribute.String("instrument.id", instrumentID),
			attribute.String("operation", operation),
		),
		trace.WithSpanKind(trace.SpanKindClient),
	)
}

// LISAdapterSpan traces a call into the LIS connector.
func (p *Provider) LISAdapterSpan(ctx context.Context, operation string) (context.Context, trace.Span) {
	return p.StartSpan(ctx, SpanNameLISAdapter,
		trace.WithAttributes(attribute.String("operation", operation)),
		trace.WithSpanKind(trace.SpanKindClient),
	)
}

// VerificationSpan traces a rule-engine decision.
func (p *Provider) VerificationSpan(ctx context.Context, resultID string) (context.Context, trace.Span) {
	return p.StartSpan(ctx, SpanNameVerification,
		trace.WithAttributes(attribute.String("result.id", resultID)),
	)
}

// WorkerIterationSpan traces one tick of a background loop.
func (p *Provider) WorkerIterationSpan(ctx context.Context, worker string) (context.Context, trace.Span) {
	return p.StartSpan(ctx, SpanNameWorkerIteration,
		trace.WithAttributes(attribute.String("worker", worker)),
	)
}

func (p *Provider) SetSpanError(ctx context.Context, err error) {
	span := trace.SpanFromContext(ctx)
	if span != nil {
		span.SetStatus(codes.Error, err.Error())
		span.RecordError(err)
	}
}

func DefaultConfig() *Config {
	return &Config{
		Enabled:      false,
		OTLPEndpoint: "http://localhost:4318/v1/traces",
		ServiceName:  ServiceName,
		Environment:  "development",
		SamplingRate: 1.0,
	}
}
