// Copyright 2025 James Ross
package obs

import (
	"context"
	"fmt"
	"os"

	"github.com/jamesross/wasm-job-sandbox/internal/config"
	"github.com/jamesross/wasm-job-sandbox/internal/domain"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// MaybeInitTracing optionally initializes a global tracer provider with
// sampling and W3C propagation. Returns (nil, nil) when tracing is
// disabled or no collector endpoint is configured.
func MaybeInitTracing(cfg *config.Config) (*sdktrace.TracerProvider, error) {
	if !cfg.Observability.Tracing.Enabled || cfg.Observability.Tracing.Endpoint == "" {
		return nil, nil
	}

	exporter, err := otlptrace.New(context.Background(), otlptracehttp.NewClient(
		otlptracehttp.WithEndpoint(cfg.Observability.Tracing.Endpoint),
		otlptracehttp.WithInsecure(),
	))
	if err != nil {
		return nil, fmt.Errorf("create otlp exporter: %w", err)
	}

	hostname, _ := os.Hostname()
	res := resource.NewWithAttributes(
		"https://opentelemetry.io/schemas/1.24.0",
		attribute.String("service.name", "wasm-job-sandbox"),
		attribute.String("service.version", "1.0.0"),
		attribute.String("host.name", hostname),
		attribute.String("environment", cfg.Observability.Tracing.Environment),
	)

	var sampler sdktrace.Sampler
	switch cfg.Observability.Tracing.SamplingStrategy {
	case "always":
		sampler = sdktrace.AlwaysSample()
	case "never":
		sampler = sdktrace.NeverSample()
	default:
		sampler = sdktrace.TraceIDRatioBased(cfg.Observability.Tracing.SamplingRate)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sampler),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return tp, nil
}

func jobAttributes(job domain.Job) []attribute.KeyValue {
	caps := make([]string, len(job.Capabilities))
	for i, c := range job.Capabilities {
		caps[i] = string(c)
	}
	return []attribute.KeyValue{
		attribute.String("job.id", job.ID.String()),
		attribute.String("job.tenant_id", job.TenantID),
		attribute.String("job.module_id", job.ModuleID),
		attribute.StringSlice("job.capabilities", caps),
	}
}

// StartAdmissionSpan opens an "admission.submit" span for a job.
// admission.Controller.Submit does not call it, so admission is not
// traced; only dispatch and execution open spans.
func StartAdmissionSpan(ctx context.Context, job domain.Job) (context.Context, trace.Span) {
	tracer := otel.Tracer("admission")
	return tracer.Start(ctx, "admission.submit", trace.WithAttributes(jobAttributes(job)...))
}

// StartDispatchSpan opens the span covering GPU slot reservation and
// hand-off from the queue to a running sandbox task.
func StartDispatchSpan(ctx context.Context, job domain.Job) (context.Context, trace.Span) {
	tracer := otel.Tracer("dispatcher")
	return tracer.Start(ctx, "dispatch.run", trace.WithAttributes(jobAttributes(job)...))
}

// StartExecutionSpan opens the span covering one wasmtime invocation.
func StartExecutionSpan(ctx context.Context, job domain.Job) (context.Context, trace.Span) {
	tracer := otel.Tracer("sandbox")
	return tracer.Start(ctx, "sandbox.execute", trace.WithAttributes(jobAttributes(job)...))
}

// RecordError records an error on the span held in ctx, if any.
func RecordError(ctx context.Context, err error) {
	span := trace.SpanFromContext(ctx)
	if span.IsRecording() && err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}

// SetSpanSuccess marks the current span as successful.
func SetSpanSuccess(ctx context.Context) {
	span := trace.SpanFromContext(ctx)
	if span.IsRecording() {
		span.SetStatus(codes.Ok, "success")
	}
}

// TracerShutdown gracefully drains and shuts down the tracer provider.
func TracerShutdown(ctx context.Context, tp *sdktrace.TracerProvider) error {
	if tp == nil {
		return nil
	}
	return tp.Shutdown(ctx)
}
