// Package telemetry is the telemetry sink (spec §6): counters
// (requests, cache hits/misses/evictions, errors by kind), histograms
// (per-stage latency), and structured events (document processed,
// document deleted, retrieval cancelled).
package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"

	"github.com/ZacharyN/org-archivist-sub001/internal/config"
)

// Setup wires up OTLP-over-HTTP tracing and metrics exporters per
// cfg, and returns a shutdown func to defer plus a Sink bound to the
// installed meter provider. When cfg.Enabled is false, it's a no-op:
// the global meter/tracer providers stay as the no-op defaults, and
// the returned Sink is Noop, so callers never need a feature flag of
// their own around telemetry calls.
func Setup(ctx context.Context, cfg config.ObservabilityConfig) (func(context.Context) error, Sink, error) {
	if !cfg.Enabled || cfg.OTLPEndpoint == "" {
		return func(context.Context) error { return nil }, Noop, nil
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceName(cfg.ServiceName)),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("telemetry: build resource: %w", err)
	}

	traceOpts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(cfg.OTLPEndpoint)}
	metricOpts := []otlpmetrichttp.Option{otlpmetrichttp.WithEndpoint(cfg.OTLPEndpoint)}
	if cfg.Insecure {
		traceOpts = append(traceOpts, otlptracehttp.WithInsecure())
		metricOpts = append(metricOpts, otlpmetrichttp.WithInsecure())
	}

	traceExp, err := otlptracehttp.New(ctx, traceOpts...)
	if err != nil {
		return nil, nil, fmt.Errorf("telemetry: init trace exporter: %w", err)
	}
	tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(traceExp), sdktrace.WithResource(res))

	metricExp, err := otlpmetrichttp.New(ctx, metricOpts...)
	if err != nil {
		return nil, nil, fmt.Errorf("telemetry: init metric exporter: %w", err)
	}
	reader := metric.NewPeriodicReader(metricExp, metric.WithInterval(15*time.Second))
	mp := metric.NewMeterProvider(metric.WithReader(reader), metric.WithResource(res))

	otel.SetTracerProvider(tp)
	otel.SetMeterProvider(mp)

	sink, err := NewOtelSink(nil)
	if err != nil {
		return nil, nil, fmt.Errorf("telemetry: build sink: %w", err)
	}

	return func(shutdownCtx context.Context) error {
		var first error
		if err := mp.Shutdown(shutdownCtx); err != nil {
			first = err
		}
		if err := tp.Shutdown(shutdownCtx); err != nil && first == nil {
			first = err
		}
		return first
	}, sink, nil
}
