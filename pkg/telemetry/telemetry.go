// Package telemetry configures OpenTelemetry tracing and metrics.
package telemetry

import (
	"context"
	"fmt"
	"net/http"

	"github.com/abgdnv/inventory/pkg/config"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	promexporter "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	tracesdk "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.34.0"
)

func newResource(serviceName string) *resource.Resource {
	return resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceNameKey.String(serviceName),
	)
}

// NewTracerProvider exports spans to the configured OTLP/HTTP endpoint and
// installs the provider and the W3C propagators globally.
func NewTracerProvider(ctx context.Context, serviceName string, cfg config.TelemetryConfig) (*tracesdk.TracerProvider, error) {
	collectorOpts := []otlptracehttp.Option{
		otlptracehttp.WithEndpoint(cfg.Traces.OtlpHttp.Endpoint),
		otlptracehttp.WithTimeout(cfg.Traces.OtlpHttp.Timeout),
	}
	if cfg.Traces.OtlpHttp.Insecure {
		collectorOpts = append(collectorOpts, otlptracehttp.WithInsecure())
	}

	exporter, err := otlptracehttp.New(ctx, collectorOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP trace exporter: %w", err)
	}
	tp := tracesdk.NewTracerProvider(
		tracesdk.WithBatcher(exporter),
		tracesdk.WithResource(newResource(serviceName)),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))
	return tp, nil
}

// NewMeterProvider installs a global meter provider whose instruments are
// exposed in Prometheus format by the returned handler, together with the Go
// runtime and process collectors.
func NewMeterProvider(serviceName string) (*sdkmetric.MeterProvider, http.Handler, error) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	exporter, err := promexporter.New(promexporter.WithRegisterer(registry))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
	}
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(exporter),
		sdkmetric.WithResource(newResource(serviceName)),
	)
	otel.SetMeterProvider(mp)
	return mp, promhttp.HandlerFor(registry, promhttp.HandlerOpts{}), nil
}
