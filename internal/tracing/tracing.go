// Package tracing builds the OpenTelemetry tracer used by the registry and bootstrap.
package tracing

import (
	"context"
	"fmt"
	"io"
	"os"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

const defaultServiceName = "metareg"

// Config configures tracing.
type Config struct {
	// Enabled controls whether tracing is active. When false a no-op tracer is used.
	Enabled bool

	// Exporter is "stdout" or "none". Default: "stdout".
	Exporter string

	// Writer receives stdout exporter output. Default: os.Stderr.
	Writer io.Writer

	// SampleRate is the fraction of traces sampled. Default: 1.0.
	SampleRate float64

	ServiceName string
}

// Provider owns the tracer provider and hands out its tracer.
type Provider struct {
	provider *sdktrace.TracerProvider
	tracer   trace.Tracer
	enabled  bool
}

// NewProvider creates the provider described by cfg. Spans are exported synchronously
// so a short-lived CLI run does not lose them.
func NewProvider(cfg Config, opts ...sdktrace.TracerProviderOption) (*Provider, error) {
	if !cfg.Enabled {
		return &Provider{tracer: noop.NewTracerProvider().Tracer(defaultServiceName)}, nil
	}

	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = defaultServiceName
	}
	sampleRate := cfg.SampleRate
	if sampleRate <= 0 {
		sampleRate = 1.0
	}

	all := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(resource.NewSchemaless(attribute.String("service.name", serviceName))),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(sampleRate))),
	}

	switch cfg.Exporter {
	case "stdout", "":
		w := cfg.Writer
		if w == nil {
			w = os.Stderr
		}
		exporter, err := stdouttrace.New(stdouttrace.WithWriter(w), stdouttrace.WithPrettyPrint())
		if err != nil {
			return nil, fmt.Errorf("create stdout exporter: %w", err)
		}
		all = append(all, sdktrace.WithSyncer(exporter))
	case "none":
	default:
		return nil, fmt.Errorf("unsupported exporter type: %s", cfg.Exporter)
	}

	provider := sdktrace.NewTracerProvider(append(all, opts...)...)
	return &Provider{
		provider: provider,
		tracer:   provider.Tracer(serviceName),
		enabled:  true,
	}, nil
}

// Tracer returns the tracer. It is a no-op tracer when tracing is disabled.
func (p *Provider) Tracer() trace.Tracer {
	return p.tracer
}

// Enabled reports whether tracing is active.
func (p *Provider) Enabled() bool {
	return p.enabled
}

// Shutdown flushes pending spans.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p.provider != nil {
		return p.provider.Shutdown(ctx)
	}
	return nil
}
