package tracing

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestNewProvider_Disabled(t *testing.T) {
	p, err := NewProvider(Config{})
	require.NoError(t, err)
	assert.False(t, p.Enabled())

	_, span := p.Tracer().Start(context.Background(), "noop")
	assert.False(t, span.SpanContext().IsValid())
	span.End()
	assert.NoError(t, p.Shutdown(context.Background()))
}

func TestNewProvider_Stdout(t *testing.T) {
	var buf bytes.Buffer
	p, err := NewProvider(Config{Enabled: true, Writer: &buf})
	require.NoError(t, err)
	assert.True(t, p.Enabled())

	_, span := p.Tracer().Start(context.Background(), "registry.ValidateConsistency")
	span.End()
	require.NoError(t, p.Shutdown(context.Background()))

	assert.Contains(t, buf.String(), "registry.ValidateConsistency")
}

func TestNewProvider_ExtraProcessor(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	p, err := NewProvider(Config{Enabled: true, Exporter: "none"}, sdktrace.WithSpanProcessor(sr))
	require.NoError(t, err)

	_, span := p.Tracer().Start(context.Background(), "bootstrap.Run")
	span.End()

	require.Len(t, sr.Ended(), 1)
	assert.Equal(t, "bootstrap.Run", sr.Ended()[0].Name())
}

func TestNewProvider_UnknownExporter(t *testing.T) {
	_, err := NewProvider(Config{Enabled: true, Exporter: "otlp"})
	assert.ErrorContains(t, err, "unsupported exporter type")
}
