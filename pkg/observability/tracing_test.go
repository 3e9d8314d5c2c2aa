package observability

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func recorder(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	sr := tracetest.NewSpanRecorder()
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr)))
	t.Cleanup(func() { otel.SetTracerProvider(prev) })
	return sr
}

func attrs(span sdktrace.ReadOnlySpan) map[attribute.Key]attribute.Value {
	out := make(map[attribute.Key]attribute.Value)
	for _, kv := range span.Attributes() {
		out[kv.Key] = kv.Value
	}
	return out
}

func TestTraceRecordsAttributesAndStatus(t *testing.T) {
	sr := recorder(t)

	err := Trace(context.Background(), "gtf.parse", func(ctx context.Context, span *Span) error {
		span.SetAttribute("gtf.input", "genes.gtf")
		span.SetAttribute("gtf.records", int64(42))
		span.SetAttribute("gtf.zero_based", true)
		span.SetAttribute("gtf.ratio", 0.5)
		span.SetAttribute("gtf.workers", 3)
		span.SetAttribute("gtf.features", []string{"gene"})
		return nil
	})
	require.NoError(t, err)

	ended := sr.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, "gtf.parse", ended[0].Name())
	assert.Equal(t, codes.Ok, ended[0].Status().Code)

	a := attrs(ended[0])
	assert.Equal(t, "genes.gtf", a["gtf.input"].AsString())
	assert.Equal(t, int64(42), a["gtf.records"].AsInt64())
	assert.True(t, a["gtf.zero_based"].AsBool())
	assert.Equal(t, 0.5, a["gtf.ratio"].AsFloat64())
	assert.Equal(t, int64(3), a["gtf.workers"].AsInt64())
	assert.Equal(t, "[gene]", a["gtf.features"].AsString())
}

func TestTraceRecordsError(t *testing.T) {
	sr := recorder(t)
	failure := errors.New("malformed_record: failed to find attributes")

	err := Trace(context.Background(), "gtf.parse", func(ctx context.Context, span *Span) error {
		return failure
	})
	assert.Equal(t, failure, err)

	ended := sr.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, codes.Error, ended[0].Status().Code)
	assert.Equal(t, failure.Error(), ended[0].Status().Description)
	require.Len(t, ended[0].Events(), 1)
	assert.Equal(t, "exception", ended[0].Events()[0].Name)
}

func TestNestedSpans(t *testing.T) {
	sr := recorder(t)

	ctx, parent := StartSpan(context.Background(), "gtfcol.run")
	_, child := StartSpan(ctx, "gtf.write")
	child.AddEvent("table.written", attribute.String("feature", "exon"))
	child.End()
	parent.End()

	ended := sr.Ended()
	require.Len(t, ended, 2)
	assert.Equal(t, "gtf.write", ended[0].Name())
	assert.Equal(t, ended[1].SpanContext().SpanID(), ended[0].Parent().SpanID())
	assert.Equal(t, "table.written", ended[0].Events()[0].Name)
}

func TestInitTracingExportsToWriter(t *testing.T) {
	prev := otel.GetTracerProvider()
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	var buf bytes.Buffer
	shutdown, err := InitTracing(context.Background(), TracingConfig{
		ServiceName:  "gtfcol-test",
		SamplingRate: 1.0,
		Writer:       &buf,
	})
	require.NoError(t, err)

	_, span := StartSpan(context.Background(), "gtf.parse")
	span.End()

	require.NoError(t, shutdown(context.Background()))
	assert.Contains(t, buf.String(), `"Name":"gtf.parse"`)
	assert.Contains(t, buf.String(), "gtfcol-test")
}

func TestInitTracingNeverSamples(t *testing.T) {
	prev := otel.GetTracerProvider()
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	var buf bytes.Buffer
	shutdown, err := InitTracing(context.Background(), TracingConfig{ServiceName: "gtfcol-test", Writer: &buf})
	require.NoError(t, err)

	_, span := StartSpan(context.Background(), "gtf.parse")
	span.End()

	require.NoError(t, shutdown(context.Background()))
	assert.Empty(t, buf.String())
}
