package observability_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/Sumatoshi-tech/qodana/pkg/observability"
)

func exportedAttrs(t *testing.T, attrs ...attribute.KeyValue) map[string]attribute.Value {
	t.Helper()

	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSpanProcessor(observability.NewRedactor(sdktrace.NewSimpleSpanProcessor(exporter))),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)

	_, span := tp.Tracer("test").Start(context.Background(), "qodana.write")
	span.SetAttributes(attrs...)
	span.End()

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)

	out := make(map[string]attribute.Value, len(spans[0].Attributes))
	for _, kv := range spans[0].Attributes {
		out[string(kv.Key)] = kv.Value
	}

	return out
}

func TestRedactor_MasksSourceText(t *testing.T) {
	t.Parallel()

	attrs := exportedAttrs(t,
		attribute.String("problem.message", "Hardcoded password 'hunter2'"),
		attribute.String("problem.snippet", "password = \"hunter2\""),
		attribute.String("baseline.diff", "-a +b"),
		attribute.String("inspection", "HardcodedPassword"),
		attribute.Int("exit_code", 255),
	)

	assert.Equal(t, "[redacted]", attrs["problem.message"].AsString())
	assert.Equal(t, "[redacted]", attrs["problem.snippet"].AsString())
	assert.Equal(t, "[redacted]", attrs["baseline.diff"].AsString())
	assert.Equal(t, "HardcodedPassword", attrs["inspection"].AsString())
	assert.Equal(t, int64(255), attrs["exit_code"].AsInt64())
}

func TestRedactor_TruncatesLongValues(t *testing.T) {
	t.Parallel()

	long := strings.Repeat("é", 200)
	attrs := exportedAttrs(t, attribute.String("store.path", long))

	got := attrs["store.path"].AsString()
	assert.True(t, strings.HasSuffix(got, "..."))
	assert.LessOrEqual(t, len(got), 256+len("..."))
	assert.True(t, strings.HasPrefix(long, strings.TrimSuffix(got, "...")))
}
