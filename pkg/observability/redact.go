package observability

import (
	"context"
	"strings"
	"unicode/utf8"

	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// Span attribute keys ending in these suffixes may carry source text and
// are never exported.
var sourceTextSuffixes = []string{".message", ".snippet", ".diff"}

const (
	redacted        = "[redacted]"
	maxAttributeLen = 256
)

// redactor is a SpanProcessor that masks source text in span attributes and
// truncates long string values before the span reaches the exporter.
type redactor struct {
	next sdktrace.SpanProcessor
}

// NewRedactor wraps next. Spans keep their attributes in memory; only the
// exported view is redacted.
func NewRedactor(next sdktrace.SpanProcessor) sdktrace.SpanProcessor {
	return &redactor{next: next}
}

func (r *redactor) OnStart(parent context.Context, s sdktrace.ReadWriteSpan) {
	r.next.OnStart(parent, s)
}

func (r *redactor) OnEnd(s sdktrace.ReadOnlySpan) {
	r.next.OnEnd(redactedSpan{ReadOnlySpan: s})
}

func (r *redactor) Shutdown(ctx context.Context) error   { return r.next.Shutdown(ctx) }
func (r *redactor) ForceFlush(ctx context.Context) error { return r.next.ForceFlush(ctx) }

type redactedSpan struct {
	sdktrace.ReadOnlySpan
}

func (s redactedSpan) Attributes() []attribute.KeyValue {
	attrs := s.ReadOnlySpan.Attributes()
	out := make([]attribute.KeyValue, len(attrs))

	for i, kv := range attrs {
		out[i] = redact(kv)
	}

	return out
}

func redact(kv attribute.KeyValue) attribute.KeyValue {
	key := string(kv.Key)
	for _, suffix := range sourceTextSuffixes {
		if strings.HasSuffix(key, suffix) {
			return kv.Key.String(redacted)
		}
	}

	if kv.Value.Type() != attribute.STRING {
		return kv
	}

	v := kv.Value.AsString()
	if len(v) <= maxAttributeLen {
		return kv
	}

	cut := maxAttributeLen
	for cut > 0 && !utf8.RuneStart(v[cut]) {
		cut--
	}

	return kv.Key.String(v[:cut] + "...")
}
