package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	metricWriterConsumed = "qodana.writer.consumed.total"
	metricWriterDropped  = "qodana.writer.dropped.total"
	metricWriterFailed   = "qodana.writer.failed.total"
	metricWriterQueued   = "qodana.writer.queue.depth"

	attrWriter = "writer"
)

// WriterMetrics holds the instruments of the asynchronous result writers.
// All methods are safe on a nil receiver.
type WriterMetrics struct {
	consumed metric.Int64Counter
	dropped  metric.Int64Counter
	failed   metric.Int64Counter
	queued   metric.Int64UpDownCounter
}

// NewWriterMetrics creates writer instruments from the given meter.
func NewWriterMetrics(mt metric.Meter) (*WriterMetrics, error) {
	consumed, err := mt.Int64Counter(metricWriterConsumed,
		metric.WithDescription("Items persisted by result writers"),
		metric.WithUnit("{item}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricWriterConsumed, err)
	}

	dropped, err := mt.Int64Counter(metricWriterDropped,
		metric.WithDescription("Items rejected by a keep filter before enqueueing"),
		metric.WithUnit("{item}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricWriterDropped, err)
	}

	failed, err := mt.Int64Counter(metricWriterFailed,
		metric.WithDescription("Items whose persistence failed and were skipped"),
		metric.WithUnit("{item}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricWriterFailed, err)
	}

	queued, err := mt.Int64UpDownCounter(metricWriterQueued,
		metric.WithDescription("Items waiting in writer queues"),
		metric.WithUnit("{item}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricWriterQueued, err)
	}

	return &WriterMetrics{consumed: consumed, dropped: dropped, failed: failed, queued: queued}, nil
}

func writerAttrs(writer string) metric.MeasurementOption {
	return metric.WithAttributes(attribute.String(attrWriter, writer))
}

// Consumed records n persisted items.
func (wm *WriterMetrics) Consumed(ctx context.Context, writer string, n int) {
	if wm == nil {
		return
	}

	wm.consumed.Add(ctx, int64(n), writerAttrs(writer))
}

// Dropped records n filtered-out items.
func (wm *WriterMetrics) Dropped(ctx context.Context, writer string, n int) {
	if wm == nil {
		return
	}

	wm.dropped.Add(ctx, int64(n), writerAttrs(writer))
}

// Failed records n items skipped after a persistence failure.
func (wm *WriterMetrics) Failed(ctx context.Context, writer string, n int) {
	if wm == nil {
		return
	}

	wm.failed.Add(ctx, int64(n), writerAttrs(writer))
}

// Queued moves the queue depth gauge by delta.
func (wm *WriterMetrics) Queued(ctx context.Context, writer string, delta int) {
	if wm == nil {
		return
	}

	wm.queued.Add(ctx, int64(delta), writerAttrs(writer))
}
