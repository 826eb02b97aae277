package resultwriter

import (
	"context"
	"fmt"
	"math"

	"github.com/Sumatoshi-tech/qodana/pkg/problem"
	"github.com/Sumatoshi-tech/qodana/pkg/resultstore"
)

const metricsWriter = "metrics"

// MetricSink is the write side of the result store used by MetricsWriter.
type MetricSink interface {
	InsertMetric(ctx context.Context, m resultstore.Metric) error
	InsertCoverage(ctx context.Context, c resultstore.Coverage) error
}

// metricJob carries exactly one of its fields.
type metricJob struct {
	metric   *problem.MetricProblem
	coverage *resultstore.Coverage
}

// MetricsWriter persists metric problems and coverage rows on its own
// consumer, independent of the problem writer.
type MetricsWriter struct {
	sink MetricSink
	pipe *Pipeline[metricJob]
}

// NewMetricsWriter creates a writer over sink whose consumer runs under ctx.
func NewMetricsWriter(ctx context.Context, sink MetricSink, opts Options) *MetricsWriter {
	if opts.Name == "" {
		opts.Name = metricsWriter
	}

	w := &MetricsWriter{sink: sink}
	w.pipe = New(ctx, w.handle, opts)

	return w
}

// Consume enqueues metric problems.
func (w *MetricsWriter) Consume(ctx context.Context, metrics ...*problem.MetricProblem) error {
	jobs := make([]metricJob, 0, len(metrics))

	for _, m := range metrics {
		if m != nil {
			jobs = append(jobs, metricJob{metric: m})
		}
	}

	return w.pipe.Consume(ctx, jobs...)
}

// ConsumeCoverage enqueues per-file coverage counters.
func (w *MetricsWriter) ConsumeCoverage(ctx context.Context, coverage ...resultstore.Coverage) error {
	jobs := make([]metricJob, len(coverage))

	for i := range coverage {
		jobs[i] = metricJob{coverage: &coverage[i]}
	}

	return w.pipe.Consume(ctx, jobs...)
}

// Close drains pending metrics and stops the consumer.
func (w *MetricsWriter) Close(ctx context.Context) error {
	return w.pipe.Close(ctx)
}

func (w *MetricsWriter) handle(ctx context.Context, job metricJob) error {
	switch {
	case job.metric != nil:
		m := job.metric
		if math.IsNaN(m.Value) || math.IsInf(m.Value, 0) {
			return fmt.Errorf("metric %s of %s: %w", m.Name, m.Path, errNotFinite)
		}

		return w.sink.InsertMetric(ctx, resultstore.Metric{
			File:  problem.NormalizePath(m.Path),
			Name:  m.Name,
			Value: m.Value,
		})
	case job.coverage != nil:
		c := *job.coverage
		c.File = problem.NormalizePath(c.File)

		if c.CoveredLines > c.TotalLines || c.FreshCovered > c.FreshLines {
			return fmt.Errorf("coverage of %s: %w", c.File, errCoverageOverflow)
		}

		return w.sink.InsertCoverage(ctx, c)
	default:
		return nil
	}
}
