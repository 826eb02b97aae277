package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const (
	metricStagesTotal   = "qodana.stages.total"
	metricStageDuration = "qodana.stage.duration.seconds"
	metricProblemsTotal = "qodana.problems.total"

	attrStage    = "stage"
	attrStatus   = "status"
	attrSeverity = "severity"

	// StatusOK marks a stage that finished without error.
	StatusOK = "ok"
	// StatusError marks a failed stage.
	StatusError = "error"
)

// durationBucketBoundaries covers 10ms to 30min runs.
var durationBucketBoundaries = []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600, 1800}

// RunMetrics holds instruments describing the stages of a run.
// All methods are safe on a nil receiver.
type RunMetrics struct {
	stagesTotal   metric.Int64Counter
	stageDuration metric.Float64Histogram
	problemsTotal metric.Int64Counter
}

// NewRunMetrics creates run instruments from the given meter.
func NewRunMetrics(mt metric.Meter) (*RunMetrics, error) {
	stages, err := mt.Int64Counter(metricStagesTotal,
		metric.WithDescription("Pipeline stages executed"),
		metric.WithUnit("{stage}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricStagesTotal, err)
	}

	duration, err := mt.Float64Histogram(metricStageDuration,
		metric.WithDescription("Pipeline stage duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(durationBucketBoundaries...),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricStageDuration, err)
	}

	problems, err := mt.Int64Counter(metricProblemsTotal,
		metric.WithDescription("Reported problems by severity"),
		metric.WithUnit("{problem}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricProblemsTotal, err)
	}

	return &RunMetrics{stagesTotal: stages, stageDuration: duration, problemsTotal: problems}, nil
}

// RecordStage records a finished stage.
func (rm *RunMetrics) RecordStage(ctx context.Context, stage, status string, d time.Duration) {
	if rm == nil {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String(attrStage, stage),
		attribute.String(attrStatus, status),
	)

	rm.stagesTotal.Add(ctx, 1, attrs)
	rm.stageDuration.Record(ctx, d.Seconds(), attrs)
}

// RecordProblems records the reported problem count of one severity.
func (rm *RunMetrics) RecordProblems(ctx context.Context, severity string, n int) {
	if rm == nil {
		return
	}

	rm.problemsTotal.Add(ctx, int64(n), metric.WithAttributes(attribute.String(attrSeverity, severity)))
}

// Stage starts a span named "qodana.<name>" and tags ctx with the stage for
// the logger. The returned function ends the span, marking it failed when
// *errp is non-nil, and records the stage.
func (rm *RunMetrics) Stage(ctx context.Context, tracer trace.Tracer, name string) (context.Context, func(errp *error)) {
	start := time.Now()
	ctx, span := tracer.Start(WithStage(ctx, name), "qodana."+name)

	return ctx, func(errp *error) {
		status := StatusOK

		if errp != nil && *errp != nil {
			status = StatusError

			span.RecordError(*errp)
			span.SetStatus(codes.Error, (*errp).Error())
		}

		span.End()
		rm.RecordStage(ctx, name, status, time.Since(start))
	}
}
