// Package runner executes one analysis run. Inspection inputs are fed
// through the result writers into a fresh result store; once the writers
// are joined and the store is closed, the report is rebuilt from the store,
// compared with the baseline and judged against the failure thresholds.
package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"runtime"

	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"golang.org/x/sync/errgroup"

	"github.com/Sumatoshi-tech/qodana/pkg/baseline"
	"github.com/Sumatoshi-tech/qodana/pkg/config"
	"github.com/Sumatoshi-tech/qodana/pkg/exitstatus"
	"github.com/Sumatoshi-tech/qodana/pkg/observability"
	"github.com/Sumatoshi-tech/qodana/pkg/persist"
	"github.com/Sumatoshi-tech/qodana/pkg/printer"
	"github.com/Sumatoshi-tech/qodana/pkg/problem"
	"github.com/Sumatoshi-tech/qodana/pkg/report"
	"github.com/Sumatoshi-tech/qodana/pkg/resultstore"
	"github.com/Sumatoshi-tech/qodana/pkg/resultwriter"
	"github.com/Sumatoshi-tech/qodana/pkg/scope"
)

// Sentinel errors.
var (
	// ErrStartup wraps failures detected before any input is consumed.
	ErrStartup = errors.New("startup failed")
	// ErrNoConfig is returned when Options.Config is nil.
	ErrNoConfig = errors.New("runner: no configuration")
	// ErrProducerPanic wraps a panic raised while reading an input.
	ErrProducerPanic = errors.New("input producer panicked")
)

// Options configure a run. Only Config is required.
type Options struct {
	Config  *config.Config
	Sources []Source

	// Scope restricts reported problems. Nil means the whole project.
	Scope scope.Scope

	// Printer renders the summary. Nil prints nothing.
	Printer *printer.Printer
	Format  printer.Format

	// RunGUID identifies the run in the report. Empty generates one.
	RunGUID string

	Logger        *slog.Logger
	Tracer        trace.Tracer
	Metrics       *observability.RunMetrics
	WriterMetrics *observability.WriterMetrics
}

// plan is everything resolved before the first input is read.
type plan struct {
	thresholds exitstatus.Thresholds
	baseline   []baseline.Entry
	hasBase    bool
	coverage   []resultstore.Coverage
	storePath  string
	workers    int
}

// Run executes the run and returns its exit status. A non-nil error is
// returned for startup failures (status code 1) and runtime failures
// (status code 70); threshold violations are reported through the status
// only.
func Run(ctx context.Context, opts Options) (status exitstatus.Status, err error) {
	opts = withDefaults(opts)

	p, err := prepare(opts)
	if err != nil {
		return exitstatus.Status{Code: exitstatus.StartupError, Description: err.Error()},
			fmt.Errorf("%w: %w", ErrStartup, err)
	}

	inv := exitstatus.NewInvocation(opts.Logger)

	ctx, end := opts.Metrics.Stage(ctx, opts.Tracer, "run")
	defer func() { end(&err) }()

	closed, err := write(ctx, opts, p)
	if err != nil {
		return inv.MarkRuntimeFailure(err), err
	}

	reader, err := closed.Reopen()
	if err != nil {
		return inv.MarkRuntimeFailure(err), err
	}
	defer reader.Close()

	rep, err := buildReport(ctx, opts, p, reader)
	if err != nil {
		return inv.MarkRuntimeFailure(err), err
	}

	status, err = evaluate(ctx, opts, p, inv, rep, reader)
	if err != nil {
		return inv.MarkRuntimeFailure(err), err
	}

	printSummary(opts, rep, status)

	return status, nil
}

func withDefaults(opts Options) Options {
	if opts.Logger == nil {
		opts.Logger = observability.NopLogger()
	}

	if opts.Tracer == nil {
		opts.Tracer = noop.NewTracerProvider().Tracer("qodana")
	}

	if opts.Format == "" {
		opts.Format = printer.FormatText
	}

	return opts
}

func prepare(opts Options) (plan, error) {
	cfg := opts.Config
	if cfg == nil {
		return plan{}, ErrNoConfig
	}

	err := cfg.Validate()
	if err != nil {
		return plan{}, err
	}

	p := plan{
		thresholds: cfg.Thresholds(),
		storePath:  filepath.Join(cfg.ResultsDir, resultstore.FileName),
		workers:    cfg.Writer.Workers,
	}

	if p.workers <= 0 {
		p.workers = runtime.NumCPU()
	}

	err = p.thresholds.Validate()
	if err != nil {
		return plan{}, err
	}

	if cfg.Baseline.Path != "" {
		base, loadErr := baseline.LoadReport(cfg.Baseline.Path)
		if loadErr != nil {
			return plan{}, fmt.Errorf("baseline: %w", loadErr)
		}

		p.baseline = baseline.EntriesFromReport(base)
		p.hasBase = true
	}

	if cfg.Coverage.File != "" {
		p.coverage, err = LoadCoverage(cfg.Coverage.File)
		if err != nil {
			return plan{}, err
		}
	}

	return p, nil
}

// write runs the producer phase. The writers are joined before the store
// is closed, and the store is closed even when producing failed.
func write(ctx context.Context, opts Options, p plan) (closed resultstore.Closed, err error) {
	ctx, end := opts.Metrics.Stage(ctx, opts.Tracer, "write")
	defer func() { end(&err) }()

	store, err := resultstore.Create(p.storePath)
	if err != nil {
		return resultstore.Closed{}, err
	}

	wopts := resultwriter.Options{
		Capacity: opts.Config.Writer.QueueCapacity,
		Logger:   opts.Logger,
		Metrics:  opts.WriterMetrics,
	}

	problems := resultwriter.NewProblemWriter(ctx, store, wopts)
	metrics := resultwriter.NewMetricsWriter(ctx, store, wopts)
	quota := resultwriter.NewQuotaFilter(opts.Config.Quota.Default, opts.Config.Quotas())

	produceErr := produce(ctx, opts, p, problems, metrics, keepFilter(opts.Scope, quota))

	closeErr := errors.Join(problems.Close(ctx), metrics.Close(ctx))

	closed, storeErr := store.Close()

	for inspection, dropped := range quota.Exceeded() {
		opts.Logger.Warn("inspection quota exceeded", "inspection", inspection, "dropped", dropped)
	}

	return closed, errors.Join(produceErr, closeErr, storeErr)
}

func keepFilter(sc scope.Scope, quota *resultwriter.QuotaFilter) resultwriter.Filter {
	return func(p *problem.InspectionProblem) bool {
		if sc != nil && !sc.Contains(p.Path) {
			return false
		}

		return quota.Keep(p)
	}
}

// produce feeds every input to the writers. Regular inputs run
// concurrently; file sources follow in order once those are queued, so
// their batches supersede earlier results for the same files.
func produce(
	ctx context.Context,
	opts Options,
	p plan,
	problems *resultwriter.ProblemWriter,
	metrics *resultwriter.MetricsWriter,
	keep resultwriter.Filter,
) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)

	var files []FileSource

	for _, src := range opts.Sources {
		if fsrc, ok := src.(FileSource); ok {
			files = append(files, fsrc)

			continue
		}

		g.Go(func() (err error) {
			defer recoverProducer(src, &err)

			items, err := src.Problems(gctx)
			if err != nil {
				return fmt.Errorf("input %s: %w", src.Name(), err)
			}

			inspections, metricProblems := problem.Split(items)

			err = problems.BatchConsume(gctx, inspections, keep)
			if err != nil {
				return fmt.Errorf("input %s: %w", src.Name(), err)
			}

			if len(metricProblems) > 0 {
				err = metrics.Consume(gctx, metricProblems...)
				if err != nil {
					return fmt.Errorf("input %s: %w", src.Name(), err)
				}
			}

			opts.Logger.DebugContext(gctx, "input consumed",
				"input", src.Name(), "problems", len(inspections), "metrics", len(metricProblems))

			return nil
		})
	}

	if len(p.coverage) > 0 {
		g.Go(func() error {
			return metrics.ConsumeCoverage(gctx, p.coverage...)
		})
	}

	err := g.Wait()
	if err != nil {
		return err
	}

	for _, src := range files {
		err = replaceFiles(ctx, opts, src, problems, keep)
		if err != nil {
			return err
		}
	}

	return nil
}

func recoverProducer(src Source, err *error) {
	if rec := recover(); rec != nil {
		*err = fmt.Errorf("%w: %s: %v", ErrProducerPanic, src.Name(), rec)
	}
}

func replaceFiles(
	ctx context.Context,
	opts Options,
	src FileSource,
	problems *resultwriter.ProblemWriter,
	keep resultwriter.Filter,
) (err error) {
	defer recoverProducer(src, &err)

	batches, err := src.Files(ctx)
	if err != nil {
		return fmt.Errorf("input %s: %w", src.Name(), err)
	}

	replaced := 0

	for _, b := range batches {
		if opts.Scope != nil && !opts.Scope.Contains(b.File) {
			continue
		}

		kept := make([]*problem.InspectionProblem, 0, len(b.Problems))

		for _, p := range b.Problems {
			if keep(p) {
				kept = append(kept, p)
			}
		}

		err = problems.ConsumeFile(ctx, b.Group, b.File, kept)
		if err != nil {
			return fmt.Errorf("input %s: %w", src.Name(), err)
		}

		replaced++
	}

	opts.Logger.DebugContext(ctx, "files replaced", "input", src.Name(), "files", replaced)

	return nil
}

func buildReport(ctx context.Context, opts Options, p plan, reader *resultstore.Reader) (rep *report.Report, err error) {
	ctx, end := opts.Metrics.Stage(ctx, opts.Tracer, "report")
	defer func() { end(&err) }()

	rep, err = report.Build(ctx, reader, report.Options{RunGUID: opts.RunGUID, Logger: opts.Logger})
	if err != nil {
		return nil, err
	}

	if p.hasBase {
		bopts := baseline.Options{IncludeAbsent: opts.Config.Baseline.IncludeAbsent}
		if opts.Scope != nil {
			bopts.InScope = opts.Scope.Contains
		}

		counts := rep.ApplyBaseline(p.baseline, bopts).Counts()

		opts.Logger.InfoContext(ctx, "baseline compared",
			"new", counts[problem.StateNew], "updated", counts[problem.StateUpdated],
			"unchanged", counts[problem.StateUnchanged], "absent", counts[problem.StateAbsent])
	}

	err = rep.Write(opts.Config.ResultsDir, persist.ReportCodec(opts.Config.Report.Compress))
	if err != nil {
		return nil, fmt.Errorf("write report: %w", err)
	}

	return rep, nil
}

func evaluate(
	ctx context.Context,
	opts Options,
	p plan,
	inv *exitstatus.Invocation,
	rep *report.Report,
	reader *resultstore.Reader,
) (status exitstatus.Status, err error) {
	ctx, end := opts.Metrics.Stage(ctx, opts.Tracer, "evaluate")
	defer func() { end(&err) }()

	cov, err := reader.CoverageTotals(ctx)
	if err != nil {
		return exitstatus.Status{}, err
	}

	counts := rep.ReportedCounts()
	for _, sev := range problem.Severities() {
		opts.Metrics.RecordProblems(ctx, sev.String(), counts[sev])
	}

	status = inv.Decide(exitstatus.Input{Counts: counts, Coverage: report.CoverageInput(cov)}, p.thresholds)

	opts.Logger.InfoContext(ctx, "run finished",
		"exit_code", int(status.Code), "problems", exitstatus.Input{Counts: counts}.Total())

	return status, nil
}

func printSummary(opts Options, rep *report.Report, status exitstatus.Status) {
	if opts.Printer == nil {
		return
	}

	err := opts.Printer.Summary(rep.Summary(), opts.Format)
	if err == nil {
		err = opts.Printer.Status(status)
	}

	if err != nil {
		opts.Logger.Warn("failed to print summary", "error", err)
	}
}
