// Package commands implements CLI command handlers for qodana.
package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/qodana/pkg/config"
	"github.com/Sumatoshi-tech/qodana/pkg/exitstatus"
	"github.com/Sumatoshi-tech/qodana/pkg/observability"
	"github.com/Sumatoshi-tech/qodana/pkg/printer"
	"github.com/Sumatoshi-tech/qodana/pkg/problem"
	"github.com/Sumatoshi-tech/qodana/pkg/runner"
	"github.com/Sumatoshi-tech/qodana/pkg/scope"
	"github.com/Sumatoshi-tech/qodana/pkg/terminal"
	"github.com/Sumatoshi-tech/qodana/pkg/version"
)

// ErrNoInputs is returned when run is started without --input.
var ErrNoInputs = errors.New("no inspection inputs. Use --input, e.g.: --input .qodana/inspections")

type runExecutor func(ctx context.Context, opts runner.Options) (exitstatus.Status, error)

// RunCommand holds flags and dependencies of the run command.
type RunCommand struct {
	inputs     []string
	configPath string
	format     string
	noColor    bool

	baselinePath  string
	includeAbsent bool
	failThreshold int
	severities    map[string]int
	coverageTotal float64
	coverageFresh float64
	coverageFile  string
	changesFile   string
	diffStart     string
	logLevel      string
	logJSON       bool
	metricsFile   string
	compress      bool
	workers       int
	queueCapacity int

	exec runExecutor
}

// NewRunCommand creates the run command.
func NewRunCommand() *cobra.Command {
	return newRunCommandWithDeps(runner.Run)
}

func newRunCommandWithDeps(exec runExecutor) *cobra.Command {
	rc := &RunCommand{exec: exec}

	cmd := &cobra.Command{
		Use:   "run [project] [output]",
		Short: "Collect inspection output and evaluate failure conditions",
		Long: `Collect SARIF inspection output into a fresh result store under output,
write the full and short SARIF reports, compare them with the baseline and
exit with the status of the failure conditions:

  0    all conditions met
  1    startup error (bad configuration, unreadable baseline)
  70   internal error while collecting results
  255  a failure condition was violated

project defaults to the current directory and holds qodana.yaml.
output overrides resultsDir.`,
		Args: cobra.MaximumNArgs(2),
		RunE: rc.run,
	}

	cmd.Flags().StringSliceVarP(&rc.inputs, "input", "i", nil, "SARIF inspection output files or directories")
	cmd.Flags().StringVarP(&rc.configPath, "config", "c", "", "Config file (default: <project>/qodana.yaml)")
	cmd.Flags().StringVar(&rc.format, "format", string(printer.FormatText), "Summary format: text, json, yaml, html")
	cmd.Flags().BoolVar(&rc.noColor, "no-color", false, "Disable colored output")

	cmd.Flags().StringVar(&rc.baselinePath, "baseline", "", "Baseline SARIF report")
	cmd.Flags().BoolVar(&rc.includeAbsent, "baseline-include-absent", false, "Report baseline problems that are gone")
	cmd.Flags().IntVar(&rc.failThreshold, "fail-threshold", 0, "Fail when more problems are found")
	cmd.Flags().StringToIntVar(&rc.severities, "severity-threshold", nil,
		"Per-severity problem limits, e.g. critical=0,high=5")
	cmd.Flags().Float64Var(&rc.coverageTotal, "coverage-threshold-total", 0, "Minimum total coverage percent")
	cmd.Flags().Float64Var(&rc.coverageFresh, "coverage-threshold-fresh", 0, "Minimum fresh code coverage percent")
	cmd.Flags().StringVar(&rc.coverageFile, "coverage", "", "Coverage counters JSON file")
	cmd.Flags().StringVar(&rc.changesFile, "changes", "", "File listing the changed paths to report")
	cmd.Flags().StringVar(&rc.diffStart, "diff-start", "", "Report only files changed since this git revision")

	cmd.Flags().StringVar(&rc.logLevel, "log-level", config.DefaultLogLevel, "Log level: debug, info, warn, error")
	cmd.Flags().BoolVar(&rc.logJSON, "log-json", false, "Log in JSON")
	cmd.Flags().StringVar(&rc.metricsFile, "metrics-textfile", "", "Write Prometheus metrics to this file")
	cmd.Flags().BoolVar(&rc.compress, "compress", false, "Write LZ4-compressed reports")
	cmd.Flags().IntVar(&rc.workers, "workers", 0, "Concurrent input readers (0 = CPU count)")
	cmd.Flags().IntVar(&rc.queueCapacity, "queue-capacity", config.DefaultQueueCapacity, "Result writer queue capacity")

	return cmd
}

func (rc *RunCommand) run(cmd *cobra.Command, args []string) error {
	project := "."
	if len(args) > 0 {
		project = args[0]
	}

	overrides, err := rc.overrides(cmd, args)
	if err != nil {
		return startupError(err)
	}

	cfg, err := config.Load(config.Options{Path: rc.configPath, ProjectDir: project, Overrides: overrides})
	if err != nil {
		return startupError(err)
	}

	format, err := printer.ParseFormat(rc.format)
	if err != nil {
		return startupError(err)
	}

	obsCfg := cfg.ObservabilityConfig(version.Version, observability.ModeCLI)
	obsCfg.LogOutput = cmd.ErrOrStderr()

	providers, err := observability.Init(obsCfg)
	if err != nil {
		return startupError(err)
	}

	defer func() {
		shutdownErr := providers.Shutdown(context.Background())
		if shutdownErr != nil {
			providers.Logger.Warn("observability shutdown failed", "error", shutdownErr)
		}
	}()

	opts, err := rc.runnerOptions(cfg, project, providers, format, cmd.OutOrStdout())
	if err != nil {
		return startupError(err)
	}

	status, runErr := rc.exec(cmd.Context(), opts)

	if cfg.Observability.MetricsTextfile != "" {
		writeErr := providers.WriteTextfile(cfg.Observability.MetricsTextfile)
		if writeErr != nil {
			providers.Logger.Warn("failed to write metrics textfile", "path", cfg.Observability.MetricsTextfile, "error", writeErr)
		}
	}

	if runErr != nil || !status.Success() {
		return &ExitError{Status: status, Err: runErr}
	}

	return nil
}

func (rc *RunCommand) runnerOptions(
	cfg *config.Config,
	project string,
	providers observability.Providers,
	format printer.Format,
	out io.Writer,
) (runner.Options, error) {
	if len(rc.inputs) == 0 {
		return runner.Options{}, ErrNoInputs
	}

	sources, err := runner.Discover(rc.inputs)
	if err != nil {
		return runner.Options{}, err
	}

	sc, err := resolveScope(cfg, project)
	if err != nil {
		return runner.Options{}, err
	}

	if files, ok := sc.(*scope.Files); ok {
		providers.Logger.Info("analysis restricted to changed files", "files", files.Len())
		providers.Logger.Debug("changed files", "paths", files.Paths())
	}

	runMetrics, err := observability.NewRunMetrics(providers.Meter)
	if err != nil {
		return runner.Options{}, err
	}

	writerMetrics, err := observability.NewWriterMetrics(providers.Meter)
	if err != nil {
		return runner.Options{}, err
	}

	return runner.Options{
		Config:        cfg,
		Sources:       sources,
		Scope:         sc,
		Printer:       printer.New(out, terminal.NewConfig(rc.noColor)),
		Format:        format,
		Logger:        providers.Logger,
		Tracer:        providers.Tracer,
		Metrics:       runMetrics,
		WriterMetrics: writerMetrics,
	}, nil
}

// overrides maps the flags the user set to config keys.
func (rc *RunCommand) overrides(cmd *cobra.Command, args []string) (map[string]any, error) {
	flags := cmd.Flags()
	out := make(map[string]any)

	set := func(flag, key string, value any) {
		if flags.Changed(flag) {
			out[key] = value
		}
	}

	set("baseline", config.KeyBaselinePath, rc.baselinePath)
	set("baseline-include-absent", config.KeyIncludeAbsent, rc.includeAbsent)
	set("fail-threshold", config.KeyFailThreshold, rc.failThreshold)
	set("coverage-threshold-total", config.KeyCoverageTotal, rc.coverageTotal)
	set("coverage-threshold-fresh", config.KeyCoverageFresh, rc.coverageFresh)
	set("coverage", config.KeyCoverageFile, rc.coverageFile)
	set("changes", config.KeyChangesFile, rc.changesFile)
	set("diff-start", config.KeyDiffStart, rc.diffStart)
	set("log-level", config.KeyLogLevel, rc.logLevel)
	set("log-json", config.KeyLogJSON, rc.logJSON)
	set("metrics-textfile", config.KeyMetricsTextfile, rc.metricsFile)
	set("compress", config.KeyCompressReport, rc.compress)
	set("workers", config.KeyWorkers, rc.workers)
	set("queue-capacity", config.KeyQueueCapacity, rc.queueCapacity)

	for _, name := range slices.Sorted(maps.Keys(rc.severities)) {
		limit := rc.severities[name]

		if strings.EqualFold(name, "any") {
			out[config.KeySeverityAny] = limit

			continue
		}

		sev, err := problem.ParseSeverity(name)
		if err != nil {
			return nil, fmt.Errorf("--severity-threshold %s: %w", name, config.ErrUnknownSeverity)
		}

		out[config.SeverityKey(sev)] = limit
	}

	if len(args) > 1 {
		out[config.KeyResultsDir] = args[1]
	}

	return out, nil
}

func resolveScope(cfg *config.Config, project string) (scope.Scope, error) {
	switch {
	case cfg.Scope.ChangesFile != "":
		return scope.FromChangesFile(cfg.Scope.ChangesFile)
	case cfg.Scope.DiffStart != "":
		return scope.FromGit(project, cfg.Scope.DiffStart)
	default:
		return scope.All{}, nil
	}
}
