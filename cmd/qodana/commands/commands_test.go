package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/owenrumney/go-sarif/v2/sarif"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/qodana/pkg/config"
	"github.com/Sumatoshi-tech/qodana/pkg/exitstatus"
	"github.com/Sumatoshi-tech/qodana/pkg/problem"
	"github.com/Sumatoshi-tech/qodana/pkg/report"
	"github.com/Sumatoshi-tech/qodana/pkg/runner"
	"github.com/Sumatoshi-tech/qodana/pkg/scope"
)

func newProblem(rule, file string, sev problem.Severity, msg string) *problem.InspectionProblem {
	p := &problem.InspectionProblem{
		InspectionID: rule,
		Group:        problem.GroupMain,
		Severity:     sev,
		Type:         problem.TypeRegular,
		Path:         file,
		Message:      msg,
		Region:       problem.Region{StartLine: 1, Snippet: rule},
	}
	p.Fingerprint = problem.Fingerprint(rule, file, rule, msg)

	return p
}

func writeSARIF(t *testing.T, dir, name string, problems ...*problem.InspectionProblem) string {
	t.Helper()

	doc, err := sarif.New(sarif.Version210)
	require.NoError(t, err)

	run := sarif.NewRunWithInformationURI("Qodana", "https://www.jetbrains.com/qodana/")
	for _, p := range problems {
		run.AddResult(p.ToSARIF())
	}

	doc.AddRun(run)

	var buf bytes.Buffer
	require.NoError(t, doc.PrettyWrite(&buf))

	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o600))

	return path
}

func execute(t *testing.T, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()

	out, _, err := executeWithStderr(t, cmd, args...)

	return out, err
}

func executeWithStderr(t *testing.T, cmd *cobra.Command, args ...string) (stdout, stderr string, err error) {
	t.Helper()

	var out, errOut bytes.Buffer

	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	cmd.SetContext(context.Background())

	err = cmd.Execute()

	return out.String(), errOut.String(), err
}

func exitCodeOf(t *testing.T, err error) exitstatus.Code {
	t.Helper()

	if err == nil {
		return exitstatus.Success
	}

	var exitErr *ExitError
	require.ErrorAs(t, err, &exitErr)

	return exitErr.Status.Code
}

func TestRunCommand_FlagsBecomeOverrides(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	input := writeSARIF(t, dir, "inspections.sarif.json", newProblem("A", "a.go", problem.SeverityHigh, "m"))
	changes := filepath.Join(dir, "changes.txt")
	require.NoError(t, os.WriteFile(changes, []byte("a.go\n"), 0o600))

	var got runner.Options

	exec := func(_ context.Context, opts runner.Options) (exitstatus.Status, error) {
		got = opts

		return exitstatus.Status{Code: exitstatus.Success}, nil
	}

	out := filepath.Join(dir, "out")

	_, logs, err := executeWithStderr(t, newRunCommandWithDeps(exec), dir, out,
		"--input", input,
		"--log-level", "debug",
		"--fail-threshold", "3",
		"--severity-threshold", "critical=0,High=2,any=9",
		"--coverage-threshold-total", "55.5",
		"--changes", changes,
		"--workers", "2",
		"--compress",
	)
	require.NoError(t, err)

	cfg := got.Config
	require.NotNil(t, cfg)
	assert.Equal(t, out, cfg.ResultsDir)
	require.NotNil(t, cfg.FailThreshold)
	assert.Equal(t, 3, *cfg.FailThreshold)
	require.NotNil(t, cfg.FailureConditions.SeverityThresholds.Critical)
	assert.Equal(t, 0, *cfg.FailureConditions.SeverityThresholds.Critical)
	require.NotNil(t, cfg.FailureConditions.SeverityThresholds.High)
	assert.Equal(t, 2, *cfg.FailureConditions.SeverityThresholds.High)
	require.NotNil(t, cfg.FailureConditions.SeverityThresholds.Any)
	assert.Equal(t, 9, *cfg.FailureConditions.SeverityThresholds.Any)
	require.NotNil(t, cfg.FailureConditions.TestCoverageThresholds.Total)
	assert.InDelta(t, 55.5, *cfg.FailureConditions.TestCoverageThresholds.Total, 1e-9)
	assert.Nil(t, cfg.FailureConditions.TestCoverageThresholds.Fresh)
	assert.Equal(t, 2, cfg.Writer.Workers)
	assert.True(t, cfg.Report.Compress)
	assert.Equal(t, config.DefaultQueueCapacity, cfg.Writer.QueueCapacity)

	require.Len(t, got.Sources, 1)
	assert.NotNil(t, got.Printer)
	assert.NotNil(t, got.Metrics)
	assert.NotNil(t, got.WriterMetrics)

	files, ok := got.Scope.(*scope.Files)
	require.True(t, ok)
	assert.Equal(t, []string{"a.go"}, files.Paths())
	assert.Contains(t, logs, "files=1")
	assert.Contains(t, logs, "paths=[a.go]")
}

func TestRunCommand_DefaultsToWholeProject(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	input := writeSARIF(t, dir, "inspections.sarif.json")

	var got runner.Options

	exec := func(_ context.Context, opts runner.Options) (exitstatus.Status, error) {
		got = opts

		return exitstatus.Status{Code: exitstatus.Success}, nil
	}

	_, err := execute(t, newRunCommandWithDeps(exec), dir, filepath.Join(dir, "out"), "--input", input)
	require.NoError(t, err)

	assert.Equal(t, scope.All{}, got.Scope)
	assert.Nil(t, got.Config.FailThreshold)
}

func TestRunCommand_StartupErrors(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	input := writeSARIF(t, dir, "inspections.sarif.json")

	tests := []struct {
		name string
		args []string
	}{
		{name: "no inputs", args: []string{dir}},
		{name: "unknown severity", args: []string{dir, "--input", input, "--severity-threshold", "urgent=1"}},
		{name: "negative threshold", args: []string{dir, "--input", input, "--fail-threshold", "-1"}},
		{name: "coverage out of range", args: []string{dir, "--input", input, "--coverage-threshold-fresh", "101"}},
		{name: "missing config", args: []string{dir, "--input", input, "--config", filepath.Join(dir, "nope.yaml")}},
		{name: "unknown format", args: []string{dir, "--input", input, "--format", "pdf"}},
		{name: "missing changes file", args: []string{dir, "--input", input, "--changes", filepath.Join(dir, "nope.txt")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			called := false
			exec := func(_ context.Context, _ runner.Options) (exitstatus.Status, error) {
				called = true

				return exitstatus.Status{}, nil
			}

			_, err := execute(t, newRunCommandWithDeps(exec), tt.args...)
			require.Error(t, err)
			assert.Equal(t, exitstatus.StartupError, exitCodeOf(t, err))
			assert.False(t, called)
		})
	}
}

func TestRunCommand_EndToEnd(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	input := writeSARIF(t, dir, "inspections.sarif.json",
		newProblem("UnusedImport", "a.go", problem.SeverityHigh, "unused import"),
		newProblem("Typo", "b.go", problem.SeverityInfo, "typo"),
	)
	out := filepath.Join(dir, "results")
	metrics := filepath.Join(dir, "qodana.prom")

	stdout, err := execute(t, NewRunCommand(), dir, out,
		"--input", input, "--no-color", "--metrics-textfile", metrics)
	require.NoError(t, err)

	assert.Contains(t, stdout, "2 problems")
	assert.Contains(t, stdout, "UnusedImport")
	assert.FileExists(t, filepath.Join(out, report.FullBasename+".json"))
	assert.FileExists(t, filepath.Join(out, report.ShortBasename+".json"))

	prom, err := os.ReadFile(metrics)
	require.NoError(t, err)
	assert.Contains(t, string(prom), "qodana")

	printed, err := execute(t, NewPrintCommand(), out, "--format", "json")
	require.NoError(t, err)

	var summary report.Summary
	require.NoError(t, json.Unmarshal([]byte(printed), &summary))
	assert.Equal(t, 2, summary.Total)
	assert.Equal(t, 1, summary.BySeverity[problem.SeverityHigh])
}

func TestRunCommand_ThresholdViolation(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	input := writeSARIF(t, dir, "inspections.sarif.json",
		newProblem("UnusedImport", "a.go", problem.SeverityCritical, "unused import"),
	)

	_, err := execute(t, NewRunCommand(), dir, filepath.Join(dir, "results"),
		"--input", input, "--no-color", "--severity-threshold", "critical=0")
	require.Error(t, err)
	assert.Equal(t, exitstatus.ThresholdViolation, exitCodeOf(t, err))

	var exitErr *ExitError
	require.ErrorAs(t, err, &exitErr)
	require.NoError(t, exitErr.Err)
	assert.Contains(t, exitErr.Status.Description, "CRITICAL")
}

func TestRunCommand_BaselineOnlyCountsNew(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	old := newProblem("UnusedImport", "a.go", problem.SeverityCritical, "unused import")
	base := writeSARIF(t, dir, "baseline.sarif.json", old)
	input := writeSARIF(t, dir, "inspections.sarif.json", old)

	stdout, err := execute(t, NewRunCommand(), dir, filepath.Join(dir, "results"),
		"--input", input, "--no-color", "--baseline", base, "--severity-threshold", "critical=0")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Unchanged")
}

func TestCompareCommand(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	kept := newProblem("Kept", "a.go", problem.SeverityHigh, "kept")
	current := writeSARIF(t, dir, "current.sarif.json", kept, newProblem("Fresh", "b.go", problem.SeverityLow, "fresh"))
	base := writeSARIF(t, dir, "baseline.sarif.json", kept, newProblem("Gone", "c.go", problem.SeverityLow, "gone"))

	stdout, err := execute(t, NewCompareCommand(), current, base, "--include-absent", "--no-color")
	require.NoError(t, err)

	assert.Contains(t, stdout, "1 new")
	assert.Contains(t, stdout, "1 unchanged")
	assert.Contains(t, stdout, "Gone")
}

func TestCompareCommand_InvalidReport(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.sarif.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"runs": 1}`), 0o600))
	good := writeSARIF(t, dir, "good.sarif.json")

	_, err := execute(t, NewCompareCommand(), good, bad)
	require.Error(t, err)
	assert.Equal(t, exitstatus.StartupError, exitCodeOf(t, err))
}

func TestPrintCommand_MissingStore(t *testing.T) {
	t.Parallel()

	_, err := execute(t, NewPrintCommand(), t.TempDir())
	require.Error(t, err)
	assert.Equal(t, exitstatus.StartupError, exitCodeOf(t, err))
}

func TestPrintCommand_Baseline(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	old := newProblem("UnusedImport", "a.go", problem.SeverityCritical, "unused import")
	base := writeSARIF(t, dir, "baseline.sarif.json", old)
	input := writeSARIF(t, dir, "inspections.sarif.json", old)
	results := filepath.Join(dir, "results")

	ran, err := execute(t, NewRunCommand(), dir, results, "--input", input, "--no-color", "--baseline", base)
	require.NoError(t, err)

	printed, err := execute(t, NewPrintCommand(), results, "--no-color", "--baseline", base)
	require.NoError(t, err)
	assert.Contains(t, ran, "Unchanged")
	assert.Contains(t, printed, "Unchanged")

	_, err = execute(t, NewPrintCommand(), results, "--baseline", filepath.Join(dir, "missing.sarif.json"))
	require.Error(t, err)
	assert.Equal(t, exitstatus.StartupError, exitCodeOf(t, err))
}

func TestMCPCommand_Flags(t *testing.T) {
	t.Parallel()

	cmd := NewMCPCommand()
	assert.Equal(t, "mcp <results-dir>", cmd.Use)
	assert.NotEmpty(t, cmd.Long)

	debug := cmd.Flags().Lookup("debug")
	require.NotNil(t, debug)
	assert.Equal(t, "false", debug.DefValue)
	assert.Error(t, cmd.Args(cmd, nil))
}

func TestVersionCommand(t *testing.T) {
	t.Parallel()

	stdout, err := execute(t, NewVersionCommand())
	require.NoError(t, err)
	assert.Contains(t, stdout, "qodana ")
	assert.Contains(t, stdout, "commit:")
}

func TestExitError(t *testing.T) {
	t.Parallel()

	violation := &ExitError{Status: exitstatus.Status{Code: exitstatus.ThresholdViolation, Description: "too many"}}
	assert.Equal(t, "exit status 255: too many", violation.Error())
	assert.NoError(t, violation.Unwrap())

	startup := startupError(ErrNoInputs)
	assert.ErrorIs(t, startup, ErrNoInputs)
	assert.Equal(t, exitstatus.StartupError, startup.Status.Code)
}
