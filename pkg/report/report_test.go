package report_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/owenrumney/go-sarif/v2/sarif"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/qodana/pkg/baseline"
	"github.com/Sumatoshi-tech/qodana/pkg/persist"
	"github.com/Sumatoshi-tech/qodana/pkg/problem"
	"github.com/Sumatoshi-tech/qodana/pkg/report"
	"github.com/Sumatoshi-tech/qodana/pkg/resultstore"
	"github.com/Sumatoshi-tech/qodana/pkg/resultwriter"
)

func inspection(rule, group, file string, sev problem.Severity, line int, msg string) *problem.InspectionProblem {
	return &problem.InspectionProblem{
		InspectionID: rule,
		Group:        group,
		Severity:     sev,
		Type:         problem.TypeRegular,
		Path:         file,
		Message:      msg,
		Region:       problem.Region{StartLine: line, Snippet: rule + file},
	}
}

func storeWith(t *testing.T, problems ...*problem.InspectionProblem) *resultstore.Reader {
	t.Helper()

	ctx := context.Background()

	store, err := resultstore.Create(filepath.Join(t.TempDir(), resultstore.FileName))
	require.NoError(t, err)

	writer := resultwriter.NewProblemWriter(ctx, store, resultwriter.Options{})
	require.NoError(t, writer.BatchConsume(ctx, problems, nil))
	require.NoError(t, writer.Close(ctx))

	closed, err := store.Close()
	require.NoError(t, err)

	reader, err := closed.Reopen()
	require.NoError(t, err)

	t.Cleanup(func() { _ = reader.Close() })

	return reader
}

func TestBuild_ReadsEveryGroup(t *testing.T) {
	t.Parallel()

	reader := storeWith(t,
		inspection("Unused", problem.GroupMain, "a.go", problem.SeverityLow, 1, "unused a"),
		inspection("Unused", problem.GroupMain, "b.go", problem.SeverityLow, 2, "unused b"),
		inspection("NilDeref", problem.GroupMain, "c.go", problem.SeverityCritical, 3, "nil"),
		inspection("Syntax", problem.GroupSanity, "d.go", problem.SeverityHigh, 4, "syntax"),
	)

	rep, err := report.Build(context.Background(), reader, report.Options{RunGUID: "run-1"})
	require.NoError(t, err)

	require.Len(t, rep.Problems, 4)
	assert.Equal(t, "run-1", rep.RunGUID)

	run := rep.SARIF.Runs[0]
	assert.Equal(t, report.ToolName, run.Tool.Driver.Name)
	assert.Len(t, run.Results, 4)
	assert.Len(t, run.Tool.Driver.Rules, 3)
	assert.Equal(t, "run-1", run.Properties[report.PropertyRunGUID])

	groups := map[string]int{}
	for _, p := range rep.Problems {
		groups[p.Group]++
	}

	assert.Equal(t, map[string]int{problem.GroupMain: 3, problem.GroupSanity: 1}, groups)
}

func TestBuild_AttachesRelatedLocations(t *testing.T) {
	t.Parallel()

	root := inspection("SqlInjection", problem.GroupMain, "db.go", problem.SeverityCritical, 10, "tainted query")
	root.Type = problem.TypeTaint
	root.Fingerprint = "root"

	source := inspection("SqlInjection", problem.GroupMain, "http.go", problem.SeverityCritical, 3, "user input")
	source.RelatedHash = "root"

	rep, err := report.Build(context.Background(), storeWith(t, root, source), report.Options{})
	require.NoError(t, err)

	require.Len(t, rep.Problems, 1)
	assert.NotEmpty(t, rep.RunGUID)

	related := rep.Problems[0].Result.RelatedLocations
	require.Len(t, related, 1)
	require.NotNil(t, related[0].Id)
	assert.Equal(t, uint(1), *related[0].Id)
	assert.Equal(t, "http.go", *related[0].PhysicalLocation.ArtifactLocation.URI)
	assert.Equal(t, "user input", *related[0].Message.Text)
}

func TestApplyBaseline(t *testing.T) {
	t.Parallel()

	kept := inspection("Unused", problem.GroupMain, "a.go", problem.SeverityLow, 1, "unused a")
	fresh := inspection("NilDeref", problem.GroupMain, "b.go", problem.SeverityHigh, 2, "nil")

	rep, err := report.Build(context.Background(), storeWith(t, kept, fresh), report.Options{})
	require.NoError(t, err)

	_, applied := rep.Comparison()
	assert.False(t, applied)
	assert.Equal(t, map[problem.Severity]int{problem.SeverityLow: 1, problem.SeverityHigh: 1}, rep.ReportedCounts())

	gone := sarif.NewRuleResult("Deprecated").WithMessage(sarif.NewTextMessage("old")).WithLevel("warning")
	base := []baseline.Entry{
		baseline.EntryOf(inspection("Unused", problem.GroupMain, "a.go", problem.SeverityLow, 9, "unused a")),
		{Fingerprint: "gone", Path: "c.go", RuleID: "Deprecated", Severity: problem.SeverityModerate, Message: "old", Result: gone},
	}
	base[0].Fingerprint = problem.Fingerprint("Unused", "a.go", "Unuseda.go", "unused a")

	cmp := rep.ApplyBaseline(base, baseline.Options{IncludeAbsent: true})

	counts := cmp.Counts()
	assert.Equal(t, 1, counts[problem.StateUnchanged])
	assert.Equal(t, 1, counts[problem.StateNew])
	assert.Equal(t, 1, counts[problem.StateAbsent])

	assert.Equal(t, map[problem.Severity]int{problem.SeverityHigh: 1}, rep.ReportedCounts())
	assert.Len(t, rep.SARIF.Runs[0].Results, 3)
	assert.Equal(t, "absent", *gone.BaselineState)

	summary := rep.Summary()
	assert.True(t, summary.HasBaseline)
	assert.Equal(t, 2, summary.Total)
	require.Len(t, summary.Rows, 3)
	assert.Equal(t, "NilDeref", summary.Rows[0].RuleID)
	assert.Equal(t, problem.StateNew, summary.Rows[0].State)
	assert.Equal(t, "Deprecated", summary.Rows[1].RuleID)
	assert.Equal(t, problem.StateAbsent, summary.Rows[1].State)
}

func TestSummary_WithoutBaseline(t *testing.T) {
	t.Parallel()

	rep, err := report.Build(context.Background(), storeWith(t,
		inspection("Unused", problem.GroupMain, "a.go", problem.SeverityLow, 1, "x"),
		inspection("Unused", problem.GroupMain, "b.go", problem.SeverityLow, 1, "y"),
		inspection("NilDeref", problem.GroupMain, "c.go", problem.SeverityCritical, 1, "z"),
	), report.Options{})
	require.NoError(t, err)

	summary := rep.Summary()
	assert.False(t, summary.HasBaseline)
	assert.Equal(t, 3, summary.Total)
	assert.Equal(t, []report.SummaryRow{
		{RuleID: "NilDeref", Severity: problem.SeverityCritical, Count: 1},
		{RuleID: "Unused", Severity: problem.SeverityLow, Count: 2},
	}, summary.Rows)
}

func TestWrite_FullAndShort(t *testing.T) {
	t.Parallel()

	rep, err := report.Build(context.Background(), storeWith(t,
		inspection("Unused", problem.GroupMain, "a.go", problem.SeverityLow, 1, "x"),
	), report.Options{RunGUID: "g"})
	require.NoError(t, err)

	dir := t.TempDir()
	require.NoError(t, rep.Write(dir, nil))

	full, err := report.Load(dir, nil)
	require.NoError(t, err)
	require.Len(t, full.Runs, 1)
	assert.Len(t, full.Runs[0].Results, 1)
	assert.Len(t, full.Runs[0].Tool.Driver.Rules, 1)

	var short sarif.Report
	require.NoError(t, persist.Load(dir, report.ShortBasename, persist.NewJSONCodec(), &short))
	require.Len(t, short.Runs, 1)
	assert.Empty(t, short.Runs[0].Results)
	assert.Empty(t, short.Runs[0].Tool.Driver.Rules)
	assert.Equal(t, report.ToolName, short.Runs[0].Tool.Driver.Name)

	// The short copy must not strip the in-memory full report.
	assert.Len(t, rep.SARIF.Runs[0].Results, 1)
}

func TestWrite_Compressed(t *testing.T) {
	t.Parallel()

	rep, err := report.Build(context.Background(), storeWith(t,
		inspection("Unused", problem.GroupMain, "a.go", problem.SeverityLow, 1, "x"),
	), report.Options{})
	require.NoError(t, err)

	dir := t.TempDir()
	codec := persist.NewLZ4Codec(nil)
	require.NoError(t, rep.Write(dir, codec))

	full, err := report.Load(dir, nil)
	require.NoError(t, err)
	assert.Len(t, full.Runs[0].Results, 1)
}

func TestCoverageInput(t *testing.T) {
	t.Parallel()

	cov := report.CoverageInput(resultstore.Coverage{TotalLines: 200, CoveredLines: 80})
	require.NotNil(t, cov.Total)
	assert.InDelta(t, 40.0, *cov.Total, 0.0001)
	assert.Nil(t, cov.Fresh)

	assert.Equal(t, report.CoverageInput(resultstore.Coverage{}).Total, (*float64)(nil))
}
