package runner_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/owenrumney/go-sarif/v2/sarif"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/qodana/pkg/problem"
	"github.com/Sumatoshi-tech/qodana/pkg/runner"
)

func TestDiscover(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeSARIF(t, dir, "b.sarif.json")
	writeSARIF(t, filepath.Join(dir), "a.sarif")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "m.metrics.json"), []byte("[]"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o600))

	sources, err := runner.Discover([]string{dir})
	require.NoError(t, err)
	require.Len(t, sources, 3)

	assert.Equal(t, filepath.Join(dir, "a.sarif"), sources[0].Name())
	assert.IsType(t, runner.SARIFSource{}, sources[0])
	assert.IsType(t, runner.MetricsSource{}, sources[2])
}

func TestDiscover_Empty(t *testing.T) {
	t.Parallel()

	_, err := runner.Discover([]string{t.TempDir()})
	require.ErrorIs(t, err, runner.ErrNoSources)
}

func TestSARIFSource_GroupOverride(t *testing.T) {
	t.Parallel()

	path := writeSARIF(t, t.TempDir(), "sanity.sarif",
		newProblem("Syntax", "a.go", problem.SeverityHigh, "syntax error"))

	items, err := runner.SARIFSource{Path: path, Group: problem.GroupSanity}.Problems(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 1)

	p, ok := items[0].(*problem.InspectionProblem)
	require.True(t, ok)
	assert.Equal(t, problem.GroupSanity, p.Group)
	assert.Equal(t, "Syntax", p.InspectionID)
	assert.Equal(t, problem.SeverityHigh, p.Severity)
	assert.Equal(t, "a.go", p.Path)
}

func TestSARIFSource_Malformed(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "bad.sarif")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, err := runner.SARIFSource{Path: path}.Problems(context.Background())
	require.Error(t, err)
}

func TestLoadCoverage(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "coverage.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"file":"./a.go","totalLines":10,"coveredLines":5,"freshLines":2,"freshCovered":1}]`), 0o600))

	cov, err := runner.LoadCoverage(path)
	require.NoError(t, err)
	require.Len(t, cov, 1)
	assert.Equal(t, "a.go", cov[0].File)
	assert.Equal(t, 2, cov[0].FreshLines)

	require.NoError(t, os.WriteFile(path, []byte(`[{"file":"a.go","totalLines":-1}]`), 0o600))

	_, err = runner.LoadCoverage(path)
	require.ErrorIs(t, err, runner.ErrInvalidCoverage)
}

func writeIncremental(t *testing.T, dir string, files []string, problems ...*problem.InspectionProblem) string {
	t.Helper()

	doc, err := sarif.New(sarif.Version210)
	require.NoError(t, err)

	run := sarif.NewRunWithInformationURI("Qodana", "https://www.jetbrains.com/qodana/")
	for _, f := range files {
		run.AddDistinctArtifact(f)
	}

	for _, p := range problems {
		run.AddResult(p.ToSARIF())
	}

	doc.AddRun(run)

	var buf bytes.Buffer
	require.NoError(t, doc.PrettyWrite(&buf))

	path := filepath.Join(dir, "rerun"+runner.IncrementalSuffix)
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o600))

	return path
}

func TestIncrementalSource_Files(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeIncremental(t, dir, []string{"./b.go", "a.go"},
		newProblem("NilDeref", "a.go", problem.SeverityHigh, "nil dereference"),
		newProblem("Unused", "c.go", problem.SeverityLow, "unused variable"),
		newProblem("NilDeref", "a.go", problem.SeverityHigh, "another nil dereference"),
	)

	sources, err := runner.Discover([]string{dir})
	require.NoError(t, err)
	require.Len(t, sources, 1)

	src, ok := sources[0].(runner.FileSource)
	require.True(t, ok)

	batches, err := src.Files(context.Background())
	require.NoError(t, err)
	require.Len(t, batches, 3)

	assert.Equal(t, "b.go", batches[0].File)
	assert.Empty(t, batches[0].Problems)
	assert.Equal(t, "a.go", batches[1].File)
	assert.Len(t, batches[1].Problems, 2)
	assert.Equal(t, "c.go", batches[2].File)
	assert.Equal(t, problem.GroupMain, batches[2].Group)
}
