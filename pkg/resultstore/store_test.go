package resultstore_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/qodana/pkg/resultstore"
)

func newStore(t *testing.T) (*resultstore.Store, string) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "results", resultstore.FileName)

	store, err := resultstore.Create(path)
	require.NoError(t, err)

	return store, path
}

func collect(t *testing.T, r *resultstore.Reader, group string) []resultstore.Row {
	t.Helper()

	var rows []resultstore.Row

	for row, err := range r.Select(context.Background(), group) {
		require.NoError(t, err)

		rows = append(rows, row)
	}

	return rows
}

func TestCreate_RemovesPreviousStore(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store, path := newStore(t)

	require.NoError(t, store.Insert(ctx, resultstore.Row{
		Group: "main", InspectionID: "Unused", Fingerprint: "a", File: "a.go", Payload: []byte("{}"),
	}))

	_, err := store.Close()
	require.NoError(t, err)

	fresh, err := resultstore.Create(path)
	require.NoError(t, err)

	closed, err := fresh.Close()
	require.NoError(t, err)

	reader, err := closed.Reopen()
	require.NoError(t, err)

	defer reader.Close()

	n, err := reader.Count(ctx, "main")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestSelect_OrderedByInspectionAndFingerprint(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store, _ := newStore(t)

	for _, row := range []resultstore.Row{
		{Group: "main", InspectionID: "Unused", Fingerprint: "b", File: "b.go", Payload: []byte("1")},
		{Group: "main", InspectionID: "Dead", Fingerprint: "z", File: "a.go", Payload: []byte("2")},
		{Group: "main", InspectionID: "Unused", Fingerprint: "a", File: "c.go", Payload: []byte("3")},
		{Group: "sanity", InspectionID: "Syntax", Fingerprint: "x", File: "d.go", Payload: []byte("4")},
	} {
		require.NoError(t, store.Insert(ctx, row))
	}

	closed, err := store.Close()
	require.NoError(t, err)

	reader, err := closed.Reopen()
	require.NoError(t, err)

	defer reader.Close()

	rows := collect(t, reader, "main")
	require.Len(t, rows, 3)
	assert.Equal(t, "Dead", rows[0].InspectionID)
	assert.Equal(t, "a", rows[1].Fingerprint)
	assert.Equal(t, "b", rows[2].Fingerprint)
	assert.Equal(t, []byte("3"), rows[1].Payload)

	groups, err := reader.Groups(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"main", "sanity"}, groups)
}

func TestSelect_StopsEarly(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store, _ := newStore(t)

	for _, fp := range []string{"a", "b", "c"} {
		require.NoError(t, store.Insert(ctx, resultstore.Row{
			Group: "main", InspectionID: "X", Fingerprint: fp, Payload: []byte("{}"),
		}))
	}

	closed, err := store.Close()
	require.NoError(t, err)

	reader, err := closed.Reopen()
	require.NoError(t, err)

	defer reader.Close()

	seen := 0

	for _, err := range reader.Select(ctx, "main") {
		require.NoError(t, err)

		seen++

		break
	}

	assert.Equal(t, 1, seen)

	n, err := reader.Count(ctx, "main")
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func fileResults(group, file, fp string) resultstore.FileResults {
	return resultstore.FileResults{
		Rows: []resultstore.Row{
			{Group: group, InspectionID: "Taint", Fingerprint: fp, File: file, Payload: []byte("root")},
		},
		Related: []resultstore.Related{
			{Group: group, File: file, Fingerprint: fp, Payload: []byte("sink")},
		},
		Duplicates: []resultstore.Duplicate{
			{Group: group, File: file, Line: 3, Start: 1, End: 9, Fingerprint: "dup", Payload: []byte("frag")},
		},
	}
}

func TestReplaceFile_ClearsEveryTableOfThatFile(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store, _ := newStore(t)

	require.NoError(t, store.Insert(ctx, resultstore.Row{Group: "main", InspectionID: "A", Fingerprint: "2", File: "b.go", Payload: []byte("{}")}))
	require.NoError(t, store.Insert(ctx, resultstore.Row{Group: "sanity", InspectionID: "A", Fingerprint: "3", File: "a.go", Payload: []byte("{}")}))
	require.NoError(t, store.ReplaceFile(ctx, "sanity", "a.go", fileResults("sanity", "a.go", "other")))

	for range 3 {
		require.NoError(t, store.ReplaceFile(ctx, "main", "a.go", fileResults("main", "a.go", "root")))
	}

	closed, err := store.Close()
	require.NoError(t, err)

	reader, err := closed.Reopen()
	require.NoError(t, err)

	defer reader.Close()

	rows := collect(t, reader, "main")
	require.Len(t, rows, 2)
	assert.Equal(t, "b.go", rows[0].File)
	assert.Equal(t, "root", rows[1].Fingerprint)

	related, err := reader.SelectRelated(ctx, "root")
	require.NoError(t, err)
	assert.Len(t, related, 1)

	dups, err := reader.SelectDuplicates(ctx, "a.go", 3)
	require.NoError(t, err)
	require.Len(t, dups, 2)
	assert.ElementsMatch(t, []string{"main", "sanity"}, []string{dups[0].Group, dups[1].Group})

	n, err := reader.Count(ctx, "sanity")
	require.NoError(t, err)
	assert.Equal(t, 1, n, "replacing main must not touch sanity")

	other, err := reader.SelectRelated(ctx, "other")
	require.NoError(t, err)
	assert.Len(t, other, 1)
}

func TestReplaceFile_EmptyResultsClearsFile(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store, _ := newStore(t)

	require.NoError(t, store.ReplaceFile(ctx, "main", "a.go", fileResults("main", "a.go", "root")))
	require.NoError(t, store.ReplaceFile(ctx, "main", "a.go", resultstore.FileResults{}))

	closed, err := store.Close()
	require.NoError(t, err)

	reader, err := closed.Reopen()
	require.NoError(t, err)

	defer reader.Close()

	assert.Empty(t, collect(t, reader, "main"))

	related, err := reader.SelectRelated(ctx, "root")
	require.NoError(t, err)
	assert.Empty(t, related)

	dups, err := reader.SelectDuplicates(ctx, "a.go", 3)
	require.NoError(t, err)
	assert.Empty(t, dups)
}

func TestRelatedDuplicatesMetricsCoverage(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store, _ := newStore(t)

	require.NoError(t, store.InsertRelatedProblem(ctx, resultstore.Related{Fingerprint: "root", Payload: []byte("r1")}))
	require.NoError(t, store.InsertRelatedProblem(ctx, resultstore.Related{Fingerprint: "root", Payload: []byte("r2")}))
	require.NoError(t, store.InsertRelatedProblem(ctx, resultstore.Related{Fingerprint: "other", Payload: []byte("o1")}))

	require.NoError(t, store.InsertDuplicate(ctx, resultstore.Duplicate{File: "a.go", Line: 10, Start: 40, End: 80, Fingerprint: "d", Payload: []byte("2")}))
	require.NoError(t, store.InsertDuplicate(ctx, resultstore.Duplicate{File: "a.go", Line: 10, Start: 5, End: 30, Fingerprint: "d", Payload: []byte("1")}))
	require.NoError(t, store.InsertDuplicate(ctx, resultstore.Duplicate{File: "a.go", Line: 11, Start: 0, End: 1, Fingerprint: "e", Payload: []byte("3")}))

	require.NoError(t, store.InsertMetric(ctx, resultstore.Metric{File: "b.go", Name: "loc", Value: 20}))
	require.NoError(t, store.InsertMetric(ctx, resultstore.Metric{File: "a.go", Name: "loc", Value: 10}))

	require.NoError(t, store.InsertCoverage(ctx, resultstore.Coverage{File: "a.go", TotalLines: 10, CoveredLines: 5, FreshLines: 4, FreshCovered: 1}))
	require.NoError(t, store.InsertCoverage(ctx, resultstore.Coverage{File: "b.go", TotalLines: 10, CoveredLines: 10}))

	closed, err := store.Close()
	require.NoError(t, err)

	reader, err := closed.Reopen()
	require.NoError(t, err)

	defer reader.Close()

	related, err := reader.SelectRelated(ctx, "root")
	require.NoError(t, err)
	assert.Equal(t, [][]byte{[]byte("r1"), []byte("r2")}, related)

	dups, err := reader.SelectDuplicates(ctx, "a.go", 10)
	require.NoError(t, err)
	require.Len(t, dups, 2)
	assert.Equal(t, 5, dups[0].Start)
	assert.Equal(t, 80, dups[1].End)

	metrics, err := reader.Metrics(ctx)
	require.NoError(t, err)
	require.Len(t, metrics, 2)
	assert.Equal(t, "a.go", metrics[0].File)

	cov, err := reader.CoverageTotals(ctx)
	require.NoError(t, err)

	total, ok := cov.TotalPercent()
	require.True(t, ok)
	assert.InDelta(t, 75.0, total, 0.001)

	fresh, ok := cov.FreshPercent()
	require.True(t, ok)
	assert.InDelta(t, 25.0, fresh, 0.001)
}

func TestStore_UnusableAfterClose(t *testing.T) {
	t.Parallel()

	store, path := newStore(t)

	first, err := store.Close()
	require.NoError(t, err)

	second, err := store.Close()
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, path, second.Path())

	err = store.Insert(context.Background(), resultstore.Row{Group: "main"})
	require.ErrorIs(t, err, resultstore.ErrStoreClosed)
}

func TestOpen_Missing(t *testing.T) {
	t.Parallel()

	_, err := resultstore.Open(filepath.Join(t.TempDir(), resultstore.FileName))
	require.ErrorIs(t, err, resultstore.ErrStoreMissing)
}

func TestOpen_NotAStore(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), resultstore.FileName)
	require.NoError(t, os.WriteFile(path, nil, 0o600))

	_, err := resultstore.Open(path)
	require.ErrorIs(t, err, resultstore.ErrNotAStore)
}

func TestEmptyCoverage(t *testing.T) {
	t.Parallel()

	_, ok := resultstore.Coverage{}.TotalPercent()
	assert.False(t, ok)

	_, ok = resultstore.Coverage{}.FreshPercent()
	assert.False(t, ok)
}
