package problem_test

import (
	"testing"

	"github.com/owenrumney/go-sarif/v2/sarif"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/qodana/pkg/problem"
)

func newResult(rule, uri string, line int, snippet, message string) *sarif.Result {
	region := sarif.NewRegion().WithStartLine(line)
	if snippet != "" {
		region.WithSnippet(sarif.NewArtifactContent().WithText(snippet))
	}

	return sarif.NewRuleResult(rule).
		WithMessage(sarif.NewTextMessage(message)).
		WithLevel("error").
		WithLocations([]*sarif.Location{
			sarif.NewLocation().WithPhysicalLocation(
				sarif.NewPhysicalLocation().
					WithArtifactLocation(sarif.NewArtifactLocation().WithUri(uri)).
					WithRegion(region),
			),
		})
}

func TestFingerprint_StableAcrossReformatting(t *testing.T) {
	t.Parallel()

	before := problem.FromSARIF(problem.GroupMain, newResult("UnusedImport", "src/a.py", 3, "import os", "Unused import 'os'"))
	after := problem.FromSARIF(problem.GroupMain, newResult("UnusedImport", "./src/a.py", 17, "  import   os ", "Unused import  'os'"))

	assert.Equal(t, before.Fingerprint, after.Fingerprint)
	assert.NotEqual(t, before.Region.StartLine, after.Region.StartLine)
}

func TestFingerprint_DiffersByRuleAndPath(t *testing.T) {
	t.Parallel()

	base := problem.Fingerprint("Rule", "a.py", "x = 1", "msg")

	assert.NotEqual(t, base, problem.Fingerprint("Other", "a.py", "x = 1", "msg"))
	assert.NotEqual(t, base, problem.Fingerprint("Rule", "b.py", "x = 1", "msg"))
	assert.NotEqual(t, base, problem.Fingerprint("Rule", "a.py", "x = 1", "other msg"))
	assert.Len(t, base, 64)
}

func TestFromSARIF_KeepsExistingFingerprint(t *testing.T) {
	t.Parallel()

	result := newResult("Rule", "a.go", 1, "", "msg")
	result.PartialFingerprints = map[string]interface{}{problem.FingerprintKey: "abc"}

	p := problem.FromSARIF(problem.GroupMain, result)

	assert.Equal(t, "abc", p.Fingerprint)
	assert.Equal(t, problem.SeverityHigh, p.Severity)
	assert.Equal(t, "a.go", p.File())
	assert.Equal(t, "Go", p.Language)
}

func TestToSARIF_RoundTripsDerivedProperties(t *testing.T) {
	t.Parallel()

	p := &problem.InspectionProblem{
		InspectionID: "PyTaint",
		Group:        problem.GroupSanity,
		Severity:     problem.SeverityCritical,
		Type:         problem.TypeTaint,
		Path:         "app/views.py",
		Module:       "app",
		Message:      "tainted value reaches sink",
		RelatedHash:  "root",
		Region:       problem.Region{StartLine: 10, StartColumn: 4, Snippet: "eval(x)"},
	}
	p.Fingerprint = problem.Fingerprint(p.InspectionID, p.Path, p.Region.Snippet, p.Message)

	result := p.ToSARIF()
	require.NotNil(t, result)

	back := problem.FromSARIF("", result)

	assert.Equal(t, p.Fingerprint, back.Fingerprint)
	assert.Equal(t, problem.SeverityCritical, back.Severity)
	assert.Equal(t, problem.TypeTaint, back.Type)
	assert.Equal(t, problem.GroupSanity, back.Group)
	assert.Equal(t, "app", back.Module)
	assert.Equal(t, "root", back.RelatedHash)
	assert.Equal(t, 10, back.Region.StartLine)
}

func TestParseSeverity(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want problem.Severity
	}{
		{"critical", problem.SeverityCritical},
		{"error", problem.SeverityHigh},
		{"Warning", problem.SeverityModerate},
		{"note", problem.SeverityLow},
		{" INFO ", problem.SeverityInfo},
	}

	for _, tt := range tests {
		got, err := problem.ParseSeverity(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := problem.ParseSeverity("blocker")
	require.ErrorIs(t, err, problem.ErrUnknownSeverity)
}

func TestSeverityLabel(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "CRITICAL", problem.SeverityCritical.Label())
	assert.Equal(t, "HIGH (ERROR)", problem.SeverityHigh.Label())
	assert.Equal(t, "MODERATE (WARNING)", problem.SeverityModerate.Label())
	assert.Equal(t, "LOW (NOTE)", problem.SeverityLow.Label())
	assert.Equal(t, "INFO", problem.SeverityInfo.Label())
}

func TestSplit(t *testing.T) {
	t.Parallel()

	batch := []problem.Problem{
		&problem.InspectionProblem{InspectionID: "A"},
		&problem.MetricProblem{Name: "loc", Value: 10},
		&problem.InspectionProblem{InspectionID: "B"},
	}

	inspections, metrics := problem.Split(batch)

	require.Len(t, inspections, 2)
	require.Len(t, metrics, 1)
	assert.Equal(t, "B", inspections[1].InspectionID)
}

func TestBaselineStateSARIF(t *testing.T) {
	t.Parallel()

	for _, state := range problem.BaselineStates() {
		assert.Equal(t, state, problem.BaselineStateFromSARIF(state.SARIF()))
	}
}
