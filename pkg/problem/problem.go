// Package problem defines the findings that flow through the result pipeline:
// inspection problems reported by the inspection engine and metric problems
// produced by code-quality metrics.
package problem

import (
	"github.com/owenrumney/go-sarif/v2/sarif"
)

// Default inspection groups.
const (
	GroupMain   = "main"
	GroupSanity = "sanity"
	GroupPromo  = "promo"
)

// Problem is a closed set of finding variants. Use a type switch over
// *InspectionProblem and *MetricProblem to handle it.
type Problem interface {
	// File returns the project-relative path the problem belongs to.
	File() string

	isProblem()
}

// Region is the source span of a problem.
type Region struct {
	StartLine   int
	StartColumn int
	EndLine     int
	EndColumn   int
	Snippet     string
}

// InspectionProblem is a single issue reported by an inspection.
type InspectionProblem struct {
	InspectionID string
	Group        string
	Severity     Severity
	Type         Type
	Path         string
	Module       string
	Message      string
	Region       Region
	Language     string

	// Fingerprint is the stable equality key used across runs.
	Fingerprint string

	// RelatedHash links the problem to a root problem (taint sink to source).
	RelatedHash string

	// Result is the serialized payload persisted by the store.
	Result *sarif.Result
}

// File implements Problem.
func (p *InspectionProblem) File() string { return p.Path }

func (*InspectionProblem) isProblem() {}

// MetricProblem is a code-quality metric value for one file.
type MetricProblem struct {
	Path  string
	Name  string
	Value float64
}

// File implements Problem.
func (m *MetricProblem) File() string { return m.Path }

func (*MetricProblem) isProblem() {}

// Split separates a mixed batch into its variants, preserving order.
func Split(problems []Problem) ([]*InspectionProblem, []*MetricProblem) {
	var (
		inspections []*InspectionProblem
		metrics     []*MetricProblem
	)

	for _, p := range problems {
		switch v := p.(type) {
		case *InspectionProblem:
			inspections = append(inspections, v)
		case *MetricProblem:
			metrics = append(metrics, v)
		}
	}

	return inspections, metrics
}
