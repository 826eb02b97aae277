// Package exitstatus turns the counted findings of a run into the process
// exit code and a failure description.
package exitstatus

import (
	"errors"
	"fmt"
	"maps"
	"strconv"
	"strings"

	"github.com/Sumatoshi-tech/qodana/pkg/problem"
)

// Code is a process exit code. External tooling depends on these values.
type Code int

// Exit codes.
const (
	Success            Code = 0
	StartupError       Code = 1
	InternalError      Code = 70
	ThresholdViolation Code = 255
)

// InternalErrorDescription describes a run that failed at runtime.
const InternalErrorDescription = "Internal error"

const (
	bullet       = "• "
	maxCoverage  = 100
	floatBitSize = 64
)

// ErrInvalidThreshold is returned for thresholds that can never be met.
var ErrInvalidThreshold = errors.New("invalid threshold")

// Status is the outcome of a run.
type Status struct {
	Code        Code
	Description string
}

// Success reports whether the run passed.
func (s Status) Success() bool {
	return s.Code == Success
}

// Coverage holds the observed coverage percentages. Nil means not measured.
type Coverage struct {
	Total *float64
	Fresh *float64
}

// Input is what the evaluator looks at.
type Input struct {
	// Counts are the reported problems per severity.
	Counts   map[problem.Severity]int
	Coverage Coverage
}

// Total returns the number of problems across severities.
func (in Input) Total() int {
	total := 0
	for _, n := range in.Counts {
		total += n
	}

	return total
}

// Thresholds are the configured failure conditions. Nil or absent entries are
// not checked.
type Thresholds struct {
	// Any bounds the total problem count.
	Any *int

	// Severity bounds the problem count of single severities.
	Severity map[problem.Severity]int

	// TotalCoverage is the minimum total coverage percentage.
	TotalCoverage *float64

	// FreshCoverage is the minimum coverage percentage of changed code.
	FreshCoverage *float64
}

// IsZero reports whether no condition is configured.
func (t Thresholds) IsZero() bool {
	return t.Any == nil && len(t.Severity) == 0 && t.TotalCoverage == nil && t.FreshCoverage == nil
}

// Clone returns a deep copy of t.
func (t Thresholds) Clone() Thresholds {
	out := Thresholds{Severity: maps.Clone(t.Severity)}

	if t.Any != nil {
		v := *t.Any
		out.Any = &v
	}

	if t.TotalCoverage != nil {
		v := *t.TotalCoverage
		out.TotalCoverage = &v
	}

	if t.FreshCoverage != nil {
		v := *t.FreshCoverage
		out.FreshCoverage = &v
	}

	return out
}

// Validate rejects negative counts and coverage outside 0..100.
func (t Thresholds) Validate() error {
	if t.Any != nil && *t.Any < 0 {
		return fmt.Errorf("%w: fail threshold %d is negative", ErrInvalidThreshold, *t.Any)
	}

	for _, sev := range problem.Severities() {
		if n, ok := t.Severity[sev]; ok && n < 0 {
			return fmt.Errorf("%w: %s threshold %d is negative", ErrInvalidThreshold, sev, n)
		}
	}

	err := validCoverage("total", t.TotalCoverage)
	if err != nil {
		return err
	}

	return validCoverage("fresh", t.FreshCoverage)
}

func validCoverage(name string, v *float64) error {
	if v != nil && (*v < 0 || *v > maxCoverage) {
		return fmt.Errorf("%w: %s coverage threshold %s is outside 0..100", ErrInvalidThreshold, name, percent(*v))
	}

	return nil
}

// Evaluate checks in against every configured threshold and lists all
// violations. Count thresholds fail when exceeded; coverage thresholds fail
// when the measured value is below the minimum. Unmeasured coverage is not
// checked.
func Evaluate(in Input, th Thresholds) Status {
	var lines []string

	if th.Any != nil {
		if total := in.Total(); total > *th.Any {
			lines = append(lines, fmt.Sprintf(
				"Detected %d problems across all severities, fail threshold: %d", total, *th.Any))
		}
	}

	for _, sev := range problem.Severities() {
		limit, ok := th.Severity[sev]
		if !ok {
			continue
		}

		if n := in.Counts[sev]; n > limit {
			lines = append(lines, fmt.Sprintf(
				"Detected %d problems for severity %s, fail threshold: %d", n, sev.Label(), limit))
		}
	}

	if th.TotalCoverage != nil && in.Coverage.Total != nil && *in.Coverage.Total < *th.TotalCoverage {
		lines = append(lines, fmt.Sprintf("Total coverage %s%% is below the minimum %s%%",
			percent(*in.Coverage.Total), percent(*th.TotalCoverage)))
	}

	if th.FreshCoverage != nil && in.Coverage.Fresh != nil && *in.Coverage.Fresh < *th.FreshCoverage {
		lines = append(lines, fmt.Sprintf("Fresh code coverage %s%% is below the minimum %s%%",
			percent(*in.Coverage.Fresh), percent(*th.FreshCoverage)))
	}

	if len(lines) == 0 {
		return Status{Code: Success}
	}

	return Status{
		Code:        ThresholdViolation,
		Description: "The following failure conditions were met:\n" + bullet + strings.Join(lines, "\n"+bullet),
	}
}

func percent(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, floatBitSize)
}
