package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Sumatoshi-tech/qodana/pkg/exitstatus"
	"github.com/Sumatoshi-tech/qodana/pkg/problem"
	"github.com/Sumatoshi-tech/qodana/pkg/report"
	"github.com/Sumatoshi-tech/qodana/pkg/resultstore"
)

// Tool name constants.
const (
	ToolNameProblems = "qodana_problems"
	ToolNameSummary  = "qodana_summary"
)

const (
	defaultProblemLimit = 100
	maxProblemLimit     = 10000
)

// Sentinel errors for tool input validation.
var (
	// ErrInvalidLimit indicates a limit outside 0..maxProblemLimit.
	ErrInvalidLimit = errors.New("limit must be between 0 and 10000")
	// ErrInvalidSeverityFilter indicates an unknown severity filter.
	ErrInvalidSeverityFilter = errors.New("unknown severity filter")
)

var errToolFailed = errors.New("tool returned an error result")

// ProblemsInput is the input schema for the qodana_problems tool.
type ProblemsInput struct {
	Group      string `json:"group,omitempty"      jsonschema:"inspection group to read (default: every group)"`
	Inspection string `json:"inspection,omitempty" jsonschema:"only problems of this inspection id"`
	Severity   string `json:"severity,omitempty"   jsonschema:"only problems of this severity (critical high moderate low info)"`
	Limit      int    `json:"limit,omitempty"      jsonschema:"maximum number of problems to return (default: 100)"`
}

// SummaryInput is the input schema for the qodana_summary tool.
type SummaryInput struct {
	FailThreshold      *int           `json:"fail_threshold,omitempty"      jsonschema:"maximum total number of problems"`
	SeverityThresholds map[string]int `json:"severity_thresholds,omitempty" jsonschema:"maximum number of problems per severity"`
	CoverageTotal      *float64       `json:"coverage_total,omitempty"      jsonschema:"minimum total test coverage percentage"`
	CoverageFresh      *float64       `json:"coverage_fresh,omitempty"      jsonschema:"minimum test coverage percentage of changed code"`
}

// ToolOutput is a generic wrapper for tool results.
type ToolOutput struct {
	Data any `json:"data"`
}

// ProblemView is the tool representation of one problem.
type ProblemView struct {
	Inspection  string `json:"inspection"`
	Group       string `json:"group"`
	Severity    string `json:"severity"`
	Path        string `json:"path,omitempty"`
	Line        int    `json:"line,omitempty"`
	Message     string `json:"message"`
	Fingerprint string `json:"fingerprint"`
}

// ProblemsOutput is the qodana_problems result.
type ProblemsOutput struct {
	Problems  []ProblemView `json:"problems"`
	Truncated bool          `json:"truncated"`
}

// SummaryOutput is the qodana_summary result.
type SummaryOutput struct {
	Summary     report.Summary `json:"summary"`
	ExitCode    int            `json:"exit_code"`
	Description string         `json:"description,omitempty"`
}

func (s *Server) handleProblems(
	ctx context.Context,
	_ *mcpsdk.CallToolRequest,
	input ProblemsInput,
) (*mcpsdk.CallToolResult, ToolOutput, error) {
	limit, sev, err := validateProblemsInput(input)
	if err != nil {
		return errorResult(err)
	}

	opts := report.Options{Logger: s.logger}
	if input.Group != "" {
		opts.Groups = []string{input.Group}
	}

	rep, err := s.buildReport(ctx, opts)
	if err != nil {
		return errorResult(err)
	}

	out := ProblemsOutput{Problems: make([]ProblemView, 0, min(limit, len(rep.Problems)))}

	for _, p := range rep.Problems {
		if input.Inspection != "" && p.InspectionID != input.Inspection {
			continue
		}

		if sev != "" && p.Severity != sev {
			continue
		}

		if len(out.Problems) == limit {
			out.Truncated = true

			break
		}

		out.Problems = append(out.Problems, ProblemView{
			Inspection:  p.InspectionID,
			Group:       p.Group,
			Severity:    p.Severity.String(),
			Path:        p.Path,
			Line:        p.Region.StartLine,
			Message:     p.Message,
			Fingerprint: p.Fingerprint,
		})
	}

	return jsonResult(out)
}

func (s *Server) handleSummary(
	ctx context.Context,
	_ *mcpsdk.CallToolRequest,
	input SummaryInput,
) (*mcpsdk.CallToolResult, ToolOutput, error) {
	th, err := thresholdsOf(input)
	if err != nil {
		return errorResult(err)
	}

	reader, err := resultstore.Open(s.storePath)
	if err != nil {
		return errorResult(err)
	}
	defer reader.Close()

	rep, err := report.Build(ctx, reader, report.Options{Logger: s.logger})
	if err != nil {
		return errorResult(err)
	}

	cov, err := reader.CoverageTotals(ctx)
	if err != nil {
		return errorResult(err)
	}

	status := exitstatus.Evaluate(exitstatus.Input{
		Counts:   rep.ReportedCounts(),
		Coverage: report.CoverageInput(cov),
	}, th)

	return jsonResult(SummaryOutput{
		Summary:     rep.Summary(),
		ExitCode:    int(status.Code),
		Description: status.Description,
	})
}

func (s *Server) buildReport(ctx context.Context, opts report.Options) (*report.Report, error) {
	reader, err := resultstore.Open(s.storePath)
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	return report.Build(ctx, reader, opts)
}

func validateProblemsInput(input ProblemsInput) (int, problem.Severity, error) {
	limit := input.Limit
	if limit < 0 || limit > maxProblemLimit {
		return 0, "", fmt.Errorf("%w: %d", ErrInvalidLimit, limit)
	}

	if limit == 0 {
		limit = defaultProblemLimit
	}

	if input.Severity == "" {
		return limit, "", nil
	}

	sev, err := problem.ParseSeverity(input.Severity)
	if err != nil {
		return 0, "", fmt.Errorf("%w: %q", ErrInvalidSeverityFilter, input.Severity)
	}

	return limit, sev, nil
}

func thresholdsOf(input SummaryInput) (exitstatus.Thresholds, error) {
	th := exitstatus.Thresholds{
		Any:           input.FailThreshold,
		TotalCoverage: input.CoverageTotal,
		FreshCoverage: input.CoverageFresh,
	}

	for name, n := range input.SeverityThresholds {
		sev, err := problem.ParseSeverity(strings.TrimSpace(name))
		if err != nil {
			return exitstatus.Thresholds{}, fmt.Errorf("%w: %q", ErrInvalidSeverityFilter, name)
		}

		if th.Severity == nil {
			th.Severity = make(map[problem.Severity]int)
		}

		th.Severity[sev] = n
	}

	err := th.Validate()
	if err != nil {
		return exitstatus.Thresholds{}, err
	}

	return th, nil
}

// errorResult builds a CallToolResult with isError set.
func errorResult(err error) (*mcpsdk.CallToolResult, ToolOutput, error) {
	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: err.Error()}},
		IsError: true,
	}, ToolOutput{}, nil
}

// jsonResult builds a CallToolResult with JSON-encoded content.
func jsonResult(value any) (*mcpsdk.CallToolResult, ToolOutput, error) {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return errorResult(fmt.Errorf("encode result: %w", err))
	}

	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: string(data)}},
	}, ToolOutput{Data: value}, nil
}
