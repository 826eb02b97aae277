// Package report rebuilds the SARIF report of a run from a closed result store.
package report

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"iter"
	"log/slog"
	"slices"

	"github.com/google/uuid"
	"github.com/owenrumney/go-sarif/v2/sarif"

	"github.com/Sumatoshi-tech/qodana/pkg/baseline"
	"github.com/Sumatoshi-tech/qodana/pkg/observability"
	"github.com/Sumatoshi-tech/qodana/pkg/problem"
	"github.com/Sumatoshi-tech/qodana/pkg/resultstore"
)

// Report identity.
const (
	ToolName        = "Qodana"
	InformationURI  = "https://www.jetbrains.com/qodana/"
	PropertyRunGUID = "qodana.runGuid"
)

// Source is the read side of a finished result store.
type Source interface {
	Groups(ctx context.Context) ([]string, error)
	Select(ctx context.Context, group string) iter.Seq2[resultstore.Row, error]
	SelectRelated(ctx context.Context, fingerprint string) ([][]byte, error)
	SelectDuplicates(ctx context.Context, file string, line int) ([]resultstore.Duplicate, error)
}

// Options configure Build.
type Options struct {
	// RunGUID identifies the run. Empty generates a random one.
	RunGUID string

	// Groups restricts the inspection groups read. Empty reads all.
	Groups []string

	Logger *slog.Logger
}

// Report is the SARIF report of a run and the problems it was built from.
type Report struct {
	SARIF    *sarif.Report
	Problems []*problem.InspectionProblem
	RunGUID  string

	run        *sarif.Run
	rules      map[string]bool
	comparison *baseline.Comparison
}

// Build streams every group of src into a new report.
func Build(ctx context.Context, src Source, opts Options) (*Report, error) {
	logger := opts.Logger
	if logger == nil {
		logger = observability.NopLogger()
	}

	doc, err := sarif.New(sarif.Version210)
	if err != nil {
		return nil, fmt.Errorf("create sarif report: %w", err)
	}

	guid := opts.RunGUID
	if guid == "" {
		guid = uuid.NewString()
	}

	run := sarif.NewRunWithInformationURI(ToolName, InformationURI)
	run.PropertyBag = *sarif.NewPropertyBag()
	run.Add(PropertyRunGUID, guid)
	doc.AddRun(run)

	r := &Report{SARIF: doc, RunGUID: guid, run: run, rules: make(map[string]bool)}

	groups := opts.Groups
	if len(groups) == 0 {
		groups, err = src.Groups(ctx)
		if err != nil {
			return nil, err
		}
	}

	for _, group := range groups {
		err = r.readGroup(ctx, src, group, logger)
		if err != nil {
			return nil, err
		}
	}

	return r, nil
}

func (r *Report) readGroup(ctx context.Context, src Source, group string, logger *slog.Logger) error {
	for row, err := range src.Select(ctx, group) {
		if err != nil {
			return err
		}

		result, err := decodeResult(row.Payload)
		if err != nil {
			logger.WarnContext(ctx, "skipping unreadable result",
				"inspection", row.InspectionID, "file", row.File, "error", err)

			continue
		}

		p := problem.FromSARIF(row.Group, result)
		p.Fingerprint = row.Fingerprint

		err = r.attachRelated(ctx, src, p)
		if err != nil {
			return err
		}

		r.add(p)
	}

	return nil
}

func (r *Report) attachRelated(ctx context.Context, src Source, p *problem.InspectionProblem) error {
	payloads, err := src.SelectRelated(ctx, p.Fingerprint)
	if err != nil {
		return err
	}

	for _, payload := range payloads {
		related, err := decodeResult(payload)
		if err != nil || len(related.Locations) == 0 {
			continue
		}

		loc := related.Locations[0]
		if related.Message.Text != nil {
			loc.Message = sarif.NewTextMessage(*related.Message.Text)
		}

		addRelated(p.Result, loc)
	}

	if p.Type != problem.TypeDuplicates || p.Region.StartLine == 0 {
		return nil
	}

	dups, err := src.SelectDuplicates(ctx, p.Path, p.Region.StartLine)
	if err != nil {
		return err
	}

	for _, d := range dups {
		if d.Fingerprint == p.Fingerprint {
			continue
		}

		region := sarif.NewRegion().WithStartLine(d.Line)
		if d.Start > 0 {
			region.WithStartColumn(d.Start)
		}

		if d.End > 0 {
			region.WithEndColumn(d.End)
		}

		addRelated(p.Result, sarif.NewLocation().WithPhysicalLocation(
			sarif.NewPhysicalLocation().
				WithArtifactLocation(sarif.NewArtifactLocation().WithUri(d.File)).
				WithRegion(region),
		))
	}

	return nil
}

func addRelated(result *sarif.Result, loc *sarif.Location) {
	id := uint(len(result.RelatedLocations) + 1)
	loc.Id = &id
	result.RelatedLocations = append(result.RelatedLocations, loc)
}

func (r *Report) add(p *problem.InspectionProblem) {
	r.registerRule(p.InspectionID, p.Severity)
	r.run.AddResult(p.ToSARIF())
	r.Problems = append(r.Problems, p)
}

func (r *Report) registerRule(id string, sev problem.Severity) {
	if id == "" || r.rules[id] {
		return
	}

	r.rules[id] = true
	r.run.AddRule(id).WithDefaultConfiguration(&sarif.ReportingConfiguration{Level: sev.Level()})
}

func decodeResult(payload []byte) (*sarif.Result, error) {
	result := new(sarif.Result)

	err := json.Unmarshal(payload, result)
	if err != nil {
		return nil, fmt.Errorf("decode result: %w", err)
	}

	return result, nil
}

// Entries returns the baseline entries of the report's problems.
func (r *Report) Entries() []baseline.Entry {
	entries := make([]baseline.Entry, len(r.Problems))
	for i, p := range r.Problems {
		entries[i] = baseline.EntryOf(p)
	}

	return entries
}

// ApplyBaseline classifies the report against base, stamps baseline states
// onto the results and appends absent baseline results to the run.
func (r *Report) ApplyBaseline(base []baseline.Entry, opts baseline.Options) baseline.Comparison {
	comparison := baseline.Compare(r.Entries(), base, opts)

	for _, result := range comparison.Apply() {
		if result.RuleID != nil {
			r.registerRule(*result.RuleID, problem.FromSARIF("", result).Severity)
		}

		r.run.AddResult(result)
	}

	r.comparison = &comparison

	return comparison
}

// Comparison returns the applied baseline comparison, if any.
func (r *Report) Comparison() (baseline.Comparison, bool) {
	if r.comparison == nil {
		return baseline.Comparison{}, false
	}

	return *r.comparison, true
}

// ReportedCounts returns the problem counts the exit status is judged on:
// every problem without a baseline, only new ones with a baseline.
func (r *Report) ReportedCounts() map[problem.Severity]int {
	counts := make(map[problem.Severity]int)

	if r.comparison == nil {
		for _, p := range r.Problems {
			counts[p.Severity]++
		}

		return counts
	}

	for _, ch := range r.comparison.Changes {
		if ch.State == problem.StateNew {
			counts[ch.Entry.Severity]++
		}
	}

	return counts
}

// SummaryRow is the count of one (rule, severity, state) combination.
type SummaryRow struct {
	RuleID   string                `json:"ruleId"   yaml:"ruleId"`
	Severity problem.Severity      `json:"severity" yaml:"severity"`
	State    problem.BaselineState `json:"state,omitempty" yaml:"state,omitempty"`
	Count    int                   `json:"count"    yaml:"count"`
}

// Summary is the counted view of a report.
type Summary struct {
	Rows        []SummaryRow                  `json:"rows"                  yaml:"rows"`
	BySeverity  map[problem.Severity]int      `json:"bySeverity"            yaml:"bySeverity"`
	ByState     map[problem.BaselineState]int `json:"byState,omitempty"     yaml:"byState,omitempty"`
	Total       int                           `json:"total"                 yaml:"total"`
	HasBaseline bool                          `json:"hasBaseline"           yaml:"hasBaseline"`
}

type summaryKey struct {
	rule  string
	sev   problem.Severity
	state problem.BaselineState
}

// Summary counts problems by rule and severity, and by baseline state when a
// baseline was applied.
func (r *Report) Summary() Summary {
	counts := make(map[summaryKey]int)
	s := Summary{BySeverity: make(map[problem.Severity]int), HasBaseline: r.comparison != nil}

	if r.comparison == nil {
		for _, p := range r.Problems {
			counts[summaryKey{rule: p.InspectionID, sev: p.Severity}]++
			s.BySeverity[p.Severity]++
			s.Total++
		}
	} else {
		s.ByState = make(map[problem.BaselineState]int)

		for _, ch := range r.comparison.Changes {
			counts[summaryKey{rule: ch.Entry.RuleID, sev: ch.Entry.Severity, state: ch.State}]++
			s.ByState[ch.State]++

			if ch.State != problem.StateAbsent {
				s.BySeverity[ch.Entry.Severity]++
				s.Total++
			}
		}
	}

	for k, n := range counts {
		s.Rows = append(s.Rows, SummaryRow{RuleID: k.rule, Severity: k.sev, State: k.state, Count: n})
	}

	slices.SortFunc(s.Rows, compareRows)

	return s
}

func compareRows(a, b SummaryRow) int {
	return cmp.Or(
		cmp.Compare(a.Severity.Rank(), b.Severity.Rank()),
		cmp.Compare(a.RuleID, b.RuleID),
		cmp.Compare(stateRank(a.State), stateRank(b.State)),
	)
}

func stateRank(s problem.BaselineState) int {
	if s == "" {
		return -1
	}

	return slices.Index(problem.BaselineStates(), s)
}
