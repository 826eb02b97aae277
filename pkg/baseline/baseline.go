// Package baseline classifies the findings of a run against the findings of
// a previously saved report.
//
// Findings are matched by fingerprint only. When several findings share a
// fingerprint, the k-th current occurrence matches the k-th baseline
// occurrence, so comparing a report against itself reports every finding as
// unchanged.
package baseline

import (
	"github.com/owenrumney/go-sarif/v2/sarif"

	"github.com/Sumatoshi-tech/qodana/pkg/problem"
)

// Entry is one finding taking part in a comparison.
type Entry struct {
	Fingerprint string
	Path        string
	RuleID      string
	Severity    problem.Severity
	Message     string

	// Result is the SARIF payload, if any. Apply writes the baseline state into it.
	Result *sarif.Result
}

// EntryOf builds an entry from an inspection problem.
func EntryOf(p *problem.InspectionProblem) Entry {
	return Entry{
		Fingerprint: p.Fingerprint,
		Path:        p.Path,
		RuleID:      p.InspectionID,
		Severity:    p.Severity,
		Message:     p.Message,
		Result:      p.Result,
	}
}

// InScopeFunc reports whether a path was analyzed by the current run.
type InScopeFunc func(path string) bool

// Options control a comparison.
type Options struct {
	// IncludeAbsent emits baseline findings not reproduced by the run.
	IncludeAbsent bool

	// InScope restricts absent findings to analyzed paths. Nil means every path.
	InScope InScopeFunc
}

// Change is the classification of one finding.
type Change struct {
	State problem.BaselineState

	// Entry is the current finding, or the baseline finding when State is ABSENT.
	Entry Entry

	// Previous is the matched baseline finding for UNCHANGED and UPDATED.
	Previous *Entry

	// Diff describes the message change of an UPDATED finding.
	Diff string
}

// Comparison is the outcome of Compare.
type Comparison struct {
	Changes []Change
}

// Compare classifies current against baseline. Current findings keep their
// order; absent findings follow in baseline order.
func Compare(current, baseline []Entry, opts Options) Comparison {
	pending := make(map[string][]int, len(baseline))
	for i, e := range baseline {
		pending[e.Fingerprint] = append(pending[e.Fingerprint], i)
	}

	matched := make([]bool, len(baseline))
	changes := make([]Change, 0, len(current))

	for _, cur := range current {
		queue := pending[cur.Fingerprint]
		if len(queue) == 0 {
			changes = append(changes, Change{State: problem.StateNew, Entry: cur})

			continue
		}

		idx := queue[0]
		pending[cur.Fingerprint] = queue[1:]
		matched[idx] = true

		prev := baseline[idx]
		change := Change{State: problem.StateUnchanged, Entry: cur, Previous: &prev}

		if prev.Message != cur.Message {
			change.State = problem.StateUpdated
			change.Diff = MessageDiff(prev.Message, cur.Message)
		}

		changes = append(changes, change)
	}

	if opts.IncludeAbsent {
		for i, e := range baseline {
			if matched[i] {
				continue
			}

			if opts.InScope != nil && !opts.InScope(e.Path) {
				continue
			}

			changes = append(changes, Change{State: problem.StateAbsent, Entry: e})
		}
	}

	return Comparison{Changes: changes}
}

// Counts returns the number of changes per state.
func (c Comparison) Counts() map[problem.BaselineState]int {
	counts := make(map[problem.BaselineState]int, len(problem.BaselineStates()))
	for _, ch := range c.Changes {
		counts[ch.State]++
	}

	return counts
}

// Of returns the changes in state.
func (c Comparison) Of(state problem.BaselineState) []Change {
	var out []Change

	for _, ch := range c.Changes {
		if ch.State == state {
			out = append(out, ch)
		}
	}

	return out
}

// Apply writes each state into the SARIF results and returns the results of
// absent findings, which the caller appends to the report.
func (c Comparison) Apply() []*sarif.Result {
	var absent []*sarif.Result

	for _, ch := range c.Changes {
		if ch.Entry.Result == nil {
			continue
		}

		state := ch.State.SARIF()
		ch.Entry.Result.BaselineState = &state

		if ch.State == problem.StateAbsent {
			absent = append(absent, ch.Entry.Result)
		}
	}

	return absent
}
