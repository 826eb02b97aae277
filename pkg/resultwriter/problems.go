package resultwriter

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/Sumatoshi-tech/qodana/pkg/observability"
	"github.com/Sumatoshi-tech/qodana/pkg/problem"
	"github.com/Sumatoshi-tech/qodana/pkg/resultstore"
)

const problemsWriter = "problems"

// Filter decides whether a problem is kept. A nil Filter keeps everything.
type Filter func(p *problem.InspectionProblem) bool

// ProblemSink is the write side of the result store used by ProblemWriter.
type ProblemSink interface {
	Insert(ctx context.Context, row resultstore.Row) error
	ReplaceFile(ctx context.Context, group, file string, results resultstore.FileResults) error
	InsertDuplicate(ctx context.Context, dup resultstore.Duplicate) error
	InsertRelatedProblem(ctx context.Context, rel resultstore.Related) error
}

// problemJob is either one problem to append or a whole file to overwrite.
type problemJob struct {
	problem *problem.InspectionProblem

	replace  bool
	group    string
	file     string
	problems []*problem.InspectionProblem
}

// ProblemWriter persists inspection problems through a Pipeline.
type ProblemWriter struct {
	sink   ProblemSink
	pipe   *Pipeline[problemJob]
	logger *slog.Logger
	opts   Options
}

// NewProblemWriter creates a writer over sink whose consumer runs under ctx.
func NewProblemWriter(ctx context.Context, sink ProblemSink, opts Options) *ProblemWriter {
	if opts.Name == "" {
		opts.Name = problemsWriter
	}

	logger := opts.Logger
	if logger == nil {
		logger = observability.NopLogger()
	}

	w := &ProblemWriter{sink: sink, opts: opts, logger: logger.With("writer", opts.Name)}
	w.pipe = New(ctx, w.handle, opts)

	return w
}

// BatchConsume enqueues the problems that pass keep.
func (w *ProblemWriter) BatchConsume(ctx context.Context, problems []*problem.InspectionProblem, keep Filter) error {
	jobs := make([]problemJob, 0, len(problems))

	for _, p := range problems {
		if p == nil {
			continue
		}

		if keep != nil && !keep(p) {
			continue
		}

		jobs = append(jobs, problemJob{problem: p})
	}

	if dropped := len(problems) - len(jobs); dropped > 0 {
		w.opts.Metrics.Dropped(ctx, w.opts.Name, dropped)
	}

	return w.pipe.Consume(ctx, jobs...)
}

// ConsumeFile replaces everything group reported for file with problems.
// The problems are stored under group and file whatever their own Group and
// Path say.
func (w *ProblemWriter) ConsumeFile(ctx context.Context, group, file string, problems []*problem.InspectionProblem) error {
	if group == "" {
		group = problem.GroupMain
	}

	return w.pipe.Consume(ctx, problemJob{
		replace:  true,
		group:    group,
		file:     problem.NormalizePath(file),
		problems: problems,
	})
}

// Close drains pending problems and stops the consumer.
func (w *ProblemWriter) Close(ctx context.Context) error {
	return w.pipe.Close(ctx)
}

func (w *ProblemWriter) handle(ctx context.Context, job problemJob) error {
	if !job.replace {
		return w.persist(ctx, job.problem)
	}

	results := resultstore.FileResults{Rows: make([]resultstore.Row, 0, len(job.problems))}

	for _, p := range job.problems {
		if p == nil {
			continue
		}

		row, payload, err := encode(p)
		if err != nil {
			w.skip(ctx, p, err)

			continue
		}

		row.Group, row.File = job.group, job.file

		if p.RelatedHash != "" {
			results.Related = append(results.Related, relatedOf(p, row, payload))

			continue
		}

		results.Rows = append(results.Rows, row)

		if p.Type == problem.TypeDuplicates {
			results.Duplicates = append(results.Duplicates, duplicateOf(p, row, payload))
		}
	}

	return w.sink.ReplaceFile(ctx, job.group, job.file, results)
}

func (w *ProblemWriter) persist(ctx context.Context, p *problem.InspectionProblem) error {
	row, payload, err := encode(p)
	if err != nil {
		return err
	}

	if p.RelatedHash != "" {
		return w.sink.InsertRelatedProblem(ctx, relatedOf(p, row, payload))
	}

	err = w.sink.Insert(ctx, row)
	if err != nil {
		return err
	}

	if p.Type != problem.TypeDuplicates {
		return nil
	}

	return w.sink.InsertDuplicate(ctx, duplicateOf(p, row, payload))
}

func relatedOf(p *problem.InspectionProblem, row resultstore.Row, payload []byte) resultstore.Related {
	return resultstore.Related{
		Group:       row.Group,
		File:        row.File,
		Fingerprint: p.RelatedHash,
		Payload:     payload,
	}
}

func duplicateOf(p *problem.InspectionProblem, row resultstore.Row, payload []byte) resultstore.Duplicate {
	return resultstore.Duplicate{
		Group:       row.Group,
		File:        row.File,
		Line:        p.Region.StartLine,
		Start:       p.Region.StartColumn,
		End:         p.Region.EndColumn,
		Fingerprint: p.Fingerprint,
		Payload:     payload,
	}
}

// skip logs a problem dropped from a file replacement; the rest of the file
// is still written.
func (w *ProblemWriter) skip(ctx context.Context, p *problem.InspectionProblem, err error) {
	w.opts.Metrics.Failed(ctx, w.opts.Name, 1)
	w.logger.WarnContext(ctx, "failed to persist problem",
		"inspection", p.InspectionID, "file", p.Path, "error", err)
}

func encode(p *problem.InspectionProblem) (resultstore.Row, []byte, error) {
	if p.Fingerprint == "" {
		p.Fingerprint = problem.Fingerprint(p.InspectionID, p.Path, p.Region.Snippet, p.Message)
	}

	payload, err := json.Marshal(p.ToSARIF())
	if err != nil {
		return resultstore.Row{}, nil, fmt.Errorf("serialize %s problem in %s: %w", p.InspectionID, p.Path, err)
	}

	group := p.Group
	if group == "" {
		group = problem.GroupMain
	}

	return resultstore.Row{
		Group:        group,
		InspectionID: p.InspectionID,
		Fingerprint:  p.Fingerprint,
		File:         problem.NormalizePath(p.Path),
		Module:       p.Module,
		Payload:      payload,
	}, payload, nil
}
