package runner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/owenrumney/go-sarif/v2/sarif"

	"github.com/Sumatoshi-tech/qodana/pkg/problem"
)

// Input file suffixes recognised by Discover.
const (
	SARIFSuffix       = ".sarif"
	SARIFJSONSuffix   = ".sarif.json"
	MetricsSuffix     = ".metrics.json"
	IncrementalSuffix = ".incremental.sarif"
)

// PropertyGroup is the run property naming the inspection group of a
// SARIF input. Runs without it belong to problem.GroupMain.
const PropertyGroup = "qodana.group"

// ErrNoSources is returned by Discover when nothing usable was found.
var ErrNoSources = errors.New("no inspection inputs found")

// Source produces one batch of problems.
type Source interface {
	Name() string
	Problems(ctx context.Context) ([]problem.Problem, error)
}

// SARIFSource reads the results of every run of a SARIF file.
type SARIFSource struct {
	Path string
	// Group overrides the group of every run when set.
	Group string
}

// Name returns the file path.
func (s SARIFSource) Name() string { return s.Path }

func (s SARIFSource) read() (*sarif.Report, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.Path, err)
	}

	report, err := sarif.FromBytes(data)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", s.Path, err)
	}

	return report, nil
}

// Problems parses the file and converts every result.
func (s SARIFSource) Problems(ctx context.Context) ([]problem.Problem, error) {
	report, err := s.read()
	if err != nil {
		return nil, err
	}

	var out []problem.Problem

	for _, run := range report.Runs {
		group := s.groupOf(run)

		for _, result := range run.Results {
			err = ctx.Err()
			if err != nil {
				return nil, err
			}

			if result == nil {
				continue
			}

			out = append(out, problem.FromSARIF(group, result))
		}
	}

	return out, nil
}

func (s SARIFSource) groupOf(run *sarif.Run) string {
	if s.Group != "" {
		return s.Group
	}

	if run.Properties != nil {
		if g, ok := run.Properties[PropertyGroup].(string); ok && g != "" {
			return g
		}
	}

	return problem.GroupMain
}

// FileBatch is the complete set of problems a group reported for one file.
type FileBatch struct {
	Group    string
	File     string
	Problems []*problem.InspectionProblem
}

// FileSource re-analyzes whole files. Each batch supersedes whatever was
// stored for its file before.
type FileSource interface {
	Source
	Files(ctx context.Context) ([]FileBatch, error)
}

// IncrementalSource is a SARIF input produced by re-running inspections on
// a subset of files. Every file listed in a run's artifacts is covered, so
// an artifact without results clears that file.
type IncrementalSource struct {
	SARIFSource
}

// Files groups the results of every run by file, in artifact order first.
func (s IncrementalSource) Files(ctx context.Context) ([]FileBatch, error) {
	report, err := s.read()
	if err != nil {
		return nil, err
	}

	var (
		batches []FileBatch
		index   = map[[2]string]int{}
	)

	batchFor := func(group, file string) *FileBatch {
		key := [2]string{group, file}

		i, ok := index[key]
		if !ok {
			i = len(batches)
			index[key] = i
			batches = append(batches, FileBatch{Group: group, File: file})
		}

		return &batches[i]
	}

	for _, run := range report.Runs {
		group := s.groupOf(run)

		for _, artifact := range run.Artifacts {
			if artifact != nil && artifact.Location != nil && artifact.Location.URI != nil {
				batchFor(group, problem.NormalizePath(*artifact.Location.URI))
			}
		}

		for _, result := range run.Results {
			err = ctx.Err()
			if err != nil {
				return nil, err
			}

			if result == nil {
				continue
			}

			p := problem.FromSARIF(group, result)
			b := batchFor(group, problem.NormalizePath(p.Path))
			b.Problems = append(b.Problems, p)
		}
	}

	return batches, nil
}

// MetricsSource reads code-quality metrics from a JSON array of
// {"path", "name", "value"} objects.
type MetricsSource struct {
	Path string
}

type metricRecord struct {
	Path  string   `json:"path"`
	Name  string   `json:"name"`
	Value *float64 `json:"value"`
}

// Name returns the file path.
func (s MetricsSource) Name() string { return s.Path }

// Problems parses the metrics file. Records without a value are skipped.
func (s MetricsSource) Problems(context.Context) ([]problem.Problem, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.Path, err)
	}

	var records []metricRecord

	err = json.Unmarshal(data, &records)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", s.Path, err)
	}

	out := make([]problem.Problem, 0, len(records))

	for _, r := range records {
		if r.Value == nil || r.Name == "" {
			continue
		}

		out = append(out, &problem.MetricProblem{Path: problem.NormalizePath(r.Path), Name: r.Name, Value: *r.Value})
	}

	return out, nil
}

// Discover turns files and directories into sources. Directories are walked
// recursively; files are classified by suffix. The result is sorted by path.
func Discover(paths []string) ([]Source, error) {
	var sources []Source

	for _, root := range paths {
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
			if walkErr != nil {
				return walkErr
			}

			if d.IsDir() {
				return nil
			}

			if src, ok := classify(path); ok {
				sources = append(sources, src)
			}

			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("scan inputs %s: %w", root, err)
		}
	}

	if len(sources) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoSources, strings.Join(paths, ", "))
	}

	slices.SortFunc(sources, func(a, b Source) int { return strings.Compare(a.Name(), b.Name()) })

	return sources, nil
}

func classify(path string) (Source, bool) {
	name := strings.ToLower(filepath.Base(path))

	switch {
	case strings.HasSuffix(name, IncrementalSuffix):
		return IncrementalSource{SARIFSource{Path: path}}, true
	case strings.HasSuffix(name, MetricsSuffix):
		return MetricsSource{Path: path}, true
	case strings.HasSuffix(name, SARIFSuffix), strings.HasSuffix(name, SARIFJSONSuffix):
		return SARIFSource{Path: path}, true
	default:
		return nil, false
	}
}
