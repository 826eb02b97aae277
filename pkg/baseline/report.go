package baseline

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/owenrumney/go-sarif/v2/sarif"
	"github.com/xeipuuv/gojsonschema"

	"github.com/Sumatoshi-tech/qodana/pkg/problem"
)

// ErrInvalidReport is returned for a baseline that does not match the SARIF layout.
var ErrInvalidReport = errors.New("invalid baseline report")

//go:embed sarif-schema.json
var reportSchema string

var (
	schemaOnce sync.Once
	schema     *gojsonschema.Schema
	schemaErr  error
)

func compiledSchema() (*gojsonschema.Schema, error) {
	schemaOnce.Do(func() {
		schema, schemaErr = gojsonschema.NewSchema(gojsonschema.NewStringLoader(reportSchema))
	})

	return schema, schemaErr
}

// LoadReport reads, validates and parses the SARIF report at path.
func LoadReport(path string) (*sarif.Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read baseline %s: %w", path, err)
	}

	report, err := ParseReport(data)
	if err != nil {
		return nil, fmt.Errorf("baseline %s: %w", path, err)
	}

	return report, nil
}

// ParseReport validates and parses a SARIF document.
func ParseReport(data []byte) (*sarif.Report, error) {
	s, err := compiledSchema()
	if err != nil {
		return nil, fmt.Errorf("compile report schema: %w", err)
	}

	res, err := s.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidReport, err)
	}

	if !res.Valid() {
		msgs := make([]string, 0, len(res.Errors()))
		for _, e := range res.Errors() {
			msgs = append(msgs, e.String())
		}

		return nil, fmt.Errorf("%w: %s", ErrInvalidReport, strings.Join(msgs, "; "))
	}

	report, err := sarif.FromBytes(data)
	if err != nil {
		return nil, fmt.Errorf("parse sarif: %w", err)
	}

	return report, nil
}

// EntriesFromReport extracts the comparable entries of every run of report.
// Results already marked absent describe an earlier baseline, not a finding
// of this report, and are skipped.
func EntriesFromReport(report *sarif.Report) []Entry {
	if report == nil {
		return nil
	}

	var entries []Entry

	for _, run := range report.Runs {
		for _, r := range run.Results {
			if r == nil || isAbsent(r) {
				continue
			}

			entries = append(entries, EntryOf(problem.FromSARIF("", r)))
		}
	}

	return entries
}

func isAbsent(r *sarif.Result) bool {
	return r.BaselineState != nil && problem.BaselineStateFromSARIF(*r.BaselineState) == problem.StateAbsent
}
