package runner

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/Sumatoshi-tech/qodana/pkg/problem"
	"github.com/Sumatoshi-tech/qodana/pkg/resultstore"
)

// ErrInvalidCoverage is returned for malformed coverage counters.
var ErrInvalidCoverage = errors.New("invalid coverage file")

type coverageRecord struct {
	File         string `json:"file"`
	TotalLines   int    `json:"totalLines"`
	CoveredLines int    `json:"coveredLines"`
	FreshLines   int    `json:"freshLines"`
	FreshCovered int    `json:"freshCovered"`
}

// LoadCoverage reads per-file line coverage counters from a JSON array.
func LoadCoverage(path string) ([]resultstore.Coverage, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read coverage %s: %w", path, err)
	}

	var records []coverageRecord

	err = json.Unmarshal(data, &records)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidCoverage, path, err)
	}

	out := make([]resultstore.Coverage, 0, len(records))

	for i, r := range records {
		if r.TotalLines < 0 || r.FreshLines < 0 || r.CoveredLines < 0 || r.FreshCovered < 0 {
			return nil, fmt.Errorf("%w: %s: entry %d has negative counters", ErrInvalidCoverage, path, i)
		}

		out = append(out, resultstore.Coverage{
			File:         problem.NormalizePath(r.File),
			TotalLines:   r.TotalLines,
			CoveredLines: r.CoveredLines,
			FreshLines:   r.FreshLines,
			FreshCovered: r.FreshCovered,
		})
	}

	return out, nil
}
