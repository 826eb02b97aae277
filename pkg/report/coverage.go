package report

import (
	"github.com/Sumatoshi-tech/qodana/pkg/exitstatus"
	"github.com/Sumatoshi-tech/qodana/pkg/resultstore"
)

// CoverageInput converts stored coverage counters into evaluator input.
// Percentages without recorded lines stay unmeasured.
func CoverageInput(c resultstore.Coverage) exitstatus.Coverage {
	var out exitstatus.Coverage

	if total, ok := c.TotalPercent(); ok {
		out.Total = &total
	}

	if fresh, ok := c.FreshPercent(); ok {
		out.Fresh = &fresh
	}

	return out
}
