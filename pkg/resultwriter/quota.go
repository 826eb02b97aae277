package resultwriter

import (
	"maps"
	"sync"

	"github.com/Sumatoshi-tech/qodana/pkg/problem"
)

// QuotaFilter keeps at most a fixed number of problems per inspection.
// A limit of zero or less means unlimited. It is safe for concurrent use.
type QuotaFilter struct {
	defaultLimit int
	limits       map[string]int

	mu       sync.Mutex
	kept     map[string]int
	exceeded map[string]int
}

// NewQuotaFilter creates a filter with a default limit and per-inspection overrides.
func NewQuotaFilter(defaultLimit int, limits map[string]int) *QuotaFilter {
	return &QuotaFilter{
		defaultLimit: defaultLimit,
		limits:       maps.Clone(limits),
		kept:         make(map[string]int),
		exceeded:     make(map[string]int),
	}
}

func (q *QuotaFilter) limit(inspection string) int {
	if l, ok := q.limits[inspection]; ok {
		return l
	}

	return q.defaultLimit
}

// Keep reports whether p still fits its inspection quota and counts it if so.
func (q *QuotaFilter) Keep(p *problem.InspectionProblem) bool {
	limit := q.limit(p.InspectionID)

	q.mu.Lock()
	defer q.mu.Unlock()

	if limit > 0 && q.kept[p.InspectionID] >= limit {
		q.exceeded[p.InspectionID]++

		return false
	}

	q.kept[p.InspectionID]++

	return true
}

// Exceeded returns how many problems each inspection had dropped.
func (q *QuotaFilter) Exceeded() map[string]int {
	q.mu.Lock()
	defer q.mu.Unlock()

	return maps.Clone(q.exceeded)
}
