package resultstore

// Row is one persisted inspection result.
type Row struct {
	Group        string `db:"inspection_group"`
	InspectionID string `db:"inspection_id"`
	Fingerprint  string `db:"fingerprint"`
	File         string `db:"file"`
	Module       string `db:"module"`
	Payload      []byte `db:"payload"`
}

// Duplicate is one fragment of a duplicated-code finding.
type Duplicate struct {
	Group       string `db:"inspection_group"`
	File        string `db:"file"`
	Line        int    `db:"line"`
	Start       int    `db:"start_offset"`
	End         int    `db:"end_offset"`
	Fingerprint string `db:"fingerprint"`
	Payload     []byte `db:"payload"`
}

// Related is a problem attached to the root problem with Fingerprint. File
// is the file whose results reported it.
type Related struct {
	Group       string `db:"inspection_group"`
	File        string `db:"file"`
	Fingerprint string `db:"fingerprint"`
	Payload     []byte `db:"payload"`
}

// FileResults is everything one group reported for a single file.
type FileResults struct {
	Rows       []Row
	Related    []Related
	Duplicates []Duplicate
}

// Metric is one code-quality metric value for a file.
type Metric struct {
	File  string  `db:"file"`
	Name  string  `db:"name"`
	Value float64 `db:"value"`
}

// Coverage holds line coverage counters for a file. Fresh counters cover
// lines changed in the analyzed scope.
type Coverage struct {
	File         string `db:"file"`
	TotalLines   int    `db:"total_lines"`
	CoveredLines int    `db:"covered_lines"`
	FreshLines   int    `db:"fresh_lines"`
	FreshCovered int    `db:"fresh_covered"`
}

// percentScale converts a ratio into a percentage.
const percentScale = 100

// TotalPercent returns overall line coverage and whether any lines were recorded.
func (c Coverage) TotalPercent() (float64, bool) {
	if c.TotalLines <= 0 {
		return 0, false
	}

	return float64(c.CoveredLines) * percentScale / float64(c.TotalLines), true
}

// FreshPercent returns coverage of fresh lines and whether any were recorded.
func (c Coverage) FreshPercent() (float64, bool) {
	if c.FreshLines <= 0 {
		return 0, false
	}

	return float64(c.FreshCovered) * percentScale / float64(c.FreshLines), true
}
