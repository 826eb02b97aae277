package resultstore

// FileName is the fixed name of the store file inside a results directory.
const FileName = "qodana.db"

const driverName = "sqlite"

var schema = []string{
	`CREATE TABLE results (
		inspection_group TEXT NOT NULL,
		inspection_id    TEXT NOT NULL,
		fingerprint      TEXT NOT NULL,
		file             TEXT NOT NULL DEFAULT '',
		module           TEXT NOT NULL DEFAULT '',
		payload          BLOB NOT NULL
	)`,
	`CREATE INDEX idx_results_group ON results (inspection_group, inspection_id, fingerprint)`,
	`CREATE INDEX idx_results_file ON results (inspection_group, file)`,
	`CREATE TABLE duplicates (
		inspection_group TEXT NOT NULL DEFAULT '',
		file         TEXT    NOT NULL,
		line         INTEGER NOT NULL,
		start_offset INTEGER NOT NULL,
		end_offset   INTEGER NOT NULL,
		fingerprint  TEXT    NOT NULL,
		payload      BLOB    NOT NULL
	)`,
	`CREATE INDEX idx_duplicates_location ON duplicates (file, line, start_offset)`,
	`CREATE TABLE related_problem (
		inspection_group TEXT NOT NULL DEFAULT '',
		file             TEXT NOT NULL DEFAULT '',
		fingerprint      TEXT NOT NULL,
		payload          BLOB NOT NULL
	)`,
	`CREATE INDEX idx_related_problem_fingerprint ON related_problem (fingerprint)`,
	`CREATE INDEX idx_related_problem_file ON related_problem (inspection_group, file)`,
	`CREATE TABLE metrics (
		file  TEXT NOT NULL,
		name  TEXT NOT NULL,
		value REAL NOT NULL
	)`,
	`CREATE INDEX idx_metrics_name ON metrics (name, file)`,
	`CREATE TABLE coverage (
		file          TEXT    NOT NULL,
		total_lines   INTEGER NOT NULL,
		covered_lines INTEGER NOT NULL,
		fresh_lines   INTEGER NOT NULL DEFAULT 0,
		fresh_covered INTEGER NOT NULL DEFAULT 0
	)`,
}

// deleteFile clears one file of one group in every per-file table.
var deleteFile = []string{
	`DELETE FROM results WHERE inspection_group = ? AND file = ?`,
	`DELETE FROM related_problem WHERE inspection_group = ? AND file = ?`,
	`DELETE FROM duplicates WHERE inspection_group = ? AND file = ?`,
}

const (
	insertResult = `INSERT INTO results (inspection_group, inspection_id, fingerprint, file, module, payload)
		VALUES (:inspection_group, :inspection_id, :fingerprint, :file, :module, :payload)`
	insertDuplicate = `INSERT INTO duplicates (inspection_group, file, line, start_offset, end_offset, fingerprint, payload)
		VALUES (:inspection_group, :file, :line, :start_offset, :end_offset, :fingerprint, :payload)`
	insertRelated = `INSERT INTO related_problem (inspection_group, file, fingerprint, payload)
		VALUES (:inspection_group, :file, :fingerprint, :payload)`
	insertMetric   = `INSERT INTO metrics (file, name, value) VALUES (:file, :name, :value)`
	insertCoverage = `INSERT INTO coverage (file, total_lines, covered_lines, fresh_lines, fresh_covered)
		VALUES (:file, :total_lines, :covered_lines, :fresh_lines, :fresh_covered)`

	selectResults = `SELECT inspection_group, inspection_id, fingerprint, file, module, payload
		FROM results WHERE inspection_group = ? ORDER BY inspection_id, fingerprint, rowid`
	selectGroups     = `SELECT DISTINCT inspection_group FROM results ORDER BY inspection_group`
	countResults     = `SELECT COUNT(*) FROM results WHERE inspection_group = ?`
	selectRelated    = `SELECT payload FROM related_problem WHERE fingerprint = ? ORDER BY rowid`
	selectDuplicates = `SELECT inspection_group, file, line, start_offset, end_offset, fingerprint, payload
		FROM duplicates WHERE file = ? AND line = ? ORDER BY start_offset, rowid`
	selectMetrics  = `SELECT file, name, value FROM metrics ORDER BY name, file`
	selectCoverage = `SELECT COALESCE(SUM(total_lines), 0) AS total_lines,
		COALESCE(SUM(covered_lines), 0) AS covered_lines,
		COALESCE(SUM(fresh_lines), 0) AS fresh_lines,
		COALESCE(SUM(fresh_covered), 0) AS fresh_covered
		FROM coverage`
	hasResultsTable = `SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'results'`
)
