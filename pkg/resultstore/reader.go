package resultstore

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"net/url"
	"os"
	"path/filepath"
	"sync"

	"github.com/jmoiron/sqlx"
)

// Reader is a read-only view of a finished store.
type Reader struct {
	db   *sqlx.DB
	path string

	closeOnce sync.Once
	closeErr  error
}

// Open reopens an existing store read-only. The schema is left untouched.
func Open(path string) (*Reader, error) {
	_, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrStoreMissing, path)
	}

	if err != nil {
		return nil, fmt.Errorf("stat store %s: %w", path, err)
	}

	dsn, err := readOnlyDSN(path)
	if err != nil {
		return nil, err
	}

	db, err := sqlx.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open store %s: %w", path, err)
	}

	var tables int

	err = db.Get(&tables, hasResultsTable)
	if err != nil {
		return nil, errors.Join(fmt.Errorf("%w: %s: %w", ErrNotAStore, path, err), db.Close())
	}

	if tables == 0 {
		return nil, errors.Join(fmt.Errorf("%w: %s", ErrNotAStore, path), db.Close())
	}

	return &Reader{db: db, path: path}, nil
}

func readOnlyDSN(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve store path %s: %w", path, err)
	}

	u := url.URL{Scheme: "file", Path: filepath.ToSlash(abs), RawQuery: "mode=ro"}

	return u.String(), nil
}

// Path returns the store file path.
func (r *Reader) Path() string {
	return r.path
}

// Select streams the rows of group ordered by inspection id and fingerprint.
// The sequence is single-pass; an error ends it.
func (r *Reader) Select(ctx context.Context, group string) iter.Seq2[Row, error] {
	return func(yield func(Row, error) bool) {
		rows, err := r.db.QueryxContext(ctx, selectResults, group)
		if err != nil {
			yield(Row{}, fmt.Errorf("select %s: %w", group, err))

			return
		}
		defer rows.Close()

		for rows.Next() {
			var row Row

			err = rows.StructScan(&row)
			if err != nil {
				yield(Row{}, fmt.Errorf("scan %s: %w", group, err))

				return
			}

			if !yield(row, nil) {
				return
			}
		}

		err = rows.Err()
		if err != nil {
			yield(Row{}, fmt.Errorf("iterate %s: %w", group, err))
		}
	}
}

// SelectRelated returns the payloads of problems related to fingerprint in
// insertion order.
func (r *Reader) SelectRelated(ctx context.Context, fingerprint string) ([][]byte, error) {
	var payloads [][]byte

	err := r.db.SelectContext(ctx, &payloads, selectRelated, fingerprint)
	if err != nil {
		return nil, fmt.Errorf("select related %s: %w", fingerprint, err)
	}

	return payloads, nil
}

// SelectDuplicates returns the duplicated fragments anchored at file and line.
func (r *Reader) SelectDuplicates(ctx context.Context, file string, line int) ([]Duplicate, error) {
	var dups []Duplicate

	err := r.db.SelectContext(ctx, &dups, selectDuplicates, file, line)
	if err != nil {
		return nil, fmt.Errorf("select duplicates %s:%d: %w", file, line, err)
	}

	return dups, nil
}

// Groups lists the inspection groups that have at least one row.
func (r *Reader) Groups(ctx context.Context) ([]string, error) {
	var groups []string

	err := r.db.SelectContext(ctx, &groups, selectGroups)
	if err != nil {
		return nil, fmt.Errorf("select groups: %w", err)
	}

	return groups, nil
}

// Count returns the number of rows in group.
func (r *Reader) Count(ctx context.Context, group string) (int, error) {
	var n int

	err := r.db.GetContext(ctx, &n, countResults, group)
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", group, err)
	}

	return n, nil
}

// Metrics returns every recorded metric ordered by name and file.
func (r *Reader) Metrics(ctx context.Context) ([]Metric, error) {
	var metrics []Metric

	err := r.db.SelectContext(ctx, &metrics, selectMetrics)
	if err != nil {
		return nil, fmt.Errorf("select metrics: %w", err)
	}

	return metrics, nil
}

// CoverageTotals sums the coverage counters of all files.
func (r *Reader) CoverageTotals(ctx context.Context) (Coverage, error) {
	var c Coverage

	err := r.db.GetContext(ctx, &c, selectCoverage)
	if err != nil {
		return Coverage{}, fmt.Errorf("select coverage: %w", err)
	}

	return c, nil
}

// Close releases the reader. It is idempotent.
func (r *Reader) Close() error {
	r.closeOnce.Do(func() {
		r.closeErr = r.db.Close()
	})

	return r.closeErr
}
