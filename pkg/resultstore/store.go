// Package resultstore persists inspection results of a single run in an
// embedded SQLite file.
//
// The store is written by exactly one owner. A *Store is the writable handle;
// closing it yields a Closed handle, and only a Closed handle (or a fresh Open
// of the file) produces a *Reader. This makes the write-then-read-back phases
// of a run explicit in the types.
package resultstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/jmoiron/sqlx"

	// Registers the pure-Go "sqlite" database/sql driver.
	_ "modernc.org/sqlite"
)

// Sentinel errors.
var (
	ErrStoreClosed  = errors.New("result store is closed")
	ErrStoreMissing = errors.New("result store does not exist")
	ErrNotAStore    = errors.New("file is not a result store")
)

const dirPerm = 0o750

var writerPragmas = []string{
	"PRAGMA journal_mode = WAL",
	"PRAGMA synchronous = NORMAL",
	"PRAGMA busy_timeout = 5000",
}

// closePragma folds the WAL back into the main file so readers can open it
// with mode=ro.
const closePragma = "PRAGMA journal_mode = DELETE"

// Store is the single-writer handle of a result store.
type Store struct {
	db   *sqlx.DB
	path string

	closeOnce sync.Once
	closeErr  error
	closed    chan struct{}
}

// Create destructively initializes a fresh store at path, removing any
// previous file and its WAL side files.
func Create(path string) (*Store, error) {
	err := os.MkdirAll(filepath.Dir(path), dirPerm)
	if err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}

	for _, p := range []string{path, path + "-wal", path + "-shm"} {
		rmErr := os.Remove(p)
		if rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			return nil, fmt.Errorf("remove previous store: %w", rmErr)
		}
	}

	db, err := sqlx.Open(driverName, path)
	if err != nil {
		return nil, fmt.Errorf("open store %s: %w", path, err)
	}

	// One connection: every write goes through the single consumer anyway.
	db.SetMaxOpenConns(1)

	err = initSchema(db)
	if err != nil {
		return nil, errors.Join(fmt.Errorf("init store %s: %w", path, err), db.Close())
	}

	return &Store{db: db, path: path, closed: make(chan struct{})}, nil
}

func initSchema(db *sqlx.DB) error {
	for _, stmt := range writerPragmas {
		_, err := db.Exec(stmt)
		if err != nil {
			return fmt.Errorf("%s: %w", stmt, err)
		}
	}

	tx, err := db.Beginx()
	if err != nil {
		return fmt.Errorf("begin schema: %w", err)
	}

	for _, stmt := range schema {
		_, err = tx.Exec(stmt)
		if err != nil {
			return errors.Join(fmt.Errorf("create schema: %w", err), tx.Rollback())
		}
	}

	err = tx.Commit()
	if err != nil {
		return fmt.Errorf("commit schema: %w", err)
	}

	return nil
}

// Path returns the store file path.
func (s *Store) Path() string {
	return s.path
}

func (s *Store) usable() error {
	select {
	case <-s.closed:
		return ErrStoreClosed
	default:
		return nil
	}
}

// Insert appends one result row. No uniqueness is enforced.
func (s *Store) Insert(ctx context.Context, row Row) error {
	err := s.usable()
	if err != nil {
		return err
	}

	_, err = s.db.NamedExecContext(ctx, insertResult, row)
	if err != nil {
		return fmt.Errorf("insert result %s: %w", row.InspectionID, err)
	}

	return nil
}

// ReplaceFile drops everything group reported for file, including related
// problems and duplicate fragments, and writes results in its place. Both
// happen in one transaction.
func (s *Store) ReplaceFile(ctx context.Context, group, file string, results FileResults) error {
	err := s.usable()
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace %s: %w", file, err)
	}

	err = replaceFile(ctx, tx, group, file, results)
	if err != nil {
		return errors.Join(err, tx.Rollback())
	}

	err = tx.Commit()
	if err != nil {
		return fmt.Errorf("commit replace %s: %w", file, err)
	}

	return nil
}

func replaceFile(ctx context.Context, tx *sqlx.Tx, group, file string, results FileResults) error {
	for _, stmt := range deleteFile {
		_, err := tx.ExecContext(ctx, stmt, group, file)
		if err != nil {
			return fmt.Errorf("clear %s: %w", file, err)
		}
	}

	for _, row := range results.Rows {
		_, err := tx.NamedExecContext(ctx, insertResult, row)
		if err != nil {
			return fmt.Errorf("insert result %s: %w", row.InspectionID, err)
		}
	}

	for _, rel := range results.Related {
		_, err := tx.NamedExecContext(ctx, insertRelated, rel)
		if err != nil {
			return fmt.Errorf("insert related problem %s: %w", rel.Fingerprint, err)
		}
	}

	for _, dup := range results.Duplicates {
		_, err := tx.NamedExecContext(ctx, insertDuplicate, dup)
		if err != nil {
			return fmt.Errorf("insert duplicate %s:%d: %w", dup.File, dup.Line, err)
		}
	}

	return nil
}

// InsertDuplicate appends one duplicated-code fragment.
func (s *Store) InsertDuplicate(ctx context.Context, dup Duplicate) error {
	err := s.usable()
	if err != nil {
		return err
	}

	_, err = s.db.NamedExecContext(ctx, insertDuplicate, dup)
	if err != nil {
		return fmt.Errorf("insert duplicate %s:%d: %w", dup.File, dup.Line, err)
	}

	return nil
}

// InsertRelatedProblem appends a problem that references a root problem.
func (s *Store) InsertRelatedProblem(ctx context.Context, rel Related) error {
	err := s.usable()
	if err != nil {
		return err
	}

	_, err = s.db.NamedExecContext(ctx, insertRelated, rel)
	if err != nil {
		return fmt.Errorf("insert related problem %s: %w", rel.Fingerprint, err)
	}

	return nil
}

// InsertMetric appends one metric value.
func (s *Store) InsertMetric(ctx context.Context, m Metric) error {
	err := s.usable()
	if err != nil {
		return err
	}

	_, err = s.db.NamedExecContext(ctx, insertMetric, m)
	if err != nil {
		return fmt.Errorf("insert metric %s: %w", m.Name, err)
	}

	return nil
}

// InsertCoverage appends coverage counters for one file.
func (s *Store) InsertCoverage(ctx context.Context, c Coverage) error {
	err := s.usable()
	if err != nil {
		return err
	}

	_, err = s.db.NamedExecContext(ctx, insertCoverage, c)
	if err != nil {
		return fmt.Errorf("insert coverage %s: %w", c.File, err)
	}

	return nil
}

// Close releases the database handle and returns the Closed handle that can
// reopen the store for reading. Close is idempotent.
func (s *Store) Close() (Closed, error) {
	s.closeOnce.Do(func() {
		close(s.closed)

		_, modeErr := s.db.Exec(closePragma)

		s.closeErr = errors.Join(modeErr, s.db.Close())
		if s.closeErr != nil {
			s.closeErr = fmt.Errorf("close store %s: %w", s.path, s.closeErr)
		}
	})

	return Closed{path: s.path}, s.closeErr
}

// Closed is a store whose writer has been fully released.
type Closed struct {
	path string
}

// Path returns the store file path.
func (c Closed) Path() string {
	return c.path
}

// Reopen opens the closed store for reading.
func (c Closed) Reopen() (*Reader, error) {
	return Open(c.path)
}
