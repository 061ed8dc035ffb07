// Package drawstore persists draws of derived quantities in a SQLite
// database, one row per draw and quantity, so that posterior
// summaries can be produced after the fitting process has exited.
package drawstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // pure go sqlite driver
)

// ErrNoRun is returned when reading a run that is not in the store.
var ErrNoRun = errors.New("drawstore: run not found")

// Store holds draws in a SQLite database.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens the SQLite database at path, creating the file and the
// draws table if needed.
func Open(ctx context.Context, path string) (*Store, error) {

	if path == "" {
		return nil, fmt.Errorf("drawstore: empty database path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("create dirs: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS draws (
		run TEXT NOT NULL,
		draw INTEGER NOT NULL,
		col INTEGER NOT NULL,
		name TEXT NOT NULL,
		value REAL NOT NULL,
		PRIMARY KEY (run, draw, col)
	)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create draws table: %w", err)
	}

	return &Store{db: db, path: path}, nil
}

// Write stores the draws of one run in a single transaction.  rows[k]
// holds draw k, with one value per element of names.  Existing draws
// of the run are replaced.
func (s *Store) Write(ctx context.Context, run string, names []string, rows [][]float64) (retErr error) {

	for k, r := range rows {
		if len(r) != len(names) {
			return fmt.Errorf("drawstore: draw %d has %d values for %d names", k, len(r), len(names))
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err := tx.ExecContext(ctx, `DELETE FROM draws WHERE run = ?`, run); err != nil {
		return fmt.Errorf("delete run %s: %w", run, err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO draws(run, draw, col, name, value) VALUES(?,?,?,?,?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for k, r := range rows {
		for j, v := range r {
			if _, err := stmt.ExecContext(ctx, run, k, j, names[j], v); err != nil {
				return fmt.Errorf("insert draw %d: %w", k, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	return nil
}

// Read returns the names and draws of a run, in the layout accepted
// by Write.
func (s *Store) Read(ctx context.Context, run string) ([]string, [][]float64, error) {

	rows, err := s.db.QueryContext(ctx,
		`SELECT draw, col, name, value FROM draws WHERE run = ? ORDER BY draw, col`, run)
	if err != nil {
		return nil, nil, fmt.Errorf("select draws: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var names []string
	var draws [][]float64
	for rows.Next() {
		var k, j int
		var name string
		var v float64
		if err := rows.Scan(&k, &j, &name, &v); err != nil {
			return nil, nil, fmt.Errorf("scan: %w", err)
		}

		if k == 0 {
			names = append(names, name)
		}
		for len(draws) <= k {
			draws = append(draws, nil)
		}
		draws[k] = append(draws[k], v)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("read draws: %w", err)
	}

	if len(draws) == 0 {
		return nil, nil, fmt.Errorf("%w: %s", ErrNoRun, run)
	}

	return names, draws, nil
}

// Runs returns the names of all stored runs, sorted.
func (s *Store) Runs(ctx context.Context) ([]string, error) {

	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT run FROM draws ORDER BY run`)
	if err != nil {
		return nil, fmt.Errorf("select runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []string
	for rows.Next() {
		var r string
		if err := rows.Scan(&r); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		runs = append(runs, r)
	}

	return runs, rows.Err()
}

// Columns transposes draws into one column per name.
func Columns(draws [][]float64) [][]float64 {

	if len(draws) == 0 {
		return nil
	}

	cols := make([][]float64, len(draws[0]))
	for j := range cols {
		cols[j] = make([]float64, len(draws))
		for k := range draws {
			cols[j][k] = draws[k][j]
		}
	}

	return cols
}

// Path returns the database path.
func (s *Store) Path() string { return s.path }

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
