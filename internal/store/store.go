// Package store keeps test and search results in a SQLite database.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"latmrg/merit"
)

// timeLayout sorts lexically in UTC.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Run is one lattest or seek invocation.
type Run struct {
	ID        string
	Kind      string // lattest | seek
	Generator string
	Test      string
	Dims      []int
	Merit     float64
	Elapsed   time.Duration
	CreatedAt time.Time
}

// Candidate is a generator recorded under a run, ranked from 1.
type Candidate struct {
	RunID        string
	Rank         int
	Generator    string
	Coefficients string
	Merit        float64
	Worst        []int
	Values       []merit.ProjValue
}

// Store wraps the database.
type Store struct {
	db *sql.DB
}

// Open opens or creates the database at path; ":memory:" gives a private
// in-memory database.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A single connection keeps an in-memory database alive and serializes
	// writers on a file.
	db.SetMaxOpenConns(1)
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) migrate() error {
	schema := `
	PRAGMA foreign_keys = ON;

	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		kind TEXT NOT NULL,
		generator TEXT NOT NULL,
		test TEXT NOT NULL,
		dims TEXT NOT NULL,
		merit REAL NOT NULL,
		elapsed_ns INTEGER NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS candidates (
		run_id TEXT NOT NULL,
		position INTEGER NOT NULL,
		generator TEXT NOT NULL,
		coefficients TEXT NOT NULL,
		merit REAL NOT NULL,
		worst TEXT NOT NULL,
		proj_values JSON NOT NULL,
		PRIMARY KEY (run_id, position),
		FOREIGN KEY (run_id) REFERENCES runs(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_candidates_merit ON candidates(merit);
	`
	_, err := s.db.Exec(schema)
	return err
}

func joinDims(d []int) string {
	s := make([]string, len(d))
	for i, x := range d {
		s[i] = strconv.Itoa(x)
	}
	return strings.Join(s, " ")
}

func splitDims(s string) ([]int, error) {
	fields := strings.Fields(s)
	out := make([]int, len(fields))
	for i, f := range fields {
		x, err := strconv.Atoi(f)
		if err != nil {
			return nil, err
		}
		out[i] = x
	}
	return out, nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertRun(ctx context.Context, db execer, r *Run) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	_, err := db.ExecContext(ctx, `
		INSERT INTO runs (id, kind, generator, test, dims, merit, elapsed_ns, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, r.ID, r.Kind, r.Generator, r.Test, joinDims(r.Dims), r.Merit, int64(r.Elapsed), r.CreatedAt.Format(timeLayout))
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}
	return nil
}

// insertCandidates numbers candidates without a rank by their position in
// cs, starting at 1.
func insertCandidates(ctx context.Context, tx *sql.Tx, runID string, cs []Candidate) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO candidates (run_id, position, generator, coefficients, merit, worst, proj_values)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i := range cs {
		c := &cs[i]
		c.RunID = runID
		if c.Rank == 0 {
			c.Rank = i + 1
		}
		values, err := json.Marshal(c.Values)
		if err != nil {
			return fmt.Errorf("failed to marshal values: %w", err)
		}
		if _, err := stmt.ExecContext(ctx, runID, c.Rank, c.Generator, c.Coefficients, c.Merit, joinDims(c.Worst), values); err != nil {
			return fmt.Errorf("failed to insert candidate %d: %w", c.Rank, err)
		}
	}
	return nil
}

// SaveRun inserts r, giving it a fresh ID and creation time when unset.
func (s *Store) SaveRun(ctx context.Context, r *Run) error {
	return insertRun(ctx, s.db, r)
}

// SaveCandidates stores cs under runID in one transaction.
func (s *Store) SaveCandidates(ctx context.Context, runID string, cs []Candidate) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := insertCandidates(ctx, tx, runID, cs); err != nil {
		return err
	}
	return tx.Commit()
}

// SaveResult stores a run with its candidates atomically: on error nothing
// is written.
func (s *Store) SaveResult(ctx context.Context, r *Run, cs []Candidate) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := insertRun(ctx, tx, r); err != nil {
		return err
	}
	if err := insertCandidates(ctx, tx, r.ID, cs); err != nil {
		return err
	}
	return tx.Commit()
}

// Candidates returns the candidates of a run by rank.
func (s *Store) Candidates(ctx context.Context, runID string) ([]Candidate, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT position, generator, coefficients, merit, worst, proj_values
		FROM candidates WHERE run_id = ? ORDER BY position
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query candidates: %w", err)
	}
	defer rows.Close()

	var out []Candidate
	for rows.Next() {
		var (
			c      = Candidate{RunID: runID}
			worst  string
			values []byte
		)
		if err := rows.Scan(&c.Rank, &c.Generator, &c.Coefficients, &c.Merit, &worst, &values); err != nil {
			return nil, fmt.Errorf("failed to scan candidate: %w", err)
		}
		if c.Worst, err = splitDims(worst); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(values, &c.Values); err != nil {
			return nil, fmt.Errorf("failed to unmarshal values: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Runs lists every run, oldest first.
func (s *Store) Runs(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, kind, generator, test, dims, merit, elapsed_ns, created_at
		FROM runs ORDER BY created_at, id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var (
			r         Run
			dims, ts  string
			elapsedNS int64
		)
		if err := rows.Scan(&r.ID, &r.Kind, &r.Generator, &r.Test, &dims, &r.Merit, &elapsedNS, &ts); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		if r.Dims, err = splitDims(dims); err != nil {
			return nil, err
		}
		if r.CreatedAt, err = time.Parse(timeLayout, ts); err != nil {
			return nil, err
		}
		r.Elapsed = time.Duration(elapsedNS)
		out = append(out, r)
	}
	return out, rows.Err()
}

// DeleteRun removes a run and its candidates.
func (s *Store) DeleteRun(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, id)
	return err
}
