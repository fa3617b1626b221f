package history

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"drivebench/internal/benchmark"
)

// Run describes one invocation of the harness.
type Run struct {
	ID        int64     `json:"id"`
	StartedAt time.Time `json:"started_at"`
	Branch    string    `json:"branch"`
	Commit    string    `json:"commit"`
	Dirty     bool      `json:"dirty"`
	Host      string    `json:"host"`
}

// Entry is the summary of one step of one pair, as recorded by a run.
type Entry struct {
	Run         Run    `json:"run"`
	Benchmark   string `json:"benchmark"`
	Library     string `json:"library"`
	Fingerprint string `json:"fingerprint"`
	Cached      bool   `json:"cached"`
	benchmark.StepSummary
}

// Filter narrows a history query. Empty fields match everything.
type Filter struct {
	Benchmark string
	Library   string
	// Limit bounds the number of runs returned. Zero means no limit.
	Limit int
}

// Store keeps per-step summaries of past runs.
type Store interface {
	Close() error
	RecordRun(ctx context.Context, run Run, results *benchmark.ResultSet) (int64, error)
	Runs(ctx context.Context, limit int) ([]Run, error)
	Query(ctx context.Context, f Filter) ([]Entry, error)
}

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens the database at path, creating parent directories,
// and applies migrations.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) migrate() error {
	query := `
	CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		started_at DATETIME NOT NULL,
		branch TEXT NOT NULL DEFAULT '',
		commit_sha TEXT NOT NULL DEFAULT '',
		dirty INTEGER NOT NULL DEFAULT 0,
		host TEXT NOT NULL DEFAULT ''
	);
	CREATE TABLE IF NOT EXISTS step_summaries (
		run_id INTEGER NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		benchmark TEXT NOT NULL,
		library TEXT NOT NULL,
		fingerprint TEXT NOT NULL,
		cached INTEGER NOT NULL,
		size INTEGER NOT NULL,
		trials INTEGER NOT NULL,
		time_mean REAL,
		time_std REAL,
		memory_mean REAL,
		memory_std REAL,
		PRIMARY KEY (run_id, benchmark, library, size)
	);
	CREATE INDEX IF NOT EXISTS idx_step_summaries_pair ON step_summaries(benchmark, library);
	`
	_, err := s.db.Exec(query)
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// RecordRun stores run and every step summary of results in one
// transaction and returns the run ID.
func (s *SQLiteStore) RecordRun(ctx context.Context, run Run, results *benchmark.ResultSet) (int64, error) {
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO runs (started_at, branch, commit_sha, dirty, host) VALUES (?, ?, ?, ?, ?)`,
		run.StartedAt.UTC(), run.Branch, run.Commit, run.Dirty, run.Host)
	if err != nil {
		return 0, fmt.Errorf("failed to insert run: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read run id: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO step_summaries
			(run_id, benchmark, library, fingerprint, cached, size, trials, time_mean, time_std, memory_mean, memory_std)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, o := range results.Outcomes() {
		for _, step := range o.Summary {
			_, err := stmt.ExecContext(ctx, id, o.Benchmark, o.Library, o.Fingerprint, o.Cached,
				step.Size, step.Trials,
				nullable(step.TimeMean), nullable(step.TimeStd),
				nullable(step.MemoryMean), nullable(step.MemoryStd))
			if err != nil {
				return 0, fmt.Errorf("failed to insert summary of %s/%s step %d: %w", o.Benchmark, o.Library, step.Size, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit run: %w", err)
	}
	return id, nil
}

// Runs returns the most recent runs first.
func (s *SQLiteStore) Runs(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, started_at, branch, commit_sha, dirty, host FROM runs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.ID, &r.StartedAt, &r.Branch, &r.Commit, &r.Dirty, &r.Host); err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Query returns step summaries matching f, most recent run first and in
// ascending size order within a pair.
func (s *SQLiteStore) Query(ctx context.Context, f Filter) ([]Entry, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = -1
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT r.id, r.started_at, r.branch, r.commit_sha, r.dirty, r.host,
			s.benchmark, s.library, s.fingerprint, s.cached, s.size, s.trials,
			s.time_mean, s.time_std, s.memory_mean, s.memory_std
		FROM step_summaries s
		JOIN runs r ON r.id = s.run_id
		WHERE (? = '' OR s.benchmark = ?)
			AND (? = '' OR s.library = ?)
			AND r.id IN (
				SELECT DISTINCT s2.run_id FROM step_summaries s2
				WHERE (? = '' OR s2.benchmark = ?)
					AND (? = '' OR s2.library = ?)
				ORDER BY s2.run_id DESC LIMIT ?
			)
		ORDER BY r.id DESC, s.benchmark, s.library, s.size`,
		f.Benchmark, f.Benchmark, f.Library, f.Library,
		f.Benchmark, f.Benchmark, f.Library, f.Library, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e                                  Entry
			timeMean, timeStd, memMean, memStd sql.NullFloat64
		)
		err := rows.Scan(&e.Run.ID, &e.Run.StartedAt, &e.Run.Branch, &e.Run.Commit, &e.Run.Dirty, &e.Run.Host,
			&e.Benchmark, &e.Library, &e.Fingerprint, &e.Cached, &e.Size, &e.Trials,
			&timeMean, &timeStd, &memMean, &memStd)
		if err != nil {
			return nil, err
		}
		e.TimeMean, e.TimeStd = value(timeMean), value(timeStd)
		e.MemoryMean, e.MemoryStd = value(memMean), value(memStd)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// nullable stores unknown values as NULL.
func nullable(v float64) sql.NullFloat64 {
	if math.IsNaN(v) {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: v, Valid: true}
}

func value(v sql.NullFloat64) float64 {
	if !v.Valid {
		return math.NaN()
	}
	return v.Float64
}
