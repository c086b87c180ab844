// Package store persists computed schedules and conflict reports so runs
// can be listed and compared later.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // Pure-Go SQLite driver.

	"github.com/papapumpkin/gantry/internal/calendar"
	"github.com/papapumpkin/gantry/internal/resource"
	"github.com/papapumpkin/gantry/internal/schedule"
)

// ErrNotFound is returned by Run when no run has the requested id.
var ErrNotFound = errors.New("run not found")

// schema contains the DDL executed on every open. IF NOT EXISTS keeps it
// idempotent.
const schema = `
CREATE TABLE IF NOT EXISTS runs (
    id             TEXT PRIMARY KEY,
    project        TEXT NOT NULL,
    created_at     INTEGER NOT NULL,
    project_finish REAL NOT NULL DEFAULT 0,
    start_date     TEXT NOT NULL DEFAULT '',
    finish_date    TEXT NOT NULL DEFAULT '',
    task_count     INTEGER NOT NULL DEFAULT 0,
    critical_count INTEGER NOT NULL DEFAULT 0,
    conflict_count INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS runs_project_created ON runs(project, created_at);

CREATE TABLE IF NOT EXISTS task_results (
    run_id      TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
    task_id     TEXT NOT NULL,
    duration    REAL NOT NULL,
    es          REAL NOT NULL,
    ef          REAL NOT NULL,
    ls          REAL NOT NULL,
    lf          REAL NOT NULL,
    slack       REAL NOT NULL,
    is_critical INTEGER NOT NULL,
    PRIMARY KEY (run_id, task_id)
);

CREATE TABLE IF NOT EXISTS conflicts (
    run_id      TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
    resource_id TEXT NOT NULL,
    date        TEXT NOT NULL,
    allocated   REAL NOT NULL,
    available   REAL NOT NULL,
    task_ids    TEXT NOT NULL,
    PRIMARY KEY (run_id, resource_id, date)
);
`

// Run summarizes one saved computation.
type Run struct {
	ID            string    `json:"id"`
	Project       string    `json:"project"`
	CreatedAt     time.Time `json:"created_at"`
	ProjectFinish float64   `json:"project_finish"`
	StartDate     string    `json:"start_date,omitempty"`
	FinishDate    string    `json:"finish_date,omitempty"`
	TaskCount     int       `json:"task_count"`
	CriticalCount int       `json:"critical_count"`
	ConflictCount int       `json:"conflict_count"`
}

// Record is the input to SaveRun. Either part may be empty.
type Record struct {
	Project   string
	Schedule  *schedule.Result
	Conflicts []resource.Conflict
}

// RunDetail is a run together with its per-task rows and conflicts.
type RunDetail struct {
	Run       Run                   `json:"run"`
	Tasks     []schedule.TaskResult `json:"tasks"`
	Conflicts []resource.Conflict   `json:"conflicts"`
}

// Store is a SQLite-backed run history in WAL mode.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens (or creates) the database at dbPath, creating the parent
// directory if needed, and applies the schema.
func Open(ctx context.Context, dbPath string) (*Store, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("store: create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("store: open database: %w", err)
	}

	// SQLite allows a single writer; one pooled connection keeps the
	// per-connection pragmas below in effect for every statement.
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("store: %s: %w", pragma, err)
		}
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: create schema: %w", err)
	}

	return &Store{db: db, now: time.Now}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveRun persists rec under a fresh run id in a single transaction.
func (s *Store) SaveRun(ctx context.Context, rec Record) (Run, error) {
	run := Run{
		ID:            uuid.NewString(),
		Project:       rec.Project,
		CreatedAt:     s.now().UTC(),
		ConflictCount: len(rec.Conflicts),
	}
	if r := rec.Schedule; r != nil {
		run.ProjectFinish = r.ProjectFinish
		run.TaskCount = len(r.Tasks)
		run.CriticalCount = len(r.Critical)
		if r.StartDate != nil {
			run.StartDate = calendar.FormatDate(*r.StartDate)
		}
		if r.FinishDate != nil {
			run.FinishDate = calendar.FormatDate(*r.FinishDate)
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Run{}, fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

	const insertRun = `
		INSERT INTO runs (id, project, created_at, project_finish, start_date, finish_date,
			task_count, critical_count, conflict_count)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	if _, err := tx.ExecContext(ctx, insertRun, run.ID, run.Project, run.CreatedAt.UnixNano(),
		run.ProjectFinish, run.StartDate, run.FinishDate,
		run.TaskCount, run.CriticalCount, run.ConflictCount); err != nil {
		return Run{}, fmt.Errorf("store: insert run %s: %w", run.ID, err)
	}

	if rec.Schedule != nil {
		if err := insertTasks(ctx, tx, run.ID, rec.Schedule); err != nil {
			return Run{}, err
		}
	}
	if err := insertConflicts(ctx, tx, run.ID, rec.Conflicts); err != nil {
		return Run{}, err
	}

	if err := tx.Commit(); err != nil {
		return Run{}, fmt.Errorf("store: commit run %s: %w", run.ID, err)
	}
	return run, nil
}

func insertTasks(ctx context.Context, tx *sql.Tx, runID string, r *schedule.Result) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO task_results (run_id, task_id, duration, es, ef, ls, lf, slack, is_critical)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("store: prepare task insert: %w", err)
	}
	defer stmt.Close()

	for _, id := range r.Order {
		t := r.Tasks[id]
		if _, err := stmt.ExecContext(ctx, runID, t.TaskID, t.Duration,
			t.ES, t.EF, t.LS, t.LF, t.Slack, t.IsCritical); err != nil {
			return fmt.Errorf("store: insert task %q: %w", id, err)
		}
	}
	return nil
}

func insertConflicts(ctx context.Context, tx *sql.Tx, runID string, conflicts []resource.Conflict) error {
	if len(conflicts) == 0 {
		return nil
	}
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO conflicts (run_id, resource_id, date, allocated, available, task_ids)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("store: prepare conflict insert: %w", err)
	}
	defer stmt.Close()

	for _, c := range conflicts {
		ids, err := json.Marshal(c.TaskIDs)
		if err != nil {
			return fmt.Errorf("store: encode task ids: %w", err)
		}
		date := calendar.FormatDate(c.Date)
		if _, err := stmt.ExecContext(ctx, runID, c.ResourceID, date, c.Allocated, c.Available, string(ids)); err != nil {
			return fmt.Errorf("store: insert conflict %s@%s: %w", c.ResourceID, date, err)
		}
	}
	return nil
}

// Runs lists saved runs, newest first. An empty project lists every
// project; a non-positive limit means no limit.
func (s *Store) Runs(ctx context.Context, project string, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = -1
	}
	const q = `
		SELECT id, project, created_at, project_finish, start_date, finish_date,
			task_count, critical_count, conflict_count
		FROM runs
		WHERE ? = '' OR project = ?
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?`
	rows, err := s.db.QueryContext(ctx, q, project, project, limit)
	if err != nil {
		return nil, fmt.Errorf("store: list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: iterate runs: %w", err)
	}
	return runs, nil
}

// Run loads one run with its task rows (in stored topological order) and
// conflicts (by resource then date).
func (s *Store) Run(ctx context.Context, id string) (*RunDetail, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, project, created_at, project_finish, start_date, finish_date,
			task_count, critical_count, conflict_count
		FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}

	detail := &RunDetail{Run: run}
	if detail.Tasks, err = s.taskRows(ctx, id); err != nil {
		return nil, err
	}
	if detail.Conflicts, err = s.conflictRows(ctx, id); err != nil {
		return nil, err
	}
	return detail, nil
}

func (s *Store) taskRows(ctx context.Context, runID string) ([]schedule.TaskResult, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT task_id, duration, es, ef, ls, lf, slack, is_critical
		FROM task_results WHERE run_id = ? ORDER BY rowid`, runID)
	if err != nil {
		return nil, fmt.Errorf("store: load tasks for %s: %w", runID, err)
	}
	defer rows.Close()

	var out []schedule.TaskResult
	for rows.Next() {
		var t schedule.TaskResult
		if err := rows.Scan(&t.TaskID, &t.Duration, &t.ES, &t.EF, &t.LS, &t.LF, &t.Slack, &t.IsCritical); err != nil {
			return nil, fmt.Errorf("store: scan task: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: iterate tasks: %w", err)
	}
	return out, nil
}

func (s *Store) conflictRows(ctx context.Context, runID string) ([]resource.Conflict, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT resource_id, date, allocated, available, task_ids
		FROM conflicts WHERE run_id = ? ORDER BY resource_id, date`, runID)
	if err != nil {
		return nil, fmt.Errorf("store: load conflicts for %s: %w", runID, err)
	}
	defer rows.Close()

	var out []resource.Conflict
	for rows.Next() {
		var (
			c          resource.Conflict
			date, tids string
		)
		if err := rows.Scan(&c.ResourceID, &date, &c.Allocated, &c.Available, &tids); err != nil {
			return nil, fmt.Errorf("store: scan conflict: %w", err)
		}
		if c.Date, err = calendar.ParseDate(date); err != nil {
			return nil, fmt.Errorf("store: conflict date: %w", err)
		}
		if err := json.Unmarshal([]byte(tids), &c.TaskIDs); err != nil {
			return nil, fmt.Errorf("store: decode task ids: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: iterate conflicts: %w", err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (Run, error) {
	var (
		run     Run
		created int64
	)
	err := sc.Scan(&run.ID, &run.Project, &created, &run.ProjectFinish, &run.StartDate, &run.FinishDate,
		&run.TaskCount, &run.CriticalCount, &run.ConflictCount)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, err
	}
	if err != nil {
		return Run{}, fmt.Errorf("store: scan run: %w", err)
	}
	run.CreatedAt = time.Unix(0, created).UTC()
	return run, nil
}
