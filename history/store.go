package history

import (
	"database/sql"
	"time"

	"github.com/teranos/forge/errors"
)

// Run is one recorded batch run.
type Run struct {
	ID         string
	StartedAt  time.Time
	FinishedAt *time.Time
	Workers    int
	DryRun     bool
	KeepGoing  bool
	Successes  int64
	Skips      int64
	Errors     int64
	ExitCode   int
}

// JobRecord is one job outcome within a run.
type JobRecord struct {
	RunID     string
	Index     int
	Source    string
	Outcome   string
	Detail    string
	ElapsedMS int64
}

// Store handles persistence of runs and their job outcomes.
type Store struct {
	db *sql.DB
}

// NewStore creates a run store over an open history database.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// CreateRun inserts a new, unfinished run row.
func (s *Store) CreateRun(run *Run) error {
	_, err := s.db.Exec(`
		INSERT INTO runs (id, started_at, workers, dry_run, keep_going)
		VALUES (?, ?, ?, ?, ?)`,
		run.ID, run.StartedAt, run.Workers, run.DryRun, run.KeepGoing,
	)
	if err != nil {
		return errors.Wrapf(err, "creating run %s", run.ID)
	}
	return nil
}

// FinishRun stamps the run's final tally and completion time.
func (s *Store) FinishRun(run *Run) error {
	finished := time.Now()
	run.FinishedAt = &finished

	_, err := s.db.Exec(`
		UPDATE runs
		SET finished_at = ?, successes = ?, skips = ?, errors = ?, exit_code = ?
		WHERE id = ?`,
		finished, run.Successes, run.Skips, run.Errors, run.ExitCode, run.ID,
	)
	if err != nil {
		return errors.Wrapf(err, "finishing run %s", run.ID)
	}
	return nil
}

// RecordJob inserts one job outcome. Safe for concurrent use: sql.DB
// serializes access and each job owns a distinct (run_id, idx) key.
func (s *Store) RecordJob(rec *JobRecord) error {
	_, err := s.db.Exec(`
		INSERT INTO run_jobs (run_id, idx, source, outcome, detail, elapsed_ms)
		VALUES (?, ?, ?, ?, ?, ?)`,
		rec.RunID, rec.Index, rec.Source, rec.Outcome, rec.Detail, rec.ElapsedMS,
	)
	if err != nil {
		return errors.Wrapf(err, "recording job %d of run %s", rec.Index, rec.RunID)
	}
	return nil
}

// GetRun retrieves a run by ID.
func (s *Store) GetRun(id string) (*Run, error) {
	row := s.db.QueryRow(`
		SELECT id, started_at, finished_at, workers, dry_run, keep_going,
		       successes, skips, errors, exit_code
		FROM runs WHERE id = ?`, id)

	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.Wrapf(errors.ErrNotFound, "run %s", id)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "getting run %s", id)
	}
	return run, nil
}

// ListRuns returns the most recent runs, newest first.
func (s *Store) ListRuns(limit int) ([]*Run, error) {
	rows, err := s.db.Query(`
		SELECT id, started_at, finished_at, workers, dry_run, keep_going,
		       successes, skips, errors, exit_code
		FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, errors.Wrap(err, "listing runs")
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scanning run")
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// ListJobs returns a run's job outcomes in dispatch order.
func (s *Store) ListJobs(runID string) ([]*JobRecord, error) {
	rows, err := s.db.Query(`
		SELECT run_id, idx, source, outcome, detail, elapsed_ms
		FROM run_jobs WHERE run_id = ? ORDER BY idx`, runID)
	if err != nil {
		return nil, errors.Wrapf(err, "listing jobs of run %s", runID)
	}
	defer rows.Close()

	var recs []*JobRecord
	for rows.Next() {
		var rec JobRecord
		if err := rows.Scan(&rec.RunID, &rec.Index, &rec.Source, &rec.Outcome,
			&rec.Detail, &rec.ElapsedMS); err != nil {
			return nil, errors.Wrap(err, "scanning job record")
		}
		recs = append(recs, &rec)
	}
	return recs, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*Run, error) {
	var run Run
	var finished sql.NullTime
	err := row.Scan(&run.ID, &run.StartedAt, &finished, &run.Workers,
		&run.DryRun, &run.KeepGoing,
		&run.Successes, &run.Skips, &run.Errors, &run.ExitCode)
	if err != nil {
		return nil, err
	}
	if finished.Valid {
		run.FinishedAt = &finished.Time
	}
	return &run, nil
}
