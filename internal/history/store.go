package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/devwiki/wikitools/internal/batch"
	"github.com/devwiki/wikitools/internal/db"
)

// Store provides access to stored runs.
type Store struct {
	db *db.DB
}

// NewStore creates a Store backed by the given database.
func NewStore(database *db.DB) *Store {
	return &Store{db: database}
}

// CreateRun records the start of run.
func (s *Store) CreateRun(ctx context.Context, run *batch.Run, wiki string) error {
	job, err := json.Marshal(run.Job)
	if err != nil {
		return fmt.Errorf("marshalling job: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO runs (id, action, username, wiki, status, job, started_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.ID,
		string(run.Job.Action),
		run.User,
		wiki,
		string(batch.StatusRunning),
		string(job),
		formatTime(run.StartedAt),
	)
	if err != nil {
		return fmt.Errorf("inserting run: %w", err)
	}
	return nil
}

// FinishRun stores the final status and summary of run.
func (s *Store) FinishRun(ctx context.Context, run *batch.Run) error {
	finished := run.FinishedAt
	if finished.IsZero() {
		finished = time.Now()
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE runs SET status = ?, queued = ?, attempted = ?, succeeded = ?,
			failed = ?, skipped = ?, finished_at = ?
		WHERE id = ?`,
		string(run.Status),
		run.Summary.Queued,
		run.Summary.Attempted,
		run.Summary.Succeeded,
		run.Summary.Failed,
		run.Summary.Skipped,
		formatTime(finished),
		run.ID,
	)
	if err != nil {
		return fmt.Errorf("updating run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("finishing %s: %w", run.ID, ErrNotFound)
	}
	return nil
}

// AppendEntry stores the seq'th log line of a run.
func (s *Store) AppendEntry(ctx context.Context, runID string, seq int, e batch.Entry) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO run_entries (id, run_id, seq, timestamp, level, title, message)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		uuid.New().String(),
		runID,
		seq,
		formatTime(e.Time),
		string(e.Level),
		e.Title,
		e.Message,
	)
	if err != nil {
		return fmt.Errorf("inserting run entry: %w", err)
	}
	return nil
}

const runColumns = `id, action, username, wiki, status, job, queued, attempted,
	succeeded, failed, skipped, started_at, finished_at`

// GetRun retrieves a single run.
func (s *Store) GetRun(ctx context.Context, id string) (*Run, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+runColumns+" FROM runs WHERE id = ?", id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	return run, err
}

// ListRuns returns runs matching the filter, newest first.
func (s *Store) ListRuns(ctx context.Context, filter ListFilter) ([]Run, error) {
	var (
		clauses []string
		args    []any
	)

	if filter.Action != "" {
		clauses = append(clauses, "action = ?")
		args = append(args, string(filter.Action))
	}
	if filter.User != "" {
		clauses = append(clauses, "username = ?")
		args = append(args, filter.User)
	}
	if filter.Status != "" {
		clauses = append(clauses, "status = ?")
		args = append(args, string(filter.Status))
	}
	if filter.Since != nil {
		clauses = append(clauses, "started_at >= ?")
		args = append(args, formatTime(*filter.Since))
	}
	if filter.Until != nil {
		clauses = append(clauses, "started_at <= ?")
		args = append(args, formatTime(*filter.Until))
	}

	query := "SELECT " + runColumns + " FROM runs"
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY started_at DESC"

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
		if filter.Offset > 0 {
			query += fmt.Sprintf(" OFFSET %d", filter.Offset)
		}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	return runs, rows.Err()
}

// Entries returns the log of a run in order.
func (s *Store) Entries(ctx context.Context, runID string) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, run_id, seq, timestamp, level, title, message
		FROM run_entries WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return nil, fmt.Errorf("querying run entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e         Entry
			ts, level string
		)
		if err := rows.Scan(&e.ID, &e.RunID, &e.Seq, &ts, &level, &e.Title, &e.Message); err != nil {
			return nil, err
		}
		e.Time = parseTime(ts)
		e.Level = batch.Level(level)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// DeleteBefore removes runs started before the given time, with their
// entries. Returns the number of deleted runs.
func (s *Store) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM runs WHERE started_at < ? AND status != ?",
		formatTime(before), string(batch.StatusRunning),
	)
	if err != nil {
		return 0, fmt.Errorf("deleting old runs: %w", err)
	}
	return res.RowsAffected()
}

// scanner is implemented by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (*Run, error) {
	var (
		r                       Run
		action, status, jobJSON string
		started                 string
		finished                sql.NullString
	)
	err := sc.Scan(
		&r.ID, &action, &r.User, &r.Wiki, &status, &jobJSON,
		&r.Summary.Queued, &r.Summary.Attempted, &r.Summary.Succeeded,
		&r.Summary.Failed, &r.Summary.Skipped, &started, &finished,
	)
	if err != nil {
		return nil, err
	}

	r.Action = batch.Action(action)
	r.Status = batch.Status(status)
	r.StartedAt = parseTime(started)
	if finished.Valid {
		t := parseTime(finished.String)
		r.FinishedAt = &t
	}
	if err := json.Unmarshal([]byte(jobJSON), &r.Job); err != nil {
		r.Job = batch.Job{Action: r.Action}
	}
	return &r, nil
}
