package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"squeeze/internal/config"
)

// ErrNotFound reports a write against a job row that no longer exists.
var ErrNotFound = errors.New("job not found")

// Store manages queue persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

const jobColumns = `id, source_name, display_title, source_path,
    source_size_bytes, result_size_bytes, source_size_label, result_size_label,
    status, error_message, source_handle, result_handle,
    progress_message, progress_percent, created_at, updated_at`

// Open initializes or connects to the queue database and applies the schema.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := filepath.Join(cfg.Paths.LogDir, "queue.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// NewJob inserts a pending job for an accepted submission.
func (s *Store) NewJob(ctx context.Context, job *Job) (*Job, error) {
	if job == nil {
		return nil, errors.New("job is nil")
	}
	if strings.TrimSpace(job.SourceName) == "" {
		return nil, errors.New("source name required")
	}
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)

	res, err := s.db.ExecContext(
		ctx,
		`INSERT INTO jobs (
            source_name, display_title, source_path,
            source_size_bytes, source_size_label, status,
            source_handle, progress_percent, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		job.SourceName,
		nullableString(job.DisplayTitle),
		nullableString(job.SourcePath),
		job.SourceSizeBytes,
		nullableString(job.SourceSizeLabel),
		StatusPending,
		nullableString(job.SourceHandle),
		0.0,
		timestamp,
		timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert job: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	return s.GetByID(ctx, id)
}

// GetByID fetches a job by identifier.
func (s *Store) GetByID(ctx context.Context, id int64) (*Job, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}

// Update persists changes to an existing job. All fields are written in a
// single statement so observers never see a partially applied transition.
func (s *Store) Update(ctx context.Context, job *Job) error {
	if job == nil {
		return errors.New("job is nil")
	}
	job.UpdatedAt = time.Now().UTC()
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE jobs
         SET source_name = ?, display_title = ?, source_path = ?,
             source_size_bytes = ?, result_size_bytes = ?,
             source_size_label = ?, result_size_label = ?,
             status = ?, error_message = ?, source_handle = ?, result_handle = ?,
             progress_message = ?, progress_percent = ?, updated_at = ?
         WHERE id = ?`,
		job.SourceName,
		nullableString(job.DisplayTitle),
		nullableString(job.SourcePath),
		job.SourceSizeBytes,
		job.ResultSizeBytes,
		nullableString(job.SourceSizeLabel),
		nullableString(job.ResultSizeLabel),
		job.Status,
		nullableString(job.ErrorMessage),
		nullableString(job.SourceHandle),
		nullableString(job.ResultHandle),
		nullableString(job.ProgressMessage),
		job.ProgressPercent,
		job.UpdatedAt.Format(time.RFC3339Nano),
		job.ID,
	)
	if err != nil {
		return fmt.Errorf("update job: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// NextPending returns the oldest pending job, or nil when none wait.
// Insertion order is the FIFO tie-break.
func (s *Store) NextPending(ctx context.Context) (*Job, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT `+jobColumns+` FROM jobs WHERE status = ? ORDER BY id LIMIT 1`,
		StatusPending,
	)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("next pending: %w", err)
	}
	return job, nil
}

// List returns jobs filtered by status set (or all jobs when no status is
// provided), in insertion order.
func (s *Store) List(ctx context.Context, statuses ...Status) ([]*Job, error) {
	var (
		rows *sql.Rows
		err  error
	)

	baseQuery := `SELECT ` + jobColumns + ` FROM jobs`
	orderClause := ` ORDER BY id`

	if len(statuses) == 0 {
		rows, err = s.db.QueryContext(ctx, baseQuery+orderClause)
	} else {
		placeholders := makePlaceholders(len(statuses))
		args := make([]any, len(statuses))
		for i, status := range statuses {
			args[i] = status
		}
		query := baseQuery + ` WHERE status IN (` + placeholders + `)` + orderClause
		rows, err = s.db.QueryContext(ctx, query, args...)
	}
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// Stats returns job counts keyed by status.
func (s *Store) Stats(ctx context.Context) (map[Status]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM jobs GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("query stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[Status]int, len(allStatuses))
	for rows.Next() {
		var status Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scan stats: %w", err)
		}
		stats[status] = count
	}
	return stats, rows.Err()
}

// ActiveCount returns the number of jobs currently occupying the backend.
// The sequencer invariant keeps this at zero or one.
func (s *Store) ActiveCount(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM jobs WHERE status = ?`, StatusActive).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count active: %w", err)
	}
	return count, nil
}

// Remove deletes a job by identifier.
func (s *Store) Remove(ctx context.Context, id int64) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM jobs WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete job: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// Clear removes every job and returns the removed rows. Snapshot and delete
// run in one transaction so a job completing concurrently cannot slip a
// handle in between the read and the delete.
func (s *Store) Clear(ctx context.Context) ([]*Job, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin clear: %w", err)
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx, `SELECT `+jobColumns+` FROM jobs ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("snapshot jobs: %w", err)
	}
	var jobs []*Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("snapshot jobs: %w", err)
	}
	rows.Close()

	if _, err := tx.ExecContext(ctx, `DELETE FROM jobs`); err != nil {
		return nil, fmt.Errorf("clear jobs: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit clear: %w", err)
	}
	return jobs, nil
}

// RetryFailed moves failed jobs back to pending for a fresh attempt. Error
// and result fields are cleared; result handles must be released by the
// caller before retrying. When no ids are given every failed job is retried.
func (s *Store) RetryFailed(ctx context.Context, ids ...int64) (int64, error) {
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	setClause := `SET status = ?, error_message = NULL, result_size_bytes = 0,
            result_size_label = NULL, result_handle = NULL,
            progress_message = NULL, progress_percent = 0, updated_at = ?`

	if len(ids) == 0 {
		res, err := s.db.ExecContext(
			ctx,
			`UPDATE jobs `+setClause+` WHERE status = ?`,
			StatusPending, timestamp, StatusFailed,
		)
		if err != nil {
			return 0, fmt.Errorf("retry failed jobs: %w", err)
		}
		return res.RowsAffected()
	}

	placeholders := makePlaceholders(len(ids))
	args := make([]any, 0, len(ids)+3)
	args = append(args, StatusPending, timestamp, StatusFailed)
	for _, id := range ids {
		args = append(args, id)
	}
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE jobs `+setClause+` WHERE status = ? AND id IN (`+placeholders+`)`,
		args...,
	)
	if err != nil {
		return 0, fmt.Errorf("retry selected jobs: %w", err)
	}
	return res.RowsAffected()
}

// FailActive marks any active job as failed with the given reason. Used at
// daemon shutdown so the occupant slot is never left permanently held.
func (s *Store) FailActive(ctx context.Context, reason string) (int64, error) {
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE jobs
         SET status = ?, error_message = ?, result_size_bytes = 0,
             result_size_label = NULL, result_handle = NULL,
             progress_message = ?, progress_percent = 0, updated_at = ?
         WHERE status = ?`,
		StatusFailed,
		reason,
		reason,
		time.Now().UTC().Format(time.RFC3339Nano),
		StatusActive,
	)
	if err != nil {
		return 0, fmt.Errorf("fail active jobs: %w", err)
	}
	return res.RowsAffected()
}

func scanJob(row interface{ Scan(dest ...any) error }) (*Job, error) {
	var (
		job             Job
		displayTitle    sql.NullString
		sourcePath      sql.NullString
		sourceLabel     sql.NullString
		resultLabel     sql.NullString
		errorMessage    sql.NullString
		sourceHandle    sql.NullString
		resultHandle    sql.NullString
		progressMessage sql.NullString
		createdAt       string
		updatedAt       string
	)

	err := row.Scan(
		&job.ID,
		&job.SourceName,
		&displayTitle,
		&sourcePath,
		&job.SourceSizeBytes,
		&job.ResultSizeBytes,
		&sourceLabel,
		&resultLabel,
		&job.Status,
		&errorMessage,
		&sourceHandle,
		&resultHandle,
		&progressMessage,
		&job.ProgressPercent,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	job.DisplayTitle = displayTitle.String
	job.SourcePath = sourcePath.String
	job.SourceSizeLabel = sourceLabel.String
	job.ResultSizeLabel = resultLabel.String
	job.ErrorMessage = errorMessage.String
	job.SourceHandle = sourceHandle.String
	job.ResultHandle = resultHandle.String
	job.ProgressMessage = progressMessage.String
	if job.CreatedAt, err = parseTimestamp(createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	if job.UpdatedAt, err = parseTimestamp(updatedAt); err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}
	return &job, nil
}

func parseTimestamp(value string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, value)
}

func nullableString(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}

func makePlaceholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat("?, ", n-1) + "?"
}
