// Package repository stores job records in the relational store.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/ncobase/docport/export/structs"
	"github.com/ncobase/docport/utils/nanoid"
)

// ErrDuplicate is returned when creating a job whose id already exists.
var ErrDuplicate = errors.New("job id already exists")

// DownloadCodeLength is the length of generated download codes.
const DownloadCodeLength = 8

// codeAllocationAttempts bounds the collision retry loop.
const codeAllocationAttempts = 32

// JobRepository provides atomic access to individual job records.
type JobRepository interface {
	Create(ctx context.Context, job *structs.Job) error
	Get(ctx context.Context, id string) (*structs.Job, error)
	Update(ctx context.Context, id string, fields map[string]any) error
	Delete(ctx context.Context, id string) (resultPath string, found bool, err error)
	Finalize(ctx context.Context, id string, resultPath string, expiresAt *time.Time) (code string, err error)
	Stats(ctx context.Context) (map[structs.JobStatus]int, error)
}

type jobRepository struct {
	db *sql.DB
}

// New creates a job repository over an already-migrated database.
func New(db *sql.DB) JobRepository {
	return &jobRepository{db: db}
}

// updatableColumns whitelists fields accepted by Update.
var updatableColumns = map[string]bool{
	"status":      true,
	"progress":    true,
	"result_path": true,
	"expires_at":  true,
	"error":       true,
}

func (r *jobRepository) Create(ctx context.Context, job *structs.Job) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO jobs (
			id, status, progress, created_at, updated_at, session_id, user_id,
			payload, options, result_path, download_code, expires_at, error
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		job.ID,
		string(job.Status),
		job.Progress,
		formatTime(&job.CreatedAt),
		formatTime(&job.UpdatedAt),
		job.SessionID,
		nullable(job.UserID),
		job.Payload,
		job.Options,
		nullable(job.ResultPath),
		nullable(job.DownloadCode),
		formatTime(job.ExpiresAt),
		nullable(job.Error),
	)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint {
			return ErrDuplicate
		}
		return fmt.Errorf("repository: failed to create job: %w", err)
	}
	return nil
}

// Get returns the job or nil when the id is unknown. A missing id is not an
// error.
func (r *jobRepository) Get(ctx context.Context, id string) (*structs.Job, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, status, progress, created_at, updated_at, session_id, user_id,
		       payload, options, result_path, download_code, expires_at, error
		FROM jobs WHERE id = ?
	`, id)

	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("repository: failed to read job: %w", err)
	}
	return job, nil
}

// Update atomically merges the given fields into the record. It always sets
// updated_at and no-ops when the record is absent, tolerating races with
// deletion.
func (r *jobRepository) Update(ctx context.Context, id string, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}

	columns := make([]string, 0, len(fields))
	for col := range fields {
		if !updatableColumns[col] {
			return fmt.Errorf("repository: column %q is not updatable", col)
		}
		columns = append(columns, col)
	}
	sort.Strings(columns)

	query := "UPDATE jobs SET updated_at = ?"
	args := []any{formatNow()}
	for _, col := range columns {
		query += ", " + col + " = ?"
		value := fields[col]
		if t, ok := value.(*time.Time); ok {
			value = formatTime(t)
		}
		if s, ok := value.(structs.JobStatus); ok {
			value = string(s)
		}
		args = append(args, value)
	}
	query += " WHERE id = ?"
	args = append(args, id)

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("repository: failed to update job: %w", err)
	}
	return nil
}

// Delete removes the record and reports the previously stored result path so
// the caller can remove the artifact file.
func (r *jobRepository) Delete(ctx context.Context, id string) (string, bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return "", false, fmt.Errorf("repository: failed to begin delete: %w", err)
	}
	defer tx.Rollback()

	var resultPath sql.NullString
	err = tx.QueryRowContext(ctx, `SELECT result_path FROM jobs WHERE id = ?`, id).Scan(&resultPath)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("repository: failed to read job for delete: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM jobs WHERE id = ?`, id); err != nil {
		return "", false, fmt.Errorf("repository: failed to delete job: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return "", false, fmt.Errorf("repository: failed to commit delete: %w", err)
	}

	return resultPath.String, true, nil
}

// Finalize marks the job complete in a single transaction. The download code
// is allocated only when the job does not already carry one; once assigned it
// is never reassigned, even if the job is finalized again.
func (r *jobRepository) Finalize(ctx context.Context, id string, resultPath string, expiresAt *time.Time) (string, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("repository: failed to begin finalize: %w", err)
	}
	defer tx.Rollback()

	var code sql.NullString
	err = tx.QueryRowContext(ctx, `SELECT download_code FROM jobs WHERE id = ?`, id).Scan(&code)
	if errors.Is(err, sql.ErrNoRows) {
		// Deleted concurrently; nothing to finalize.
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("repository: failed to read job for finalize: %w", err)
	}

	downloadCode := code.String
	if downloadCode == "" {
		downloadCode, err = allocateCode(ctx, tx)
		if err != nil {
			return "", err
		}
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE jobs
		SET status = ?, progress = 100, result_path = ?, download_code = ?, expires_at = ?, updated_at = ?
		WHERE id = ?
	`,
		string(structs.StatusComplete),
		resultPath,
		downloadCode,
		formatTime(expiresAt),
		formatNow(),
		id,
	); err != nil {
		return "", fmt.Errorf("repository: failed to finalize job: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("repository: failed to commit finalize: %w", err)
	}
	return downloadCode, nil
}

// allocateCode produces a short random token and verifies, within the same
// transaction, that no existing record holds it.
func allocateCode(ctx context.Context, tx *sql.Tx) (string, error) {
	for i := 0; i < codeAllocationAttempts; i++ {
		code := nanoid.Code(DownloadCodeLength)

		var count int
		if err := tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM jobs WHERE download_code = ?`, code,
		).Scan(&count); err != nil {
			return "", fmt.Errorf("repository: failed to check download code: %w", err)
		}
		if count == 0 {
			return code, nil
		}
	}
	return "", errors.New("repository: failed to allocate a unique download code")
}

func (r *jobRepository) Stats(ctx context.Context) (map[structs.JobStatus]int, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM jobs GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to read stats: %w", err)
	}
	defer rows.Close()

	stats := map[structs.JobStatus]int{
		structs.StatusPending:  0,
		structs.StatusRunning:  0,
		structs.StatusComplete: 0,
		structs.StatusFailed:   0,
	}
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats[structs.JobStatus(status)] = count
	}
	return stats, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanJob(row scanner) (*structs.Job, error) {
	var j structs.Job
	var status, createdAt, updatedAt string
	var userID, resultPath, downloadCode, jobErr, expiresAt sql.NullString

	if err := row.Scan(
		&j.ID, &status, &j.Progress, &createdAt, &updatedAt, &j.SessionID, &userID,
		&j.Payload, &j.Options, &resultPath, &downloadCode, &expiresAt, &jobErr,
	); err != nil {
		return nil, err
	}

	j.Status = structs.JobStatus(status)
	j.UserID = userID.String
	j.ResultPath = resultPath.String
	j.DownloadCode = downloadCode.String
	j.Error = jobErr.String

	var err error
	if j.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return nil, fmt.Errorf("invalid created_at: %w", err)
	}
	if j.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt); err != nil {
		return nil, fmt.Errorf("invalid updated_at: %w", err)
	}
	if expiresAt.Valid && expiresAt.String != "" {
		t, err := time.Parse(time.RFC3339Nano, expiresAt.String)
		if err != nil {
			return nil, fmt.Errorf("invalid expires_at: %w", err)
		}
		j.ExpiresAt = &t
	}

	return &j, nil
}

func formatTime(value *time.Time) any {
	if value == nil || value.IsZero() {
		return nil
	}
	return value.UTC().Format(time.RFC3339Nano)
}

func formatNow() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}

func nullable(value string) any {
	if value == "" {
		return nil
	}
	return value
}
