package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/SANDAG/ABM-sub008/internal/models"
)

// ErrRunNotFound is returned when no run has the requested id.
var ErrRunNotFound = errors.New("run not found")

// RunRepository handles the run lifecycle
type RunRepository struct {
	db *sql.DB
}

// NewRunRepository creates a new run repository
func NewRunRepository(db *sql.DB) *RunRepository {
	return &RunRepository{db: db}
}

// Create inserts a pending run with a fresh id
func (r *RunRepository) Create(kind string, total int64) (*models.Run, error) {
	run := &models.Run{
		ID:        uuid.NewString(),
		Kind:      kind,
		Status:    models.RunStatusPending,
		Total:     total,
		CreatedAt: time.Now().Unix(),
	}

	query := `
		INSERT INTO runs (id, kind, status, total, created_at)
		VALUES (?, ?, ?, ?, ?)
	`
	if _, err := r.db.Exec(query, run.ID, run.Kind, run.Status, run.Total, run.CreatedAt); err != nil {
		return nil, fmt.Errorf("failed to create run: %w", err)
	}

	return run, nil
}

// GetByID retrieves a run by id
func (r *RunRepository) GetByID(id string) (*models.Run, error) {
	query := `
		SELECT id, kind, status, total, processed, failed,
			   COALESCE(error, ''), created_at,
			   COALESCE(started_at, 0), COALESCE(completed_at, 0)
		FROM runs
		WHERE id = ?
	`

	run := &models.Run{}
	err := r.db.QueryRow(query, id).Scan(
		&run.ID,
		&run.Kind,
		&run.Status,
		&run.Total,
		&run.Processed,
		&run.Failed,
		&run.Error,
		&run.CreatedAt,
		&run.StartedAt,
		&run.CompletedAt,
	)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	return run, nil
}

// List returns runs, newest first, optionally filtered by kind
func (r *RunRepository) List(kind string, limit int) ([]*models.Run, error) {
	query := `
		SELECT id, kind, status, total, processed, failed,
			   COALESCE(error, ''), created_at,
			   COALESCE(started_at, 0), COALESCE(completed_at, 0)
		FROM runs
		WHERE 1=1
	`

	args := []interface{}{}
	if kind != "" {
		query += " AND kind = ?"
		args = append(args, kind)
	}
	query += " ORDER BY created_at DESC, id LIMIT ?"
	args = append(args, limit)

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []*models.Run
	for rows.Next() {
		run := &models.Run{}
		err := rows.Scan(
			&run.ID,
			&run.Kind,
			&run.Status,
			&run.Total,
			&run.Processed,
			&run.Failed,
			&run.Error,
			&run.CreatedAt,
			&run.StartedAt,
			&run.CompletedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}

	return runs, rows.Err()
}

// MarkRunning marks a run as started
func (r *RunRepository) MarkRunning(id string) error {
	query := `
		UPDATE runs
		SET status = ?, started_at = ?
		WHERE id = ?
	`
	if _, err := r.db.Exec(query, models.RunStatusRunning, time.Now().Unix(), id); err != nil {
		return fmt.Errorf("failed to mark run as running: %w", err)
	}
	return nil
}

// UpdateProgress records processed and failed counts
func (r *RunRepository) UpdateProgress(id string, processed, failed int64) error {
	query := `
		UPDATE runs
		SET processed = ?, failed = ?
		WHERE id = ?
	`
	if _, err := r.db.Exec(query, processed, failed, id); err != nil {
		return fmt.Errorf("failed to update run progress: %w", err)
	}
	return nil
}

// MarkCompleted marks a run as completed
func (r *RunRepository) MarkCompleted(id string, processed, failed int64) error {
	query := `
		UPDATE runs
		SET status = ?, processed = ?, failed = ?, completed_at = ?
		WHERE id = ?
	`
	if _, err := r.db.Exec(query, models.RunStatusCompleted, processed, failed, time.Now().Unix(), id); err != nil {
		return fmt.Errorf("failed to mark run as completed: %w", err)
	}
	return nil
}

// MarkFailed marks a run as failed
func (r *RunRepository) MarkFailed(id string, errorMessage string) error {
	query := `
		UPDATE runs
		SET status = ?, error = ?, completed_at = ?
		WHERE id = ?
	`
	if _, err := r.db.Exec(query, models.RunStatusFailed, errorMessage, time.Now().Unix(), id); err != nil {
		return fmt.Errorf("failed to mark run as failed: %w", err)
	}
	return nil
}
