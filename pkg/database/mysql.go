package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"dev/bravebird/auto-checkin-go/pkg/models"

	_ "github.com/go-sql-driver/mysql"
)

// DB represents the database connection
type DB struct {
	conn *sql.DB
}

// New creates a new database connection
func New(dsn string) (*DB, error) {
	conn, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	conn.SetMaxOpenConns(25)
	conn.SetMaxIdleConns(5)
	conn.SetConnMaxLifetime(5 * time.Minute)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := conn.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{conn: conn}, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

// ==================== Check-in Runs ====================

// CreateCheckinRun inserts a new run record.
func (db *DB) CreateCheckinRun(ctx context.Context, run *models.CheckinRun) error {
	query := `
		INSERT INTO checkin_runs (id, account, status, login_attempts, submit_clicked,
		                          temporal_run_id, temporal_workflow_id, screenshot_path,
		                          error_message, started_at, completed_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
		    status = VALUES(status),
		    temporal_run_id = VALUES(temporal_run_id),
		    temporal_workflow_id = VALUES(temporal_workflow_id),
		    started_at = VALUES(started_at)
	`

	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now()
	}

	_, err := db.conn.ExecContext(ctx, query,
		run.ID,
		run.Account,
		run.Status,
		run.LoginAttempts,
		run.SubmitClicked,
		run.TemporalRunID,
		run.TemporalWorkflowID,
		run.ScreenshotPath,
		run.ErrorMessage,
		run.StartedAt,
		run.CompletedAt,
		run.CreatedAt,
	)

	return err
}

// GetCheckinRun retrieves a run by ID
func (db *DB) GetCheckinRun(ctx context.Context, id string) (*models.CheckinRun, error) {
	query := `
		SELECT id, account, status, login_attempts, submit_clicked,
		       temporal_run_id, temporal_workflow_id, screenshot_path,
		       error_message, started_at, completed_at, created_at
		FROM checkin_runs
		WHERE id = ?
	`

	var run models.CheckinRun
	err := db.conn.QueryRowContext(ctx, query, id).Scan(
		&run.ID,
		&run.Account,
		&run.Status,
		&run.LoginAttempts,
		&run.SubmitClicked,
		&run.TemporalRunID,
		&run.TemporalWorkflowID,
		&run.ScreenshotPath,
		&run.ErrorMessage,
		&run.StartedAt,
		&run.CompletedAt,
		&run.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	return &run, nil
}

// ListCheckinRuns retrieves runs, most recent first
func (db *DB) ListCheckinRuns(ctx context.Context, limit int) ([]models.CheckinRun, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, account, status, login_attempts, submit_clicked,
		       temporal_run_id, temporal_workflow_id, screenshot_path,
		       error_message, started_at, completed_at, created_at
		FROM checkin_runs
		ORDER BY created_at DESC
		LIMIT ?
	`

	rows, err := db.conn.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []models.CheckinRun
	for rows.Next() {
		var run models.CheckinRun
		err := rows.Scan(
			&run.ID,
			&run.Account,
			&run.Status,
			&run.LoginAttempts,
			&run.SubmitClicked,
			&run.TemporalRunID,
			&run.TemporalWorkflowID,
			&run.ScreenshotPath,
			&run.ErrorMessage,
			&run.StartedAt,
			&run.CompletedAt,
			&run.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}

	return runs, rows.Err()
}

// UpdateCheckinRunStatus updates the status and error message of a run
func (db *DB) UpdateCheckinRunStatus(ctx context.Context, id string, status models.RunStatus, errorMsg string) error {
	query := `UPDATE checkin_runs SET status = ?, error_message = ? WHERE id = ?`
	_, err := db.conn.ExecContext(ctx, query, status, errorMsg, id)
	return err
}

// CompleteCheckinRun records the final result of a run
func (db *DB) CompleteCheckinRun(ctx context.Context, id string, result models.CheckinResult) error {
	query := `
		UPDATE checkin_runs
		SET status = ?, login_attempts = ?, submit_clicked = ?, error_message = ?, completed_at = ?
		WHERE id = ?
	`

	submitClicked := false
	if result.Report != nil {
		submitClicked = result.Report.SubmitClicked
	}

	now := time.Now()
	_, err := db.conn.ExecContext(ctx, query,
		result.Status,
		result.LoginAttempts,
		submitClicked,
		result.ErrorMessage,
		now,
		id,
	)
	return err
}
