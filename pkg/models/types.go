package models

import (
	"time"
)

// ==================== Login Types ====================

// LoginAttempt tracks the state of one iteration of the login retry loop.
// The attempt counter increases monotonically and has no upper bound; the
// loop only terminates on success or on caller-side cancellation.
type LoginAttempt struct {
	Attempt   int    `json:"attempt"`
	LastError string `json:"last_error,omitempty"`
	Succeeded bool   `json:"succeeded"`
}

// ==================== Check-in Types ====================

// StepName identifies a step of the check-in sequence.
type StepName string

const (
	StepNavigate StepName = "navigate"
	StepExpand   StepName = "expand"
	StepLocate   StepName = "locate_submit"
	StepSubmit   StepName = "submit"
)

// StepResult records the best-effort outcome of one check-in step.
type StepResult struct {
	Step      StepName `json:"step"`
	Completed bool     `json:"completed"`
	Message   string   `json:"message,omitempty"`
}

// CheckinReport is the result of the check-in sequence. SubmitClicked is the
// authoritative success signal; SuccessIndicator is a heuristic probe result
// recorded for diagnostics only and never changes the outcome.
type CheckinReport struct {
	SubmitClicked    bool         `json:"submit_clicked"`
	SuccessIndicator string       `json:"success_indicator,omitempty"`
	Steps            []StepResult `json:"steps"`
}

// ==================== Run Types ====================

// RunStatus represents the status of a check-in run.
type RunStatus string

const (
	StatusPending  RunStatus = "pending"
	StatusRunning  RunStatus = "running"
	StatusSuccess  RunStatus = "success"
	StatusFailed   RunStatus = "failed"
	StatusCanceled RunStatus = "canceled"
)

// CheckinRun represents a single persisted execution of the check-in flow.
type CheckinRun struct {
	ID                 string     `json:"id" db:"id"`
	Account            string     `json:"account" db:"account"`
	Status             RunStatus  `json:"status" db:"status"`
	LoginAttempts      int        `json:"login_attempts" db:"login_attempts"`
	SubmitClicked      bool       `json:"submit_clicked" db:"submit_clicked"`
	TemporalRunID      string     `json:"temporal_run_id" db:"temporal_run_id"`
	TemporalWorkflowID string     `json:"temporal_workflow_id" db:"temporal_workflow_id"`
	ScreenshotPath     string     `json:"screenshot_path,omitempty" db:"screenshot_path"`
	ErrorMessage       string     `json:"error_message,omitempty" db:"error_message"`
	StartedAt          *time.Time `json:"started_at" db:"started_at"`
	CompletedAt        *time.Time `json:"completed_at" db:"completed_at"`
	CreatedAt          time.Time  `json:"created_at" db:"created_at"`
}

// ==================== Workflow Types ====================

// CheckinInput is the input for executing a check-in workflow.
type CheckinInput struct {
	RunID    string `json:"run_id"`
	Account  string `json:"account"`
	Password string `json:"password"`
	LoginURL string `json:"login_url,omitempty"`
	Headless bool   `json:"headless"`
	Timeout  int    `json:"timeout_seconds"`
}

// CheckinResult is the result of a check-in workflow execution.
type CheckinResult struct {
	RunID         string         `json:"run_id"`
	Status        RunStatus      `json:"status"`
	LoginAttempts int            `json:"login_attempts"`
	Report        *CheckinReport `json:"report,omitempty"`
	TotalDuration int64          `json:"total_duration_ms"`
	ErrorMessage  string         `json:"error_message,omitempty"`
}

// ==================== API Request/Response Types ====================

// ExecuteRequest represents a request to trigger a check-in run. Account and
// Password are optional: when absent the server falls back to its configured
// credentials.
type ExecuteRequest struct {
	Account  string `json:"account,omitempty"`
	Password string `json:"password,omitempty"`
	LoginURL string `json:"login_url,omitempty"`
	Headless bool   `json:"headless"`
	Timeout  int    `json:"timeout_seconds"`
}

// ==================== WebSocket Message Types ====================

// WSMessage represents a WebSocket message for real-time updates.
type WSMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// RunStatusUpdate represents a status update for a running check-in.
type RunStatusUpdate struct {
	RunID         string    `json:"run_id"`
	Status        RunStatus `json:"status"`
	LoginAttempts int       `json:"login_attempts"`
	Message       string    `json:"message,omitempty"`
}
