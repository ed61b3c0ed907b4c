package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"go.temporal.io/sdk/client"

	"dev/bravebird/auto-checkin-go/pkg/database"
	"dev/bravebird/auto-checkin-go/pkg/models"
)

const TaskQueue = "auto-checkin"

// Defaults are the server-side fallbacks for trigger requests that omit
// credentials or the login address.
type Defaults struct {
	Account       string
	Password      string
	LoginURL      string
	ScreenshotDir string
}

// Handlers contains API handlers
type Handlers struct {
	db             *database.DB
	temporalClient client.Client
	defaults       Defaults
	upgrader       websocket.Upgrader
}

// NewHandlers creates new API handlers
func NewHandlers(db *database.DB, temporalClient client.Client, defaults Defaults) *Handlers {
	return &Handlers{
		db:             db,
		temporalClient: temporalClient,
		defaults:       defaults,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// ==================== Run Handlers ====================

// TriggerCheckin creates a run record and starts the check-in workflow
func (h *Handlers) TriggerCheckin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req models.ExecuteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	account := req.Account
	password := req.Password
	if account == "" {
		account = h.defaults.Account
		password = h.defaults.Password
	}
	if account == "" || password == "" {
		http.Error(w, "No credentials in request and none configured", http.StatusBadRequest)
		return
	}

	loginURL := req.LoginURL
	if loginURL == "" {
		loginURL = h.defaults.LoginURL
	}

	if h.db == nil {
		http.Error(w, "Database not available", http.StatusServiceUnavailable)
		return
	}

	// Create run record
	runID := uuid.New().String()
	run := &models.CheckinRun{
		ID:      runID,
		Account: account,
		Status:  models.StatusPending,
	}

	if err := h.db.CreateCheckinRun(ctx, run); err != nil {
		http.Error(w, "Failed to create run: "+err.Error(), http.StatusInternalServerError)
		return
	}

	// Start Temporal workflow
	input := models.CheckinInput{
		RunID:    runID,
		Account:  account,
		Password: password,
		LoginURL: loginURL,
		Headless: req.Headless,
		Timeout:  req.Timeout,
	}

	workflowOptions := client.StartWorkflowOptions{
		ID:        fmt.Sprintf("auto-checkin-%s", runID),
		TaskQueue: TaskQueue,
	}

	we, err := h.temporalClient.ExecuteWorkflow(ctx, workflowOptions, "CheckinWorkflow", input)
	if err != nil {
		h.db.UpdateCheckinRunStatus(ctx, runID, models.StatusFailed, err.Error())
		http.Error(w, "Failed to start workflow: "+err.Error(), http.StatusInternalServerError)
		return
	}

	// Update run with Temporal IDs
	run.TemporalWorkflowID = we.GetID()
	run.TemporalRunID = we.GetRunID()
	run.Status = models.StatusRunning
	now := time.Now()
	run.StartedAt = &now

	h.db.CreateCheckinRun(ctx, run) // Update with Temporal IDs

	// Persist the final result when the workflow completes, so the run record
	// outlives Temporal's retention window.
	go func() {
		var result models.CheckinResult
		if err := we.Get(context.Background(), &result); err != nil {
			h.db.UpdateCheckinRunStatus(context.Background(), runID, models.StatusFailed, err.Error())
			return
		}
		if err := h.db.CompleteCheckinRun(context.Background(), runID, result); err != nil {
			log.Printf("failed to persist result for run %s: %v", runID, err)
		}
	}()

	respondJSON(w, map[string]interface{}{
		"run_id":               runID,
		"temporal_workflow_id": we.GetID(),
		"temporal_run_id":      we.GetRunID(),
		"status":               "running",
	})
}

// ListRuns lists recent check-in runs
func (h *Handlers) ListRuns(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if h.db == nil {
		http.Error(w, "Database not available", http.StatusServiceUnavailable)
		return
	}

	runs, err := h.db.ListCheckinRuns(ctx, 50)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	respondJSON(w, runs)
}

// GetRun retrieves a check-in run
func (h *Handlers) GetRun(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	vars := mux.Vars(r)
	id := vars["id"]

	if h.db == nil {
		http.Error(w, "Database not available", http.StatusServiceUnavailable)
		return
	}

	run, err := h.db.GetCheckinRun(ctx, id)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if run == nil {
		http.Error(w, "Run not found", http.StatusNotFound)
		return
	}

	respondJSON(w, run)
}

// CancelRun cancels a running check-in
func (h *Handlers) CancelRun(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	vars := mux.Vars(r)
	id := vars["id"]

	if h.db == nil {
		http.Error(w, "Database not available", http.StatusServiceUnavailable)
		return
	}

	run, err := h.db.GetCheckinRun(ctx, id)
	if err != nil || run == nil {
		http.Error(w, "Run not found", http.StatusNotFound)
		return
	}

	// Cancel Temporal workflow; this cancels the activity context and stops
	// the unbounded login loop.
	if run.TemporalWorkflowID != "" {
		err = h.temporalClient.CancelWorkflow(ctx, run.TemporalWorkflowID, run.TemporalRunID)
		if err != nil {
			http.Error(w, "Failed to cancel workflow: "+err.Error(), http.StatusInternalServerError)
			return
		}
	}

	h.db.UpdateCheckinRunStatus(ctx, id, models.StatusCanceled, "Cancelled by user")

	respondJSON(w, map[string]string{"status": "canceled"})
}

// StreamRunUpdates streams run updates via WebSocket
func (h *Handlers) StreamRunUpdates(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	runID := vars["id"]

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	ctx := r.Context()

	// Poll for updates
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	lastStatus := ""
	lastAttempts := -1

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			var status models.RunStatus
			var attempts int
			var message string

			// Try to query the Temporal workflow directly for real-time
			// progress, including the live login attempt counter.
			if h.temporalClient != nil {
				queryResp, err := h.temporalClient.QueryWorkflow(ctx, fmt.Sprintf("auto-checkin-%s", runID), "", "getProgress")
				if err == nil {
					var result models.CheckinResult
					if queryResp.Get(&result) == nil {
						status = result.Status
						attempts = result.LoginAttempts
						message = result.ErrorMessage
					}
				}
			}

			// Fall back to DB if the Temporal query didn't work
			if status == "" && h.db != nil {
				run, err := h.db.GetCheckinRun(ctx, runID)
				if err != nil || run == nil {
					continue
				}
				status = run.Status
				attempts = run.LoginAttempts
				message = run.ErrorMessage
			}

			// Send update if status or attempt count changed
			if string(status) != lastStatus || attempts != lastAttempts {
				msg := models.WSMessage{
					Type: "run_update",
					Payload: models.RunStatusUpdate{
						RunID:         runID,
						Status:        status,
						LoginAttempts: attempts,
						Message:       message,
					},
				}
				conn.WriteJSON(msg)

				lastStatus = string(status)
				lastAttempts = attempts

				// Close if completed
				if status == models.StatusSuccess || status == models.StatusFailed || status == models.StatusCanceled {
					return
				}
			}
		}
	}
}

// ==================== Screenshot Handlers ====================

// ServeScreenshot serves a diagnostic screenshot file
func (h *Handlers) ServeScreenshot(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	filename := vars["filename"]

	// Security: Only allow files from the screenshots directory
	screenshotDir := h.defaults.ScreenshotDir
	if screenshotDir == "" {
		screenshotDir = "/tmp/screenshots"
	}

	filePath := filepath.Join(screenshotDir, filepath.Base(filename))

	// Check file exists
	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		http.Error(w, "Screenshot not found", http.StatusNotFound)
		return
	}

	// Serve the file
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	http.ServeFile(w, r, filePath)
}

// ==================== Helpers ====================

func respondJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}
