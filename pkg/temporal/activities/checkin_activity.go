package activities

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.temporal.io/sdk/activity"

	"dev/bravebird/auto-checkin-go/pkg/browser"
	"dev/bravebird/auto-checkin-go/pkg/captcha"
	"dev/bravebird/auto-checkin-go/pkg/checkin"
	"dev/bravebird/auto-checkin-go/pkg/models"
	"dev/bravebird/auto-checkin-go/pkg/notify"
	"dev/bravebird/auto-checkin-go/pkg/temporal/workflows"
)

// browserPool manages active browser sessions across activities
var browserPool = struct {
	sync.RWMutex
	sessions map[string]*sessionData
}{
	sessions: make(map[string]*sessionData),
}

type sessionData struct {
	session   *browser.Session
	runner    *checkin.Runner
	createdAt time.Time
}

// Activities holds shared dependencies for check-in activities.
type Activities struct {
	BrowserConfig browser.Config
	RunnerConfig  checkin.Config
	SolverConfig  captcha.Config
	NotifyConfig  notify.Config
}

// NewActivities creates the activity set.
func NewActivities(browserCfg browser.Config, runnerCfg checkin.Config, solverCfg captcha.Config, notifyCfg notify.Config) *Activities {
	return &Activities{
		BrowserConfig: browserCfg,
		RunnerConfig:  runnerCfg,
		SolverConfig:  solverCfg,
		NotifyConfig:  notifyCfg,
	}
}

// InitializeBrowserActivity launches a browser session and registers it in
// the pool under a fresh session ID.
func (a *Activities) InitializeBrowserActivity(ctx context.Context, input workflows.BrowserInitInput) (workflows.BrowserSession, error) {
	logger := activity.GetLogger(ctx)
	logger.Info("Initializing browser session", "headless", input.Headless)

	cfg := a.BrowserConfig
	cfg.Headless = input.Headless

	session, err := browser.NewSession(cfg, log.Default())
	if err != nil {
		return workflows.BrowserSession{}, fmt.Errorf("failed to launch browser: %w", err)
	}

	sessionID := uuid.New().String()

	browserPool.Lock()
	browserPool.sessions[sessionID] = &sessionData{
		session:   session,
		createdAt: time.Now(),
	}
	browserPool.Unlock()

	logger.Info("Browser session initialized", "sessionID", sessionID)
	return workflows.BrowserSession{SessionID: sessionID}, nil
}

// LoginActivity runs the unbounded login retry loop. Each attempt is reported
// as a heartbeat so the workflow can observe progress; the activity
// StartToCloseTimeout cancels ctx and is the only bound on the loop.
func (a *Activities) LoginActivity(ctx context.Context, input workflows.LoginInput) (workflows.LoginOutput, error) {
	logger := activity.GetLogger(ctx)
	logger.Info("Starting login", "sessionID", input.SessionID, "account", input.Account)

	data, err := getSession(input.SessionID)
	if err != nil {
		return workflows.LoginOutput{}, err
	}

	cfg := a.RunnerConfig
	cfg.Username = input.Account
	cfg.Password = input.Password
	if input.LoginURL != "" {
		cfg.LoginURL = input.LoginURL
	}

	runner := checkin.NewRunner(data.session, captcha.NewHTTPSolver(a.SolverConfig), cfg, log.Default())
	runner.OnAttempt = func(att models.LoginAttempt) {
		activity.RecordHeartbeat(ctx, att)
	}

	browserPool.Lock()
	data.runner = runner
	browserPool.Unlock()

	attempts, err := runner.Login(ctx)
	if err != nil {
		return workflows.LoginOutput{Attempts: attempts}, fmt.Errorf("login failed after %d attempts: %w", attempts, err)
	}

	logger.Info("Login succeeded", "attempts", attempts)
	return workflows.LoginOutput{Attempts: attempts}, nil
}

// CheckinActivity runs the four-step check-in sequence on a logged-in
// session. A missing submit control is not an activity error: the report's
// SubmitClicked carries the outcome and diagnostics are already on disk.
func (a *Activities) CheckinActivity(ctx context.Context, sessionID string) (models.CheckinReport, error) {
	logger := activity.GetLogger(ctx)
	logger.Info("Starting check-in sequence", "sessionID", sessionID)

	data, err := getSession(sessionID)
	if err != nil {
		return models.CheckinReport{}, err
	}
	if data.runner == nil {
		return models.CheckinReport{}, fmt.Errorf("session %s has no logged-in runner", sessionID)
	}

	report, runErr := data.runner.Checkin(ctx)
	if runErr != nil && !errors.Is(runErr, checkin.ErrSubmitNotFound) {
		if report != nil {
			return *report, fmt.Errorf("check-in sequence failed: %w", runErr)
		}
		return models.CheckinReport{}, fmt.Errorf("check-in sequence failed: %w", runErr)
	}

	logger.Info("Check-in sequence finished", "submitClicked", report.SubmitClicked)
	return *report, nil
}

// TakeScreenshotActivity captures the current page for diagnostics.
func (a *Activities) TakeScreenshotActivity(ctx context.Context, input workflows.ScreenshotInput) (string, error) {
	logger := activity.GetLogger(ctx)

	data, err := getSession(input.SessionID)
	if err != nil {
		return "", err
	}

	path, err := data.session.Screenshot(input.Filename)
	if err != nil {
		return "", fmt.Errorf("failed to take screenshot: %w", err)
	}

	logger.Info("Screenshot saved", "path", path)
	return path, nil
}

// NotifyActivity delivers the outcome message. Delivery problems are logged
// and swallowed so they never change the run result.
func (a *Activities) NotifyActivity(ctx context.Context, input workflows.NotificationInput) error {
	logger := activity.GetLogger(ctx)

	pusher := notify.NewWxPusher(a.NotifyConfig)
	if !pusher.Configured() {
		logger.Info("Notification skipped: WxPusher not configured")
		return nil
	}

	if err := pusher.Send(ctx, input.Title, input.Message); err != nil {
		logger.Warn("Notification delivery failed", "error", err)
		return nil
	}

	logger.Info("Notification delivered", "title", input.Title)
	return nil
}

// CloseBrowserActivity closes a browser session and removes it from the pool.
func (a *Activities) CloseBrowserActivity(ctx context.Context, sessionID string) error {
	logger := activity.GetLogger(ctx)

	browserPool.Lock()
	data, exists := browserPool.sessions[sessionID]
	if exists {
		delete(browserPool.sessions, sessionID)
	}
	browserPool.Unlock()

	if !exists {
		logger.Warn("Session not found for cleanup", "sessionID", sessionID)
		return nil
	}

	data.session.Close()
	logger.Info("Browser session closed", "sessionID", sessionID)
	return nil
}

func getSession(sessionID string) (*sessionData, error) {
	browserPool.RLock()
	defer browserPool.RUnlock()

	data, exists := browserPool.sessions[sessionID]
	if !exists {
		return nil, fmt.Errorf("browser session %s not found", sessionID)
	}
	return data, nil
}
