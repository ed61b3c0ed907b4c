package workflows

import (
	"fmt"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"dev/bravebird/auto-checkin-go/pkg/models"
)

// CheckinWorkflow executes one login-and-checkin run. The login loop inside
// LoginActivity retries without bound; the activity StartToCloseTimeout set
// here is the external deadline that bounds it.
func CheckinWorkflow(ctx workflow.Context, input models.CheckinInput) (models.CheckinResult, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("Starting check-in workflow", "runID", input.RunID, "account", input.Account)

	result := models.CheckinResult{
		RunID:  input.RunID,
		Status: models.StatusRunning,
	}

	// Register query handler for real-time progress
	err := workflow.SetQueryHandler(ctx, "getProgress", func() (models.CheckinResult, error) {
		return result, nil
	})
	if err != nil {
		logger.Error("Failed to register query handler", "error", err)
	}

	startTime := workflow.Now(ctx)

	timeout := input.Timeout
	if timeout <= 0 {
		timeout = 300
	}

	// One attempt per activity: the login loop owns its retries internally,
	// and re-running a half-finished browser interaction is not safe.
	activityOptions := workflow.ActivityOptions{
		StartToCloseTimeout: time.Duration(timeout) * time.Second,
		HeartbeatTimeout:    30 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts: 1,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, activityOptions)

	// Launch the browser session
	var session BrowserSession
	err = workflow.ExecuteActivity(ctx, "InitializeBrowserActivity", BrowserInitInput{
		Headless: input.Headless,
	}).Get(ctx, &session)
	if err != nil {
		result.Status = models.StatusFailed
		result.ErrorMessage = "Failed to initialize browser: " + err.Error()
		notify(ctx, input, &result)
		return result, nil
	}

	defer func() {
		// Cleanup browser session regardless of outcome
		_ = workflow.ExecuteActivity(ctx, "CloseBrowserActivity", session.SessionID).Get(ctx, nil)
	}()

	// Login with unbounded retry, bounded by the activity timeout
	var login LoginOutput
	err = workflow.ExecuteActivity(ctx, "LoginActivity", LoginInput{
		SessionID: session.SessionID,
		Account:   input.Account,
		Password:  input.Password,
		LoginURL:  input.LoginURL,
	}).Get(ctx, &login)
	result.LoginAttempts = login.Attempts
	if err != nil {
		result.Status = models.StatusFailed
		result.ErrorMessage = "Login did not succeed before deadline: " + err.Error()
		captureScreenshot(ctx, session.SessionID, input.RunID+"_login_failure.png")
		notify(ctx, input, &result)
		return result, nil
	}

	// Run the check-in sequence
	var report models.CheckinReport
	err = workflow.ExecuteActivity(ctx, "CheckinActivity", session.SessionID).Get(ctx, &report)
	result.Report = &report
	if err != nil {
		result.Status = models.StatusFailed
		result.ErrorMessage = "Check-in failed: " + err.Error()
	} else if report.SubmitClicked {
		result.Status = models.StatusSuccess
	} else {
		result.Status = models.StatusFailed
		result.ErrorMessage = "Submit control was not clicked"
		captureScreenshot(ctx, session.SessionID, input.RunID+"_checkin_failure.png")
	}

	result.TotalDuration = workflow.Now(ctx).Sub(startTime).Milliseconds()
	notify(ctx, input, &result)

	logger.Info("Check-in workflow completed", "status", result.Status, "attempts", result.LoginAttempts)
	return result, nil
}

func captureScreenshot(ctx workflow.Context, sessionID, filename string) {
	var path string
	_ = workflow.ExecuteActivity(ctx, "TakeScreenshotActivity", ScreenshotInput{
		SessionID: sessionID,
		Filename:  filename,
	}).Get(ctx, &path)
}

func notify(ctx workflow.Context, input models.CheckinInput, result *models.CheckinResult) {
	title := "自动打卡成功"
	message := fmt.Sprintf("用户 %s 打卡成功（登录尝试 %d 次）", input.Account, result.LoginAttempts)
	if result.Status != models.StatusSuccess {
		title = "自动打卡失败"
		message = fmt.Sprintf("用户 %s 打卡失败，请检查日志。\n\n%s", input.Account, result.ErrorMessage)
	}

	// Fire-and-forget: notification failures never change the run outcome.
	_ = workflow.ExecuteActivity(ctx, "NotifyActivity", NotificationInput{
		Title:   title,
		Message: message,
	}).Get(ctx, nil)
}

// BrowserSession holds browser session information
type BrowserSession struct {
	SessionID string `json:"session_id"`
}

// BrowserInitInput is the input for browser initialization
type BrowserInitInput struct {
	Headless bool `json:"headless"`
}

// LoginInput is the input for the login activity
type LoginInput struct {
	SessionID string `json:"session_id"`
	Account   string `json:"account"`
	Password  string `json:"password"`
	LoginURL  string `json:"login_url,omitempty"`
}

// LoginOutput reports how many attempts the login loop made
type LoginOutput struct {
	Attempts int `json:"attempts"`
}

// ScreenshotInput is the input for taking a screenshot
type ScreenshotInput struct {
	SessionID string `json:"session_id"`
	Filename  string `json:"filename"`
}

// NotificationInput is the input for the notification activity
type NotificationInput struct {
	Title   string `json:"title"`
	Message string `json:"message"`
}
