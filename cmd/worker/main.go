package main

import (
	"log"
	"os"

	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"

	"dev/bravebird/auto-checkin-go/pkg/browser"
	"dev/bravebird/auto-checkin-go/pkg/captcha"
	"dev/bravebird/auto-checkin-go/pkg/checkin"
	"dev/bravebird/auto-checkin-go/pkg/config"
	"dev/bravebird/auto-checkin-go/pkg/notify"
	"dev/bravebird/auto-checkin-go/pkg/temporal/activities"
	"dev/bravebird/auto-checkin-go/pkg/temporal/workflows"
)

const TaskQueue = "auto-checkin"

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Create Temporal client
	c, err := client.Dial(client.Options{
		HostPort: cfg.TemporalHostPort,
	})
	if err != nil {
		log.Fatalf("Failed to create Temporal client: %v", err)
	}
	defer c.Close()

	browserCfg := browser.DefaultConfig()
	browserCfg.ScreenshotDir = cfg.ScreenshotDir

	runnerCfg := checkin.DefaultConfig()
	if cfg.LoginURL != "" {
		runnerCfg.LoginURL = cfg.LoginURL
	}

	solverCfg := captcha.Config{
		BaseURL: cfg.CaptchaOCRURL,
		APIKey:  cfg.CaptchaOCRKey,
	}

	notifyCfg := notify.Config{
		AppToken: cfg.WxPusherAppToken,
		UID:      cfg.WxPusherUID,
	}

	// Create activities
	acts := activities.NewActivities(browserCfg, runnerCfg, solverCfg, notifyCfg)

	// Create worker. Browser sessions are heavyweight, keep concurrency low.
	w := worker.New(c, TaskQueue, worker.Options{
		MaxConcurrentActivityExecutionSize:     5,
		MaxConcurrentWorkflowTaskExecutionSize: 10,
	})

	// Register workflows
	w.RegisterWorkflow(workflows.CheckinWorkflow)

	// Register activities
	w.RegisterActivity(acts.InitializeBrowserActivity)
	w.RegisterActivity(acts.LoginActivity)
	w.RegisterActivity(acts.CheckinActivity)
	w.RegisterActivity(acts.TakeScreenshotActivity)
	w.RegisterActivity(acts.NotifyActivity)
	w.RegisterActivity(acts.CloseBrowserActivity)

	log.Printf("Starting Temporal worker on task queue: %s", TaskQueue)
	log.Printf("Temporal host: %s", cfg.TemporalHostPort)
	log.Printf("CAPTCHA recognizer: %s", cfg.CaptchaOCRURL)

	// Start worker
	err = w.Run(worker.InterruptCh())
	if err != nil {
		log.Fatalf("Worker failed: %v", err)
	}
}
