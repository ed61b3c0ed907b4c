// Command checkin runs one login-and-checkin pass and exits. It is the
// cron/CI entrypoint: credentials come from the environment or the first two
// arguments, the exit code reports the outcome.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"dev/bravebird/auto-checkin-go/pkg/browser"
	"dev/bravebird/auto-checkin-go/pkg/captcha"
	"dev/bravebird/auto-checkin-go/pkg/checkin"
	"dev/bravebird/auto-checkin-go/pkg/config"
	"dev/bravebird/auto-checkin-go/pkg/notify"
)

func main() {
	logger := log.New(os.Stdout, "", log.LstdFlags)

	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		logger.Fatalf("configuration error: %v", err)
	}
	if err := cfg.RequireCredentials(); err != nil {
		logger.Fatalf("%v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// The login loop retries forever; this deadline is what bounds it.
	ctx, cancel := context.WithTimeout(ctx, time.Duration(cfg.RunTimeout)*time.Second)
	defer cancel()

	sink := notify.NewWxPusher(notify.Config{
		AppToken: cfg.WxPusherAppToken,
		UID:      cfg.WxPusherUID,
	})

	if err := run(ctx, cfg, logger); err != nil {
		logger.Printf("check-in failed: %v", err)
		sendNotification(sink, logger, "自动打卡失败",
			fmt.Sprintf("用户 %s 打卡失败，请检查日志。\n\n%v", cfg.Account, err))
		os.Exit(1)
	}

	logger.Printf("check-in completed")
	sendNotification(sink, logger, "自动打卡成功",
		fmt.Sprintf("用户 %s 打卡成功。", cfg.Account))
}

func run(ctx context.Context, cfg *config.Config, logger *log.Logger) error {
	browserCfg := browser.DefaultConfig()
	browserCfg.Headless = cfg.Headless
	browserCfg.ScreenshotDir = cfg.ScreenshotDir

	session, err := browser.NewSession(browserCfg, logger)
	if err != nil {
		return fmt.Errorf("failed to launch browser: %w", err)
	}
	defer session.Close()

	solver := captcha.NewHTTPSolver(captcha.Config{
		BaseURL: cfg.CaptchaOCRURL,
		APIKey:  cfg.CaptchaOCRKey,
	})
	if !solver.IsAvailable(ctx) {
		logger.Printf("warning: CAPTCHA recognizer %s not reachable, attempts will retry until deadline", cfg.CaptchaOCRURL)
	}

	runnerCfg := checkin.DefaultConfig()
	runnerCfg.Username = cfg.Account
	runnerCfg.Password = cfg.Password
	if cfg.LoginURL != "" {
		runnerCfg.LoginURL = cfg.LoginURL
	}

	runner := checkin.NewRunner(session, solver, runnerCfg, logger)

	attempts, err := runner.Login(ctx)
	if err != nil {
		return fmt.Errorf("login did not succeed after %d attempts: %w", attempts, err)
	}
	logger.Printf("logged in after %d attempts", attempts)

	report, err := runner.Checkin(ctx)
	if err != nil {
		if errors.Is(err, checkin.ErrSubmitNotFound) {
			return fmt.Errorf("submit control not found, diagnostics saved to %s", cfg.ScreenshotDir)
		}
		return err
	}
	if !report.SubmitClicked {
		return errors.New("submit control was not clicked")
	}
	if report.SuccessIndicator != "" {
		logger.Printf("success indicator: %s", report.SuccessIndicator)
	}
	return nil
}

// sendNotification delivers the outcome message with its own short deadline,
// independent of the (possibly expired) run context.
func sendNotification(sink notify.Sink, logger *log.Logger, title, message string) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := sink.Send(ctx, title, message); err != nil {
		logger.Printf("warning: notification delivery failed: %v", err)
	}
}
