// Package checkin drives the login-and-checkin flow against the target site:
// an unbounded login retry loop and a fixed four-step check-in sequence, both
// built on prioritized selector fallback chains.
package checkin

import (
	"context"
	"log"
	"os"
	"time"

	"dev/bravebird/auto-checkin-go/pkg/captcha"
	"dev/bravebird/auto-checkin-go/pkg/models"
)

// DefaultLoginURL is the fixed login address of the target site.
const DefaultLoginURL = "https://qd.dxssxdk.com/lanhu_yonghudenglu"

// Config holds runner configuration.
type Config struct {
	LoginURL string
	Username string
	Password string

	// LocatorTimeout bounds the wait for a single selector candidate.
	LocatorTimeout time.Duration
	// RetryDelay is the constant (not exponential) backoff between failed
	// login attempts.
	RetryDelay time.Duration
	// SettleDelay is the fixed wait after actions whose UI effects complete
	// asynchronously with no completion signal.
	SettleDelay time.Duration

	// CaptchaDumpFile, when set, receives a copy of each decoded CAPTCHA
	// image for debugging. Best-effort.
	CaptchaDumpFile string
}

// DefaultConfig returns runner defaults matching the target site's pacing.
func DefaultConfig() Config {
	return Config{
		LoginURL:        DefaultLoginURL,
		LocatorTimeout:  3 * time.Second,
		RetryDelay:      2 * time.Second,
		SettleDelay:     3 * time.Second,
		CaptchaDumpFile: "captcha.png",
	}
}

// Runner executes the login loop and check-in sequence on a single page.
type Runner struct {
	page   Page
	solver captcha.Solver
	cfg    Config
	logger *log.Logger

	// OnAttempt, when set, is invoked after every login attempt. Used for
	// activity heartbeats and live status updates.
	OnAttempt func(models.LoginAttempt)
}

// NewRunner creates a runner. A nil logger falls back to the standard logger.
func NewRunner(page Page, solver captcha.Solver, cfg Config, logger *log.Logger) *Runner {
	if logger == nil {
		logger = log.Default()
	}
	if cfg.LoginURL == "" {
		cfg.LoginURL = DefaultLoginURL
	}
	if cfg.LocatorTimeout == 0 {
		cfg.LocatorTimeout = 3 * time.Second
	}
	return &Runner{page: page, solver: solver, cfg: cfg, logger: logger}
}

// sleep waits for d or until the context is canceled.
func (r *Runner) sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// snapshot captures a named screenshot. Diagnostics are best-effort: write
// failures are logged and swallowed.
func (r *Runner) snapshot(name string) string {
	path, err := r.page.Screenshot(name)
	if err != nil {
		r.logger.Printf("warning: screenshot %s failed: %v", name, err)
		return ""
	}
	r.logger.Printf("saved screenshot: %s", path)
	return path
}

// dumpPage writes the page's structural content for post-hoc debugging.
func (r *Runner) dumpPage(name string) {
	path, err := r.page.DumpHTML(name)
	if err != nil {
		r.logger.Printf("warning: page dump %s failed: %v", name, err)
		return
	}
	r.logger.Printf("saved page dump: %s", path)
}

// dumpCaptcha writes the decoded CAPTCHA image when configured. Best-effort.
func (r *Runner) dumpCaptcha(data []byte) {
	if r.cfg.CaptchaDumpFile == "" {
		return
	}
	if err := os.WriteFile(r.cfg.CaptchaDumpFile, data, 0644); err != nil {
		r.logger.Printf("warning: captcha dump failed: %v", err)
		return
	}
	r.logger.Printf("saved captcha image: %s", r.cfg.CaptchaDumpFile)
}
