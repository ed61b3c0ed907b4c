// Package browser owns the Chromium session used by a single check-in run:
// launch, page setup, element access, diagnostics, and guaranteed teardown.
package browser

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/input"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"dev/bravebird/auto-checkin-go/pkg/locator"
)

// Config holds browser session configuration.
type Config struct {
	Headless      bool
	ChromeBin     string
	ViewportW     int
	ViewportH     int
	UserAgent     string
	NavTimeout    time.Duration
	ScreenshotDir string
}

// DefaultConfig returns sensible defaults matching the target site.
func DefaultConfig() Config {
	return Config{
		Headless:   true,
		ViewportW:  1280,
		ViewportH:  720,
		UserAgent:  "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		NavTimeout: 30 * time.Second,
	}
}

// Session is one exclusive browser session with a single page. It implements
// the page surface the check-in runner drives.
type Session struct {
	cfg     Config
	browser *rod.Browser
	page    *rod.Page
	logger  *log.Logger
}

// NewSession launches a browser and opens a blank page.
func NewSession(cfg Config, logger *log.Logger) (*Session, error) {
	if logger == nil {
		logger = log.Default()
	}
	if cfg.NavTimeout == 0 {
		cfg.NavTimeout = 30 * time.Second
	}

	l := launcher.New()

	// Use CHROME_BIN if set (Docker / CI environment)
	bin := cfg.ChromeBin
	if bin == "" {
		bin = os.Getenv("CHROME_BIN")
	}
	if bin != "" {
		l = l.Bin(bin)
	}

	l = l.Headless(cfg.Headless)

	// Chrome flags for container compatibility
	l = l.Set("no-sandbox")
	l = l.Set("disable-setuid-sandbox")
	l = l.Set("disable-gpu")
	l = l.Set("disable-dev-shm-usage")

	url, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	b := rod.New().ControlURL(url)
	if err := b.Connect(); err != nil {
		return nil, fmt.Errorf("failed to connect to browser: %w", err)
	}

	page, err := b.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		b.Close()
		return nil, fmt.Errorf("failed to create page: %w", err)
	}

	if cfg.ViewportW > 0 && cfg.ViewportH > 0 {
		if err := (proto.EmulationSetDeviceMetricsOverride{
			Width:             cfg.ViewportW,
			Height:            cfg.ViewportH,
			DeviceScaleFactor: 1.0,
			Mobile:            false,
		}).Call(page); err != nil {
			logger.Printf("warning: failed to set viewport: %v", err)
		}
	}

	if cfg.UserAgent != "" {
		if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: cfg.UserAgent}); err != nil {
			logger.Printf("warning: failed to set user agent: %v", err)
		}
	}

	logger.Printf("browser session started (headless=%v)", cfg.Headless)
	return &Session{cfg: cfg, browser: b, page: page, logger: logger}, nil
}

// Close tears the session down. Safe to call in a defer regardless of outcome.
func (s *Session) Close() {
	if s.browser != nil {
		if err := s.browser.Close(); err != nil {
			s.logger.Printf("warning: error closing browser: %v", err)
		}
		s.browser = nil
		s.page = nil
	}
}

// ==================== Navigation ====================

// Navigate opens the URL and waits for the page to load.
func (s *Session) Navigate(url string) error {
	p := s.page.Timeout(s.cfg.NavTimeout)
	if err := p.Navigate(url); err != nil {
		return fmt.Errorf("navigate %s: %w", url, err)
	}
	return p.WaitLoad()
}

// Reload refreshes the current page and waits for it to load.
func (s *Session) Reload() error {
	if err := s.page.Reload(); err != nil {
		return fmt.Errorf("reload: %w", err)
	}
	return s.page.Timeout(s.cfg.NavTimeout).WaitLoad()
}

// URL returns the current page address, or "" when it cannot be read.
func (s *Session) URL() string {
	info, err := s.page.Info()
	if err != nil {
		return ""
	}
	return info.URL
}

// ==================== Element access (locator.Surface) ====================

// Find waits up to timeout for the first element matching the CSS selector.
func (s *Session) Find(selector string, timeout time.Duration) (locator.Element, error) {
	el, err := s.page.Timeout(timeout).Element(selector)
	if err != nil {
		return nil, fmt.Errorf("element not found: %s", selector)
	}
	return &element{el: el}, nil
}

// FindByText waits up to timeout for the first element matching the CSS
// selector whose visible text contains text.
func (s *Session) FindByText(selector, text string, timeout time.Duration) (locator.Element, error) {
	el, err := s.page.Timeout(timeout).ElementR(selector, regexp.QuoteMeta(text))
	if err != nil {
		return nil, fmt.Errorf("element not found: %s with text %q", selector, text)
	}
	return &element{el: el}, nil
}

// All returns every element currently matching the CSS selector.
func (s *Session) All(selector string) ([]locator.Element, error) {
	els, err := s.page.Elements(selector)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", selector, err)
	}
	out := make([]locator.Element, 0, len(els))
	for _, el := range els {
		out = append(out, &element{el: el})
	}
	return out, nil
}

// PressEnter focuses the element matching the selector and presses Enter.
// Used as the key-press submit fallback when no submit control is found.
func (s *Session) PressEnter(selector string) error {
	el, err := s.page.Timeout(locator.DefaultTimeout).Element(selector)
	if err != nil {
		return fmt.Errorf("element not found: %s", selector)
	}
	if err := el.Focus(); err != nil {
		return fmt.Errorf("focus %s: %w", selector, err)
	}
	return s.page.Keyboard.Press(input.Enter)
}

// ==================== Diagnostics ====================

// Screenshot captures the full page into ScreenshotDir under the given file
// name and returns the written path. Best-effort; callers log and continue.
func (s *Session) Screenshot(name string) (string, error) {
	dir := s.cfg.ScreenshotDir
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create screenshot dir: %w", err)
	}

	data, err := s.page.Screenshot(true, &proto.PageCaptureScreenshot{
		Format: proto.PageCaptureScreenshotFormatPng,
	})
	if err != nil {
		return "", fmt.Errorf("failed to take screenshot: %w", err)
	}

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to save screenshot: %w", err)
	}
	return path, nil
}

// DumpHTML writes the page's structural content into ScreenshotDir under the
// given file name. Used on final failure for post-hoc debugging.
func (s *Session) DumpHTML(name string) (string, error) {
	dir := s.cfg.ScreenshotDir
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create dump dir: %w", err)
	}

	html, err := s.page.HTML()
	if err != nil {
		return "", fmt.Errorf("failed to read page html: %w", err)
	}

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(html), 0644); err != nil {
		return "", fmt.Errorf("failed to save page html: %w", err)
	}
	return path, nil
}

// element adapts a rod element to locator.Element.
type element struct {
	el *rod.Element
}

func (e *element) Click() error {
	return e.el.Click(proto.InputMouseButtonLeft, 1)
}

func (e *element) Input(text string) error {
	// Clear existing text before typing the new value.
	if err := e.el.SelectAllText(); err == nil {
		_ = e.el.Type(input.Backspace)
	}
	return e.el.Input(text)
}

func (e *element) Text() (string, error) {
	return e.el.Text()
}

func (e *element) Attribute(name string) (string, error) {
	val, err := e.el.Attribute(name)
	if err != nil {
		return "", err
	}
	if val == nil {
		return "", nil
	}
	return *val, nil
}
