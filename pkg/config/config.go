// Package config loads runtime configuration from the environment, with an
// optional .env file for local development.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds everything the binaries read from the environment.
type Config struct {
	// Credentials for the target site. CHECKIN_USERNAME/CHECKIN_PASSWORD,
	// or the first two positional arguments.
	Account  string
	Password string

	// LoginURL overrides the built-in login address.
	LoginURL string

	// Headless is forced on under CI (GITHUB_ACTIONS=true) and otherwise
	// controlled by CHECKIN_HEADLESS.
	Headless bool

	// ScreenshotDir is where diagnostic screenshots and page dumps land.
	ScreenshotDir string

	// RunTimeout bounds a whole run, in seconds. The login retry loop has
	// no bound of its own; this is the external deadline.
	RunTimeout int

	// CAPTCHA recognition service.
	CaptchaOCRURL string
	CaptchaOCRKey string

	// WxPusher notification delivery. Both empty disables notification.
	WxPusherAppToken string
	WxPusherUID      string

	// Service wiring (API server and worker only).
	TemporalHostPort string
	MySQLDSN         string
	APIPort          string
}

// Load reads configuration from a .env file (when present) and the
// environment. args are the program's positional arguments, used as a
// credentials fallback.
func Load(args []string) (*Config, error) {
	// Best-effort: absence of a .env file is the normal production case.
	_ = godotenv.Load()

	cfg := &Config{
		Account:          os.Getenv("CHECKIN_USERNAME"),
		Password:         os.Getenv("CHECKIN_PASSWORD"),
		LoginURL:         os.Getenv("CHECKIN_LOGIN_URL"),
		ScreenshotDir:    getEnvOrDefault("SCREENSHOT_DIR", "/tmp/screenshots"),
		CaptchaOCRURL:    getEnvOrDefault("CAPTCHA_OCR_URL", "http://localhost:9898"),
		CaptchaOCRKey:    os.Getenv("CAPTCHA_OCR_KEY"),
		WxPusherAppToken: os.Getenv("WXPUSHER_APP_TOKEN"),
		WxPusherUID:      os.Getenv("WXPUSHER_UID"),
		TemporalHostPort: getEnvOrDefault("TEMPORAL_HOST", "localhost:7233"),
		MySQLDSN:         getEnvOrDefault("MYSQL_DSN", "root:password@tcp(localhost:3306)/auto_checkin?parseTime=true"),
		APIPort:          getEnvOrDefault("PORT", "8080"),
	}

	// Positional arguments override the environment, matching how the CLI is
	// invoked from cron: auto-checkin <username> <password>
	if len(args) >= 2 {
		cfg.Account = args[0]
		cfg.Password = args[1]
	}

	// CI has no display server
	cfg.Headless = os.Getenv("GITHUB_ACTIONS") == "true" || os.Getenv("CHECKIN_HEADLESS") == "true"

	cfg.RunTimeout = 300
	if v := os.Getenv("RUN_TIMEOUT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("invalid RUN_TIMEOUT %q", v)
		}
		cfg.RunTimeout = n
	}

	return cfg, nil
}

// RequireCredentials errors out when no account/password pair was found.
func (c *Config) RequireCredentials() error {
	if c.Account == "" || c.Password == "" {
		return fmt.Errorf("credentials missing: set CHECKIN_USERNAME and CHECKIN_PASSWORD or pass them as arguments")
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
