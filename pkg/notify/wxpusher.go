// Package notify delivers run outcomes to a push service. Delivery is
// fire-and-forget: failures are logged by callers, never escalated.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DefaultBaseURL is the WxPusher API endpoint.
const DefaultBaseURL = "https://wxpusher.zjiecode.com"

// Sink delivers a final success/failure message.
type Sink interface {
	Send(ctx context.Context, title, message string) error
}

// Config holds WxPusher delivery configuration.
type Config struct {
	AppToken string `json:"-"` // Don't serialize
	UID      string `json:"uid"`
	BaseURL  string `json:"base_url,omitempty"`
	Timeout  int    `json:"timeout_seconds,omitempty"`
}

// WxPusher implements Sink against the WxPusher message API.
type WxPusher struct {
	config     Config
	httpClient *http.Client
}

// NewWxPusher creates a WxPusher sink.
func NewWxPusher(config Config) *WxPusher {
	if config.BaseURL == "" {
		config.BaseURL = DefaultBaseURL
	}
	if config.Timeout == 0 {
		config.Timeout = 10
	}
	return &WxPusher{
		config: config,
		httpClient: &http.Client{
			Timeout: time.Duration(config.Timeout) * time.Second,
		},
	}
}

// Configured reports whether both delivery secrets are present.
func (p *WxPusher) Configured() bool {
	return p.config.AppToken != "" && p.config.UID != ""
}

// sendRequest represents a WxPusher send request.
type sendRequest struct {
	AppToken    string   `json:"appToken"`
	Content     string   `json:"content"`
	Summary     string   `json:"summary"`
	ContentType int      `json:"contentType"` // 3 = Markdown
	UIDs        []string `json:"uids"`
	VerifyPay   bool     `json:"verifyPay"`
}

// sendResponse represents a WxPusher send response.
type sendResponse struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
}

// Send delivers a markdown message. Missing configuration is a no-op.
func (p *WxPusher) Send(ctx context.Context, title, message string) error {
	if !p.Configured() {
		return nil
	}

	body := sendRequest{
		AppToken:    p.config.AppToken,
		Content:     fmt.Sprintf("# %s\n\n%s", title, message),
		Summary:     title,
		ContentType: 3,
		UIDs:        []string{p.config.UID},
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	url := fmt.Sprintf("%s/api/send/message", p.config.BaseURL)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create notification request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("notification request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read notification response: %w", err)
	}

	var result sendResponse
	if err := json.Unmarshal(raw, &result); err != nil {
		return fmt.Errorf("failed to parse notification response: %w", err)
	}
	if result.Code != 1000 {
		return fmt.Errorf("notification rejected: %s (code %d)", result.Msg, result.Code)
	}
	return nil
}
