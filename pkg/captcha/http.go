package captcha

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Config holds OCR service configuration.
type Config struct {
	BaseURL string `json:"base_url"`
	APIKey  string `json:"-"` // Don't serialize
	Timeout int    `json:"timeout_seconds,omitempty"`
}

// HTTPSolver implements Solver against a ddddocr-style HTTP OCR service.
type HTTPSolver struct {
	config     Config
	httpClient *http.Client
}

// NewHTTPSolver creates a new HTTP-backed solver.
func NewHTTPSolver(config Config) *HTTPSolver {
	if config.BaseURL == "" {
		config.BaseURL = "http://localhost:9898"
	}
	if config.Timeout == 0 {
		config.Timeout = 30
	}
	return &HTTPSolver{
		config: config,
		httpClient: &http.Client{
			Timeout: time.Duration(config.Timeout) * time.Second,
		},
	}
}

// ocrRequest represents a request to the OCR API.
type ocrRequest struct {
	Image string `json:"image"` // base64-encoded image bytes
}

// ocrResponse represents a response from the OCR API.
type ocrResponse struct {
	Text  string `json:"text"`
	Error string `json:"error,omitempty"`
}

// Name returns the solver name.
func (s *HTTPSolver) Name() string {
	return "http-ocr"
}

// IsAvailable checks if the OCR service is reachable.
func (s *HTTPSolver) IsAvailable(ctx context.Context) bool {
	url := fmt.Sprintf("%s/ping", s.config.BaseURL)
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return false
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// Solve posts the image to the OCR service. A response without recognized
// text yields "" and a nil error: the caller retries with a fresh image.
func (s *HTTPSolver) Solve(ctx context.Context, image []byte) (string, error) {
	reqBody := ocrRequest{
		Image: base64.StdEncoding.EncodeToString(image),
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal ocr request: %w", err)
	}

	url := fmt.Sprintf("%s/ocr", s.config.BaseURL)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create ocr request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.config.APIKey)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("ocr request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read ocr response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("ocr service returned status %d: %s", resp.StatusCode, string(body))
	}

	var result ocrResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("failed to parse ocr response: %w", err)
	}
	if result.Error != "" {
		return "", fmt.Errorf("ocr service error: %s", result.Error)
	}

	return strings.TrimSpace(result.Text), nil
}
