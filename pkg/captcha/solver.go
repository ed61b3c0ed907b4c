// Package captcha delegates CAPTCHA image recognition to an external
// capability. Recognition itself is a black box: bytes in, text or "" out.
package captcha

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
)

// Solver recognizes the text of a CAPTCHA image. An empty string with a nil
// error means the image could not be recognized; callers treat that as a
// transient failure of the current attempt, not an error.
type Solver interface {
	// Solve recognizes text from raw image bytes.
	Solve(ctx context.Context, image []byte) (string, error)

	// Name returns the solver name.
	Name() string

	// IsAvailable checks if the solver is configured and reachable.
	IsAvailable(ctx context.Context) bool
}

// DecodeDataURI extracts raw image bytes from a data URI such as
// "data:image/png;base64,...". The target site embeds the CAPTCHA image this
// way rather than serving it from a URL.
func DecodeDataURI(src string) ([]byte, error) {
	if !strings.HasPrefix(src, "data:image") {
		return nil, fmt.Errorf("not an image data uri: %.32q", src)
	}
	_, payload, ok := strings.Cut(src, ",")
	if !ok || payload == "" {
		return nil, fmt.Errorf("malformed data uri: missing payload")
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to decode data uri payload: %w", err)
	}
	return data, nil
}
