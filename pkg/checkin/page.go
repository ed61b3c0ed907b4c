package checkin

import (
	"dev/bravebird/auto-checkin-go/pkg/locator"
)

// Page is the renderable surface a check-in run drives. It is owned by the
// browser driver (pkg/browser satisfies it); fakes satisfy it in tests.
type Page interface {
	locator.Surface

	// Navigate opens the URL and waits for the page to load.
	Navigate(url string) error

	// Reload refreshes the current page.
	Reload() error

	// URL returns the current page address, or "" when unreadable.
	URL() string

	// PressEnter focuses the element matching the selector and presses Enter.
	PressEnter(selector string) error

	// Screenshot captures the page under the given file name and returns the
	// written path.
	Screenshot(name string) (string, error)

	// DumpHTML writes the page's structural content under the given file name
	// and returns the written path.
	DumpHTML(name string) (string, error)
}
