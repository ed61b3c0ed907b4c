// Package locator implements prioritized selector fallback chains: an ordered
// list of typed matching strategies is tried in sequence until one yields an
// element. Chains are ordered from most specific to most generic, trading
// precision for robustness against markup drift.
package locator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrNotFound is returned when every candidate of a chain has been exhausted.
var ErrNotFound = errors.New("locator: no candidate matched")

// DefaultTimeout bounds the wait for a single candidate when the caller does
// not supply one.
const DefaultTimeout = 3 * time.Second

// Element is a usable handle to a located page element.
type Element interface {
	Click() error
	Input(text string) error
	Text() (string, error)
	Attribute(name string) (string, error)
}

// Surface is the minimal read view of the current renderable surface that
// chain evaluation needs. The browser driver owns the underlying page; fakes
// implement this in tests.
type Surface interface {
	// Find waits up to timeout for the first element matching the CSS
	// selector.
	Find(selector string, timeout time.Duration) (Element, error)
	// FindByText waits up to timeout for the first element matching the CSS
	// selector whose visible text contains text.
	FindByText(selector, text string, timeout time.Duration) (Element, error)
	// All returns every element currently matching the CSS selector, without
	// waiting.
	All(selector string) ([]Element, error)
}

// Locate evaluates the chain left to right and returns the element found by
// the first matching candidate. Later candidates are not evaluated once one
// matches. On exhaustion it returns an error wrapping ErrNotFound.
func Locate(ctx context.Context, s Surface, chain Chain, timeout time.Duration) (Element, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	var lastErr error
	for _, candidate := range chain {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		el, err := evaluate(s, candidate, timeout)
		if err == nil && el != nil {
			return el, nil
		}
		if err != nil {
			lastErr = fmt.Errorf("%s: %w", candidate, err)
		}
	}

	if lastErr != nil {
		return nil, fmt.Errorf("%w (last: %v)", ErrNotFound, lastErr)
	}
	return nil, ErrNotFound
}

func evaluate(s Surface, c Candidate, timeout time.Duration) (Element, error) {
	switch c.Kind {
	case BySelector:
		return s.Find(c.Selector, timeout)

	case ByText:
		return s.FindByText(c.Selector, c.Text, timeout)

	case ByIndex:
		elements, err := s.All(c.Selector)
		if err != nil {
			return nil, err
		}
		if c.Index < 0 || c.Index >= len(elements) {
			return nil, fmt.Errorf("index %d out of range (%d elements)", c.Index, len(elements))
		}
		return elements[c.Index], nil

	case ByScan:
		elements, err := s.All(c.Selector)
		if err != nil {
			return nil, err
		}
		for _, el := range elements {
			text, err := el.Text()
			if err != nil {
				continue
			}
			if strings.TrimSpace(text) == c.Text {
				return el, nil
			}
		}
		return nil, fmt.Errorf("no element with exact text %q among %d", c.Text, len(elements))

	default:
		return nil, fmt.Errorf("unknown strategy kind: %s", c.Kind)
	}
}
