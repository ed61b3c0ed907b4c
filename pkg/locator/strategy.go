package locator

import "fmt"

// StrategyKind selects how a candidate is evaluated against the page.
type StrategyKind string

const (
	// BySelector waits for the first element matching a CSS selector.
	BySelector StrategyKind = "selector"
	// ByText waits for the first element matching a CSS selector whose
	// visible text contains the given text.
	ByText StrategyKind = "text"
	// ByIndex matches the Nth element (0-based) of a CSS selector without
	// waiting. Used for structural-position fallbacks when labels drift.
	ByIndex StrategyKind = "index"
	// ByScan enumerates every element matching a CSS selector and picks the
	// one whose trimmed inner text equals Text exactly. Last-resort inventory
	// scan, never waits.
	ByScan StrategyKind = "scan"
)

// Candidate is one entry of a selector fallback chain.
type Candidate struct {
	Kind     StrategyKind `json:"kind"`
	Selector string       `json:"selector"`
	Text     string       `json:"text,omitempty"`
	Index    int          `json:"index,omitempty"`
}

// String describes a candidate for log lines and error messages.
func (c Candidate) String() string {
	switch c.Kind {
	case ByText:
		return fmt.Sprintf("text(%s, %q)", c.Selector, c.Text)
	case ByIndex:
		return fmt.Sprintf("index(%s, %d)", c.Selector, c.Index)
	case ByScan:
		return fmt.Sprintf("scan(%s, %q)", c.Selector, c.Text)
	default:
		return fmt.Sprintf("selector(%s)", c.Selector)
	}
}

// Chain is an ordered list of candidates, most specific first. Evaluation is
// strictly left to right and stops at the first match.
type Chain []Candidate

// Css builds a BySelector candidate.
func Css(selector string) Candidate {
	return Candidate{Kind: BySelector, Selector: selector}
}

// Text builds a ByText candidate.
func Text(selector, text string) Candidate {
	return Candidate{Kind: ByText, Selector: selector, Text: text}
}

// Index builds a ByIndex candidate.
func Index(selector string, index int) Candidate {
	return Candidate{Kind: ByIndex, Selector: selector, Index: index}
}

// Scan builds a ByScan candidate.
func Scan(selector, exactText string) Candidate {
	return Candidate{Kind: ByScan, Selector: selector, Text: exactText}
}
