package browser

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrElementNotFound is returned when a selector or link text matches
	// nothing on the page within the bounded wait.
	ErrElementNotFound = errors.New("element not found")

	// ErrNoSubmitControl is returned when no submit control could be
	// resolved by any scoping strategy.
	ErrNoSubmitControl = errors.New("no submit control resolved")
)

// TextHit is one visible occurrence of a text needle on the page, with
// enough layout context to tell a top-level banner apart from the same
// phrase echoed inside a scrolling log panel.
type TextHit struct {
	// Y is the viewport-relative top of the matched element in pixels.
	Y float64

	// AncestorClasses holds the class names of the matched element and all
	// of its ancestors, innermost first.
	AncestorClasses []string
}

// HasAncestorClass reports whether any ancestor carries the given class.
func (h TextHit) HasAncestorClass(class string) bool {
	for _, c := range h.AncestorClasses {
		if c == class {
			return true
		}
	}
	return false
}

// SubmitQuery describes how the submit control for a login form is
// resolved. Scope is narrowed outward from the username input so a decoy
// control elsewhere in the DOM with the same generic label never matches.
type SubmitQuery struct {
	UsernameSelector string
	PasswordSelector string
	// Label is the visible text of the submit control, matched
	// case-insensitively.
	Label string
}

// Submit strategies reported by ClickSubmit.
const (
	StrategyEnclosingForm      = "enclosing-form"
	StrategyEnclosingContainer = "enclosing-container"
	StrategyPageWideLabel      = "page-wide-label"
)

// Surface is the automation capability one attempt drives. Each attempt
// owns its surface exclusively; surfaces are never shared or reused across
// attempts. All blocking operations honor the passed context.
type Surface interface {
	// Navigate loads the given URL and waits for the document load event.
	Navigate(ctx context.Context, url string) error

	// CurrentURL returns the page's current location.
	CurrentURL(ctx context.Context) (string, error)

	// Title returns the current document title.
	Title(ctx context.Context) (string, error)

	// Visible reports whether any element matching the selector is visible.
	Visible(ctx context.Context, selector string) (bool, error)

	// WaitVisible blocks until an element matching the selector is visible
	// or the timeout elapses, returning ErrElementNotFound on timeout.
	WaitVisible(ctx context.Context, selector string, timeout time.Duration) error

	// TextVisible reports whether the given text is visible anywhere.
	TextVisible(ctx context.Context, text string) (bool, error)

	// TextHits returns every visible occurrence of the text with layout
	// context.
	TextHits(ctx context.Context, text string) ([]TextHit, error)

	// LinkHref returns the href of the first visible link whose text
	// matches, and whether such a link exists.
	LinkHref(ctx context.Context, text string) (string, bool, error)

	// ClickLink clicks the first visible link whose text matches.
	ClickLink(ctx context.Context, text string) error

	// Fill sets the value of the input matching the selector. The value is
	// written verbatim; no trimming or normalization is applied.
	Fill(ctx context.Context, selector, value string) error

	// ClickSubmit resolves the submit control per the query's scoping rules
	// and clicks it, reporting which strategy matched.
	ClickSubmit(ctx context.Context, q SubmitQuery) (string, error)

	// Transcript returns the full rendered text of the streamed log panel.
	// The transcript is append-only for the lifetime of the surface.
	Transcript(ctx context.Context) (string, error)

	// Screenshot captures the current viewport as PNG bytes.
	Screenshot(ctx context.Context) ([]byte, error)

	// ClearStorage wipes local and session storage so no authentication
	// artifact leaks into a later attempt.
	ClearStorage(ctx context.Context) error

	// Close tears the surface down. Safe to call more than once.
	Close() error
}

// Factory creates one fresh Surface per attempt.
type Factory interface {
	NewSurface(ctx context.Context) (Surface, error)
}
