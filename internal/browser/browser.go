// Package browser defines the page capability the crawler drives and its
// Chrome DevTools implementation.
package browser

import (
	"context"
	"errors"
	"time"
)

// LoadState is a page lifecycle milestone that can be waited for.
type LoadState string

const (
	// DOMContentLoaded fires once the initial document has been parsed
	DOMContentLoaded LoadState = "domcontentloaded"
	// Load fires once the page and its subresources have loaded
	Load LoadState = "load"
	// NetworkIdle fires after a lull in pending network requests
	NetworkIdle LoadState = "networkidle"
)

// ErrTimeout is returned by bounded waits that gave up.
var ErrTimeout = errors.New("browser: wait timed out")

// Page is one navigable browser tab.
type Page interface {
	// Goto navigates and waits for DOMContentLoaded, bounded by timeout.
	Goto(ctx context.Context, rawURL string, timeout time.Duration) error

	// WaitForLoadState blocks until the current document reaches state.
	WaitForLoadState(ctx context.Context, state LoadState, timeout time.Duration) error

	// URL returns the current document URL.
	URL(ctx context.Context) (string, error)

	// Content returns the serialized rendered document.
	Content(ctx context.Context) (string, error)

	// ScrollBy scrolls the viewport vertically by dy pixels.
	ScrollBy(ctx context.Context, dy int) error

	// OnResponse registers fn for the URL of every network response the
	// page receives. The returned func unregisters it. fn may be called
	// from another goroutine.
	OnResponse(fn func(rawURL string)) (off func())

	// CountClickable counts visible buttons, links and ARIA buttons whose
	// accessible name contains label, case-insensitively.
	CountClickable(ctx context.Context, label string) (int, error)

	// Click clicks the index-th element counted by CountClickable.
	Click(ctx context.Context, label string, index int, timeout time.Duration) error

	// ClickAncestor programmatically clicks the nearest interactive
	// ancestor of the index-th element counted by CountClickable.
	ClickAncestor(ctx context.Context, label string, index int) error

	// WaitForURL waits until the document URL satisfies match and returns it.
	WaitForURL(ctx context.Context, match func(rawURL string) bool, timeout time.Duration) (string, error)

	// GoBack navigates one step back in history.
	GoBack(ctx context.Context, timeout time.Duration) error

	// Close closes the tab.
	Close() error
}

// Browser opens pages that share one browsing context (cookies, user agent).
type Browser interface {
	NewPage(ctx context.Context) (Page, error)
}
