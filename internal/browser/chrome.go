package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

const (
	pollInterval = 100 * time.Millisecond
	opTimeout    = 15 * time.Second

	clickableAttr = "data-relay-clickable"
)

// markClickableJS tags every visible clickable element whose accessible name
// contains the label with its index and returns the count.
const markClickableJS = `(() => {
  const label = %s;
  const attr = %q;
  document.querySelectorAll('[' + attr + ']').forEach(el => el.removeAttribute(attr));
  const visible = el => {
    const r = el.getBoundingClientRect();
    const s = window.getComputedStyle(el);
    return r.width > 0 && r.height > 0 && s.visibility !== 'hidden' && s.display !== 'none';
  };
  const name = el => (el.getAttribute('aria-label') || el.innerText || el.textContent || '').trim().toLowerCase();
  const matched = Array.from(document.querySelectorAll('button, a, [role="button"]'))
    .filter(el => visible(el) && name(el).includes(label));
  matched.forEach((el, i) => el.setAttribute(attr, String(i)));
  return matched.length;
})()`

const clickAncestorJS = `(() => {
  const el = document.querySelector('[%s="%d"]');
  if (!el) return false;
  const parent = el.parentElement && el.parentElement.closest('a, button, [role="button"], [onclick], [tabindex]');
  (parent || el).click();
  return true;
})()`

var (
	_ Browser = (*Chrome)(nil)
	_ Page    = (*chromePage)(nil)
)

// ChromeOptions configures the Chrome process.
type ChromeOptions struct {
	UserAgent string
	ExecPath  string
	Headless  bool
}

// Chrome is a Browser backed by a local Chrome driven over the DevTools
// protocol.
type Chrome struct {
	ctx    context.Context
	cancel context.CancelFunc
}

// NewChrome starts Chrome and returns a Browser whose pages share one
// browsing context.
func NewChrome(ctx context.Context, opts ChromeOptions) (*Chrome, error) {
	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.NoSandbox,
		chromedp.Flag("headless", opts.Headless),
	)
	if opts.UserAgent != "" {
		allocOpts = append(allocOpts, chromedp.UserAgent(opts.UserAgent))
	}
	if opts.ExecPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(opts.ExecPath))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, allocOpts...)
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)

	// Run with no actions launches the browser.
	if err := chromedp.Run(browserCtx); err != nil {
		cancelBrowser()
		cancelAlloc()
		return nil, fmt.Errorf("failed to start chrome: %w", err)
	}

	return &Chrome{
		ctx: browserCtx,
		cancel: func() {
			cancelBrowser()
			cancelAlloc()
		},
	}, nil
}

// NewPage opens a new tab.
func (c *Chrome) NewPage(ctx context.Context) (Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	tabCtx, cancel := chromedp.NewContext(c.ctx)
	p := &chromePage{
		ctx:       tabCtx,
		cancel:    cancel,
		lifecycle: newLifecycle(),
		observers: make(map[int]func(string)),
	}
	chromedp.ListenTarget(tabCtx, p.handleEvent)

	if err := chromedp.Run(tabCtx, network.Enable(), page.SetLifecycleEventsEnabled(true)); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to open tab: %w", err)
	}
	return p, nil
}

// Close shuts Chrome down.
func (c *Chrome) Close() error {
	err := chromedp.Cancel(c.ctx)
	c.cancel()
	return err
}

type chromePage struct {
	ctx    context.Context
	cancel context.CancelFunc

	mu        sync.Mutex
	mainFrame cdp.FrameID
	lifecycle *lifecycle
	observers map[int]func(string)
	nextID    int
}

func (p *chromePage) handleEvent(ev interface{}) {
	switch ev := ev.(type) {
	case *network.EventResponseReceived:
		if ev.Response == nil {
			return
		}
		p.mu.Lock()
		fns := make([]func(string), 0, len(p.observers))
		for _, fn := range p.observers {
			fns = append(fns, fn)
		}
		p.mu.Unlock()
		for _, fn := range fns {
			fn(ev.Response.URL)
		}

	case *page.EventFrameNavigated:
		if ev.Frame != nil && ev.Frame.ParentID == "" {
			p.mu.Lock()
			p.mainFrame = ev.Frame.ID
			p.lifecycle.commit(ev.Frame.LoaderID)
			p.mu.Unlock()
		}

	case *page.EventLifecycleEvent:
		p.mu.Lock()
		defer p.mu.Unlock()
		if p.mainFrame != "" && ev.FrameID != p.mainFrame {
			return
		}
		p.lifecycle.record(ev.LoaderID, ev.Name)
	}
}

// lifecycle tracks the milestones reached by each document of a frame, keyed
// by loader. Only the committed document's milestones count, so late events
// from the previous document cannot satisfy a wait on the next one.
type lifecycle struct {
	current cdp.LoaderID
	reached map[cdp.LoaderID]map[LoadState]bool
}

func newLifecycle() *lifecycle {
	return &lifecycle{reached: make(map[cdp.LoaderID]map[LoadState]bool)}
}

// commit makes loader the document whose milestones are reported. An empty
// loader means a navigation is pending and nothing has been reached yet.
func (l *lifecycle) commit(loader cdp.LoaderID) {
	l.current = loader
}

func (l *lifecycle) record(loader cdp.LoaderID, name string) {
	var state LoadState
	switch name {
	case "init":
		l.reached[loader] = make(map[LoadState]bool)
		return
	case "DOMContentLoaded":
		state = DOMContentLoaded
	case "load":
		state = Load
	case "networkIdle":
		state = NetworkIdle
	default:
		return
	}
	if l.reached[loader] == nil {
		l.reached[loader] = make(map[LoadState]bool)
	}
	l.reached[loader][state] = true
}

func (l *lifecycle) has(state LoadState) bool {
	if l.current == "" {
		return false
	}
	reached := l.reached[l.current]
	switch state {
	case DOMContentLoaded:
		return reached[DOMContentLoaded] || reached[Load] || reached[NetworkIdle]
	default:
		return reached[state]
	}
}

func (p *chromePage) commitLoader(loader cdp.LoaderID) {
	p.mu.Lock()
	p.lifecycle.commit(loader)
	p.mu.Unlock()
}

func (p *chromePage) hasReached(state LoadState) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lifecycle.has(state)
}

// scope derives a context from the tab that ends at timeout or when ctx ends.
func (p *chromePage) scope(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	runCtx, cancel := context.WithTimeout(p.ctx, timeout)
	stop := context.AfterFunc(ctx, cancel)
	return runCtx, func() {
		stop()
		cancel()
	}
}

func (p *chromePage) Goto(ctx context.Context, rawURL string, timeout time.Duration) error {
	start := time.Now()
	runCtx, cancel := p.scope(ctx, timeout)
	defer cancel()

	sameDocument := false
	err := chromedp.Run(runCtx, chromedp.ActionFunc(func(ctx context.Context) error {
		_, loaderID, errorText, err := page.Navigate(rawURL).Do(ctx)
		if err != nil {
			return err
		}
		if errorText != "" {
			return fmt.Errorf("navigate %s: %s", rawURL, errorText)
		}
		sameDocument = loaderID == ""
		if !sameDocument {
			p.commitLoader(loaderID)
		}
		return nil
	}))
	if err != nil {
		return err
	}
	if sameDocument {
		return nil
	}

	remaining := timeout - time.Since(start)
	if remaining <= 0 {
		return ErrTimeout
	}
	return p.WaitForLoadState(ctx, DOMContentLoaded, remaining)
}

func (p *chromePage) WaitForLoadState(ctx context.Context, state LoadState, timeout time.Duration) error {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		if p.hasReached(state) {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-p.ctx.Done():
			return p.ctx.Err()
		case <-deadline.C:
			return ErrTimeout
		case <-ticker.C:
		}
	}
}

func (p *chromePage) URL(ctx context.Context) (string, error) {
	return p.location(ctx, opTimeout)
}

func (p *chromePage) location(ctx context.Context, timeout time.Duration) (string, error) {
	runCtx, cancel := p.scope(ctx, timeout)
	defer cancel()

	var loc string
	if err := chromedp.Run(runCtx, chromedp.Location(&loc)); err != nil {
		return "", err
	}
	return loc, nil
}

func (p *chromePage) Content(ctx context.Context) (string, error) {
	runCtx, cancel := p.scope(ctx, opTimeout)
	defer cancel()

	var html string
	err := chromedp.Run(runCtx, chromedp.Evaluate(
		`document.documentElement ? document.documentElement.outerHTML : ""`, &html))
	if err != nil {
		return "", err
	}
	return html, nil
}

func (p *chromePage) ScrollBy(ctx context.Context, dy int) error {
	runCtx, cancel := p.scope(ctx, opTimeout)
	defer cancel()

	var ok bool
	return chromedp.Run(runCtx, chromedp.Evaluate(fmt.Sprintf("window.scrollBy(0, %d), true", dy), &ok))
}

func (p *chromePage) OnResponse(fn func(rawURL string)) func() {
	p.mu.Lock()
	id := p.nextID
	p.nextID++
	p.observers[id] = fn
	p.mu.Unlock()

	return func() {
		p.mu.Lock()
		delete(p.observers, id)
		p.mu.Unlock()
	}
}

func (p *chromePage) markClickable(ctx context.Context, label string) (int, error) {
	encoded, err := json.Marshal(label)
	if err != nil {
		return 0, err
	}
	var count int
	err = chromedp.Run(ctx, chromedp.Evaluate(fmt.Sprintf(markClickableJS, encoded, clickableAttr), &count))
	return count, err
}

func (p *chromePage) CountClickable(ctx context.Context, label string) (int, error) {
	runCtx, cancel := p.scope(ctx, opTimeout)
	defer cancel()
	return p.markClickable(runCtx, label)
}

func (p *chromePage) Click(ctx context.Context, label string, index int, timeout time.Duration) error {
	runCtx, cancel := p.scope(ctx, timeout)
	defer cancel()

	count, err := p.markClickable(runCtx, label)
	if err != nil {
		return err
	}
	if index >= count {
		return fmt.Errorf("clickable %q #%d not found", label, index)
	}
	sel := fmt.Sprintf(`[%s="%d"]`, clickableAttr, index)
	return chromedp.Run(runCtx, chromedp.Click(sel, chromedp.ByQuery, chromedp.NodeVisible))
}

func (p *chromePage) ClickAncestor(ctx context.Context, label string, index int) error {
	runCtx, cancel := p.scope(ctx, opTimeout)
	defer cancel()

	if _, err := p.markClickable(runCtx, label); err != nil {
		return err
	}
	var clicked bool
	if err := chromedp.Run(runCtx, chromedp.Evaluate(fmt.Sprintf(clickAncestorJS, clickableAttr, index), &clicked)); err != nil {
		return err
	}
	if !clicked {
		return fmt.Errorf("clickable %q #%d not found", label, index)
	}
	return nil
}

func (p *chromePage) WaitForURL(ctx context.Context, match func(string) bool, timeout time.Duration) (string, error) {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	ticker := time.NewTicker(2 * pollInterval)
	defer ticker.Stop()

	for {
		// Location fails while a navigation is committing; keep polling.
		if loc, err := p.location(ctx, time.Second); err == nil && match(loc) {
			return loc, nil
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-p.ctx.Done():
			return "", p.ctx.Err()
		case <-deadline.C:
			return "", ErrTimeout
		case <-ticker.C:
		}
	}
}

func (p *chromePage) GoBack(ctx context.Context, timeout time.Duration) error {
	runCtx, cancel := p.scope(ctx, timeout)
	defer cancel()

	p.commitLoader("")
	return chromedp.Run(runCtx, chromedp.NavigateBack())
}

func (p *chromePage) Close() error {
	err := chromedp.Cancel(p.ctx)
	p.cancel()
	return err
}
