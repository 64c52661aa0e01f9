// Package browsertest provides an in-memory browser.Browser for tests.
package browsertest

import (
	"context"
	"fmt"
	"html"
	"strings"
	"sync"
	"time"

	"sjsage522/giveawayrelay/internal/browser"
)

// Button is a clickable element on a fake site.
type Button struct {
	Label string
	// Target is the URL the click navigates to; "" means nothing happens.
	Target string
	// ViaAncestor means only a click on the enclosing element navigates.
	ViaAncestor bool
}

// Site describes the document served for one URL.
type Site struct {
	Title         string
	OGTitle       string
	OGDescription string

	// Links are anchors present as soon as the document is parsed.
	Links []string
	// LateLinks are anchors rendered after the first snapshot.
	LateLinks []string
	// Responses are network response URLs observed while the page settles.
	Responses []string
	Buttons   []Button

	// GotoErr fails navigation to this site.
	GotoErr error
	// NeverIdle makes network-idle waits time out.
	NeverIdle bool
}

// Browser is a scripted browser.Browser.
type Browser struct {
	mu     sync.Mutex
	sites  map[string]*Site
	visits []string
	opened int
	closed int
	clicks []string
	newErr error
}

// New returns a browser serving the given sites keyed by absolute URL.
func New(sites map[string]*Site) *Browser {
	if sites == nil {
		sites = make(map[string]*Site)
	}
	return &Browser{sites: sites}
}

// FailNewPage makes every NewPage call fail with err.
func (b *Browser) FailNewPage(err error) {
	b.mu.Lock()
	b.newErr = err
	b.mu.Unlock()
}

// NewPage opens a blank page.
func (b *Browser) NewPage(ctx context.Context) (browser.Page, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.newErr != nil {
		return nil, b.newErr
	}
	b.opened++
	return &Page{browser: b, url: "about:blank"}, nil
}

// Visits returns every URL navigated to with Goto, in order.
func (b *Browser) Visits() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.visits...)
}

// Clicks returns a log of click attempts, formatted "<kind> <url> #<index>".
func (b *Browser) Clicks() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.clicks...)
}

// Opened returns how many pages were opened.
func (b *Browser) Opened() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.opened
}

// Closed returns how many pages were closed.
func (b *Browser) Closed() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}

func (b *Browser) site(rawURL string) *Site {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sites[rawURL]
}

func (b *Browser) record(f func()) {
	b.mu.Lock()
	f()
	b.mu.Unlock()
}

// Page is a fake tab.
type Page struct {
	browser *Browser

	mu        sync.Mutex
	url       string
	history   []string
	snapshots int
	observers map[int]*observer
	nextID    int
	closed    bool
}

// observer receives a loaded site's Responses once per document.
type observer struct {
	fn        func(string)
	delivered bool
}

func (p *Page) resetDocument() {
	p.snapshots = 0
	for _, o := range p.observers {
		o.delivered = false
	}
}

var _ browser.Page = (*Page)(nil)

func (p *Page) current() (string, *Site) {
	p.mu.Lock()
	u := p.url
	p.mu.Unlock()
	return u, p.browser.site(u)
}

func (p *Page) load(rawURL string) {
	p.mu.Lock()
	if p.url != "about:blank" {
		p.history = append(p.history, p.url)
	}
	p.url = rawURL
	p.resetDocument()
	p.mu.Unlock()
}

func (p *Page) Goto(ctx context.Context, rawURL string, timeout time.Duration) error {
	p.browser.record(func() { p.browser.visits = append(p.browser.visits, rawURL) })
	site := p.browser.site(rawURL)
	if site == nil {
		return fmt.Errorf("navigate %s: net::ERR_NAME_NOT_RESOLVED", rawURL)
	}
	if site.GotoErr != nil {
		return site.GotoErr
	}
	p.load(rawURL)
	return nil
}

func (p *Page) WaitForLoadState(ctx context.Context, state browser.LoadState, timeout time.Duration) error {
	_, site := p.current()
	if site == nil {
		return nil
	}

	// Responses keep arriving while the page settles, so every observer
	// sees them once regardless of when it was registered.
	p.mu.Lock()
	var fns []func(string)
	for _, o := range p.observers {
		if !o.delivered {
			o.delivered = true
			fns = append(fns, o.fn)
		}
	}
	p.mu.Unlock()

	for _, r := range site.Responses {
		for _, fn := range fns {
			fn(r)
		}
	}

	if state == browser.NetworkIdle && site.NeverIdle {
		return browser.ErrTimeout
	}
	return nil
}

func (p *Page) URL(ctx context.Context) (string, error) {
	u, _ := p.current()
	return u, nil
}

func (p *Page) Content(ctx context.Context) (string, error) {
	_, site := p.current()
	if site == nil {
		return "<html><head></head><body></body></html>", nil
	}

	p.mu.Lock()
	p.snapshots++
	late := p.snapshots > 1
	p.mu.Unlock()

	var sb strings.Builder
	sb.WriteString("<html><head>")
	if site.Title != "" {
		fmt.Fprintf(&sb, "<title>%s</title>", html.EscapeString(site.Title))
	}
	if site.OGTitle != "" {
		fmt.Fprintf(&sb, `<meta property="og:title" content="%s">`, html.EscapeString(site.OGTitle))
	}
	if site.OGDescription != "" {
		fmt.Fprintf(&sb, `<meta property="og:description" content="%s">`, html.EscapeString(site.OGDescription))
	}
	sb.WriteString("</head><body>")
	links := site.Links
	if late {
		links = append(append([]string(nil), site.Links...), site.LateLinks...)
	}
	for _, l := range links {
		fmt.Fprintf(&sb, `<a href="%s">link</a>`, html.EscapeString(l))
	}
	for _, btn := range site.Buttons {
		fmt.Fprintf(&sb, "<button>%s</button>", html.EscapeString(btn.Label))
	}
	sb.WriteString("</body></html>")
	return sb.String(), nil
}

func (p *Page) ScrollBy(ctx context.Context, dy int) error {
	return nil
}

func (p *Page) OnResponse(fn func(rawURL string)) func() {
	p.mu.Lock()
	if p.observers == nil {
		p.observers = make(map[int]*observer)
	}
	id := p.nextID
	p.nextID++
	p.observers[id] = &observer{fn: fn}
	p.mu.Unlock()

	return func() {
		p.mu.Lock()
		delete(p.observers, id)
		p.mu.Unlock()
	}
}

func (p *Page) matching(label string) []Button {
	_, site := p.current()
	if site == nil {
		return nil
	}
	var out []Button
	for _, btn := range site.Buttons {
		if strings.Contains(strings.ToLower(btn.Label), strings.ToLower(label)) {
			out = append(out, btn)
		}
	}
	return out
}

func (p *Page) CountClickable(ctx context.Context, label string) (int, error) {
	return len(p.matching(label)), nil
}

func (p *Page) click(kind, label string, index int, ancestor bool) error {
	u, _ := p.current()
	p.browser.record(func() { p.browser.clicks = append(p.browser.clicks, fmt.Sprintf("%s %s #%d", kind, u, index)) })

	buttons := p.matching(label)
	if index >= len(buttons) {
		return fmt.Errorf("clickable %q #%d not found", label, index)
	}
	btn := buttons[index]
	if btn.Target != "" && btn.ViaAncestor == ancestor {
		p.load(btn.Target)
	}
	return nil
}

func (p *Page) Click(ctx context.Context, label string, index int, timeout time.Duration) error {
	return p.click("click", label, index, false)
}

func (p *Page) ClickAncestor(ctx context.Context, label string, index int) error {
	return p.click("ancestor", label, index, true)
}

func (p *Page) WaitForURL(ctx context.Context, match func(string) bool, timeout time.Duration) (string, error) {
	u, _ := p.current()
	if match(u) {
		return u, nil
	}
	return "", browser.ErrTimeout
}

func (p *Page) GoBack(ctx context.Context, timeout time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.history) == 0 {
		return fmt.Errorf("no history entry")
	}
	p.url = p.history[len(p.history)-1]
	p.history = p.history[:len(p.history)-1]
	p.resetDocument()
	return nil
}

func (p *Page) Close() error {
	p.mu.Lock()
	already := p.closed
	p.closed = true
	p.mu.Unlock()
	if !already {
		p.browser.record(func() { p.browser.closed++ })
	}
	return nil
}
