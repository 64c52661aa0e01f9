package crawler

import (
	"context"
	"net/url"
	"strings"
	"sync"
	"time"

	"sjsage522/giveawayrelay/internal/browser"
	"sjsage522/giveawayrelay/internal/classifier"

	"github.com/PuerkitoBio/goquery"
)

// ScanResult is what one page scan harvested.
type ScanResult struct {
	// Links holds every anchor target from both snapshots plus the
	// giveaway URLs seen in network responses, without duplicates.
	Links []string
	// NetworkURLCount is the number of giveaway URLs observed in network
	// responses, whether or not they also appear as anchors.
	NetworkURLCount int
}

// Scanner harvests candidate links from an already loaded page.
type Scanner struct {
	opts Options
}

// NewScanner creates a scanner with the given bounds
func NewScanner(opts Options) *Scanner {
	return &Scanner{opts: opts}
}

// Scan merges two DOM snapshots taken SettleDelay apart with the giveaway
// URLs observed in network responses. Only reading the document can fail;
// every wait is best-effort.
func (s *Scanner) Scan(ctx context.Context, page browser.Page) (ScanResult, error) {
	var mu sync.Mutex
	network := newURLSet()
	off := page.OnResponse(func(rawURL string) {
		if !classifier.IsConcreteGiveaway(rawURL) {
			return
		}
		mu.Lock()
		network.Add(rawURL)
		mu.Unlock()
	})
	defer off()

	_ = page.WaitForLoadState(ctx, browser.DOMContentLoaded, s.opts.ScanLoadTimeout)
	_ = page.WaitForLoadState(ctx, browser.NetworkIdle, s.opts.ScanIdleTimeout)

	if err := s.scroll(ctx, page); err != nil {
		return ScanResult{}, err
	}

	first, err := s.snapshot(ctx, page)
	if err != nil {
		return ScanResult{}, err
	}
	if err := sleep(ctx, s.opts.SettleDelay); err != nil {
		return ScanResult{}, err
	}
	second, err := s.snapshot(ctx, page)
	if err != nil {
		return ScanResult{}, err
	}

	links := newURLSet()
	links.Add(first...)
	links.Add(second...)

	mu.Lock()
	observed := network.List()
	mu.Unlock()
	links.Add(observed...)

	return ScanResult{Links: links.List(), NetworkURLCount: len(observed)}, nil
}

// scroll nudges lazy-loaded content into the document. Scroll failures are
// ignored; only context cancellation stops it.
func (s *Scanner) scroll(ctx context.Context, page browser.Page) error {
	if s.opts.ScrollSteps <= 0 {
		return nil
	}
	pause := s.opts.ScrollDuration / time.Duration(s.opts.ScrollSteps)
	for i := 0; i < s.opts.ScrollSteps; i++ {
		_ = page.ScrollBy(ctx, s.opts.ScrollStep)
		if err := sleep(ctx, pause); err != nil {
			return err
		}
	}
	return nil
}

// snapshot returns the absolute http(s) targets of every anchor currently
// in the rendered document.
func (s *Scanner) snapshot(ctx context.Context, page browser.Page) ([]string, error) {
	content, err := page.Content(ctx)
	if err != nil {
		return nil, err
	}
	current, err := page.URL(ctx)
	if err != nil {
		return nil, err
	}
	return extractLinks(current, content)
}

func extractLinks(pageURL, content string) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return nil, err
	}

	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, err
	}
	if href, ok := doc.Find("base[href]").First().Attr("href"); ok {
		if ref, err := base.Parse(strings.TrimSpace(href)); err == nil {
			base = ref
		}
	}

	var links []string
	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		ref, err := base.Parse(strings.TrimSpace(href))
		if err != nil || (ref.Scheme != "http" && ref.Scheme != "https") {
			return
		}
		links = append(links, ref.String())
	})
	return links, nil
}
