// Package meta derives the title and description shown in a giveaway
// notification from the giveaway's own page.
package meta

import (
	"context"
	"strings"
	"time"

	"sjsage522/giveawayrelay/helpers"
	"sjsage522/giveawayrelay/internal/browser"
	"sjsage522/giveawayrelay/logger"

	"github.com/PuerkitoBio/goquery"
)

const (
	// MaxTitleLength caps Meta.Title in characters
	MaxTitleLength = 240
	// MaxDescriptionLength caps Meta.Description in characters
	MaxDescriptionLength = 1900
	// FallbackTitle is used when a page exposes no title at all
	FallbackTitle = "New giveaway"
)

// Meta describes one giveaway page.
type Meta struct {
	Title       string
	Description string
}

// DisplayTitle returns the title, or FallbackTitle when it is empty.
func (m Meta) DisplayTitle() string {
	if m.Title == "" {
		return FallbackTitle
	}
	return m.Title
}

// Extract reads og:title (else <title>, else FallbackTitle) and
// og:description from a rendered document.
func Extract(content string) Meta {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return Meta{Title: FallbackTitle}
	}

	title := metaProperty(doc, "og:title")
	if title == "" {
		title = strings.TrimSpace(doc.Find("title").First().Text())
	}
	if title == "" {
		title = FallbackTitle
	}

	return Meta{
		Title:       helpers.Truncate(title, MaxTitleLength),
		Description: helpers.Truncate(metaProperty(doc, "og:description"), MaxDescriptionLength),
	}
}

func metaProperty(doc *goquery.Document, property string) string {
	content, _ := doc.Find(`meta[property="` + property + `"]`).First().Attr("content")
	return strings.TrimSpace(content)
}

// Fetcher opens a giveaway URL in a fresh page and extracts its Meta.
type Fetcher struct {
	browser     browser.Browser
	navTimeout  time.Duration
	idleTimeout time.Duration
	log         *logger.Logger
}

// NewFetcher creates a fetcher
func NewFetcher(b browser.Browser, navTimeout, idleTimeout time.Duration, log *logger.Logger) *Fetcher {
	if log == nil {
		log = logger.Nop()
	}
	return &Fetcher{browser: b, navTimeout: navTimeout, idleTimeout: idleTimeout, log: log}
}

// Fetch never fails: a page that cannot be loaded yields an empty Meta.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) Meta {
	page, err := f.browser.NewPage(ctx)
	if err != nil {
		f.log.Debug().Err(err).Str("url", rawURL).Msg("Failed to open meta page")
		return Meta{}
	}
	defer page.Close()

	if err := page.Goto(ctx, rawURL, f.navTimeout); err != nil {
		f.log.Debug().Err(err).Str("url", rawURL).Msg("Failed to load giveaway page")
		return Meta{}
	}
	_ = page.WaitForLoadState(ctx, browser.NetworkIdle, f.idleTimeout)

	content, err := page.Content(ctx)
	if err != nil {
		f.log.Debug().Err(err).Str("url", rawURL).Msg("Failed to read giveaway page")
		return Meta{}
	}
	return Extract(content)
}
