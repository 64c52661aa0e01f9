package crawler

import (
	"context"

	"sjsage522/giveawayrelay/internal/browser"
	"sjsage522/giveawayrelay/internal/classifier"
	"sjsage522/giveawayrelay/logger"
	relayerrors "sjsage522/giveawayrelay/pkg/errors"
)

// Collector discovers candidate giveaway URLs for one source.
type Collector interface {
	Collect(ctx context.Context, sourceURL string) ([]string, error)
}

// Engine crawls a source page, falling back to reveal clicks and a bounded
// walk over promising same-host child pages when the root has no hits.
type Engine struct {
	browser  browser.Browser
	scanner  *Scanner
	revealer *Revealer
	opts     Options
	log      *logger.Logger
}

var _ Collector = (*Engine)(nil)

// NewEngine creates an engine opening pages on b
func NewEngine(b browser.Browser, opts Options, log *logger.Logger) *Engine {
	if log == nil {
		log = logger.Nop()
	}
	return &Engine{
		browser:  b,
		scanner:  NewScanner(opts),
		revealer: NewRevealer(opts, log),
		opts:     opts,
		log:      log,
	}
}

// Collect returns the candidate giveaway URLs found from sourceURL, in
// discovery order. A source whose root page cannot be loaded or scanned
// yields no candidates and a *RelayError. Child page failures are logged
// and skipped.
func (e *Engine) Collect(ctx context.Context, sourceURL string) ([]string, error) {
	page, err := e.browser.NewPage(ctx)
	if err != nil {
		return nil, relayerrors.NewNavigation(sourceURL, "failed to open page", err)
	}
	defer page.Close()

	if err := page.Goto(ctx, sourceURL, e.opts.RootNavigationTimeout); err != nil {
		return nil, relayerrors.NewNavigation(sourceURL, "failed to load source", err)
	}
	_ = page.WaitForLoadState(ctx, browser.NetworkIdle, e.opts.RootIdleTimeout)

	res, err := e.scanner.Scan(ctx, page)
	if err != nil {
		return nil, relayerrors.NewScan(sourceURL, "failed to scan source", err)
	}

	slug := classifier.ProjectSlug(sourceURL)
	found := newURLSet()
	found.Add(e.hits(res.Links, slug)...)

	e.log.Debug().
		Str("url", sourceURL).
		Stringer("family", classifier.FamilyOf(sourceURL)).
		Int("links", len(res.Links)).
		Int("network", res.NetworkURLCount).
		Int("hits", found.Len()).
		Msg("Scanned source")

	if found.Len() == 0 && classifier.IsGenericProjectPage(sourceURL) {
		found.Add(e.revealer.Reveal(ctx, page, e.opts.RevealAttempts)...)
	}

	if found.Len() == 0 {
		e.exploreChildren(ctx, sourceURL, slug, res.Links, found)
	}

	return found.List(), nil
}

// hits keeps accepted giveaway URLs, restricted to the project when slug is
// set.
func (e *Engine) hits(links []string, slug string) []string {
	var out []string
	for _, u := range links {
		if !classifier.IsConcreteGiveaway(u) {
			continue
		}
		if slug != "" && !classifier.InProject(u, slug) {
			continue
		}
		out = append(out, u)
	}
	return out
}

// children picks the same-host, non-giveaway links worth opening.
func (e *Engine) children(sourceURL, slug string, links []string) []string {
	var out []string
	seen := map[string]bool{sourceURL: true}
	for _, u := range links {
		if len(out) >= e.opts.MaxChildPages {
			break
		}
		if seen[u] {
			continue
		}
		seen[u] = true
		if !classifier.SameHost(u, sourceURL) || classifier.IsConcreteGiveaway(u) || !classifier.LooksPromising(u) {
			continue
		}
		if slug != "" && !classifier.InProject(u, slug) {
			continue
		}
		out = append(out, u)
	}
	return out
}

func (e *Engine) exploreChildren(ctx context.Context, sourceURL, slug string, links []string, found *urlSet) {
	children := e.children(sourceURL, slug, links)
	if len(children) == 0 {
		return
	}
	e.log.Debug().Str("url", sourceURL).Int("children", len(children)).Msg("Exploring child pages")

	for _, child := range children {
		if ctx.Err() != nil {
			return
		}
		hits, err := e.exploreChild(ctx, child, slug)
		if err != nil {
			e.log.Warn().Err(err).Str("source", sourceURL).Str("child", child).Msg("Child page failed")
			continue
		}
		found.Add(hits...)
		if found.Len() > 0 {
			return
		}
	}
}

func (e *Engine) exploreChild(ctx context.Context, childURL, slug string) ([]string, error) {
	page, err := e.browser.NewPage(ctx)
	if err != nil {
		return nil, relayerrors.NewNavigation(childURL, "failed to open page", err)
	}
	defer page.Close()

	if err := page.Goto(ctx, childURL, e.opts.ChildNavigationTimeout); err != nil {
		return nil, relayerrors.NewNavigation(childURL, "failed to load child page", err)
	}
	_ = page.WaitForLoadState(ctx, browser.NetworkIdle, e.opts.ChildIdleTimeout)

	res, err := e.scanner.Scan(ctx, page)
	if err != nil {
		return nil, relayerrors.NewScan(childURL, "failed to scan child page", err)
	}

	hits := e.hits(res.Links, slug)
	if len(hits) == 0 && classifier.IsGenericProjectPage(childURL) {
		hits = e.revealer.Reveal(ctx, page, e.opts.RevealAttempts)
	}

	e.log.Debug().
		Str("child", childURL).
		Int("links", len(res.Links)).
		Int("hits", len(hits)).
		Msg("Scanned child page")
	return hits, nil
}
