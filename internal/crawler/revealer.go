package crawler

import (
	"context"

	"sjsage522/giveawayrelay/internal/browser"
	"sjsage522/giveawayrelay/internal/classifier"
	"sjsage522/giveawayrelay/logger"
)

// Revealer clicks "Enter"-style elements on a project page to surface
// giveaway URLs that are only reachable through client-side navigation.
type Revealer struct {
	opts Options
	log  *logger.Logger
}

// NewRevealer creates a revealer
func NewRevealer(opts Options, log *logger.Logger) *Revealer {
	if log == nil {
		log = logger.Nop()
	}
	return &Revealer{opts: opts, log: log}
}

// Reveal tries at most maxAttempts candidate elements, one at a time, and
// returns the accepted giveaway URLs they navigated to. The page is brought
// back to its original URL after every attempt. A failed attempt never
// aborts the remaining ones.
func (r *Revealer) Reveal(ctx context.Context, page browser.Page, maxAttempts int) []string {
	if maxAttempts <= 0 {
		return nil
	}
	origin, err := page.URL(ctx)
	if err != nil {
		return nil
	}
	count, err := page.CountClickable(ctx, r.opts.RevealLabel)
	if err != nil || count == 0 {
		return nil
	}
	if count > maxAttempts {
		count = maxAttempts
	}

	found := newURLSet()
	for i := 0; i < count; i++ {
		if ctx.Err() != nil {
			break
		}
		if target, ok := r.attempt(ctx, page, origin, i); ok && classifier.IsConcreteGiveaway(target) {
			found.Add(target)
		}
		r.restore(ctx, page, origin)
	}

	r.log.Debug().
		Str("url", origin).
		Int("attempts", count).
		Int("revealed", found.Len()).
		Msg("Reveal finished")
	return found.List()
}

// attempt clicks the index-th candidate and reports where the page went.
// A direct click that does not navigate is retried on the nearest
// interactive ancestor.
func (r *Revealer) attempt(ctx context.Context, page browser.Page, origin string, index int) (string, bool) {
	moved := func(u string) bool { return u != origin }

	if err := page.Click(ctx, r.opts.RevealLabel, index, r.opts.ClickNavigationTimeout); err == nil {
		if target, err := page.WaitForURL(ctx, moved, r.opts.ClickNavigationTimeout); err == nil {
			return target, true
		}
	}

	if err := page.ClickAncestor(ctx, r.opts.RevealLabel, index); err != nil {
		return "", false
	}
	target, err := page.WaitForURL(ctx, moved, r.opts.ClickNavigationTimeout)
	if err != nil {
		return "", false
	}
	return target, true
}

// restore returns the page to origin, reloading it when history fails.
func (r *Revealer) restore(ctx context.Context, page browser.Page, origin string) {
	if current, err := page.URL(ctx); err == nil && current == origin {
		return
	}
	if err := page.GoBack(ctx, r.opts.BackTimeout); err == nil {
		if current, err := page.URL(ctx); err == nil && current == origin {
			_ = page.WaitForLoadState(ctx, browser.NetworkIdle, r.opts.ChildIdleTimeout)
			return
		}
	}
	if err := page.Goto(ctx, origin, r.opts.ChildNavigationTimeout); err != nil {
		r.log.Debug().Err(err).Str("url", origin).Msg("Failed to return to reveal origin")
		return
	}
	_ = page.WaitForLoadState(ctx, browser.NetworkIdle, r.opts.ChildIdleTimeout)
}
