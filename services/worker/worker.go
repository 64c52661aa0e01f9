package worker

import (
	"context"
	"errors"
	"regexp"
	"time"

	"sjsage522/giveawayrelay/internal"
	"sjsage522/giveawayrelay/internal/crawler"
	"sjsage522/giveawayrelay/internal/meta"
	"sjsage522/giveawayrelay/logger"
	relayerrors "sjsage522/giveawayrelay/pkg/errors"
	"sjsage522/giveawayrelay/services/cache"
	"sjsage522/giveawayrelay/services/publisher"
	"sjsage522/giveawayrelay/services/sources"
	"sjsage522/giveawayrelay/services/state"

	"golang.org/x/time/rate"
)

const saveTimeout = 30 * time.Second

// Options tune a run.
type Options struct {
	// SeedOnFirstRun records discoveries silently when the run starts with
	// an empty state.
	SeedOnFirstRun bool
	// Keywords, when set, must match title, description or URL for a
	// notification to be sent. Filtered URLs are still recorded.
	Keywords *regexp.Regexp
	// NotifyInterval is the minimum spacing between notifications.
	NotifyInterval time.Duration

	Crawl           crawler.Options
	MetaNavTimeout  time.Duration
	MetaIdleTimeout time.Duration
}

// Summary counts what a run did.
type Summary struct {
	Sources          int
	SkippedSources   int
	FailedSources    int
	Candidates       int
	Seeded           int
	Filtered         int
	Published        int
	FailedDeliveries int
}

// Worker performs one relay run
type Worker struct {
	sources   sources.Feed
	collector crawler.Collector
	meta      *meta.Fetcher
	store     state.Store
	publisher publisher.Publisher
	cooldown  *cache.Cooldown
	limiter   *rate.Limiter
	opts      Options
	log       *logger.Logger
	now       func() time.Time
}

// NewWorker creates a new worker
func NewWorker(deps internal.Dependencies, opts Options, log *logger.Logger) *Worker {
	if log == nil {
		log = logger.Nop()
	}

	limit := rate.Inf
	if opts.NotifyInterval > 0 {
		limit = rate.Every(opts.NotifyInterval)
	}

	return &Worker{
		sources:   deps.Sources,
		collector: crawler.NewEngine(deps.Browser, opts.Crawl, log),
		meta:      meta.NewFetcher(deps.Browser, opts.MetaNavTimeout, opts.MetaIdleTimeout, log),
		store:     deps.State,
		publisher: deps.Publisher,
		cooldown:  deps.Cooldown,
		limiter:   rate.NewLimiter(limit, 1),
		opts:      opts,
		log:       log,
		now:       time.Now,
	}
}

// Run crawls every source once, notifies new giveaways and persists the
// state. Only state persistence failures are returned; everything else is
// logged and counted.
func (w *Worker) Run(ctx context.Context) (Summary, error) {
	var summary Summary

	srcs := w.sources.Load(ctx)
	summary.Sources = len(srcs)

	seen, err := w.store.Load(ctx)
	if err != nil {
		return summary, err
	}

	// Decided once: a run that starts empty seeds every discovery.
	seed := w.opts.SeedOnFirstRun && seen.Len() == 0
	w.log.Info().
		Int("sources", len(srcs)).
		Int("seen", seen.Len()).
		Bool("seed", seed).
		Msg("Run started")

	for _, src := range srcs {
		if ctx.Err() != nil {
			break
		}
		w.processSource(ctx, src, seen, seed, &summary)
	}

	if t, ok := w.publisher.(publisher.Trimmer); ok {
		if err := t.Trim(ctx); err != nil {
			w.log.Warn().Err(err).Msg("Failed to trim streams")
		}
	}

	// Persist even when the run was interrupted.
	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), saveTimeout)
	defer cancel()
	if err := w.store.Save(saveCtx, seen); err != nil {
		return summary, err
	}

	w.log.Info().
		Int("sources", summary.Sources).
		Int("skipped", summary.SkippedSources).
		Int("failed", summary.FailedSources).
		Int("candidates", summary.Candidates).
		Int("seeded", summary.Seeded).
		Int("filtered", summary.Filtered).
		Int("published", summary.Published).
		Int("failed_deliveries", summary.FailedDeliveries).
		Int("seen", seen.Len()).
		Msg("Run finished")
	return summary, nil
}

func (w *Worker) processSource(ctx context.Context, src sources.Source, seen *state.SeenState, seed bool, summary *Summary) {
	log := w.log.WithFields(logger.Fields{"source": src.Name, "source_url": src.URL})

	if w.cooldown.Active(src.URL) {
		log.Info().Msg("Source cooling down, skipping")
		summary.SkippedSources++
		return
	}

	log.Info().Msg("Opening source")
	urls, err := w.collector.Collect(ctx, src.URL)
	if err != nil {
		log.Warn().Err(err).Msg("Source failed")
		summary.FailedSources++

		var relayErr *relayerrors.RelayError
		if errors.As(err, &relayErr) && relayErr.Type == relayerrors.ErrorTypeNavigation {
			if err := w.cooldown.Start(src.URL); err != nil {
				log.Warn().Err(err).Msg("Failed to start cooldown")
			}
		}
		return
	}

	summary.Candidates += len(urls)
	log.Info().Int("candidates", len(urls)).Msg("Source crawled")

	for _, u := range urls {
		if ctx.Err() != nil {
			return
		}
		if seen.Has(u) {
			continue
		}
		if seed {
			seen.Add(u, w.now())
			summary.Seeded++
			continue
		}
		w.notify(ctx, log, src, u, seen, summary)
	}
}

func (w *Worker) notify(ctx context.Context, log *logger.Logger, src sources.Source, rawURL string, seen *state.SeenState, summary *Summary) {
	m := w.meta.Fetch(ctx, rawURL)

	if w.opts.Keywords != nil && !w.opts.Keywords.MatchString(m.Title+" "+m.Description+" "+rawURL) {
		log.Debug().Str("url", rawURL).Str("title", m.Title).Msg("Filtered by keywords")
		seen.Add(rawURL, w.now())
		summary.Filtered++
		return
	}

	if err := w.limiter.Wait(ctx); err != nil {
		// Interrupted: leave the URL unseen so the next run picks it up.
		return
	}

	err := w.publisher.Publish(ctx, publisher.Notification{
		SourceName:  src.Name,
		URL:         rawURL,
		Title:       m.DisplayTitle(),
		Description: m.Description,
		At:          w.now(),
	})
	if err != nil {
		log.Error().Err(err).Str("url", rawURL).Msg("Failed to publish notification")
		summary.FailedDeliveries++
	} else {
		log.Info().Str("url", rawURL).Str("title", m.DisplayTitle()).Msg("Published giveaway")
		summary.Published++
	}
	seen.Add(rawURL, w.now())
}
