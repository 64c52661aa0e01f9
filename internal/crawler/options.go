package crawler

import (
	"context"
	"time"
)

// Options bounds one crawl. Every wait is capped by one of these timeouts.
type Options struct {
	// MaxChildPages caps how many child pages are explored per source.
	MaxChildPages int
	// RevealAttempts caps how many "Enter" elements are clicked per page.
	RevealAttempts int
	// RevealLabel is the accessible-name fragment of reveal buttons.
	RevealLabel string

	RootNavigationTimeout  time.Duration
	RootIdleTimeout        time.Duration
	ChildNavigationTimeout time.Duration
	ChildIdleTimeout       time.Duration

	// ScanLoadTimeout and ScanIdleTimeout bound the scanner's own waits.
	ScanLoadTimeout time.Duration
	ScanIdleTimeout time.Duration
	// SettleDelay separates the two link snapshots.
	SettleDelay time.Duration
	// ScrollDuration is spread over ScrollSteps scrolls of ScrollStep pixels.
	ScrollDuration time.Duration
	ScrollSteps    int
	ScrollStep     int

	ClickNavigationTimeout time.Duration
	BackTimeout            time.Duration
}

// DefaultOptions returns the production crawl bounds.
func DefaultOptions() Options {
	return Options{
		MaxChildPages:          8,
		RevealAttempts:         3,
		RevealLabel:            "enter",
		RootNavigationTimeout:  45 * time.Second,
		RootIdleTimeout:        10 * time.Second,
		ChildNavigationTimeout: 30 * time.Second,
		ChildIdleTimeout:       8 * time.Second,
		ScanLoadTimeout:        45 * time.Second,
		ScanIdleTimeout:        10 * time.Second,
		SettleDelay:            3 * time.Second,
		ScrollDuration:         3 * time.Second,
		ScrollSteps:            4,
		ScrollStep:             800,
		ClickNavigationTimeout: 5 * time.Second,
		BackTimeout:            15 * time.Second,
	}
}

// sleep waits for d or until ctx ends.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// urlSet is an insertion-ordered set of URLs.
type urlSet struct {
	order []string
	seen  map[string]struct{}
}

func newURLSet() *urlSet {
	return &urlSet{seen: make(map[string]struct{})}
}

func (s *urlSet) Add(urls ...string) {
	for _, u := range urls {
		if _, ok := s.seen[u]; ok {
			continue
		}
		s.seen[u] = struct{}{}
		s.order = append(s.order, u)
	}
}

func (s *urlSet) Len() int {
	return len(s.order)
}

func (s *urlSet) List() []string {
	return append([]string(nil), s.order...)
}
