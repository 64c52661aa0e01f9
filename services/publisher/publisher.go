package publisher

import (
	"context"
	"errors"
	"time"
)

// Notification announces one newly discovered giveaway.
type Notification struct {
	SourceName  string    `json:"source"`
	URL         string    `json:"url"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	At          time.Time `json:"discovered_at"`
}

// Publisher represents a service delivering notifications
type Publisher interface {
	// Publish delivers one notification. Failures are not retried.
	Publish(ctx context.Context, n Notification) error

	// Close closes the publisher connection
	Close() error
}

// Trimmer is implemented by publishers backed by capped streams.
type Trimmer interface {
	// Trim cuts the stream down to its configured maximum length
	Trim(ctx context.Context) error
}

// Fanout publishes every notification to all of its publishers.
type Fanout []Publisher

// Publish tries every publisher and joins their errors.
func (f Fanout) Publish(ctx context.Context, n Notification) error {
	var errs []error
	for _, p := range f {
		if err := p.Publish(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Trim trims every publisher that supports it.
func (f Fanout) Trim(ctx context.Context) error {
	var errs []error
	for _, p := range f {
		if t, ok := p.(Trimmer); ok {
			if err := t.Trim(ctx); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// Close closes every publisher.
func (f Fanout) Close() error {
	var errs []error
	for _, p := range f {
		if err := p.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
