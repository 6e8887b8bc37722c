// Package eventbus provides an in-memory implementation of
// cowrite.EventBus with glob-pattern subscriptions.
//
// Handlers subscribe to event-type patterns such as "operation.*" or
// "*". Publication is synchronous: handlers run on the publisher's
// goroutine in subscription order, so sinks observe events in the same
// order as the state changes that produced them. A slow or external
// sink should hand off internally.
package eventbus

import (
	"context"
	"fmt"
	"sync"

	"github.com/deepnoodle-ai/cowrite"
	"github.com/deepnoodle-ai/cowrite/slogger"
	"github.com/gobwas/glob"
)

// Handler processes one published event. A handler error is logged and
// does not stop delivery to other handlers.
type Handler func(ctx context.Context, event *cowrite.Event) error

// Options are used to configure a Bus.
type Options struct {
	Logger slogger.Logger
}

type subscription struct {
	id      int
	pattern string
	matcher glob.Glob
	handler Handler
}

// Bus is an in-memory event bus. Safe for concurrent use.
type Bus struct {
	mu     sync.RWMutex
	subs   []*subscription
	nextID int
	logger slogger.Logger
}

// New returns a Bus configured by opts.
func New(opts Options) *Bus {
	if opts.Logger == nil {
		opts.Logger = slogger.DefaultLogger
	}
	return &Bus{
		logger: slogger.WithComponent(opts.Logger, "eventbus"),
	}
}

// Subscribe registers a handler for event types matching pattern.
// Patterns use glob syntax with "." as the separator, so "operation.*"
// matches "operation.applied" but not a hypothetical
// "operation.batch.received". The returned function removes the
// subscription.
func (b *Bus) Subscribe(pattern string, handler Handler) (func(), error) {
	if handler == nil {
		return nil, fmt.Errorf("handler is required")
	}
	matcher, err := glob.Compile(pattern, '.')
	if err != nil {
		return nil, fmt.Errorf("invalid event pattern %q: %w", pattern, err)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	sub := &subscription{
		id:      b.nextID,
		pattern: pattern,
		matcher: matcher,
		handler: handler,
	}
	b.subs = append(b.subs, sub)
	id := sub.id
	return func() { b.unsubscribe(id) }, nil
}

func (b *Bus) unsubscribe(id int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, sub := range b.subs {
		if sub.id == id {
			b.subs = append(b.subs[:i], b.subs[i+1:]...)
			return
		}
	}
}

// Publish delivers the event to every matching handler, synchronously
// and in subscription order. The event is validated first; handler
// errors are logged and swallowed.
func (b *Bus) Publish(ctx context.Context, event *cowrite.Event) error {
	if err := event.Validate(); err != nil {
		return fmt.Errorf("invalid event: %w", err)
	}
	b.mu.RLock()
	subs := make([]*subscription, len(b.subs))
	copy(subs, b.subs)
	b.mu.RUnlock()

	for _, sub := range subs {
		if !sub.matcher.Match(string(event.Type)) {
			continue
		}
		if err := sub.handler(ctx, event); err != nil {
			b.logger.Warn("event handler failed",
				"event_type", event.Type,
				"event_id", event.ID,
				"pattern", sub.pattern,
				"error", err)
		}
	}
	return nil
}

// SubscriberCount returns the number of active subscriptions.
func (b *Bus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
