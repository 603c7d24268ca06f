// Package events provides a synchronous publish/subscribe bus that fans
// chain records out to in-process consumers such as the indexer.
package events

import (
	"fmt"
	"log/slog"
	"sync"
)

// Event is the payload type carried by the bus. Payloads are delivered to
// subscribers by value; subscribers must not retain references to mutable
// internals.
type Event = any

// Bus fans events out to subscribers. Publish runs every subscriber on the
// caller's goroutine, so subscribers must return quickly and must not call
// back into the publisher.
type Bus struct {
	mu          sync.Mutex
	subscribers []func(Event)
	logger      *slog.Logger
}

// NewBus creates a new event bus. A nil logger falls back to slog.Default().
func NewBus(logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus{logger: logger}
}

// Publish delivers the event to all current subscribers, in subscription
// order, on the calling goroutine.
func (b *Bus) Publish(event Event) {
	b.mu.Lock()
	subscribers := b.subscribers
	b.mu.Unlock()

	for _, sub := range subscribers {
		sub(event)
	}
}

// subscribe registers a subscriber callback.
func (b *Bus) subscribe(sub func(Event)) {
	b.mu.Lock()
	defer b.mu.Unlock()

	// Copy-on-write keeps Publish free to iterate without holding the lock.
	subscribers := make([]func(Event), len(b.subscribers)+1)
	copy(subscribers, b.subscribers)
	subscribers[len(b.subscribers)] = sub
	b.subscribers = subscribers
}

// SubscribeSync subscribes to events of type T. The callback runs on the
// publisher's goroutine; events of other types are ignored. A panicking
// subscriber is logged and does not take down the publisher.
func SubscribeSync[T any](b *Bus, sub func(T)) {
	b.subscribe(func(e Event) {
		t, ok := e.(T)
		if !ok {
			return
		}
		defer func() {
			if r := recover(); r != nil {
				b.logger.Error("subscriber panicked",
					"event", fmt.Sprintf("%T", e),
					"panic", r)
			}
		}()
		sub(t)
	})
}
