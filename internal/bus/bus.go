// Package bus provides an in-process publish/subscribe event bus used to
// deliver sync progress snapshots to observers without ever blocking the
// publishing worker.
package bus

import (
	"strings"
	"sync"
)

// Bus is an in-process event bus with namespace filtering. Publishing is
// fire-and-forget: a subscriber with a full buffer misses the event, and the
// latest event per kind stays retrievable for last-snapshot-wins consumers.
type Bus struct {
	mu   sync.RWMutex
	subs map[int]*subscription
	next int
	last map[string]Event
}

type subscription struct {
	namespace string
	ch        chan Event
}

// New creates a new event bus.
func New() *Bus {
	return &Bus{
		subs: make(map[int]*subscription),
		last: make(map[string]Event),
	}
}

// Publish sends an event to all subscribers whose namespace is a prefix of
// event.Kind. Slow subscribers are skipped, never waited on.
func (b *Bus) Publish(evt Event) {
	b.mu.Lock()
	b.last[evt.Kind] = evt
	for _, sub := range b.subs {
		if strings.HasPrefix(evt.Kind, sub.namespace) {
			select {
			case sub.ch <- evt:
			default:
				// Drop event if subscriber is full (non-blocking).
			}
		}
	}
	b.mu.Unlock()
}

// Subscribe returns a channel that receives events matching the given
// namespace prefix. bufSize controls the channel buffer. Returns the channel
// and an unsubscribe function.
func (b *Bus) Subscribe(namespace string, bufSize int) (<-chan Event, func()) {
	ch := make(chan Event, bufSize)
	b.mu.Lock()
	id := b.next
	b.next++
	b.subs[id] = &subscription{namespace: namespace, ch: ch}
	b.mu.Unlock()

	return ch, func() {
		b.mu.Lock()
		delete(b.subs, id)
		b.mu.Unlock()
	}
}

// Last returns the most recent event published under kind, if any.
func (b *Bus) Last(kind string) (Event, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	evt, ok := b.last[kind]
	return evt, ok
}
