// Package notify delivers undo/redo completion events to observers.
//
// The notify package implements an observer pattern with two consumption
// styles: callback subscriptions and a blocking wait-for-next-event call.
// Delivery is synchronous and in-order on the emitting goroutine, with
// exactly one emission per completed operation.
package notify

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrChannelClosed is returned by Wait on a closed channel.
var ErrChannelClosed = errors.New("notification channel closed")

// Kind identifies which history operation an event reports.
type Kind int

const (
	// KindUndo indicates a waypoint was reverted to.
	KindUndo Kind = iota

	// KindRedo indicates a waypoint was reapplied.
	KindRedo
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindUndo:
		return "undo"
	case KindRedo:
		return "redo"
	default:
		return "unknown"
	}
}

// Event reports one completed undo or redo.
type Event struct {
	// Kind is the operation that completed.
	Kind Kind

	// Name is the name of the waypoint that was applied.
	Name string

	// At is when the event was emitted.
	At time.Time
}

// Observer is called for each emitted event.
type Observer func(event Event)

// Subscription represents an active observer registration.
type Subscription struct {
	id      uint64
	channel *Channel
}

// Unsubscribe removes this subscription. It is safe to call more
// than once.
func (s *Subscription) Unsubscribe() {
	if s.channel != nil {
		s.channel.unsubscribe(s.id)
	}
}

// Channel fans one stream of events out to observers and waiters.
type Channel struct {
	mu sync.Mutex

	kind      Kind
	observers map[uint64]Observer
	nextID    uint64

	// One entry per pending Wait call; each receives at most one event.
	waiters map[uint64]chan Event

	done   chan struct{}
	closed bool
}

// NewChannel creates a channel for the given event kind.
func NewChannel(kind Kind) *Channel {
	return &Channel{
		kind:      kind,
		observers: make(map[uint64]Observer),
		waiters:   make(map[uint64]chan Event),
		done:      make(chan struct{}),
	}
}

// Kind returns the event kind this channel carries.
func (c *Channel) Kind() Kind {
	return c.kind
}

// Subscribe registers an observer for every subsequent emission.
func (c *Channel) Subscribe(observer Observer) *Subscription {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := c.nextID
	c.nextID++
	if !c.closed {
		c.observers[id] = observer
	}

	return &Subscription{id: id, channel: c}
}

// unsubscribe removes an observer by ID.
func (c *Channel) unsubscribe(id uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.observers, id)
}

// Emit delivers one event carrying the given waypoint name.
// Observers run synchronously on the calling goroutine, outside the
// channel lock; pending Wait calls are released with the same event.
// Emit on a closed channel is a no-op.
func (c *Channel) Emit(name string) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}

	event := Event{Kind: c.kind, Name: name, At: time.Now()}

	observers := make([]Observer, 0, len(c.observers))
	for _, obs := range c.observers {
		observers = append(observers, obs)
	}

	for id, waiter := range c.waiters {
		waiter <- event // buffered, never blocks
		delete(c.waiters, id)
	}
	c.mu.Unlock()

	for _, obs := range observers {
		obs(event)
	}
}

// Wait blocks until the next emission, the context is done, or the
// channel is closed.
func (c *Channel) Wait(ctx context.Context) (Event, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return Event{}, ErrChannelClosed
	}

	id := c.nextID
	c.nextID++
	ch := make(chan Event, 1)
	c.waiters[id] = ch
	c.mu.Unlock()

	select {
	case event := <-ch:
		return event, nil
	case <-c.done:
		return Event{}, ErrChannelClosed
	case <-ctx.Done():
		c.mu.Lock()
		delete(c.waiters, id)
		c.mu.Unlock()
		return Event{}, ctx.Err()
	}
}

// ObserverCount returns the number of active subscriptions.
func (c *Channel) ObserverCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.observers)
}

// Close releases all observers and unblocks pending Wait calls.
// It is safe to call Close multiple times.
func (c *Channel) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.observers = nil
	c.waiters = nil
	c.mu.Unlock()

	close(c.done)
}
