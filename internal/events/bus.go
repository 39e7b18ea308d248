// Package events provides non-blocking event distribution for the camera core.
//
// Philosophy: drop events, never queue. A slow consumer must not stall the
// decode loop, so Publish sends with a non-blocking select and counts drops
// per subscriber instead of applying backpressure.
package events

import (
	"sync"
	"sync/atomic"
	"time"
)

type subscriber struct {
	id    string
	ch    chan<- Event
	stats *SubscriberStats
}

// Bus distributes events to registered subscribers
type Bus struct {
	mu             sync.RWMutex
	subscribers    map[string]*subscriber
	totalPublished uint64
	seq            uint64
	closed         bool
}

// New creates a new event bus
func New() *Bus {
	return &Bus{
		subscribers: make(map[string]*subscriber),
	}
}

// Subscribe registers a channel to receive every published event.
//
// The channel should be buffered; events are dropped (and counted) when the
// buffer is full.
func (b *Bus) Subscribe(id string, ch chan<- Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrBusClosed
	}
	if ch == nil {
		return ErrNilChannel
	}
	if _, exists := b.subscribers[id]; exists {
		return ErrSubscriberExists
	}

	b.subscribers[id] = &subscriber{
		id:    id,
		ch:    ch,
		stats: &SubscriberStats{},
	}
	return nil
}

// Unsubscribe removes a subscriber
func (b *Bus) Unsubscribe(id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.subscribers[id]; !exists {
		return ErrSubscriberNotFound
	}
	delete(b.subscribers, id)
	return nil
}

// Publish distributes an event to all subscribers without blocking.
//
// The bus assigns Seq and At if unset. Safe to call after Close (no-op).
func (b *Bus) Publish(ev Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return
	}

	atomic.AddUint64(&b.totalPublished, 1)
	if ev.Seq == 0 {
		ev.Seq = atomic.AddUint64(&b.seq, 1)
	}
	if ev.At.IsZero() {
		ev.At = time.Now()
	}

	for _, sub := range b.subscribers {
		select {
		case sub.ch <- ev:
			atomic.AddUint64(&sub.stats.Sent, 1)
		default:
			atomic.AddUint64(&sub.stats.Dropped, 1)
		}
	}
}

// Stats returns distribution statistics for a subscriber
func (b *Bus) Stats(id string) (*SubscriberStats, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	sub, exists := b.subscribers[id]
	if !exists {
		return nil, ErrSubscriberNotFound
	}
	return &SubscriberStats{
		Sent:    atomic.LoadUint64(&sub.stats.Sent),
		Dropped: atomic.LoadUint64(&sub.stats.Dropped),
	}, nil
}

// TotalPublished returns the number of events published since creation
func (b *Bus) TotalPublished() uint64 {
	return atomic.LoadUint64(&b.totalPublished)
}

// Close shuts down the bus. Subsequent Publish calls are no-ops and
// Subscribe returns ErrBusClosed. Idempotent.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	b.subscribers = nil
}
