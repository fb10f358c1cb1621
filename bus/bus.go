// Package bus fans newly created posts out to every connected subscriber.
//
// Publish never blocks: a subscriber whose channel is full simply misses the
// post. A slow SSE client falls behind rather than stalling everyone else;
// resynchronizing the initial window is its recovery path.
package bus

import (
	"errors"
	"sync"
	"sync/atomic"

	"github.com/cppla/livewall/models"
)

var (
	// ErrSubscriberExists is returned when Subscribe reuses an id.
	ErrSubscriberExists = errors.New("subscriber id already exists")

	// ErrSubscriberNotFound is returned when Unsubscribe gets an unknown id.
	ErrSubscriberNotFound = errors.New("subscriber id not found")

	// ErrBusClosed is returned for operations on a closed bus.
	ErrBusClosed = errors.New("bus is closed")
)

// PostBus distributes created posts to subscriber channels with drop policy.
type PostBus struct {
	mu          sync.RWMutex
	subscribers map[string]chan<- models.Post
	closed      bool

	published atomic.Uint64
	dropped   atomic.Uint64
}

// New creates an empty PostBus.
func New() *PostBus {
	return &PostBus{
		subscribers: make(map[string]chan<- models.Post),
	}
}

// Subscribe registers a channel to receive every post published after this
// call. The channel must be buffered if the consumer can lag.
func (b *PostBus) Subscribe(id string, ch chan<- models.Post) error {
	if ch == nil {
		return errors.New("subscriber channel cannot be nil")
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrBusClosed
	}
	if _, exists := b.subscribers[id]; exists {
		return ErrSubscriberExists
	}
	b.subscribers[id] = ch
	return nil
}

// Unsubscribe removes a subscriber by id. The channel is not closed; its
// owner closes it once no delivery can be in flight.
func (b *PostBus) Unsubscribe(id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrBusClosed
	}
	if _, exists := b.subscribers[id]; !exists {
		return ErrSubscriberNotFound
	}
	delete(b.subscribers, id)
	return nil
}

// Publish sends post to all subscribers without blocking. Posts arrive in
// commit order because the single create path publishes after each store
// write; the bus itself never reorders.
func (b *PostBus) Publish(post models.Post) {
	b.published.Add(1)

	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return
	}
	for _, ch := range b.subscribers {
		select {
		case ch <- post:
		default:
			b.dropped.Add(1)
		}
	}
}

// Stats reports lifetime publish and drop counts.
func (b *PostBus) Stats() (published, dropped uint64) {
	return b.published.Load(), b.dropped.Load()
}

// Close stops the bus; subsequent publishes are silently ignored and
// subscribe calls fail with ErrBusClosed.
func (b *PostBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrBusClosed
	}
	b.closed = true
	b.subscribers = make(map[string]chan<- models.Post)
	return nil
}
