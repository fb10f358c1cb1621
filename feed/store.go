package feed

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/cppla/livewall/models"
)

const (
	// DefaultInitialWindow is how many posts Initialize fetches.
	DefaultInitialWindow = 50

	// DefaultMaxWindow bounds the live-growing view; the oldest entries are
	// evicted once head inserts push past it.
	DefaultMaxWindow = 200

	// streamBuffer absorbs delivery bursts between consume loop wakeups.
	streamBuffer = 32
)

// Options tunes a Store.
type Options struct {
	InitialWindow int // posts fetched by Initialize; 0 means DefaultInitialWindow
	MaxWindow     int // live view cap; 0 means DefaultMaxWindow
}

// Store is the single ordered, deduplicated, bounded view of the wall shown
// to one viewer. The view is mutated only by Initialize and OnPostCreated,
// both serialized by one mutex.
type Store struct {
	source Source
	stream Stream

	initialWindow int
	maxWindow     int

	mu     sync.Mutex
	posts  []models.Post // created_at descending, head is newest
	seen   map[uint]struct{}
	closed bool

	subID string
	ch    chan models.Post
	done  chan struct{}
	wg    sync.WaitGroup
}

// NewStore creates a Store over a post source and an insert stream.
func NewStore(source Source, stream Stream, opts Options) *Store {
	if opts.InitialWindow <= 0 {
		opts.InitialWindow = DefaultInitialWindow
	}
	if opts.MaxWindow <= 0 {
		opts.MaxWindow = DefaultMaxWindow
	}
	if opts.MaxWindow < opts.InitialWindow {
		opts.MaxWindow = opts.InitialWindow
	}
	return &Store{
		source:        source,
		stream:        stream,
		initialWindow: opts.InitialWindow,
		maxWindow:     opts.MaxWindow,
		seen:          make(map[uint]struct{}),
	}
}

// Initialize replaces the view with the most recent window from the source.
// On failure the prior view is retained untouched; the caller decides whether
// to surface the error. There is no automatic retry.
func (s *Store) Initialize(ctx context.Context) error {
	posts, err := s.source.RecentPosts(ctx, s.initialWindow)
	if err != nil {
		return fmt.Errorf("initialize feed: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	s.posts = s.posts[:0]
	s.seen = make(map[uint]struct{}, len(posts))
	for _, p := range posts {
		if _, dup := s.seen[p.ID]; dup {
			continue
		}
		s.posts = append(s.posts, p)
		s.seen[p.ID] = struct{}{}
	}
	return nil
}

// OnPostCreated merges one pushed creation event into the view. New posts
// are always newer than everything present, so head insertion preserves
// descending order. Redelivery of an id already in the view is a no-op, as
// is any delivery after Unsubscribe.
func (s *Store) OnPostCreated(post models.Post) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	if _, dup := s.seen[post.ID]; dup {
		return
	}

	s.posts = append(s.posts, models.Post{})
	copy(s.posts[1:], s.posts)
	s.posts[0] = post
	s.seen[post.ID] = struct{}{}

	for len(s.posts) > s.maxWindow {
		tail := s.posts[len(s.posts)-1]
		delete(s.seen, tail.ID)
		s.posts = s.posts[:len(s.posts)-1]
	}
}

// Subscribe opens the push channel and starts consuming creation events into
// the view. It is called once per session, before or after Initialize.
func (s *Store) Subscribe() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if s.subID != "" {
		s.mu.Unlock()
		return ErrSubscribed
	}
	id := uuid.NewString()
	ch := make(chan models.Post, streamBuffer)
	done := make(chan struct{})
	s.subID, s.ch, s.done = id, ch, done
	s.mu.Unlock()

	if err := s.stream.Subscribe(id, ch); err != nil {
		s.mu.Lock()
		s.subID, s.ch, s.done = "", nil, nil
		s.mu.Unlock()
		return fmt.Errorf("subscribe feed: %w", err)
	}

	s.wg.Add(1)
	go s.consume(ch, done)
	return nil
}

func (s *Store) consume(ch <-chan models.Post, done <-chan struct{}) {
	defer s.wg.Done()
	for {
		select {
		case post := <-ch:
			s.OnPostCreated(post)
		case <-done:
			return
		}
	}
}

// Unsubscribe tears the session down: the push channel is released
// unconditionally and every later delivery or mutation is a no-op. Safe to
// call more than once and regardless of how the session ended.
func (s *Store) Unsubscribe() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	id, done := s.subID, s.done
	s.subID, s.ch, s.done = "", nil, nil
	s.mu.Unlock()

	if id != "" {
		_ = s.stream.Unsubscribe(id)
		close(done)
	}
	s.wg.Wait()
}

// Posts returns a snapshot copy of the view, newest first.
func (s *Store) Posts() []models.Post {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Post, len(s.posts))
	copy(out, s.posts)
	return out
}

// Len reports the current view size.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.posts)
}
