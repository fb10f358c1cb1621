package storage

import (
	"context"
	"sync"
	"time"

	"github.com/cppla/livewall/models"
)

// MemoryPosts keeps posts in memory, newest last. Backs tests and any
// embedder that runs without MySQL.
type MemoryPosts struct {
	mu     sync.RWMutex
	posts  []models.Post
	nextID uint
	now    func() time.Time
}

// NewMemoryPosts creates an empty in-memory post store.
func NewMemoryPosts() *MemoryPosts {
	return &MemoryPosts{nextID: 1, now: time.Now}
}

func (s *MemoryPosts) RecentPosts(ctx context.Context, limit int) ([]models.Post, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 50
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	n := len(s.posts)
	if limit > n {
		limit = n
	}
	out := make([]models.Post, 0, limit)
	for i := n - 1; i >= n-limit; i-- {
		out = append(out, s.posts[i])
	}
	return out, nil
}

func (s *MemoryPosts) CreatePost(ctx context.Context, draft models.Draft) (models.Post, error) {
	if err := ctx.Err(); err != nil {
		return models.Post{}, err
	}
	if draft.Content == "" {
		return models.Post{}, ErrEmptyContent
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	post := models.Post{
		ID:        s.nextID,
		Content:   draft.Content,
		ImageURL:  draft.ImageURL,
		CreatedAt: s.now(),
	}
	s.nextID++
	// The wall is append-only and ids are monotonic, so append keeps the
	// slice in creation order.
	s.posts = append(s.posts, post)
	return post, nil
}

// Len reports the number of stored posts.
func (s *MemoryPosts) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.posts)
}
