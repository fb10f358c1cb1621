// Package storage provides the persistent post store behind the wall: a
// MySQL implementation for production and an in-memory one for tests and
// single-process development.
package storage

import (
	"context"
	"errors"

	"github.com/cppla/livewall/models"
)

// ErrUnavailable wraps backend failures reaching the post store.
var ErrUnavailable = errors.New("post store unavailable")

// ErrEmptyContent is returned when a create reaches the store with no text.
var ErrEmptyContent = errors.New("post content is empty")

// PostStore is the persistent, append-only record of wall posts. Both
// operations are safe for concurrent use.
type PostStore interface {
	// RecentPosts returns up to limit posts ordered by creation time
	// descending.
	RecentPosts(ctx context.Context, limit int) ([]models.Post, error)

	// CreatePost persists a draft, assigning id and creation timestamp,
	// and returns the stored post.
	CreatePost(ctx context.Context, draft models.Draft) (models.Post, error)
}
