// Package feed implements the viewer-side core of the wall: the synchronized
// in-memory view of posts, the submission pipeline, and the image upload
// pipeline. It talks to the rest of the system only through the Source,
// Stream, and BlobStore interfaces, so the same code runs in-process against
// storage and bus, or remotely through the HTTP client.
package feed

import (
	"context"
	"errors"
	"io"

	"github.com/cppla/livewall/models"
	"github.com/cppla/livewall/objectstore"
)

var (
	// ErrContentLength rejects a submission whose content is empty or over
	// models.MaxContentRunes code points. The source is never called.
	ErrContentLength = errors.New("content length out of bounds")

	// ErrSubmitInFlight rejects a submit while a previous one is pending.
	ErrSubmitInFlight = errors.New("submission already in flight")

	// ErrUploadInFlight rejects an upload while a previous one is pending.
	ErrUploadInFlight = errors.New("upload already in flight")

	// ErrClosed is returned by operations on a torn-down store.
	ErrClosed = errors.New("feed store is closed")

	// ErrSubscribed is returned by a second Subscribe on the same store.
	ErrSubscribed = errors.New("feed store already subscribed")
)

// Source loads the initial window and persists new posts.
type Source interface {
	RecentPosts(ctx context.Context, limit int) ([]models.Post, error)
	CreatePost(ctx context.Context, draft models.Draft) (models.Post, error)
}

// Stream delivers newly created posts in store commit order. bus.PostBus and
// client.Client both satisfy it.
type Stream interface {
	Subscribe(id string, ch chan<- models.Post) error
	Unsubscribe(id string) error
}

// BlobStore stores a named binary and resolves its public address.
// objectstore.Disk and client.Client both satisfy it.
type BlobStore interface {
	Put(ctx context.Context, path string, r io.Reader, opts objectstore.PutOptions) (string, error)
}
