package feed

import (
	"context"
	"fmt"
	"io"
	"mime"
	"path"
	"sync"

	"github.com/google/uuid"

	"github.com/cppla/livewall/objectstore"
)

// uploadNamespace is the shared public prefix all attachments land under.
const uploadNamespace = "public"

// uploadCacheControl is the client-side cache directive bound to every
// stored attachment.
const uploadCacheControl = "max-age=3600"

// Uploader moves one local file at a time into the object store and yields
// its public address. A second upload started while one is in flight is
// rejected rather than queued. A failed upload produces no address.
type Uploader struct {
	blobs BlobStore

	mu       sync.Mutex
	inflight bool
}

// NewUploader creates an Uploader over a blob store.
func NewUploader(blobs BlobStore) *Uploader {
	return &Uploader{blobs: blobs}
}

// Upload stores the file under the public namespace keyed by its original
// name, replacing any prior object with the same name, and returns the
// resolved address to bind to a post.
func (u *Uploader) Upload(ctx context.Context, filename string, r io.Reader) (string, error) {
	u.mu.Lock()
	if u.inflight {
		u.mu.Unlock()
		return "", ErrUploadInFlight
	}
	u.inflight = true
	u.mu.Unlock()

	defer func() {
		u.mu.Lock()
		u.inflight = false
		u.mu.Unlock()
	}()

	name := path.Base(filename)
	if name == "." || name == "/" || name == "" {
		name = uuid.NewString()
	}

	url, err := u.blobs.Put(ctx, uploadNamespace+"/"+name, r, objectstore.PutOptions{
		ContentType:  mime.TypeByExtension(path.Ext(name)),
		CacheControl: uploadCacheControl,
		Overwrite:    true,
	})
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", name, err)
	}
	return url, nil
}

// Busy reports whether an upload is currently in flight.
func (u *Uploader) Busy() bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.inflight
}
