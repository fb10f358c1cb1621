// Package objectstore moves uploaded binaries into publicly addressable
// storage. The production implementation writes to local disk under the
// static objects root served by the router.
package objectstore

import (
	"context"
	"errors"
	"io"
)

// ErrObjectExists is returned by Put when the path is taken and the caller
// did not ask for overwrite.
var ErrObjectExists = errors.New("object already exists")

// ErrWriteFailed wraps I/O failures while storing an object.
var ErrWriteFailed = errors.New("object write failed")

// PutOptions controls how an object is stored and later served.
type PutOptions struct {
	ContentType  string
	CacheControl string
	Overwrite    bool
}

// Store persists named binary objects and resolves their public addresses.
type Store interface {
	// Put stores the object under path and returns its public URL. With
	// Overwrite set, an existing object at the same path is replaced.
	Put(ctx context.Context, path string, r io.Reader, opts PutOptions) (string, error)
}
