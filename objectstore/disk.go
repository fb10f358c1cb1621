package objectstore

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/cppla/livewall/models"
)

// Disk stores objects as files under a base directory and serves them via a
// base URL. When a database handle is attached, every write upserts a
// StoredObject row so the orphan sweep can find it later.
type Disk struct {
	baseDir string
	baseURL string
	db      *gorm.DB
}

// NewDisk creates a disk store. baseURL is the externally visible prefix for
// stored objects, e.g. "http://localhost:8080/objects". db may be nil.
func NewDisk(baseDir, baseURL string, db *gorm.DB) *Disk {
	return &Disk{
		baseDir: baseDir,
		baseURL: strings.TrimRight(baseURL, "/"),
		db:      db,
	}
}

func (d *Disk) Put(ctx context.Context, path string, r io.Reader, opts PutOptions) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	rel, err := cleanPath(path)
	if err != nil {
		return "", err
	}
	dst := filepath.Join(d.baseDir, filepath.FromSlash(rel))

	if !opts.Overwrite {
		if _, err := os.Stat(dst); err == nil {
			return "", ErrObjectExists
		}
	}

	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return "", fmt.Errorf("%w: %v", ErrWriteFailed, err)
	}

	// Write to a temp file and rename so readers never see a partial object
	// and a failed write leaves no address behind.
	tmp, err := os.CreateTemp(filepath.Dir(dst), ".put-*")
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrWriteFailed, err)
	}
	written, err := io.Copy(tmp, r)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(tmp.Name())
		return "", fmt.Errorf("%w: %v", ErrWriteFailed, err)
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		_ = os.Remove(tmp.Name())
		return "", fmt.Errorf("%w: %v", ErrWriteFailed, err)
	}

	url := d.baseURL + "/" + rel
	d.record(rel, url, written, opts.ContentType)
	return url, nil
}

// Remove deletes an object file. Used by the orphan sweep.
func (d *Disk) Remove(path string) error {
	rel, err := cleanPath(path)
	if err != nil {
		return err
	}
	return os.Remove(filepath.Join(d.baseDir, filepath.FromSlash(rel)))
}

// record is best-effort bookkeeping; a failed row never fails the upload.
func (d *Disk) record(path, url string, size int64, contentType string) {
	if d.db == nil {
		return
	}
	obj := models.StoredObject{
		Path:        path,
		URL:         url,
		Size:        size,
		ContentType: contentType,
	}
	_ = d.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "path"}},
		DoUpdates: clause.AssignmentColumns([]string{"url", "size", "content_type", "updated_at"}),
	}).Create(&obj).Error
}

// cleanPath normalizes a forward-slash object path and rejects traversal out
// of the base directory.
func cleanPath(path string) (string, error) {
	rel := strings.TrimLeft(strings.ReplaceAll(path, "\\", "/"), "/")
	rel = filepath.ToSlash(filepath.Clean(rel))
	if rel == "." || rel == "" || strings.HasPrefix(rel, "../") || rel == ".." {
		return "", fmt.Errorf("invalid object path %q", path)
	}
	return rel, nil
}
