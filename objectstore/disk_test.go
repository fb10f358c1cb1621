package objectstore

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestPutReturnsPublicURL(t *testing.T) {
	d := NewDisk(t.TempDir(), "http://localhost:8080/objects/", nil)

	url, err := d.Put(context.Background(), "public/cat.png", strings.NewReader("png-bytes"), PutOptions{
		ContentType:  "image/png",
		CacheControl: "max-age=3600",
		Overwrite:    true,
	})
	if err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if url != "http://localhost:8080/objects/public/cat.png" {
		t.Errorf("unexpected url %q", url)
	}
}

func TestPutWritesBytes(t *testing.T) {
	dir := t.TempDir()
	d := NewDisk(dir, "http://x/objects", nil)

	if _, err := d.Put(context.Background(), "public/a.bin", strings.NewReader("payload"), PutOptions{Overwrite: true}); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	b, err := os.ReadFile(filepath.Join(dir, "public", "a.bin"))
	if err != nil {
		t.Fatalf("stored object unreadable: %v", err)
	}
	if string(b) != "payload" {
		t.Errorf("stored bytes %q differ from uploaded", b)
	}
}

func TestOverwriteReplacesContent(t *testing.T) {
	dir := t.TempDir()
	d := NewDisk(dir, "http://x/objects", nil)
	ctx := context.Background()

	d.Put(ctx, "public/a.txt", strings.NewReader("old"), PutOptions{Overwrite: true})
	if _, err := d.Put(ctx, "public/a.txt", strings.NewReader("new"), PutOptions{Overwrite: true}); err != nil {
		t.Fatalf("overwrite Put failed: %v", err)
	}

	b, _ := os.ReadFile(filepath.Join(dir, "public", "a.txt"))
	if string(b) != "new" {
		t.Errorf("overwrite kept old content %q", b)
	}
}

func TestPutWithoutOverwriteConflicts(t *testing.T) {
	d := NewDisk(t.TempDir(), "http://x/objects", nil)
	ctx := context.Background()

	if _, err := d.Put(ctx, "public/a.txt", strings.NewReader("one"), PutOptions{}); err != nil {
		t.Fatalf("first Put failed: %v", err)
	}
	if _, err := d.Put(ctx, "public/a.txt", strings.NewReader("two"), PutOptions{}); !errors.Is(err, ErrObjectExists) {
		t.Errorf("expected ErrObjectExists, got %v", err)
	}
}

func TestPutRejectsTraversal(t *testing.T) {
	d := NewDisk(t.TempDir(), "http://x/objects", nil)

	if _, err := d.Put(context.Background(), "../escape", strings.NewReader("x"), PutOptions{Overwrite: true}); err == nil {
		t.Error("expected error for traversal path")
	}
}

func TestRemove(t *testing.T) {
	dir := t.TempDir()
	d := NewDisk(dir, "http://x/objects", nil)

	d.Put(context.Background(), "public/gone.txt", strings.NewReader("x"), PutOptions{Overwrite: true})
	if err := d.Remove("public/gone.txt"); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "public", "gone.txt")); !os.IsNotExist(err) {
		t.Error("object still on disk after Remove")
	}
}
