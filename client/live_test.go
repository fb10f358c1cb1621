package client

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/cppla/livewall/bus"
	"github.com/cppla/livewall/controllers"
	"github.com/cppla/livewall/feed"
	"github.com/cppla/livewall/objectstore"
	"github.com/cppla/livewall/storage"
)

// newWallServer stands up the API over in-memory storage.
func newWallServer(t *testing.T) (*httptest.Server, *bus.PostBus) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	b := bus.New()
	posts := storage.NewMemoryPosts()
	objects := objectstore.NewDisk(t.TempDir(), "http://placeholder/objects", nil)

	r := gin.New()
	f := controllers.NewFeedController(posts, b)
	m := controllers.NewMediaController(objects)
	r.GET("/api/v1/posts", f.ListPosts)
	r.POST("/api/v1/posts", f.CreatePost)
	r.GET("/api/v1/posts/stream", f.StreamPosts)
	r.POST("/api/v1/media", m.Upload)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	t.Cleanup(func() { b.Close() })
	return srv, b
}

func waitForLen(t *testing.T, s *feed.Store, n int) {
	t.Helper()
	deadline := time.After(3 * time.Second)
	for s.Len() < n {
		select {
		case <-deadline:
			t.Fatalf("view never reached %d posts, have %d", n, s.Len())
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestTwoViewersOverHTTP(t *testing.T) {
	srv, _ := newWallServer(t)

	viewerA := New(srv.URL, nil)
	viewerB := New(srv.URL, nil)
	defer viewerA.Close()
	defer viewerB.Close()

	storeA := feed.NewStore(viewerA, viewerA, feed.Options{})
	storeB := feed.NewStore(viewerB, viewerB, feed.Options{})
	for _, s := range []*feed.Store{storeA, storeB} {
		if err := s.Initialize(context.Background()); err != nil {
			t.Fatalf("Initialize failed: %v", err)
		}
		if err := s.Subscribe(); err != nil {
			t.Fatalf("Subscribe failed: %v", err)
		}
		defer s.Unsubscribe()
	}

	// Let both SSE subscriptions attach before submitting.
	time.Sleep(50 * time.Millisecond)

	composer := feed.NewComposer(viewerA)
	composer.SetContent("hello world")
	post, err := composer.Submit(context.Background())
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	// Both viewers, author included, observe the post through the push
	// path only, exactly once, at the head.
	waitForLen(t, storeA, 1)
	waitForLen(t, storeB, 1)
	for name, s := range map[string]*feed.Store{"A": storeA, "B": storeB} {
		got := s.Posts()
		if got[0].ID != post.ID || got[0].Content != "hello world" {
			t.Errorf("viewer %s head post %+v", name, got[0])
		}
		if len(got) != 1 {
			t.Errorf("viewer %s has %d entries for one creation", name, len(got))
		}
	}
}

func TestUploadThenSubmitOverHTTP(t *testing.T) {
	srv, _ := newWallServer(t)

	viewer := New(srv.URL, nil)
	defer viewer.Close()

	uploader := feed.NewUploader(viewer)
	url, err := uploader.Upload(context.Background(), "shot.png", strings.NewReader("png"))
	if err != nil {
		t.Fatalf("Upload failed: %v", err)
	}
	if !strings.HasSuffix(url, "/objects/public/shot.png") {
		t.Errorf("unexpected resolved address %q", url)
	}

	composer := feed.NewComposer(viewer)
	composer.SetContent("pic")
	composer.AttachImage(url)
	post, err := composer.Submit(context.Background())
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if post.Content != "pic" || post.ImageURL != url {
		t.Errorf("stored record %+v", post)
	}

	posts, err := viewer.RecentPosts(context.Background(), 1)
	if err != nil {
		t.Fatalf("RecentPosts failed: %v", err)
	}
	if posts[0].ImageURL != url {
		t.Errorf("image address not bound after round trip: %q", posts[0].ImageURL)
	}
}

func TestInitialWindowOverHTTP(t *testing.T) {
	srv, _ := newWallServer(t)
	viewer := New(srv.URL, nil)
	defer viewer.Close()

	composer := feed.NewComposer(viewer)
	for _, c := range []string{"one", "two", "three"} {
		composer.SetContent(c)
		if _, err := composer.Submit(context.Background()); err != nil {
			t.Fatalf("Submit failed: %v", err)
		}
	}

	store := feed.NewStore(viewer, viewer, feed.Options{InitialWindow: 2})
	if err := store.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	got := store.Posts()
	if len(got) != 2 || got[0].Content != "three" || got[1].Content != "two" {
		t.Errorf("unexpected window %+v", got)
	}
}
