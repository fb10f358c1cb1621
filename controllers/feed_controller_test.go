package controllers

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/cppla/livewall/bus"
	"github.com/cppla/livewall/models"
	"github.com/cppla/livewall/storage"
)

func newFeedRouter(posts storage.PostStore, b *bus.PostBus) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	f := NewFeedController(posts, b)
	r.GET("/api/v1/posts", f.ListPosts)
	r.POST("/api/v1/posts", f.CreatePost)
	r.GET("/api/v1/posts/stream", f.StreamPosts)
	return r
}

func decodeData(t *testing.T, body []byte) map[string]json.RawMessage {
	t.Helper()
	var env struct {
		Code int                        `json:"code"`
		Data map[string]json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &env); err != nil {
		t.Fatalf("bad envelope: %v", err)
	}
	if env.Code != 0 {
		t.Fatalf("unexpected envelope code %d", env.Code)
	}
	return env.Data
}

func TestListPostsNewestFirst(t *testing.T) {
	posts := storage.NewMemoryPosts()
	for _, c := range []string{"a", "b", "c"} {
		posts.CreatePost(context.Background(), models.Draft{Content: c})
	}
	r := newFeedRouter(posts, bus.New())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/posts?limit=2", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status %d", w.Code)
	}
	var items []models.Post
	data := decodeData(t, w.Body.Bytes())
	if err := json.Unmarshal(data["items"], &items); err != nil {
		t.Fatalf("bad items: %v", err)
	}
	if len(items) != 2 || items[0].Content != "c" || items[1].Content != "b" {
		t.Errorf("unexpected window %+v", items)
	}
}

func TestCreatePostStoresAndPublishes(t *testing.T) {
	posts := storage.NewMemoryPosts()
	b := bus.New()
	defer b.Close()
	ch := make(chan models.Post, 1)
	b.Subscribe("watcher", ch)

	r := newFeedRouter(posts, b)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/posts",
		strings.NewReader(`{"content":"hello world"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status %d body %s", w.Code, w.Body.String())
	}
	var post models.Post
	data := decodeData(t, w.Body.Bytes())
	if err := json.Unmarshal(data["post"], &post); err != nil {
		t.Fatalf("bad post: %v", err)
	}
	if post.Content != "hello world" || post.ID == 0 || post.CreatedAt.IsZero() {
		t.Errorf("store did not assign identity: %+v", post)
	}
	if post.ImageURL != "" {
		t.Errorf("image url should be absent, got %q", post.ImageURL)
	}

	select {
	case pushed := <-ch:
		if pushed.ID != post.ID {
			t.Errorf("published id %d, stored id %d", pushed.ID, post.ID)
		}
	case <-time.After(time.Second):
		t.Fatal("created post never published")
	}
}

func TestCreatePostBindsImage(t *testing.T) {
	posts := storage.NewMemoryPosts()
	r := newFeedRouter(posts, bus.New())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/posts",
		strings.NewReader(`{"content":"pic","image_url":"http://x/objects/public/u.png"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status %d", w.Code)
	}
	stored, _ := posts.RecentPosts(context.Background(), 1)
	if stored[0].Content != "pic" || stored[0].ImageURL != "http://x/objects/public/u.png" {
		t.Errorf("stored record %+v", stored[0])
	}
}

func TestCreatePostContentBounds(t *testing.T) {
	for _, tc := range []struct {
		name    string
		content string
	}{
		{"empty", ""},
		{"overlong", strings.Repeat("a", 281)},
	} {
		posts := storage.NewMemoryPosts()
		r := newFeedRouter(posts, bus.New())

		body, _ := json.Marshal(gin.H{"content": tc.content})
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/posts", strings.NewReader(string(body)))
		req.Header.Set("Content-Type", "application/json")
		r.ServeHTTP(w, req)

		if w.Code != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", tc.name, w.Code)
		}
		if posts.Len() != 0 {
			t.Errorf("%s: invalid content reached the store", tc.name)
		}
	}
}

func TestCreatePostExactly280(t *testing.T) {
	posts := storage.NewMemoryPosts()
	r := newFeedRouter(posts, bus.New())

	body, _ := json.Marshal(gin.H{"content": strings.Repeat("x", 280)})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/posts", strings.NewReader(string(body)))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("280 characters must be accepted, got %d", w.Code)
	}
	if posts.Len() != 1 {
		t.Errorf("expected one stored post, got %d", posts.Len())
	}
}

func TestStreamDeliversInsertEvents(t *testing.T) {
	posts := storage.NewMemoryPosts()
	b := bus.New()
	defer b.Close()
	srv := httptest.NewServer(newFeedRouter(posts, b))
	defer srv.Close()

	// Bounded read: the client timeout unblocks the body read if no event
	// ever arrives.
	hc := &http.Client{Timeout: 3 * time.Second}
	resp, err := hc.Get(srv.URL + "/api/v1/posts/stream")
	if err != nil {
		t.Fatalf("stream request failed: %v", err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/event-stream") {
		t.Errorf("content type %q", ct)
	}

	// Publish until the handler, which subscribes asynchronously, sees one.
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		for {
			select {
			case <-stop:
				return
			case <-time.After(10 * time.Millisecond):
				b.Publish(models.Post{ID: 42, Content: "live", CreatedAt: time.Now()})
			}
		}
	}()

	br := bufio.NewReader(resp.Body)
	for {
		line, err := br.ReadString('\n')
		if err != nil {
			t.Fatalf("no insert event observed: %v", err)
		}
		line = strings.ReplaceAll(strings.TrimSpace(line), " ", "")
		if strings.HasPrefix(line, "event:") {
			if line != "event:insert" {
				t.Errorf("unexpected event line %q", line)
			}
			return
		}
	}
}
