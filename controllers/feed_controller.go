package controllers

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/cppla/livewall/bus"
	"github.com/cppla/livewall/config"
	"github.com/cppla/livewall/models"
	"github.com/cppla/livewall/storage"
	"github.com/cppla/livewall/utils"
)

const (
	streamBufferSize  = 32
	heartbeatInterval = 25 * time.Second
)

// FeedController serves the wall: the recent window, post creation, and the
// live stream of created posts.
type FeedController struct {
	posts storage.PostStore
	bus   *bus.PostBus
}

// NewFeedController creates a FeedController over a post store and bus.
func NewFeedController(posts storage.PostStore, b *bus.PostBus) *FeedController {
	return &FeedController{posts: posts, bus: b}
}

// ListPosts returns the most recent window of posts, newest first.
func (f *FeedController) ListPosts(ctx *gin.Context) {
	cfg := config.Get()
	limit := cfg.FeedInitialWindow
	if raw := ctx.Query("limit"); raw != "" {
		// Callers may shrink or grow the window up to the live cap.
		if v, err := strconv.Atoi(raw); err == nil && v > 0 && v <= cfg.FeedMaxWindow {
			limit = v
		}
	}

	cacheKey := fmt.Sprintf("%slimit=%d", utils.FeedCachePrefix, limit)
	if b, ok := utils.CacheGetBytes(cacheKey); ok {
		ctx.Data(200, "application/json", b)
		return
	}

	posts, err := f.posts.RecentPosts(ctx.Request.Context(), limit)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50010, "failed to load feed")
		return
	}

	payload := gin.H{"items": posts}
	wrapper := utils.JSONResponse{Code: 0, Message: "success", Data: payload}
	utils.CacheSetJSON(cacheKey, wrapper, time.Hour)
	utils.Success(ctx, payload)
}

// CreatePost validates and persists one new post, then publishes it to every
// connected stream. The author field is never populated.
func (f *FeedController) CreatePost(ctx *gin.Context) {
	var req struct {
		Content  string `json:"content" binding:"required"`
		ImageURL string `json:"image_url"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40010, "invalid request payload")
		return
	}

	content := utils.Sanitize(req.Content)
	if n := utf8.RuneCountInString(content); n < 1 || n > models.MaxContentRunes {
		utils.Error(ctx, http.StatusBadRequest, 40011,
			fmt.Sprintf("content must be 1 to %d characters", models.MaxContentRunes))
		return
	}

	post, err := f.posts.CreatePost(ctx.Request.Context(), models.Draft{
		Content:  content,
		ImageURL: req.ImageURL,
	})
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50011, "failed to create post")
		return
	}

	// Published after the store commit, so streams observe commit order.
	f.bus.Publish(post)
	utils.InvalidateByPrefix(utils.FeedCachePrefix)

	utils.Success(ctx, gin.H{"post": post})
}

// StreamPosts holds the connection open and forwards every created post as
// an SSE "insert" event. The subscription is released whenever the client
// goes away, however it goes away.
func (f *FeedController) StreamPosts(ctx *gin.Context) {
	id := uuid.NewString()
	ch := make(chan models.Post, streamBufferSize)
	if err := f.bus.Subscribe(id, ch); err != nil {
		utils.Error(ctx, http.StatusServiceUnavailable, 50310, "stream unavailable")
		return
	}
	defer f.bus.Unsubscribe(id)

	ctx.Header("Content-Type", "text/event-stream")
	ctx.Header("Cache-Control", "no-cache")
	ctx.Header("Connection", "keep-alive")
	ctx.Header("X-Accel-Buffering", "no")

	// Long-lived response; lift the server's write deadline for this request.
	rc := http.NewResponseController(ctx.Writer)
	_ = rc.SetWriteDeadline(time.Time{})

	// Flush headers right away so the client sees the stream as established
	// before any post arrives.
	fmt.Fprint(ctx.Writer, ": connected\n\n")
	ctx.Writer.Flush()

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	clientGone := ctx.Request.Context().Done()
	ctx.Stream(func(w io.Writer) bool {
		select {
		case post := <-ch:
			ctx.SSEvent("insert", post)
			return true
		case <-heartbeat.C:
			// Comment line keeps intermediaries from closing the stream.
			fmt.Fprint(w, ": ping\n\n")
			return true
		case <-clientGone:
			return false
		}
	})
}
