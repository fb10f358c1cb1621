package feed

import (
	"context"
	"fmt"
	"sync"
	"unicode/utf8"

	"github.com/cppla/livewall/models"
)

// State is the composition surface's lifecycle phase.
type State int

const (
	StateIdle State = iota
	StateComposing
	StateSubmitting
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateComposing:
		return "composing"
	case StateSubmitting:
		return "submitting"
	default:
		return "unknown"
	}
}

// Composer holds one viewer's draft and submits it to the post source. On a
// failed submission the draft is retained for manual retry; on success it is
// cleared for the next post. Submission never waits on a pending image
// upload: the caller attaches the resolved address before submitting, or the
// post goes out without it.
type Composer struct {
	source Source

	mu       sync.Mutex
	content  string
	imageURL string
	state    State
}

// NewComposer creates a Composer over a post source.
func NewComposer(source Source) *Composer {
	return &Composer{source: source}
}

// SetContent replaces the draft text.
func (c *Composer) SetContent(content string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.content = content
	if c.state == StateIdle && content != "" {
		c.state = StateComposing
	}
}

// AttachImage binds an already-resolved image address to the draft.
func (c *Composer) AttachImage(url string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.imageURL = url
}

// ClearImage drops the attached image address.
func (c *Composer) ClearImage() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.imageURL = ""
}

// Content returns the current draft text.
func (c *Composer) Content() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.content
}

// ImageURL returns the attached image address, if any.
func (c *Composer) ImageURL() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.imageURL
}

// CurrentState reports the composition phase.
func (c *Composer) CurrentState() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Submit validates the draft and persists it. Content outside 1..280 code
// points returns ErrContentLength without touching the source. A source
// failure leaves the draft intact. Success clears the draft and returns the
// stored post; the post reaches the view through the push stream like every
// other viewer's, not through a local insert.
func (c *Composer) Submit(ctx context.Context) (models.Post, error) {
	c.mu.Lock()
	if c.state == StateSubmitting {
		c.mu.Unlock()
		return models.Post{}, ErrSubmitInFlight
	}
	n := utf8.RuneCountInString(c.content)
	if n < 1 || n > models.MaxContentRunes {
		c.mu.Unlock()
		return models.Post{}, ErrContentLength
	}
	draft := models.Draft{Content: c.content, ImageURL: c.imageURL}
	c.state = StateSubmitting
	c.mu.Unlock()

	post, err := c.source.CreatePost(ctx, draft)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.state = StateComposing
		return models.Post{}, fmt.Errorf("submit post: %w", err)
	}
	c.content = ""
	c.imageURL = ""
	c.state = StateIdle
	return post, nil
}
