// Package client talks to a livewall server over its HTTP API, implementing
// the same Source, Stream, and BlobStore contracts the feed core consumes
// in-process. A remote viewer builds its feed.Store on top of one Client.
package client

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path"
	"strconv"
	"strings"
	"sync"

	"github.com/cppla/livewall/models"
	"github.com/cppla/livewall/objectstore"
)

// ErrRemote wraps non-success responses from the server.
var ErrRemote = errors.New("remote call failed")

// envelope is the uniform server response shape.
type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// Client is a livewall API client. Safe for concurrent use.
type Client struct {
	base string
	hc   *http.Client

	mu      sync.Mutex
	streams map[string]context.CancelFunc
}

// New creates a Client for the server at baseURL, e.g. "http://localhost:8080".
func New(baseURL string, hc *http.Client) *Client {
	if hc == nil {
		hc = http.DefaultClient
	}
	return &Client{
		base:    strings.TrimRight(baseURL, "/"),
		hc:      hc,
		streams: make(map[string]context.CancelFunc),
	}
}

// RecentPosts fetches the most recent window, newest first.
func (c *Client) RecentPosts(ctx context.Context, limit int) ([]models.Post, error) {
	url := c.base + "/api/v1/posts"
	if limit > 0 {
		url += "?limit=" + strconv.Itoa(limit)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	var data struct {
		Items []models.Post `json:"items"`
	}
	if err := c.do(req, &data); err != nil {
		return nil, err
	}
	return data.Items, nil
}

// CreatePost submits a draft and returns the stored post.
func (c *Client) CreatePost(ctx context.Context, draft models.Draft) (models.Post, error) {
	body, err := json.Marshal(draft)
	if err != nil {
		return models.Post{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/api/v1/posts", bytes.NewReader(body))
	if err != nil {
		return models.Post{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	var data struct {
		Post models.Post `json:"post"`
	}
	if err := c.do(req, &data); err != nil {
		return models.Post{}, err
	}
	return data.Post, nil
}

// Put uploads an object through the media endpoint and returns its public
// address. Only the base name of path is meaningful to the server, which
// stores everything under its own public namespace.
func (c *Client) Put(ctx context.Context, objectPath string, r io.Reader, opts objectstore.PutOptions) (string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", path.Base(objectPath))
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(fw, r); err != nil {
		return "", err
	}
	if err := mw.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/api/v1/media", &buf)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var data struct {
		URL string `json:"url"`
	}
	if err := c.do(req, &data); err != nil {
		return "", err
	}
	return data.URL, nil
}

// Subscribe opens the server's SSE stream and forwards every insert event to
// ch until Unsubscribe is called or the stream drops. A dropped stream is
// not reconnected; refetching the window is the recovery path.
func (c *Client) Subscribe(id string, ch chan<- models.Post) error {
	c.mu.Lock()
	if _, exists := c.streams[id]; exists {
		c.mu.Unlock()
		return fmt.Errorf("subscriber %s already exists", id)
	}
	ctx, cancel := context.WithCancel(context.Background())
	c.streams[id] = cancel
	c.mu.Unlock()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+"/api/v1/posts/stream", nil)
	if err != nil {
		c.dropStream(id)
		return err
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.hc.Do(req)
	if err != nil {
		c.dropStream(id)
		return fmt.Errorf("%w: %v", ErrRemote, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		c.dropStream(id)
		return fmt.Errorf("%w: stream status %d", ErrRemote, resp.StatusCode)
	}

	go c.consumeStream(ctx, id, resp.Body, ch)
	return nil
}

// Unsubscribe closes the stream for id.
func (c *Client) Unsubscribe(id string) error {
	c.mu.Lock()
	cancel, exists := c.streams[id]
	delete(c.streams, id)
	c.mu.Unlock()
	if !exists {
		return fmt.Errorf("subscriber %s not found", id)
	}
	cancel()
	return nil
}

// Close drops every open stream.
func (c *Client) Close() {
	c.mu.Lock()
	for id, cancel := range c.streams {
		cancel()
		delete(c.streams, id)
	}
	c.mu.Unlock()
}

func (c *Client) dropStream(id string) {
	c.mu.Lock()
	if cancel, ok := c.streams[id]; ok {
		cancel()
		delete(c.streams, id)
	}
	c.mu.Unlock()
}

// consumeStream parses SSE lines and forwards insert events.
func (c *Client) consumeStream(ctx context.Context, id string, body io.ReadCloser, ch chan<- models.Post) {
	defer body.Close()
	defer c.dropStream(id)

	var event string
	var data bytes.Buffer

	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 4096), 1<<20)
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == "":
			if event == "insert" && data.Len() > 0 {
				var post models.Post
				if err := json.Unmarshal(data.Bytes(), &post); err == nil {
					select {
					case ch <- post:
					case <-ctx.Done():
						return
					}
				}
			}
			event = ""
			data.Reset()
		case strings.HasPrefix(line, ":"):
			// heartbeat comment
		case strings.HasPrefix(line, "event:"):
			event = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			if data.Len() > 0 {
				data.WriteByte('\n')
			}
			data.WriteString(strings.TrimSpace(strings.TrimPrefix(line, "data:")))
		}
	}
}

// do executes a request and decodes the response envelope into out.
func (c *Client) do(req *http.Request, out interface{}) error {
	resp, err := c.hc.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRemote, err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("%w: decode response: %v", ErrRemote, err)
	}
	if resp.StatusCode != http.StatusOK || env.Code != 0 {
		return fmt.Errorf("%w: status %d code %d: %s", ErrRemote, resp.StatusCode, env.Code, env.Message)
	}
	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("%w: decode data: %v", ErrRemote, err)
		}
	}
	return nil
}
