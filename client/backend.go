package client

import (
	"context"
	"net/http"
	"time"

	"github.com/diamondburned/duration"
	"github.com/diamondburned/travelboard/travelboard"
	"github.com/pkg/errors"
)

// AuthHeader is the header the backend reads the session token from.
const AuthHeader = "x-auth-token"

// UserAgent is sent by the backend and countries clients.
const UserAgent = "travelboard (+https://github.com/diamondburned/travelboard)"

type BackendConfig struct {
	URL string `toml:"url"`
	// Timeout is empty by default, which leaves the transport's own behavior.
	Timeout string `toml:"timeout"`

	timeout time.Duration
}

func NewBackendConfig() BackendConfig {
	return BackendConfig{
		URL: "http://localhost:5000/api/",
	}
}

func (c *BackendConfig) Validate() error {
	if c.URL == "" {
		return errors.New("missing backend `url' value")
	}

	if c.Timeout != "" {
		d, err := duration.ParseDuration(c.Timeout)
		if err != nil {
			return errors.Wrap(err, "invalid backend timeout")
		}
		c.timeout = time.Duration(d)
	}

	return nil
}

// Backend is the application backend that owns categories and posts.
type Backend struct {
	Client *Client
}

// NewBackend creates a backend client from a validated config.
func NewBackend(cfg BackendConfig) (*Backend, error) {
	c, err := NewClient(cfg.URL)
	if err != nil {
		return nil, err
	}
	c.Timeout = cfg.timeout
	c.SetUserAgent(UserAgent)

	return NewBackendWithClient(c), nil
}

func NewBackendWithClient(c *Client) *Backend {
	return &Backend{Client: c}
}

// Categories returns all categories in the backend's order.
func (b *Backend) Categories(ctx context.Context) (cs []travelboard.Category, err error) {
	err = b.Client.Get(ctx, "categories", &cs, nil)
	return
}

// CreatePost creates a post as the user that owns token. The response body is
// ignored.
func (b *Backend) CreatePost(ctx context.Context, token string, p travelboard.PostPayload) error {
	var h = http.Header{}
	if token != "" {
		h.Set(AuthHeader, token)
	}

	return b.Client.PostJSON(ctx, "posts", h, p, nil)
}
