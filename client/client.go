package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"io/ioutil"
	"net/http"
	"net/url"
	"strings"

	"github.com/diamondburned/travelboard/travelboard"
	"github.com/pkg/errors"
)

// StatusCoder is an interface that ErrUnexpectedStatusCode implements.
type StatusCoder interface {
	StatusCode() int
}

// ErrGetStatusCode gets the status code from error, or returns orCode if it
// can't get any.
func ErrGetStatusCode(err error, orCode int) int {
	var scode StatusCoder
	if errors.As(err, &scode) {
		return scode.StatusCode()
	}
	return orCode
}

type ErrUnexpectedStatusCode struct {
	Code   int
	Body   string
	ErrMsg string
}

func (err ErrUnexpectedStatusCode) StatusCode() int {
	return err.Code
}

func (err ErrUnexpectedStatusCode) Error() string {
	var errstr = fmt.Sprintf("Unexpected status code %d", err.Code)
	switch {
	case err.ErrMsg != "":
		errstr += ": " + err.ErrMsg
	case err.Body != "":
		errstr += ", body: " + err.Body
	}

	return errstr
}

// Client is a thin JSON HTTP client bound to a single base URL. It is safe to
// share between goroutines.
type Client struct {
	http.Client
	host  *url.URL
	agent string
}

// NewClient makes a new client. Paths given to the request methods are joined
// onto host.
func NewClient(host string) (*Client, error) {
	u, err := url.Parse(host)
	if err != nil {
		return nil, errors.Wrap(err, "Failed to parse host URL")
	}

	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("host URL %q is not absolute", host)
	}

	return &Client{host: u}, nil
}

func (c *Client) SetUserAgent(userAgent string) {
	c.agent = userAgent
}

// Host returns the stringified URL.
func (c *Client) Host() string {
	return c.host.String()
}

// Endpoint joins path onto the host URL.
func (c *Client) Endpoint(path string) string {
	return strings.TrimSuffix(c.Host(), "/") + "/" + strings.TrimPrefix(path, "/")
}

func (c *Client) Do(req *http.Request) (*http.Response, error) {
	// Override the UserAgent if we have one.
	if c.agent != "" {
		req.Header.Set("User-Agent", c.agent)
	}

	r, err := c.Client.Do(req)
	if err != nil {
		return nil, err
	}

	if r.StatusCode < 200 || r.StatusCode > 299 {
		// Start reading the body for the error.
		defer r.Body.Close()

		var unexp = ErrUnexpectedStatusCode{Code: r.StatusCode}

		b, err := ioutil.ReadAll(io.LimitReader(r.Body, 64*1024))
		if err == nil {
			var errResp travelboard.ErrResponse
			if json.Unmarshal(b, &errResp); errResp.Message() != "" {
				unexp.ErrMsg = errResp.Message()
			} else {
				if len(b) > 100 {
					unexp.Body = string(b[:97]) + "..."
				} else {
					unexp.Body = string(b)
				}
			}
		}

		return nil, unexp
	}

	return r, nil
}

func (c *Client) DoJSON(req *http.Request, resp interface{}) error {
	q, err := c.Do(req)
	if err != nil {
		return err
	}
	defer q.Body.Close()

	if resp != nil {
		if err := json.NewDecoder(q.Body).Decode(resp); err != nil {
			return errors.Wrap(err, "Failed to decode response")
		}
	}

	return nil
}

// Get sends a GET request with the given query values and decodes the JSON
// response into resp.
func (c *Client) Get(ctx context.Context, path string, resp interface{}, v url.Values) error {
	var url = c.Endpoint(path)
	if len(v) > 0 {
		url += "?" + v.Encode()
	}

	r, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return errors.Wrap(err, "Failed to create request")
	}

	return c.DoJSON(r, resp)
}

// PostJSON sends body as JSON with the given extra headers.
func (c *Client) PostJSON(
	ctx context.Context, path string, h http.Header, body, resp interface{}) error {

	b, err := json.Marshal(body)
	if err != nil {
		return errors.Wrap(err, "Failed to encode body")
	}

	r, err := http.NewRequestWithContext(ctx, "POST", c.Endpoint(path), bytes.NewReader(b))
	if err != nil {
		return errors.Wrap(err, "Failed to create request")
	}

	for k, v := range h {
		r.Header[k] = v
	}
	r.Header.Set("Content-Type", "application/json")

	return c.DoJSON(r, resp)
}
