package client

import (
	"context"
	"encoding/json"
	"io/ioutil"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/diamondburned/travelboard/travelboard"
	"github.com/go-test/deep"
)

func newTestBackend(t *testing.T, h http.HandlerFunc) *Backend {
	t.Helper()

	s := httptest.NewServer(h)
	t.Cleanup(s.Close)

	cfg := NewBackendConfig()
	cfg.URL = s.URL + "/api/"
	cfg.Timeout = "5s"

	if err := cfg.Validate(); err != nil {
		t.Fatal("Invalid config:", err)
	}

	b, err := NewBackend(cfg)
	if err != nil {
		t.Fatal("Failed to create backend:", err)
	}

	return b
}

func TestCategories(t *testing.T) {
	b := newTestBackend(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "GET" || r.URL.Path != "/api/categories" {
			t.Errorf("Unexpected request %s %s", r.Method, r.URL.Path)
		}
		if ua := r.UserAgent(); ua != UserAgent {
			t.Errorf("Unexpected User-Agent %q", ua)
		}
		w.Write([]byte(`[{"_id":"a1","header":"Beach","__v":0},{"_id":"a2","header":"City"}]`))
	})

	cs, err := b.Categories(context.Background())
	if err != nil {
		t.Fatal("Failed to get categories:", err)
	}

	var expect = []travelboard.Category{
		{ID: "a1", Header: "Beach"},
		{ID: "a2", Header: "City"},
	}

	if eq := deep.Equal(cs, expect); eq != nil {
		t.Fatal("Unexpected categories:", eq)
	}
}

func TestCreatePost(t *testing.T) {
	var payload = travelboard.PostPayload{
		Title:       "T",
		Place:       "P",
		Country:     "C",
		Category:    "X",
		Description: "D",
		Image:       "img",
		Lat:         12.5,
		Lng:         -7.25,
	}

	b := newTestBackend(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "POST" || r.URL.Path != "/api/posts" {
			t.Errorf("Unexpected request %s %s", r.Method, r.URL.Path)
		}

		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Unexpected Content-Type %q", ct)
		}

		if tok := r.Header.Get(AuthHeader); tok != "secret" {
			t.Errorf("Unexpected token %q", tok)
		}

		b, _ := ioutil.ReadAll(r.Body)

		var got travelboard.PostPayload
		if err := json.Unmarshal(b, &got); err != nil {
			t.Error("Invalid body:", err)
		}

		if eq := deep.Equal(got, payload); eq != nil {
			t.Error("Unexpected body:", eq)
		}

		w.WriteHeader(201)
		w.Write([]byte(`{"_id":"p1"}`))
	})

	if err := b.CreatePost(context.Background(), "secret", payload); err != nil {
		t.Fatal("Failed to create post:", err)
	}
}

func TestCreatePostError(t *testing.T) {
	b := newTestBackend(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(401)
		w.Write([]byte(`{"msg":"Token is not valid"}`))
	})

	err := b.CreatePost(context.Background(), "bad", travelboard.PostPayload{})
	if err == nil {
		t.Fatal("Expected error")
	}

	if code := ErrGetStatusCode(err, 0); code != 401 {
		t.Fatal("Unexpected status code:", code)
	}

	if msg := err.Error(); msg != "Unexpected status code 401: Token is not valid" {
		t.Fatalf("Unexpected error message %q", msg)
	}
}

func TestUnexpectedStatusBody(t *testing.T) {
	b := newTestBackend(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(502)
		w.Write([]byte("Bad Gateway"))
	})

	_, err := b.Categories(context.Background())

	unexp, ok := err.(ErrUnexpectedStatusCode)
	if !ok {
		t.Fatalf("Unexpected error type %T: %v", err, err)
	}

	if unexp.Body != "Bad Gateway" {
		t.Fatalf("Unexpected body %q", unexp.Body)
	}
}

func TestCountries(t *testing.T) {
	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v2/all" {
			t.Errorf("Unexpected path %q", r.URL.Path)
		}
		if fields := r.URL.Query().Get("fields"); fields != "name,alpha3Code" {
			t.Errorf("Unexpected fields %q", fields)
		}
		w.Write([]byte(`[{"name":"Afghanistan","alpha3Code":"AFG","region":"Asia"}]`))
	}))
	defer s.Close()

	c, err := NewCountries(CountriesConfig{URL: s.URL + "/v2"})
	if err != nil {
		t.Fatal("Failed to create client:", err)
	}

	cs, err := c.All(context.Background())
	if err != nil {
		t.Fatal("Failed to get countries:", err)
	}

	if eq := deep.Equal(cs, []travelboard.Country{{Alpha3Code: "AFG", Name: "Afghanistan"}}); eq != nil {
		t.Fatal("Unexpected countries:", eq)
	}
}

func TestEndpoint(t *testing.T) {
	var tests = []struct {
		host, path, expect string
	}{
		{"http://a/api/", "posts", "http://a/api/posts"},
		{"http://a/api", "posts", "http://a/api/posts"},
		{"http://a/api/", "/posts", "http://a/api/posts"},
	}

	for _, test := range tests {
		c, err := NewClient(test.host)
		if err != nil {
			t.Fatal("Failed to create client:", err)
		}
		if e := c.Endpoint(test.path); e != test.expect {
			t.Errorf("Endpoint(%q) on %q = %q", test.path, test.host, e)
		}
	}

	if _, err := NewClient("/relative"); err == nil {
		t.Fatal("Expected error for a relative host")
	}
}
