// Package render provides the page renderer and router shared by all pages of
// the front server.
package render

import (
	"fmt"
	"html/template"
	"net/http"

	"github.com/diamondburned/travelboard/httperr"
	"github.com/go-chi/chi"
	"github.com/rs/zerolog"
)

// Renderer represents a renderable page.
type Renderer = func(r *Request) (Render, error)

// ErrorRenderer represents a renderable page for errors.
type ErrorRenderer = func(r *Request, err error) (Render, error)

type Render struct {
	Title       string // <title>
	Description string // og:description

	// Refresh, if non-zero, makes the browser reload the page after that many
	// seconds.
	Refresh int

	// Scripts are external scripts loaded in the head.
	Scripts []string

	Body template.HTML
}

// IsEmpty returns true if nothing should be rendered.
func (r Render) IsEmpty() bool {
	return r.Title == "" && r.Body == "" && r.Refresh == 0
}

// Empty is a blank page.
var Empty = Render{}

type Config struct {
	SiteName string `toml:"siteName"`
}

func NewConfig() Config {
	return Config{
		SiteName: "travelboard",
	}
}

func (c *Config) Validate() error {
	if c.SiteName == "" {
		c.SiteName = "travelboard"
	}
	return nil
}

type renderCtx struct {
	Theme  Theme
	Render Render
	Config Config
}

func (r renderCtx) FormatTitle() string {
	if r.Render.Title == "" {
		return r.Config.SiteName
	}
	return fmt.Sprintf("%s - %s", r.Render.Title, r.Config.SiteName)
}

type Request struct {
	*http.Request
	Writer FlushWriter
	CommonCtx

	cookies []*http.Cookie
}

type CommonCtx struct {
	Config  Config
	Request *http.Request
	Theme   Theme
	Themes  []Theme
}

// Token returns the visitor's auth token from the token cookie, or an empty
// string if there's none.
func (r *Request) Token() string {
	if c, err := r.Cookie("token"); err == nil {
		return c.Value
	}
	return ""
}

// SetCookie queues the cookie to be written along with the response.
func (r *Request) SetCookie(c *http.Cookie) {
	r.cookies = append(r.cookies, c)
}

// FlushCookies writes all queued cookies to the response writer.
func (r *Request) FlushCookies() {
	for _, cookie := range r.cookies {
		http.SetCookie(r.Writer, cookie)
	}
	r.cookies = nil
}

func (r *Request) Param(name string) string {
	return chi.URLParam(r.Request, name)
}

func (r *Request) Redirect(url string, code int) {
	// Flush the cookies before writing the header.
	r.FlushCookies()
	http.Redirect(r.Writer, r.Request, url, code)
}

// NoContent replies with 204 and the queued cookies.
func (r *Request) NoContent() {
	r.FlushCookies()
	r.Writer.WriteHeader(http.StatusNoContent)
}

type Mux struct {
	*chi.Mux
	cfg  Config
	log  zerolog.Logger
	errR ErrorRenderer
}

// NewMux creates a mux. The given middlewares run before any route.
func NewMux(cfg Config, log zerolog.Logger, mws ...func(http.Handler) http.Handler) *Mux {
	r := chi.NewMux()
	r.Use(mws...)
	r.Use(ThemeM)
	r.Post("/theme", handleSetTheme)
	r.Get("/static/components.css", componentsCSSHandler)

	return &Mux{Mux: r, cfg: cfg, log: log}
}

func (m *Mux) SetErrorRenderer(r ErrorRenderer) {
	m.errR = r
}

func (m *Mux) NewRequest(w http.ResponseWriter, r *http.Request) *Request {
	return &Request{
		Request: r,
		Writer:  TryFlushWriter(w),
		CommonCtx: CommonCtx{
			Config:  m.cfg,
			Request: r,
			Theme:   GetTheme(r.Context()),
			Themes:  Themes(),
		},
	}
}

// M is the middleware wrapper.
func (m *Mux) M(render Renderer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")

		var request = m.NewRequest(w, r)

		page, err := render(request)
		if err != nil {
			code := httperr.ErrCode(err)

			if code >= 500 {
				m.log.Error().Err(err).Str("path", r.URL.Path).Msg("Page failed")
			}

			// Cookies still have to go out, such as a fresh draft cookie.
			request.FlushCookies()
			w.WriteHeader(code)

			// If there is no error renderer, then we just write the error down
			// in plain text.
			if m.errR == nil {
				fmt.Fprintf(w, "Error: %v", err)
				return
			}

			page, err = m.errR(request, err)
			if err != nil {
				m.log.Error().Err(err).Msg("Error rendering error page")
				return
			}

		} else {
			request.FlushCookies()
		}

		// Don't render anything if an empty page is returned and there is no
		// error.
		if page.IsEmpty() {
			return
		}

		var renderCtx = renderCtx{
			Theme:  request.Theme,
			Render: page,
			Config: m.cfg,
		}

		if err := index.Execute(w, renderCtx); err != nil {
			m.log.Warn().Err(err).Msg("Failed to write page")
		}
	}
}

func (m *Mux) Get(route string, r Renderer) {
	m.Mux.Get(route, m.M(r))
}

func (m *Mux) Post(route string, r Renderer) {
	m.Mux.Post(route, m.M(r))
}

// Muxer implements the interface that's passable to pages' mount functions.
type Muxer interface {
	M(Renderer) http.HandlerFunc
}

func (m *Mux) Mount(route string, mounter func(Muxer) http.Handler) {
	m.Mux.Mount(route, mounter(m))
}
