// Package frontend is the server-rendered front of the post creation form.
package frontend

import (
	"net/http"
	"time"

	"github.com/diamondburned/travelboard/drafts"
	"github.com/diamondburned/travelboard/frontend/internal/limit"
	"github.com/diamondburned/travelboard/frontend/pages/errorpage"
	"github.com/diamondburned/travelboard/frontend/pages/newpost"
	"github.com/diamondburned/travelboard/frontend/render"
	"github.com/go-chi/chi/middleware"
	"github.com/rs/zerolog"
)

type FrontConfig struct {
	render.Config
	// RateLimit is the number of form events allowed per second per visitor.
	RateLimit float64 `toml:"rateLimit"`
	// ResetOnSubmit starts a new draft after every successful post.
	ResetOnSubmit bool `toml:"resetOnSubmit"`
}

func NewConfig() FrontConfig {
	return FrontConfig{
		Config:    render.NewConfig(),
		RateLimit: 16,
	}
}

func (c *FrontConfig) Validate() error {
	return c.Config.Validate()
}

type Deps = newpost.Deps

func New(cfg FrontConfig, deps Deps) (http.Handler, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	r := render.NewMux(cfg.Config, deps.Logger, requestLogger(deps.Logger))
	r.SetErrorRenderer(errorpage.RenderError)

	var limiter func(http.Handler) http.Handler
	if cfg.RateLimit > 0 {
		limiter = limit.RateLimit(cfg.RateLimit)
	}

	r.Get("/", func(r *render.Request) (render.Render, error) {
		r.Redirect(newpost.Root, http.StatusFound)
		return render.Empty, nil
	})

	deps.ResetOnSubmit = cfg.ResetOnSubmit
	r.Mount(newpost.Root, newpost.New(deps).Mount(limiter))

	return r, nil
}

func requestLogger(log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			next.ServeHTTP(ww, r)

			log.Debug().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Dur("took", time.Since(start)).
				Str("device", drafts.DeviceName(r.UserAgent())).
				Msg("Request")
		})
	}
}
