// Package newpost is the post creation page. Every visitor gets their own
// form, kept alive on the server and identified by the draft cookie; browser
// events are posted to the routes below and applied to that form.
package newpost

import (
	"context"
	"html/template"
	"net/http"
	"time"

	_ "embed"

	"github.com/c2h5oh/datasize"
	"github.com/diamondburned/travelboard/drafts"
	"github.com/diamondburned/travelboard/frontend/components/errbox"
	"github.com/diamondburned/travelboard/frontend/components/nav"
	"github.com/diamondburned/travelboard/frontend/render"
	"github.com/diamondburned/travelboard/locator"
	"github.com/diamondburned/travelboard/postform"
	"github.com/diamondburned/travelboard/preview"
	"github.com/diamondburned/travelboard/travelboard"
	"github.com/go-chi/chi"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

//go:embed newpost.html
var newpostHTML string

//go:embed spinner.html
var spinnerHTML string

//go:embed done.html
var doneHTML string

//go:embed newpost.css
var newpostCSS string

func init() {
	render.RegisterCSS(newpostCSS)
}

var components = map[string]render.Component{
	"nav":    nav.Component,
	"errbox": errbox.Component,
}

var (
	tmpl = render.BuildPage("newpost", render.Page{
		Template:   newpostHTML,
		Components: components,
		Functions: map[string]interface{}{
			"isRequired": isRequired,
			"previewURL": previewURL,
		},
	})
	spinnerTmpl = render.BuildPage("spinner", render.Page{
		Template:   spinnerHTML,
		Components: components,
	})
	doneTmpl = render.BuildPage("done", render.Page{
		Template:   doneHTML,
		Components: components,
	})
)

// CookieName is the name of the cookie holding the visitor's draft ID.
const CookieName = "draft-id"

// Root is where the page is mounted.
const Root = "/posts/new"

// submitTimeout bounds a background submission.
const submitTimeout = 2 * time.Minute

type Deps struct {
	Drafts   *drafts.Store
	Previews *preview.Generator
	Map      locator.MapConfig
	// MaxImageSize is the largest accepted image.
	MaxImageSize datasize.ByteSize
	// ResetOnSubmit shows a confirmation page after a successful submission
	// and starts a new draft. Otherwise the form stays as it was, with a
	// dismissable notice.
	ResetOnSubmit bool
	Logger        zerolog.Logger
}

type Page struct {
	Deps
}

func New(deps Deps) *Page {
	return &Page{deps}
}

// Mount mounts the page's routes. The mutating ones are wrapped in limit,
// which may be nil.
func (p *Page) Mount(limit func(http.Handler) http.Handler) func(render.Muxer) http.Handler {
	return func(muxer render.Muxer) http.Handler {
		mux := chi.NewMux()
		mux.Get("/", muxer.M(p.renderPage))

		mux.Group(func(mux chi.Router) {
			if limit != nil {
				mux.Use(limit)
			}

			mux.Post("/", muxer.M(p.handleSubmit))
			mux.Post("/fields", muxer.M(p.handleFields))
			mux.Post("/location", muxer.M(p.handleLocation))
			mux.Post("/drag", muxer.M(p.handleDrag))
			mux.Post("/image", muxer.M(p.handleImage))
			mux.Post("/reload", muxer.M(p.handleReload))
			mux.Post("/dismiss", muxer.M(p.handleDismiss))
		})

		return mux
	}
}

type renderCtx struct {
	render.CommonCtx
	State    postform.State
	Marker   travelboard.Coordinates
	Map      locator.MapConfig
	Preview  *preview.Preview
	MaxSize  string
	HasToken bool
}

// previewURL trusts the preview's data URI, which is always generated here.
func previewURL(p preview.Preview) template.URL {
	return template.URL(p.URL)
}

func isRequired(field string) bool {
	for _, f := range travelboard.RequiredFields {
		if string(f) == field {
			return true
		}
	}
	return false
}

// entry returns the visitor's form. A new one is made, and the cookie set, if
// the visitor has none or theirs expired.
func (p *Page) entry(r *render.Request) (*drafts.Entry, error) {
	if c, err := r.Cookie(CookieName); err == nil {
		id, err := drafts.ParseID(c.Value)
		if err == nil {
			e, err := p.Drafts.Get(r.Context(), id)
			if err == nil {
				return e, nil
			}

			if !errors.Is(err, drafts.ErrDraftNotFound) {
				return nil, errors.Wrap(err, "Failed to restore draft")
			}
		}
	}

	e := p.Drafts.New(r.UserAgent())

	r.SetCookie(&http.Cookie{
		Name:     CookieName,
		Value:    drafts.FormatID(e.ID),
		Path:     Root,
		Expires:  time.Now().Add(p.Drafts.Lifespan()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	p.Logger.Debug().
		Int64("draft", e.ID).
		Str("device", e.Device).
		Msg("New draft")

	return e, nil
}

func (p *Page) renderPage(r *render.Request) (render.Render, error) {
	e, err := p.entry(r)
	if err != nil {
		return render.Empty, err
	}

	// Load failures end up in the state and are rendered with a retry button.
	e.Form.Mount(r.Context())

	var state = e.Form.State()

	switch {
	case state.Loading:
		return p.renderSpinner(r, state)
	case state.Submitted && p.ResetOnSubmit:
		return p.renderDone(r, e, state)
	}

	marker, _ := e.Marker.Position()

	var ctx = renderCtx{
		CommonCtx: r.CommonCtx,
		State:     state,
		Marker:    marker,
		Map:       p.Map,
		MaxSize:   p.MaxImageSize.HumanReadable(),
		HasToken:  r.Token() != "",
	}

	if state.Image == postform.ImageEncoded && p.Previews != nil {
		pv, err := p.Previews.FromDataURI(state.Draft.Image)
		if err == nil {
			ctx.Preview = &pv
		} else {
			p.Logger.Debug().Err(err).Msg("No preview for the selected image")
		}
	}

	body, err := tmpl.Render(ctx)
	if err != nil {
		return render.Empty, err
	}

	var scripts []string
	if p.Map.APIKey != "" {
		scripts = append(scripts, p.Map.ScriptURL())
	}

	return render.Render{
		Title:       "New post",
		Description: "Share a place you've been to.",
		Scripts:     scripts,
		Body:        body,
	}, nil
}

func (p *Page) renderSpinner(r *render.Request, state postform.State) (render.Render, error) {
	body, err := spinnerTmpl.Render(renderCtx{
		CommonCtx: r.CommonCtx,
		State:     state,
	})
	if err != nil {
		return render.Empty, err
	}

	return render.Render{
		Title:   "Submitting",
		Refresh: 1,
		Body:    body,
	}, nil
}

// renderDone shows the confirmation page once, then forgets the draft so the
// next visit starts over.
func (p *Page) renderDone(r *render.Request, e *drafts.Entry, state postform.State) (render.Render, error) {
	body, err := doneTmpl.Render(renderCtx{
		CommonCtx: r.CommonCtx,
		State:     state,
	})
	if err != nil {
		return render.Empty, err
	}

	if err := p.Drafts.Forget(r.Context(), e.ID); err != nil {
		p.Logger.Warn().Err(err).Int64("draft", e.ID).Msg("Failed to forget draft")
	}

	r.SetCookie(&http.Cookie{
		Name:     CookieName,
		Path:     Root,
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	return render.Render{
		Title: "Posted",
		Body:  body,
	}, nil
}

// backToForm redirects to the form page after a form post.
func backToForm(r *render.Request) (render.Render, error) {
	r.Redirect(Root, http.StatusSeeOther)
	return render.Empty, nil
}

func detached() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), submitTimeout)
}
