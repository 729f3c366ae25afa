package render

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/diamondburned/travelboard/httperr"
	"github.com/rs/zerolog"
)

var testPage = BuildPage("test", Page{
	Template: `<p>{{ template "greeting" . }}</p>`,
	Components: map[string]Component{
		"greeting": {
			Template:  `{{ shout .Name }}`,
			Functions: map[string]interface{}{"shout": strings.ToUpper},
		},
	},
})

func TestTemplateRender(t *testing.T) {
	h, err := testPage.Render(struct{ Name string }{"hello"})
	if err != nil {
		t.Fatal("Failed to render:", err)
	}

	if h != "<p>HELLO</p>" {
		t.Fatalf("Unexpected output %q", h)
	}
}

func TestMux(t *testing.T) {
	m := NewMux(NewConfig(), zerolog.Nop())
	m.SetErrorRenderer(func(r *Request, err error) (Render, error) {
		return Render{Title: "Oops", Body: "failed"}, nil
	})

	m.Get("/ok", func(r *Request) (Render, error) {
		r.SetCookie(&http.Cookie{Name: "a", Value: "b"})
		return Render{Title: "Fine", Body: "<b>ok</b>"}, nil
	})
	m.Get("/teapot", func(r *Request) (Render, error) {
		return Empty, httperr.New(418, "short and stout")
	})
	m.Post("/empty", func(r *Request) (Render, error) {
		r.NoContent()
		return Empty, nil
	})

	t.Run("ok", func(t *testing.T) {
		w := httptest.NewRecorder()
		m.ServeHTTP(w, httptest.NewRequest("GET", "/ok", nil))

		if w.Code != 200 {
			t.Fatal("Unexpected code:", w.Code)
		}

		body := w.Body.String()
		if !strings.Contains(body, "<title>Fine - travelboard</title>") {
			t.Fatal("Missing title:", body)
		}
		if !strings.Contains(body, "<b>ok</b>") {
			t.Fatal("Missing body:", body)
		}
		if c := w.Result().Cookies(); len(c) != 1 || c[0].Name != "a" {
			t.Fatal("Cookie not flushed:", c)
		}
	})

	t.Run("error", func(t *testing.T) {
		w := httptest.NewRecorder()
		m.ServeHTTP(w, httptest.NewRequest("GET", "/teapot", nil))

		if w.Code != 418 {
			t.Fatal("Unexpected code:", w.Code)
		}
		if !strings.Contains(w.Body.String(), "failed") {
			t.Fatal("Error page not rendered")
		}
	})

	t.Run("empty", func(t *testing.T) {
		w := httptest.NewRecorder()
		m.ServeHTTP(w, httptest.NewRequest("POST", "/empty", nil))

		if w.Code != 204 || w.Body.Len() != 0 {
			t.Fatal("Unexpected response:", w.Code, w.Body.String())
		}
	})

	t.Run("css", func(t *testing.T) {
		w := httptest.NewRecorder()
		m.ServeHTTP(w, httptest.NewRequest("GET", "/static/components.css", nil))

		if w.Code != 200 || !strings.Contains(w.Body.String(), "min-height:100vh") {
			t.Fatal("Unexpected CSS:", w.Code, w.Body.String())
		}
	})
}

func TestParseTheme(t *testing.T) {
	for _, theme := range Themes() {
		if p := ParseTheme(theme.String()); p != theme {
			t.Fatalf("Theme %s parsed as %s", theme, p)
		}
	}

	if ParseTheme("solarized") != DefaultTheme {
		t.Fatal("Unknown theme not defaulted")
	}
}
