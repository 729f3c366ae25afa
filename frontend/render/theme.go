package render

import (
	"context"
	"math"
	"net/http"
	"time"
)

type Theme uint8

const (
	LightTheme Theme = iota
	DarkTheme
	NordTheme

	themeLen
)

const DefaultTheme = LightTheme

// Themes returns every theme in menu order.
func Themes() []Theme {
	var themes = make([]Theme, themeLen)
	for i := range themes {
		themes[i] = Theme(i)
	}
	return themes
}

// ParseTheme parses the theme name, falling back to the default theme.
func ParseTheme(name string) Theme {
	for _, theme := range Themes() {
		if theme.String() == name {
			return theme
		}
	}
	return DefaultTheme
}

func (t Theme) String() string {
	switch t {
	case DarkTheme:
		return "dark"
	case NordTheme:
		return "nord"
	default:
		return "light"
	}
}

// URL returns the stylesheet of the theme.
func (t Theme) URL() string {
	switch t {
	case DarkTheme:
		return "https://minicss.org/flavorFiles/mini-dark.min.css"
	case NordTheme:
		return "https://minicss.org/flavorFiles/mini-nord.min.css"
	default:
		return "https://minicss.org/flavorFiles/mini-default.min.css"
	}
}

type themeKey struct{}

// ThemeM reads the theme cookie into the request context.
func ThemeM(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var theme = DefaultTheme
		if c, err := r.Cookie("theme"); err == nil {
			theme = ParseTheme(c.Value)
		}

		ctx := context.WithValue(r.Context(), themeKey{}, theme)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func GetTheme(ctx context.Context) Theme {
	if v, ok := ctx.Value(themeKey{}).(Theme); ok {
		return v
	}
	return DefaultTheme
}

func handleSetTheme(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     "theme",
		Value:    ParseTheme(r.FormValue("theme")).String(),
		Path:     "/",
		Expires:  time.Unix(math.MaxInt32, 0),
		SameSite: http.SameSiteLaxMode,
	})

	var back = r.Referer()
	if back == "" {
		back = "/"
	}

	http.Redirect(w, r, back, http.StatusSeeOther)
}
