package render

import (
	"bytes"
	"fmt"
	"html/template"
	"net/http"
	"strings"
	"sync"
	"time"

	_ "embed"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog/log"
	"github.com/tdewolff/minify"
	"github.com/tdewolff/minify/css"
	"github.com/tdewolff/minify/html"
)

// runtime minifier
var minifier = func() (minifier *minify.M) {
	minifier = minify.New()
	minifier.AddFunc("text/css", css.Minify)
	minifier.AddFunc("text/html", html.Minify)
	return
}()

var globalFns = template.FuncMap{
	"humanizeSize": func(bytes int64) string {
		return humanize.Bytes(uint64(bytes))
	},
	"humanizeTime": func(t time.Time) string {
		return humanize.Time(t)
	},
	"coord": func(f float64) string {
		return fmt.Sprintf("%.6f", f)
	},
}

// Component is a template fragment that pages can include by name. Template is
// the template source, usually embedded.
type Component struct {
	Template   string
	Components map[string]Component
	Functions  template.FuncMap
}

type Page struct {
	Template   string
	Components map[string]Component
	Functions  template.FuncMap
}

func BuildPage(n string, p Page) *Template {
	return &Template{
		name: n,
		page: p,
	}
}

type Template struct {
	*template.Template
	name string
	page Page
	once sync.Once
}

func (t *Template) prepare() {
	t.once.Do(t.do)
}

func (t *Template) do() {
	var components = map[string]Component{}
	var functions = template.FuncMap{}

	for n, fn := range t.page.Functions {
		functions[n] = fn
	}

	// Flatten nested components. The page's own functions take precedence.
	for n, component := range t.page.Components {
		components[n] = component

		for n, nested := range component.Components {
			components[n] = nested
		}
	}

	for _, component := range components {
		for n, fn := range component.Functions {
			if _, ok := functions[n]; !ok {
				functions[n] = fn
			}
		}
	}

	tmpl := template.New(t.name)
	tmpl = tmpl.Funcs(globalFns)
	tmpl = tmpl.Funcs(functions)
	tmpl = template.Must(tmpl.Parse(t.page.Template))

	for n, component := range components {
		tmpl = template.Must(tmpl.Parse(
			fmt.Sprintf("{{ define %q }}%s{{ end }}", n, component.Template),
		))
	}

	t.Template = tmpl
}

// Render renders the template with the given argument into HTML.
func (t *Template) Render(v interface{}) (template.HTML, error) {
	t.prepare()

	var b bytes.Buffer

	if err := t.Execute(&b, v); err != nil {
		log.Error().Err(err).Str("template", t.name).Msg("Template error")
		return "", err
	}

	return template.HTML(b.String()), nil
}

var (
	cssMutex   sync.Mutex
	cssSources []string
	cssOnce    sync.Once
	cssBytes   []byte
	cssModTime = time.Now()
)

// RegisterCSS adds the CSS source to the global CSS file, which is served
// minified at /static/components.css. It must be called before the first
// request, usually from init.
func RegisterCSS(src string) {
	cssMutex.Lock()
	cssSources = append(cssSources, src)
	cssMutex.Unlock()
}

func componentsCSS() []byte {
	cssOnce.Do(func() {
		cssMutex.Lock()
		defer cssMutex.Unlock()

		var b bytes.Buffer

		for _, src := range cssSources {
			if err := minifier.Minify("text/css", &b, strings.NewReader(src)); err != nil {
				log.Panic().Err(err).Msg("Failed to minify CSS")
			}
		}

		cssBytes = b.Bytes()
	})

	return cssBytes
}

func componentsCSSHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/css; charset=utf-8")
	http.ServeContent(
		w, r, "components.css", cssModTime,
		bytes.NewReader(componentsCSS()),
	)
}

//go:embed index.html
var indexHTML string

//go:embed style.css
var styleCSS string

var index = template.Must(template.New("index").Parse(indexHTML))

func init() {
	RegisterCSS(styleCSS)
}
