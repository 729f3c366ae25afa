package errorpage

import (
	"net/http"
	"strings"
	"unicode"
	"unicode/utf8"

	_ "embed"

	"github.com/diamondburned/travelboard/frontend/components/nav"
	"github.com/diamondburned/travelboard/frontend/render"
	"github.com/diamondburned/travelboard/httperr"
)

//go:embed errorpage.html
var errorpageHTML string

//go:embed errorpage.css
var errorpageCSS string

func init() {
	render.RegisterCSS(errorpageCSS)
}

var tmpl = render.BuildPage("errorpage", render.Page{
	Template: errorpageHTML,
	Components: map[string]render.Component{
		"nav": nav.Component,
	},
})

type renderCtx struct {
	render.CommonCtx
	Code   int
	Status string
	Errors [][]string
}

// RenderError renders the error chain, one line per wrapped part.
func RenderError(r *render.Request, err error) (render.Render, error) {
	var lines = strings.Split(err.Error(), "\n")
	var errors = make([][]string, len(lines))

	for i, line := range lines {
		var parts = strings.SplitAfter(line, ": ")

		for j, part := range parts {
			f, sz := utf8.DecodeRuneInString(part)
			if sz > 0 {
				parts[j] = string(unicode.ToUpper(f)) + part[sz:]
			}
		}

		if last := len(parts) - 1; last >= 0 && !strings.HasSuffix(parts[last], ".") {
			parts[last] += "."
		}

		errors[i] = parts
	}

	code := httperr.ErrCode(err)

	body, err := tmpl.Render(renderCtx{
		CommonCtx: r.CommonCtx,
		Code:      code,
		Status:    http.StatusText(code),
		Errors:    errors,
	})
	if err != nil {
		return render.Empty, err
	}

	return render.Render{
		Title: http.StatusText(code),
		Body:  body,
	}, nil
}
