// Package errbox renders an error as a dismissable card.
package errbox

import (
	"strings"
	"unicode"
	"unicode/utf8"

	_ "embed"

	"github.com/diamondburned/travelboard/frontend/render"
)

//go:embed errbox.html
var errboxHTML string

//go:embed errbox.css
var errboxCSS string

func init() {
	render.RegisterCSS(errboxCSS)
}

// Component expects a Box as its argument.
var Component = render.Component{
	Template: errboxHTML,
	Functions: map[string]interface{}{
		"minifyError": MinifyError,
		"errbox":      New,
	},
}

// Box is the argument of the errbox component.
type Box struct {
	Title string
	Error error
	// Retry, if non-empty, is the URL of a form that re-runs the failed
	// operation, such as reloading or resubmitting.
	Retry string
}

// New creates a box. It's also available to templates as errbox.
func New(title string, err error, retry string) Box {
	return Box{title, err, retry}
}

// MinifyError returns only the innermost part of a wrapped error message,
// capitalized and ending with a period.
func MinifyError(err error) string {
	if err == nil {
		return ""
	}

	var parts = strings.Split(err.Error(), ": ")

	var part = strings.TrimSpace(parts[len(parts)-1])
	if part == "" {
		return ""
	}

	f, sz := utf8.DecodeRuneInString(part)
	part = string(unicode.ToUpper(f)) + part[sz:]

	if !strings.HasSuffix(part, ".") {
		part += "."
	}

	return part
}
