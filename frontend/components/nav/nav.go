package nav

import (
	_ "embed"

	"github.com/diamondburned/travelboard/frontend/render"
)

//go:embed nav.html
var navHTML string

//go:embed nav.css
var navCSS string

func init() {
	render.RegisterCSS(navCSS)
}

// Component expects a render.CommonCtx.
var Component = render.Component{
	Template: navHTML,
}
