package locator

import (
	"net/url"

	"github.com/diamondburned/travelboard/travelboard"
	"github.com/pkg/errors"
)

const scriptEndpoint = "https://maps.googleapis.com/maps/api/js"

// MapConfig configures the map widget embedded in the form page.
type MapConfig struct {
	APIKey string  `toml:"apiKey"`
	Lat    float64 `toml:"lat"`
	Lng    float64 `toml:"lng"`
	Zoom   int     `toml:"zoom"`
}

func NewMapConfig() MapConfig {
	return MapConfig{
		Zoom: 3,
	}
}

func (c *MapConfig) Validate() error {
	if err := c.Center().Validate(); err != nil {
		return errors.Wrap(err, "invalid map center")
	}
	return nil
}

// Center is where new markers start.
func (c MapConfig) Center() travelboard.Coordinates {
	return travelboard.Coordinates{Lat: c.Lat, Lng: c.Lng}
}

// ScriptURL returns the URL of the map provider's script.
func (c MapConfig) ScriptURL() string {
	var v = url.Values{
		"v":        {"3.exp"},
		"language": {"EN"},
		"key":      {c.APIKey},
	}

	return scriptEndpoint + "?" + v.Encode()
}
