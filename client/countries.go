package client

import (
	"context"
	"net/url"

	"github.com/diamondburned/travelboard/travelboard"
	"github.com/pkg/errors"
)

type CountriesConfig struct {
	URL string `toml:"url"`
}

func NewCountriesConfig() CountriesConfig {
	return CountriesConfig{
		URL: "https://restcountries.com/v2/",
	}
}

func (c *CountriesConfig) Validate() error {
	if c.URL == "" {
		return errors.New("missing countries `url' value")
	}
	return nil
}

// Countries is the public country reference service.
type Countries struct {
	Client *Client
}

func NewCountries(cfg CountriesConfig) (*Countries, error) {
	c, err := NewClient(cfg.URL)
	if err != nil {
		return nil, err
	}
	c.SetUserAgent(UserAgent)

	return &Countries{Client: c}, nil
}

// All returns every country in the service's order. Only the name and the
// alpha-3 code are requested.
func (c *Countries) All(ctx context.Context) (cs []travelboard.Country, err error) {
	err = c.Client.Get(ctx, "all", &cs, url.Values{
		"fields": {"name,alpha3Code"},
	})
	return
}
