// Package travelboard contains the types shared between the post form, the
// backend client and the front server.
package travelboard

import (
	"math"
	"strings"

	"github.com/diamondburned/travelboard/httperr"
)

// Category is a post category as returned by the backend. Header is what the
// draft stores; ID is only used as a key.
type Category struct {
	ID     string `json:"_id"`
	Header string `json:"header"`
}

// Country is a country entry from the country reference service.
type Country struct {
	Alpha3Code string `json:"alpha3Code"`
	Name       string `json:"name"`
}

// Coordinates is a geolocation in degrees.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

var ErrInvalidCoordinates = httperr.New(400, "coordinates out of range")

// Validate checks that the coordinates are finite and within range.
func (c Coordinates) Validate() error {
	switch {
	case math.IsNaN(c.Lat), math.IsNaN(c.Lng):
		return ErrInvalidCoordinates
	case c.Lat < -90, c.Lat > 90:
		return ErrInvalidCoordinates
	case c.Lng < -180, c.Lng > 180:
		return ErrInvalidCoordinates
	}
	return nil
}

// ErrResponse is the error body returned by the backend. The backend isn't
// consistent about it, so all three known shapes are accepted.
type ErrResponse struct {
	Error  string `json:"error,omitempty"`
	Msg    string `json:"msg,omitempty"`
	Errors []struct {
		Msg string `json:"msg"`
	} `json:"errors,omitempty"`
}

// Message returns the first non-empty error message, or an empty string.
func (r ErrResponse) Message() string {
	switch {
	case r.Error != "":
		return r.Error
	case r.Msg != "":
		return r.Msg
	}

	var msgs = make([]string, 0, len(r.Errors))
	for _, err := range r.Errors {
		if err.Msg != "" {
			msgs = append(msgs, err.Msg)
		}
	}

	return strings.Join(msgs, "; ")
}
