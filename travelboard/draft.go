package travelboard

import (
	"fmt"
	"strings"

	"github.com/diamondburned/travelboard/httperr"
)

// Field is the name of an editable draft field.
type Field string

const (
	FieldTitle       Field = "title"
	FieldPlace       Field = "place"
	FieldCountry     Field = "country"
	FieldCategory    Field = "category"
	FieldDescription Field = "description"
)

// AllFields returns every editable field in form order.
func AllFields() []Field {
	return []Field{
		FieldTitle,
		FieldPlace,
		FieldCountry,
		FieldCategory,
		FieldDescription,
	}
}

// RequiredFields are the fields that must be non-empty before submitting.
var RequiredFields = []Field{FieldTitle, FieldPlace, FieldCountry, FieldCategory}

type ErrUnknownField struct {
	Name string
}

func (err ErrUnknownField) StatusCode() int {
	return 400
}

func (err ErrUnknownField) Error() string {
	return fmt.Sprintf("unknown field %q", err.Name)
}

// ParseField validates the field name.
func ParseField(name string) (Field, error) {
	for _, field := range AllFields() {
		if string(field) == name {
			return field, nil
		}
	}
	return "", ErrUnknownField{name}
}

// Draft is the in-progress post. Image only ever holds a data URI. Lat and Lng
// are nil until a location is picked.
type Draft struct {
	Title       string   `json:"title"`
	Place       string   `json:"place"`
	Country     string   `json:"country"`
	Category    string   `json:"category"`
	Description string   `json:"description"`
	Image       string   `json:"image"`
	Lat         *float64 `json:"lat,omitempty"`
	Lng         *float64 `json:"lng,omitempty"`
}

// Get returns the value of the given field.
func (d Draft) Get(field Field) string {
	switch field {
	case FieldTitle:
		return d.Title
	case FieldPlace:
		return d.Place
	case FieldCountry:
		return d.Country
	case FieldCategory:
		return d.Category
	case FieldDescription:
		return d.Description
	}
	return ""
}

// With returns a copy of the draft with only the given field replaced.
func (d Draft) With(field Field, value string) Draft {
	switch field {
	case FieldTitle:
		d.Title = value
	case FieldPlace:
		d.Place = value
	case FieldCountry:
		d.Country = value
	case FieldCategory:
		d.Category = value
	case FieldDescription:
		d.Description = value
	}
	return d
}

// WithLocation returns a copy of the draft with the coordinates set.
func (d Draft) WithLocation(c Coordinates) Draft {
	lat, lng := c.Lat, c.Lng
	d.Lat = &lat
	d.Lng = &lng
	return d
}

// Location returns the picked coordinates, if any.
func (d Draft) Location() (Coordinates, bool) {
	if d.Lat == nil || d.Lng == nil {
		return Coordinates{}, false
	}
	return Coordinates{Lat: *d.Lat, Lng: *d.Lng}, true
}

type ErrMissingFields struct {
	Fields []Field
}

func (err ErrMissingFields) StatusCode() int {
	return 400
}

func (err ErrMissingFields) Error() string {
	var names = make([]string, len(err.Fields))
	for i, field := range err.Fields {
		names[i] = string(field)
	}
	return "missing " + strings.Join(names, ", ")
}

// Validate checks that every required field is present.
func (d Draft) Validate() error {
	var missing []Field

	for _, field := range RequiredFields {
		if strings.TrimSpace(d.Get(field)) == "" {
			missing = append(missing, field)
		}
	}

	if len(missing) > 0 {
		return ErrMissingFields{missing}
	}

	return nil
}

var ErrNoLocation = httperr.New(400, "no location picked on the map")

// PostPayload is the JSON body of the post creation request.
type PostPayload struct {
	Title       string  `json:"title"`
	Place       string  `json:"place"`
	Country     string  `json:"country"`
	Category    string  `json:"category"`
	Description string  `json:"description"`
	Image       string  `json:"image"`
	Lat         float64 `json:"lat"`
	Lng         float64 `json:"lng"`
}

// Payload assembles the request body from the draft and the marker position.
// The given position always wins over the draft's own coordinates.
func (d Draft) Payload(pos Coordinates) PostPayload {
	return PostPayload{
		Title:       d.Title,
		Place:       d.Place,
		Country:     d.Country,
		Category:    d.Category,
		Description: d.Description,
		Image:       d.Image,
		Lat:         pos.Lat,
		Lng:         pos.Lng,
	}
}
