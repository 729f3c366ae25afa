// Package locator decouples the post form from whatever map widget picks the
// location. A widget only has to produce the current coordinates on demand
// and, optionally, notify when they change.
package locator

import (
	"strconv"
	"strings"
	"sync"

	"github.com/diamondburned/travelboard/httperr"
	"github.com/diamondburned/travelboard/travelboard"
)

// Source produces the current marker position on demand. The boolean is false
// if nothing has been picked yet.
type Source interface {
	Position() (travelboard.Coordinates, bool)
}

// Notifier calls the given function every time the marker moves. The returned
// function unregisters it.
type Notifier interface {
	OnChange(func(travelboard.Coordinates)) (cancel func())
}

// Static is a Source with a fixed position.
type Static travelboard.Coordinates

func (s Static) Position() (travelboard.Coordinates, bool) {
	return travelboard.Coordinates(s), true
}

// Marker is a thread-safe marker position fed by the map widget. It
// implements both Source and Notifier.
type Marker struct {
	mu     sync.Mutex
	pos    travelboard.Coordinates
	picked bool

	serial int
	subs   map[int]func(travelboard.Coordinates)
}

var (
	_ Source   = (*Marker)(nil)
	_ Notifier = (*Marker)(nil)
)

// NewMarker creates a marker with nothing picked.
func NewMarker() *Marker {
	return &Marker{
		subs: map[int]func(travelboard.Coordinates){},
	}
}

// NewMarkerAt creates a marker that already points at c, which is what a map
// widget does when it's centered somewhere by default.
func NewMarkerAt(c travelboard.Coordinates) *Marker {
	m := NewMarker()
	m.pos = c
	m.picked = true
	return m
}

func (m *Marker) Position() (travelboard.Coordinates, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.pos, m.picked
}

// Set moves the marker and notifies all subscribers. Subscribers are called
// outside the lock.
func (m *Marker) Set(c travelboard.Coordinates) error {
	if err := c.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	m.pos = c
	m.picked = true

	var subs = make([]func(travelboard.Coordinates), 0, len(m.subs))
	for _, fn := range m.subs {
		subs = append(subs, fn)
	}

	m.mu.Unlock()

	for _, fn := range subs {
		fn(c)
	}

	return nil
}

func (m *Marker) OnChange(fn func(travelboard.Coordinates)) func() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.serial++
	id := m.serial
	m.subs[id] = fn

	return func() {
		m.mu.Lock()
		delete(m.subs, id)
		m.mu.Unlock()
	}
}

var ErrMissingCoordinates = httperr.New(400, "missing lat or lng")

// ParseCoordinates parses the latitude and longitude as sent by the map
// widget.
func ParseCoordinates(lat, lng string) (travelboard.Coordinates, error) {
	lat = strings.TrimSpace(lat)
	lng = strings.TrimSpace(lng)

	if lat == "" || lng == "" {
		return travelboard.Coordinates{}, ErrMissingCoordinates
	}

	la, err := strconv.ParseFloat(lat, 64)
	if err != nil {
		return travelboard.Coordinates{}, httperr.Wrap(err, 400, "invalid lat")
	}

	ln, err := strconv.ParseFloat(lng, 64)
	if err != nil {
		return travelboard.Coordinates{}, httperr.Wrap(err, 400, "invalid lng")
	}

	c := travelboard.Coordinates{Lat: la, Lng: ln}
	return c, c.Validate()
}
