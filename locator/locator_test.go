package locator

import (
	"testing"

	"github.com/diamondburned/travelboard/travelboard"
)

func TestMarker(t *testing.T) {
	m := NewMarker()

	if _, ok := m.Position(); ok {
		t.Fatal("New marker has a position")
	}

	var got []travelboard.Coordinates
	cancel := m.OnChange(func(c travelboard.Coordinates) {
		got = append(got, c)
	})

	if err := m.Set(travelboard.Coordinates{Lat: 12.5, Lng: -7.25}); err != nil {
		t.Fatal("Failed to set:", err)
	}

	pos, ok := m.Position()
	if !ok || pos.Lat != 12.5 || pos.Lng != -7.25 {
		t.Fatal("Unexpected position:", pos, ok)
	}

	cancel()

	if err := m.Set(travelboard.Coordinates{Lat: 1, Lng: 1}); err != nil {
		t.Fatal("Failed to set:", err)
	}

	if len(got) != 1 {
		t.Fatalf("Expected 1 notification, got %d", len(got))
	}
}

func TestMarkerInvalid(t *testing.T) {
	m := NewMarkerAt(travelboard.Coordinates{Lat: 10, Lng: 10})

	if err := m.Set(travelboard.Coordinates{Lat: 100, Lng: 0}); err == nil {
		t.Fatal("Expected error for out of range latitude")
	}

	if pos, _ := m.Position(); pos.Lat != 10 {
		t.Fatal("Position changed after invalid set:", pos)
	}
}

func TestParseCoordinates(t *testing.T) {
	var tests = []struct {
		lat, lng string
		ok       bool
	}{
		{"12.5", "-7.25", true},
		{" 0 ", "0", true},
		{"", "1", false},
		{"abc", "1", false},
		{"91", "1", false},
	}

	for _, test := range tests {
		_, err := ParseCoordinates(test.lat, test.lng)
		if (err == nil) != test.ok {
			t.Errorf("ParseCoordinates(%q, %q) = %v", test.lat, test.lng, err)
		}
	}
}

func TestScriptURL(t *testing.T) {
	c := NewMapConfig()
	c.APIKey = "abc"

	const expect = "https://maps.googleapis.com/maps/api/js?key=abc&language=EN&v=3.exp"
	if u := c.ScriptURL(); u != expect {
		t.Fatalf("Unexpected URL %q", u)
	}
}
