package drafts

import (
	"context"
	"testing"
	"time"

	"github.com/diamondburned/travelboard/postform"
	"github.com/diamondburned/travelboard/travelboard"
	"github.com/go-test/deep"
)

type stubBackend struct{}

func (stubBackend) Categories(context.Context) ([]travelboard.Category, error) {
	return []travelboard.Category{{ID: "c1", Header: "Beach"}}, nil
}

func (stubBackend) CreatePost(context.Context, string, travelboard.PostPayload) error {
	return nil
}

type stubCountries struct{}

func (stubCountries) All(context.Context) ([]travelboard.Country, error) {
	return []travelboard.Country{{Alpha3Code: "FRA", Name: "France"}}, nil
}

var testCenter = travelboard.Coordinates{Lat: 48.85, Lng: 2.35}

func newTestStore(t *testing.T) *Store {
	t.Helper()

	s := NewStore(newTestDatabase(t), postform.Deps{
		Backend:   stubBackend{},
		Countries: stubCountries{},
	}, testCenter)

	t.Cleanup(s.Close)
	return s
}

func TestStoreNew(t *testing.T) {
	s := newTestStore(t)

	e := s.New("Mozilla/5.0 (X11; Linux x86_64; rv:82.0) Gecko/20100101 Firefox/82.0")

	if e.Device != "Firefox on Linux" {
		t.Fatal("Unexpected device:", e.Device)
	}

	pos, ok := e.Marker.Position()
	if !ok {
		t.Fatal("Marker has no position")
	}

	if eq := deep.Equal(testCenter, pos); eq != nil {
		t.Fatal("Marker does not start at the center:", eq)
	}

	got, err := s.Get(context.Background(), e.ID)
	if err != nil {
		t.Fatal("Failed to get entry:", err)
	}

	if got != e {
		t.Fatal("Get returned a different entry")
	}
}

func TestStoreAutosaveRestore(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	e := s.New("")

	if err := e.Form.Mount(ctx); err != nil {
		t.Fatal("Failed to mount:", err)
	}

	e.Form.Change(travelboard.FieldTitle, "Trip")
	e.Form.Change(travelboard.FieldPlace, "Nice")

	if err := e.Marker.Set(travelboard.Coordinates{Lat: 43.7, Lng: 7.26}); err != nil {
		t.Fatal("Failed to move marker:", err)
	}

	e.Form.Select(postform.BytesFile("beach.png", []byte("not an image")))
	e.Form.Wait()

	r, err := s.db.Load(ctx, e.ID)
	if err != nil {
		t.Fatal("Draft was not autosaved:", err)
	}

	if r.Draft.Title != "Trip" || r.Draft.Place != "Nice" {
		t.Fatalf("Unexpected saved draft: %#v", r.Draft)
	}

	if r.FileName != "beach.png" {
		t.Fatal("Unexpected saved file name:", r.FileName)
	}

	if r.Device != "Unknown device" {
		t.Fatal("Unexpected saved device:", r.Device)
	}

	// Evict everything from memory, as if the server was restarted.
	s.Idle = 0
	if err := s.Sweep(ctx, time.Now().Add(time.Second)); err != nil {
		t.Fatal("Failed to sweep:", err)
	}

	if n := s.Len(); n != 0 {
		t.Fatal("Entries left after sweep:", n)
	}

	restored, err := s.Get(ctx, e.ID)
	if err != nil {
		t.Fatal("Failed to restore:", err)
	}

	if restored == e {
		t.Fatal("Entry was not evicted")
	}

	st := restored.Form.State()

	if eq := deep.Equal(travelboard.Draft(r.Draft), st.Draft); eq != nil {
		t.Fatal("Restored draft differs:", eq)
	}

	pos, _ := restored.Marker.Position()
	if eq := deep.Equal(travelboard.Coordinates{Lat: 43.7, Lng: 7.26}, pos); eq != nil {
		t.Fatal("Restored marker is not at the saved location:", eq)
	}

	// Mounting the restored form must keep the saved selections.
	if err := restored.Form.Mount(ctx); err != nil {
		t.Fatal("Failed to mount restored form:", err)
	}

	if c := restored.Form.State().Draft.Country; c != "France" {
		t.Fatal("Unexpected country:", c)
	}
}

func TestStoreGetMissing(t *testing.T) {
	s := newTestStore(t)

	if _, err := s.Get(context.Background(), NewID()); err != ErrDraftNotFound {
		t.Fatal("Unexpected error:", err)
	}
}

func TestStoreForget(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	e := s.New("")
	e.Form.Change(travelboard.FieldTitle, "Trip")

	if err := s.Forget(ctx, e.ID); err != nil {
		t.Fatal("Failed to forget:", err)
	}

	if _, err := s.Get(ctx, e.ID); err != ErrDraftNotFound {
		t.Fatal("Forgotten draft still exists:", err)
	}
}

func TestStoreSweepLifespan(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	e := s.New("")
	e.Form.Change(travelboard.FieldTitle, "Trip")

	// A week and a day later, both the entry and the saved draft are gone.
	later := time.Now().Add(8 * 24 * time.Hour)

	if err := s.Sweep(ctx, later); err != nil {
		t.Fatal("Failed to sweep:", err)
	}

	if _, err := s.db.Load(ctx, e.ID); err != ErrDraftNotFound {
		t.Fatal("Old draft was not deleted:", err)
	}
}

func TestDeviceName(t *testing.T) {
	var tests = []struct {
		ua     string
		device string
	}{
		{"", "Unknown device"},
		{
			"Mozilla/5.0 (X11; Linux x86_64; rv:82.0) Gecko/20100101 Firefox/82.0",
			"Firefox on Linux",
		},
	}

	for _, test := range tests {
		t.Run(test.device, func(t *testing.T) {
			if d := DeviceName(test.ua); d != test.device {
				t.Fatalf("Expected %q, got %q", test.device, d)
			}
		})
	}
}

func TestStoreAutosaveSkipsUnchanged(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	e := s.New("")
	e.Form.Change(travelboard.FieldTitle, "Trip")

	saved, err := s.db.Load(ctx, e.ID)
	if err != nil {
		t.Fatal("Draft was not autosaved:", err)
	}

	// Focus changes don't touch the draft.
	e.Form.DragEnter()
	e.Form.DragLeave()
	e.Form.Change(travelboard.FieldTitle, "Trip")

	r, err := s.db.Load(ctx, e.ID)
	if err != nil {
		t.Fatal("Failed to load draft:", err)
	}

	if r.Updated != saved.Updated {
		t.Fatal("Draft was saved again without changes")
	}

	e.Form.Change(travelboard.FieldPlace, "Nice")

	r, err = s.db.Load(ctx, e.ID)
	if err != nil {
		t.Fatal("Failed to load draft:", err)
	}

	if r.Updated == saved.Updated || r.Draft.Place != "Nice" {
		t.Fatal("Changed draft was not saved:", r.Draft)
	}
}

func TestSavedDraftSame(t *testing.T) {
	d := travelboard.Draft{Title: "Trip", Image: "data:image/png;base64,AAAA"}.
		WithLocation(travelboard.Coordinates{Lat: 1, Lng: 2})

	last := savedDraft{d, "beach.png", true}

	if !last.same(postform.State{Draft: d, FileName: "beach.png"}) {
		t.Fatal("Identical draft reported as changed")
	}

	// The same location behind different pointers is unchanged.
	moved := d.WithLocation(travelboard.Coordinates{Lat: 1, Lng: 2})
	if !last.same(postform.State{Draft: moved, FileName: "beach.png"}) {
		t.Fatal("Equal location reported as changed")
	}

	var tests = []postform.State{
		{Draft: d, FileName: "other.png"},
		{Draft: d.With(travelboard.FieldTitle, "Other"), FileName: "beach.png"},
		{Draft: d.WithLocation(travelboard.Coordinates{Lat: 3, Lng: 2}), FileName: "beach.png"},
		{Draft: travelboard.Draft{Title: "Trip", Image: d.Image}, FileName: "beach.png"},
	}

	for i, test := range tests {
		if last.same(test) {
			t.Errorf("Change %d not detected", i)
		}
	}

	if (savedDraft{}).same(postform.State{}) {
		t.Fatal("Nothing saved yet, but reported as same")
	}
}
