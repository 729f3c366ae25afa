package drafts

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/diamondburned/travelboard/locator"
	"github.com/diamondburned/travelboard/postform"
	"github.com/diamondburned/travelboard/travelboard"
	ua "github.com/mileusna/useragent"
	"github.com/rs/zerolog"
)

// DefaultIdle is how long an untouched form stays in memory. Evicted forms are
// restored from the database on the next visit.
const DefaultIdle = 30 * time.Minute

// saveTimeout bounds a single autosave.
const saveTimeout = 5 * time.Second

// Entry is a live form belonging to a single visitor.
type Entry struct {
	ID     int64
	Form   *postform.Form
	Marker *locator.Marker
	Device string

	mu       sync.Mutex
	lastUsed time.Time
	unsub    func()
}

func (e *Entry) touch(now time.Time) {
	e.mu.Lock()
	e.lastUsed = now
	e.mu.Unlock()
}

func (e *Entry) idleSince() time.Time {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastUsed
}

func (e *Entry) close() {
	e.unsub()
	e.Form.Close()
}

// Store keeps one form per visitor and autosaves their drafts.
type Store struct {
	db     *Database
	deps   postform.Deps
	center travelboard.Coordinates
	log    zerolog.Logger

	// Idle is how long an entry stays in memory without being used.
	Idle time.Duration

	mu      sync.Mutex
	entries map[int64]*Entry
}

// NewStore creates a store. deps is copied into every form, with the Locator
// replaced by the form's own marker starting at center.
func NewStore(db *Database, deps postform.Deps, center travelboard.Coordinates) *Store {
	var log = zerolog.Nop()
	if deps.Logger != nil {
		log = deps.Logger.With().Str("component", "drafts").Logger()
	}

	return &Store{
		db:      db,
		deps:    deps,
		center:  center,
		log:     log,
		Idle:    DefaultIdle,
		entries: map[int64]*Entry{},
	}
}

// New creates a fresh form for a visitor with the given user agent.
func (s *Store) New(userAgent string) *Entry {
	e := s.newEntry(NewID(), DeviceName(userAgent), s.center)

	s.mu.Lock()
	s.entries[e.ID] = e
	s.mu.Unlock()

	return e
}

// Get returns the visitor's form, restoring it from the database if it was
// evicted. ErrDraftNotFound is returned if the draft is gone.
func (s *Store) Get(ctx context.Context, id int64) (*Entry, error) {
	s.mu.Lock()
	e, ok := s.entries[id]
	s.mu.Unlock()

	if ok {
		e.touch(time.Now())
		return e, nil
	}

	r, err := s.db.Load(ctx, id)
	if err != nil {
		return nil, err
	}

	d := travelboard.Draft(r.Draft)

	center := s.center
	if pos, ok := d.Location(); ok {
		center = pos
	}

	e = s.newEntry(id, r.Device, center)
	e.Form.Restore(d, r.FileName)

	s.mu.Lock()
	defer s.mu.Unlock()

	// Another request may have restored the same draft in the meantime.
	if old, ok := s.entries[id]; ok {
		e.close()
		return old, nil
	}

	s.entries[id] = e
	return e, nil
}

// Forget drops the visitor's form and its saved draft.
func (s *Store) Forget(ctx context.Context, id int64) error {
	s.mu.Lock()
	e, ok := s.entries[id]
	delete(s.entries, id)
	s.mu.Unlock()

	if ok {
		e.close()
	}

	return s.db.Delete(ctx, id)
}

// Sweep evicts forms idle since before now-Idle and deletes saved drafts
// older than the configured lifespan.
func (s *Store) Sweep(ctx context.Context, now time.Time) error {
	var evict []*Entry

	s.mu.Lock()
	for id, e := range s.entries {
		if now.Sub(e.idleSince()) > s.Idle {
			evict = append(evict, e)
			delete(s.entries, id)
		}
	}
	s.mu.Unlock()

	for _, e := range evict {
		e.close()
	}

	n, err := s.db.DeleteBefore(ctx, now.Add(-s.db.Config.lifespan))
	if err != nil {
		return err
	}

	if len(evict) > 0 || n > 0 {
		s.log.Debug().
			Int("evicted", len(evict)).
			Int64("deleted", n).
			Msg("Swept drafts")
	}

	return nil
}

// Lifespan is how long a saved draft is kept after its last change.
func (s *Store) Lifespan() time.Duration {
	return s.db.Config.lifespan
}

// Len returns the number of forms in memory.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Close closes every form in memory.
func (s *Store) Close() {
	s.mu.Lock()
	entries := s.entries
	s.entries = map[int64]*Entry{}
	s.mu.Unlock()

	for _, e := range entries {
		e.close()
	}
}

func (s *Store) newEntry(id int64, device string, center travelboard.Coordinates) *Entry {
	marker := locator.NewMarkerAt(center)

	deps := s.deps
	deps.Locator = marker

	e := &Entry{
		ID:       id,
		Form:     postform.New(deps),
		Marker:   marker,
		Device:   device,
		lastUsed: time.Now(),
	}

	e.unsub = e.Form.Subscribe(s.autosave(e))
	return e
}

// savedDraft is what the last autosave wrote.
type savedDraft struct {
	draft    travelboard.Draft
	fileName string
	ok       bool
}

// same returns true if st holds what was last saved. Nothing is serialized;
// an unchanged image shares its backing array with the saved one, so the
// comparison doesn't walk it.
func (d savedDraft) same(st postform.State) bool {
	if !d.ok || d.fileName != st.FileName {
		return false
	}

	a, b := d.draft, st.Draft

	aPos, aOK := a.Location()
	bPos, bOK := b.Location()
	if aOK != bOK || aPos != bPos {
		return false
	}

	a.Lat, a.Lng = nil, nil
	b.Lat, b.Lng = nil, nil

	return a == b
}

// autosave returns a subscriber that writes the draft whenever it or the
// file name changes. Other state changes, such as drag focus, are skipped.
func (s *Store) autosave(e *Entry) func(postform.State) {
	var last savedDraft

	return func(st postform.State) {
		if last.same(st) {
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
		defer cancel()

		err := s.db.Save(ctx, Row{
			ID:       e.ID,
			Draft:    DraftJSON(st.Draft),
			FileName: st.FileName,
			Device:   e.Device,
			Updated:  time.Now().UnixNano(),
		})

		if err != nil {
			s.log.Warn().Err(err).Int64("draft", e.ID).Msg("Autosave failed")
			return
		}

		last = savedDraft{st.Draft, st.FileName, true}
	}
}

// DeviceName describes a user agent, such as "Firefox on Linux".
func DeviceName(userAgent string) string {
	u := ua.Parse(userAgent)

	switch {
	case u.Name == "" && u.OS == "":
		return "Unknown device"
	case u.OS == "":
		return u.Name
	case u.Name == "":
		return u.OS
	default:
		return fmt.Sprintf("%s on %s", u.Name, u.OS)
	}
}
