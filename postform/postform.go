// Package postform implements the post creation form: it loads the reference
// lists, holds the draft, encodes the picked image and submits the post.
//
// Every state change goes through a single reducer guarded by a mutex, so
// asynchronous completions (loading, encoding, submitting) always apply to
// the latest state instead of a snapshot taken when they started.
package postform

import (
	"context"
	"sync"

	"github.com/diamondburned/travelboard/httperr"
	"github.com/diamondburned/travelboard/locator"
	"github.com/diamondburned/travelboard/travelboard"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Backend is the application backend.
type Backend interface {
	Categories(ctx context.Context) ([]travelboard.Category, error)
	CreatePost(ctx context.Context, token string, p travelboard.PostPayload) error
}

// CountrySource is the country reference service.
type CountrySource interface {
	All(ctx context.Context) ([]travelboard.Country, error)
}

// Deps are the collaborators of a form.
type Deps struct {
	Backend   Backend
	Countries CountrySource
	// Locator is the map widget. If nil, the coordinates last reported to
	// ChangeLocation are submitted.
	Locator locator.Source
	Encoder Encoder
	Logger  *zerolog.Logger
}

var ErrSubmitInFlight = httperr.New(409, "a submission is already in progress")

// Form is a single post creation form. It is safe for concurrent use.
type Form struct {
	deps Deps
	log  zerolog.Logger

	mu    sync.Mutex
	state State
	gen   uint64 // image generation

	// notify serializes whole updates including their notifications, so
	// subscribers see states in order.
	notify sync.Mutex
	serial int
	subs   map[int]func(State)

	mount   sync.Once
	encodes sync.WaitGroup
	submits sync.WaitGroup
	unloc   func()
}

// New creates a form with an empty draft.
func New(deps Deps) *Form {
	if deps.Encoder == nil {
		deps.Encoder = DataURLEncoder{}
	}

	var log = zerolog.Nop()
	if deps.Logger != nil {
		log = *deps.Logger
	}

	f := &Form{
		deps: deps,
		log:  log,
		subs: map[int]func(State){},
	}

	if n, ok := deps.Locator.(locator.Notifier); ok {
		f.unloc = n.OnChange(func(c travelboard.Coordinates) {
			f.ChangeLocation(c.Lat, c.Lng)
		})
	}

	return f
}

// Close detaches the form from its map widget and waits for in-flight
// encodes and submissions.
func (f *Form) Close() {
	if f.unloc != nil {
		f.unloc()
	}
	f.encodes.Wait()
	f.submits.Wait()
}

// State returns the current snapshot.
func (f *Form) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.state
}

// Subscribe calls fn after every state change, in order. fn may read the form
// but must not change it.
func (f *Form) Subscribe(fn func(State)) (cancel func()) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.serial++
	id := f.serial
	f.subs[id] = fn

	return func() {
		f.mu.Lock()
		delete(f.subs, id)
		f.mu.Unlock()
	}
}

// update applies fn to the current state and notifies subscribers before the
// next update can start.
func (f *Form) update(fn func(State) State) State {
	f.notify.Lock()
	defer f.notify.Unlock()

	f.mu.Lock()

	s := fn(f.state)
	f.state = s

	var subs = make([]func(State), 0, len(f.subs))
	for _, sub := range f.subs {
		subs = append(subs, sub)
	}

	f.mu.Unlock()

	for _, sub := range subs {
		sub(s)
	}

	return s
}

// Restore replaces the draft with a previously saved one. fileName is the
// name of the file the saved image came from, if any.
func (f *Form) Restore(d travelboard.Draft, fileName string) {
	f.update(func(s State) State {
		s.Draft = d
		if d.Image != "" {
			s.Image = ImageEncoded
			s.FileName = fileName
			s.FileSize = 0
		}
		return s
	})
}

// Mount loads the reference lists the first time it is called. Later calls
// only return the current load error, if any.
func (f *Form) Mount(ctx context.Context) error {
	var err error
	f.mount.Do(func() { err = f.load(ctx) })

	if err != nil {
		return err
	}

	return f.State().LoadErr
}

// Reload loads the reference lists again, which is what the user does after
// a failed load.
func (f *Form) Reload(ctx context.Context) error {
	f.mount.Do(func() {})
	return f.load(ctx)
}

func (f *Form) load(ctx context.Context) error {
	var (
		categories []travelboard.Category
		countries  []travelboard.Country
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() (err error) {
		categories, err = f.deps.Backend.Categories(gctx)
		return errors.Wrap(err, "Failed to load categories")
	})

	g.Go(func() (err error) {
		countries, err = f.deps.Countries.All(gctx)
		return errors.Wrap(err, "Failed to load countries")
	})

	if err := g.Wait(); err != nil {
		f.log.Error().Err(err).Msg("Reference data load failed")

		f.update(func(s State) State {
			s.LoadErr = err
			return s
		})

		return err
	}

	f.update(func(s State) State {
		s.Categories = categories
		s.Countries = countries
		s.Loaded = true
		s.LoadErr = nil

		if len(categories) > 0 && !hasCategory(categories, s.Draft.Category) {
			s.Draft.Category = categories[0].Header
		}

		if len(countries) > 0 && !hasCountry(countries, s.Draft.Country) {
			s.Draft.Country = countries[0].Name
		}

		return s
	})

	return nil
}

func hasCategory(cs []travelboard.Category, header string) bool {
	for _, c := range cs {
		if c.Header == header {
			return true
		}
	}
	return false
}

func hasCountry(cs []travelboard.Country, name string) bool {
	for _, c := range cs {
		if c.Name == name {
			return true
		}
	}
	return false
}

// Change sets a single field of the draft.
func (f *Form) Change(field travelboard.Field, value string) {
	f.update(func(s State) State {
		s.Draft = s.Draft.With(field, value)
		s.Submitted = false
		return s
	})
}

// ChangeName is Change with a field name that is yet to be validated.
func (f *Form) ChangeName(name, value string) error {
	field, err := travelboard.ParseField(name)
	if err != nil {
		return err
	}

	f.Change(field, value)
	return nil
}

// ChangeLocation is the callback given to the map widget. The coordinates are
// only for display; Submit asks the widget again.
func (f *Form) ChangeLocation(lat, lng float64) {
	f.update(func(s State) State {
		s.Draft = s.Draft.WithLocation(travelboard.Coordinates{Lat: lat, Lng: lng})
		return s
	})
}

// DragEnter marks the dropzone as focused.
func (f *Form) DragEnter() {
	f.update(func(s State) State {
		s.Focused = true
		return s
	})
}

// DragLeave clears the dropzone focus.
func (f *Form) DragLeave() {
	f.update(func(s State) State {
		s.Focused = false
		return s
	})
}

// Drop holds the dropped file and starts encoding it.
func (f *Form) Drop(file File) {
	f.pick(file, true)
}

// Select holds the file picked from the file browser and starts encoding it.
func (f *Form) Select(file File) {
	f.pick(file, false)
}

func (f *Form) pick(file File, dropped bool) {
	var gen uint64

	f.update(func(s State) State {
		f.gen++
		gen = f.gen

		s.FileName = file.Name()
		s.FileSize = file.Size()
		s.Image = ImageSelected
		s.ImageErr = nil
		if dropped {
			s.Focused = false
		}

		return s
	})

	f.encodes.Add(1)

	go func() {
		defer f.encodes.Done()

		uri, err := f.deps.Encoder.Encode(file)

		f.update(func(s State) State {
			// A newer file was picked in the meantime.
			if gen != f.gen {
				return s
			}

			if err != nil {
				s.Image = ImageFailed
				s.ImageErr = err
				s.Draft.Image = ""
				return s
			}

			s.Image = ImageEncoded
			s.Draft.Image = uri
			s.Submitted = false
			return s
		})

		if err != nil {
			f.log.Warn().Err(err).Str("file", file.Name()).Msg("Image encode failed")
		}
	}()
}

// Dismiss clears the notice of the last successful submission. The draft is
// left as is.
func (f *Form) Dismiss() {
	f.update(func(s State) State {
		s.Submitted = false
		return s
	})
}

// Wait blocks until all in-flight encodes have settled.
func (f *Form) Wait() {
	f.encodes.Wait()
}

// Submit sends the draft with the map widget's current position as the post
// creation request, authenticated with token. Loading is set for exactly as
// long as the request is outstanding. Failures are also kept in SubmitErr.
func (f *Form) Submit(ctx context.Context, token string) error {
	payload, err := f.begin()
	if err != nil {
		return err
	}

	return f.finish(ctx, token, payload)
}

// SubmitAsync is Submit, except the request is sent in the background once
// the draft is validated. Validation errors are returned immediately;
// everything after that only ends up in the state and in done.
func (f *Form) SubmitAsync(ctx context.Context, token string) (done <-chan error, err error) {
	payload, err := f.begin()
	if err != nil {
		return nil, err
	}

	ch := make(chan error, 1)
	f.submits.Add(1)

	go func() {
		defer f.submits.Done()
		ch <- f.finish(ctx, token, payload)
	}()

	return ch, nil
}

// begin validates the draft and sets the loading flag.
func (f *Form) begin() (travelboard.PostPayload, error) {
	var (
		pos, picked = f.position()
		payload     travelboard.PostPayload
		rejected    error
	)

	f.update(func(s State) State {
		if s.Loading {
			rejected = ErrSubmitInFlight
			return s
		}

		if !picked {
			pos, picked = s.Draft.Location()
		}

		switch err := s.Draft.Validate(); {
		case err != nil:
			rejected = err
		case !picked:
			rejected = travelboard.ErrNoLocation
		}

		if rejected != nil {
			s.SubmitErr = rejected
			return s
		}

		payload = s.Draft.Payload(pos)
		s.Loading = true
		s.Submitted = false
		s.SubmitErr = nil
		return s
	})

	return payload, rejected
}

func (f *Form) finish(ctx context.Context, token string, payload travelboard.PostPayload) error {
	err := f.deps.Backend.CreatePost(ctx, token, payload)

	f.update(func(s State) State {
		s.Loading = false
		s.Submitted = err == nil
		s.SubmitErr = err
		return s
	})

	if err != nil {
		f.log.Error().
			Err(err).
			Str("title", payload.Title).
			Int("status", httperr.ErrCode(err)).
			Msg("Post submission failed")

		return errors.Wrap(err, "Failed to create post")
	}

	f.log.Info().Str("title", payload.Title).Msg("Post submitted")
	return nil
}

func (f *Form) position() (travelboard.Coordinates, bool) {
	if f.deps.Locator == nil {
		return travelboard.Coordinates{}, false
	}
	return f.deps.Locator.Position()
}
