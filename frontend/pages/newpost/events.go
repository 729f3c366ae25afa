package newpost

import (
	"io"
	"io/ioutil"
	"mime/multipart"
	"net/http"

	"github.com/c2h5oh/datasize"
	"github.com/diamondburned/travelboard/dataurl"
	"github.com/diamondburned/travelboard/drafts"
	"github.com/diamondburned/travelboard/frontend/internal/form"
	"github.com/diamondburned/travelboard/frontend/render"
	"github.com/diamondburned/travelboard/httperr"
	"github.com/diamondburned/travelboard/locator"
	"github.com/diamondburned/travelboard/postform"
	"github.com/diamondburned/travelboard/travelboard"
	"github.com/pkg/errors"
)

// draftForm is any subset of the draft's fields.
type draftForm struct {
	Title       string `schema:"title"`
	Place       string `schema:"place"`
	Country     string `schema:"country"`
	Category    string `schema:"category"`
	Description string `schema:"description"`

	Lat string `schema:"lat"`
	Lng string `schema:"lng"`
}

func (f draftForm) values() map[travelboard.Field]string {
	return map[travelboard.Field]string{
		travelboard.FieldTitle:       f.Title,
		travelboard.FieldPlace:       f.Place,
		travelboard.FieldCountry:     f.Country,
		travelboard.FieldCategory:    f.Category,
		travelboard.FieldDescription: f.Description,
	}
}

// apply changes every posted field, then moves the marker if the coordinates
// were posted.
func (f draftForm) apply(r *http.Request, e *drafts.Entry) error {
	values := f.values()

	for _, field := range travelboard.AllFields() {
		if form.Has(r, string(field)) {
			e.Form.Change(field, values[field])
		}
	}

	if f.Lat == "" && f.Lng == "" {
		return nil
	}

	c, err := locator.ParseCoordinates(f.Lat, f.Lng)
	if err != nil {
		return err
	}

	return e.Marker.Set(c)
}

func (p *Page) decodeDraft(r *render.Request) (*drafts.Entry, error) {
	e, err := p.entry(r)
	if err != nil {
		return nil, err
	}

	var f draftForm
	if err := form.Unmarshal(r.Request, &f); err != nil {
		return nil, err
	}

	if err := f.apply(r.Request, e); err != nil {
		return nil, err
	}

	return e, nil
}

// handleSubmit applies the last edits and starts submitting in the
// background. The form page shows the spinner until the request settles.
func (p *Page) handleSubmit(r *render.Request) (render.Render, error) {
	e, err := p.decodeDraft(r)
	if err != nil {
		return render.Empty, err
	}

	ctx, cancel := detached()

	done, err := e.Form.SubmitAsync(ctx, r.Token())
	if err != nil {
		cancel()

		// Validation errors are shown on the form.
		if httperr.ErrCode(err) < 500 {
			return backToForm(r)
		}
		return render.Empty, err
	}

	go func() {
		defer cancel()
		<-done
	}()

	return backToForm(r)
}

func (p *Page) handleFields(r *render.Request) (render.Render, error) {
	if _, err := p.decodeDraft(r); err != nil {
		return render.Empty, err
	}

	r.NoContent()
	return render.Empty, nil
}

func (p *Page) handleLocation(r *render.Request) (render.Render, error) {
	e, err := p.entry(r)
	if err != nil {
		return render.Empty, err
	}

	c, err := locator.ParseCoordinates(r.FormValue("lat"), r.FormValue("lng"))
	if err != nil {
		return render.Empty, err
	}

	if err := e.Marker.Set(c); err != nil {
		return render.Empty, err
	}

	r.NoContent()
	return render.Empty, nil
}

var ErrUnknownDragEvent = httperr.New(400, "unknown drag event")

func (p *Page) handleDrag(r *render.Request) (render.Render, error) {
	e, err := p.entry(r)
	if err != nil {
		return render.Empty, err
	}

	switch r.FormValue("event") {
	case "enter":
		e.Form.DragEnter()
	case "leave":
		e.Form.DragLeave()
	default:
		return render.Empty, ErrUnknownDragEvent
	}

	r.NoContent()
	return render.Empty, nil
}

var ErrNoImage = httperr.New(400, "no image given")

// formOverhead is the room given to the rest of the multipart body.
const formOverhead = 64 * datasize.KB

func (p *Page) handleImage(r *render.Request) (render.Render, error) {
	e, err := p.entry(r)
	if err != nil {
		return render.Empty, err
	}

	max := p.MaxImageSize
	if max == 0 {
		max = dataurl.DefaultMaxSize
	}

	limit := int64((max + formOverhead).Bytes())
	if r.ContentLength > limit {
		return render.Empty, dataurl.ErrFileTooLarge
	}

	r.Body = http.MaxBytesReader(r.Writer, r.Body, limit)

	if err := form.Parse(r.Request); err != nil {
		return render.Empty, err
	}

	if r.MultipartForm == nil || len(r.MultipartForm.File["image"]) == 0 {
		return render.Empty, ErrNoImage
	}

	f, err := readUpload(r.MultipartForm.File["image"][0], int64(max.Bytes()))
	if err != nil {
		return render.Empty, err
	}

	if r.FormValue("via") == "drop" {
		e.Form.Drop(f)
	} else {
		e.Form.Select(f)
	}

	// The multipart files are gone once we return, and the page should show
	// the outcome anyway.
	e.Form.Wait()

	return backToForm(r)
}

func (p *Page) handleReload(r *render.Request) (render.Render, error) {
	e, err := p.entry(r)
	if err != nil {
		return render.Empty, err
	}

	// The error is rendered from the state.
	e.Form.Reload(r.Context())

	return backToForm(r)
}

func (p *Page) handleDismiss(r *render.Request) (render.Render, error) {
	e, err := p.entry(r)
	if err != nil {
		return render.Empty, err
	}

	e.Form.Dismiss()

	return backToForm(r)
}

type uploadedFile struct {
	name  string
	ctype string
	size  int64
	data  []byte
}

func (f uploadedFile) Name() string        { return f.name }
func (f uploadedFile) Size() int64         { return f.size }
func (f uploadedFile) ContentType() string { return f.ctype }

func (f uploadedFile) Open() (io.ReadCloser, error) {
	return postform.BytesFile(f.name, f.data).Open()
}

// readUpload reads at most max+1 bytes of the file, which is enough for the
// encoder to tell that it's too large.
func readUpload(h *multipart.FileHeader, max int64) (postform.File, error) {
	f, err := h.Open()
	if err != nil {
		return nil, errors.Wrap(err, "Failed to open upload")
	}
	defer f.Close()

	b, err := ioutil.ReadAll(io.LimitReader(f, max+1))
	if err != nil {
		return nil, errors.Wrap(err, "Failed to read upload")
	}

	return uploadedFile{h.Filename, h.Header.Get("Content-Type"), h.Size, b}, nil
}
