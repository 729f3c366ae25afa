// Package form decodes browser form posts.
package form

import (
	"net/http"

	"github.com/c2h5oh/datasize"
	"github.com/diamondburned/travelboard/httperr"
	"github.com/gorilla/schema"
	"github.com/pkg/errors"
)

// MaxMemory is how much of a multipart form is kept in memory before spilling
// to disk.
const MaxMemory = int64(2 * datasize.MB)

var decoder = func() *schema.Decoder {
	d := schema.NewDecoder()
	d.IgnoreUnknownKeys(true)
	return d
}()

// Unmarshal decodes the posted form, multipart or not, into v.
func Unmarshal(r *http.Request, v interface{}) error {
	if err := Parse(r); err != nil {
		return err
	}

	var values = r.PostForm
	if r.MultipartForm != nil {
		values = r.MultipartForm.Value
	}

	if err := decoder.Decode(v, values); err != nil {
		return httperr.Wrap(err, 400, "Invalid form")
	}

	return nil
}

// Parse parses the form, preferring multipart.
func Parse(r *http.Request) error {
	err := r.ParseMultipartForm(MaxMemory)
	if err == nil || errors.Is(err, http.ErrNotMultipart) {
		if err := r.ParseForm(); err != nil {
			return httperr.Wrap(err, 400, "Failed to parse form")
		}
		return nil
	}

	return httperr.Wrap(err, 400, "Failed to parse multipart form")
}

// Has returns true if the field was posted at all, even if empty.
func Has(r *http.Request, name string) bool {
	if r.MultipartForm != nil {
		_, ok := r.MultipartForm.Value[name]
		return ok
	}
	_, ok := r.PostForm[name]
	return ok
}
