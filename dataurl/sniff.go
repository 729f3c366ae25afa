package dataurl

import (
	"bufio"
	"io"
	"net/http"

	"github.com/diamondburned/travelboard/httperr"
	"github.com/pkg/errors"
)

// SniffLen is the number of bytes http.DetectContentType looks at.
const SniffLen = 512

// AllowedTypes are the image types accepted when only images are allowed.
var AllowedTypes = []string{
	// https://mimesniff.spec.whatwg.org/#matching-an-image-type-pattern
	"image/jpeg",
	"image/png",
	"image/gif",
	"image/webp",
}

func ContentTypeAllowed(ctype string) bool {
	for _, ct := range AllowedTypes {
		if ct == ctype {
			return true
		}
	}
	return false
}

type ErrUnsupportedType struct {
	ContentType string
}

func (err ErrUnsupportedType) StatusCode() int {
	return 415
}

func (err ErrUnsupportedType) Error() string {
	return "unsupported file type " + err.ContentType
}

// Reader ensures that Read calls will read the complete stream even after
// sniffing.
type Reader struct {
	*bufio.Reader
	ctype string
}

func NewReader(r io.Reader) (*Reader, error) {
	buf := bufio.NewReaderSize(r, SniffLen)

	// Files smaller than the sniff length are fine; Peek returns what it has.
	h, err := buf.Peek(SniffLen)
	if err != nil && err != io.EOF {
		return nil, errors.Wrap(err, "Failed to peek")
	}

	if len(h) == 0 {
		return nil, ErrEmptyFile
	}

	return &Reader{
		Reader: buf,
		ctype:  http.DetectContentType(h),
	}, nil
}

// NewLimitReader creates a new Reader that errors out if the total read size
// is larger than max.
func NewLimitReader(r io.Reader, max int64) (*Reader, error) {
	return NewReader(newLimitedReader(r, max))
}

func (r *Reader) ContentType() string {
	return r.ctype
}

var (
	ErrEmptyFile    = httperr.New(400, "file is empty")
	ErrFileTooLarge = httperr.New(413, "file too large")
)

type limitedReader struct {
	io.LimitedReader
}

func newLimitedReader(r io.Reader, max int64) *limitedReader {
	return &limitedReader{
		io.LimitedReader{R: r, N: max + 1},
	}
}

func (r *limitedReader) Read(b []byte) (int, error) {
	n, err := r.LimitedReader.Read(b)

	if r.N <= 0 {
		return n, ErrFileTooLarge
	}

	return n, err
}
