package postform

import (
	"bytes"
	"io"
	"io/ioutil"
	"mime"
	"os"
	"path/filepath"

	"github.com/c2h5oh/datasize"
	"github.com/diamondburned/travelboard/dataurl"
	"github.com/pkg/errors"
)

// File is the raw file handle picked by the user. It only lives long enough
// to be encoded.
type File interface {
	Name() string
	Size() int64
	Open() (io.ReadCloser, error)
}

type bytesFile struct {
	name string
	data []byte
}

// BytesFile wraps an in-memory file.
func BytesFile(name string, b []byte) File {
	return bytesFile{name, b}
}

func (f bytesFile) Name() string { return f.name }
func (f bytesFile) Size() int64  { return int64(len(f.data)) }

func (f bytesFile) Open() (io.ReadCloser, error) {
	return ioutil.NopCloser(bytes.NewReader(f.data)), nil
}

type diskFile struct {
	path string
	size int64
}

// DiskFile wraps a file on disk.
func DiskFile(path string) (File, error) {
	s, err := os.Stat(path)
	if err != nil {
		return nil, errors.Wrap(err, "Failed to stat image")
	}

	if s.IsDir() {
		return nil, errors.Errorf("%s is a directory", path)
	}

	return diskFile{path, s.Size()}, nil
}

func (f diskFile) Name() string { return filepath.Base(f.path) }
func (f diskFile) Size() int64  { return f.size }

func (f diskFile) Open() (io.ReadCloser, error) {
	return os.Open(f.path)
}

// Encoder turns a picked file into the text stored in the draft.
type Encoder interface {
	Encode(File) (string, error)
}

// TypedFile is a File that knows the content type it was given with, such as
// the type of a multipart part.
type TypedFile interface {
	File
	ContentType() string
}

// DataURLEncoder encodes files into base64 data URIs.
type DataURLEncoder struct {
	MaxSize datasize.ByteSize
	// ImagesOnly rejects anything that isn't a sniffable image.
	ImagesOnly bool
}

func (e DataURLEncoder) Encode(f File) (string, error) {
	r, err := f.Open()
	if err != nil {
		return "", errors.Wrap(err, "Failed to open file")
	}
	defer r.Close()

	opts := dataurl.Options{
		MaxSize:    e.MaxSize,
		ImagesOnly: e.ImagesOnly,
	}

	if tf, ok := f.(TypedFile); ok {
		opts.ContentType = tf.ContentType()
	} else {
		opts.ContentType = mime.TypeByExtension(filepath.Ext(f.Name()))
	}

	return dataurl.EncodeWith(r, opts)
}
