// Package dataurl converts files into base64 data URIs suitable for embedding
// into a JSON payload.
package dataurl

import (
	"bytes"
	"encoding/base64"
	"io"
	"mime"
	"strings"

	"github.com/c2h5oh/datasize"
	"github.com/diamondburned/travelboard/httperr"
	"github.com/pkg/errors"
)

// DefaultMaxSize is the upload limit used when the configuration has none.
const DefaultMaxSize = 10 * datasize.MB

const (
	scheme       = "data:"
	base64Suffix = ";base64"
)

// Options tune Encode.
type Options struct {
	// MaxSize is the largest accepted file. Zero means DefaultMaxSize.
	MaxSize datasize.ByteSize
	// ImagesOnly rejects files that don't sniff as one of AllowedTypes.
	ImagesOnly bool
	// ContentType is used when sniffing can't tell more than
	// application/octet-stream, usually the type the client sent.
	ContentType string
}

// Encode reads the whole file from r and returns its data URI. Any non-empty
// file under max is accepted; its media type is sniffed from the first bytes.
func Encode(r io.Reader, max datasize.ByteSize) (string, error) {
	return EncodeWith(r, Options{MaxSize: max})
}

// EncodeWith is Encode with options.
func EncodeWith(r io.Reader, opts Options) (string, error) {
	max := opts.MaxSize
	if max == 0 {
		max = DefaultMaxSize
	}

	sr, err := NewLimitReader(r, int64(max.Bytes()))
	if err != nil {
		return "", err
	}

	if opts.ImagesOnly && !ContentTypeAllowed(sr.ContentType()) {
		return "", ErrUnsupportedType{sr.ContentType()}
	}

	ctype := sr.ContentType()
	if ctype == octetStream && opts.ContentType != "" {
		ctype = opts.ContentType
	}

	var b strings.Builder
	b.WriteString(scheme)
	b.WriteString(MediaType(ctype))
	b.WriteString(base64Suffix)
	b.WriteByte(',')

	enc := base64.NewEncoder(base64.StdEncoding, &b)

	if _, err := io.Copy(enc, sr); err != nil {
		return "", errors.Wrap(err, "Failed to read file")
	}

	if err := enc.Close(); err != nil {
		return "", errors.Wrap(err, "Failed to flush encoder")
	}

	return b.String(), nil
}

// EncodeBytes is a convenience wrapper around Encode.
func EncodeBytes(b []byte, max datasize.ByteSize) (string, error) {
	return Encode(bytes.NewReader(b), max)
}

const octetStream = "application/octet-stream"

// MediaType formats ctype for a data URI, such as "text/plain;charset=utf-8".
// Unparsable types become application/octet-stream.
func MediaType(ctype string) string {
	t, params, err := mime.ParseMediaType(ctype)
	if err != nil {
		return octetStream
	}

	f := mime.FormatMediaType(t, params)
	if f == "" {
		return octetStream
	}

	return strings.Replace(f, "; ", ";", -1)
}

var ErrMalformed = httperr.New(400, "malformed data URI")

// Decode parses a base64 data URI back into its content type and bytes.
func Decode(uri string) (ctype string, data []byte, err error) {
	if !strings.HasPrefix(uri, scheme) {
		return "", nil, ErrMalformed
	}

	comma := strings.IndexByte(uri, ',')
	if comma < 0 {
		return "", nil, ErrMalformed
	}

	meta := uri[len(scheme):comma]
	if !strings.HasSuffix(meta, base64Suffix) {
		return "", nil, ErrMalformed
	}

	data, err = base64.StdEncoding.DecodeString(uri[comma+1:])
	if err != nil {
		return "", nil, httperr.Wrap(err, 400, "Failed to decode base64")
	}

	return strings.TrimSuffix(meta, base64Suffix), data, nil
}
