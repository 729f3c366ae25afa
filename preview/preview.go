// Package preview renders a tiny blurred placeholder of a selected image so
// the dropzone can show something before the post is submitted.
package preview

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"image"
	"image/jpeg"
	"runtime"
	"time"

	"github.com/bbrks/go-blurhash"
	"github.com/diamondburned/travelboard/dataurl"
	"github.com/diamondburned/travelboard/httperr"
	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
	"golang.org/x/sync/semaphore"
)

const ThumbSize = 45
const Prefix = "data:image/jpeg;base64,"

var ErrNotImage = httperr.New(415, "file is not a decodable image")

const waitDura = 5 * time.Second

// sema bounds the number of images decoded at once.
var sema = semaphore.NewWeighted(int64(runtime.GOMAXPROCS(-1) * 2))

func acq() error {
	ctx, cancel := context.WithTimeout(context.Background(), waitDura)
	defer cancel()

	err := sema.Acquire(ctx, 1)
	return errors.Wrap(err, "Failed to wait for pending previews")
}

// Preview is an inline placeholder of an image.
type Preview struct {
	URL    string `json:"url"`
	Width  int    `json:"w"`
	Height int    `json:"h"`
}

// Generator creates previews and caches them by the hash of their source.
type Generator struct {
	cache *Cache
}

func NewGenerator(cache *Cache) *Generator {
	return &Generator{cache}
}

// FromDataURI generates the preview of an image held as a data URI.
func (g *Generator) FromDataURI(uri string) (Preview, error) {
	key := cacheKey([]byte(uri))

	if p, ok := g.cached(key); ok {
		return p, nil
	}

	_, b, err := dataurl.Decode(uri)
	if err != nil {
		return Preview{}, err
	}

	if err := acq(); err != nil {
		return Preview{}, err
	}
	defer sema.Release(1)

	p, err := Generate(b)
	if err != nil {
		return Preview{}, err
	}

	g.store(key, p)
	return p, nil
}

func (g *Generator) cached(key string) (Preview, bool) {
	if g.cache == nil {
		return Preview{}, false
	}

	b, err := g.cache.Get(key)
	if err != nil {
		return Preview{}, false
	}

	var p Preview
	if err := json.Unmarshal(b, &p); err != nil {
		g.cache.Delete(key)
		return Preview{}, false
	}

	return p, true
}

func (g *Generator) store(key string, p Preview) {
	if g.cache == nil {
		return
	}

	// Failing to cache only costs a regeneration.
	if b, err := json.Marshal(p); err == nil {
		g.cache.Put(key, b)
	}
}

func cacheKey(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// Generate decodes the image and renders its blurred placeholder.
func Generate(b []byte) (Preview, error) {
	i, err := imaging.Decode(bytes.NewReader(b), imaging.AutoOrientation(true))
	if err != nil {
		return Preview{}, ErrNotImage
	}

	bounds := i.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	// Resize the image using a rough algorithm.
	i = imaging.Fit(i, 50, 50, imaging.Box)

	hash, err := blurhash.Encode(4, 3, i)
	if err != nil {
		return Preview{}, errors.Wrap(err, "Failed to encode blurhash")
	}

	url, err := InlineJPEG(hash, w, h)
	if err != nil {
		return Preview{}, err
	}

	return Preview{URL: url, Width: w, Height: h}, nil
}

var JPEGOptions = &jpeg.Options{
	Quality: 65,
}

// InlineJPEG draws the blurhash into a small JPEG data URI with the aspect
// ratio of w and h.
func InlineJPEG(hash string, w, h int) (string, error) {
	w, h = MaxSize(w, h, ThumbSize, ThumbSize)

	var rgba = image.NewRGBA(image.Rect(0, 0, w, h))

	if err := blurhash.DecodeDraw(rgba, hash, 1); err != nil {
		return "", errors.Wrap(err, "Failed to decode blurhash")
	}

	var b bytes.Buffer

	if err := jpeg.Encode(&b, rgba, JPEGOptions); err != nil {
		return "", errors.Wrap(err, "Failed to encode JPEG")
	}

	return Prefix + base64.StdEncoding.EncodeToString(b.Bytes()), nil
}

// MaxSize scales w and h down to fit within maxW and maxH.
func MaxSize(w, h, maxW, maxH int) (int, int) {
	if w < maxW && h < maxH {
		return w, h
	}

	if w > h {
		h = h * maxW / w
		w = maxW
	} else {
		w = w * maxH / h
		h = maxH
	}

	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}

	return w, h
}
