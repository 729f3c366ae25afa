package postform

import (
	"github.com/diamondburned/travelboard/travelboard"
	"github.com/dustin/go-humanize"
)

// ImageState is the state of the image intake.
type ImageState uint8

const (
	// ImageEmpty means no file has been picked.
	ImageEmpty ImageState = iota
	// ImageSelected means a file is held and its encode is in flight.
	ImageSelected
	// ImageEncoded means the draft holds the encoded image.
	ImageEncoded
	// ImageFailed means the latest encode failed. ImageErr has the reason.
	ImageFailed
)

func (s ImageState) String() string {
	switch s {
	case ImageEmpty:
		return "empty"
	case ImageSelected:
		return "selected"
	case ImageEncoded:
		return "encoded"
	case ImageFailed:
		return "failed"
	default:
		return "???"
	}
}

const EmptyDropHint = "Drop Image here or click to Upload"

// State is a snapshot of the form. The reference lists are shared between
// snapshots and must not be modified.
type State struct {
	Draft travelboard.Draft

	Categories []travelboard.Category
	Countries  []travelboard.Country
	Loaded     bool
	LoadErr    error

	Focused  bool
	FileName string
	FileSize int64
	Image    ImageState
	ImageErr error

	Loading   bool
	Submitted bool
	SubmitErr error
}

// HasFile returns true if a file is held, whether or not it's encoded yet.
func (s State) HasFile() bool {
	return s.FileName != ""
}

// DropHint is the text shown inside the dropzone.
func (s State) DropHint() string {
	if !s.HasFile() {
		return EmptyDropHint
	}
	return s.FileName
}

// DropzoneClass is the CSS class of the dropzone.
func (s State) DropzoneClass() string {
	if s.Focused || s.HasFile() {
		return "dropzone-focused"
	}
	return "dropzone"
}

// HumanFileSize formats the held file's size, or an empty string.
func (s State) HumanFileSize() string {
	if !s.HasFile() {
		return ""
	}
	return humanize.Bytes(uint64(s.FileSize))
}
