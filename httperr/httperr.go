// Package httperr provides errors that carry an HTTP status code.
package httperr

import (
	"net/http"

	"github.com/pkg/errors"
)

type StatusCoder interface {
	StatusCode() int
}

// ErrCode returns the status code of the first error in the chain that has
// one, or 500.
func ErrCode(err error) int {
	return ErrCodeOr(err, http.StatusInternalServerError)
}

// ErrCodeOr is like ErrCode, but falls back to orCode.
func ErrCodeOr(err error, orCode int) int {
	var sc StatusCoder

	if errors.As(err, &sc) {
		return sc.StatusCode()
	}

	return orCode
}

type basicError struct {
	code int
	msg  string
}

var (
	_ error       = (*basicError)(nil)
	_ StatusCoder = (*basicError)(nil)
)

func New(code int, msg string) error {
	return basicError{code, msg}
}

func (e basicError) Error() string {
	return e.msg
}

func (e basicError) StatusCode() int {
	return e.code
}

type wrapError struct {
	code int
	wrap error
}

var (
	_ error       = (*wrapError)(nil)
	_ StatusCoder = (*wrapError)(nil)
)

// Wrap annotates err with msg and the given status code. A nil error stays nil.
func Wrap(err error, code int, msg string) error {
	if err == nil {
		return nil
	}
	return wrapError{code, errors.Wrap(err, msg)}
}

func (e wrapError) Error() string {
	return e.wrap.Error()
}

func (e wrapError) StatusCode() int {
	return e.code
}

func (e wrapError) Unwrap() error {
	return e.wrap
}
