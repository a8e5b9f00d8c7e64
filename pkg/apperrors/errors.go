package apperrors

import (
	"errors"
	"net/http"
)

// Kind classifies failures into the API's taxonomy. Ownership misses are
// reported as KindNotFound so callers cannot probe for other users' resources.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindNotFound
	KindConflict
	KindAuth
)

type Error struct {
	kind Kind
	msg  string
	err  error
}

func (e *Error) Error() string {
	if e.err != nil {
		return e.msg + ": " + e.err.Error()
	}
	return e.msg
}

func (e *Error) Unwrap() error { return e.err }

func (e *Error) Kind() Kind { return e.kind }

func Validation(msg string) *Error {
	return &Error{kind: KindValidation, msg: msg}
}

func NotFound(msg string) *Error {
	return &Error{kind: KindNotFound, msg: msg}
}

func Conflict(msg string) *Error {
	return &Error{kind: KindConflict, msg: msg}
}

func Auth(msg string) *Error {
	return &Error{kind: KindAuth, msg: msg}
}

func Internal(err error) *Error {
	return &Error{kind: KindInternal, msg: "internal error", err: err}
}

func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.kind
	}
	return KindInternal
}

// Status maps an error to its HTTP status code.
func Status(err error) int {
	switch KindOf(err) {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindAuth:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// Message returns the caller-visible text for an error. Internal failures
// are reported opaquely.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) && e.kind != KindInternal {
		return e.msg
	}
	return "internal server error"
}
