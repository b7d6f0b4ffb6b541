// Package apierr defines the typed error kinds used across the activity
// pipeline. Code below the HTTP surface returns these kinds; handlers map
// them to HTTP status codes at the boundary via Status.
package apierr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind is one of the error categories from the error-handling design.
type Kind int

const (
	_ Kind = iota
	BadRequest
	Unauthorized
	Forbidden
	NotFound
	Gone
	Conflict
	Upstream
)

func (k Kind) String() string {
	switch k {
	case BadRequest:
		return "bad_request"
	case Unauthorized:
		return "unauthorized"
	case Forbidden:
		return "forbidden"
	case NotFound:
		return "not_found"
	case Gone:
		return "gone"
	case Conflict:
		return "conflict"
	case Upstream:
		return "upstream"
	default:
		return "unknown"
	}
}

// Status returns the HTTP status code for the kind.
func (k Kind) Status() int {
	switch k {
	case BadRequest:
		return http.StatusBadRequest
	case Unauthorized:
		return http.StatusUnauthorized
	case Forbidden:
		return http.StatusForbidden
	case NotFound:
		return http.StatusNotFound
	case Gone:
		return http.StatusGone
	case Conflict:
		return http.StatusConflict
	case Upstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Error is a typed, wrapped error carrying a Kind.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

// New constructs an *Error of the given kind.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

// Wrap constructs an *Error of the given kind wrapping err.
func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// As extracts the Kind from err, if it (or something it wraps) is an *Error.
// Unrecognized errors are treated as internal (status 500, kind "unknown").
func As(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}

// Status maps any error to an HTTP status code, defaulting to 500.
func Status(err error) int {
	if k, ok := As(err); ok {
		return k.Status()
	}
	return http.StatusInternalServerError
}
