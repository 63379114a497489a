// Package apperr defines the error taxonomy shared by all services and maps
// each kind to an HTTP status at the API boundary.
package apperr

import (
	"errors"
	"net/http"
)

type Kind int

const (
	// Internal is the default for unclassified failures (store, network).
	Internal Kind = iota
	// InvalidRequest means the request was malformed or missing fields.
	InvalidRequest
	// Unauthenticated means the bearer credential was missing or invalid.
	Unauthenticated
	// Forbidden means the caller is authenticated but not a participant/owner.
	Forbidden
	// NotFound means the referenced conversation, message, or user is absent.
	NotFound
)

// Error carries a kind, a client-safe message, and an optional wrapped cause.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

// New returns an error of the given kind with a client-safe message.
func New(kind Kind, msg string) error {
	return &Error{Kind: kind, Msg: msg}
}

// Wrap attaches a kind and client-safe message to an underlying error.
func Wrap(kind Kind, msg string, err error) error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// KindOf extracts the kind of err. Unclassified errors are Internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}

// Status maps err to its HTTP status code.
func Status(err error) int {
	switch KindOf(err) {
	case InvalidRequest:
		return http.StatusBadRequest
	case Unauthenticated:
		return http.StatusUnauthorized
	case Forbidden:
		return http.StatusForbidden
	case NotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// ClientMessage returns the message safe to surface to the client. Internal
// errors never leak detail.
func ClientMessage(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Kind != Internal {
		return e.Msg
	}
	return "Server error"
}
