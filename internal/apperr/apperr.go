// Package apperr defines the error taxonomy shared by every component.
// Handlers map a Kind to an HTTP status through a small fixed
// vocabulary so the store, cache, download manager, and orchestrator
// can all return plain errors that the HTTP layer classifies without
// parsing strings.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind is one of the taxonomy buckets from the error handling design.
type Kind int

const (
	KindInputInvalid Kind = iota
	KindConflict
	KindNotFound
	KindUnauthorized
	KindLocked
	KindRateLimited
	KindUpstream
	KindTransient
	KindFatal
)

// Error wraps an underlying cause with a taxonomy Kind.
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

func New(k Kind, msg string) *Error             { return &Error{Kind: k, Msg: msg} }
func Wrap(k Kind, msg string, err error) *Error { return &Error{Kind: k, Msg: msg, Err: err} }

func InputInvalid(msg string) *Error         { return New(KindInputInvalid, msg) }
func Conflict(msg string) *Error             { return New(KindConflict, msg) }
func NotFound(msg string) *Error             { return New(KindNotFound, msg) }
func Unauthorized(msg string) *Error         { return New(KindUnauthorized, msg) }
func Locked(msg string) *Error               { return New(KindLocked, msg) }
func RateLimited(msg string) *Error          { return New(KindRateLimited, msg) }
func Upstream(msg string, err error) *Error  { return Wrap(KindUpstream, msg, err) }
func Transient(msg string, err error) *Error { return Wrap(KindTransient, msg, err) }
func Fatal(msg string, err error) *Error     { return Wrap(KindFatal, msg, err) }

// KindOf returns the Kind carried by err, or KindFatal if err does not
// wrap an *Error (an unclassified error is treated as worst-case).
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindFatal
}

// HTTPStatus maps a Kind to the status code the HTTP service design
// assigns it.
func HTTPStatus(k Kind) int {
	switch k {
	case KindInputInvalid:
		return http.StatusBadRequest
	case KindConflict:
		return http.StatusConflict
	case KindNotFound:
		return http.StatusNotFound
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindLocked:
		return http.StatusLocked
	case KindRateLimited:
		return http.StatusTooManyRequests
	case KindUpstream, KindTransient:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// StatusFor is a convenience wrapper combining KindOf and HTTPStatus.
func StatusFor(err error) int {
	return HTTPStatus(KindOf(err))
}
