// Package apperr defines the error kinds the service reports to callers.
//
// Kinds describe what went wrong in domain terms; Status maps them to HTTP.
// Stores return raw driver errors and services wrap them here.
package apperr

import (
	"context"
	"errors"
	"net/http"
)

// Kind is a transport-independent error category.
type Kind string

const (
	KindUnauthenticated Kind = "unauthenticated"
	KindForbidden       Kind = "forbidden"
	KindValidation      Kind = "validation"
	KindNotFound        Kind = "not_found"
	KindUpstream        Kind = "upstream"
	KindUpstreamTimeout Kind = "upstream_timeout"
	KindPersistence     Kind = "persistence"
)

// Error carries a Kind, a client-safe message, and optionally the name of
// the offending input field.
type Error struct {
	Kind    Kind
	Message string
	Field   string
	Err     error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return string(e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches by Kind so errors.Is(err, apperr.ErrNotFound) works.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// Sentinels for errors.Is comparisons.
var (
	ErrUnauthenticated = &Error{Kind: KindUnauthenticated}
	ErrForbidden       = &Error{Kind: KindForbidden}
	ErrValidation      = &Error{Kind: KindValidation}
	ErrNotFound        = &Error{Kind: KindNotFound}
	ErrUpstream        = &Error{Kind: KindUpstream}
	ErrUpstreamTimeout = &Error{Kind: KindUpstreamTimeout}
	ErrPersistence     = &Error{Kind: KindPersistence}
)

// Unauthenticated reports that no identity could be resolved.
func Unauthenticated(msg string) error {
	return &Error{Kind: KindUnauthenticated, Message: msg}
}

// Forbidden reports an identity acting outside its rights.
func Forbidden(msg string) error {
	return &Error{Kind: KindForbidden, Message: msg}
}

// Validation reports bad input on the named field.
func Validation(field, msg string) error {
	return &Error{Kind: KindValidation, Message: msg, Field: field}
}

// NotFound reports a missing resource.
func NotFound(msg string) error {
	return &Error{Kind: KindNotFound, Message: msg}
}

// Upstream wraps a failed call to an external service. A context deadline
// in err's chain produces KindUpstreamTimeout instead.
func Upstream(err error, msg string) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{Kind: KindUpstreamTimeout, Message: msg, Err: err}
	}
	return &Error{Kind: KindUpstream, Message: msg, Err: err}
}

// Persistence wraps a storage failure.
func Persistence(err error, msg string) error {
	return &Error{Kind: KindPersistence, Message: msg, Err: err}
}

// KindOf returns the Kind of the first *Error in err's chain, or
// KindPersistence for unclassified errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindPersistence
}

// Status maps err to an HTTP status code.
func Status(err error) int {
	switch KindOf(err) {
	case KindUnauthenticated:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindUpstream:
		return http.StatusBadGateway
	case KindUpstreamTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
