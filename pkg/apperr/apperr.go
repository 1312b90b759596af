// Package apperr classifies errors returned by the graph and user services so
// the HTTP layer can map them to status codes without string matching.
package apperr

import (
	"errors"
	"fmt"
)

// Kind is the caller-facing class of an error.
type Kind int

const (
	KindStore Kind = iota
	KindBadInput
	KindNotFound
	KindConflict
	KindUnauthorized
	KindForbidden
)

func (k Kind) String() string {
	switch k {
	case KindBadInput:
		return "bad input"
	case KindNotFound:
		return "not found"
	case KindConflict:
		return "conflict"
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	default:
		return "store error"
	}
}

// Sentinels for errors.Is. An *Error matches the sentinel of its Kind.
var (
	ErrStore        = &Error{Kind: KindStore}
	ErrBadInput     = &Error{Kind: KindBadInput}
	ErrNotFound     = &Error{Kind: KindNotFound}
	ErrConflict     = &Error{Kind: KindConflict}
	ErrUnauthorized = &Error{Kind: KindUnauthorized}
	ErrForbidden    = &Error{Kind: KindForbidden}
)

// Error is a classified error with a human readable message and an optional
// underlying cause.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Msg != "" && e.Err != nil:
		return e.Msg + ": " + e.Err.Error()
	case e.Msg != "":
		return e.Msg
	case e.Err != nil:
		return e.Err.Error()
	default:
		return e.Kind.String()
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is a sentinel (or any *Error) of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

func newf(kind Kind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), Err: err}
}

func BadInput(format string, args ...any) error {
	return newf(KindBadInput, nil, format, args...)
}

func NotFound(format string, args ...any) error {
	return newf(KindNotFound, nil, format, args...)
}

func Conflict(format string, args ...any) error {
	return newf(KindConflict, nil, format, args...)
}

func Unauthorized(format string, args ...any) error {
	return newf(KindUnauthorized, nil, format, args...)
}

func Forbidden(format string, args ...any) error {
	return newf(KindForbidden, nil, format, args...)
}

// WrapBadInput classifies err as bad input, keeping it as the cause.
func WrapBadInput(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return newf(KindBadInput, err, format, args...)
}

// WrapStore classifies err as a store failure unless it already carries a
// classification, in which case the original kind is kept.
func WrapStore(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	var ae *Error
	if errors.As(err, &ae) {
		return newf(ae.Kind, err, format, args...)
	}
	return newf(KindStore, err, format, args...)
}

// KindOf returns the kind of the first *Error in err's chain. Unclassified
// errors are store errors.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindStore
}

// Message returns the message of the outermost *Error in err's chain without
// its cause, or "" when err is unclassified.
func Message(err error) string {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Msg
	}
	return ""
}
