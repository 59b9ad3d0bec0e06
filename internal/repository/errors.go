// Package repository holds the persistence layer and the error taxonomy
// shared by every layer above it.  Errors carry a Kind so handlers can
// map any failure to an HTTP status without knowing which repository or
// service produced it.  ErrForbidden and ErrConflict remain as the
// generic sentinels; more specific errors wrap them through Error.
package repository

import (
	"database/sql"
	"errors"
	"fmt"
)

// Kind classifies a failure for callers.
type Kind int

const (
	KindInternal Kind = iota
	KindNotFound
	KindForbidden
	KindConflict
	KindInvalidInput
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindForbidden:
		return "forbidden"
	case KindConflict:
		return "conflict"
	case KindInvalidInput:
		return "invalid_input"
	}
	return "internal"
}

// Error is a classified failure.  Code is a stable machine-readable
// identifier (for example "unit_unavailable") and Msg is safe to show to
// API clients.  Err optionally holds the underlying cause.
type Error struct {
	Kind Kind
	Code string
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

// Is matches on Code so a wrapped copy of a sentinel still compares
// equal to it.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code && e.Kind == t.Kind
}

// NewError builds a sentinel error of the given kind.
func NewError(kind Kind, code, msg string) *Error {
	return &Error{Kind: kind, Code: code, Msg: msg}
}

// Wrap returns a copy of e with cause attached.
func (e *Error) Wrap(cause error) *Error {
	return &Error{Kind: e.Kind, Code: e.Code, Msg: e.Msg, Err: cause}
}

// ErrForbidden is returned when the caller attempts an operation on a
// resource they do not own.  Handlers translate this into HTTP 403.
var ErrForbidden = NewError(KindForbidden, "forbidden", "forbidden")

// ErrConflict is returned when a write lost a race with another writer or
// could not take its row locks in time.  Handlers translate this into
// HTTP 409 and clients may retry.
var ErrConflict = NewError(KindConflict, "conflict", "conflict, please retry")

// ErrNotFound is the generic missing-row error.  sql.ErrNoRows is mapped
// to it by KindOf.
var ErrNotFound = NewError(KindNotFound, "not_found", "not found")

var ErrEmailExists = NewError(KindConflict, "email_exists", "email already exists")

// KindOf extracts the classification of err.  Unclassified errors are
// internal, except sql.ErrNoRows which is NotFound.
func KindOf(err error) Kind {
	if err == nil {
		return KindInternal
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	if errors.Is(err, sql.ErrNoRows) {
		return KindNotFound
	}
	return KindInternal
}

// CodeOf returns the stable code of err or "internal".
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound.Code
	}
	return "internal"
}
