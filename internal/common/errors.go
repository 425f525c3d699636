// Package common defines the error taxonomy and small helpers shared by the
// Zekret server layers. Callers should use errors.Is to match kinds.
package common

import (
	"errors"
	"fmt"
)

// Error kinds. Every error surfaced to clients unwraps to exactly one of these.
var (
	ErrorNotFound     = errors.New("not found")
	ErrorUnauthorized = errors.New("unauthorized")
	ErrorConflict     = errors.New("conflict")
	ErrorBadRequest   = errors.New("bad request")
	ErrorInternal     = errors.New("internal error")
)

// Error is a client-safe message attached to one of the error kinds.
type Error struct {
	kind error
	msg  string
}

// NewError returns an error whose message is safe to show to clients and
// which matches kind with errors.Is.
func NewError(kind error, msg string) *Error {
	return &Error{kind: kind, msg: msg}
}

// Errorf is NewError with formatting.
func Errorf(kind error, format string, args ...any) *Error {
	return &Error{kind: kind, msg: fmt.Sprintf(format, args...)}
}

func (e *Error) Error() string { return e.msg }

func (e *Error) Unwrap() error { return e.kind }

// Kind returns the kind the error belongs to.
func (e *Error) Kind() error { return e.kind }

// Authentication failures.
var (
	ErrInvalidCredentials  = NewError(ErrorUnauthorized, "invalid credentials")
	ErrAccountDisabled     = NewError(ErrorUnauthorized, "account disabled")
	ErrMissingToken        = NewError(ErrorUnauthorized, "missing or malformed authorization header")
	ErrInvalidToken        = NewError(ErrorUnauthorized, "invalid token")
	ErrLoggedOutToken      = NewError(ErrorUnauthorized, "invalid or logged out token")
	ErrTokenExpired        = NewError(ErrorUnauthorized, "token expired")
	ErrTokenMalformed      = NewError(ErrorUnauthorized, "malformed token")
	ErrTokenSignature      = NewError(ErrorUnauthorized, "invalid token signature")
	ErrRefreshTokenExpired = NewError(ErrorUnauthorized, "refresh token expired")
)

// KindOf returns the kind err belongs to, defaulting to ErrorInternal.
func KindOf(err error) error {
	for _, kind := range []error{ErrorNotFound, ErrorUnauthorized, ErrorConflict, ErrorBadRequest} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return ErrorInternal
}

// PublicMessage returns the message that may be shown to a client for err.
// Internal errors never expose their details.
func PublicMessage(err error) string {
	kind := KindOf(err)
	if kind == ErrorInternal {
		return "internal server error"
	}
	var e *Error
	if errors.As(err, &e) {
		return e.msg
	}
	return kind.Error()
}
