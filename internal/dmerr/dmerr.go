// Package dmerr defines the error taxonomy for the direct-message subsystem.
// Every core operation catches its own failures at the boundary, logs them
// with enough context to reproduce, and returns a sentinel instead of letting
// anything propagate into the draw pass.
package dmerr

import (
	"errors"
	"fmt"
	"log/slog"
)

// Code categorizes a subsystem failure.
type Code string

const (
	// Identity: ambiguous or unparsable correspondent.
	Identity Code = "IDENTITY_RESOLUTION"
	// SessionState: operation against a nonexistent or conflicting session.
	SessionState Code = "SESSION_STATE"
	// Persistence: store read/write error during hydration or geometry save.
	Persistence Code = "PERSISTENCE"
	// Presentation: the presentation layer could not create or register a surface.
	Presentation Code = "PRESENTATION"
)

// Error is a structured subsystem error carrying the operation name and the
// identity it concerned.
type Error struct {
	Code  Code
	Op    string
	Ident string
	Err   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s(%s): %v", e.Code, e.Op, e.Ident, e.Err)
	}
	return fmt.Sprintf("%s: %s(%s)", e.Code, e.Op, e.Ident)
}

// Unwrap exposes the underlying cause for errors.Is/As.
func (e *Error) Unwrap() error { return e.Err }

// New builds a subsystem error.
func New(code Code, op, identity string, err error) *Error {
	return &Error{Code: code, Op: op, Ident: identity, Err: err}
}

// Is reports whether err is a subsystem error with the given code.
func Is(err error, code Code) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == code
}

// Soft logs err and swallows it. Nil logger and nil err are both fine; this
// is the fail-soft boundary for callers that must never throw into the draw
// pass.
func Soft(log *slog.Logger, err error) {
	if err == nil || log == nil {
		return
	}
	var e *Error
	if errors.As(err, &e) {
		log.Warn("suppressed failure", "code", string(e.Code), "op", e.Op, "identity", e.Ident, "error", e.Err)
		return
	}
	log.Warn("suppressed failure", "error", err)
}
