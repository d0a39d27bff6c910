// Package apperr defines the error kinds shared by the progression engine,
// the profile store and the HTTP layer. Callers match kinds with errors.Is.
package apperr

import (
	"errors"
	"fmt"
)

// Base kinds.
var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("not found")
	ErrLocked       = errors.New("requirements not met")
	ErrConflict     = errors.New("concurrent modification")
	ErrExternal     = errors.New("external service error")
	ErrUnavailable  = errors.New("service unavailable")
	ErrTimeout      = errors.New("operation timeout")
)

// Error carries the failing operation and a user-facing message alongside
// its kind.
type Error struct {
	Op      string // e.g. "progression.ApplyLessonCompletion"
	Kind    error
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

func (e *Error) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return e.Kind
}

// Is matches the kind first, then the wrapped cause.
func (e *Error) Is(target error) bool {
	if e.Kind != nil && errors.Is(e.Kind, target) {
		return true
	}
	if e.Err != nil && errors.Is(e.Err, target) {
		return true
	}
	return false
}

// New builds an *Error of the given kind.
func New(op string, kind error, format string, args ...interface{}) *Error {
	return &Error{Op: op, Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches op/kind context to an underlying error.
func Wrap(op string, kind error, message string, err error) *Error {
	return &Error{Op: op, Kind: kind, Message: message, Err: err}
}

func InvalidInput(op, format string, args ...interface{}) *Error {
	return New(op, ErrInvalidInput, format, args...)
}

func NotFound(op, what string) *Error {
	return New(op, ErrNotFound, "%s not found", what)
}

func Locked(op, reason string) *Error {
	return New(op, ErrLocked, "%s", reason)
}

func Conflict(op string, err error) *Error {
	return Wrap(op, ErrConflict, "concurrent modification", err)
}

func External(op string, err error) *Error {
	return Wrap(op, ErrExternal, "external service failed", err)
}

// Message returns the user-facing message of err, or fallback when err
// carries none.
func Message(err error, fallback string) string {
	var ae *Error
	if errors.As(err, &ae) && ae.Message != "" {
		return ae.Message
	}
	return fallback
}

func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

func IsInvalidInput(err error) bool { return errors.Is(err, ErrInvalidInput) }

func IsExternal(err error) bool {
	return errors.Is(err, ErrExternal) ||
		errors.Is(err, ErrUnavailable) ||
		errors.Is(err, ErrTimeout)
}

// IsRetryable reports whether repeating the whole operation may succeed.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConflict) ||
		errors.Is(err, ErrUnavailable) ||
		errors.Is(err, ErrTimeout)
}
