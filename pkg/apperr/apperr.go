// Package apperr defines the error kinds shared by services and the HTTP layer.
package apperr

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound means the requested record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrValidation means the input was rejected before any write happened.
	ErrValidation = errors.New("validation error")
	// ErrIO means a filesystem or object storage write failed.
	ErrIO = errors.New("storage error")
	// ErrCleanup means a best-effort resource release failed. Never surfaced to HTTP callers.
	ErrCleanup = errors.New("cleanup error")
	// ErrUnauthorized means credentials were missing or wrong.
	ErrUnauthorized = errors.New("unauthorized")
)

// kindError carries a readable message while still matching its kind with errors.Is.
type kindError struct {
	kind error
	msg  string
	err  error
}

func (e *kindError) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %v", e.msg, e.err)
	}
	return e.msg
}

func (e *kindError) Is(target error) bool { return target == e.kind }

func (e *kindError) Unwrap() error { return e.err }

// NotFound returns an ErrNotFound whose text is msg, e.g. "Advertising not found".
func NotFound(msg string) error {
	return &kindError{kind: ErrNotFound, msg: msg}
}

// Validation returns an ErrValidation with the given formatted message.
func Validation(format string, args ...interface{}) error {
	return &kindError{kind: ErrValidation, msg: fmt.Sprintf(format, args...)}
}

// IO wraps err as an ErrIO labelled with the failing operation.
func IO(op string, err error) error {
	return &kindError{kind: ErrIO, msg: op, err: err}
}

// Cleanup wraps err as an ErrCleanup labelled with the failing operation.
func Cleanup(op string, err error) error {
	return &kindError{kind: ErrCleanup, msg: op, err: err}
}

// Unauthorized returns an ErrUnauthorized whose text is msg.
func Unauthorized(msg string) error {
	return &kindError{kind: ErrUnauthorized, msg: msg}
}
