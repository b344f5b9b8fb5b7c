// Package errors provides coded domain errors shared across store,
// assembler and transport layers. Codes classify failures so callers
// can map them to a response or a retry decision without string
// matching.
package errors

import (
	"errors"
	"fmt"
)

// Code classifies a domain error.
type Code string

const (
	// CodeInvalidFilter marks malformed or unparseable filter input.
	// The request is rejected, no partial result is produced.
	CodeInvalidFilter Code = "invalid_filter"
	// CodeNotFound marks a dataset or reference entity id that does
	// not resolve.
	CodeNotFound Code = "not_found"
	// CodeUnavailable marks an underlying store connection or
	// transaction failure. Not retried here; resilience belongs to an
	// outer layer.
	CodeUnavailable Code = "store_unavailable"
	// CodeDeadline marks a caller-supplied deadline elapsing mid-query.
	CodeDeadline Code = "deadline_exceeded"
	// CodeCanceled marks the caller abandoning the request mid-query,
	// distinct from a deadline elapsing.
	CodeCanceled Code = "canceled"
	// CodeInternal marks everything else.
	CodeInternal Code = "internal"
)

// Error carries a code, a message and an optional wrapped cause.
type Error struct {
	Code    Code
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.cause
}

// Is reports code equality so sentinel comparisons via errors.Is work.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

// New creates a coded error without a cause.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf creates a coded error with a formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying error. A nil cause
// yields nil so call sites can wrap unconditionally.
func Wrap(cause error, code Code, message string) error {
	if cause == nil {
		return nil
	}
	return &Error{Code: code, Message: message, cause: cause}
}

// CodeOf extracts the code from err, walking the wrap chain.
// Unclassified errors report CodeInternal.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

// HasCode reports whether err carries the given code.
func HasCode(err error, code Code) bool {
	return err != nil && CodeOf(err) == code
}
