// Package apperr defines the error kinds surfaced to operators: generic
// lookup failures, fatal configuration errors and validation errors. Each
// carries the subsystem it was raised in and a numeric code.
package apperr

import (
	"errors"
	"fmt"
)

// Numeric tags, stable across releases.
const (
	CodeGeneric    = 10000
	CodeFatal      = 10100
	CodeValidation = 10200
)

// Error is a coded error raised by a named subsystem
type Error struct {
	Subsystem string
	Code      int
	Message   string
	Err       error
}

func (e *Error) Error() string {
	msg := e.Message
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	if e.Subsystem == "" {
		return msg
	}
	return "Subsystem " + e.Subsystem + ": " + msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New returns a generic error for the given subsystem
func New(subsystem, format string, args ...any) *Error {
	return &Error{Subsystem: subsystem, Code: CodeGeneric, Message: fmt.Sprintf(format, args...)}
}

// Fatal returns an error the caller is not expected to recover from
func Fatal(subsystem, format string, args ...any) *Error {
	return &Error{Subsystem: subsystem, Code: CodeFatal, Message: fmt.Sprintf(format, args...)}
}

// Validation returns an error for data that does not validate.
// An empty subsystem defaults to "Validation".
func Validation(subsystem, format string, args ...any) *Error {
	if subsystem == "" {
		subsystem = "Validation"
	}
	return &Error{Subsystem: subsystem, Code: CodeValidation, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a cause to a generic error
func Wrap(subsystem string, err error, format string, args ...any) *Error {
	e := New(subsystem, format, args...)
	e.Err = err
	return e
}

// CodeOf returns the code of the first *Error in err's chain, or 0
func CodeOf(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return 0
}

func IsFatal(err error) bool {
	return CodeOf(err) == CodeFatal
}

func IsValidation(err error) bool {
	return CodeOf(err) == CodeValidation
}
