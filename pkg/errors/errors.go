// Package errors provides structured error types for the atlasforge application.
//
// This package defines error codes and types that enable:
//   - Consistent error handling across the CLI and pipeline
//   - Machine-readable error codes for programmatic handling
//   - User-friendly error messages
//   - Error wrapping with context preservation
//
// # Error Codes
//
// Validation codes map one-to-one to the failure modes of the layout
// engine (INVALID_CONFIG, CANVAS_TOO_LARGE, DUPLICATE_INDEX, ...). All of
// them are folder-scoped: a folder that fails validation is reported and
// skipped, never retried, and never aborts its siblings.
//
// # Usage
//
//	err := errors.New(errors.ErrCodeDuplicateIndex, "duplicate slot index %d", idx)
//	if errors.Is(err, errors.ErrCodeDuplicateIndex) {
//	    // Handle validation error
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeEncodeFailed, origErr, "encode atlas %q", name)
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Folder-scoped validation errors
	ErrCodeInvalidConfig      Code = "INVALID_CONFIG"
	ErrCodeCanvasTooLarge     Code = "CANVAS_TOO_LARGE"
	ErrCodeDuplicateIndex     Code = "DUPLICATE_INDEX"
	ErrCodeSlotOutOfBounds    Code = "SLOT_OUT_OF_BOUNDS"
	ErrCodeUnsafePath         Code = "UNSAFE_PATH"
	ErrCodeMissingPlaceholder Code = "MISSING_PLACEHOLDER"
	ErrCodeEncodeFailed       Code = "ENCODE_FAILED"

	// Resource not found errors
	ErrCodeNotFound Code = "NOT_FOUND"

	// Internal errors
	ErrCodeInternal Code = "INTERNAL_ERROR"
)

// Error is a structured error with a code and optional cause.
type Error struct {
	Code    Code   // Machine-readable error code
	Message string // Human-readable message
	Cause   error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a new Error with the given code and formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap creates a new Error wrapping an existing error.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// Is reports whether err has the given error code.
// It unwraps the error chain looking for an *Error with a matching code.
func Is(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// GetCode extracts the error code from an error, if available.
// Returns empty string if the error is not an *Error.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// UserMessage returns a user-friendly message for the error.
// For *Error types, returns the message without the code prefix.
// For other errors, returns the error string as-is.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}
