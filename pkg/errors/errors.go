// Package errors provides structured error types for the ttcal application.
//
// This package defines error codes and types that enable:
//   - Consistent error handling across the CLI and the solver packages
//   - Machine-readable error codes for programmatic handling
//   - User-friendly error messages
//   - Error wrapping with context preservation
//
// # Error Codes
//
// Error codes follow a hierarchical naming convention:
//   - INVALID_*: Input validation failures
//   - NOT_FOUND_*: Resource not found
//   - NUMERIC_*: Per-element numeric failures (singular matrix)
//   - INTERNAL_*: Unexpected internal errors
//
// Non-convergence of a calibration solve is deliberately NOT an error code:
// it is recorded as a flag on the affected channel and the run continues.
//
// # Usage
//
//	err := errors.New(errors.ErrCodeShapeMismatch, "observed has %d channels, model has %d", a, b)
//	if errors.Is(err, errors.ErrCodeShapeMismatch) {
//	    // Handle structural error
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeUnreadableFile, origErr, "open %s", path)
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Input validation errors
	ErrCodeInvalidInput   Code = "INVALID_INPUT"
	ErrCodeInvalidOptions Code = "INVALID_OPTIONS"
	ErrCodeInvalidCatalog Code = "INVALID_CATALOG"
	ErrCodeInvalidBeam    Code = "INVALID_BEAM"
	ErrCodeInvalidColumn  Code = "INVALID_COLUMN"

	// Structural errors (fatal to the operation invoked)
	ErrCodeShapeMismatch Code = "SHAPE_MISMATCH"
	ErrCodeIndexRange    Code = "INDEX_OUT_OF_RANGE"

	// Per-element numeric failures (local, recoverable by the caller)
	ErrCodeSingularMatrix Code = "NUMERIC_SINGULAR_MATRIX"

	// Resource not found errors
	ErrCodeNotFound       Code = "NOT_FOUND"
	ErrCodeColumnNotFound Code = "COLUMN_NOT_FOUND"
	ErrCodeFileNotFound   Code = "FILE_NOT_FOUND"
	ErrCodeSourceNotFound Code = "SOURCE_NOT_FOUND"

	// External I/O errors (fatal to the whole invocation)
	ErrCodeUnreadableFile Code = "UNREADABLE_FILE"
	ErrCodeUnwritableFile Code = "UNWRITABLE_FILE"

	// Internal errors
	ErrCodeInternal    Code = "INTERNAL_ERROR"
	ErrCodeUnsupported Code = "UNSUPPORTED"
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
