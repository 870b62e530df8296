// Package errors provides structured error types for stagemap.
//
// This package defines error codes and types that enable:
//   - Consistent error handling across the editor core, CLI and HTTP API
//   - Machine-readable error codes for programmatic handling
//   - User-friendly error messages
//
// # Error Codes
//
// Index bookkeeping failures (INVALID_INDEX, ALREADY_EDITING, NOT_EDITING) are
// programming errors: the editor aborts the operation and leaves its state
// untouched. VALIDATION_FAILED is the only routinely occurring condition and
// is reported by validators, never by a mutating editor call.
//
// # Usage
//
//	err := errors.New(errors.ErrCodeInvalidIndex, "index %d out of range [0,%d)", i, n)
//	if errors.Is(err, errors.ErrCodeInvalidIndex) {
//	    // Handle stale reference
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeInvalidDocument, origErr, "decode %s", path)
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Index bookkeeping errors
	ErrCodeInvalidIndex   Code = "INVALID_INDEX"
	ErrCodeAlreadyEditing Code = "ALREADY_EDITING"
	ErrCodeNotEditing     Code = "NOT_EDITING"

	// Input validation errors
	ErrCodeValidationFailed Code = "VALIDATION_FAILED"
	ErrCodeInvalidInput     Code = "INVALID_INPUT"
	ErrCodeInvalidDocument  Code = "INVALID_DOCUMENT"
	ErrCodeInvalidFormat    Code = "INVALID_FORMAT"

	// Resource not found errors
	ErrCodeNotFound     Code = "NOT_FOUND"
	ErrCodeFileNotFound Code = "FILE_NOT_FOUND"

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
	return GetCode(err) == code && code != ""
}

// GetCode extracts the error code from an error, if available.
// Returns empty string if the error carries no code.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	var c coder
	if errors.As(err, &c) {
		return c.Code()
	}
	return ""
}

// coder is implemented by error types that carry a fixed code.
type coder interface {
	Code() Code
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

// InvalidIndex reports an index outside [0, count).
func InvalidIndex(index, count int) *Error {
	return New(ErrCodeInvalidIndex, "index %d out of range [0,%d)", index, count)
}

// ValidationError carries per-field messages from a failed form validation.
type ValidationError struct {
	Fields map[string]string // field name -> message
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if len(e.Fields) == 1 {
		for f, msg := range e.Fields {
			return fmt.Sprintf("validation failed: %s: %s", f, msg)
		}
	}
	return fmt.Sprintf("validation failed: %d fields", len(e.Fields))
}

// Code returns the error code for this error type.
func (e *ValidationError) Code() Code {
	return ErrCodeValidationFailed
}
