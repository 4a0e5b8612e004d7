// Package errors provides the unified error type and factory functions for the
// AppealEngine platform.  Every layer (domain, application, infrastructure,
// interfaces) uses AppError as the single carrier of structured error
// information so that HTTP responses, logging, and metrics stay consistent.
package errors

import (
	"errors"
	"fmt"
)

// AppError is the single structured error type used throughout the platform.
// It satisfies the standard error interface and supports Go 1.13+ wrapping so
// errors.Is / errors.As / errors.Unwrap work across layers.
//
// Usage:
//
//	return errors.New(errors.ErrCodePropertyNotFound, "property 14081020180000 not found")
//	return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to load property")
type AppError struct {
	// Code uniquely identifies the failure category.
	Code ErrorCode

	// Message is the primary human-readable description, suitable for
	// inclusion in API responses.
	Message string

	// Detail carries supplementary context (identifiers, query parameters)
	// that aids debugging without leaking internals to end users.
	Detail string

	// Cause is the underlying error, if any.
	Cause error
}

// Error implements the standard error interface.
// Format: "[<code>] <message>: <detail>", detail omitted when empty.
func (e *AppError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Code, e.Message, e.Detail)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause, enabling errors.Is / errors.As
// traversal of the full chain.
func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithDetail returns a shallow copy of the receiver with Detail set.
// Safe to call on a nil pointer.
func (e *AppError) WithDetail(detail string) *AppError {
	if e == nil {
		return nil
	}
	clone := *e
	clone.Detail = detail
	return &clone
}

// New constructs a fresh AppError with the given code and message.
func New(code ErrorCode, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

// Newf constructs a fresh AppError with a formatted message.
func Newf(code ErrorCode, format string, args ...interface{}) *AppError {
	return &AppError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap constructs an AppError that wraps an existing error.  If err is nil,
// Wrap returns nil so it can be used inline on call results.
func Wrap(err error, code ErrorCode, message string) *AppError {
	if err == nil {
		return nil
	}
	return &AppError{Code: code, Message: message, Cause: err}
}

// IsCode reports whether any error in err's chain is an *AppError with the
// given code.
func IsCode(err error, code ErrorCode) bool {
	var ae *AppError
	for err != nil {
		if errors.As(err, &ae) && ae.Code == code {
			return true
		}
		err = errors.Unwrap(err)
	}
	return false
}

// IsNotFound reports whether any error in err's chain carries a not-found code.
func IsNotFound(err error) bool {
	return IsCode(err, ErrCodeNotFound) ||
		IsCode(err, ErrCodePropertyNotFound) ||
		IsCode(err, ErrCodeAnalysisNotFound)
}

// GetCode extracts the ErrorCode from the first *AppError in err's chain.
// A nil error yields CodeOK; a non-AppError chain yields ErrCodeInternal.
func GetCode(err error) ErrorCode {
	if err == nil {
		return CodeOK
	}
	var ae *AppError
	if errors.As(err, &ae) {
		return ae.Code
	}
	return ErrCodeInternal
}

// NotFound constructs a generic ErrCodeNotFound AppError.  Prefer the
// domain-specific codes where one exists.
func NotFound(message string) *AppError {
	return New(ErrCodeNotFound, message)
}

// InvalidParam constructs an ErrCodeBadRequest AppError.
func InvalidParam(message string) *AppError {
	return New(ErrCodeBadRequest, message)
}

// Internal constructs an ErrCodeInternal AppError.
func Internal(message string) *AppError {
	return New(ErrCodeInternal, message)
}

// Conflict constructs an ErrCodeConflict AppError.
func Conflict(message string) *AppError {
	return New(ErrCodeConflict, message)
}
