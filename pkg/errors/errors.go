// Package errors provides coded errors for dtsfetch.
//
// An [Error] pairs a machine-readable [Code] with a message written for end
// users. Acquisition failures hand that message to the delegate's error
// callback unchanged, while the registry error that caused it stays
// reachable through Unwrap:
//
//	err := errors.Wrap(errors.ErrCodeFileTree, cause, "Could not get the files for %s@%s. Is it possibly a typo?", name, version)
//	errors.Is(err, errors.ErrCodeFileTree) // true
//	errors.UserMessage(err)                // "Could not get the files for ..."
//
// Codes are grouped by prefix: INVALID_* for rejected input and
// configuration, TAG_*, VERSIONS_* and FILE_* for per-module resolution.
package errors

import (
	"errors"
	"fmt"
)

// Code is a machine-readable error code.
type Code string

const (
	// Rejected input
	ErrCodeInvalidInput   Code = "INVALID_INPUT"
	ErrCodeInvalidPackage Code = "INVALID_PACKAGE"
	ErrCodeInvalidPath    Code = "INVALID_PATH"
	ErrCodeInvalidConfig  Code = "INVALID_CONFIG"

	// Per-module resolution
	ErrCodeTagResolution Code = "TAG_RESOLUTION"
	ErrCodeTagNotFound   Code = "TAG_NOT_FOUND"
	ErrCodeVersions      Code = "VERSIONS_UNAVAILABLE"
	ErrCodeFileTree      Code = "FILE_TREE"
)

// Error is a coded error with an optional cause.
type Error struct {
	Code    Code
	Message string // shown to users as is
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// New creates an Error with a formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates an Error with a formatted message around cause.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// Is reports whether any *Error in err's chain carries code.
func Is(err error, code Code) bool {
	return GetCode(err) == code && code != ""
}

// GetCode returns the code of the first *Error in err's chain, or "".
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// UserMessage returns the message of the first *Error in err's chain, or
// err.Error() for uncoded errors.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}
