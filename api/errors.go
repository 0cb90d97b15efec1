// Package api
// Author: momentics <momentics@gmail.com>
//
// Common error types and error handling utilities for hioload-batch.

package api

import (
	"errors"
	"fmt"
)

// Common errors used across the library.
var (
	ErrInvalidArgument   = fmt.Errorf("invalid argument")
	ErrNotSupported      = fmt.Errorf("operation not supported")
	ErrAlreadyCompleted  = fmt.Errorf("request already completed")
	ErrMultiplexerClosed = fmt.Errorf("multiplexer is closed")
	ErrUnknownTransfer   = fmt.Errorf("transfer is not attached")
)

// Pool-level failures. Each one aborts the whole batch; match them with
// errors.Is, which compares by ErrorCode.
var (
	ErrFDSet         = NewError(ErrCodeFDSet, "error in file descriptors set operation")
	ErrMultiTimeout  = NewError(ErrCodeMultiTimeout, "multi interface timeout")
	ErrInvalidSelect = NewError(ErrCodeInvalidSelect, "file descriptors select result is invalid")
)

// ErrorCode represents specific error conditions in the library.
type ErrorCode int

const (
	ErrCodeOK ErrorCode = iota
	ErrCodeInvalidArgument
	ErrCodeNotSupported
	ErrCodeInternal
	ErrCodeFDSet
	ErrCodeMultiTimeout
	ErrCodeInvalidSelect
)

func (c ErrorCode) String() string {
	switch c {
	case ErrCodeOK:
		return "ok"
	case ErrCodeInvalidArgument:
		return "invalid_argument"
	case ErrCodeNotSupported:
		return "not_supported"
	case ErrCodeInternal:
		return "internal"
	case ErrCodeFDSet:
		return "fdset"
	case ErrCodeMultiTimeout:
		return "multi_timeout"
	case ErrCodeInvalidSelect:
		return "invalid_select"
	default:
		return fmt.Sprintf("code(%d)", int(c))
	}
}

// Error represents a structured error with code and context.
type Error struct {
	Code    ErrorCode
	Message string
	Context map[string]any
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	if len(e.Context) == 0 {
		return msg
	}
	return fmt.Sprintf("%s (context: %+v)", msg, e.Context)
}

// Unwrap exposes the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an *Error carrying the same code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// NewError creates a new structured error.
func NewError(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Context: make(map[string]any),
	}
}

// WithContext adds context information to the error.
func (e *Error) WithContext(key string, value any) *Error {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// WithCause attaches the error that triggered e.
func (e *Error) WithCause(err error) *Error {
	e.Cause = err
	return e
}

// CodeOf extracts the ErrorCode carried by err, or ErrCodeInternal when err
// is not a structured error. A nil error yields ErrCodeOK.
func CodeOf(err error) ErrorCode {
	if err == nil {
		return ErrCodeOK
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ErrCodeInternal
}
