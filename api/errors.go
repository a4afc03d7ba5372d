// Package api
// Author: momentics <momentics@gmail.com>
//
// Common error types and error handling utilities for hioload-page.

package api

import (
	"errors"
	"fmt"
	"syscall"
)

// Common errors used across the library.
var (
	ErrBindFailed          = errors.New("bind failed")
	ErrConnectFailed       = errors.New("connect failed")
	ErrClosed              = errors.New("endpoint is closed")
	ErrCancelled           = errors.New("operation cancelled")
	ErrOperationInProgress = errors.New("another operation is in flight on this endpoint")
	ErrNotSupported        = errors.New("operation not supported")
	ErrNotRegistered       = errors.New("handle not registered")
	ErrInvalidArgument     = errors.New("invalid argument")
	ErrPageJoined          = errors.New("page already joined")
)

// IOFault reports an OS-level failure of an in-flight endpoint operation.
// It is fatal to that operation only; the endpoint may still be closed normally.
type IOFault struct {
	Op  string // accept, connect, send, flush, recv
	Err error
}

// Error implements the error interface.
func (e *IOFault) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

// Unwrap exposes the underlying errno.
func (e *IOFault) Unwrap() error { return e.Err }

// NewIOFault wraps err for op. A nil err yields nil.
func NewIOFault(op string, err error) error {
	if err == nil {
		return nil
	}
	return &IOFault{Op: op, Err: err}
}

// IsWouldBlock reports whether err is the transient EAGAIN/EWOULDBLOCK condition.
func IsWouldBlock(err error) bool {
	return errors.Is(err, syscall.EAGAIN) || errors.Is(err, syscall.EWOULDBLOCK)
}

// ErrorCode represents specific error conditions in the library.
type ErrorCode int

const (
	ErrCodeOK ErrorCode = iota
	ErrCodeInvalidArgument
	ErrCodeNotSupported
	ErrCodeInternal
)

// Error represents a structured error with code and context.
type Error struct {
	Code    ErrorCode
	Message string
	Context map[string]any
}

// Error implements the error interface.
func (e *Error) Error() string {
	if len(e.Context) == 0 {
		return e.Message
	}
	return fmt.Sprintf("%s (context: %+v)", e.Message, e.Context)
}

// Is lets errors.Is match the structured error against the sentinel for its code.
func (e *Error) Is(target error) bool {
	switch e.Code {
	case ErrCodeInvalidArgument:
		return target == ErrInvalidArgument
	case ErrCodeNotSupported:
		return target == ErrNotSupported
	}
	return false
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
