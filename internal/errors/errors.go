// Package errors provides coded domain errors for the Stacks API.
//
// Usage:
//
//	// In services - return typed errors
//	if titleTaken {
//	    return errors.BadUserInput("saving book failed").WithCause(err).WithInvalidArgs(args)
//	}
//
//	// At boundaries - check with errors.Is / errors.As
//	var domainErr *errors.Error
//	if errors.As(err, &domainErr) && domainErr.Code == errors.CodeBadUserInput {
//	    ...
//	}
//
// Error implements the extensions contract the GraphQL layer serializes,
// so a domain error surfaces on the wire with a machine-readable code,
// the offending arguments and the underlying cause - never a raw
// internal error.
package errors

import (
	"errors"
	"fmt"
)

// Re-export standard library functions for convenience.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	Join   = errors.Join
)

// Code represents a machine-readable error code carried in GraphQL
// error extensions.
type Code string

// Error codes used throughout the application.
const (
	CodeBadUserInput    Code = "BAD_USER_INPUT"
	CodeUnauthenticated Code = "UNAUTHENTICATED"
	CodeInternal        Code = "INTERNAL_SERVER_ERROR"
)

// Error is a domain error with a code, an optional cause and the
// arguments that triggered it.
type Error struct {
	Code        Code
	Message     string
	InvalidArgs any
	Err         error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is lets errors.Is match two domain errors by code.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.Code == t.Code
}

// WithCause returns a copy of the error wrapping an underlying cause.
func (e *Error) WithCause(err error) *Error {
	return &Error{
		Code:        e.Code,
		Message:     e.Message,
		InvalidArgs: e.InvalidArgs,
		Err:         err,
	}
}

// WithInvalidArgs returns a copy of the error carrying the offending
// arguments for diagnostics.
func (e *Error) WithInvalidArgs(args any) *Error {
	return &Error{
		Code:        e.Code,
		Message:     e.Message,
		InvalidArgs: args,
		Err:         e.Err,
	}
}

// Extensions returns the GraphQL error extensions for this error.
// The message itself is reported separately by the executor.
func (e *Error) Extensions() map[string]interface{} {
	ext := map[string]interface{}{
		"code": string(e.Code),
	}
	if e.InvalidArgs != nil {
		ext["invalidArgs"] = e.InvalidArgs
	}
	if e.Err != nil {
		ext["error"] = e.Err.Error()
	}
	return ext
}

// BadUserInput creates a BAD_USER_INPUT error.
func BadUserInput(msg string) *Error {
	return &Error{Code: CodeBadUserInput, Message: msg}
}

// Unauthenticated creates an UNAUTHENTICATED error.
func Unauthenticated(msg string) *Error {
	return &Error{Code: CodeUnauthenticated, Message: msg}
}

// Internal creates an INTERNAL_SERVER_ERROR error. The cause stays
// server-side; only the generic message crosses the wire.
func Internal(msg string) *Error {
	return &Error{Code: CodeInternal, Message: msg}
}

// Sentinel errors for errors.Is checks by code.
var (
	ErrBadUserInput    = &Error{Code: CodeBadUserInput, Message: "bad user input"}
	ErrUnauthenticated = &Error{Code: CodeUnauthenticated, Message: "not authenticated"}
)
