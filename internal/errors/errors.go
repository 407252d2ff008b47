// Package errors defines the error taxonomy shared by all convocore
// components. Every error that crosses a component boundary carries a
// stable code so the API layer can map it to the right HTTP status.
package errors

import (
	"errors"
	"fmt"
)

// Standard error codes for the application.
const (
	CodeUnknown          = "UNKNOWN"
	CodeValidation       = "VALIDATION"        // malformed or empty client input, never retried
	CodeIdentityConflict = "IDENTITY_CONFLICT" // candidate ids resolve to different users
	CodeNotFound         = "NOT_FOUND"         // referenced user/group does not exist
	CodeConflict         = "CONFLICT"          // create raced a concurrent create; recovered internally
	CodeStorage          = "STORAGE"           // storage transport/timeout failure, retryable by the caller
)

// ApplicationError is the interface that all our custom errors implement.
type ApplicationError interface {
	error
	Code() string
	Unwrap() error
}

// Error represents a basic application error.
type Error struct {
	code    string
	message string
	err     error
}

func (e *Error) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %v", e.message, e.err)
	}

	return e.message
}

func (e *Error) Code() string {
	return e.code
}

func (e *Error) Unwrap() error {
	return e.err
}

// Code returns the error code of err if it is an ApplicationError,
// or CodeUnknown if it isn't.
func Code(err error) string {
	var appErr ApplicationError
	if errors.As(err, &appErr) {
		return appErr.Code()
	}

	return CodeUnknown
}

// HasCode reports whether err carries the given code.
func HasCode(err error, code string) bool {
	return Code(err) == code
}

// Specific error types and constructors

type ValidationError struct {
	base Error
}

func (e *ValidationError) Error() string {
	return e.base.Error()
}

func (e *ValidationError) Code() string {
	return e.base.Code()
}

func (e *ValidationError) Unwrap() error {
	return e.base.Unwrap()
}

func NewValidationError(message string, cause error) error {
	return &ValidationError{
		base: Error{
			code:    CodeValidation,
			message: message,
			err:     cause,
		},
	}
}

// IdentityConflictError indicates that a set of candidate platform
// identifiers resolved to two different existing users. It is never
// auto-resolved: no record is created or merged.
type IdentityConflictError struct {
	base Error
}

func (e *IdentityConflictError) Error() string {
	return e.base.Error()
}

func (e *IdentityConflictError) Code() string {
	return e.base.Code()
}

func (e *IdentityConflictError) Unwrap() error {
	return e.base.Unwrap()
}

func NewIdentityConflictError(message string) error {
	return &IdentityConflictError{
		base: Error{
			code:    CodeIdentityConflict,
			message: message,
		},
	}
}

// NotFoundError indicates a referential failure: an operation referenced
// a user or group id that does not exist.
type NotFoundError struct {
	base Error
}

func (e *NotFoundError) Error() string {
	return e.base.Error()
}

func (e *NotFoundError) Code() string {
	return e.base.Code()
}

func (e *NotFoundError) Unwrap() error {
	return e.base.Unwrap()
}

func NewNotFoundError(message string, cause error) error {
	return &NotFoundError{
		base: Error{
			code:    CodeNotFound,
			message: message,
			err:     cause,
		},
	}
}

// ConflictError indicates a create raced with a concurrent create of the
// same unique identifier. Resolvers catch it and re-read the winning row;
// it never reaches the API layer.
type ConflictError struct {
	base Error
}

func (e *ConflictError) Error() string {
	return e.base.Error()
}

func (e *ConflictError) Code() string {
	return e.base.Code()
}

func (e *ConflictError) Unwrap() error {
	return e.base.Unwrap()
}

func NewConflictError(message string, cause error) error {
	return &ConflictError{
		base: Error{
			code:    CodeConflict,
			message: message,
			err:     cause,
		},
	}
}

// StorageError indicates a transport or timeout failure talking to the
// persistent store. Callers may retry with backoff.
type StorageError struct {
	base Error
}

func (e *StorageError) Error() string {
	return e.base.Error()
}

func (e *StorageError) Code() string {
	return e.base.Code()
}

func (e *StorageError) Unwrap() error {
	return e.base.Unwrap()
}

func NewStorageError(message string, cause error) error {
	return &StorageError{
		base: Error{
			code:    CodeStorage,
			message: message,
			err:     cause,
		},
	}
}
