package models

import (
	"errors"
	"fmt"
)

// ErrorKind classifies failures crossing the core service boundary so the
// HTTP layer can map them without inspecting internals.
type ErrorKind string

const (
	// ErrKindValidation rejects malformed input before any state mutation
	ErrKindValidation ErrorKind = "validation"
	// ErrKindNotFound signals an unknown job or record
	ErrKindNotFound ErrorKind = "not_found"
	// ErrKindIllegalTransition signals an operation not legal in the job's current state
	ErrKindIllegalTransition ErrorKind = "illegal_transition"
	// ErrKindCapability signals a failed embedding/generation/tuning/judging call
	ErrKindCapability ErrorKind = "capability"
	// ErrKindNotIndexed signals retrieval against a job with no built index
	ErrKindNotIndexed ErrorKind = "not_indexed"
	// ErrKindInternal covers everything else
	ErrKindInternal ErrorKind = "internal"
)

// AppError is the uniform failure value returned by core operations.
// State carries the job's actual current state on illegal transitions so
// callers can self-correct.
type AppError struct {
	Kind    ErrorKind
	Message string
	State   string
	Err     error
}

func (e *AppError) Error() string {
	msg := e.Message
	if e.State != "" {
		msg = fmt.Sprintf("%s (current state: %s)", e.Message, e.State)
	}
	if e.Err != nil {
		msg = msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NewValidationError creates a validation error
func NewValidationError(format string, args ...interface{}) *AppError {
	return &AppError{Kind: ErrKindValidation, Message: fmt.Sprintf(format, args...)}
}

// NewNotFoundError creates a not-found error
func NewNotFoundError(format string, args ...interface{}) *AppError {
	return &AppError{Kind: ErrKindNotFound, Message: fmt.Sprintf(format, args...)}
}

// NewIllegalTransitionError creates an illegal-transition error carrying the current state
func NewIllegalTransitionError(state string, format string, args ...interface{}) *AppError {
	return &AppError{Kind: ErrKindIllegalTransition, Message: fmt.Sprintf(format, args...), State: state}
}

// NewCapabilityError wraps a failed external capability call
func NewCapabilityError(err error, format string, args ...interface{}) *AppError {
	return &AppError{Kind: ErrKindCapability, Message: fmt.Sprintf(format, args...), Err: err}
}

// NewNotIndexedError creates a not-indexed error
func NewNotIndexedError(format string, args ...interface{}) *AppError {
	return &AppError{Kind: ErrKindNotIndexed, Message: fmt.Sprintf(format, args...)}
}

// KindOf extracts the error kind, defaulting to internal for plain errors
func KindOf(err error) ErrorKind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return ErrKindInternal
}

// IsKind reports whether err carries the given kind
func IsKind(err error, kind ErrorKind) bool {
	return KindOf(err) == kind
}
