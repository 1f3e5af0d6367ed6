package store

import (
	"errors"
	"fmt"
)

// StoreError represents a mutation the store refused to apply.
//
// A rejected call leaves the store untouched: no snapshot is published and
// no event is dispatched.
type StoreError struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Key is the top-level state key involved, if any.
	Key string

	// Err is the underlying cause, if any.
	Err error
}

// ErrorCode categorizes store errors.
type ErrorCode string

const (
	// ErrCodeUnknownKey indicates a partial names a key the initial state
	// does not have.
	ErrCodeUnknownKey ErrorCode = "UNKNOWN_KEY"

	// ErrCodeInvalidValue indicates a partial value could not be converted
	// into the value model (floats, channels, funcs, ...).
	ErrCodeInvalidValue ErrorCode = "INVALID_VALUE"

	// ErrCodeNotAnObject indicates an initial state that is not a map or
	// struct.
	ErrCodeNotAnObject ErrorCode = "NOT_AN_OBJECT"
)

// Error implements the error interface.
func (e *StoreError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Key != "" {
		msg = fmt.Sprintf("%s (key=%s)", msg, e.Key)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *StoreError) Unwrap() error {
	return e.Err
}

// IsShapeError returns true if err is an unknown-key rejection.
// Uses errors.As to handle wrapped errors.
func IsShapeError(err error) bool {
	var se *StoreError
	if errors.As(err, &se) {
		return se.Code == ErrCodeUnknownKey
	}
	return false
}

// IsValueError returns true if err is an unconvertible-value rejection.
// Uses errors.As to handle wrapped errors.
func IsValueError(err error) bool {
	var se *StoreError
	if errors.As(err, &se) {
		return se.Code == ErrCodeInvalidValue
	}
	return false
}

// NewShapeError creates a StoreError for a key outside the initial shape.
func NewShapeError(key string) *StoreError {
	return &StoreError{
		Code:    ErrCodeUnknownKey,
		Message: "key is not part of the initial state",
		Key:     key,
	}
}

// NewValueError creates a StoreError for a value that cannot be stored.
func NewValueError(key string, cause error) *StoreError {
	return &StoreError{
		Code:    ErrCodeInvalidValue,
		Message: "value cannot be stored",
		Key:     key,
		Err:     cause,
	}
}

func newNotAnObjectError(got string) *StoreError {
	return &StoreError{
		Code:    ErrCodeNotAnObject,
		Message: fmt.Sprintf("state must be an object, got %s", got),
	}
}
