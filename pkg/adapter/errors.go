package adapter

import (
	"errors"
	"fmt"
)

// ErrorClass classifies a provider error for retry and containment decisions.
type ErrorClass string

const (
	// ClassTransient marks failures that may succeed on retry, such as
	// throttling or momentary network errors.
	ClassTransient ErrorClass = "transient"

	// ClassPermanent marks failures that will not succeed on retry, such as
	// an unavailable image id or a rejected policy.
	ClassPermanent ErrorClass = "permanent"

	// ClassPrecondition marks deletions rejected because the provider
	// requires an explicit step first (e.g. a final snapshot). Permanent
	// from the executor's point of view; surfaced with the precondition.
	ClassPrecondition ErrorClass = "precondition"
)

// Error is a classified provider error.
type Error struct {
	Class   ErrorClass
	Code    string // provider error code, when available
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if e.Code != "" {
		msg = fmt.Sprintf("%s (%s)", msg, e.Code)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s", msg, e.Err.Error())
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// NewTransient wraps err as a retryable failure.
func NewTransient(message string, err error) *Error {
	return &Error{Class: ClassTransient, Message: message, Err: err}
}

// NewPermanent wraps err as a non-retryable failure.
func NewPermanent(message string, err error) *Error {
	return &Error{Class: ClassPermanent, Message: message, Err: err}
}

// NewPrecondition reports a deletion precondition that was not satisfied.
// The message must name the precondition.
func NewPrecondition(message string, err error) *Error {
	return &Error{Class: ClassPrecondition, Message: message, Err: err}
}

// WithCode attaches a provider error code.
func (e *Error) WithCode(code string) *Error {
	e.Code = code
	return e
}

// ClassOf returns the classification of err, defaulting to permanent for
// errors the adapter did not classify.
func ClassOf(err error) ErrorClass {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Class
	}
	return ClassPermanent
}

// IsTransient reports whether err was classified as retryable.
func IsTransient(err error) bool {
	return ClassOf(err) == ClassTransient
}

// IsPrecondition reports whether err is an unsatisfied deletion precondition.
func IsPrecondition(err error) bool {
	return ClassOf(err) == ClassPrecondition
}
