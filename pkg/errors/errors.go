package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error represents a typed domain error with HTTP awareness.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
	Err     error  `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// New creates a new Error instance.
func New(code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

// Wrap attaches context to an existing error.
func Wrap(err error, code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message, Err: err}
}

// Pre-flight rejections surface synchronously to the booking caller;
// everything past admission is reported through the progress channel.
var (
	ErrValidation    = New("VALIDATION_ERROR", http.StatusBadRequest, "validation failed")
	ErrNotFound      = New("NOT_FOUND", http.StatusNotFound, "resource not found")
	ErrInternal      = New("INTERNAL_ERROR", http.StatusInternalServerError, "internal server error")
	ErrWindowClosed  = New("WINDOW_CLOSED", http.StatusForbidden, "enrollment window is not open for this category")
	ErrInvalidFuel   = New("INVALID_FUEL", http.StatusForbidden, "admission token is invalid")
	ErrFuelInUse     = New("FUEL_IN_USE", http.StatusConflict, "admission token already has a live attempt")
	ErrFuelUsed      = New("FUEL_WAS_USED", http.StatusConflict, "admission token was already consumed")
	ErrNoCredential  = New("MISSING_CREDENTIAL", http.StatusBadRequest, "either a password or a session cookie with host is required")
	ErrLoginFailed   = New("LOGIN_FAILED", http.StatusBadGateway, "simulated login failed")
	ErrQueueStopped  = New("QUEUE_STOPPED", http.StatusServiceUnavailable, "booking queue is not accepting jobs")
	ErrTooManyGoals  = New("TOO_MANY_GOALS", http.StatusBadRequest, "wish-list exceeds the goal cap")
	ErrIllegalStatus = New("ILLEGAL_STATUS", http.StatusConflict, "admission token is not in the expected status")
)

// FromError normalises any error into an *Error.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Wrap(err, ErrInternal.Code, ErrInternal.Status, ErrInternal.Message)
}

// Clone returns a copy of the error allowing for message overrides.
func Clone(err *Error, message string) *Error {
	if err == nil {
		return nil
	}
	clone := *err
	if message != "" {
		clone.Message = message
	}
	return &clone
}
