package enroll

import (
	"context"
	"errors"
	"net"
	"net/url"
	"syscall"
)

// FailKind classifies a failed protocol step for the retry policy.
type FailKind int

const (
	// FailTransient covers timeouts and refused/reset connections; the
	// attempt may be retried on another host.
	FailTransient FailKind = iota
	// FailProtocol covers pattern misses, malformed payloads and missing
	// matches; the goal fails but the remote state is unknown.
	FailProtocol
	// FailRejected is a server-declared rejection. The seat truly is
	// unavailable, so the goal is never retried.
	FailRejected
)

// Canonical failure reasons recorded against a goal.
const (
	ReasonContextResolution = "context id resolution failed"
	ReasonFormDataInvalid   = "form data invalid"
	ReasonNoMatchingSection = "no matching class section"
	ReasonDecodeError       = "decode error"
	ReasonIllegalRequest    = "illegal request"
	ReasonRetriesExceeded   = "exceeded maximum retries"
	ReasonLoginFailed       = "simulated login failed"
)

// StepError is the uniform failure result of one protocol step.
type StepError struct {
	Step   int
	Kind   FailKind
	Reason string
	Err    error
}

func (e *StepError) Error() string {
	if e.Err != nil {
		return e.Reason + ": " + e.Err.Error()
	}
	return e.Reason
}

func (e *StepError) Unwrap() error { return e.Err }

// Transient reports whether the step may be retried on another host.
func (e *StepError) Transient() bool { return e.Kind == FailTransient }

func stepFailure(step int, kind FailKind, reason string, err error) *StepError {
	return &StepError{Step: step, Kind: kind, Reason: reason, Err: err}
}

// wrapNetError folds an HTTP transport error into the step taxonomy.
func wrapNetError(step int, reason string, err error) *StepError {
	if isTransient(err) {
		return stepFailure(step, FailTransient, reason, err)
	}
	return stepFailure(step, FailProtocol, reason, err)
}

func isTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) {
		return true
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return urlErr.Timeout() || isTransient(urlErr.Err)
	}
	return false
}
