package workflow

import (
	"context"
	"errors"
	"fmt"
)

// ErrorKind classifies an invocation failure for retry and escalation.
type ErrorKind string

const (
	KindTransient ErrorKind = "transient"
	KindPermanent ErrorKind = "permanent"
	KindTimeout   ErrorKind = "timeout"
	KindConfig    ErrorKind = "configuration"
	KindCancelled ErrorKind = "cancelled"
)

// InvocationError is the typed failure a role invoker (or the executor on
// its behalf) reports. Transient and timeout failures are retried, permanent
// ones abort the stage immediately.
type InvocationError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *InvocationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s invocation error: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s invocation error: %s", e.Kind, e.Message)
}

func (e *InvocationError) Unwrap() error { return e.Err }

// Transient marks a retryable failure (network hiccups, rate limits).
func Transient(format string, args ...any) *InvocationError {
	return &InvocationError{Kind: KindTransient, Message: fmt.Sprintf(format, args...)}
}

// Permanent marks a non-retryable failure (bad input, auth, quota).
func Permanent(format string, args ...any) *InvocationError {
	return &InvocationError{Kind: KindPermanent, Message: fmt.Sprintf(format, args...)}
}

// Classify maps an arbitrary error onto the taxonomy. Typed errors keep
// their kind; context errors become timeout/cancelled; everything else is
// treated as transient so the retry budget decides.
func Classify(err error) ErrorKind {
	var ie *InvocationError
	if errors.As(err, &ie) {
		return ie.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	if errors.Is(err, context.Canceled) {
		return KindCancelled
	}
	return KindTransient
}

// retryable reports whether a failure of the given kind consumes another
// attempt rather than aborting the stage.
func retryable(kind ErrorKind) bool {
	return kind == KindTransient || kind == KindTimeout
}
