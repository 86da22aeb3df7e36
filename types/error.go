package types

import (
	"errors"
	"fmt"
)

// ErrorKind classifies an extraction failure
type ErrorKind string

const (
	ErrTransient        ErrorKind = "transient"
	ErrPermissionDenied ErrorKind = "permission_denied"
	ErrNotFound         ErrorKind = "not_found"
	ErrFatal            ErrorKind = "fatal"
	ErrRetryExhausted   ErrorKind = "retry_exhausted"
)

// ExtractionError is a classified failure from a remote call or pipeline stage.
// RateLimited marks the transient subset caused by quota rejection, which the
// throttle layer reacts to.
type ExtractionError struct {
	Kind        ErrorKind
	Op          string
	RateLimited bool
	Err         error
}

func (e *ExtractionError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// NewError builds a classified extraction error
func NewError(kind ErrorKind, op string, err error) *ExtractionError {
	return &ExtractionError{Kind: kind, Op: op, Err: err}
}

// NewRateLimited builds a transient error carrying the quota-rejection marker
func NewRateLimited(op string, err error) *ExtractionError {
	return &ExtractionError{Kind: ErrTransient, Op: op, RateLimited: true, Err: err}
}

// KindOf extracts the classification of an error chain.
// Unclassified errors are treated as fatal: refusing outright is safer
// than retrying a programmer mistake.
func KindOf(err error) ErrorKind {
	var xe *ExtractionError
	if errors.As(err, &xe) {
		return xe.Kind
	}
	return ErrFatal
}

// IsRetryable reports whether a retry attempt may recover the error
func IsRetryable(err error) bool {
	return KindOf(err) == ErrTransient
}

// IsRateLimited reports whether the error chain carries a quota rejection
func IsRateLimited(err error) bool {
	var xe *ExtractionError
	if errors.As(err, &xe) {
		return xe.RateLimited
	}
	return false
}
