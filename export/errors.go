package export

import (
	"context"
	"errors"
	"fmt"

	"github.com/nibernar/project-service/ecode"
)

// Sentinel errors collaborator adapters use to signal a failure category
// without coupling to the orchestrator's classification.
var (
	// ErrPayloadTooLarge signals a memory or size limit was exceeded.
	ErrPayloadTooLarge = errors.New("payload too large")
	// ErrConversion signals a content-conversion failure.
	ErrConversion = errors.New("content conversion failed")
	// ErrUnavailable signals a collaborator is down or its breaker is open.
	ErrUnavailable = errors.New("service unavailable")
)

// Error is a categorized export failure. Code selects the ecode category;
// Message is safe to show to callers; Err carries the internal cause for
// server-side logs only.
type Error struct {
	Code    int
	Message string
	Fields  map[string]string // field-level validation errors
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError creates a categorized error with the category's default message.
func NewError(code int, message string, cause error) *Error {
	if message == "" {
		message = ecode.Text(code)
	}
	return &Error{Code: code, Message: message, Err: cause}
}

// NewValidationError wraps field-level validation failures.
func NewValidationError(fields map[string]string) *Error {
	return &Error{Code: ecode.Validation, Message: ecode.Text(ecode.Validation), Fields: fields}
}

// CodeOf extracts the ecode category of an error, defaulting to ServerErr.
func CodeOf(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ecode.ServerErr
}

// classify maps an arbitrary pipeline failure to a categorized Error. An
// already-categorized error passes through unchanged.
func classify(err error, stage string) *Error {
	var e *Error
	switch {
	case errors.As(err, &e):
		return e
	case errors.Is(err, context.DeadlineExceeded):
		return NewError(ecode.Timeout, fmt.Sprintf("%s timed out", stage), err)
	case errors.Is(err, ErrPayloadTooLarge):
		return NewError(ecode.ResourceExceeded, "", err)
	case errors.Is(err, ErrConversion):
		return NewError(ecode.ConversionFailure, "", err)
	case errors.Is(err, ErrUnavailable):
		return NewError(ecode.ServiceUnavailable, fmt.Sprintf("%s is unavailable", stage), err)
	default:
		return NewError(ecode.ServerErr, "", err)
	}
}
