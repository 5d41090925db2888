package services

import (
	"errors"
	"fmt"
)

// Error classes returned by the generation pipeline. Handlers map them to
// HTTP status codes with errors.Is.
var (
	ErrNotFound                  = errors.New("not found")
	ErrInvalidInput              = errors.New("invalid input")
	ErrServiceDisabled           = errors.New("ai generation disabled")
	ErrRateLimited               = errors.New("daily generation limit reached")
	ErrProviderRateLimited       = errors.New("generation provider rate limited")
	ErrTimeout                   = errors.New("generation timed out")
	ErrProviderProtocolViolation = errors.New("generation provider returned malformed output")
	ErrExhausted                 = errors.New("no questions could be generated")
	ErrConflict                  = errors.New("all questions duplicate existing content")
	ErrInternal                  = errors.New("internal error")
)

// PipelineError carries a class sentinel, a caller-safe message and the cause.
type PipelineError struct {
	Class   error
	Message string
	Err     error
}

func (e *PipelineError) Error() string {
	if e.Message == "" {
		return e.Class.Error()
	}
	return fmt.Sprintf("%s: %s", e.Class.Error(), e.Message)
}

// Unwrap exposes both the class and the cause to errors.Is / errors.As.
func (e *PipelineError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Class}
	}
	return []error{e.Class, e.Err}
}

func NewPipelineError(class error, message string, cause error) *PipelineError {
	return &PipelineError{Class: class, Message: message, Err: cause}
}

// ErrorClass names the class of err for logs and events.
func ErrorClass(err error) string {
	switch {
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, ErrServiceDisabled):
		return "service_disabled"
	case errors.Is(err, ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, ErrProviderRateLimited):
		return "provider_rate_limited"
	case errors.Is(err, ErrTimeout):
		return "timeout"
	case errors.Is(err, ErrProviderProtocolViolation):
		return "protocol_violation"
	case errors.Is(err, ErrExhausted):
		return "exhausted"
	case errors.Is(err, ErrConflict):
		return "conflict"
	default:
		return "internal"
	}
}
