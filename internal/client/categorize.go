package client

import (
	"context"
	"errors"
	"fmt"

	"github.com/kjstillabower/homepage-weather/internal/validation"
)

// Error kinds carried by FetchError. All of them are recovered by the
// resolver's fallback chain.
var (
	ErrNetwork       = errors.New("network failure")
	ErrHTTPStatus    = errors.New("unexpected upstream status")
	ErrTimeout       = errors.New("request timeout")
	ErrCircuitOpen   = errors.New("circuit breaker open")
	ErrShapeMismatch = validation.ErrShapeMismatch
)

// FetchError is returned by every adapter for any failed fetch.
type FetchError struct {
	Provider   string
	Kind       error
	StatusCode int // HTTP status, 0 when no response was received
	Err        error
}

func (e *FetchError) Error() string {
	msg := e.Provider + ": " + e.Kind.Error()
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (HTTP %d)", e.StatusCode)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes both the kind and the cause to errors.Is / errors.As.
func (e *FetchError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func shapeError(provider string, err error) error {
	return &FetchError{Provider: provider, Kind: ErrShapeMismatch, Err: err}
}

// ErrorCategory is a stable label for metrics and log throttling keys.
type ErrorCategory string

const (
	ErrorCategoryTimeout     ErrorCategory = "timeout"
	ErrorCategoryNetwork     ErrorCategory = "network"
	ErrorCategoryHTTPStatus  ErrorCategory = "http_status"
	ErrorCategoryShape       ErrorCategory = "shape"
	ErrorCategoryCircuitOpen ErrorCategory = "circuit_open"
	ErrorCategoryUnknown     ErrorCategory = "unknown"
)

// CategorizeError maps an error to a stable ErrorCategory.
func CategorizeError(err error) ErrorCategory {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrTimeout), errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return ErrorCategoryTimeout
	case errors.Is(err, ErrCircuitOpen):
		return ErrorCategoryCircuitOpen
	case errors.Is(err, ErrShapeMismatch):
		return ErrorCategoryShape
	case errors.Is(err, ErrHTTPStatus):
		return ErrorCategoryHTTPStatus
	case errors.Is(err, ErrNetwork):
		return ErrorCategoryNetwork
	default:
		return ErrorCategoryUnknown
	}
}
