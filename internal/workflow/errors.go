package workflow

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Error taxonomy shared by every workflow operation. Domain packages wrap these
// so callers can match with errors.Is regardless of which layer failed.
var (
	ErrNotFound      = errors.New("not found")
	ErrUnauthorized  = errors.New("not authorized for this action")
	ErrInvalidState  = errors.New("action not valid for current workflow state")
	ErrValidation    = errors.New("validation failed")
	ErrAlreadySigned = errors.New("approver has already signed")
	ErrRateLimited   = errors.New("reminder rate limited")
	ErrNoRecipient   = errors.New("no reminder recipient")
	ErrConflict      = errors.New("document was modified concurrently")
)

// ValidationError reports malformed input for a named field.
type ValidationError struct {
	Field   string
	Message string
}

// Validation returns a ValidationError for field.
func Validation(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// RateLimitedError carries the earliest time the rejected action may be retried.
type RateLimitedError struct {
	NextAllowedAt time.Time
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("%s until %s", ErrRateLimited, e.NextAllowedAt.UTC().Format(time.RFC3339))
}

func (e *RateLimitedError) Unwrap() error {
	return ErrRateLimited
}

// MapHTTPStatus maps workflow errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, ErrNoRecipient):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrInvalidState),
		errors.Is(err, ErrAlreadySigned),
		errors.Is(err, ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
