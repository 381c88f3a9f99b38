package users

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/JaimeStill/countersign/internal/workflow"
)

// Domain errors for user operations.
var (
	ErrNotFound         = fmt.Errorf("user %w", workflow.ErrNotFound)
	ErrDuplicate        = errors.New("email already registered")
	ErrInvalidSignature = fmt.Errorf("%w: signature must be a PNG or JPEG image", workflow.ErrValidation)
	ErrForbidden        = fmt.Errorf("%w: administrator or account owner required", workflow.ErrUnauthorized)
)

// MapHTTPStatus maps user domain errors to appropriate HTTP status codes.
func MapHTTPStatus(err error) int {
	if errors.Is(err, ErrDuplicate) {
		return http.StatusConflict
	}
	if errors.Is(err, ErrInvalidSignature) {
		return http.StatusBadRequest
	}
	return workflow.MapHTTPStatus(err)
}
