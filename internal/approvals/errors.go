package approvals

import (
	"errors"
	"net/http"

	"github.com/JaimeStill/countersign/internal/workflow"
	"github.com/JaimeStill/countersign/pkg/handlers"
)

var errInvalidID = workflow.Validation("id", "must be a UUID")

// MapHTTPStatus maps workflow errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	if errors.Is(err, handlers.ErrInvalidBody) {
		return http.StatusBadRequest
	}
	return workflow.MapHTTPStatus(err)
}
