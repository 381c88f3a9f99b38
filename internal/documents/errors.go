package documents

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/JaimeStill/countersign/internal/workflow"
	"github.com/JaimeStill/countersign/pkg/handlers"
)

// Domain errors for document operations.
var (
	ErrNotFound    = fmt.Errorf("document %w", workflow.ErrNotFound)
	ErrDuplicate   = fmt.Errorf("document %w", workflow.ErrConflict)
	ErrNoArtifact  = fmt.Errorf("rendered artifact %w", workflow.ErrNotFound)
	errInvalidID   = workflow.Validation("id", "must be a UUID")
	errUnknownUser = workflow.Validation("approvers", "references an unknown user")
)

// MapHTTPStatus maps document domain errors to appropriate HTTP status codes.
func MapHTTPStatus(err error) int {
	if errors.Is(err, handlers.ErrInvalidBody) {
		return http.StatusBadRequest
	}
	return workflow.MapHTTPStatus(err)
}
