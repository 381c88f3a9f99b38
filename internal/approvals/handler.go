package approvals

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/countersign/internal/audit"
	"github.com/JaimeStill/countersign/internal/workflow"
	"github.com/JaimeStill/countersign/pkg/auth"
	"github.com/JaimeStill/countersign/pkg/handlers"
	"github.com/JaimeStill/countersign/pkg/middleware"
	"github.com/JaimeStill/countersign/pkg/pagination"
	"github.com/JaimeStill/countersign/pkg/routes"
)

// Directory resolves the authenticated caller to a workflow actor.
type Directory interface {
	Actor(ctx context.Context, id uuid.UUID) (workflow.Actor, error)
}

// Handler provides HTTP endpoints for approval workflow operations.
type Handler struct {
	sys         System
	directory   Directory
	logger      *slog.Logger
	pagination  pagination.Config
	maxBodySize int64
}

// NewHandler creates a Handler with the given system, directory, logger, pagination config, and request body limit.
func NewHandler(
	sys System,
	directory Directory,
	logger *slog.Logger,
	pagination pagination.Config,
	maxBodySize int64,
) *Handler {
	return &Handler{
		sys:         sys,
		directory:   directory,
		logger:      logger.With("handler", "approvals"),
		pagination:  pagination,
		maxBodySize: maxBodySize,
	}
}

// Routes returns the route group definition for approval endpoints.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix:     "/approvals",
		Middleware: []func(http.Handler) http.Handler{middleware.NoStore()},
		Routes: []routes.Route{
			{Method: "GET", Pattern: "/history", Handler: h.ApproverHistory},
			{Method: "POST", Pattern: "/{id}/submit", Handler: h.Submit},
			{Method: "POST", Pattern: "/{id}/approve", Handler: h.Approve},
			{Method: "POST", Pattern: "/{id}/reject", Handler: h.Reject},
			{Method: "POST", Pattern: "/{id}/sign", Handler: h.Sign},
			{Method: "POST", Pattern: "/{id}/remind", Handler: h.Remind},
			{Method: "GET", Pattern: "/{id}/history", Handler: h.DocumentHistory},
			{Method: "GET", Pattern: "/{id}/signatures", Handler: h.Signatures},
		},
	}
}

// Submit moves a draft into its route.
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	id, actor, ok := h.target(w, r)
	if !ok {
		return
	}

	doc, err := h.sys.Submit(r.Context(), id, actor)
	if err != nil {
		h.fail(w, err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, doc)
}

// Approve advances the document past the caller's step.
func (h *Handler) Approve(w http.ResponseWriter, r *http.Request) {
	id, actor, ok := h.target(w, r)
	if !ok {
		return
	}

	var cmd ApproveCommand
	if err := handlers.DecodeJSON(r, &cmd, h.maxBodySize); err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	result, err := h.sys.Approve(r.Context(), id, actor, cmd)
	if err != nil {
		h.fail(w, err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, result)
}

// Reject ends the route with a reason.
func (h *Handler) Reject(w http.ResponseWriter, r *http.Request) {
	id, actor, ok := h.target(w, r)
	if !ok {
		return
	}

	var cmd RejectCommand
	if err := handlers.DecodeJSON(r, &cmd, h.maxBodySize); err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	doc, err := h.sys.Reject(r.Context(), id, actor, cmd)
	if err != nil {
		h.fail(w, err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, doc)
}

// Sign records the caller's signature on an approved document.
func (h *Handler) Sign(w http.ResponseWriter, r *http.Request) {
	id, actor, ok := h.target(w, r)
	if !ok {
		return
	}

	var cmd SignCommand
	if err := handlers.DecodeJSON(r, &cmd, h.maxBodySize); err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	result, err := h.sys.Sign(r.Context(), id, actor, cmd)
	if err != nil {
		h.fail(w, err)
		return
	}

	handlers.RespondJSON(w, http.StatusCreated, result)
}

// Remind nudges the approver the document is waiting on.
func (h *Handler) Remind(w http.ResponseWriter, r *http.Request) {
	id, actor, ok := h.target(w, r)
	if !ok {
		return
	}

	var cmd ReminderCommand
	if err := handlers.DecodeJSON(r, &cmd, h.maxBodySize); err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	result, err := h.sys.SendReminder(r.Context(), id, actor, cmd)
	if err != nil {
		h.fail(w, err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, result)
}

// DocumentHistory returns the audit trail of one document, oldest first.
func (h *Handler) DocumentHistory(w http.ResponseWriter, r *http.Request) {
	id, actor, ok := h.target(w, r)
	if !ok {
		return
	}

	records, err := h.sys.DocumentHistory(r.Context(), id, actor)
	if err != nil {
		h.fail(w, err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, records)
}

// Signatures returns the signatures collected on one document.
func (h *Handler) Signatures(w http.ResponseWriter, r *http.Request) {
	id, actor, ok := h.target(w, r)
	if !ok {
		return
	}

	sigs, err := h.sys.Signatures(r.Context(), id, actor)
	if err != nil {
		h.fail(w, err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, sigs)
}

// ApproverHistory returns a paginated approver history. approver_id defaults
// to the caller; only administrators may read another approver's history.
func (h *Handler) ApproverHistory(w http.ResponseWriter, r *http.Request) {
	caller, ok := auth.ActorFrom(r.Context())
	if !ok {
		handlers.RespondError(w, h.logger, http.StatusUnauthorized, auth.ErrMissingToken)
		return
	}

	approver := caller
	if v := r.URL.Query().Get("approver_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			handlers.RespondError(w, h.logger, http.StatusBadRequest, workflow.Validation("approver_id", "must be a UUID"))
			return
		}
		approver = id
	}

	if approver != caller {
		actor, err := h.directory.Actor(r.Context(), caller)
		if err != nil {
			h.fail(w, err)
			return
		}
		if !actor.Admin {
			h.fail(w, workflow.ErrUnauthorized)
			return
		}
	}

	page := pagination.PageRequestFromQuery(r.URL.Query(), h.pagination)
	filters := audit.FiltersFromQuery(r.URL.Query())

	result, err := h.sys.ApproverHistory(r.Context(), approver, page, filters)
	if err != nil {
		h.fail(w, err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, result)
}

func (h *Handler) target(w http.ResponseWriter, r *http.Request) (uuid.UUID, uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, errInvalidID)
		return uuid.Nil, uuid.Nil, false
	}

	actor, ok := auth.ActorFrom(r.Context())
	if !ok {
		handlers.RespondError(w, h.logger, http.StatusUnauthorized, auth.ErrMissingToken)
		return uuid.Nil, uuid.Nil, false
	}

	return id, actor, true
}

// fail writes err with its mapped status. Rate limits carry the next allowed
// time in the body and a Retry-After header.
func (h *Handler) fail(w http.ResponseWriter, err error) {
	var limited *workflow.RateLimitedError
	if errors.As(err, &limited) {
		wait := math.Ceil(time.Until(limited.NextAllowedAt).Seconds())
		if wait > 0 {
			w.Header().Set("Retry-After", strconv.Itoa(int(wait)))
		}
		handlers.RespondErrorDetail(w, h.logger, http.StatusTooManyRequests, err, map[string]time.Time{
			"next_allowed_at": limited.NextAllowedAt,
		})
		return
	}

	handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
}
