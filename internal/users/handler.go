package users

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/JaimeStill/countersign/internal/workflow"
	"github.com/JaimeStill/countersign/pkg/auth"
	"github.com/JaimeStill/countersign/pkg/handlers"
	"github.com/JaimeStill/countersign/pkg/pagination"
	"github.com/JaimeStill/countersign/pkg/routes"
)

var errInvalidID = workflow.Validation("id", "must be a UUID")

// Handler provides HTTP endpoints for the user directory.
type Handler struct {
	sys              System
	logger           *slog.Logger
	pagination       pagination.Config
	maxSignatureSize int64
}

// NewHandler creates a Handler with the given system, logger, pagination config, and signature size limit.
func NewHandler(
	sys System,
	logger *slog.Logger,
	pagination pagination.Config,
	maxSignatureSize int64,
) *Handler {
	return &Handler{
		sys:              sys,
		logger:           logger.With("handler", "users"),
		pagination:       pagination,
		maxSignatureSize: maxSignatureSize,
	}
}

// Routes returns the route group definition for user endpoints.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix: "/users",
		Routes: []routes.Route{
			{Method: "GET", Pattern: "", Handler: h.List},
			{Method: "GET", Pattern: "/me", Handler: h.Me},
			{Method: "GET", Pattern: "/{id}", Handler: h.Find},
			{Method: "POST", Pattern: "", Handler: h.Create},
			{Method: "GET", Pattern: "/{id}/signature", Handler: h.DownloadSignature},
			{Method: "PUT", Pattern: "/{id}/signature", Handler: h.SetSignature},
			{Method: "DELETE", Pattern: "/{id}/signature", Handler: h.ClearSignature},
		},
	}
}

// List returns a paginated list of users with optional query parameter filters.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	page := pagination.PageRequestFromQuery(r.URL.Query(), h.pagination)
	filters := FiltersFromQuery(r.URL.Query())

	result, err := h.sys.List(r.Context(), page, filters)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusInternalServerError, err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, result)
}

// Me returns the directory entry of the authenticated actor.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.ActorFrom(r.Context())
	if !ok {
		handlers.RespondError(w, h.logger, http.StatusUnauthorized, auth.ErrMissingToken)
		return
	}

	u, err := h.sys.Find(r.Context(), id)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, u)
}

// Find returns a single user by its UUID path parameter.
func (h *Handler) Find(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, errInvalidID)
		return
	}

	u, err := h.sys.Find(r.Context(), id)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, u)
}

// Create registers a directory entry. Administrators only.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	if err := h.authorize(r, uuid.Nil); err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	var cmd CreateCommand
	if err := handlers.DecodeJSON(r, &cmd, 1<<16); err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	u, err := h.sys.Create(r.Context(), cmd)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusCreated, u)
}

// SetSignature replaces the signature on file with the raw PNG or JPEG request body.
func (h *Handler) SetSignature(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, errInvalidID)
		return
	}

	if err := h.authorize(r, id); err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxSignatureSize))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			handlers.RespondError(w, h.logger, http.StatusRequestEntityTooLarge, err)
			return
		}
		handlers.RespondError(w, h.logger, http.StatusBadRequest, handlers.ErrInvalidBody)
		return
	}

	u, err := h.sys.SetSignature(r.Context(), id, data)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, u)
}

// ClearSignature removes the signature on file.
func (h *Handler) ClearSignature(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, errInvalidID)
		return
	}

	if err := h.authorize(r, id); err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	if err := h.sys.ClearSignature(r.Context(), id); err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// DownloadSignature streams the signature on file.
func (h *Handler) DownloadSignature(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, errInvalidID)
		return
	}

	if err := h.authorize(r, id); err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	blob, err := h.sys.Signature(r.Context(), id)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}
	defer blob.Body.Close()

	w.Header().Set("Content-Type", blob.ContentType)
	if blob.ContentLength > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(blob.ContentLength, 10))
	}
	w.WriteHeader(http.StatusOK)
	io.Copy(w, blob.Body)
}

// authorize admits the owner of target or an administrator.
func (h *Handler) authorize(r *http.Request, target uuid.UUID) error {
	actor, ok := auth.ActorFrom(r.Context())
	if !ok {
		return ErrForbidden
	}
	if target != uuid.Nil && actor == target {
		return nil
	}

	u, err := h.sys.Find(r.Context(), actor)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrForbidden
		}
		return err
	}
	if !u.IsAdmin {
		return ErrForbidden
	}
	return nil
}
