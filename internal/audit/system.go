package audit

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/countersign/pkg/pagination"
)

// System defines the audit ledger operations. Implementations only insert
// and read.
type System interface {
	Record(ctx context.Context, rec Record) error

	// ByApprover returns one approver's history, newest first unless page.Sort says otherwise.
	ByApprover(
		ctx context.Context,
		approverID uuid.UUID,
		page pagination.PageRequest,
		filters Filters,
	) (*pagination.PageResult[Record], error)

	// ByDocument returns a document's history oldest first.
	ByDocument(ctx context.Context, documentID uuid.UUID) ([]Record, error)
}

// Backend names accepted by Config.
const (
	BackendPostgres = "postgres"
	BackendMongo    = "mongo"
	BackendMemory   = "memory"
)

// Filters narrows an approver history query. Nil fields are ignored.
type Filters struct {
	Action     *string    `json:"action,omitempty"`
	Status     *string    `json:"status,omitempty"`
	DocumentID *uuid.UUID `json:"document_id,omitempty"`
	Since      *time.Time `json:"since,omitempty"`
	Until      *time.Time `json:"until,omitempty"`
}

// FiltersFromQuery extracts filter values from URL query parameters.
// since and until are RFC 3339 timestamps; malformed values are ignored.
func FiltersFromQuery(values url.Values) Filters {
	var f Filters

	if a := values.Get("action"); a != "" {
		f.Action = &a
	}

	if s := values.Get("status"); s != "" {
		f.Status = &s
	}

	if d := values.Get("document_id"); d != "" {
		if id, err := uuid.Parse(d); err == nil {
			f.DocumentID = &id
		}
	}

	if s := values.Get("since"); s != "" {
		if t, err := time.Parse(time.RFC3339, s); err == nil {
			f.Since = &t
		}
	}

	if u := values.Get("until"); u != "" {
		if t, err := time.Parse(time.RFC3339, u); err == nil {
			f.Until = &t
		}
	}

	return f
}

func (f Filters) match(rec Record) bool {
	switch {
	case f.Action != nil && string(rec.Action) != *f.Action:
		return false
	case f.Status != nil && string(rec.Status) != *f.Status:
		return false
	case f.DocumentID != nil && rec.DocumentID != *f.DocumentID:
		return false
	case f.Since != nil && rec.ApprovedAt.Before(*f.Since):
		return false
	case f.Until != nil && rec.ApprovedAt.After(*f.Until):
		return false
	}
	return true
}

// Recorder writes ledger entries on a best-effort basis. Failures are logged
// and never returned, so a ledger outage cannot fail or roll back a workflow
// transition. A nil Recorder discards records.
type Recorder struct {
	sys    System
	logger *slog.Logger
}

// NewRecorder wraps sys for best-effort recording.
func NewRecorder(sys System, logger *slog.Logger) *Recorder {
	return &Recorder{
		sys:    sys,
		logger: logger.With("system", "audit"),
	}
}

// Record appends rec and reports whether the write succeeded.
func (r *Recorder) Record(ctx context.Context, rec Record) bool {
	if r == nil || r.sys == nil {
		return false
	}

	if err := r.sys.Record(ctx, rec); err != nil {
		r.logger.Error(
			"audit record failed",
			"document_id", rec.DocumentID,
			"approver_id", rec.ApproverID,
			"action", rec.Action,
			"error", fmt.Errorf("record %s: %w", rec.Action, err),
		)
		return false
	}
	return true
}
