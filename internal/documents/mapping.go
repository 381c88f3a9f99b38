package documents

import (
	"net/url"

	"github.com/google/uuid"

	"github.com/JaimeStill/countersign/pkg/query"
	"github.com/JaimeStill/countersign/pkg/repository"
)

var projection = query.
	NewProjectionMap("public", "documents", "d").
	Project("id", "ID").
	Project("kind", "Kind").
	Project("title", "Title").
	Project("body", "Body").
	Project("content_ref", "ContentRef").
	Project("submitted_by", "SubmittedBy").
	Project("status", "Status").
	Project("step", "Step").
	Project("route", "Route").
	Project("current_approver", "CurrentApprover").
	Project("approved_by", "ApprovedBy").
	Project("approved_at", "ApprovedAt").
	Project("rejection_reason", "RejectionReason").
	Project("last_reminder_sent", "LastReminderSent").
	Project("reminder_count", "ReminderCount").
	Project("artifact_key", "ArtifactKey").
	Project("artifact_size", "ArtifactSize").
	Project("artifact_pages", "ArtifactPages").
	Project("version", "Version").
	Project("created_at", "CreatedAt").
	Project("updated_at", "UpdatedAt")

// returning mirrors projection for INSERT and UPDATE statements.
const returning = `RETURNING id, kind, title, body, content_ref, submitted_by, status, step, route,
	current_approver, approved_by, approved_at, rejection_reason, last_reminder_sent,
	reminder_count, artifact_key, artifact_size, artifact_pages, version, created_at, updated_at`

var defaultSort = query.SortField{
	Field:      "CreatedAt",
	Descending: true,
}

// Filters contains optional filtering criteria for document queries.
// Nil fields are ignored. Title uses case-insensitive contains matching.
type Filters struct {
	Status          *string    `json:"status,omitempty"`
	Step            *string    `json:"step,omitempty"`
	Kind            *string    `json:"kind,omitempty"`
	SubmittedBy     *uuid.UUID `json:"submitted_by,omitempty"`
	CurrentApprover *uuid.UUID `json:"current_approver,omitempty"`
	Title           *string    `json:"title,omitempty"`
}

// Apply adds filter conditions to a query builder.
func (f Filters) Apply(b *query.Builder) *query.Builder {
	return b.
		WhereEquals("Status", f.Status).
		WhereEquals("Step", f.Step).
		WhereEquals("Kind", f.Kind).
		WhereEquals("SubmittedBy", f.SubmittedBy).
		WhereEquals("CurrentApprover", f.CurrentApprover).
		WhereContains("Title", f.Title)
}

// FiltersFromQuery extracts filter values from URL query parameters.
func FiltersFromQuery(values url.Values) Filters {
	var f Filters

	if s := values.Get("status"); s != "" {
		f.Status = &s
	}

	if s := values.Get("step"); s != "" {
		f.Step = &s
	}

	if k := values.Get("kind"); k != "" {
		f.Kind = &k
	}

	if s := values.Get("submitted_by"); s != "" {
		if id, err := uuid.Parse(s); err == nil {
			f.SubmittedBy = &id
		}
	}

	if c := values.Get("current_approver"); c != "" {
		if id, err := uuid.Parse(c); err == nil {
			f.CurrentApprover = &id
		}
	}

	if t := values.Get("title"); t != "" {
		f.Title = &t
	}

	return f
}

func scanDocument(s repository.Scanner) (Document, error) {
	var d Document
	err := s.Scan(
		&d.ID,
		&d.Kind,
		&d.Title,
		&d.Body,
		&d.ContentRef,
		&d.SubmittedBy,
		&d.Status,
		&d.Step,
		&d.Route,
		&d.CurrentApprover,
		&d.ApprovedBy,
		&d.ApprovedAt,
		&d.RejectionReason,
		&d.LastReminderSent,
		&d.ReminderCount,
		&d.ArtifactKey,
		&d.ArtifactSize,
		&d.ArtifactPages,
		&d.Version,
		&d.CreatedAt,
		&d.UpdatedAt,
	)
	return d, err
}
