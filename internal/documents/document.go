// Package documents implements the workflowed entity: documents and generated
// letters routed through an approval chain. Workflow writes are guarded by a
// version token so a decision computed from a stale read never lands.
package documents

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/JaimeStill/countersign/internal/workflow"
	"github.com/JaimeStill/countersign/pkg/sanitize"
)

// Document kinds. Both follow the same workflow.
const (
	KindDocument = "document"
	KindLetter   = "letter"
)

const maxTitleLength = 200

// Document is a routed document with its workflow and reminder state.
type Document struct {
	ID               uuid.UUID       `json:"id"`
	Kind             string          `json:"kind"`
	Title            string          `json:"title"`
	Body             string          `json:"body"`
	ContentRef       *string         `json:"content_ref"`
	SubmittedBy      uuid.UUID       `json:"submitted_by"`
	Status           workflow.Status `json:"status"`
	Step             workflow.Step   `json:"step"`
	Route            workflow.Route  `json:"route"`
	CurrentApprover  *uuid.UUID      `json:"current_approver"`
	ApprovedBy       *uuid.UUID      `json:"approved_by"`
	ApprovedAt       *time.Time      `json:"approved_at"`
	RejectionReason  *string         `json:"rejection_reason"`
	LastReminderSent *time.Time      `json:"last_reminder_sent"`
	ReminderCount    int             `json:"reminder_count"`
	ArtifactKey      *string         `json:"artifact_key"`
	ArtifactSize     *int64          `json:"artifact_size"`
	ArtifactPages    *int            `json:"artifact_pages"`
	Version          int             `json:"version"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// Snapshot returns the workflow view of the document at its current version.
func (d *Document) Snapshot() workflow.Snapshot {
	return workflow.Snapshot{
		Owner:           d.SubmittedBy,
		Status:          d.Status,
		Step:            d.Step,
		Route:           d.Route,
		CurrentApprover: d.CurrentApprover,
		Version:         d.Version,
	}
}

// Artifact describes a rendered output stored in blob storage.
type Artifact struct {
	Key   string `json:"key"`
	Size  int64  `json:"size"`
	Pages *int   `json:"pages,omitempty"`
}

// CreateCommand carries the fields for a new document. It enters pending at
// the first filled slot unless Draft is set.
type CreateCommand struct {
	Kind        string               `json:"kind"`
	Title       string               `json:"title"`
	Body        string               `json:"body"`
	ContentRef  *string              `json:"content_ref,omitempty"`
	Approvers   workflow.Assignments `json:"approvers"`
	Draft       bool                 `json:"draft"`
	SubmittedBy uuid.UUID            `json:"-"`
}

// Normalize sanitizes free text and validates the command, returning the route.
func (c *CreateCommand) Normalize() (workflow.Route, error) {
	c.Kind = strings.ToLower(strings.TrimSpace(c.Kind))
	if c.Kind == "" {
		c.Kind = KindDocument
	}
	c.Title = sanitize.Text(c.Title)
	c.Body = sanitize.Text(c.Body)
	c.ContentRef = sanitize.OptionalText(c.ContentRef)

	switch {
	case !slices.Contains([]string{KindDocument, KindLetter}, c.Kind):
		return nil, workflow.Validation("kind", "must be document or letter")
	case c.Title == "":
		return nil, workflow.Validation("title", "is required")
	case utf8.RuneCountInString(c.Title) > maxTitleLength:
		return nil, workflow.Validation("title", "is too long")
	case c.SubmittedBy == uuid.Nil:
		return nil, workflow.Validation("submitted_by", "is required")
	}

	route, err := c.Approvers.Route()
	if err != nil {
		return nil, err
	}
	for _, slot := range route {
		if slot.ApproverID == c.SubmittedBy {
			return nil, workflow.Validation("approvers", "owner cannot approve their own document")
		}
	}
	return route, nil
}

// Directory resolves caller identities for ownership checks.
type Directory interface {
	Actor(ctx context.Context, id uuid.UUID) (workflow.Actor, error)
}

// ResolveApprovers confirms every slot in route names a known user.
func ResolveApprovers(ctx context.Context, dir Directory, route workflow.Route) error {
	for _, slot := range route {
		_, err := dir.Actor(ctx, slot.ApproverID)
		if errors.Is(err, workflow.ErrUnauthorized) {
			return workflow.Validation("approvers", fmt.Sprintf("unknown %s %s", slot.Role, slot.ApproverID))
		}
		if err != nil {
			return err
		}
	}
	return nil
}
