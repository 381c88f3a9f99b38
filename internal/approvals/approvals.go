// Package approvals orchestrates the approval workflow. Each operation loads
// the document and the acting user, asks the pure workflow, ledger and
// throttle packages for a decision, persists it with a version-guarded write,
// records the audit entry, and hands notification and rendering to
// collaborators in the background once the write has committed.
package approvals

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/countersign/internal/audit"
	"github.com/JaimeStill/countersign/internal/documents"
	"github.com/JaimeStill/countersign/internal/notify"
	"github.com/JaimeStill/countersign/internal/render"
	"github.com/JaimeStill/countersign/internal/signatures"
	"github.com/JaimeStill/countersign/internal/users"
	"github.com/JaimeStill/countersign/internal/workflow"
	"github.com/JaimeStill/countersign/pkg/lifecycle"
	"github.com/JaimeStill/countersign/pkg/pagination"
	"github.com/JaimeStill/countersign/pkg/storage"
)

// Runtime bundles the systems and collaborators the orchestrator composes.
// Now defaults to time.Now when nil.
type Runtime struct {
	Documents   documents.System
	Users       users.System
	Signatures  signatures.System
	Audit       audit.System
	Storage     storage.System
	Renderer    render.Service
	Broadcaster notify.Broadcaster
	Logger      *slog.Logger
	Pagination  pagination.Config
	Config      Config
	Now         func() time.Time
}

// ApproveCommand carries an optional approval comment.
type ApproveCommand struct {
	Comment *string `json:"comment,omitempty"`
}

// RejectCommand carries the mandatory rejection reason.
type RejectCommand struct {
	Reason string `json:"reason"`
}

// SignCommand optionally carries a base64 encoded PNG or JPEG signature image,
// used when the signer has no signature on file.
type SignCommand struct {
	Signature   string `json:"signature,omitempty"`
	ContentType string `json:"content_type,omitempty"`
}

// ReminderCommand carries an optional note for the approver.
type ReminderCommand struct {
	Message *string `json:"message,omitempty"`
}

// ApproveResult reports the document after approval and where it goes next.
// NextApprover is nil when the approval completed the route.
type ApproveResult struct {
	Document     *documents.Document `json:"document"`
	NextStep     workflow.Step       `json:"next_step"`
	NextApprover *uuid.UUID          `json:"next_approver"`
}

// SignResult reports the recorded signature and the ledger totals.
type SignResult struct {
	Document    *documents.Document  `json:"document"`
	Signature   signatures.Signature `json:"signature"`
	Count       int                  `json:"count"`
	Required    int                  `json:"required"`
	FullySigned bool                 `json:"fully_signed"`
}

// ReminderResult reports who was reminded and when the next reminder is allowed.
type ReminderResult struct {
	Recipient     uuid.UUID     `json:"recipient"`
	RecipientRole workflow.Role `json:"recipient_role"`
	SentAt        time.Time     `json:"sent_at"`
	NextAllowedAt time.Time     `json:"next_allowed_at"`
	ReminderCount int           `json:"reminder_count"`
}

// System defines the approval workflow operations.
type System interface {
	Handler(maxBodySize int64) *Handler

	Submit(ctx context.Context, documentID, actorID uuid.UUID) (*documents.Document, error)
	Approve(ctx context.Context, documentID, actorID uuid.UUID, cmd ApproveCommand) (*ApproveResult, error)
	Reject(ctx context.Context, documentID, actorID uuid.UUID, cmd RejectCommand) (*documents.Document, error)
	Sign(ctx context.Context, documentID, actorID uuid.UUID, cmd SignCommand) (*SignResult, error)
	SendReminder(ctx context.Context, documentID, requesterID uuid.UUID, cmd ReminderCommand) (*ReminderResult, error)

	ApproverHistory(
		ctx context.Context,
		approverID uuid.UUID,
		page pagination.PageRequest,
		filters audit.Filters,
	) (*pagination.PageResult[audit.Record], error)
	// DocumentHistory and Signatures are limited to the document's owner,
	// its route approvers and admins.
	DocumentHistory(ctx context.Context, documentID, actorID uuid.UUID) ([]audit.Record, error)
	Signatures(ctx context.Context, documentID, actorID uuid.UUID) ([]signatures.Signature, error)

	// Start registers a shutdown hook that drains background dispatches.
	Start(lc *lifecycle.Coordinator)
	// Wait blocks until every background dispatch has finished.
	Wait()
}
