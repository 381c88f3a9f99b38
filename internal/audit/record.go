// Package audit implements the append-only approval ledger. Records are
// snapshots taken at the time of an approve, reject or sign action and are
// never updated or deleted.
package audit

import (
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/countersign/internal/workflow"
)

// Action is the kind of workflow action a record describes.
type Action string

const (
	ActionApproved Action = "approved"
	ActionRejected Action = "rejected"
	ActionSigned   Action = "signed"
)

// Record is one ledger entry. Names, roles and titles are denormalized so the
// history stays readable after users or documents change.
type Record struct {
	ID                  uuid.UUID       `json:"id"`
	DocumentID          uuid.UUID       `json:"document_id"`
	DocumentTitle       string          `json:"document_title"`
	ApproverID          uuid.UUID       `json:"approver_id"`
	ApproverName        string          `json:"approver_name"`
	ApproverRole        string          `json:"approver_role"`
	ApproverDesignation string          `json:"approver_designation"`
	StudentID           uuid.UUID       `json:"student_id"`
	StudentName         string          `json:"student_name"`
	Action              Action          `json:"action"`
	Comment             *string         `json:"comment"`
	Status              workflow.Status `json:"status"`
	StepReached         workflow.Step   `json:"step_reached"`
	IsFinalApproval     bool            `json:"is_final_approval"`
	ApprovedAt          time.Time       `json:"approved_at"`
	SignedAt            *time.Time      `json:"signed_at"`
	CreatedAt           time.Time       `json:"created_at"`
}

// stamp assigns the identity and creation time of a new record.
func stamp(rec Record, now time.Time) Record {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	return rec
}
