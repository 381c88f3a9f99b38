// Package signatures implements the per-document signature ledger. A document
// that completed its route collects one signature per filled slot and becomes
// signed once every slot is covered.
package signatures

import (
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/countersign/internal/workflow"
)

// Signature is an immutable record of one approver signing a document.
// Approver name, role and designation are captured at signing time.
type Signature struct {
	ID           uuid.UUID     `json:"id"`
	DocumentID   uuid.UUID     `json:"document_id"`
	ApproverID   uuid.UUID     `json:"approver_id"`
	SlotRole     workflow.Role `json:"slot_role"`
	ApproverName string        `json:"approver_name"`
	ApproverRole string        `json:"approver_role"`
	Designation  string        `json:"designation"`
	Material     *string       `json:"material"`
	SignedAt     time.Time     `json:"signed_at"`
}

// Signer identifies who is signing, with the directory fields snapshotted
// onto the record.
type Signer struct {
	ID          uuid.UUID
	Name        string
	Role        string
	Designation string
	Admin       bool
}

// SignCommand carries a signing decision computed against Snapshot.
// Material is the blob key of the resolved signature image, or nil to render
// the signer's name in cursive.
type SignCommand struct {
	DocumentID uuid.UUID
	Snapshot   workflow.Snapshot
	Signer     Signer
	Material   *string
	SignedAt   time.Time
}

// SignResult reports the recorded signature and the ledger totals after it.
type SignResult struct {
	Signature   Signature       `json:"signature"`
	Count       int             `json:"count"`
	Required    int             `json:"required"`
	FullySigned bool            `json:"fully_signed"`
	Status      workflow.Status `json:"status"`
	Version     int             `json:"version"`
}
