package signatures

import (
	"github.com/JaimeStill/countersign/pkg/query"
	"github.com/JaimeStill/countersign/pkg/repository"
)

var projection = query.
	NewProjectionMap("public", "signatures", "s").
	Project("id", "ID").
	Project("document_id", "DocumentID").
	Project("approver_id", "ApproverID").
	Project("slot_role", "SlotRole").
	Project("approver_name", "ApproverName").
	Project("approver_role", "ApproverRole").
	Project("designation", "Designation").
	Project("material", "Material").
	Project("signed_at", "SignedAt")

var chronological = query.SortField{Field: "SignedAt"}

func scanSignature(s repository.Scanner) (Signature, error) {
	var sig Signature
	err := s.Scan(
		&sig.ID,
		&sig.DocumentID,
		&sig.ApproverID,
		&sig.SlotRole,
		&sig.ApproverName,
		&sig.ApproverRole,
		&sig.Designation,
		&sig.Material,
		&sig.SignedAt,
	)
	return sig, err
}
