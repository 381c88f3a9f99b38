package audit

import (
	"github.com/JaimeStill/countersign/pkg/query"
	"github.com/JaimeStill/countersign/pkg/repository"
)

var projection = query.
	NewProjectionMap("public", "approval_audit", "a").
	Project("id", "ID").
	Project("document_id", "DocumentID").
	Project("document_title", "DocumentTitle").
	Project("approver_id", "ApproverID").
	Project("approver_name", "ApproverName").
	Project("approver_role", "ApproverRole").
	Project("approver_designation", "ApproverDesignation").
	Project("student_id", "StudentID").
	Project("student_name", "StudentName").
	Project("action", "Action").
	Project("comment", "Comment").
	Project("status", "Status").
	Project("step_reached", "StepReached").
	Project("is_final_approval", "IsFinalApproval").
	Project("approved_at", "ApprovedAt").
	Project("signed_at", "SignedAt").
	Project("created_at", "CreatedAt")

var defaultSort = query.SortField{
	Field:      "ApprovedAt",
	Descending: true,
}

var chronological = []query.SortField{
	{Field: "ApprovedAt"},
	{Field: "CreatedAt"},
}

// Apply adds filter conditions to a query builder.
func (f Filters) Apply(b *query.Builder) *query.Builder {
	return b.
		WhereEquals("Action", f.Action).
		WhereEquals("Status", f.Status).
		WhereEquals("DocumentID", f.DocumentID).
		WhereCompare("ApprovedAt", ">=", f.Since).
		WhereCompare("ApprovedAt", "<=", f.Until)
}

func scanRecord(s repository.Scanner) (Record, error) {
	var r Record
	err := s.Scan(
		&r.ID,
		&r.DocumentID,
		&r.DocumentTitle,
		&r.ApproverID,
		&r.ApproverName,
		&r.ApproverRole,
		&r.ApproverDesignation,
		&r.StudentID,
		&r.StudentName,
		&r.Action,
		&r.Comment,
		&r.Status,
		&r.StepReached,
		&r.IsFinalApproval,
		&r.ApprovedAt,
		&r.SignedAt,
		&r.CreatedAt,
	)
	return r, err
}
