package audit

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/countersign/pkg/pagination"
	"github.com/JaimeStill/countersign/pkg/query"
	"github.com/JaimeStill/countersign/pkg/repository"
)

type repo struct {
	db         *sql.DB
	logger     *slog.Logger
	pagination pagination.Config
}

// New creates a PostgreSQL-backed audit ledger.
func New(db *sql.DB, logger *slog.Logger, pagination pagination.Config) System {
	return &repo{
		db:         db,
		logger:     logger.With("system", "audit", "backend", BackendPostgres),
		pagination: pagination,
	}
}

func (r *repo) Record(ctx context.Context, rec Record) error {
	rec = stamp(rec, time.Now())

	err := repository.ExecExpectOne(ctx, r.db, `
		INSERT INTO approval_audit(
			id, document_id, document_title, approver_id, approver_name, approver_role,
			approver_designation, student_id, student_name, action, comment, status,
			step_reached, is_final_approval, approved_at, signed_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`,
		rec.ID,
		rec.DocumentID,
		rec.DocumentTitle,
		rec.ApproverID,
		rec.ApproverName,
		rec.ApproverRole,
		rec.ApproverDesignation,
		rec.StudentID,
		rec.StudentName,
		rec.Action,
		rec.Comment,
		rec.Status,
		rec.StepReached,
		rec.IsFinalApproval,
		rec.ApprovedAt,
		rec.SignedAt,
		rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert audit record: %w", err)
	}
	return nil
}

func (r *repo) ByApprover(
	ctx context.Context,
	approverID uuid.UUID,
	page pagination.PageRequest,
	filters Filters,
) (*pagination.PageResult[Record], error) {
	page.Normalize(r.pagination)

	qb := query.
		NewBuilder(projection, defaultSort).
		WhereEquals("ApproverID", approverID).
		WhereSearch(page.Search, "DocumentTitle", "StudentName", "Comment")

	filters.Apply(qb)

	if len(page.Sort) > 0 {
		qb.OrderByFields(page.Sort)
	}

	countSQL, countArgs := qb.BuildCount()
	total, err := repository.QueryCount(ctx, r.db, countSQL, countArgs)
	if err != nil {
		return nil, fmt.Errorf("count audit records: %w", err)
	}

	pageSQL, pageArgs := qb.BuildPage(page.Page, page.PageSize)
	records, err := repository.QueryMany(ctx, r.db, pageSQL, pageArgs, scanRecord)
	if err != nil {
		return nil, fmt.Errorf("query audit records: %w", err)
	}

	result := pagination.NewPageResult(records, total, page.Page, page.PageSize)
	return &result, nil
}

func (r *repo) ByDocument(ctx context.Context, documentID uuid.UUID) ([]Record, error) {
	q, args := query.
		NewBuilder(projection, chronological...).
		WhereEquals("DocumentID", documentID).
		Build()

	records, err := repository.QueryMany(ctx, r.db, q, args, scanRecord)
	if err != nil {
		return nil, fmt.Errorf("query document history: %w", err)
	}
	return records, nil
}
