package documents

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/countersign/internal/workflow"
	"github.com/JaimeStill/countersign/pkg/pagination"
	"github.com/JaimeStill/countersign/pkg/query"
	"github.com/JaimeStill/countersign/pkg/repository"
	"github.com/JaimeStill/countersign/pkg/storage"
)

type repo struct {
	db         *sql.DB
	storage    storage.System
	directory  Directory
	logger     *slog.Logger
	pagination pagination.Config
}

// New creates a document repository implementing the System interface.
func New(
	db *sql.DB,
	store storage.System,
	directory Directory,
	logger *slog.Logger,
	pagination pagination.Config,
) System {
	return &repo{
		db:         db,
		storage:    store,
		directory:  directory,
		logger:     logger.With("system", "documents"),
		pagination: pagination,
	}
}

func (r *repo) Handler(maxBodySize int64) *Handler {
	return NewHandler(r, r.logger, r.pagination, maxBodySize)
}

func (r *repo) List(
	ctx context.Context,
	page pagination.PageRequest,
	filters Filters,
) (*pagination.PageResult[Document], error) {
	page.Normalize(r.pagination)

	qb := query.
		NewBuilder(projection, defaultSort).
		WhereSearch(page.Search, "Title", "Body")

	filters.Apply(qb)

	if len(page.Sort) > 0 {
		qb.OrderByFields(page.Sort)
	}

	countSQL, countArgs := qb.BuildCount()
	total, err := repository.QueryCount(ctx, r.db, countSQL, countArgs)
	if err != nil {
		return nil, fmt.Errorf("count documents: %w", err)
	}

	pageSQL, pageArgs := qb.BuildPage(page.Page, page.PageSize)
	docs, err := repository.QueryMany(ctx, r.db, pageSQL, pageArgs, scanDocument)
	if err != nil {
		return nil, fmt.Errorf("query documents: %w", err)
	}

	result := pagination.NewPageResult(docs, total, page.Page, page.PageSize)
	return &result, nil
}

func (r *repo) Find(ctx context.Context, id uuid.UUID) (*Document, error) {
	q, args := query.NewBuilder(projection).BuildSingle("ID", id)

	d, err := repository.QueryOne(ctx, r.db, q, args, scanDocument)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return &d, nil
}

func (r *repo) Create(ctx context.Context, cmd CreateCommand) (*Document, error) {
	route, err := cmd.Normalize()
	if err != nil {
		return nil, err
	}

	if _, err := r.directory.Actor(ctx, cmd.SubmittedBy); err != nil {
		return nil, err
	}
	if err := ResolveApprovers(ctx, r.directory, route); err != nil {
		return nil, err
	}

	start, err := workflow.Start(route, !cmd.Draft)
	if err != nil {
		return nil, err
	}

	q := `
		INSERT INTO documents(id, kind, title, body, content_ref, submitted_by, status, step, route, current_approver)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		` + returning

	args := []any{
		uuid.New(),
		cmd.Kind,
		cmd.Title,
		cmd.Body,
		cmd.ContentRef,
		cmd.SubmittedBy,
		start.Status,
		start.Step,
		route,
		start.NextApprover,
	}

	d, err := repository.QueryOne(ctx, r.db, q, args, scanDocument)
	if err != nil {
		if repository.IsForeignKeyViolation(err, "") {
			return nil, errUnknownUser
		}
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info("document created", "id", d.ID, "kind", d.Kind, "status", d.Status, "step", d.Step)
	return &d, nil
}

func (r *repo) Submit(ctx context.Context, id, actorID uuid.UUID) (*Document, error) {
	d, err := r.Find(ctx, id)
	if err != nil {
		return nil, err
	}

	actor, err := r.directory.Actor(ctx, actorID)
	if err != nil {
		return nil, err
	}

	t, err := workflow.Submit(d.Snapshot(), actor)
	if err != nil {
		return nil, err
	}

	return r.Transition(ctx, id, d.Version, t)
}

func (r *repo) Delete(ctx context.Context, id, actorID uuid.UUID) error {
	d, err := r.Find(ctx, id)
	if err != nil {
		return err
	}

	actor, err := r.directory.Actor(ctx, actorID)
	if err != nil {
		return err
	}

	if d.Status != workflow.StatusDraft {
		return fmt.Errorf("%w: only drafts can be deleted", workflow.ErrInvalidState)
	}
	if !actor.Admin && actor.ID != d.SubmittedBy {
		return fmt.Errorf("%w: only the owner may delete", workflow.ErrUnauthorized)
	}

	err = repository.ExecExpectOne(
		ctx, r.db,
		"DELETE FROM documents WHERE id = $1 AND version = $2 AND status = $3",
		id, d.Version, workflow.StatusDraft,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("delete document %s: %w", id, workflow.ErrConflict)
		}
		return err
	}

	r.logger.Info("document deleted", "id", id)
	return nil
}

func (r *repo) Transition(ctx context.Context, id uuid.UUID, version int, t workflow.Transition) (*Document, error) {
	q := `
		UPDATE documents SET
			status = $3,
			step = $4,
			current_approver = $5,
			approved_by = COALESCE($6, approved_by),
			approved_at = COALESCE($7, approved_at),
			rejection_reason = COALESCE($8, rejection_reason),
			version = version + 1,
			updated_at = NOW()
		WHERE id = $1 AND version = $2
		` + returning

	args := []any{id, version, t.Status, t.Step, t.NextApprover, t.ApprovedBy, t.ApprovedAt, t.RejectionReason}

	d, err := r.guarded(ctx, id, q, args)
	if err != nil {
		return nil, err
	}

	r.logger.Info(
		"document transitioned",
		"id", id,
		"status", d.Status,
		"step", d.Step,
		"version", d.Version,
	)
	return d, nil
}

func (r *repo) MarkReminded(ctx context.Context, id uuid.UUID, version int, at time.Time) (*Document, error) {
	q := `
		UPDATE documents SET
			last_reminder_sent = $3,
			reminder_count = reminder_count + 1,
			version = version + 1,
			updated_at = NOW()
		WHERE id = $1 AND version = $2
		` + returning

	return r.guarded(ctx, id, q, []any{id, version, at})
}

func (r *repo) AttachArtifact(ctx context.Context, id uuid.UUID, a Artifact) (*Document, error) {
	q := `
		UPDATE documents SET
			artifact_key = $2,
			artifact_size = $3,
			artifact_pages = $4,
			updated_at = NOW()
		WHERE id = $1
		` + returning

	d, err := repository.QueryOne(ctx, r.db, q, []any{id, a.Key, a.Size, a.Pages}, scanDocument)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info("artifact attached", "id", id, "key", a.Key, "size", a.Size)
	return &d, nil
}

func (r *repo) Artifact(ctx context.Context, id uuid.UUID) (*storage.Blob, error) {
	d, err := r.Find(ctx, id)
	if err != nil {
		return nil, err
	}
	if d.ArtifactKey == nil {
		return nil, ErrNoArtifact
	}

	blob, err := r.storage.Download(ctx, *d.ArtifactKey)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrNoArtifact
	}
	return blob, err
}

// guarded runs a version-checked UPDATE ... RETURNING. No row means the
// version moved or the document is gone.
func (r *repo) guarded(ctx context.Context, id uuid.UUID, q string, args []any) (*Document, error) {
	d, err := repository.QueryOne(ctx, r.db, q, args, scanDocument)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || repository.IsRetryable(err) {
			return nil, fmt.Errorf("document %s: %w", id, workflow.ErrConflict)
		}
		if repository.IsForeignKeyViolation(err, "") {
			return nil, errUnknownUser
		}
		return nil, err
	}
	return &d, nil
}
