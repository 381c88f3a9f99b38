package users

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/JaimeStill/countersign/internal/workflow"
	"github.com/JaimeStill/countersign/pkg/pagination"
	"github.com/JaimeStill/countersign/pkg/query"
	"github.com/JaimeStill/countersign/pkg/repository"
	"github.com/JaimeStill/countersign/pkg/storage"
)

const returning = "RETURNING id, name, email, role, designation, is_admin, signature_key, created_at, updated_at"

type repo struct {
	db         *sql.DB
	storage    storage.System
	logger     *slog.Logger
	pagination pagination.Config
}

// New creates a user repository implementing the System interface.
func New(
	db *sql.DB,
	store storage.System,
	logger *slog.Logger,
	pagination pagination.Config,
) System {
	return &repo{
		db:         db,
		storage:    store,
		logger:     logger.With("system", "users"),
		pagination: pagination,
	}
}

func (r *repo) Handler(maxSignatureSize int64) *Handler {
	return NewHandler(r, r.logger, r.pagination, maxSignatureSize)
}

func (r *repo) List(
	ctx context.Context,
	page pagination.PageRequest,
	filters Filters,
) (*pagination.PageResult[User], error) {
	page.Normalize(r.pagination)

	qb := query.
		NewBuilder(projection, defaultSort).
		WhereSearch(page.Search, "Name", "Email", "Designation")

	filters.Apply(qb)

	if len(page.Sort) > 0 {
		qb.OrderByFields(page.Sort)
	}

	countSQL, countArgs := qb.BuildCount()
	total, err := repository.QueryCount(ctx, r.db, countSQL, countArgs)
	if err != nil {
		return nil, fmt.Errorf("count users: %w", err)
	}

	pageSQL, pageArgs := qb.BuildPage(page.Page, page.PageSize)
	users, err := repository.QueryMany(ctx, r.db, pageSQL, pageArgs, scanUser)
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}

	result := pagination.NewPageResult(users, total, page.Page, page.PageSize)
	return &result, nil
}

func (r *repo) Find(ctx context.Context, id uuid.UUID) (*User, error) {
	q, args := query.NewBuilder(projection).BuildSingle("ID", id)

	u, err := repository.QueryOne(ctx, r.db, q, args, scanUser)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return &u, nil
}

func (r *repo) Actor(ctx context.Context, id uuid.UUID) (workflow.Actor, error) {
	u, err := r.Find(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return workflow.Actor{}, fmt.Errorf("%w: unknown actor %s", workflow.ErrUnauthorized, id)
	}
	if err != nil {
		return workflow.Actor{}, err
	}
	return u.Actor(), nil
}

func (r *repo) Create(ctx context.Context, cmd CreateCommand) (*User, error) {
	if err := cmd.Normalize(); err != nil {
		return nil, err
	}

	q := `
		INSERT INTO users(id, name, email, role, designation, is_admin)
		VALUES ($1, $2, $3, $4, $5, $6)
		` + returning

	args := []any{uuid.New(), cmd.Name, cmd.Email, cmd.Role, cmd.Designation, cmd.IsAdmin}

	u, err := repository.QueryOne(ctx, r.db, q, args, scanUser)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info("user created", "id", u.ID, "role", u.Role, "admin", u.IsAdmin)
	return &u, nil
}

func (r *repo) SetSignature(ctx context.Context, id uuid.UUID, data []byte) (*User, error) {
	contentType, err := SignatureContentType(data)
	if err != nil {
		return nil, err
	}

	if _, err := r.Find(ctx, id); err != nil {
		return nil, err
	}

	key := ProfileSignatureKey(id)
	if err := r.storage.Upload(ctx, key, bytes.NewReader(data), contentType); err != nil {
		return nil, fmt.Errorf("upload signature: %w", err)
	}

	u, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (User, error) {
		return repository.QueryOne(ctx, tx,
			"UPDATE users SET signature_key = $2, updated_at = NOW() WHERE id = $1 "+returning,
			[]any{id, key},
			scanUser,
		)
	})
	if err != nil {
		if delErr := r.storage.Delete(ctx, key); delErr != nil {
			r.logger.Warn("compensating blob delete failed", "key", key, "error", delErr)
		}
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info("signature on file updated", "id", id, "content_type", contentType)
	return &u, nil
}

func (r *repo) ClearSignature(ctx context.Context, id uuid.UUID) error {
	u, err := r.Find(ctx, id)
	if err != nil {
		return err
	}
	if u.SignatureKey == nil {
		return nil
	}

	if err := repository.ExecExpectOne(
		ctx, r.db,
		"UPDATE users SET signature_key = NULL, updated_at = NOW() WHERE id = $1",
		id,
	); err != nil {
		return repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	if delErr := r.storage.Delete(ctx, *u.SignatureKey); delErr != nil && !errors.Is(delErr, storage.ErrNotFound) {
		r.logger.Warn("blob delete failed after signature clear", "key", *u.SignatureKey, "error", delErr)
	}

	r.logger.Info("signature on file cleared", "id", id)
	return nil
}

func (r *repo) Signature(ctx context.Context, id uuid.UUID) (*storage.Blob, error) {
	u, err := r.Find(ctx, id)
	if err != nil {
		return nil, err
	}
	if u.SignatureKey == nil {
		return nil, fmt.Errorf("signature on file: %w", ErrNotFound)
	}

	blob, err := r.storage.Download(ctx, *u.SignatureKey)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("signature on file: %w", ErrNotFound)
	}
	return blob, err
}

// ProfileSignatureKey is the blob key of a user's signature on file.
func ProfileSignatureKey(id uuid.UUID) string {
	return fmt.Sprintf("signatures/profiles/%s", id)
}

// SignatureContentType sniffs data and accepts only PNG and JPEG images.
func SignatureContentType(data []byte) (string, error) {
	if len(data) == 0 {
		return "", ErrInvalidSignature
	}
	switch ct := http.DetectContentType(data); ct {
	case "image/png", "image/jpeg":
		return ct, nil
	default:
		return "", ErrInvalidSignature
	}
}
