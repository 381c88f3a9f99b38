package signatures

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/JaimeStill/countersign/internal/workflow"
	"github.com/JaimeStill/countersign/pkg/query"
	"github.com/JaimeStill/countersign/pkg/repository"
)

type repo struct {
	db     *sql.DB
	logger *slog.Logger
}

// New creates a PostgreSQL-backed signature ledger.
func New(db *sql.DB, logger *slog.Logger) System {
	return &repo{
		db:     db,
		logger: logger.With("system", "signatures"),
	}
}

func (r *repo) ListByDocument(ctx context.Context, documentID uuid.UUID) ([]Signature, error) {
	sigs, err := listByDocument(ctx, r.db, documentID)
	if err != nil {
		return nil, fmt.Errorf("query signatures: %w", err)
	}
	return sigs, nil
}

// Sign claims the document row first so concurrent signers serialize on it,
// then plans against the ledger as read inside the same transaction.
func (r *repo) Sign(ctx context.Context, cmd SignCommand) (*SignResult, error) {
	snap := cmd.Snapshot
	actor := workflow.Actor{ID: cmd.Signer.ID, Admin: cmd.Signer.Admin}

	result, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (SignResult, error) {
		if err := repository.ExecExpectOne(
			ctx, tx,
			`UPDATE documents SET version = version + 1, updated_at = NOW()
			WHERE id = $1 AND version = $2 AND status = $3`,
			cmd.DocumentID, snap.Version, snap.Status,
		); err != nil {
			return SignResult{}, err
		}

		existing, err := listByDocument(ctx, tx, cmd.DocumentID)
		if err != nil {
			return SignResult{}, err
		}

		slot, err := Plan(snap, actor, existing)
		if err != nil {
			return SignResult{}, err
		}

		sig, err := repository.QueryOne(ctx, tx, `
			INSERT INTO signatures(id, document_id, approver_id, slot_role, approver_name, approver_role, designation, material, signed_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			RETURNING id, document_id, approver_id, slot_role, approver_name, approver_role, designation, material, signed_at`,
			[]any{
				uuid.New(),
				cmd.DocumentID,
				cmd.Signer.ID,
				slot.Role,
				cmd.Signer.Name,
				cmd.Signer.Role,
				cmd.Signer.Designation,
				cmd.Material,
				cmd.SignedAt,
			},
			scanSignature,
		)
		if err != nil {
			return SignResult{}, err
		}

		count := len(existing) + 1
		status := StatusAfter(snap.Route, count)

		var version int
		err = tx.QueryRowContext(ctx,
			"UPDATE documents SET status = $2 WHERE id = $1 RETURNING version",
			cmd.DocumentID, status,
		).Scan(&version)
		if err != nil {
			return SignResult{}, err
		}

		return SignResult{
			Signature:   sig,
			Count:       count,
			Required:    len(snap.Route),
			FullySigned: FullySigned(snap.Route, count),
			Status:      status,
			Version:     version,
		}, nil
	})

	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows), repository.IsUniqueViolation(err, ""), repository.IsRetryable(err):
			return nil, fmt.Errorf("sign document %s: %w", cmd.DocumentID, workflow.ErrConflict)
		case errors.Is(err, workflow.ErrAlreadySigned),
			errors.Is(err, workflow.ErrInvalidState),
			errors.Is(err, workflow.ErrUnauthorized):
			return nil, err
		}
		return nil, fmt.Errorf("sign document %s: %w", cmd.DocumentID, err)
	}

	r.logger.Info(
		"document signed",
		"document_id", cmd.DocumentID,
		"approver_id", cmd.Signer.ID,
		"slot", result.Signature.SlotRole,
		"count", result.Count,
		"required", result.Required,
	)
	return &result, nil
}

func listByDocument(ctx context.Context, q repository.Querier, documentID uuid.UUID) ([]Signature, error) {
	stmt, args := query.
		NewBuilder(projection, chronological).
		WhereEquals("DocumentID", documentID).
		Build()
	return repository.QueryMany(ctx, q, stmt, args, scanSignature)
}
