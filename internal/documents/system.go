package documents

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/countersign/internal/workflow"
	"github.com/JaimeStill/countersign/pkg/pagination"
	"github.com/JaimeStill/countersign/pkg/storage"
)

// System defines the public contract for document domain operations.
type System interface {
	Handler(maxBodySize int64) *Handler

	List(
		ctx context.Context,
		page pagination.PageRequest,
		filters Filters,
	) (*pagination.PageResult[Document], error)

	Find(ctx context.Context, id uuid.UUID) (*Document, error)
	Create(ctx context.Context, cmd CreateCommand) (*Document, error)
	Submit(ctx context.Context, id, actorID uuid.UUID) (*Document, error)
	// Delete removes a draft. Only the owner or an administrator may delete.
	Delete(ctx context.Context, id, actorID uuid.UUID) error

	// Transition writes t if the stored version still equals version.
	// A stale version returns workflow.ErrConflict.
	Transition(ctx context.Context, id uuid.UUID, version int, t workflow.Transition) (*Document, error)
	// MarkReminded records a reminder sent at at, guarded like Transition.
	MarkReminded(ctx context.Context, id uuid.UUID, version int, at time.Time) (*Document, error)
	// AttachArtifact records the rendered artifact descriptor. It does not
	// bump the workflow version.
	AttachArtifact(ctx context.Context, id uuid.UUID, a Artifact) (*Document, error)
	// Artifact opens the rendered artifact. The caller must close Blob.Body.
	Artifact(ctx context.Context, id uuid.UUID) (*storage.Blob, error)
}
