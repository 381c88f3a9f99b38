package users

import (
	"context"

	"github.com/google/uuid"

	"github.com/JaimeStill/countersign/internal/workflow"
	"github.com/JaimeStill/countersign/pkg/pagination"
	"github.com/JaimeStill/countersign/pkg/storage"
)

// System defines the user directory operations.
type System interface {
	Handler(maxSignatureSize int64) *Handler

	List(
		ctx context.Context,
		page pagination.PageRequest,
		filters Filters,
	) (*pagination.PageResult[User], error)

	Find(ctx context.Context, id uuid.UUID) (*User, error)
	// Actor resolves id to a workflow actor. Unknown users are unauthorized.
	Actor(ctx context.Context, id uuid.UUID) (workflow.Actor, error)
	Create(ctx context.Context, cmd CreateCommand) (*User, error)

	// SetSignature stores a PNG or JPEG image as the user's signature on file.
	SetSignature(ctx context.Context, id uuid.UUID, data []byte) (*User, error)
	ClearSignature(ctx context.Context, id uuid.UUID) error
	// Signature opens the user's signature image. The caller must close Blob.Body.
	Signature(ctx context.Context, id uuid.UUID) (*storage.Blob, error)
}
