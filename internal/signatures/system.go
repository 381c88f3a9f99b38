package signatures

import (
	"context"

	"github.com/google/uuid"
)

// System defines the signature ledger operations.
type System interface {
	// Sign records a signature and updates the document status in one
	// transaction, guarded by cmd.Snapshot.Version. A stale version or a
	// concurrent signature for the same slot returns workflow.ErrConflict.
	Sign(ctx context.Context, cmd SignCommand) (*SignResult, error)
	ListByDocument(ctx context.Context, documentID uuid.UUID) ([]Signature, error)
}
