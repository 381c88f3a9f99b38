// Package render produces the final signed artifact of a fully signed
// document. A remote rendering service produces PDFs; when it is unavailable
// the plain-text fallback keeps the workflow complete.
package render

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/countersign/pkg/storage"
)

// Signer is one signature block on the rendered artifact.
type Signer struct {
	Name        string    `json:"name"`
	Role        string    `json:"role"`
	Designation string    `json:"designation,omitempty"`
	Date        time.Time `json:"date"`
	// SignatureKey references the signature image in blob storage. Nil renders
	// the name as a typed signature.
	SignatureKey *string `json:"signature_key,omitempty"`
}

// Request carries everything a renderer needs to lay out the artifact.
type Request struct {
	DocumentID uuid.UUID `json:"document_id"`
	Title      string    `json:"title"`
	Content    string    `json:"content"`
	Signers    []Signer  `json:"signers"`
}

// Artifact describes a stored rendering.
type Artifact struct {
	Key         string `json:"key"`
	Size        int64  `json:"size"`
	Pages       *int   `json:"pages,omitempty"`
	ContentType string `json:"content_type"`
}

// Service renders signed documents.
type Service interface {
	Render(ctx context.Context, req Request) (*Artifact, error)
}

// ArtifactKey returns the blob key for a document's rendering with the given extension.
func ArtifactKey(documentID uuid.UUID, ext string) string {
	return fmt.Sprintf("artifacts/%s%s", documentID, ext)
}

// New builds the Service selected by cfg.Type. The remote renderer is always
// backed by the plain-text fallback.
func New(cfg *Config, store storage.System, logger *slog.Logger) Service {
	logger = logger.With("system", "render", "type", cfg.Type)
	fallback := NewFallback(store)

	if cfg.Type == TypeText {
		return fallback
	}
	return WithFallback(NewRemote(cfg.URL, cfg.TimeoutDuration(), store), fallback, logger)
}

type resilient struct {
	primary  Service
	fallback Service
	logger   *slog.Logger
}

// WithFallback returns a Service that uses fallback whenever primary fails.
func WithFallback(primary, fallback Service, logger *slog.Logger) Service {
	return &resilient{primary: primary, fallback: fallback, logger: logger}
}

func (r *resilient) Render(ctx context.Context, req Request) (*Artifact, error) {
	artifact, err := r.primary.Render(ctx, req)
	if err == nil {
		return artifact, nil
	}

	r.logger.Warn("render failed, using fallback", "document_id", req.DocumentID, "error", err)
	return r.fallback.Render(ctx, req)
}
