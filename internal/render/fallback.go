package render

import (
	"context"
	"fmt"
	"strings"

	"github.com/JaimeStill/countersign/pkg/storage"
)

const textContentType = "text/plain; charset=utf-8"

// Fallback renders a plain-text artifact: the title, the content, then one
// signature block per signer. Signers without an image on file sign as "/s/ Name".
type Fallback struct {
	store storage.System
}

// NewFallback creates a Fallback that writes artifacts to store.
func NewFallback(store storage.System) *Fallback {
	return &Fallback{store: store}
}

func (f *Fallback) Render(ctx context.Context, req Request) (*Artifact, error) {
	text := Text(req)
	key := ArtifactKey(req.DocumentID, ".txt")

	if err := f.store.Upload(ctx, key, strings.NewReader(text), textContentType); err != nil {
		return nil, fmt.Errorf("store fallback artifact: %w", err)
	}

	return &Artifact{
		Key:         key,
		Size:        int64(len(text)),
		ContentType: textContentType,
	}, nil
}

// Text lays out req as plain text.
func Text(req Request) string {
	var b strings.Builder

	if req.Title != "" {
		b.WriteString(req.Title)
		b.WriteString("\n")
		b.WriteString(strings.Repeat("=", len([]rune(req.Title))))
		b.WriteString("\n\n")
	}

	b.WriteString(strings.TrimSpace(req.Content))
	b.WriteString("\n")

	for _, s := range req.Signers {
		b.WriteString("\n")
		if s.SignatureKey != nil {
			b.WriteString("[signature on file]\n")
		} else {
			fmt.Fprintf(&b, "/s/ %s\n", s.Name)
		}
		b.WriteString(s.Name)
		b.WriteString("\n")
		if s.Designation != "" {
			fmt.Fprintf(&b, "%s, %s\n", s.Role, s.Designation)
		} else {
			fmt.Fprintf(&b, "%s\n", s.Role)
		}
		fmt.Fprintf(&b, "Date: %s\n", s.Date.Format("2006-01-02"))
	}

	return b.String()
}
