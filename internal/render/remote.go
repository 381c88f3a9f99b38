package render

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"time"

	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/JaimeStill/countersign/pkg/formatting"
	"github.com/JaimeStill/countersign/pkg/storage"
)

const maxArtifactSize = 64 << 20

type remoteSigner struct {
	Signer
	// Image is the base64 encoded signature image, when one is on file.
	Image string `json:"image,omitempty"`
}

type remoteRequest struct {
	Request
	Signers []remoteSigner `json:"signers"`
}

// Remote calls an HTTP rendering service. The service either streams the PDF
// back, which Remote stores, or answers with a JSON artifact descriptor for a
// rendering it stored itself.
type Remote struct {
	url    string
	client *http.Client
	store  storage.System
}

// NewRemote creates a Remote renderer posting to url.
func NewRemote(url string, timeout time.Duration, store storage.System) *Remote {
	return &Remote{
		url:    url,
		client: &http.Client{Timeout: timeout},
		store:  store,
	}
}

func (r *Remote) Render(ctx context.Context, req Request) (*Artifact, error) {
	payload, err := r.payload(ctx, req)
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode render request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build render request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/pdf, application/json")

	resp, err := r.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("render %s: %w", req.DocumentID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("render %s: unexpected status %s", req.DocumentID, resp.Status)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxArtifactSize+1))
	if err != nil {
		return nil, fmt.Errorf("read render response: %w", err)
	}
	if len(data) > maxArtifactSize {
		return nil, fmt.Errorf("render %s: artifact exceeds %s", req.DocumentID, formatting.FormatBytes(maxArtifactSize, 0))
	}

	mediaType, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	switch mediaType {
	case "application/pdf":
		return r.save(ctx, req, data)
	case "application/json":
		artifact, err := formatting.ParseJSON[Artifact](data)
		if err != nil {
			return nil, err
		}
		if artifact.Key == "" {
			return nil, fmt.Errorf("render %s: descriptor without key", req.DocumentID)
		}
		return &artifact, nil
	default:
		return nil, fmt.Errorf("render %s: unsupported content type %q", req.DocumentID, mediaType)
	}
}

func (r *Remote) payload(ctx context.Context, req Request) (remoteRequest, error) {
	out := remoteRequest{Request: req, Signers: make([]remoteSigner, len(req.Signers))}

	for i, s := range req.Signers {
		out.Signers[i] = remoteSigner{Signer: s}
		if s.SignatureKey == nil {
			continue
		}

		image, err := r.image(ctx, *s.SignatureKey)
		if err != nil {
			return remoteRequest{}, fmt.Errorf("load signature for %s: %w", s.Name, err)
		}
		out.Signers[i].Image = image
	}

	return out, nil
}

func (r *Remote) image(ctx context.Context, key string) (string, error) {
	blob, err := r.store.Download(ctx, key)
	if err != nil {
		return "", err
	}
	defer blob.Body.Close()

	data, err := io.ReadAll(blob.Body)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

func (r *Remote) save(ctx context.Context, req Request, data []byte) (*Artifact, error) {
	key := ArtifactKey(req.DocumentID, ".pdf")
	if err := r.store.Upload(ctx, key, bytes.NewReader(data), "application/pdf"); err != nil {
		return nil, fmt.Errorf("store artifact: %w", err)
	}

	artifact := &Artifact{
		Key:         key,
		Size:        int64(len(data)),
		ContentType: "application/pdf",
	}
	if count, err := api.PageCount(bytes.NewReader(data), nil); err == nil {
		artifact.Pages = &count
	}
	return artifact, nil
}
