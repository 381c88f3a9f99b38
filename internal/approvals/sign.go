package approvals

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/JaimeStill/countersign/internal/audit"
	"github.com/JaimeStill/countersign/internal/documents"
	"github.com/JaimeStill/countersign/internal/notify"
	"github.com/JaimeStill/countersign/internal/render"
	"github.com/JaimeStill/countersign/internal/signatures"
	"github.com/JaimeStill/countersign/internal/users"
	"github.com/JaimeStill/countersign/internal/workflow"
	"github.com/JaimeStill/countersign/pkg/formatting"
)

// MaterialKey is the blob key of a signature image supplied with a sign request.
func MaterialKey(documentID, approverID uuid.UUID) string {
	return fmt.Sprintf("signatures/%s/%s", documentID, approverID)
}

func (o *orchestrator) Sign(ctx context.Context, documentID, actorID uuid.UUID, cmd SignCommand) (*SignResult, error) {
	image, contentType, err := o.decodeImage(cmd)
	if err != nil {
		return nil, err
	}

	signer, err := o.load(ctx, documentID, actorID)
	if err != nil {
		return nil, err
	}

	if err := o.precheck(ctx, documentID, signer); err != nil {
		return nil, err
	}

	material, uploaded, err := o.resolveMaterial(ctx, documentID, signer, image, contentType)
	if err != nil {
		return nil, err
	}

	var (
		result *signatures.SignResult
		doc    *documents.Document
	)
	err = o.retry(ctx, "sign", documentID, func(current *documents.Document) error {
		res, err := o.rt.Signatures.Sign(ctx, signatures.SignCommand{
			DocumentID: current.ID,
			Snapshot:   current.Snapshot(),
			Signer: signatures.Signer{
				ID:          signer.ID,
				Name:        signer.Name,
				Role:        signer.Role,
				Designation: signer.Designation,
				Admin:       signer.IsAdmin,
			},
			Material: material,
			SignedAt: o.rt.Now(),
		})
		if err != nil {
			return err
		}
		result, doc = res, current
		return nil
	})
	if err != nil {
		if uploaded {
			if delErr := o.rt.Storage.Delete(context.WithoutCancel(ctx), *material); delErr != nil {
				o.logger.Error("signature cleanup failed", "key", *material, "error", delErr)
			}
		}
		return nil, err
	}

	// the ledger wrote status and version; reflect them without another read
	doc.Status = result.Status
	doc.Version = result.Version

	o.logger.Info(
		"signature accepted",
		"document_id", documentID,
		"approver_id", signer.ID,
		"fully_signed", result.FullySigned,
		"material", material != nil,
	)

	signedAt := result.Signature.SignedAt
	o.record(ctx, doc, signer, audit.ActionSigned, nil, signedAt, result.FullySigned, &signedAt)

	signed := notify.Event{
		Kind:       notify.KindSigned,
		DocumentID: documentID,
		Recipients: recipients(&doc.SubmittedBy),
		Payload: map[string]any{
			"title":     doc.Title,
			"signed_by": signer.Name,
			"count":     result.Count,
			"required":  result.Required,
		},
		OccurredAt: signedAt,
	}
	if result.FullySigned {
		o.finalize(ctx, *doc, signed)
	} else {
		o.broadcast(ctx, signed)
	}

	return &SignResult{
		Document:    doc,
		Signature:   result.Signature,
		Count:       result.Count,
		Required:    result.Required,
		FullySigned: result.FullySigned,
	}, nil
}

// precheck plans the signature before any material is uploaded so a request
// that cannot succeed leaves nothing behind.
func (o *orchestrator) precheck(ctx context.Context, documentID uuid.UUID, signer *users.User) error {
	doc, err := o.rt.Documents.Find(ctx, documentID)
	if err != nil {
		return err
	}

	existing, err := o.rt.Signatures.ListByDocument(ctx, documentID)
	if err != nil {
		return err
	}

	_, err = signatures.Plan(doc.Snapshot(), signer.Actor(), existing)
	return err
}

func (o *orchestrator) decodeImage(cmd SignCommand) ([]byte, string, error) {
	if cmd.Signature == "" {
		return nil, "", nil
	}

	data, err := base64.StdEncoding.DecodeString(cmd.Signature)
	if err != nil {
		return nil, "", workflow.Validation("signature", "must be base64 encoded")
	}

	if limit := o.rt.Config.MaxSignatureSizeBytes(); limit > 0 && int64(len(data)) > limit {
		return nil, "", workflow.Validation(
			"signature",
			fmt.Sprintf("exceeds %s", formatting.FormatBytes(limit, 0)),
		)
	}

	contentType, err := users.SignatureContentType(data)
	if err != nil {
		return nil, "", err
	}
	if cmd.ContentType != "" && cmd.ContentType != contentType {
		return nil, "", workflow.Validation("content_type", fmt.Sprintf("does not match image data (%s)", contentType))
	}
	return data, contentType, nil
}

// resolveMaterial picks the signature image: the signer's signature on file,
// then the image sent with the request, then none. It reports whether it
// uploaded a new blob so a failed signing can remove it.
func (o *orchestrator) resolveMaterial(
	ctx context.Context,
	documentID uuid.UUID,
	signer *users.User,
	image []byte,
	contentType string,
) (*string, bool, error) {
	if signer.SignatureKey != nil {
		return signer.SignatureKey, false, nil
	}
	if image == nil {
		return nil, false, nil
	}

	key := MaterialKey(documentID, signer.ID)
	if err := o.rt.Storage.Upload(ctx, key, bytes.NewReader(image), contentType); err != nil {
		return nil, false, fmt.Errorf("store signature: %w", err)
	}
	return &key, true, nil
}

// finalize announces the last signature while it renders the signed
// artifact, attaches it to the document and announces the completed document.
func (o *orchestrator) finalize(ctx context.Context, doc documents.Document, signed notify.Event) {
	o.dispatch(ctx, "finalize", doc.ID, func(ctx context.Context) error {
		var g errgroup.Group

		g.Go(func() error {
			return o.rt.Broadcaster.Broadcast(ctx, signed)
		})

		g.Go(func() error {
			artifact, err := o.renderArtifact(ctx, doc)
			if err != nil {
				return err
			}

			return o.rt.Broadcaster.Broadcast(ctx, notify.Event{
				Kind:       notify.KindFullySigned,
				DocumentID: doc.ID,
				Recipients: append(recipients(&doc.SubmittedBy), doc.Route.Approvers()...),
				Payload: map[string]any{
					"title":    doc.Title,
					"artifact": artifact.Key,
				},
				OccurredAt: o.rt.Now(),
			})
		})

		return g.Wait()
	})
}

func (o *orchestrator) renderArtifact(ctx context.Context, doc documents.Document) (*render.Artifact, error) {
	sigs, err := o.rt.Signatures.ListByDocument(ctx, doc.ID)
	if err != nil {
		return nil, fmt.Errorf("list signatures: %w", err)
	}

	artifact, err := o.rt.Renderer.Render(ctx, renderRequest(doc, sigs))
	if err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}

	if _, err := o.rt.Documents.AttachArtifact(ctx, doc.ID, documents.Artifact{
		Key:   artifact.Key,
		Size:  artifact.Size,
		Pages: artifact.Pages,
	}); err != nil {
		return nil, fmt.Errorf("attach artifact: %w", err)
	}

	o.logger.Info("artifact attached", "document_id", doc.ID, "key", artifact.Key, "size", artifact.Size)
	return artifact, nil
}

func renderRequest(doc documents.Document, sigs []signatures.Signature) render.Request {
	signers := make([]render.Signer, len(sigs))
	for i, s := range sigs {
		signers[i] = render.Signer{
			Name:         s.ApproverName,
			Role:         string(s.SlotRole),
			Designation:  s.Designation,
			Date:         s.SignedAt,
			SignatureKey: s.Material,
		}
	}

	return render.Request{
		DocumentID: doc.ID,
		Title:      doc.Title,
		Content:    doc.Body,
		Signers:    signers,
	}
}
