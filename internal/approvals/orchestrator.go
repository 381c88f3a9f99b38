package approvals

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/JaimeStill/countersign/internal/audit"
	"github.com/JaimeStill/countersign/internal/documents"
	"github.com/JaimeStill/countersign/internal/notify"
	"github.com/JaimeStill/countersign/internal/reminders"
	"github.com/JaimeStill/countersign/internal/signatures"
	"github.com/JaimeStill/countersign/internal/users"
	"github.com/JaimeStill/countersign/internal/workflow"
	"github.com/JaimeStill/countersign/pkg/lifecycle"
	"github.com/JaimeStill/countersign/pkg/pagination"
	"github.com/JaimeStill/countersign/pkg/sanitize"
)

type orchestrator struct {
	rt       Runtime
	audit    *audit.Recorder
	throttle reminders.Throttle
	logger   *slog.Logger
	inflight sync.WaitGroup
}

// New creates the approval orchestrator.
func New(rt Runtime) System {
	if rt.Now == nil {
		rt.Now = time.Now
	}
	if rt.Broadcaster == nil {
		rt.Broadcaster = notify.Noop{}
	}

	logger := rt.Logger.With("system", "approvals")
	throttle := reminders.NewThrottle(rt.Config.ReminderWindowDuration())
	throttle.Now = rt.Now

	return &orchestrator{
		rt:       rt,
		audit:    audit.NewRecorder(rt.Audit, rt.Logger),
		throttle: throttle,
		logger:   logger,
	}
}

func (o *orchestrator) Handler(maxBodySize int64) *Handler {
	return NewHandler(o, o.rt.Users, o.logger, o.rt.Pagination, maxBodySize)
}

func (o *orchestrator) Start(lc *lifecycle.Coordinator) {
	lc.OnShutdown(func() {
		<-lc.Context().Done()
		o.logger.Info("draining background dispatches")
		o.Wait()
	})
}

func (o *orchestrator) Wait() {
	o.inflight.Wait()
}

func (o *orchestrator) Submit(ctx context.Context, documentID, actorID uuid.UUID) (*documents.Document, error) {
	doc, err := o.rt.Documents.Submit(ctx, documentID, actorID)
	if err != nil {
		return nil, err
	}

	o.logger.Info("document submitted", "document_id", doc.ID, "step", doc.Step)
	o.broadcast(ctx, notify.Event{
		Kind:       notify.KindSubmitted,
		DocumentID: doc.ID,
		Recipients: recipients(doc.CurrentApprover),
		Payload:    map[string]any{"title": doc.Title, "step": doc.Step},
	})

	return doc, nil
}

func (o *orchestrator) Approve(ctx context.Context, documentID, actorID uuid.UUID, cmd ApproveCommand) (*ApproveResult, error) {
	comment, err := o.optionalText("comment", cmd.Comment)
	if err != nil {
		return nil, err
	}

	actor, err := o.load(ctx, documentID, actorID)
	if err != nil {
		return nil, err
	}

	var (
		updated *documents.Document
		tr      workflow.Transition
		now     time.Time
	)
	err = o.retry(ctx, "approve", documentID, func(doc *documents.Document) error {
		now = o.rt.Now()
		next, err := workflow.Advance(doc.Snapshot(), actor.Actor(), now)
		if err != nil {
			return err
		}
		tr = next
		updated, err = o.rt.Documents.Transition(ctx, doc.ID, doc.Version, tr)
		return err
	})
	if err != nil {
		return nil, err
	}

	o.logger.Info(
		"document approved",
		"document_id", updated.ID,
		"approver_id", actor.ID,
		"step", updated.Step,
		"final", tr.Final,
	)

	o.record(ctx, updated, actor, audit.ActionApproved, comment, now, tr.Final, nil)
	o.broadcast(ctx, notify.Event{
		Kind:       notify.KindApproved,
		DocumentID: updated.ID,
		Recipients: recipients(&updated.SubmittedBy, tr.NextApprover),
		Payload: map[string]any{
			"title":       updated.Title,
			"approved_by": actor.Name,
			"step":        updated.Step,
			"final":       tr.Final,
		},
	})

	return &ApproveResult{
		Document:     updated,
		NextStep:     tr.Step,
		NextApprover: tr.NextApprover,
	}, nil
}

func (o *orchestrator) Reject(ctx context.Context, documentID, actorID uuid.UUID, cmd RejectCommand) (*documents.Document, error) {
	reason, err := workflow.ValidateReason(sanitize.Text(cmd.Reason), o.rt.Config.MaxReasonLength)
	if err != nil {
		return nil, err
	}

	actor, err := o.load(ctx, documentID, actorID)
	if err != nil {
		return nil, err
	}

	var (
		updated *documents.Document
		now     time.Time
	)
	err = o.retry(ctx, "reject", documentID, func(doc *documents.Document) error {
		now = o.rt.Now()
		tr, err := workflow.Reject(doc.Snapshot(), actor.Actor(), reason, o.rt.Config.MaxReasonLength)
		if err != nil {
			return err
		}
		updated, err = o.rt.Documents.Transition(ctx, doc.ID, doc.Version, tr)
		return err
	})
	if err != nil {
		return nil, err
	}

	o.logger.Info("document rejected", "document_id", updated.ID, "approver_id", actor.ID)

	o.record(ctx, updated, actor, audit.ActionRejected, &reason, now, false, nil)
	o.broadcast(ctx, notify.Event{
		Kind:       notify.KindRejected,
		DocumentID: updated.ID,
		Recipients: recipients(&updated.SubmittedBy),
		Payload: map[string]any{
			"title":       updated.Title,
			"rejected_by": actor.Name,
			"reason":      reason,
		},
	})

	return updated, nil
}

func (o *orchestrator) SendReminder(ctx context.Context, documentID, requesterID uuid.UUID, cmd ReminderCommand) (*ReminderResult, error) {
	message, err := o.optionalText("message", cmd.Message)
	if err != nil {
		return nil, err
	}

	requester, err := o.load(ctx, documentID, requesterID)
	if err != nil {
		return nil, err
	}

	var (
		updated   *documents.Document
		recipient workflow.Slot
		sentAt    time.Time
	)
	err = o.retry(ctx, "remind", documentID, func(doc *documents.Document) error {
		var err error
		if doc.SubmittedBy != requester.ID {
			return fmt.Errorf("%w: only the owner may send reminders", workflow.ErrUnauthorized)
		}
		if doc.Status != workflow.StatusPending {
			return fmt.Errorf("%w: document is %s", workflow.ErrInvalidState, doc.Status)
		}

		if sentAt, err = o.throttle.Check(doc.LastReminderSent); err != nil {
			return err
		}
		if recipient, err = reminders.Recipient(doc.Snapshot()); err != nil {
			return err
		}

		updated, err = o.rt.Documents.MarkReminded(ctx, doc.ID, doc.Version, sentAt)
		return err
	})
	if err != nil {
		return nil, err
	}

	o.logger.Info(
		"reminder sent",
		"document_id", updated.ID,
		"recipient", recipient.ApproverID,
		"count", updated.ReminderCount,
	)

	payload := map[string]any{
		"title": updated.Title,
		"from":  requester.Name,
		"step":  updated.Step,
	}
	if message != nil {
		payload["message"] = *message
	}
	o.broadcast(ctx, notify.Event{
		Kind:       notify.KindReminder,
		DocumentID: updated.ID,
		Recipients: []uuid.UUID{recipient.ApproverID},
		Payload:    payload,
	})

	return &ReminderResult{
		Recipient:     recipient.ApproverID,
		RecipientRole: recipient.Role,
		SentAt:        sentAt,
		NextAllowedAt: sentAt.Add(o.throttle.Window),
		ReminderCount: updated.ReminderCount,
	}, nil
}

func (o *orchestrator) ApproverHistory(
	ctx context.Context,
	approverID uuid.UUID,
	page pagination.PageRequest,
	filters audit.Filters,
) (*pagination.PageResult[audit.Record], error) {
	return o.rt.Audit.ByApprover(ctx, approverID, page, filters)
}

func (o *orchestrator) DocumentHistory(ctx context.Context, documentID, actorID uuid.UUID) ([]audit.Record, error) {
	if err := o.readable(ctx, documentID, actorID); err != nil {
		return nil, err
	}
	return o.rt.Audit.ByDocument(ctx, documentID)
}

func (o *orchestrator) Signatures(ctx context.Context, documentID, actorID uuid.UUID) ([]signatures.Signature, error) {
	if err := o.readable(ctx, documentID, actorID); err != nil {
		return nil, err
	}
	return o.rt.Signatures.ListByDocument(ctx, documentID)
}

func (o *orchestrator) readable(ctx context.Context, documentID, actorID uuid.UUID) error {
	doc, err := o.rt.Documents.Find(ctx, documentID)
	if err != nil {
		return err
	}
	actor, err := o.rt.Users.Find(ctx, actorID)
	if errors.Is(err, users.ErrNotFound) {
		return fmt.Errorf("%w: unknown actor %s", workflow.ErrUnauthorized, actorID)
	}
	if err != nil {
		return err
	}
	return workflow.AuthorizeRead(doc.Snapshot(), actor.Actor())
}

// load confirms the document exists, then resolves the acting user. Unknown
// actors are unauthorized.
func (o *orchestrator) load(ctx context.Context, documentID, actorID uuid.UUID) (*users.User, error) {
	if _, err := o.rt.Documents.Find(ctx, documentID); err != nil {
		return nil, err
	}

	actor, err := o.rt.Users.Find(ctx, actorID)
	if errors.Is(err, users.ErrNotFound) {
		return nil, fmt.Errorf("%w: unknown actor %s", workflow.ErrUnauthorized, actorID)
	}
	if err != nil {
		return nil, err
	}
	return actor, nil
}

// retry runs fn against a fresh read of the document, repeating while the
// guarded write reports a stale version.
func (o *orchestrator) retry(ctx context.Context, op string, documentID uuid.UUID, fn func(*documents.Document) error) error {
	var err error
	for attempt := 0; attempt <= o.rt.Config.ConflictRetries; attempt++ {
		var doc *documents.Document
		if doc, err = o.rt.Documents.Find(ctx, documentID); err != nil {
			return err
		}

		if err = fn(doc); !errors.Is(err, workflow.ErrConflict) {
			return err
		}

		o.logger.Debug("stale document version", "document_id", documentID, "action", op, "attempt", attempt+1)
	}
	return err
}

func (o *orchestrator) optionalText(field string, s *string) (*string, error) {
	clean := sanitize.OptionalText(s)
	if clean != nil && utf8.RuneCountInString(*clean) > o.rt.Config.MaxReasonLength {
		return nil, workflow.Validation(field, fmt.Sprintf("must be at most %d characters", o.rt.Config.MaxReasonLength))
	}
	return clean, nil
}

// record appends a best-effort audit entry describing action on doc.
func (o *orchestrator) record(
	ctx context.Context,
	doc *documents.Document,
	actor *users.User,
	action audit.Action,
	comment *string,
	at time.Time,
	final bool,
	signedAt *time.Time,
) {
	rec := audit.Record{
		DocumentID:          doc.ID,
		DocumentTitle:       doc.Title,
		ApproverID:          actor.ID,
		ApproverName:        actor.Name,
		ApproverRole:        actor.Role,
		ApproverDesignation: actor.Designation,
		StudentID:           doc.SubmittedBy,
		Action:              action,
		Comment:             comment,
		Status:              doc.Status,
		StepReached:         doc.Step,
		IsFinalApproval:     final,
		ApprovedAt:          at,
		SignedAt:            signedAt,
	}

	if owner, err := o.rt.Users.Find(ctx, doc.SubmittedBy); err == nil {
		rec.StudentName = owner.Name
	} else {
		o.logger.Warn("owner lookup failed", "document_id", doc.ID, "action", action, "error", err)
	}

	o.audit.Record(context.WithoutCancel(ctx), rec)
}

func recipients(ids ...*uuid.UUID) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if id != nil {
			out = append(out, *id)
		}
	}
	return out
}
