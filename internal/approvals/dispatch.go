package approvals

import (
	"context"

	"github.com/google/uuid"

	"github.com/JaimeStill/countersign/internal/notify"
)

// dispatch runs fn in the background with a context detached from the
// request's cancellation and bounded by the collaborator timeout. Failures are
// logged and never reach the caller.
func (o *orchestrator) dispatch(ctx context.Context, action string, documentID uuid.UUID, fn func(context.Context) error) {
	ctx = context.WithoutCancel(ctx)
	timeout := o.rt.Config.CollaboratorTimeoutDuration()

	o.inflight.Go(func() {
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		if err := fn(ctx); err != nil {
			o.logger.Warn(
				"collaborator failed",
				"document_id", documentID,
				"action", action,
				"error", err,
			)
		}
	})
}

// broadcast publishes event in the background.
func (o *orchestrator) broadcast(ctx context.Context, event notify.Event) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = o.rt.Now()
	}
	if len(event.Recipients) == 0 {
		return
	}

	o.dispatch(ctx, event.Kind, event.DocumentID, func(ctx context.Context) error {
		return o.rt.Broadcaster.Broadcast(ctx, event)
	})
}
