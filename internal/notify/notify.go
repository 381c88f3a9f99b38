// Package notify delivers workflow events to interested parties. Delivery is
// best effort: the orchestrator logs failures and never surfaces them to the
// caller that triggered the event.
package notify

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Event kinds emitted by the approval workflow.
const (
	KindSubmitted   = "document.submitted"
	KindApproved    = "document.approved"
	KindRejected    = "document.rejected"
	KindSigned      = "document.signed"
	KindFullySigned = "document.fully_signed"
	KindReminder    = "document.reminder"
)

// Event is a single notification addressed to one or more users.
type Event struct {
	Kind       string         `json:"kind"`
	DocumentID uuid.UUID      `json:"document_id"`
	Recipients []uuid.UUID    `json:"recipients"`
	Payload    map[string]any `json:"payload,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}

// Broadcaster publishes events.
type Broadcaster interface {
	Broadcast(ctx context.Context, event Event) error
}

// Noop discards every event.
type Noop struct{}

func (Noop) Broadcast(context.Context, Event) error { return nil }

// Log writes events to a structured logger. Useful in development where no
// delivery endpoint exists.
type Log struct {
	logger *slog.Logger
}

// NewLog creates a Broadcaster that logs each event at info level.
func NewLog(logger *slog.Logger) *Log {
	return &Log{logger: logger.With("broadcaster", "log")}
}

func (l *Log) Broadcast(_ context.Context, event Event) error {
	l.logger.Info(
		"event",
		"kind", event.Kind,
		"document_id", event.DocumentID,
		"recipients", len(event.Recipients),
	)
	return nil
}

// New builds the Broadcaster selected by cfg.Type.
func New(cfg *Config, logger *slog.Logger) Broadcaster {
	switch cfg.Type {
	case TypeWebhook:
		return NewWebhook(cfg.URL, cfg.Token, cfg.TimeoutDuration())
	case TypeLog:
		return NewLog(logger)
	default:
		return Noop{}
	}
}
