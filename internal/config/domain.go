package config

import (
	"fmt"

	"github.com/JaimeStill/countersign/internal/approvals"
	"github.com/JaimeStill/countersign/internal/audit"
	"github.com/JaimeStill/countersign/internal/notify"
	"github.com/JaimeStill/countersign/internal/render"
)

var workflowEnv = &approvals.Env{
	ReminderWindow:      "COUNTERSIGN_WORKFLOW_REMINDER_WINDOW",
	MaxReasonLength:     "COUNTERSIGN_WORKFLOW_MAX_REASON_LENGTH",
	ConflictRetries:     "COUNTERSIGN_WORKFLOW_CONFLICT_RETRIES",
	CollaboratorTimeout: "COUNTERSIGN_WORKFLOW_COLLABORATOR_TIMEOUT",
	MaxSignatureSize:    "COUNTERSIGN_WORKFLOW_MAX_SIGNATURE_SIZE",
}

var auditEnv = &audit.Env{
	Backend: "COUNTERSIGN_AUDIT_BACKEND",
}

var renderEnv = &render.Env{
	Type:    "COUNTERSIGN_RENDER_TYPE",
	URL:     "COUNTERSIGN_RENDER_URL",
	Timeout: "COUNTERSIGN_RENDER_TIMEOUT",
}

var notifyEnv = &notify.Env{
	Type:    "COUNTERSIGN_NOTIFY_TYPE",
	URL:     "COUNTERSIGN_NOTIFY_URL",
	Token:   "COUNTERSIGN_NOTIFY_TOKEN",
	Timeout: "COUNTERSIGN_NOTIFY_TIMEOUT",
}

func (c *Config) finalizeDomain() error {
	if err := c.Workflow.Finalize(workflowEnv); err != nil {
		return fmt.Errorf("workflow: %w", err)
	}
	if err := c.Audit.Finalize(auditEnv); err != nil {
		return fmt.Errorf("audit: %w", err)
	}
	if err := c.Render.Finalize(renderEnv); err != nil {
		return fmt.Errorf("render: %w", err)
	}
	if err := c.Notify.Finalize(notifyEnv); err != nil {
		return fmt.Errorf("notify: %w", err)
	}
	return nil
}
