// Package workflow implements the approval state machine: a document travels
// mentor, hod, dean through the filled slots of its route and reaches the
// completed step when the last slot approves. Functions here are pure; callers
// persist the returned Transition under their own concurrency control.
package workflow

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// Transition is the state a document moves to after an action.
type Transition struct {
	Status          Status
	Step            Step
	NextApprover    *uuid.UUID
	ApprovedBy      *uuid.UUID
	ApprovedAt      *time.Time
	RejectionReason *string
	// Final is true when the action completed the route.
	Final bool
}

// Start returns the initial state of a new document. Drafts sit at the first
// slot without an approver until submitted.
func Start(route Route, submit bool) (Transition, error) {
	if err := route.Validate(); err != nil {
		return Transition{}, err
	}

	first := route[0]
	if !submit {
		return Transition{Status: StatusDraft, Step: StepOf(first.Role)}, nil
	}
	return Transition{
		Status:       StatusPending,
		Step:         StepOf(first.Role),
		NextApprover: &first.ApproverID,
	}, nil
}

// Submit moves a draft into the first filled slot of its route.
func Submit(s Snapshot, actor Actor) (Transition, error) {
	if s.Status != StatusDraft {
		return Transition{}, fmt.Errorf("%w: document is %s", ErrInvalidState, s.Status)
	}
	if !actor.Admin && actor.ID != s.Owner {
		return Transition{}, fmt.Errorf("%w: only the owner may submit", ErrUnauthorized)
	}
	return Start(s.Route, true)
}

// Authorize reports whether actor may act on the current step. Admins always
// may; otherwise the actor must hold the step's slot or be the recorded
// current approver.
func Authorize(s Snapshot, actor Actor) error {
	if actor.Admin {
		return nil
	}
	if slot, ok := s.Expected(); ok && slot.ApproverID == actor.ID {
		return nil
	}
	if s.CurrentApprover != nil && *s.CurrentApprover == actor.ID {
		return nil
	}
	return fmt.Errorf("%w: actor is not the approver for step %s", ErrUnauthorized, s.Step)
}

// AuthorizeRead reports whether actor may read a document's trail: the owner,
// any approver on its route, or an admin.
func AuthorizeRead(s Snapshot, actor Actor) error {
	if actor.Admin || actor.ID == s.Owner {
		return nil
	}
	if _, ok := s.Route.HeldBy(actor.ID); ok {
		return nil
	}
	return fmt.Errorf("%w: actor is not a participant", ErrUnauthorized)
}

// Advance approves the current step, moving to the next filled slot or to
// completed when none remains. ApprovedBy and ApprovedAt are set only on the
// final approval.
func Advance(s Snapshot, actor Actor, now time.Time) (Transition, error) {
	if s.Status != StatusPending {
		return Transition{}, fmt.Errorf("%w: document is %s", ErrInvalidState, s.Status)
	}
	current, ok := s.Expected()
	if !ok {
		return Transition{}, fmt.Errorf("%w: step %s has no approver", ErrInvalidState, s.Step)
	}
	if err := Authorize(s, actor); err != nil {
		return Transition{}, err
	}

	if next, ok := s.Route.After(current.Role); ok {
		return Transition{
			Status:       StatusPending,
			Step:         StepOf(next.Role),
			NextApprover: &next.ApproverID,
		}, nil
	}

	by := actor.ID
	return Transition{
		Status:     StatusApproved,
		Step:       StepCompleted,
		ApprovedBy: &by,
		ApprovedAt: &now,
		Final:      true,
	}, nil
}

// ValidateReason trims reason and enforces presence and a maximum rune length.
func ValidateReason(reason string, maxLen int) (string, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return "", Validation("reason", "is required")
	}
	if maxLen > 0 && utf8.RuneCountInString(reason) > maxLen {
		return "", Validation("reason", fmt.Sprintf("must be at most %d characters", maxLen))
	}
	return reason, nil
}

// Reject terminates the route at the current step.
func Reject(s Snapshot, actor Actor, reason string, maxLen int) (Transition, error) {
	reason, err := ValidateReason(reason, maxLen)
	if err != nil {
		return Transition{}, err
	}
	if s.Status != StatusPending {
		return Transition{}, fmt.Errorf("%w: document is %s", ErrInvalidState, s.Status)
	}
	if _, ok := s.Expected(); !ok {
		return Transition{}, fmt.Errorf("%w: step %s has no approver", ErrInvalidState, s.Step)
	}
	if err := Authorize(s, actor); err != nil {
		return Transition{}, err
	}

	return Transition{
		Status:          StatusRejected,
		Step:            StepRejected,
		RejectionReason: &reason,
		Final:           true,
	}, nil
}
