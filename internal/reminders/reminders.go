// Package reminders decides when an owner may nudge the approver a pending
// document is waiting on.
package reminders

import (
	"fmt"
	"time"

	"github.com/JaimeStill/countersign/internal/workflow"
)

// DefaultWindow is the minimum spacing between reminders for one document.
const DefaultWindow = 24 * time.Hour

// Throttle allows at most one reminder per Window.
type Throttle struct {
	Window time.Duration
	Now    func() time.Time
}

// NewThrottle creates a Throttle on the wall clock. A non-positive window
// falls back to DefaultWindow.
func NewThrottle(window time.Duration) Throttle {
	if window <= 0 {
		window = DefaultWindow
	}
	return Throttle{Window: window, Now: time.Now}
}

func (t Throttle) now() time.Time {
	if t.Now == nil {
		return time.Now()
	}
	return t.Now()
}

// Check returns the send time when a reminder is allowed. When last is within
// the window it returns a *workflow.RateLimitedError carrying last + Window.
func (t Throttle) Check(last *time.Time) (time.Time, error) {
	now := t.now()
	if last != nil && now.Sub(*last) < t.Window {
		return time.Time{}, &workflow.RateLimitedError{NextAllowedAt: last.Add(t.Window)}
	}
	return now, nil
}

// Recipient returns the slot holder a pending document is waiting on: the
// first filled slot that has not yet approved, which is the slot of the
// current step.
func Recipient(s workflow.Snapshot) (workflow.Slot, error) {
	if slot, ok := s.Expected(); ok {
		return slot, nil
	}
	return workflow.Slot{}, fmt.Errorf("%w: step %s has no approver", workflow.ErrNoRecipient, s.Step)
}
