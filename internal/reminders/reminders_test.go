package reminders_test

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/countersign/internal/reminders"
	"github.com/JaimeStill/countersign/internal/workflow"
)

func TestThrottle(t *testing.T) {
	sent := time.Date(2026, 5, 4, 8, 0, 0, 0, time.UTC)
	clock := sent

	th := reminders.Throttle{Window: 24 * time.Hour, Now: func() time.Time { return clock }}

	tests := []struct {
		name    string
		now     time.Time
		last    *time.Time
		limited bool
	}{
		{"never sent", sent, nil, false},
		{"one hour later", sent.Add(time.Hour), &sent, true},
		{"just inside window", sent.Add(24*time.Hour - time.Second), &sent, true},
		{"at window", sent.Add(24 * time.Hour), &sent, false},
		{"after window", sent.Add(48 * time.Hour), &sent, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clock = tt.now
			at, err := th.Check(tt.last)

			if !tt.limited {
				if err != nil {
					t.Fatalf("Check() err = %v", err)
				}
				if !at.Equal(tt.now) {
					t.Errorf("sent at = %v, want %v", at, tt.now)
				}
				return
			}

			var rl *workflow.RateLimitedError
			if !errors.As(err, &rl) || !errors.Is(err, workflow.ErrRateLimited) {
				t.Fatalf("Check() err = %v, want RateLimitedError", err)
			}
			if want := sent.Add(24 * time.Hour); !rl.NextAllowedAt.Equal(want) {
				t.Errorf("NextAllowedAt = %v, want %v", rl.NextAllowedAt, want)
			}
		})
	}
}

func TestNewThrottleDefault(t *testing.T) {
	if th := reminders.NewThrottle(0); th.Window != reminders.DefaultWindow {
		t.Errorf("Window = %v, want %v", th.Window, reminders.DefaultWindow)
	}
}

func TestOneReminderPerWindow(t *testing.T) {
	start := time.Date(2026, 5, 4, 0, 0, 0, 0, time.UTC)
	clock := start
	th := reminders.Throttle{Window: 24 * time.Hour, Now: func() time.Time { return clock }}

	var last *time.Time
	var sends []time.Time
	for i := 0; i < 96; i++ {
		clock = start.Add(time.Duration(i) * 30 * time.Minute)
		if at, err := th.Check(last); err == nil {
			sends = append(sends, at)
			last = &at
		}
	}

	for i := 1; i < len(sends); i++ {
		if gap := sends[i].Sub(sends[i-1]); gap < 24*time.Hour {
			t.Fatalf("reminders %d and %d only %v apart", i-1, i, gap)
		}
	}
	if len(sends) != 2 {
		t.Errorf("sent %d reminders in 48h, want 2", len(sends))
	}
}

func TestRecipient(t *testing.T) {
	mentor, dean := uuid.New(), uuid.New()
	route, _ := workflow.Assignments{Mentor: &mentor, Dean: &dean}.Route()

	tests := []struct {
		name    string
		step    workflow.Step
		want    uuid.UUID
		wantErr bool
	}{
		{"mentor step", workflow.StepMentor, mentor, false},
		{"dean step", workflow.StepDean, dean, false},
		{"unfilled step", workflow.StepHOD, uuid.Nil, true},
		{"completed", workflow.StepCompleted, uuid.Nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			slot, err := reminders.Recipient(workflow.Snapshot{Status: workflow.StatusPending, Step: tt.step, Route: route})
			if tt.wantErr {
				if !errors.Is(err, workflow.ErrNoRecipient) {
					t.Errorf("err = %v, want ErrNoRecipient", err)
				}
				return
			}
			if err != nil || slot.ApproverID != tt.want {
				t.Errorf("Recipient() = %v, %v; want %v", slot.ApproverID, err, tt.want)
			}
		})
	}
}
