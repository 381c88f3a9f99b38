package workflow

import "github.com/google/uuid"

// Status is the lifecycle status of a document.
type Status string

const (
	StatusDraft    Status = "draft"
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
	StatusSigned   Status = "signed"
)

// Step is the position a document currently occupies in its route.
type Step string

const (
	StepMentor    Step = "mentor"
	StepHOD       Step = "hod"
	StepDean      Step = "dean"
	StepCompleted Step = "completed"
	StepRejected  Step = "rejected"
)

// StepOf returns the step at which role acts.
func StepOf(role Role) Step {
	return Step(role)
}

// Role returns the chain position for an in-progress step.
func (s Step) Role() (Role, bool) {
	r := Role(s)
	if r.rank() < 0 {
		return "", false
	}
	return r, true
}

// Actor is the authenticated caller as seen by the state machine.
type Actor struct {
	ID    uuid.UUID
	Admin bool
}

// Snapshot is the workflow-relevant view of a document at a given version.
type Snapshot struct {
	Owner           uuid.UUID
	Status          Status
	Step            Step
	Route           Route
	CurrentApprover *uuid.UUID
	Version         int
}

// Expected returns the slot that must act next, if the document is in an approver step.
func (s Snapshot) Expected() (Slot, bool) {
	role, ok := s.Step.Role()
	if !ok {
		return Slot{}, false
	}
	return s.Route.Slot(role)
}
