package signatures

import (
	"fmt"
	"slices"

	"github.com/JaimeStill/countersign/internal/workflow"
)

// Plan decides which route slot actor's signature covers, given the
// signatures already on the ledger. Slot holders cover their own slot. An
// admin without a slot covers the first uncovered slot in route order and
// counts toward the quota. Each actor signs at most once per document.
func Plan(s workflow.Snapshot, actor workflow.Actor, existing []Signature) (workflow.Slot, error) {
	signed := slices.ContainsFunc(existing, func(sig Signature) bool {
		return sig.ApproverID == actor.ID
	})

	switch s.Status {
	case workflow.StatusSigned:
		if signed {
			return workflow.Slot{}, workflow.ErrAlreadySigned
		}
		return workflow.Slot{}, fmt.Errorf("%w: document is already fully signed", workflow.ErrInvalidState)
	case workflow.StatusApproved:
	default:
		return workflow.Slot{}, fmt.Errorf("%w: document is %s", workflow.ErrInvalidState, s.Status)
	}

	if signed {
		return workflow.Slot{}, workflow.ErrAlreadySigned
	}

	covered := func(role workflow.Role) bool {
		return slices.ContainsFunc(existing, func(sig Signature) bool {
			return sig.SlotRole == role
		})
	}

	if slot, ok := s.Route.HeldBy(actor.ID); ok {
		if covered(slot.Role) {
			return workflow.Slot{}, fmt.Errorf("%w: %s slot already signed", workflow.ErrAlreadySigned, slot.Role)
		}
		return slot, nil
	}

	if !actor.Admin {
		return workflow.Slot{}, fmt.Errorf("%w: actor holds no slot on this document", workflow.ErrUnauthorized)
	}

	for _, slot := range s.Route {
		if !covered(slot.Role) {
			return slot, nil
		}
	}
	return workflow.Slot{}, fmt.Errorf("%w: every slot is signed", workflow.ErrInvalidState)
}

// FullySigned reports whether count signatures cover every filled slot.
func FullySigned(route workflow.Route, count int) bool {
	return count >= len(route)
}

// StatusAfter returns the document status once count signatures exist.
func StatusAfter(route workflow.Route, count int) workflow.Status {
	if FullySigned(route, count) {
		return workflow.StatusSigned
	}
	return workflow.StatusApproved
}
