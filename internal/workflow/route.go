package workflow

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"slices"

	"github.com/google/uuid"
)

// Role is an assignable position in the approval chain.
type Role string

const (
	RoleMentor Role = "mentor"
	RoleHOD    Role = "hod"
	RoleDean   Role = "dean"
)

// Roles lists the chain positions in routing order.
var Roles = []Role{RoleMentor, RoleHOD, RoleDean}

func (r Role) rank() int {
	return slices.Index(Roles, r)
}

// Slot binds a chain position to the approver who holds it.
type Slot struct {
	Role       Role      `json:"role"`
	ApproverID uuid.UUID `json:"approver_id"`
}

// Route is the ordered list of filled slots a document travels through.
// Unfilled positions are absent rather than nil entries.
type Route []Slot

// Assignments is the owner's choice of approvers; nil fields are skipped positions.
type Assignments struct {
	Mentor *uuid.UUID `json:"mentor,omitempty"`
	HOD    *uuid.UUID `json:"hod,omitempty"`
	Dean   *uuid.UUID `json:"dean,omitempty"`
}

// Route builds and validates the route in canonical order.
func (a Assignments) Route() (Route, error) {
	route := make(Route, 0, len(Roles))
	for _, s := range []struct {
		role Role
		id   *uuid.UUID
	}{
		{RoleMentor, a.Mentor},
		{RoleHOD, a.HOD},
		{RoleDean, a.Dean},
	} {
		if s.id != nil {
			route = append(route, Slot{Role: s.role, ApproverID: *s.id})
		}
	}

	if err := route.Validate(); err != nil {
		return nil, err
	}
	return route, nil
}

// Validate enforces at least one slot, known roles in strictly increasing
// routing order, and distinct non-nil approvers.
func (r Route) Validate() error {
	if len(r) == 0 {
		return Validation("route", "at least one approver is required")
	}

	seen := make(map[uuid.UUID]bool, len(r))
	prev := -1
	for _, s := range r {
		rank := s.Role.rank()
		if rank < 0 {
			return Validation("route", fmt.Sprintf("unknown role %q", s.Role))
		}
		if rank <= prev {
			return Validation("route", "roles must be unique and ordered mentor, hod, dean")
		}
		if s.ApproverID == uuid.Nil {
			return Validation("route", fmt.Sprintf("%s approver is empty", s.Role))
		}
		if seen[s.ApproverID] {
			return Validation("route", "an approver may hold only one slot")
		}
		seen[s.ApproverID] = true
		prev = rank
	}
	return nil
}

// Slot returns the slot for role when it is filled.
func (r Route) Slot(role Role) (Slot, bool) {
	i := slices.IndexFunc(r, func(s Slot) bool { return s.Role == role })
	if i < 0 {
		return Slot{}, false
	}
	return r[i], true
}

// HeldBy returns the slot held by approver.
func (r Route) HeldBy(approver uuid.UUID) (Slot, bool) {
	i := slices.IndexFunc(r, func(s Slot) bool { return s.ApproverID == approver })
	if i < 0 {
		return Slot{}, false
	}
	return r[i], true
}

// After returns the first filled slot following role.
func (r Route) After(role Role) (Slot, bool) {
	rank := role.rank()
	for _, s := range r {
		if s.Role.rank() > rank {
			return s, true
		}
	}
	return Slot{}, false
}

// Approvers returns the approver IDs in routing order.
func (r Route) Approvers() []uuid.UUID {
	ids := make([]uuid.UUID, len(r))
	for i, s := range r {
		ids[i] = s.ApproverID
	}
	return ids
}

// Value stores the route as JSONB.
func (r Route) Value() (driver.Value, error) {
	if r == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(r)
}

// Scan reads a JSONB route column.
func (r *Route) Scan(src any) error {
	var data []byte
	switch v := src.(type) {
	case nil:
		*r = Route{}
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("scan route: unsupported type %T", src)
	}
	return json.Unmarshal(data, r)
}
