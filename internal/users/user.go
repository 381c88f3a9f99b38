// Package users implements the user directory: identity, role, designation,
// administrator flag and the signature image kept on file for signing.
package users

import (
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/countersign/internal/workflow"
	"github.com/JaimeStill/countersign/pkg/sanitize"
)

// Directory roles.
const (
	RoleStudent = "student"
	RoleMentor  = "mentor"
	RoleHOD     = "hod"
	RoleDean    = "dean"
	RoleStaff   = "staff"
)

var roles = []string{RoleStudent, RoleMentor, RoleHOD, RoleDean, RoleStaff}

// User is a directory entry.
type User struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Role         string    `json:"role"`
	Designation  string    `json:"designation"`
	IsAdmin      bool      `json:"is_admin"`
	SignatureKey *string   `json:"signature_key"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Actor returns the user as a workflow actor.
func (u *User) Actor() workflow.Actor {
	return workflow.Actor{ID: u.ID, Admin: u.IsAdmin}
}

// CreateCommand carries the fields for a new directory entry.
type CreateCommand struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	Role        string `json:"role"`
	Designation string `json:"designation"`
	IsAdmin     bool   `json:"is_admin"`
}

// Normalize sanitizes free text and validates the command.
func (c *CreateCommand) Normalize() error {
	c.Name = sanitize.Text(c.Name)
	c.Email = strings.ToLower(strings.TrimSpace(c.Email))
	c.Role = strings.ToLower(strings.TrimSpace(c.Role))
	c.Designation = sanitize.Text(c.Designation)

	switch {
	case c.Name == "":
		return workflow.Validation("name", "is required")
	case !strings.Contains(c.Email, "@"):
		return workflow.Validation("email", "must be an email address")
	case !slices.Contains(roles, c.Role):
		return workflow.Validation("role", "must be one of "+strings.Join(roles, ", "))
	}
	return nil
}
