package users

import (
	"net/url"
	"strconv"

	"github.com/JaimeStill/countersign/pkg/query"
	"github.com/JaimeStill/countersign/pkg/repository"
)

var projection = query.
	NewProjectionMap("public", "users", "u").
	Project("id", "ID").
	Project("name", "Name").
	Project("email", "Email").
	Project("role", "Role").
	Project("designation", "Designation").
	Project("is_admin", "IsAdmin").
	Project("signature_key", "SignatureKey").
	Project("created_at", "CreatedAt").
	Project("updated_at", "UpdatedAt")

var defaultSort = query.SortField{Field: "Name"}

// Filters contains optional filtering criteria for user queries.
type Filters struct {
	Role    *string `json:"role,omitempty"`
	IsAdmin *bool   `json:"is_admin,omitempty"`
	Name    *string `json:"name,omitempty"`
	Email   *string `json:"email,omitempty"`
}

// Apply adds filter conditions to a query builder.
func (f Filters) Apply(b *query.Builder) *query.Builder {
	return b.
		WhereEquals("Role", f.Role).
		WhereEquals("IsAdmin", f.IsAdmin).
		WhereContains("Name", f.Name).
		WhereContains("Email", f.Email)
}

// FiltersFromQuery extracts filter values from URL query parameters.
func FiltersFromQuery(values url.Values) Filters {
	var f Filters

	if r := values.Get("role"); r != "" {
		f.Role = &r
	}

	if a := values.Get("is_admin"); a != "" {
		if v, err := strconv.ParseBool(a); err == nil {
			f.IsAdmin = &v
		}
	}

	if n := values.Get("name"); n != "" {
		f.Name = &n
	}

	if e := values.Get("email"); e != "" {
		f.Email = &e
	}

	return f
}

func scanUser(s repository.Scanner) (User, error) {
	var u User
	err := s.Scan(
		&u.ID,
		&u.Name,
		&u.Email,
		&u.Role,
		&u.Designation,
		&u.IsAdmin,
		&u.SignatureKey,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	return u, err
}
