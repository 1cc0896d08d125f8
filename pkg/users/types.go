package users

import (
	"strings"

	"github.com/platinummonkey/taskboard/pkg/models"
	"github.com/platinummonkey/taskboard/pkg/query"
)

// ListOptions narrows a user listing
type ListOptions struct {
	Page   query.Page  `json:"-"`
	Role   models.Role `json:"role" validate:"omitempty,oneof=team-member project-lead department-head admin"`
	Search string      `json:"search"`
}

// CreateInput describes a user created by an administrator
type CreateInput struct {
	Name  string      `json:"name" validate:"required,max=200"`
	Email string      `json:"email" validate:"required,email"`
	Role  models.Role `json:"role" validate:"omitempty,oneof=team-member project-lead department-head admin"`
}

func (in *CreateInput) normalize() {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = NormalizeEmail(in.Email)
}

// UpdateInput changes a user. Nil fields are left untouched.
type UpdateInput struct {
	Name     *string      `json:"name" validate:"omitnil,min=1,max=200"`
	Email    *string      `json:"email" validate:"omitnil,email"`
	Role     *models.Role `json:"role" validate:"omitnil,oneof=team-member project-lead department-head admin"`
	IsActive *bool        `json:"isActive"`
}

func (in *UpdateInput) normalize() {
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		in.Name = &name
	}
	if in.Email != nil {
		email := NormalizeEmail(*in.Email)
		in.Email = &email
	}
}

// NormalizeEmail trims and lowercases an address
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ReasonSelfRoleChange is returned when an administrator changes their own role
const ReasonSelfRoleChange = "You cannot change your own role"
