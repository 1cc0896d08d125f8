// Package models defines the persisted documents of the tracker: users,
// organizations, projects and tasks.
//
// Models are plain data. Access rules live in pkg/rbac and operate on these
// values as free functions so they can be evaluated without a database.
package models

import (
	"strconv"
	"strings"
	"time"
)

// Role is an organization-wide role of a user
type Role string

const (
	RoleTeamMember     Role = "team-member"
	RoleProjectLead    Role = "project-lead"
	RoleDepartmentHead Role = "department-head"
	RoleAdmin          Role = "admin"
)

// Roles lists every known role from lowest to highest rank
var Roles = []Role{RoleTeamMember, RoleProjectLead, RoleDepartmentHead, RoleAdmin}

// Valid reports whether the role is one of the known roles
func (r Role) Valid() bool {
	switch r {
	case RoleTeamMember, RoleProjectLead, RoleDepartmentHead, RoleAdmin:
		return true
	}
	return false
}

// ParseRole converts a string into a known role
func ParseRole(s string) (Role, bool) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	return r, r.Valid()
}

// User fields usable in filters
const (
	UserFieldID             = "id"
	UserFieldEmail          = "email"
	UserFieldName           = "name"
	UserFieldRole           = "role"
	UserFieldOrganizationID = "organization_id"
	UserFieldIsActive       = "is_active"
	UserFieldIsApproved     = "is_approved"
)

// User is a principal of the system
type User struct {
	ID             string     `json:"id"`
	Name           string     `json:"name"`
	Email          string     `json:"email"`
	Role           Role       `json:"role"`
	OrganizationID string     `json:"organization_id"`
	IsActive       bool       `json:"is_active"`
	IsApproved     bool       `json:"is_approved"`
	ApprovedBy     string     `json:"approved_by,omitempty"`
	ApprovedAt     *time.Time `json:"approved_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// CanSignIn reports whether the account is both active and approved
func (u *User) CanSignIn() bool {
	return u != nil && u.IsActive && u.IsApproved
}

// FieldValues implements query.Document
func (u *User) FieldValues(field string) []string {
	switch field {
	case UserFieldID:
		return []string{u.ID}
	case UserFieldEmail:
		return []string{u.Email}
	case UserFieldName:
		return []string{u.Name}
	case UserFieldRole:
		return []string{string(u.Role)}
	case UserFieldOrganizationID:
		return []string{u.OrganizationID}
	case UserFieldIsActive:
		return []string{strconv.FormatBool(u.IsActive)}
	case UserFieldIsApproved:
		return []string{strconv.FormatBool(u.IsApproved)}
	}
	return nil
}

// Clone returns a deep copy of the user
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	cp := *u
	if u.ApprovedAt != nil {
		t := *u.ApprovedAt
		cp.ApprovedAt = &t
	}
	return &cp
}
