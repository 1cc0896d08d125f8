package orgs

import (
	"strings"
	"time"

	"github.com/platinummonkey/taskboard/pkg/models"
	"github.com/platinummonkey/taskboard/pkg/users"
)

// Organization codes are uppercase alphanumeric
const (
	MinCodeLength       = 6
	MaxCodeLength       = 12
	GeneratedCodeLength = 8
)

// RegisterInput creates an organization together with its first administrator
type RegisterInput struct {
	OrganizationName string `json:"organizationName" validate:"required,max=200"`
	// Code is optional; one is generated when empty
	Code       string `json:"organizationCode" validate:"omitempty,orgcode"`
	AdminName  string `json:"name" validate:"required,max=200"`
	AdminEmail string `json:"email" validate:"required,email"`
}

func (in *RegisterInput) normalize() {
	in.OrganizationName = strings.TrimSpace(in.OrganizationName)
	in.Code = NormalizeCode(in.Code)
	in.AdminName = strings.TrimSpace(in.AdminName)
	in.AdminEmail = users.NormalizeEmail(in.AdminEmail)
}

// RegisterResult is the outcome of a registration. Token is empty when the
// service has no token issuer.
type RegisterResult struct {
	Organization *models.Organization `json:"organization"`
	Admin        *models.User         `json:"user"`
	Token        string               `json:"token,omitempty"`
	ExpiresAt    *time.Time           `json:"expiresAt,omitempty"`
}

// JoinInput registers a user into an existing organization
type JoinInput struct {
	Code  string `json:"organizationCode" validate:"required"`
	Name  string `json:"name" validate:"required,max=200"`
	Email string `json:"email" validate:"required,email"`
}

func (in *JoinInput) normalize() {
	in.Code = NormalizeCode(in.Code)
	in.Name = strings.TrimSpace(in.Name)
	in.Email = users.NormalizeEmail(in.Email)
}

// UserCounts summarizes the accounts of an organization
type UserCounts struct {
	Total    int `json:"total"`
	Active   int `json:"active"`
	Pending  int `json:"pending"`
	Inactive int `json:"inactive"`
}

// Dashboard holds organization-wide counts for administrators
type Dashboard struct {
	Organization *models.Organization `json:"organization"`
	Users        UserCounts           `json:"users"`
	Projects     int                  `json:"projects"`
	// ProjectsByStatus and TasksByStatus include every known status, zero or not
	ProjectsByStatus map[models.ProjectStatus]int `json:"projectsByStatus"`
	Tasks            int                          `json:"tasks"`
	TasksByStatus    map[models.TaskStatus]int    `json:"tasksByStatus"`
}
