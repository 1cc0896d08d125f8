package projects

import (
	"strings"

	"github.com/platinummonkey/taskboard/pkg/models"
	"github.com/platinummonkey/taskboard/pkg/query"
)

// ListOptions narrows a project listing. Visibility is always applied on top.
type ListOptions struct {
	Page   query.Page           `json:"-"`
	Status models.ProjectStatus `json:"status" validate:"omitempty,oneof=planning active on-hold completed cancelled"`
	Search string               `json:"search"`
}

// MemberInput adds a user to a project or changes their sub-role
type MemberInput struct {
	UserID string             `json:"user" validate:"required"`
	Role   models.ProjectRole `json:"role" validate:"omitempty,oneof=member developer manager viewer"`
}

func (in *MemberInput) normalize() {
	in.UserID = strings.TrimSpace(in.UserID)
}

// CreateInput describes a new project. The caller becomes its owner.
type CreateInput struct {
	Name        string               `json:"name" validate:"required,max=200"`
	Description string               `json:"description" validate:"max=5000"`
	ProjectLead string               `json:"projectLead"`
	Status      models.ProjectStatus `json:"status" validate:"omitempty,oneof=planning active on-hold completed cancelled"`
	Visibility  models.Visibility    `json:"visibility" validate:"omitempty,oneof=private team public"`
	Members     []MemberInput        `json:"members" validate:"dive"`
}

func (in *CreateInput) normalize() {
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
	in.ProjectLead = strings.TrimSpace(in.ProjectLead)
	for i := range in.Members {
		in.Members[i].normalize()
	}
}

// UpdateInput changes project attributes. Nil fields are left untouched.
// Owner, creator and organization cannot be changed.
type UpdateInput struct {
	Name        *string               `json:"name" validate:"omitnil,min=1,max=200"`
	Description *string               `json:"description" validate:"omitnil,max=5000"`
	ProjectLead *string               `json:"projectLead"`
	Status      *models.ProjectStatus `json:"status" validate:"omitnil,oneof=planning active on-hold completed cancelled"`
	Visibility  *models.Visibility    `json:"visibility" validate:"omitnil,oneof=private team public"`
}

func (in *UpdateInput) normalize() {
	in.Name = trimmed(in.Name)
	in.Description = trimmed(in.Description)
	in.ProjectLead = trimmed(in.ProjectLead)
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	return &v
}
