package tasks

import (
	"strings"
	"time"

	"github.com/platinummonkey/taskboard/pkg/models"
	"github.com/platinummonkey/taskboard/pkg/query"
)

// ListOptions narrows a task listing. Visibility is always applied on top.
type ListOptions struct {
	Page     query.Page        `json:"-"`
	Status   models.TaskStatus `json:"status" validate:"omitempty,oneof=todo in-progress review done"`
	Priority models.Priority   `json:"priority" validate:"omitempty,oneof=low medium high urgent"`
	Project  string            `json:"project"`
	Assignee string            `json:"assignee"`
	Search   string            `json:"search"`
}

// CreateInput describes a new task. The caller becomes its reporter.
type CreateInput struct {
	Title        string            `json:"title" validate:"required,max=200"`
	Description  string            `json:"description" validate:"max=5000"`
	Project      string            `json:"project" validate:"required"`
	Assignee     string            `json:"assignee"`
	Status       models.TaskStatus `json:"status" validate:"omitempty,oneof=todo in-progress review done"`
	Priority     models.Priority   `json:"priority" validate:"omitempty,oneof=low medium high urgent"`
	Dependencies []string          `json:"dependencies"`
	DueDate      *time.Time        `json:"dueDate"`
}

func (in *CreateInput) normalize() {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	in.Project = strings.TrimSpace(in.Project)
	in.Assignee = strings.TrimSpace(in.Assignee)
}

// UpdateInput changes task attributes. Nil fields are left untouched; an
// empty Assignee unassigns the task. The project and reporter are fixed.
type UpdateInput struct {
	Title        *string            `json:"title" validate:"omitnil,min=1,max=200"`
	Description  *string            `json:"description" validate:"omitnil,max=5000"`
	Assignee     *string            `json:"assignee"`
	Status       *models.TaskStatus `json:"status" validate:"omitnil,oneof=todo in-progress review done"`
	Priority     *models.Priority   `json:"priority" validate:"omitnil,oneof=low medium high urgent"`
	Dependencies *[]string          `json:"dependencies"`
	DueDate      *time.Time         `json:"dueDate"`
}

func (in *UpdateInput) normalize() {
	in.Title = trimmed(in.Title)
	in.Description = trimmed(in.Description)
	in.Assignee = trimmed(in.Assignee)
}

// CommentInput is the body of a new comment
type CommentInput struct {
	Body string `json:"text" validate:"required,max=2000"`
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	return &v
}
