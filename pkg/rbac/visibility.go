package rbac

import (
	"context"
	"fmt"

	"github.com/platinummonkey/taskboard/pkg/models"
	"github.com/platinummonkey/taskboard/pkg/query"
)

// ProjectIDResolver resolves the ids of projects matching a filter.
// Storage backends implement it.
type ProjectIDResolver interface {
	ProjectIDs(ctx context.Context, cond query.Cond) ([]string, error)
}

// Visibility builds persistence-level filters for list operations
type Visibility struct {
	projects ProjectIDResolver
}

// NewVisibility creates a visibility builder backed by a project id resolver
func NewVisibility(projects ProjectIDResolver) *Visibility {
	return &Visibility{projects: projects}
}

// Projects returns the filter for projects the user may enumerate
func Projects(user *models.User) query.Cond {
	if user == nil {
		return query.None()
	}
	switch user.Role {
	case models.RoleAdmin, models.RoleDepartmentHead:
		return query.All()
	case models.RoleProjectLead:
		return query.Or(
			query.Eq(models.ProjectFieldOwner, user.ID),
			query.Eq(models.ProjectFieldMemberUser, user.ID),
		)
	case models.RoleTeamMember:
		return query.Eq(models.ProjectFieldMemberUser, user.ID)
	}
	return query.None()
}

// Projects is a method form of the package-level builder
func (v *Visibility) Projects(user *models.User) query.Cond {
	return Projects(user)
}

// Tasks returns the filter for tasks the user may enumerate. Task visibility
// is derived from project membership, so the visible project id set is
// resolved first.
func (v *Visibility) Tasks(ctx context.Context, user *models.User) (query.Cond, error) {
	if user == nil {
		return query.None(), nil
	}
	switch user.Role {
	case models.RoleAdmin, models.RoleDepartmentHead:
		return query.All(), nil
	case models.RoleProjectLead:
		ids, err := v.projects.ProjectIDs(ctx, Projects(user))
		if err != nil {
			return query.None(), fmt.Errorf("failed to resolve visible projects: %w", err)
		}
		return query.In(models.TaskFieldProject, ids), nil
	case models.RoleTeamMember:
		ids, err := v.projects.ProjectIDs(ctx, query.Eq(models.ProjectFieldMemberUser, user.ID))
		if err != nil {
			return query.None(), fmt.Errorf("failed to resolve member projects: %w", err)
		}
		return query.Or(
			query.Eq(models.TaskFieldAssignee, user.ID),
			query.Eq(models.TaskFieldReporter, user.ID),
			query.In(models.TaskFieldProject, ids),
		), nil
	}
	return query.None(), nil
}

// Users returns the filter for users the user may enumerate. Admins see
// pending and inactive accounts, everyone else only sees usable accounts.
func Users(user *models.User) query.Cond {
	if user == nil {
		return query.None()
	}
	switch user.Role {
	case models.RoleAdmin:
		return query.All()
	case models.RoleDepartmentHead, models.RoleProjectLead, models.RoleTeamMember:
		return query.And(
			query.Eq(models.UserFieldIsActive, "true"),
			query.Eq(models.UserFieldIsApproved, "true"),
		)
	}
	return query.None()
}

// TaskOrganizationScope restricts tasks to projects of the user's organization.
// Tasks carry no tenant of their own.
func (v *Visibility) TaskOrganizationScope(ctx context.Context, user *models.User) (query.Cond, error) {
	if user == nil {
		return query.None(), nil
	}
	ids, err := v.projects.ProjectIDs(ctx, OrganizationScope(user))
	if err != nil {
		return query.None(), fmt.Errorf("failed to resolve organization projects: %w", err)
	}
	return query.In(models.TaskFieldProject, ids), nil
}

// ScopedTasks combines task visibility with the organization boundary
func (v *Visibility) ScopedTasks(ctx context.Context, user *models.User) (query.Cond, error) {
	cond, err := v.Tasks(ctx, user)
	if err != nil || cond.IsNone() {
		return cond, err
	}
	scope, err := v.TaskOrganizationScope(ctx, user)
	if err != nil {
		return query.None(), err
	}
	return query.And(cond, scope), nil
}

// ScopedProjects combines project visibility with the organization boundary
func ScopedProjects(user *models.User) query.Cond {
	return query.And(Projects(user), OrganizationScope(user))
}

// ScopedUsers combines user visibility with the organization boundary
func ScopedUsers(user *models.User) query.Cond {
	return query.And(Users(user), OrganizationScope(user))
}
