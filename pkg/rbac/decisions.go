package rbac

import (
	"github.com/platinummonkey/taskboard/pkg/apperr"
	"github.com/platinummonkey/taskboard/pkg/models"
)

// Action names an operation guarded by a decision function
type Action string

const (
	ActionViewProject    Action = "project:view"
	ActionCreateProject  Action = "project:create"
	ActionModifyProject  Action = "project:modify"
	ActionDeleteProject  Action = "project:delete"
	ActionManageMembers  Action = "project:manage_members"
	ActionCreateTask     Action = "task:create"
	ActionAccessTask     Action = "task:access"
	ActionDeleteTask     Action = "task:delete"
	ActionAssignTask     Action = "task:assign"
	ActionManageUsers    Action = "user:manage"
	ActionDeactivateUser Action = "user:deactivate"
	ActionDeleteUser     Action = "user:delete"
)

// Denial reasons returned to callers
const (
	ReasonOtherOrganization   = "Resource belongs to a different organization"
	ReasonAdminViewOnly       = "Admins have view-only access to projects"
	ReasonUnknownRole         = "Your role does not grant access to this resource"
	ReasonCreateProject       = "Only department heads can create projects"
	ReasonViewProject         = "You do not have access to this project"
	ReasonModifyProject       = "Only the project owner or a project manager can modify this project"
	ReasonTeamMemberModify    = "Team members cannot modify projects"
	ReasonDeleteOwnProject    = "Department heads can only delete projects they created"
	ReasonDeleteProject       = "Only admins and department heads can delete projects"
	ReasonManageMembers       = "Only the project owner or a project manager can manage members"
	ReasonCreateTask          = "You must be a member of this project to create tasks"
	ReasonAccessTask          = "You do not have access to this task"
	ReasonDeleteTask          = "Only admins and department heads can delete tasks"
	ReasonAssigneeNotMember   = "Assignee must be a member of the project"
	ReasonAdminRequired       = "Admin access required"
	ReasonUserOtherOrg        = "User belongs to a different organization"
	ReasonSelfDeactivate      = "You cannot deactivate your own account"
	ReasonSelfDelete          = "You cannot delete your own account"
	ReasonUnauthenticatedUser = "Authentication required"
	ReasonInsufficientRole    = "Insufficient role permissions"
	ReasonNoOrganization      = "Your account is not attached to an organization"
	ReasonInactiveOrg         = "Your organization is inactive"
)

// Decision is the outcome of an access check
type Decision struct {
	Action  Action `json:"action"`
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
}

func allow(action Action) Decision {
	return Decision{Action: action, Allowed: true}
}

func deny(action Action, reason string) Decision {
	return Decision{Action: action, Allowed: false, Reason: reason}
}

// Err converts a denial into a Forbidden error, nil when allowed
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	return apperr.Forbidden(d.Reason)
}

// projectGate applies the checks shared by every project-scoped decision
func projectGate(action Action, user *models.User, project *models.Project) (Decision, bool) {
	if user == nil {
		return deny(action, ReasonUnauthenticatedUser), false
	}
	if project == nil || !SameOrganization(user, project.OrganizationID) {
		return deny(action, ReasonOtherOrganization), false
	}
	if Level(user.Role) == 0 {
		return deny(action, ReasonUnknownRole), false
	}
	return Decision{}, true
}

// CanViewProject decides read access to a single project
func CanViewProject(user *models.User, project *models.Project) Decision {
	if d, ok := projectGate(ActionViewProject, user, project); !ok {
		return d
	}
	switch user.Role {
	case models.RoleAdmin, models.RoleDepartmentHead:
		return allow(ActionViewProject)
	case models.RoleProjectLead, models.RoleTeamMember:
		if IsMember(user, project) {
			return allow(ActionViewProject)
		}
	}
	return deny(ActionViewProject, ReasonViewProject)
}

// CanCreateProject decides whether the user may create projects at all
func CanCreateProject(user *models.User) Decision {
	if user == nil {
		return deny(ActionCreateProject, ReasonUnauthenticatedUser)
	}
	switch user.Role {
	case models.RoleAdmin:
		return deny(ActionCreateProject, ReasonAdminViewOnly)
	case models.RoleDepartmentHead:
		return allow(ActionCreateProject)
	case models.RoleProjectLead, models.RoleTeamMember:
		return deny(ActionCreateProject, ReasonCreateProject)
	}
	return deny(ActionCreateProject, ReasonUnknownRole)
}

// CanModifyProject decides changes to a project's name, description, status
// and other attributes. Admins are always denied.
func CanModifyProject(user *models.User, project *models.Project) Decision {
	if user != nil && user.Role == models.RoleAdmin {
		return deny(ActionModifyProject, ReasonAdminViewOnly)
	}
	if d, ok := projectGate(ActionModifyProject, user, project); !ok {
		return d
	}
	switch user.Role {
	case models.RoleDepartmentHead:
		return allow(ActionModifyProject)
	case models.RoleProjectLead:
		if IsOwner(user, project) || MemberSubRole(user, project) == models.ProjectRoleManager {
			return allow(ActionModifyProject)
		}
		return deny(ActionModifyProject, ReasonModifyProject)
	}
	return deny(ActionModifyProject, ReasonTeamMemberModify)
}

// CanDeleteProject decides deletion of a project and its tasks
func CanDeleteProject(user *models.User, project *models.Project) Decision {
	if d, ok := projectGate(ActionDeleteProject, user, project); !ok {
		return d
	}
	switch user.Role {
	case models.RoleAdmin:
		return allow(ActionDeleteProject)
	case models.RoleDepartmentHead:
		if project.CreatedBy == user.ID {
			return allow(ActionDeleteProject)
		}
		return deny(ActionDeleteProject, ReasonDeleteOwnProject)
	}
	return deny(ActionDeleteProject, ReasonDeleteProject)
}

// CanManageMembers decides adding, updating and removing project members
func CanManageMembers(user *models.User, project *models.Project) Decision {
	if user != nil && user.Role == models.RoleAdmin {
		return deny(ActionManageMembers, ReasonAdminViewOnly)
	}
	if d, ok := projectGate(ActionManageMembers, user, project); !ok {
		return d
	}
	switch user.Role {
	case models.RoleDepartmentHead:
		return allow(ActionManageMembers)
	case models.RoleProjectLead:
		if IsOwner(user, project) || MemberSubRole(user, project) == models.ProjectRoleManager {
			return allow(ActionManageMembers)
		}
	}
	return deny(ActionManageMembers, ReasonManageMembers)
}

// CanCreateTask decides task creation inside a project
func CanCreateTask(user *models.User, project *models.Project) Decision {
	if d, ok := projectGate(ActionCreateTask, user, project); !ok {
		return d
	}
	switch user.Role {
	case models.RoleAdmin, models.RoleDepartmentHead:
		return allow(ActionCreateTask)
	case models.RoleProjectLead, models.RoleTeamMember:
		if IsMember(user, project) {
			return allow(ActionCreateTask)
		}
	}
	return deny(ActionCreateTask, ReasonCreateTask)
}

// CanAccessTask decides viewing, modifying and commenting on a task.
// project must be the task's own project, freshly loaded.
func CanAccessTask(user *models.User, project *models.Project, task *models.Task) Decision {
	if d, ok := projectGate(ActionAccessTask, user, project); !ok {
		return d
	}
	if task == nil || task.Project != project.ID {
		return deny(ActionAccessTask, ReasonAccessTask)
	}
	switch user.Role {
	case models.RoleAdmin, models.RoleDepartmentHead:
		return allow(ActionAccessTask)
	case models.RoleProjectLead:
		if IsMember(user, project) {
			return allow(ActionAccessTask)
		}
	case models.RoleTeamMember:
		// matches the team-member task listing filter
		if IsMember(user, project) || task.Assignee == user.ID || task.Reporter == user.ID {
			return allow(ActionAccessTask)
		}
	}
	return deny(ActionAccessTask, ReasonAccessTask)
}

// CanDeleteTask decides deletion of a task
func CanDeleteTask(user *models.User, project *models.Project) Decision {
	if d, ok := projectGate(ActionDeleteTask, user, project); !ok {
		return d
	}
	switch user.Role {
	case models.RoleAdmin, models.RoleDepartmentHead:
		return allow(ActionDeleteTask)
	}
	return deny(ActionDeleteTask, ReasonDeleteTask)
}

// CheckAssignee verifies the referential precondition for assigning a task.
// An empty assignee means unassigned and is always accepted.
func CheckAssignee(project *models.Project, assigneeID string) error {
	if assigneeID == "" {
		return nil
	}
	if !IsProjectMemberID(assigneeID, project) {
		return apperr.Invalid(ReasonAssigneeNotMember)
	}
	return nil
}

// CanManageUsers gates every user management operation
func CanManageUsers(user *models.User) Decision {
	if user == nil {
		return deny(ActionManageUsers, ReasonUnauthenticatedUser)
	}
	if !AtLeast(user.Role, models.RoleAdmin) {
		return deny(ActionManageUsers, ReasonAdminRequired)
	}
	return allow(ActionManageUsers)
}

// CanManageUser gates user management on a specific target user
func CanManageUser(actor, target *models.User) Decision {
	if d := CanManageUsers(actor); !d.Allowed {
		return d
	}
	if target == nil || !SameOrganization(actor, target.OrganizationID) {
		return deny(ActionManageUsers, ReasonUserOtherOrg)
	}
	return allow(ActionManageUsers)
}

// CanDeactivateUser forbids deactivating one's own account
func CanDeactivateUser(actor, target *models.User) Decision {
	if d := CanManageUser(actor, target); !d.Allowed {
		return Decision{Action: ActionDeactivateUser, Reason: d.Reason}
	}
	if actor.ID == target.ID {
		return deny(ActionDeactivateUser, ReasonSelfDeactivate)
	}
	return allow(ActionDeactivateUser)
}

// CanDeleteUser forbids deleting one's own account
func CanDeleteUser(actor, target *models.User) Decision {
	if d := CanManageUser(actor, target); !d.Allowed {
		return Decision{Action: ActionDeleteUser, Reason: d.Reason}
	}
	if actor.ID == target.ID {
		return deny(ActionDeleteUser, ReasonSelfDelete)
	}
	return allow(ActionDeleteUser)
}
