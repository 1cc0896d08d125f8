package rbac

import "github.com/platinummonkey/taskboard/pkg/models"

// IsOwner reports whether the user owns the project
func IsOwner(user *models.User, project *models.Project) bool {
	if user == nil || project == nil || user.ID == "" {
		return false
	}
	return project.Owner == user.ID
}

// IsListedMember reports whether the user appears in the project's member list
func IsListedMember(user *models.User, project *models.Project) bool {
	return MemberSubRole(user, project) != models.ProjectRoleNone
}

// IsMember reports effective membership: owners are members even when
// absent from the member list.
func IsMember(user *models.User, project *models.Project) bool {
	return IsOwner(user, project) || IsListedMember(user, project)
}

// MemberSubRole returns the user's explicit sub-role, or ProjectRoleNone
func MemberSubRole(user *models.User, project *models.Project) models.ProjectRole {
	if user == nil || project == nil || user.ID == "" {
		return models.ProjectRoleNone
	}
	for _, m := range project.Members {
		if m.UserID == user.ID {
			if m.Role == models.ProjectRoleNone {
				// stored without a sub-role
				return models.ProjectRoleMember
			}
			return m.Role
		}
	}
	return models.ProjectRoleNone
}

// IsProjectMemberID reports whether userID is an effective member of the project
func IsProjectMemberID(userID string, project *models.Project) bool {
	if userID == "" {
		return false
	}
	return IsMember(&models.User{ID: userID}, project)
}
