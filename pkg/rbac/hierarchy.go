package rbac

import "github.com/platinummonkey/taskboard/pkg/models"

// roleLevels is the single source of truth for role rank
var roleLevels = map[models.Role]int{
	models.RoleTeamMember:     1,
	models.RoleProjectLead:    2,
	models.RoleDepartmentHead: 3,
	models.RoleAdmin:          4,
}

// Level returns the rank of a role. Unknown roles rank 0.
func Level(role models.Role) int {
	return roleLevels[role]
}

// AtLeast reports whether role ranks at or above minRole.
// Unknown roles fail every check, including against another unknown role.
func AtLeast(role, minRole models.Role) bool {
	level := Level(role)
	if level == 0 {
		return false
	}
	return level >= Level(minRole)
}
