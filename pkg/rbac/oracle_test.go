package rbac

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/platinummonkey/taskboard/pkg/models"
)

func TestOwnerIsAlwaysMember(t *testing.T) {
	owner := &models.User{ID: "u1", Role: models.RoleProjectLead}
	project := &models.Project{ID: "p1", Owner: "u1"}

	assert.True(t, IsOwner(owner, project))
	assert.False(t, IsListedMember(owner, project))
	assert.True(t, IsMember(owner, project))
	assert.Equal(t, models.ProjectRoleNone, MemberSubRole(owner, project))
}

func TestMemberSubRole(t *testing.T) {
	project := &models.Project{
		ID:    "p1",
		Owner: "owner",
		Members: []models.Member{
			{UserID: "dev", Role: models.ProjectRoleDeveloper},
			{UserID: "legacy"},
		},
	}

	assert.Equal(t, models.ProjectRoleDeveloper, MemberSubRole(&models.User{ID: "dev"}, project))
	assert.Equal(t, models.ProjectRoleMember, MemberSubRole(&models.User{ID: "legacy"}, project))
	assert.Equal(t, models.ProjectRoleNone, MemberSubRole(&models.User{ID: "stranger"}, project))
	assert.Equal(t, models.ProjectRoleNone, MemberSubRole(nil, project))
	assert.Equal(t, models.ProjectRoleNone, MemberSubRole(&models.User{ID: "dev"}, nil))
}

func TestEmptyIDNeverMatchesOwner(t *testing.T) {
	project := &models.Project{ID: "p1"}
	assert.False(t, IsOwner(&models.User{}, project))
	assert.False(t, IsProjectMemberID("", project))
}
