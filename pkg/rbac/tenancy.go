package rbac

import (
	"github.com/platinummonkey/taskboard/pkg/models"
	"github.com/platinummonkey/taskboard/pkg/query"
)

// SameOrganization reports whether a resource's organization matches the user's
func SameOrganization(user *models.User, organizationID string) bool {
	if user == nil {
		return false
	}
	return user.OrganizationID == organizationID
}

// OrganizationScope restricts users or projects to the principal's organization.
// Both models store the tenant under the same field name.
func OrganizationScope(user *models.User) query.Cond {
	if user == nil {
		return query.None()
	}
	return query.Eq(models.ProjectFieldOrganizationID, user.OrganizationID)
}
