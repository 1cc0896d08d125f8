package models

import "time"

// ProjectRole is the sub-role of a member within one project
type ProjectRole string

const (
	ProjectRoleNone      ProjectRole = ""
	ProjectRoleMember    ProjectRole = "member"
	ProjectRoleDeveloper ProjectRole = "developer"
	ProjectRoleManager   ProjectRole = "manager"
	ProjectRoleViewer    ProjectRole = "viewer"
)

// Valid reports whether the sub-role can be stored on a member entry
func (r ProjectRole) Valid() bool {
	switch r {
	case ProjectRoleMember, ProjectRoleDeveloper, ProjectRoleManager, ProjectRoleViewer:
		return true
	}
	return false
}

// ProjectStatus is the lifecycle state of a project
type ProjectStatus string

const (
	ProjectStatusPlanning  ProjectStatus = "planning"
	ProjectStatusActive    ProjectStatus = "active"
	ProjectStatusOnHold    ProjectStatus = "on-hold"
	ProjectStatusCompleted ProjectStatus = "completed"
	ProjectStatusCancelled ProjectStatus = "cancelled"
)

// Valid reports whether the status is known
func (s ProjectStatus) Valid() bool {
	switch s {
	case ProjectStatusPlanning, ProjectStatusActive, ProjectStatusOnHold, ProjectStatusCompleted, ProjectStatusCancelled:
		return true
	}
	return false
}

// Visibility is informational; it never widens access
type Visibility string

const (
	VisibilityPrivate Visibility = "private"
	VisibilityTeam    Visibility = "team"
	VisibilityPublic  Visibility = "public"
)

// Valid reports whether the visibility is known
func (v Visibility) Valid() bool {
	switch v {
	case VisibilityPrivate, VisibilityTeam, VisibilityPublic:
		return true
	}
	return false
}

// Project fields usable in filters
const (
	ProjectFieldID             = "id"
	ProjectFieldName           = "name"
	ProjectFieldDescription    = "description"
	ProjectFieldOwner          = "owner"
	ProjectFieldCreatedBy      = "created_by"
	ProjectFieldProjectLead    = "project_lead"
	ProjectFieldOrganizationID = "organization_id"
	ProjectFieldMemberUser     = "members.user"
	ProjectFieldStatus         = "status"
)

// Member is an explicit entry in a project's member list
type Member struct {
	UserID   string      `json:"user"`
	Role     ProjectRole `json:"role"`
	JoinedAt time.Time   `json:"joined_at"`
}

// Project groups tasks and the users working on them
type Project struct {
	ID             string        `json:"id"`
	Name           string        `json:"name"`
	Description    string        `json:"description"`
	Owner          string        `json:"owner"`
	CreatedBy      string        `json:"created_by"`
	ProjectLead    string        `json:"project_lead,omitempty"`
	OrganizationID string        `json:"organization_id"`
	Members        []Member      `json:"members"`
	Status         ProjectStatus `json:"status"`
	Visibility     Visibility    `json:"visibility"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
}

// FieldValues implements query.Document
func (p *Project) FieldValues(field string) []string {
	switch field {
	case ProjectFieldID:
		return []string{p.ID}
	case ProjectFieldName:
		return []string{p.Name}
	case ProjectFieldDescription:
		return []string{p.Description}
	case ProjectFieldOwner:
		return []string{p.Owner}
	case ProjectFieldCreatedBy:
		return []string{p.CreatedBy}
	case ProjectFieldProjectLead:
		if p.ProjectLead == "" {
			return nil
		}
		return []string{p.ProjectLead}
	case ProjectFieldOrganizationID:
		return []string{p.OrganizationID}
	case ProjectFieldMemberUser:
		ids := make([]string, 0, len(p.Members))
		for _, m := range p.Members {
			ids = append(ids, m.UserID)
		}
		return ids
	case ProjectFieldStatus:
		return []string{string(p.Status)}
	}
	return nil
}

// UpsertMember adds a member or updates the sub-role of an existing one.
// It reports whether a new entry was added.
func (p *Project) UpsertMember(userID string, role ProjectRole, now time.Time) bool {
	for i := range p.Members {
		if p.Members[i].UserID == userID {
			p.Members[i].Role = role
			return false
		}
	}
	p.Members = append(p.Members, Member{UserID: userID, Role: role, JoinedAt: now})
	return true
}

// RemoveMember pulls a user from the member list and reports whether it was present
func (p *Project) RemoveMember(userID string) bool {
	for i := range p.Members {
		if p.Members[i].UserID == userID {
			p.Members = append(p.Members[:i], p.Members[i+1:]...)
			return true
		}
	}
	return false
}

// Clone returns a deep copy of the project
func (p *Project) Clone() *Project {
	if p == nil {
		return nil
	}
	cp := *p
	cp.Members = make([]Member, len(p.Members))
	copy(cp.Members, p.Members)
	return &cp
}
