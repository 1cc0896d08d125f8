// Package projects implements project operations on top of the access
// decisions in pkg/rbac.
//
// Every operation on an existing project reloads it from the store before
// deciding, so membership changes made by other requests take effect
// immediately.
package projects

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/platinummonkey/taskboard/pkg/apperr"
	"github.com/platinummonkey/taskboard/pkg/audit"
	"github.com/platinummonkey/taskboard/pkg/cascade"
	"github.com/platinummonkey/taskboard/pkg/models"
	"github.com/platinummonkey/taskboard/pkg/query"
	"github.com/platinummonkey/taskboard/pkg/rbac"
	"github.com/platinummonkey/taskboard/pkg/storage"
	"github.com/platinummonkey/taskboard/pkg/validation"
)

const resource = "Project"

// Service manages projects and their member lists
type Service struct {
	store    storage.Store
	cascade  *cascade.Coordinator
	enforcer *rbac.Enforcer
	now      func() time.Time
}

// NewService creates a project service
func NewService(store storage.Store, coordinator *cascade.Coordinator, enforcer *rbac.Enforcer) *Service {
	return &Service{
		store:    store,
		cascade:  coordinator,
		enforcer: enforcer,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// load fetches a project, mapping a missing id to NotFound
func (s *Service) load(ctx context.Context, id string) (*models.Project, error) {
	project, err := s.store.GetProject(ctx, id)
	if err != nil {
		return nil, apperr.FromStorage(err, resource)
	}
	return project, nil
}

// List returns the page of projects visible to user
func (s *Service) List(ctx context.Context, user *models.User, opts ListOptions) (*query.Result[*models.Project], error) {
	if err := validation.Struct(&opts); err != nil {
		return nil, err
	}
	cond := query.And(
		rbac.ScopedProjects(user),
		query.Search(opts.Search, models.ProjectFieldName, models.ProjectFieldDescription),
	)
	if opts.Status != "" {
		cond = query.And(cond, query.Eq(models.ProjectFieldStatus, string(opts.Status)))
	}

	page := query.NewPage(opts.Page.Page, opts.Page.Limit)
	items, total, err := s.store.FindProjects(ctx, cond, page)
	if err != nil {
		return nil, apperr.FromStorage(err, resource)
	}
	if items == nil {
		items = []*models.Project{}
	}
	return &query.Result[*models.Project]{Items: items, Page: page.Page, Limit: page.Limit, Total: total}, nil
}

// Get returns one project if user may view it
func (s *Service) Get(ctx context.Context, user *models.User, id string) (*models.Project, error) {
	project, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.enforcer.Enforce(ctx, user, rbac.CanViewProject(user, project), audit.ResourceTypeProject, id); err != nil {
		return nil, err
	}
	return project, nil
}

// Create makes user the owner and creator of a new project in their organization
func (s *Service) Create(ctx context.Context, user *models.User, in CreateInput) (*models.Project, error) {
	if err := s.enforcer.Enforce(ctx, user, rbac.CanCreateProject(user), audit.ResourceTypeProject, ""); err != nil {
		return nil, err
	}

	in.normalize()
	if err := validation.Struct(&in); err != nil {
		return nil, err
	}
	status := in.Status
	if status == "" {
		status = models.ProjectStatusPlanning
	}
	visibility := in.Visibility
	if visibility == "" {
		visibility = models.VisibilityTeam
	}

	now := s.now()
	project := &models.Project{
		ID:             uuid.NewString(),
		Name:           in.Name,
		Description:    in.Description,
		Owner:          user.ID,
		CreatedBy:      user.ID,
		OrganizationID: user.OrganizationID,
		Members:        []models.Member{},
		Status:         status,
		Visibility:     visibility,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	for _, m := range in.Members {
		role, err := s.checkMember(ctx, user, m)
		if err != nil {
			return nil, err
		}
		project.UpsertMember(m.UserID, role, now)
	}
	if lead := in.ProjectLead; lead != "" {
		if err := s.checkLead(ctx, user, lead); err != nil {
			return nil, err
		}
		project.ProjectLead = lead
		// The lead manages the project through its member entry
		project.UpsertMember(lead, models.ProjectRoleManager, now)
	}

	if err := s.store.CreateProject(ctx, project); err != nil {
		return nil, apperr.FromStorage(err, resource)
	}
	return project, nil
}

// Update changes project attributes if user may modify the project
func (s *Service) Update(ctx context.Context, user *models.User, id string, in UpdateInput) (*models.Project, error) {
	project, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.enforcer.Enforce(ctx, user, rbac.CanModifyProject(user, project), audit.ResourceTypeProject, id); err != nil {
		return nil, err
	}

	in.normalize()
	if err := validation.Struct(&in); err != nil {
		return nil, err
	}
	if in.Name != nil {
		project.Name = *in.Name
	}
	if in.Description != nil {
		project.Description = *in.Description
	}
	if in.Status != nil {
		project.Status = *in.Status
	}
	if in.Visibility != nil {
		project.Visibility = *in.Visibility
	}
	if in.ProjectLead != nil {
		lead := *in.ProjectLead
		if lead != "" {
			if err := s.checkLead(ctx, user, lead); err != nil {
				return nil, err
			}
			if !rbac.IsProjectMemberID(lead, project) {
				if err := s.store.UpsertMember(ctx, id, models.Member{UserID: lead, Role: models.ProjectRoleManager, JoinedAt: s.now()}); err != nil {
					return nil, apperr.FromStorage(err, resource)
				}
			}
		}
		project.ProjectLead = lead
	}

	project.UpdatedAt = s.now()
	if err := s.store.UpdateProject(ctx, project); err != nil {
		return nil, apperr.FromStorage(err, resource)
	}
	return s.load(ctx, id)
}

// Delete removes the project and, before it, every task of the project
func (s *Service) Delete(ctx context.Context, user *models.User, id string) (*cascade.ProjectCascadeResult, error) {
	project, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.enforcer.Enforce(ctx, user, rbac.CanDeleteProject(user, project), audit.ResourceTypeProject, id); err != nil {
		return nil, err
	}

	result, err := s.cascade.DeleteProject(ctx, user, id)
	if err != nil {
		return nil, apperr.FromStorage(err, resource)
	}
	return result, nil
}

// AddMember adds a user to the project, or updates the sub-role of an
// existing member
func (s *Service) AddMember(ctx context.Context, user *models.User, projectID string, in MemberInput) (*models.Project, error) {
	project, err := s.load(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if err := s.enforcer.Enforce(ctx, user, rbac.CanManageMembers(user, project), audit.ResourceTypeProject, projectID); err != nil {
		return nil, err
	}

	in.normalize()
	role, err := s.checkMember(ctx, user, in)
	if err != nil {
		return nil, err
	}
	member := models.Member{UserID: in.UserID, Role: role, JoinedAt: s.now()}
	if err := s.store.UpsertMember(ctx, projectID, member); err != nil {
		return nil, apperr.FromStorage(err, resource)
	}
	return s.load(ctx, projectID)
}

// RemoveMember takes a user off the member list. The owner stays an
// implicit member and cannot be removed.
func (s *Service) RemoveMember(ctx context.Context, user *models.User, projectID, userID string) (*models.Project, error) {
	project, err := s.load(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if err := s.enforcer.Enforce(ctx, user, rbac.CanManageMembers(user, project), audit.ResourceTypeProject, projectID); err != nil {
		return nil, err
	}

	if userID == project.Owner {
		return nil, apperr.Invalid("The project owner cannot be removed")
	}
	if !rbac.IsListedMember(&models.User{ID: userID}, project) {
		return nil, apperr.NotFound("Member")
	}
	if err := s.store.PullMember(ctx, projectID, userID); err != nil {
		return nil, apperr.FromStorage(err, resource)
	}
	return s.load(ctx, projectID)
}

// checkMember validates a member entry: the user must exist in the
// caller's organization and the sub-role must be known
func (s *Service) checkMember(ctx context.Context, user *models.User, in MemberInput) (models.ProjectRole, error) {
	if err := validation.Struct(&in); err != nil {
		return "", err
	}
	role := in.Role
	if role == models.ProjectRoleNone {
		role = models.ProjectRoleMember
	}

	target, err := s.store.GetUser(ctx, in.UserID)
	if err != nil {
		return "", apperr.FromStorage(err, "User")
	}
	// Users of other organizations present as missing
	if !rbac.SameOrganization(user, target.OrganizationID) {
		return "", apperr.NotFound("User")
	}
	if !target.CanSignIn() {
		return "", apperr.Invalid("Only active, approved users can be added to a project")
	}
	return role, nil
}

func (s *Service) checkLead(ctx context.Context, user *models.User, leadID string) error {
	lead, err := s.store.GetUser(ctx, leadID)
	if err != nil {
		return apperr.FromStorage(err, "User")
	}
	if !rbac.SameOrganization(user, lead.OrganizationID) {
		return apperr.NotFound("User")
	}
	if !lead.CanSignIn() {
		return apperr.Invalid("Only active, approved users can lead a project")
	}
	return nil
}
