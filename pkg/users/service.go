// Package users implements user listing and the administrator's user
// management operations. Every operation is confined to the caller's
// organization; users of other organizations present as missing.
package users

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/platinummonkey/taskboard/pkg/apperr"
	"github.com/platinummonkey/taskboard/pkg/audit"
	"github.com/platinummonkey/taskboard/pkg/cascade"
	"github.com/platinummonkey/taskboard/pkg/models"
	"github.com/platinummonkey/taskboard/pkg/observability"
	"github.com/platinummonkey/taskboard/pkg/query"
	"github.com/platinummonkey/taskboard/pkg/rbac"
	"github.com/platinummonkey/taskboard/pkg/storage"
	"github.com/platinummonkey/taskboard/pkg/validation"
)

const resource = "User"

// Service manages users
type Service struct {
	store    storage.Store
	cascade  *cascade.Coordinator
	enforcer *rbac.Enforcer
	audit    audit.Logger
	now      func() time.Time
}

// NewService creates a user service
func NewService(store storage.Store, coordinator *cascade.Coordinator, enforcer *rbac.Enforcer, auditLog audit.Logger) *Service {
	return &Service{
		store:    store,
		cascade:  coordinator,
		enforcer: enforcer,
		audit:    audit.OrNoOp(auditLog),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// List returns the page of users visible to user. Administrators also see
// pending and deactivated accounts.
func (s *Service) List(ctx context.Context, user *models.User, opts ListOptions) (*query.Result[*models.User], error) {
	if err := validation.Struct(&opts); err != nil {
		return nil, err
	}
	cond := query.And(
		rbac.ScopedUsers(user),
		query.Search(opts.Search, models.UserFieldName, models.UserFieldEmail),
	)
	if opts.Role != "" {
		cond = query.And(cond, query.Eq(models.UserFieldRole, string(opts.Role)))
	}
	return s.find(ctx, cond, opts.Page)
}

// Pending lists the accounts of the administrator's organization that
// are waiting for approval
func (s *Service) Pending(ctx context.Context, admin *models.User, page query.Page) (*query.Result[*models.User], error) {
	if err := s.enforcer.Enforce(ctx, admin, rbac.CanManageUsers(admin), audit.ResourceTypeUser, ""); err != nil {
		return nil, err
	}
	cond := query.And(
		rbac.OrganizationScope(admin),
		query.Eq(models.UserFieldIsApproved, "false"),
	)
	return s.find(ctx, cond, page)
}

func (s *Service) find(ctx context.Context, cond query.Cond, page query.Page) (*query.Result[*models.User], error) {
	page = query.NewPage(page.Page, page.Limit)
	items, total, err := s.store.FindUsers(ctx, cond, page)
	if err != nil {
		return nil, apperr.FromStorage(err, resource)
	}
	if items == nil {
		items = []*models.User{}
	}
	return &query.Result[*models.User]{Items: items, Page: page.Page, Limit: page.Limit, Total: total}, nil
}

// target gates on the administrator role first, then loads the target
// user. Users of another organization are reported as missing.
func (s *Service) target(ctx context.Context, admin *models.User, id string) (*models.User, error) {
	if err := s.enforcer.Enforce(ctx, admin, rbac.CanManageUsers(admin), audit.ResourceTypeUser, id); err != nil {
		return nil, err
	}
	user, err := s.store.GetUser(ctx, id)
	if err != nil {
		return nil, apperr.FromStorage(err, resource)
	}
	if !rbac.SameOrganization(admin, user.OrganizationID) {
		return nil, apperr.NotFound(resource)
	}
	return user, nil
}

// Create adds an approved, active user to the administrator's organization
func (s *Service) Create(ctx context.Context, admin *models.User, in CreateInput) (*models.User, error) {
	if err := s.enforcer.Enforce(ctx, admin, rbac.CanManageUsers(admin), audit.ResourceTypeUser, ""); err != nil {
		return nil, err
	}

	in.normalize()
	if err := validation.Struct(&in); err != nil {
		return nil, err
	}
	role := in.Role
	if role == "" {
		role = models.RoleTeamMember
	}

	now := s.now()
	user := &models.User{
		ID:             uuid.NewString(),
		Name:           in.Name,
		Email:          in.Email,
		Role:           role,
		OrganizationID: admin.OrganizationID,
		IsActive:       true,
		IsApproved:     true,
		ApprovedBy:     admin.ID,
		ApprovedAt:     &now,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		if storage.IsConflict(err) {
			return nil, apperr.Conflict("A user with this email already exists")
		}
		return nil, apperr.FromStorage(err, resource)
	}
	s.record(ctx, audit.AdminAction(audit.EventTypeAdminUserCreate, admin, user.ID, "user created"))
	return user, nil
}

// Update changes a user's profile, role or active flag. Administrators
// cannot deactivate themselves or change their own role.
func (s *Service) Update(ctx context.Context, admin *models.User, id string, in UpdateInput) (*models.User, error) {
	user, err := s.target(ctx, admin, id)
	if err != nil {
		return nil, err
	}
	if err := s.enforcer.Enforce(ctx, admin, rbac.CanManageUser(admin, user), audit.ResourceTypeUser, id); err != nil {
		return nil, err
	}

	in.normalize()
	if err := validation.Struct(&in); err != nil {
		return nil, err
	}
	if in.Name != nil {
		user.Name = *in.Name
	}
	if in.Email != nil {
		user.Email = *in.Email
	}
	if in.Role != nil && *in.Role != user.Role {
		if user.ID == admin.ID {
			return nil, apperr.Forbidden(ReasonSelfRoleChange)
		}
		user.Role = *in.Role
	}
	deactivated := false
	if in.IsActive != nil && *in.IsActive != user.IsActive {
		if !*in.IsActive {
			if err := s.enforcer.Enforce(ctx, admin, rbac.CanDeactivateUser(admin, user), audit.ResourceTypeUser, id); err != nil {
				return nil, err
			}
			deactivated = true
		}
		user.IsActive = *in.IsActive
	}

	user.UpdatedAt = s.now()
	if err := s.store.UpdateUser(ctx, user); err != nil {
		if storage.IsConflict(err) {
			return nil, apperr.Conflict("A user with this email already exists")
		}
		return nil, apperr.FromStorage(err, resource)
	}

	eventType := audit.EventTypeAdminUserUpdate
	if deactivated {
		eventType = audit.EventTypeAdminUserDeactivate
	}
	s.record(ctx, audit.AdminAction(eventType, admin, id, "user updated"))
	return user, nil
}

// Approve activates a pending registration
func (s *Service) Approve(ctx context.Context, admin *models.User, id string) (*models.User, error) {
	user, err := s.target(ctx, admin, id)
	if err != nil {
		return nil, err
	}
	if err := s.enforcer.Enforce(ctx, admin, rbac.CanManageUser(admin, user), audit.ResourceTypeUser, id); err != nil {
		return nil, err
	}
	if user.IsApproved {
		return nil, apperr.Invalid("User is already approved")
	}

	now := s.now()
	user.IsApproved = true
	user.IsActive = true
	user.ApprovedBy = admin.ID
	user.ApprovedAt = &now
	user.UpdatedAt = now
	if err := s.store.UpdateUser(ctx, user); err != nil {
		return nil, apperr.FromStorage(err, resource)
	}
	s.record(ctx, audit.AdminAction(audit.EventTypeAdminUserApprove, admin, id, "registration approved"))
	return user, nil
}

// Reject removes a pending registration. Pending accounts cannot be
// members or assignees, but the removal still runs the user cascade so a
// reference written by any other path is cleaned up with it.
func (s *Service) Reject(ctx context.Context, admin *models.User, id string) error {
	user, err := s.target(ctx, admin, id)
	if err != nil {
		return err
	}
	if err := s.enforcer.Enforce(ctx, admin, rbac.CanManageUser(admin, user), audit.ResourceTypeUser, id); err != nil {
		return err
	}
	if user.IsApproved {
		return apperr.Invalid("Only pending registrations can be rejected")
	}

	if _, err := s.cascade.DeleteUser(ctx, admin, id); err != nil {
		return apperr.FromStorage(err, resource)
	}
	s.record(ctx, audit.AdminAction(audit.EventTypeAdminUserReject, admin, id, "registration rejected"))
	return nil
}

// Delete removes a user and every reference to them
func (s *Service) Delete(ctx context.Context, admin *models.User, id string) (*cascade.UserCascadeResult, error) {
	user, err := s.target(ctx, admin, id)
	if err != nil {
		return nil, err
	}
	if err := s.enforcer.Enforce(ctx, admin, rbac.CanDeleteUser(admin, user), audit.ResourceTypeUser, id); err != nil {
		return nil, err
	}

	result, err := s.cascade.DeleteUser(ctx, admin, id)
	if err != nil {
		return nil, apperr.FromStorage(err, resource)
	}
	s.record(ctx, audit.AdminAction(audit.EventTypeAdminUserDelete, admin, id, "user deleted"))
	return result, nil
}

func (s *Service) record(ctx context.Context, event *audit.AuditEvent) {
	if err := s.audit.Log(ctx, event); err != nil {
		observability.FromContext(ctx).WithError(err).Warn("failed to write audit event")
	}
}
