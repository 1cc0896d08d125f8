package orgs

import (
	"context"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/platinummonkey/taskboard/pkg/apperr"
	"github.com/platinummonkey/taskboard/pkg/audit"
	"github.com/platinummonkey/taskboard/pkg/models"
	"github.com/platinummonkey/taskboard/pkg/observability"
	"github.com/platinummonkey/taskboard/pkg/query"
	"github.com/platinummonkey/taskboard/pkg/rbac"
	"github.com/platinummonkey/taskboard/pkg/storage"
)

const (
	resource = "Organization"

	// generated codes are retried this many times on collision
	maxCodeAttempts = 5

	messageInvalidCode = "Invalid organization code"
	messageEmailTaken  = "A user with this email already exists"
)

// TokenIssuer mints a bearer token for a newly registered administrator
type TokenIssuer interface {
	Issue(userID string) (string, time.Time, error)
}

// Service registers organizations and their users
type Service struct {
	store      storage.Store
	visibility *rbac.Visibility
	enforcer   *rbac.Enforcer
	tokens     TokenIssuer
	audit      audit.Logger
	now        func() time.Time
}

// NewService creates an organization service. tokens may be nil.
func NewService(store storage.Store, visibility *rbac.Visibility, enforcer *rbac.Enforcer, tokens TokenIssuer, auditLog audit.Logger) *Service {
	return &Service{
		store:      store,
		visibility: visibility,
		enforcer:   enforcer,
		tokens:     tokens,
		audit:      audit.OrNoOp(auditLog),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Register creates an active organization and its approved administrator.
// A supplied code must be valid and unused; otherwise a fresh one is generated.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*RegisterResult, error) {
	in.normalize()
	if err := validate.Struct(&in); err != nil {
		return nil, err
	}
	if err := s.ensureEmailFree(ctx, in.AdminEmail); err != nil {
		return nil, err
	}

	now := s.now()
	org := &models.Organization{
		ID:        uuid.NewString(),
		Name:      in.OrganizationName,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	admin := &models.User{
		ID:             uuid.NewString(),
		Name:           in.AdminName,
		Email:          in.AdminEmail,
		Role:           models.RoleAdmin,
		OrganizationID: org.ID,
		IsActive:       true,
		IsApproved:     true,
		ApprovedAt:     &now,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	org.AdminID = admin.ID

	if err := s.createOrganization(ctx, org, in.Code); err != nil {
		return nil, err
	}
	if err := s.store.CreateUser(ctx, admin); err != nil {
		// The organization stays behind without a usable admin
		observability.FromContext(ctx).WithError(err).
			WithField("organization_id", org.ID).
			Error("failed to create organization admin")
		if storage.IsConflict(err) {
			return nil, apperr.Conflict(messageEmailTaken)
		}
		return nil, apperr.FromStorage(err, "User")
	}

	result := &RegisterResult{Organization: org, Admin: admin}
	if s.tokens != nil {
		token, exp, err := s.tokens.Issue(admin.ID)
		if err != nil {
			return nil, apperr.Internal("failed to issue token", err)
		}
		result.Token = token
		result.ExpiresAt = &exp
	}

	s.record(ctx, &audit.AuditEvent{
		EventType:      audit.EventTypeOrgRegister,
		Status:         audit.EventStatusSuccess,
		UserID:         admin.ID,
		OrganizationID: org.ID,
		ResourceType:   audit.ResourceTypeOrganization,
		ResourceID:     org.ID,
		Message:        "organization registered",
		Metadata:       map[string]interface{}{"code": org.Code},
	})
	return result, nil
}

// createOrganization stores org under a validated code, generating codes
// when none was supplied
func (s *Service) createOrganization(ctx context.Context, org *models.Organization, code string) error {
	if code != "" {
		org.Code = code
		if err := s.store.CreateOrganization(ctx, org); err != nil {
			if storage.IsConflict(err) {
				return apperr.Conflict("Organization code already in use")
			}
			return apperr.FromStorage(err, resource)
		}
		return nil
	}

	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		generated, err := GenerateCode()
		if err != nil {
			return apperr.Internal("failed to create organization", err)
		}
		org.Code = generated
		err = s.store.CreateOrganization(ctx, org)
		if err == nil {
			return nil
		}
		if !storage.IsConflict(err) {
			return apperr.FromStorage(err, resource)
		}
	}
	return apperr.Internal("failed to create organization", storage.ErrConflict)
}

// Join registers a pending team member into the organization named by code.
// The account cannot sign in until an administrator approves it.
func (s *Service) Join(ctx context.Context, in JoinInput) (*models.User, error) {
	in.normalize()
	if err := validate.Struct(&in); err != nil {
		return nil, err
	}

	org, err := s.store.GetOrganizationByCode(ctx, in.Code)
	if err != nil {
		if storage.IsNotFound(err) {
			return nil, apperr.Invalid(messageInvalidCode)
		}
		return nil, apperr.FromStorage(err, resource)
	}
	// Inactive organizations are indistinguishable from unknown codes
	if !org.IsActive {
		return nil, apperr.Invalid(messageInvalidCode)
	}
	if err := s.ensureEmailFree(ctx, in.Email); err != nil {
		return nil, err
	}

	now := s.now()
	user := &models.User{
		ID:             uuid.NewString(),
		Name:           in.Name,
		Email:          in.Email,
		Role:           models.RoleTeamMember,
		OrganizationID: org.ID,
		IsActive:       true,
		IsApproved:     false,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		if storage.IsConflict(err) {
			return nil, apperr.Conflict(messageEmailTaken)
		}
		return nil, apperr.FromStorage(err, "User")
	}

	s.record(ctx, &audit.AuditEvent{
		EventType:      audit.EventTypeUserRegister,
		Status:         audit.EventStatusSuccess,
		UserID:         user.ID,
		OrganizationID: org.ID,
		ResourceType:   audit.ResourceTypeUser,
		ResourceID:     user.ID,
		Message:        "registration pending approval",
	})
	return user, nil
}

// Dashboard counts the users, projects and tasks of the administrator's
// organization
func (s *Service) Dashboard(ctx context.Context, admin *models.User) (*Dashboard, error) {
	if err := s.enforcer.Enforce(ctx, admin, rbac.CanManageUsers(admin), audit.ResourceTypeOrganization, admin.OrganizationID); err != nil {
		return nil, err
	}
	org, err := s.store.GetOrganization(ctx, admin.OrganizationID)
	if err != nil {
		return nil, apperr.FromStorage(err, resource)
	}
	taskScope, err := s.visibility.TaskOrganizationScope(ctx, admin)
	if err != nil {
		return nil, apperr.FromStorage(err, "Project")
	}

	orgUsers := rbac.OrganizationScope(admin)
	orgProjects := rbac.OrganizationScope(admin)
	d := &Dashboard{
		Organization:     org,
		ProjectsByStatus: make(map[models.ProjectStatus]int),
		TasksByStatus:    make(map[models.TaskStatus]int),
	}

	// every counter writes to its own variable
	projectStatuses := []models.ProjectStatus{
		models.ProjectStatusPlanning, models.ProjectStatusActive, models.ProjectStatusOnHold,
		models.ProjectStatusCompleted, models.ProjectStatusCancelled,
	}
	projectCounts := make([]int, len(projectStatuses))
	taskCounts := make([]int, len(models.TaskStatuses))

	g, gctx := errgroup.WithContext(ctx)
	count := func(dst *int, fn func(context.Context) (int, error)) {
		g.Go(func() error {
			n, err := fn(gctx)
			*dst = n
			return err
		})
	}
	userCount := func(cond query.Cond) func(context.Context) (int, error) {
		return func(ctx context.Context) (int, error) {
			return s.store.CountUsers(ctx, query.And(orgUsers, cond))
		}
	}

	count(&d.Users.Total, userCount(query.All()))
	count(&d.Users.Active, userCount(query.And(
		query.Eq(models.UserFieldIsActive, "true"),
		query.Eq(models.UserFieldIsApproved, "true"),
	)))
	count(&d.Users.Pending, userCount(query.Eq(models.UserFieldIsApproved, "false")))
	count(&d.Users.Inactive, userCount(query.Eq(models.UserFieldIsActive, "false")))
	count(&d.Projects, func(ctx context.Context) (int, error) {
		return s.store.CountProjects(ctx, orgProjects)
	})
	count(&d.Tasks, func(ctx context.Context) (int, error) {
		return s.store.CountTasks(ctx, taskScope)
	})
	for i, status := range projectStatuses {
		cond := query.And(orgProjects, query.Eq(models.ProjectFieldStatus, string(status)))
		count(&projectCounts[i], func(ctx context.Context) (int, error) {
			return s.store.CountProjects(ctx, cond)
		})
	}
	for i, status := range models.TaskStatuses {
		cond := query.And(taskScope, query.Eq(models.TaskFieldStatus, string(status)))
		count(&taskCounts[i], func(ctx context.Context) (int, error) {
			return s.store.CountTasks(ctx, cond)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, apperr.Internal("failed to load dashboard", err)
	}

	for i, status := range projectStatuses {
		d.ProjectsByStatus[status] = projectCounts[i]
	}
	for i, status := range models.TaskStatuses {
		d.TasksByStatus[status] = taskCounts[i]
	}
	return d, nil
}

func (s *Service) ensureEmailFree(ctx context.Context, email string) error {
	_, err := s.store.GetUserByEmail(ctx, email)
	if err == nil {
		return apperr.Conflict(messageEmailTaken)
	}
	if !storage.IsNotFound(err) {
		return apperr.FromStorage(err, "User")
	}
	return nil
}

func (s *Service) record(ctx context.Context, event *audit.AuditEvent) {
	if err := s.audit.Log(ctx, event); err != nil {
		observability.FromContext(ctx).WithError(err).Warn("failed to write audit event")
	}
}
