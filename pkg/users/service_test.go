package users

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/taskboard/pkg/apperr"
	"github.com/platinummonkey/taskboard/pkg/audit"
	"github.com/platinummonkey/taskboard/pkg/cascade"
	"github.com/platinummonkey/taskboard/pkg/models"
	"github.com/platinummonkey/taskboard/pkg/query"
	"github.com/platinummonkey/taskboard/pkg/rbac"
	"github.com/platinummonkey/taskboard/pkg/storage"
	"github.com/platinummonkey/taskboard/pkg/storage/memory"
)

type fixture struct {
	store *memory.Store
	svc   *Service
	audit *audit.MemoryLogger
	users map[string]*models.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	store := memory.New()
	sink := audit.NewMemoryLogger()
	f := &fixture{
		store: store,
		svc:   NewService(store, cascade.NewCoordinator(store, nil, nil), rbac.NewEnforcer(nil, nil), sink),
		audit: sink,
		users: map[string]*models.User{},
	}

	for _, u := range []*models.User{
		{ID: "admin", Name: "Ada", Role: models.RoleAdmin, OrganizationID: "org-a", IsActive: true, IsApproved: true},
		{ID: "dh", Name: "Dana", Role: models.RoleDepartmentHead, OrganizationID: "org-a", IsActive: true, IsApproved: true},
		{ID: "tm", Name: "Tom", Role: models.RoleTeamMember, OrganizationID: "org-a", IsActive: true, IsApproved: true},
		{ID: "inactive", Name: "Ivy", Role: models.RoleTeamMember, OrganizationID: "org-a", IsActive: false, IsApproved: true},
		{ID: "pending", Name: "Pat", Role: models.RoleTeamMember, OrganizationID: "org-a", IsActive: true},
		{ID: "other-admin", Name: "Otto", Role: models.RoleAdmin, OrganizationID: "org-b", IsActive: true, IsApproved: true},
		{ID: "other-pending", Name: "Olga", Role: models.RoleTeamMember, OrganizationID: "org-b", IsActive: true},
	} {
		u.Email = u.ID + "@example.com"
		require.NoError(t, store.CreateUser(ctx, u.Clone()))
		f.users[u.ID] = u
	}
	return f
}

func userIDs(items []*models.User) []string {
	out := make([]string, 0, len(items))
	for _, u := range items {
		out = append(out, u.ID)
	}
	return out
}

func TestList(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	tests := []struct {
		name string
		user string
		opts ListOptions
		want []string
	}{
		{name: "admin sees every account of the organization", user: "admin", want: []string{"admin", "dh", "tm", "inactive", "pending"}},
		{name: "others see usable accounts", user: "tm", want: []string{"admin", "dh", "tm"}},
		{name: "role filter", user: "admin", opts: ListOptions{Role: models.RoleTeamMember}, want: []string{"tm", "inactive", "pending"}},
		{name: "search", user: "dh", opts: ListOptions{Search: "DAN"}, want: []string{"dh"}},
		{name: "other organization", user: "other-admin", want: []string{"other-admin", "other-pending"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := f.svc.List(ctx, f.users[tt.user], tt.opts)
			require.NoError(t, err)
			assert.ElementsMatch(t, tt.want, userIDs(result.Items))
		})
	}
}

func TestPendingIsOrganizationScoped(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	result, err := f.svc.Pending(ctx, f.users["admin"], query.Page{})
	require.NoError(t, err)
	assert.Equal(t, []string{"pending"}, userIDs(result.Items))

	result, err = f.svc.Pending(ctx, f.users["other-admin"], query.Page{})
	require.NoError(t, err)
	assert.Equal(t, []string{"other-pending"}, userIDs(result.Items))

	_, err = f.svc.Pending(ctx, f.users["dh"], query.Page{})
	assert.True(t, apperr.Is(err, apperr.KindForbidden))
	assert.Equal(t, rbac.ReasonAdminRequired, apperr.PublicMessage(err))
}

func TestCreate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	user, err := f.svc.Create(ctx, f.users["admin"], CreateInput{Name: "Neo", Email: " NEO@Example.com ", Role: models.RoleProjectLead})
	require.NoError(t, err)
	assert.Equal(t, "neo@example.com", user.Email)
	assert.Equal(t, "org-a", user.OrganizationID)
	assert.True(t, user.CanSignIn())
	assert.Equal(t, "admin", user.ApprovedBy)
	require.NotNil(t, user.ApprovedAt)

	_, err = f.svc.Create(ctx, f.users["admin"], CreateInput{Name: "Dup", Email: "tm@example.com"})
	assert.True(t, apperr.Is(err, apperr.KindConflict))

	_, err = f.svc.Create(ctx, f.users["admin"], CreateInput{Name: "Bad", Email: "not-an-email"})
	assert.True(t, apperr.Is(err, apperr.KindInvalid))

	_, err = f.svc.Create(ctx, f.users["admin"], CreateInput{Name: "Bad", Email: "x@example.com", Role: "owner"})
	assert.True(t, apperr.Is(err, apperr.KindInvalid))

	_, err = f.svc.Create(ctx, f.users["dh"], CreateInput{Name: "Nope", Email: "nope@example.com"})
	assert.True(t, apperr.Is(err, apperr.KindForbidden))

	events := f.audit.Events()
	require.Len(t, events, 1)
	assert.Equal(t, audit.EventTypeAdminUserCreate, events[0].EventType)
}

func TestUpdate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	admin := f.users["admin"]

	role := models.RoleProjectLead
	name := "Thomas"
	user, err := f.svc.Update(ctx, admin, "tm", UpdateInput{Role: &role, Name: &name})
	require.NoError(t, err)
	assert.Equal(t, models.RoleProjectLead, user.Role)
	assert.Equal(t, "Thomas", user.Name)

	off := false
	user, err = f.svc.Update(ctx, admin, "tm", UpdateInput{IsActive: &off})
	require.NoError(t, err)
	assert.False(t, user.IsActive)

	_, err = f.svc.Update(ctx, admin, "admin", UpdateInput{IsActive: &off})
	assert.Equal(t, rbac.ReasonSelfDeactivate, apperr.PublicMessage(err))

	demote := models.RoleTeamMember
	_, err = f.svc.Update(ctx, admin, "admin", UpdateInput{Role: &demote})
	assert.True(t, apperr.Is(err, apperr.KindForbidden))

	_, err = f.svc.Update(ctx, admin, "other-pending", UpdateInput{Name: &name})
	assert.True(t, apperr.Is(err, apperr.KindNotFound), "other organizations present as missing")

	taken := "dh@example.com"
	_, err = f.svc.Update(ctx, admin, "tm", UpdateInput{Email: &taken})
	assert.True(t, apperr.Is(err, apperr.KindConflict))

	events := f.audit.Events()
	require.Len(t, events, 2)
	assert.Equal(t, audit.EventTypeAdminUserUpdate, events[0].EventType)
	assert.Equal(t, audit.EventTypeAdminUserDeactivate, events[1].EventType)
}

func TestApprove(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	user, err := f.svc.Approve(ctx, f.users["admin"], "pending")
	require.NoError(t, err)
	assert.True(t, user.CanSignIn())
	assert.Equal(t, "admin", user.ApprovedBy)

	_, err = f.svc.Approve(ctx, f.users["admin"], "pending")
	assert.True(t, apperr.Is(err, apperr.KindInvalid))

	_, err = f.svc.Approve(ctx, f.users["admin"], "other-pending")
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	stored, err := f.store.GetUser(ctx, "other-pending")
	require.NoError(t, err)
	assert.False(t, stored.IsApproved)
}

func TestReject(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	require.NoError(t, f.svc.Reject(ctx, f.users["admin"], "pending"))
	_, err := f.store.GetUser(ctx, "pending")
	assert.True(t, storage.IsNotFound(err))

	err = f.svc.Reject(ctx, f.users["admin"], "tm")
	assert.True(t, apperr.Is(err, apperr.KindInvalid))

	err = f.svc.Reject(ctx, f.users["admin"], "other-pending")
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

// Deleting a reporter and assignee reassigns the report to the acting
// administrator and leaves the other task unassigned.
func TestDeleteCascades(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	now := time.Now().UTC()

	require.NoError(t, f.store.CreateProject(ctx, &models.Project{ID: "p1", Name: "p1", Owner: "dh", CreatedBy: "dh", OrganizationID: "org-a",
		Members: []models.Member{{UserID: "tm", Role: models.ProjectRoleMember, JoinedAt: now}}}))
	require.NoError(t, f.store.CreateTask(ctx, &models.Task{ID: "tk", Title: "tk", Project: "p1", Reporter: "tm"}))
	require.NoError(t, f.store.CreateTask(ctx, &models.Task{ID: "tk2", Title: "tk2", Project: "p1", Reporter: "dh", Assignee: "tm"}))

	result, err := f.svc.Delete(ctx, f.users["admin"], "tm")
	require.NoError(t, err)
	assert.Equal(t, int64(1), result.MembershipsRemoved)

	tk, err := f.store.GetTask(ctx, "tk")
	require.NoError(t, err)
	assert.Equal(t, "admin", tk.Reporter)
	tk2, err := f.store.GetTask(ctx, "tk2")
	require.NoError(t, err)
	assert.Empty(t, tk2.Assignee)

	_, err = f.store.GetUser(ctx, "tm")
	assert.True(t, storage.IsNotFound(err))
}

func TestDeleteGuards(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.svc.Delete(ctx, f.users["admin"], "admin")
	assert.Equal(t, rbac.ReasonSelfDelete, apperr.PublicMessage(err))

	_, err = f.svc.Delete(ctx, f.users["dh"], "tm")
	assert.True(t, apperr.Is(err, apperr.KindForbidden))

	_, err = f.svc.Delete(ctx, f.users["admin"], "other-admin")
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	_, err = f.svc.Delete(ctx, f.users["admin"], "ghost")
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "someone@example.com", NormalizeEmail("  Someone@Example.COM "))
}

func TestCreateValidation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	tests := []struct {
		name    string
		in      CreateInput
		message string
	}{
		{name: "blank name", in: CreateInput{Name: "  ", Email: "a@example.com"}, message: "name is required"},
		{name: "long name", in: CreateInput{Name: strings.Repeat("n", 201), Email: "a@example.com"}, message: "name must be at most 200 characters"},
		{name: "missing email", in: CreateInput{Name: "Ann"}, message: "email is required"},
		{name: "display name email", in: CreateInput{Name: "Ann", Email: "Ann <a@example.com>"}, message: "email is not a valid address"},
		{name: "unknown role", in: CreateInput{Name: "Ann", Email: "a@example.com", Role: "owner"}, message: "invalid role: owner (expected one of team-member, project-lead, department-head, admin)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Create(ctx, f.users["admin"], tt.in)
			require.Error(t, err)
			assert.True(t, apperr.Is(err, apperr.KindInvalid))
			assert.Equal(t, tt.message, apperr.PublicMessage(err))
		})
	}
}

func TestUpdateValidation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	blank := "   "
	_, err := f.svc.Update(ctx, f.users["admin"], "tm", UpdateInput{Name: &blank})
	assert.Equal(t, "name is required", apperr.PublicMessage(err))

	bad := "nope"
	_, err = f.svc.Update(ctx, f.users["admin"], "tm", UpdateInput{Email: &bad})
	assert.Equal(t, "email is not a valid address", apperr.PublicMessage(err))

	role := models.Role("owner")
	_, err = f.svc.Update(ctx, f.users["admin"], "tm", UpdateInput{Role: &role})
	assert.True(t, apperr.Is(err, apperr.KindInvalid))

	email := " TOM@Example.com "
	user, err := f.svc.Update(ctx, f.users["admin"], "tm", UpdateInput{Email: &email})
	require.NoError(t, err)
	assert.Equal(t, "tom@example.com", user.Email)
}

func TestListRejectsUnknownRole(t *testing.T) {
	_, err := newFixture(t).svc.List(context.Background(), &models.User{ID: "admin", Role: models.RoleAdmin, OrganizationID: "org-a"}, ListOptions{Role: "owner"})
	assert.True(t, apperr.Is(err, apperr.KindInvalid))
}

// A rejected registration takes any stray reference to it along
func TestRejectCascades(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	now := time.Now().UTC()

	require.NoError(t, f.store.CreateProject(ctx, &models.Project{ID: "p1", Name: "p1", Owner: "dh", CreatedBy: "dh", OrganizationID: "org-a",
		Members: []models.Member{{UserID: "pending", Role: models.ProjectRoleMember, JoinedAt: now}}}))
	require.NoError(t, f.store.CreateTask(ctx, &models.Task{ID: "tk", Title: "tk", Project: "p1", Reporter: "pending", Assignee: "pending"}))

	require.NoError(t, f.svc.Reject(ctx, f.users["admin"], "pending"))

	project, err := f.store.GetProject(ctx, "p1")
	require.NoError(t, err)
	assert.Empty(t, project.Members)
	tk, err := f.store.GetTask(ctx, "tk")
	require.NoError(t, err)
	assert.Equal(t, "admin", tk.Reporter)
	assert.Empty(t, tk.Assignee)
}
