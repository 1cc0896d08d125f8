package cascade

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/taskboard/pkg/audit"
	"github.com/platinummonkey/taskboard/pkg/models"
	"github.com/platinummonkey/taskboard/pkg/observability"
	"github.com/platinummonkey/taskboard/pkg/query"
	"github.com/platinummonkey/taskboard/pkg/storage"
	"github.com/platinummonkey/taskboard/pkg/storage/memory"
)

var admin = &models.User{ID: "admin", Role: models.RoleAdmin, OrganizationID: "org-a"}

func seed(t *testing.T) *memory.Store {
	t.Helper()
	ctx := context.Background()
	store := memory.New()
	now := time.Now().UTC()

	for _, u := range []*models.User{
		admin,
		{ID: "dh", Role: models.RoleDepartmentHead, OrganizationID: "org-a"},
		{ID: "tm", Role: models.RoleTeamMember, OrganizationID: "org-a"},
	} {
		u.Email = u.ID + "@example.com"
		u.IsActive, u.IsApproved = true, true
		require.NoError(t, store.CreateUser(ctx, u.Clone()))
	}

	for _, p := range []*models.Project{
		{ID: "p1", Owner: "dh", CreatedBy: "dh", OrganizationID: "org-a",
			Members: []models.Member{{UserID: "tm", Role: models.ProjectRoleDeveloper, JoinedAt: now}}},
		{ID: "p2", Owner: "dh", CreatedBy: "dh", OrganizationID: "org-a",
			Members: []models.Member{{UserID: "tm", Role: models.ProjectRoleViewer, JoinedAt: now}, {UserID: "admin", JoinedAt: now}}},
	} {
		p.Name = p.ID
		p.CreatedAt, p.UpdatedAt = now, now
		require.NoError(t, store.CreateProject(ctx, p))
	}

	for _, tk := range []*models.Task{
		{ID: "t1", Project: "p1", Reporter: "tm", Assignee: "tm"},
		{ID: "t2", Project: "p1", Reporter: "dh", Assignee: "tm"},
		{ID: "t3", Project: "p2", Reporter: "tm"},
		{ID: "t4", Project: "p2", Reporter: "dh", Assignee: "dh"},
	} {
		tk.Title = tk.ID
		tk.Status = models.TaskStatusTodo
		tk.CreatedAt, tk.UpdatedAt = now, now
		require.NoError(t, store.CreateTask(ctx, tk))
	}
	return store
}

func TestDeleteUser(t *testing.T) {
	ctx := context.Background()
	store := seed(t)
	registry := prometheus.NewRegistry()
	metrics := observability.NewMetrics(registry)
	sink := audit.NewMemoryLogger()

	result, err := NewCoordinator(store, metrics, sink).DeleteUser(ctx, admin, "tm")
	require.NoError(t, err)
	assert.Equal(t, &UserCascadeResult{MembershipsRemoved: 2, AssignmentsCleared: 2, ReportsReassigned: 2}, result)

	_, err = store.GetUser(ctx, "tm")
	assert.True(t, storage.IsNotFound(err))

	// No task references the deleted user in any role
	dangling, err := store.CountTasks(ctx, query.Or(
		query.Eq(models.TaskFieldAssignee, "tm"),
		query.Eq(models.TaskFieldReporter, "tm"),
	))
	require.NoError(t, err)
	assert.Zero(t, dangling)

	memberships, err := store.CountProjects(ctx, query.Eq(models.ProjectFieldMemberUser, "tm"))
	require.NoError(t, err)
	assert.Zero(t, memberships)

	t1, err := store.GetTask(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, "admin", t1.Reporter)
	assert.Empty(t, t1.Assignee)

	// Unrelated documents are untouched
	t4, err := store.GetTask(ctx, "t4")
	require.NoError(t, err)
	assert.Equal(t, "dh", t4.Reporter)
	assert.Equal(t, "dh", t4.Assignee)

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.CascadesTotal.WithLabelValues(KindUser, "success")))
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.CascadeRecordsTotal.WithLabelValues(KindUser, "reports_reassigned")))

	events := sink.Events()
	require.Len(t, events, 1)
	assert.Equal(t, audit.EventTypeCascadeUserDelete, events[0].EventType)
	assert.Equal(t, audit.EventStatusSuccess, events[0].Status)
	assert.Equal(t, "admin", events[0].UserID)
}

func TestDeleteUser_RequiresOtherActor(t *testing.T) {
	store := seed(t)
	c := NewCoordinator(store, nil, nil)

	_, err := c.DeleteUser(context.Background(), nil, "tm")
	assert.Error(t, err)

	_, err = c.DeleteUser(context.Background(), admin, "admin")
	assert.Error(t, err)

	_, err = store.GetUser(context.Background(), "admin")
	assert.NoError(t, err)
}

func TestDeleteUser_UnknownUser(t *testing.T) {
	_, err := NewCoordinator(seed(t), nil, nil).DeleteUser(context.Background(), admin, "ghost")
	require.Error(t, err)
	assert.True(t, storage.IsNotFound(err))
}

// failingStore fails one rewrite and records whether the parent record was removed
type failingStore struct {
	*memory.Store
	failReassign bool
	failTasks    bool
	userDeleted  bool
	projDeleted  bool
}

func (f *failingStore) ReassignReporter(ctx context.Context, from, to string) (int64, error) {
	if f.failReassign {
		return 0, errors.New("write conflict")
	}
	return f.Store.ReassignReporter(ctx, from, to)
}

func (f *failingStore) DeleteUser(ctx context.Context, id string) error {
	f.userDeleted = true
	return f.Store.DeleteUser(ctx, id)
}

func (f *failingStore) DeleteTasksByProject(ctx context.Context, projectID string) (int64, error) {
	if f.failTasks {
		return 0, errors.New("timeout")
	}
	return f.Store.DeleteTasksByProject(ctx, projectID)
}

func (f *failingStore) DeleteProject(ctx context.Context, id string) error {
	f.projDeleted = true
	return f.Store.DeleteProject(ctx, id)
}

func TestDeleteUser_RewriteFailureKeepsUser(t *testing.T) {
	ctx := context.Background()
	store := &failingStore{Store: seed(t), failReassign: true}
	registry := prometheus.NewRegistry()
	metrics := observability.NewMetrics(registry)
	sink := audit.NewMemoryLogger()

	_, err := NewCoordinator(store, metrics, sink).DeleteUser(ctx, admin, "tm")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reassign reports")
	assert.False(t, store.userDeleted)

	_, err = store.GetUser(ctx, "tm")
	assert.NoError(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.CascadesTotal.WithLabelValues(KindUser, "error")))
	require.Len(t, sink.Events(), 1)
	assert.Equal(t, audit.EventStatusFailure, sink.Events()[0].Status)
}

func TestDeleteProject(t *testing.T) {
	ctx := context.Background()
	store := seed(t)

	result, err := NewCoordinator(store, nil, nil).DeleteProject(ctx, admin, "p1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), result.TasksDeleted)

	_, err = store.GetProject(ctx, "p1")
	assert.True(t, storage.IsNotFound(err))

	orphans, err := store.CountTasks(ctx, query.Eq(models.TaskFieldProject, "p1"))
	require.NoError(t, err)
	assert.Zero(t, orphans)

	remaining, err := store.CountTasks(ctx, query.All())
	require.NoError(t, err)
	assert.Equal(t, 2, remaining)
}

func TestDeleteProject_TaskFailureKeepsProject(t *testing.T) {
	ctx := context.Background()
	store := &failingStore{Store: seed(t), failTasks: true}

	_, err := NewCoordinator(store, nil, nil).DeleteProject(ctx, admin, "p1")
	require.Error(t, err)
	assert.False(t, store.projDeleted)

	_, err = store.GetProject(ctx, "p1")
	assert.NoError(t, err)
}

func TestDeleteProject_Unknown(t *testing.T) {
	_, err := NewCoordinator(seed(t), nil, nil).DeleteProject(context.Background(), admin, "ghost")
	require.Error(t, err)
	assert.True(t, storage.IsNotFound(err))
}
