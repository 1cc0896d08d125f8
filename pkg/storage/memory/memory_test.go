package memory

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/taskboard/pkg/models"
	"github.com/platinummonkey/taskboard/pkg/query"
	"github.com/platinummonkey/taskboard/pkg/storage"
)

func seedProject(t *testing.T, s *Store, id, owner string, members ...string) *models.Project {
	t.Helper()
	p := &models.Project{ID: id, Name: "Project " + id, Owner: owner, OrganizationID: "org", CreatedAt: time.Now()}
	for _, m := range members {
		p.Members = append(p.Members, models.Member{UserID: m, Role: models.ProjectRoleMember})
	}
	require.NoError(t, s.CreateProject(context.Background(), p))
	return p
}

func TestUsers(t *testing.T) {
	ctx := context.Background()
	s := New()

	u := &models.User{ID: "u1", Email: "a@example.com", Role: models.RoleTeamMember}
	require.NoError(t, s.CreateUser(ctx, u))

	t.Run("duplicate email conflicts", func(t *testing.T) {
		err := s.CreateUser(ctx, &models.User{ID: "u2", Email: "A@example.com"})
		assert.True(t, storage.IsConflict(err))
	})

	t.Run("returned copies are isolated", func(t *testing.T) {
		got, err := s.GetUser(ctx, "u1")
		require.NoError(t, err)
		got.Role = models.RoleAdmin

		again, err := s.GetUser(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, models.RoleTeamMember, again.Role)
	})

	t.Run("missing user", func(t *testing.T) {
		_, err := s.GetUser(ctx, "nope")
		assert.True(t, storage.IsNotFound(err))
		assert.True(t, storage.IsNotFound(s.DeleteUser(ctx, "nope")))
	})

	t.Run("by email", func(t *testing.T) {
		got, err := s.GetUserByEmail(ctx, "A@EXAMPLE.COM")
		require.NoError(t, err)
		assert.Equal(t, "u1", got.ID)
	})
}

func TestFindProjectsPagination(t *testing.T) {
	ctx := context.Background()
	s := New()
	base := time.Now()
	for i := 0; i < 25; i++ {
		p := &models.Project{ID: fmt.Sprintf("p%02d", i), Owner: "dh", OrganizationID: "org", CreatedAt: base.Add(time.Duration(i) * time.Second)}
		require.NoError(t, s.CreateProject(ctx, p))
	}

	items, total, err := s.FindProjects(ctx, query.All(), query.NewPage(2, 10))
	require.NoError(t, err)
	assert.Equal(t, 25, total)
	require.Len(t, items, 10)
	assert.Equal(t, "p14", items[0].ID)

	items, total, err = s.FindProjects(ctx, query.None(), query.NewPage(1, 10))
	require.NoError(t, err)
	assert.Equal(t, 0, total)
	assert.Empty(t, items)
}

func TestMembership(t *testing.T) {
	ctx := context.Background()
	s := New()
	seedProject(t, s, "p1", "dh", "u1")
	seedProject(t, s, "p2", "dh", "u1", "u2")

	require.NoError(t, s.UpsertMember(ctx, "p1", models.Member{UserID: "u1", Role: models.ProjectRoleManager}))
	p, err := s.GetProject(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, p.Members, 1)
	assert.Equal(t, models.ProjectRoleManager, p.Members[0].Role)

	ids, err := s.ProjectIDs(ctx, query.Eq(models.ProjectFieldMemberUser, "u1"))
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"p1", "p2"}, ids)

	n, err := s.PullMemberEverywhere(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	ids, err = s.ProjectIDs(ctx, query.Eq(models.ProjectFieldMemberUser, "u1"))
	require.NoError(t, err)
	assert.Empty(t, ids)

	assert.True(t, storage.IsNotFound(s.UpsertMember(ctx, "missing", models.Member{UserID: "u1"})))
}

func TestUpdateProjectKeepsMembers(t *testing.T) {
	ctx := context.Background()
	s := New()
	p := seedProject(t, s, "p1", "dh", "u1")

	p.Name = "Renamed"
	p.Members = nil
	require.NoError(t, s.UpdateProject(ctx, p))

	got, err := s.GetProject(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.Name)
	assert.Len(t, got.Members, 1)
}

func TestTaskBulkRewrites(t *testing.T) {
	ctx := context.Background()
	s := New()
	seedProject(t, s, "p1", "dh")
	seedProject(t, s, "p2", "dh")
	for i, tk := range []*models.Task{
		{ID: "t1", Project: "p1", Reporter: "u1", Assignee: "u2"},
		{ID: "t2", Project: "p1", Reporter: "u2", Assignee: "u1"},
		{ID: "t3", Project: "p2", Reporter: "u1"},
	} {
		tk.CreatedAt = time.Now().Add(time.Duration(i) * time.Second)
		require.NoError(t, s.CreateTask(ctx, tk))
	}

	n, err := s.ClearAssignee(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = s.ReassignReporter(ctx, "u1", "admin")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	count, err := s.CountTasks(ctx, query.Or(query.Eq(models.TaskFieldAssignee, "u1"), query.Eq(models.TaskFieldReporter, "u1")))
	require.NoError(t, err)
	assert.Zero(t, count)

	n, err = s.DeleteTasksByProject(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	count, err = s.CountTasks(ctx, query.All())
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestCommentsAreAppendOnly(t *testing.T) {
	ctx := context.Background()
	s := New()
	seedProject(t, s, "p1", "dh")
	require.NoError(t, s.CreateTask(ctx, &models.Task{ID: "t1", Project: "p1", Reporter: "u1"}))

	require.NoError(t, s.AddComment(ctx, "t1", models.Comment{ID: "c1", Author: "u1", Body: "hi"}))

	title := "updated"
	require.NoError(t, s.UpdateTask(ctx, "t1", storage.TaskPatch{Title: &title}))

	task, err := s.GetTask(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, "updated", task.Title)
	require.Len(t, task.Comments, 1)
	assert.Equal(t, "u1", task.Comments[0].Author)
}

func TestUpdateTaskWritesOnlyPatchedFields(t *testing.T) {
	ctx := context.Background()
	s := New()
	seedProject(t, s, "p1", "dh")
	require.NoError(t, s.CreateTask(ctx, &models.Task{ID: "t1", Project: "p1", Title: "old", Reporter: "u1", Assignee: "u2", Status: models.TaskStatusTodo}))

	_, err := s.ReassignReporter(ctx, "u1", "admin")
	require.NoError(t, err)
	_, err = s.ClearAssignee(ctx, "u2")
	require.NoError(t, err)

	done := models.TaskStatusDone
	now := time.Now().UTC()
	require.NoError(t, s.UpdateTask(ctx, "t1", storage.TaskPatch{Status: &done, UpdatedAt: now}))

	task, err := s.GetTask(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusDone, task.Status)
	assert.Equal(t, "old", task.Title)
	assert.Equal(t, "admin", task.Reporter)
	assert.Empty(t, task.Assignee)
	assert.Equal(t, now, task.UpdatedAt)

	err = s.UpdateTask(ctx, "missing", storage.TaskPatch{Status: &done})
	assert.True(t, storage.IsNotFound(err))
}

func TestOrganizations(t *testing.T) {
	ctx := context.Background()
	s := New()
	require.NoError(t, s.CreateOrganization(ctx, &models.Organization{ID: "o1", Code: "ACME01", IsActive: true}))

	err := s.CreateOrganization(ctx, &models.Organization{ID: "o2", Code: "ACME01"})
	assert.True(t, storage.IsConflict(err))

	org, err := s.GetOrganizationByCode(ctx, "ACME01")
	require.NoError(t, err)
	assert.Equal(t, "o1", org.ID)

	org.IsActive = false
	require.NoError(t, s.UpdateOrganization(ctx, org))
	org, err = s.GetOrganization(ctx, "o1")
	require.NoError(t, err)
	assert.False(t, org.IsActive)
}

func TestCreateTaskRequiresProject(t *testing.T) {
	err := New().CreateTask(context.Background(), &models.Task{ID: "t1", Project: "missing", Reporter: "u1"})
	assert.True(t, storage.IsNotFound(err))
}
