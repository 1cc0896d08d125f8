// Package tasks implements task operations. Access to a single task is
// decided against its freshly loaded project; listings are filtered by the
// visibility conditions from pkg/rbac.
package tasks

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/platinummonkey/taskboard/pkg/apperr"
	"github.com/platinummonkey/taskboard/pkg/audit"
	"github.com/platinummonkey/taskboard/pkg/models"
	"github.com/platinummonkey/taskboard/pkg/query"
	"github.com/platinummonkey/taskboard/pkg/rbac"
	"github.com/platinummonkey/taskboard/pkg/storage"
	"github.com/platinummonkey/taskboard/pkg/validation"
)

const resource = "Task"

// Service manages tasks and their comments
type Service struct {
	store      storage.Store
	visibility *rbac.Visibility
	enforcer   *rbac.Enforcer
	now        func() time.Time
}

// NewService creates a task service
func NewService(store storage.Store, visibility *rbac.Visibility, enforcer *rbac.Enforcer) *Service {
	return &Service{
		store:      store,
		visibility: visibility,
		enforcer:   enforcer,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) loadProject(ctx context.Context, id string) (*models.Project, error) {
	project, err := s.store.GetProject(ctx, id)
	if err != nil {
		return nil, apperr.FromStorage(err, "Project")
	}
	return project, nil
}

// load fetches a task together with its project
func (s *Service) load(ctx context.Context, id string) (*models.Task, *models.Project, error) {
	task, err := s.store.GetTask(ctx, id)
	if err != nil {
		return nil, nil, apperr.FromStorage(err, resource)
	}
	project, err := s.loadProject(ctx, task.Project)
	if err != nil {
		return nil, nil, err
	}
	return task, project, nil
}

// List returns the page of tasks visible to user
func (s *Service) List(ctx context.Context, user *models.User, opts ListOptions) (*query.Result[*models.Task], error) {
	scope, err := s.visibility.ScopedTasks(ctx, user)
	if err != nil {
		return nil, apperr.FromStorage(err, "Project")
	}
	filters, err := opts.filter()
	if err != nil {
		return nil, err
	}
	return s.find(ctx, query.And(scope, filters), opts.Page)
}

// ListForProject returns the tasks of one project that user may see.
// The caller must be able to view the project itself.
func (s *Service) ListForProject(ctx context.Context, user *models.User, projectID string, opts ListOptions) (*query.Result[*models.Task], error) {
	project, err := s.loadProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if err := s.enforcer.Enforce(ctx, user, rbac.CanViewProject(user, project), audit.ResourceTypeProject, projectID); err != nil {
		return nil, err
	}

	opts.Project = projectID
	return s.List(ctx, user, opts)
}

func (s *Service) find(ctx context.Context, cond query.Cond, page query.Page) (*query.Result[*models.Task], error) {
	page = query.NewPage(page.Page, page.Limit)
	items, total, err := s.store.FindTasks(ctx, cond, page)
	if err != nil {
		return nil, apperr.FromStorage(err, resource)
	}
	if items == nil {
		items = []*models.Task{}
	}
	return &query.Result[*models.Task]{Items: items, Page: page.Page, Limit: page.Limit, Total: total}, nil
}

func (o ListOptions) filter() (query.Cond, error) {
	if err := validation.Struct(&o); err != nil {
		return query.None(), err
	}
	conds := []query.Cond{query.Search(o.Search, models.TaskFieldTitle, models.TaskFieldDescription)}
	if o.Status != "" {
		conds = append(conds, query.Eq(models.TaskFieldStatus, string(o.Status)))
	}
	if o.Priority != "" {
		conds = append(conds, query.Eq(models.TaskFieldPriority, string(o.Priority)))
	}
	if o.Project != "" {
		conds = append(conds, query.Eq(models.TaskFieldProject, o.Project))
	}
	if o.Assignee != "" {
		conds = append(conds, query.Eq(models.TaskFieldAssignee, o.Assignee))
	}
	return query.And(conds...), nil
}

// Get returns one task if user may access it
func (s *Service) Get(ctx context.Context, user *models.User, id string) (*models.Task, error) {
	task, project, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.enforcer.Enforce(ctx, user, rbac.CanAccessTask(user, project, task), audit.ResourceTypeTask, id); err != nil {
		return nil, err
	}
	return task, nil
}

// Create adds a task to a project, reported by user
func (s *Service) Create(ctx context.Context, user *models.User, in CreateInput) (*models.Task, error) {
	in.normalize()
	if err := validation.Struct(&in); err != nil {
		return nil, err
	}
	project, err := s.loadProject(ctx, in.Project)
	if err != nil {
		return nil, err
	}
	if err := s.enforcer.Enforce(ctx, user, rbac.CanCreateTask(user, project), audit.ResourceTypeProject, project.ID); err != nil {
		return nil, err
	}

	if err := rbac.CheckAssignee(project, in.Assignee); err != nil {
		return nil, err
	}
	status := in.Status
	if status == "" {
		status = models.TaskStatusTodo
	}
	priority := in.Priority
	if priority == "" {
		priority = models.PriorityMedium
	}

	now := s.now()
	task := &models.Task{
		ID:          uuid.NewString(),
		Title:       in.Title,
		Description: in.Description,
		Project:     project.ID,
		Assignee:    in.Assignee,
		Reporter:    user.ID,
		Status:      status,
		Priority:    priority,
		Comments:    []models.Comment{},
		DueDate:     in.DueDate,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	deps, err := s.checkDependencies(ctx, task, in.Dependencies)
	if err != nil {
		return nil, err
	}
	task.Dependencies = deps

	if err := s.store.CreateTask(ctx, task); err != nil {
		return nil, apperr.FromStorage(err, resource)
	}
	return task, nil
}

// Update changes a task if user may access it. Status may be set to any
// value by anyone allowed to touch the task. Only the fields named in the
// input are written back, so a user cascade that ran since the task was
// read is never undone.
func (s *Service) Update(ctx context.Context, user *models.User, id string, in UpdateInput) (*models.Task, error) {
	task, project, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.enforcer.Enforce(ctx, user, rbac.CanAccessTask(user, project, task), audit.ResourceTypeTask, id); err != nil {
		return nil, err
	}

	in.normalize()
	if err := validation.Struct(&in); err != nil {
		return nil, err
	}
	patch := storage.TaskPatch{
		Title:       in.Title,
		Description: in.Description,
		Status:      in.Status,
		Priority:    in.Priority,
		DueDate:     in.DueDate,
		UpdatedAt:   s.now(),
	}
	if in.Assignee != nil {
		if err := rbac.CheckAssignee(project, *in.Assignee); err != nil {
			return nil, err
		}
		patch.Assignee = in.Assignee
	}
	if in.Dependencies != nil {
		deps, err := s.checkDependencies(ctx, task, *in.Dependencies)
		if err != nil {
			return nil, err
		}
		patch.Dependencies = &deps
	}

	if err := s.store.UpdateTask(ctx, id, patch); err != nil {
		return nil, apperr.FromStorage(err, resource)
	}
	return s.reload(ctx, id)
}

// Delete removes a task
func (s *Service) Delete(ctx context.Context, user *models.User, id string) error {
	_, project, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if err := s.enforcer.Enforce(ctx, user, rbac.CanDeleteTask(user, project), audit.ResourceTypeTask, id); err != nil {
		return err
	}
	if err := s.store.DeleteTask(ctx, id); err != nil {
		return apperr.FromStorage(err, resource)
	}
	return nil
}

// Comment appends a comment authored by user
func (s *Service) Comment(ctx context.Context, user *models.User, id string, in CommentInput) (*models.Task, error) {
	task, project, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.enforcer.Enforce(ctx, user, rbac.CanAccessTask(user, project, task), audit.ResourceTypeTask, id); err != nil {
		return nil, err
	}

	in.Body = strings.TrimSpace(in.Body)
	if err := validation.Struct(&in); err != nil {
		return nil, err
	}
	comment := models.Comment{ID: uuid.NewString(), Author: user.ID, Body: in.Body, CreatedAt: s.now()}
	if err := s.store.AddComment(ctx, id, comment); err != nil {
		return nil, apperr.FromStorage(err, resource)
	}
	return s.reload(ctx, id)
}

func (s *Service) reload(ctx context.Context, id string) (*models.Task, error) {
	task, err := s.store.GetTask(ctx, id)
	if err != nil {
		return nil, apperr.FromStorage(err, resource)
	}
	return task, nil
}

// checkDependencies requires every dependency to be another task of the
// same project. Duplicates are dropped.
func (s *Service) checkDependencies(ctx context.Context, task *models.Task, deps []string) ([]string, error) {
	out := make([]string, 0, len(deps))
	seen := make(map[string]bool, len(deps))
	for _, id := range deps {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		if id == task.ID {
			return nil, apperr.Invalid("a task cannot depend on itself")
		}
		dep, err := s.store.GetTask(ctx, id)
		if err != nil {
			if storage.IsNotFound(err) {
				return nil, apperr.Invalidf("dependency %s does not exist", id)
			}
			return nil, apperr.FromStorage(err, resource)
		}
		if dep.Project != task.Project {
			return nil, apperr.Invalidf("dependency %s belongs to another project", id)
		}
		seen[id] = true
		out = append(out, id)
	}
	return out, nil
}
