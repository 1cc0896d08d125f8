// Package memory provides an in-process storage backend.
//
// Filters are evaluated with query.Match, so this backend doubles as the
// reference semantics the PostgreSQL backend's compiled SQL must agree with.
// Every read returns a deep copy; callers never share state with the store.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/platinummonkey/taskboard/pkg/models"
	"github.com/platinummonkey/taskboard/pkg/query"
	"github.com/platinummonkey/taskboard/pkg/storage"
)

// Store is a storage.Store backed by maps
type Store struct {
	mu            sync.RWMutex
	users         map[string]*models.User
	organizations map[string]*models.Organization
	projects      map[string]*models.Project
	tasks         map[string]*models.Task
}

var _ storage.Store = (*Store)(nil)

// New creates an empty store
func New() *Store {
	return &Store{
		users:         make(map[string]*models.User),
		organizations: make(map[string]*models.Organization),
		projects:      make(map[string]*models.Project),
		tasks:         make(map[string]*models.Task),
	}
}

// HealthCheck always succeeds
func (s *Store) HealthCheck(ctx context.Context) error {
	return nil
}

// Close is a no-op
func (s *Store) Close() error {
	return nil
}

// newestFirst orders documents by creation time, newest first, then by id
func newestFirst(a, b time.Time, idA, idB string) bool {
	if !a.Equal(b) {
		return a.After(b)
	}
	return idA < idB
}

func paginate[T any](items []T, page query.Page) []T {
	start, end := page.Window(len(items))
	return items[start:end]
}

// Users

func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[user.ID]; ok {
		return fmt.Errorf("user %s: %w", user.ID, storage.ErrConflict)
	}
	for _, u := range s.users {
		if strings.EqualFold(u.Email, user.Email) {
			return fmt.Errorf("email %s: %w", user.Email, storage.ErrConflict)
		}
	}
	s.users[user.ID] = user.Clone()
	return nil
}

func (s *Store) GetUser(ctx context.Context, id string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", id, storage.ErrNotFound)
	}
	return u.Clone(), nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			return u.Clone(), nil
		}
	}
	return nil, fmt.Errorf("user %s: %w", email, storage.ErrNotFound)
}

func (s *Store) matchUsers(cond query.Cond) []*models.User {
	var out []*models.User
	for _, u := range s.users {
		if query.Match(cond, u) {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return newestFirst(out[i].CreatedAt, out[j].CreatedAt, out[i].ID, out[j].ID)
	})
	return out
}

func (s *Store) FindUsers(ctx context.Context, cond query.Cond, page query.Page) ([]*models.User, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := s.matchUsers(cond)
	window := paginate(matched, page)
	out := make([]*models.User, len(window))
	for i, u := range window {
		out[i] = u.Clone()
	}
	return out, len(matched), nil
}

func (s *Store) CountUsers(ctx context.Context, cond query.Cond) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.matchUsers(cond)), nil
}

func (s *Store) UpdateUser(ctx context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[user.ID]; !ok {
		return fmt.Errorf("user %s: %w", user.ID, storage.ErrNotFound)
	}
	for id, u := range s.users {
		if id != user.ID && strings.EqualFold(u.Email, user.Email) {
			return fmt.Errorf("email %s: %w", user.Email, storage.ErrConflict)
		}
	}
	s.users[user.ID] = user.Clone()
	return nil
}

func (s *Store) DeleteUser(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[id]; !ok {
		return fmt.Errorf("user %s: %w", id, storage.ErrNotFound)
	}
	delete(s.users, id)
	return nil
}

// Organizations

func (s *Store) CreateOrganization(ctx context.Context, org *models.Organization) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.organizations[org.ID]; ok {
		return fmt.Errorf("organization %s: %w", org.ID, storage.ErrConflict)
	}
	for _, o := range s.organizations {
		if o.Code == org.Code {
			return fmt.Errorf("organization code %s: %w", org.Code, storage.ErrConflict)
		}
	}
	s.organizations[org.ID] = org.Clone()
	return nil
}

func (s *Store) GetOrganization(ctx context.Context, id string) (*models.Organization, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	o, ok := s.organizations[id]
	if !ok {
		return nil, fmt.Errorf("organization %s: %w", id, storage.ErrNotFound)
	}
	return o.Clone(), nil
}

func (s *Store) GetOrganizationByCode(ctx context.Context, code string) (*models.Organization, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, o := range s.organizations {
		if o.Code == code {
			return o.Clone(), nil
		}
	}
	return nil, fmt.Errorf("organization code %s: %w", code, storage.ErrNotFound)
}

func (s *Store) UpdateOrganization(ctx context.Context, org *models.Organization) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.organizations[org.ID]; !ok {
		return fmt.Errorf("organization %s: %w", org.ID, storage.ErrNotFound)
	}
	s.organizations[org.ID] = org.Clone()
	return nil
}

// Projects

func (s *Store) CreateProject(ctx context.Context, project *models.Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.projects[project.ID]; ok {
		return fmt.Errorf("project %s: %w", project.ID, storage.ErrConflict)
	}
	s.projects[project.ID] = project.Clone()
	return nil
}

func (s *Store) GetProject(ctx context.Context, id string) (*models.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.projects[id]
	if !ok {
		return nil, fmt.Errorf("project %s: %w", id, storage.ErrNotFound)
	}
	return p.Clone(), nil
}

func (s *Store) matchProjects(cond query.Cond) []*models.Project {
	var out []*models.Project
	for _, p := range s.projects {
		if query.Match(cond, p) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return newestFirst(out[i].CreatedAt, out[j].CreatedAt, out[i].ID, out[j].ID)
	})
	return out
}

func (s *Store) FindProjects(ctx context.Context, cond query.Cond, page query.Page) ([]*models.Project, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := s.matchProjects(cond)
	window := paginate(matched, page)
	out := make([]*models.Project, len(window))
	for i, p := range window {
		out[i] = p.Clone()
	}
	return out, len(matched), nil
}

func (s *Store) CountProjects(ctx context.Context, cond query.Cond) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.matchProjects(cond)), nil
}

func (s *Store) ProjectIDs(ctx context.Context, cond query.Cond) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := s.matchProjects(cond)
	ids := make([]string, len(matched))
	for i, p := range matched {
		ids[i] = p.ID
	}
	return ids, nil
}

func (s *Store) UpdateProject(ctx context.Context, project *models.Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.projects[project.ID]
	if !ok {
		return fmt.Errorf("project %s: %w", project.ID, storage.ErrNotFound)
	}
	updated := project.Clone()
	updated.Members = existing.Members
	s.projects[project.ID] = updated
	return nil
}

func (s *Store) DeleteProject(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.projects[id]; !ok {
		return fmt.Errorf("project %s: %w", id, storage.ErrNotFound)
	}
	delete(s.projects, id)
	return nil
}

func (s *Store) UpsertMember(ctx context.Context, projectID string, member models.Member) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.projects[projectID]
	if !ok {
		return fmt.Errorf("project %s: %w", projectID, storage.ErrNotFound)
	}
	p.UpsertMember(member.UserID, member.Role, member.JoinedAt)
	p.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *Store) PullMember(ctx context.Context, projectID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.projects[projectID]
	if !ok {
		return fmt.Errorf("project %s: %w", projectID, storage.ErrNotFound)
	}
	if p.RemoveMember(userID) {
		p.UpdatedAt = time.Now().UTC()
	}
	return nil
}

func (s *Store) PullMemberEverywhere(ctx context.Context, userID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for _, p := range s.projects {
		if p.RemoveMember(userID) {
			n++
		}
	}
	return n, nil
}

// Tasks

func (s *Store) CreateTask(ctx context.Context, task *models.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tasks[task.ID]; ok {
		return fmt.Errorf("task %s: %w", task.ID, storage.ErrConflict)
	}
	if _, ok := s.projects[task.Project]; !ok {
		return fmt.Errorf("task %s: project %s: %w", task.ID, task.Project, storage.ErrNotFound)
	}
	s.tasks[task.ID] = task.Clone()
	return nil
}

func (s *Store) GetTask(ctx context.Context, id string) (*models.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tasks[id]
	if !ok {
		return nil, fmt.Errorf("task %s: %w", id, storage.ErrNotFound)
	}
	return t.Clone(), nil
}

func (s *Store) matchTasks(cond query.Cond) []*models.Task {
	var out []*models.Task
	for _, t := range s.tasks {
		if query.Match(cond, t) {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return newestFirst(out[i].CreatedAt, out[j].CreatedAt, out[i].ID, out[j].ID)
	})
	return out
}

func (s *Store) FindTasks(ctx context.Context, cond query.Cond, page query.Page) ([]*models.Task, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := s.matchTasks(cond)
	window := paginate(matched, page)
	out := make([]*models.Task, len(window))
	for i, t := range window {
		out[i] = t.Clone()
	}
	return out, len(matched), nil
}

func (s *Store) CountTasks(ctx context.Context, cond query.Cond) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.matchTasks(cond)), nil
}

func (s *Store) UpdateTask(ctx context.Context, id string, patch storage.TaskPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.tasks[id]
	if !ok {
		return fmt.Errorf("task %s: %w", id, storage.ErrNotFound)
	}
	updated := existing.Clone()
	patch.Apply(updated)
	s.tasks[id] = updated
	return nil
}

func (s *Store) DeleteTask(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tasks[id]; !ok {
		return fmt.Errorf("task %s: %w", id, storage.ErrNotFound)
	}
	delete(s.tasks, id)
	return nil
}

func (s *Store) AddComment(ctx context.Context, taskID string, comment models.Comment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[taskID]
	if !ok {
		return fmt.Errorf("task %s: %w", taskID, storage.ErrNotFound)
	}
	t.Comments = append(t.Comments, comment)
	t.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *Store) DeleteTasksByProject(ctx context.Context, projectID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for id, t := range s.tasks {
		if t.Project == projectID {
			delete(s.tasks, id)
			n++
		}
	}
	return n, nil
}

func (s *Store) ClearAssignee(ctx context.Context, userID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for _, t := range s.tasks {
		if t.Assignee == userID {
			t.Assignee = ""
			n++
		}
	}
	return n, nil
}

func (s *Store) ReassignReporter(ctx context.Context, fromUserID, toUserID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for _, t := range s.tasks {
		if t.Reporter == fromUserID {
			t.Reporter = toUserID
			n++
		}
	}
	return n, nil
}
