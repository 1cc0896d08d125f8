package storage

import (
	"context"
	"errors"
	"time"

	"github.com/platinummonkey/taskboard/pkg/models"
	"github.com/platinummonkey/taskboard/pkg/query"
)

var (
	// ErrNotFound is returned when a document id does not resolve
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when a unique value is already taken
	ErrConflict = errors.New("already exists")
)

// IsNotFound checks if the error is or wraps ErrNotFound
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsConflict checks if the error is or wraps ErrConflict
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}

// UserStore persists users
type UserStore interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUser(ctx context.Context, id string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	FindUsers(ctx context.Context, cond query.Cond, page query.Page) ([]*models.User, int, error)
	CountUsers(ctx context.Context, cond query.Cond) (int, error)
	UpdateUser(ctx context.Context, user *models.User) error
	DeleteUser(ctx context.Context, id string) error
}

// OrganizationStore persists organizations
type OrganizationStore interface {
	CreateOrganization(ctx context.Context, org *models.Organization) error
	GetOrganization(ctx context.Context, id string) (*models.Organization, error)
	GetOrganizationByCode(ctx context.Context, code string) (*models.Organization, error)
	UpdateOrganization(ctx context.Context, org *models.Organization) error
}

// ProjectStore persists projects and their member lists.
// UpdateProject never touches members; membership changes go through the
// atomic UpsertMember and PullMember operations.
type ProjectStore interface {
	CreateProject(ctx context.Context, project *models.Project) error
	GetProject(ctx context.Context, id string) (*models.Project, error)
	FindProjects(ctx context.Context, cond query.Cond, page query.Page) ([]*models.Project, int, error)
	CountProjects(ctx context.Context, cond query.Cond) (int, error)
	ProjectIDs(ctx context.Context, cond query.Cond) ([]string, error)
	UpdateProject(ctx context.Context, project *models.Project) error
	DeleteProject(ctx context.Context, id string) error

	UpsertMember(ctx context.Context, projectID string, member models.Member) error
	PullMember(ctx context.Context, projectID, userID string) error
	PullMemberEverywhere(ctx context.Context, userID string) (int64, error)
}

// TaskPatch lists the task fields an update writes. Nil fields keep their
// stored value, so a patch built from a stale read cannot restore a
// reference that a cascade has since rewritten. The project, reporter and
// comments are never patched.
type TaskPatch struct {
	Title        *string
	Description  *string
	Assignee     *string
	Status       *models.TaskStatus
	Priority     *models.Priority
	Dependencies *[]string
	DueDate      *time.Time
	UpdatedAt    time.Time
}

// Apply writes the set fields of the patch onto task
func (p TaskPatch) Apply(task *models.Task) {
	if p.Title != nil {
		task.Title = *p.Title
	}
	if p.Description != nil {
		task.Description = *p.Description
	}
	if p.Assignee != nil {
		task.Assignee = *p.Assignee
	}
	if p.Status != nil {
		task.Status = *p.Status
	}
	if p.Priority != nil {
		task.Priority = *p.Priority
	}
	if p.Dependencies != nil {
		task.Dependencies = append([]string(nil), (*p.Dependencies)...)
	}
	if p.DueDate != nil {
		due := *p.DueDate
		task.DueDate = &due
	}
	if !p.UpdatedAt.IsZero() {
		task.UpdatedAt = p.UpdatedAt
	}
}

// TaskStore persists tasks and their comments.
// Comments are only ever appended with AddComment.
type TaskStore interface {
	CreateTask(ctx context.Context, task *models.Task) error
	GetTask(ctx context.Context, id string) (*models.Task, error)
	FindTasks(ctx context.Context, cond query.Cond, page query.Page) ([]*models.Task, int, error)
	CountTasks(ctx context.Context, cond query.Cond) (int, error)
	UpdateTask(ctx context.Context, id string, patch TaskPatch) error
	DeleteTask(ctx context.Context, id string) error
	AddComment(ctx context.Context, taskID string, comment models.Comment) error

	DeleteTasksByProject(ctx context.Context, projectID string) (int64, error)
	ClearAssignee(ctx context.Context, userID string) (int64, error)
	ReassignReporter(ctx context.Context, fromUserID, toUserID string) (int64, error)
}

// Store is the full persistence contract
type Store interface {
	UserStore
	OrganizationStore
	ProjectStore
	TaskStore

	HealthCheck(ctx context.Context) error
	Close() error
}

// Config for storage backend
type Config struct {
	Type string // "memory", "postgres"

	// PostgreSQL config
	PostgresURL         string
	PostgresReplicaURLs []string
	PostgresMaxConns    int
	PostgresMinConns    int
	PostgresTimeout     time.Duration
	PostgresMaxLifetime time.Duration
	PostgresMaxIdleTime time.Duration
	AutoMigrate         bool

	// Redis config, used for distributed rate limiting
	RedisURL        string
	RedisPassword   string
	RedisDB         int
	RedisMaxRetries int
	RedisPoolSize   int
}

// DefaultConfig returns sensible default configuration
func DefaultConfig() Config {
	return Config{
		Type:                "memory",
		PostgresMaxConns:    20,
		PostgresMinConns:    2,
		PostgresTimeout:     10 * time.Second,
		PostgresMaxLifetime: 30 * time.Minute,
		PostgresMaxIdleTime: 5 * time.Minute,
		AutoMigrate:         true,
		RedisDB:             0,
		RedisMaxRetries:     3,
		RedisPoolSize:       10,
	}
}
