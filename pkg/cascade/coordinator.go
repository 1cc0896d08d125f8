// Package cascade performs the multi-document rewrites that deleting a user
// or a project requires.
//
// Cascades are ordered, not transactional: dependent documents are rewritten
// first and the parent record is removed only when every rewrite succeeded,
// so an interrupted cascade can be retried and never leaves a task pointing
// at a principal or project that no longer resolves.
package cascade

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/platinummonkey/taskboard/pkg/audit"
	"github.com/platinummonkey/taskboard/pkg/models"
	"github.com/platinummonkey/taskboard/pkg/observability"
)

// Cascade kinds, used as metric labels
const (
	KindUser    = "user"
	KindProject = "project"
)

// Store is the slice of persistence the coordinator rewrites
type Store interface {
	PullMemberEverywhere(ctx context.Context, userID string) (int64, error)
	ClearAssignee(ctx context.Context, userID string) (int64, error)
	ReassignReporter(ctx context.Context, fromUserID, toUserID string) (int64, error)
	DeleteUser(ctx context.Context, id string) error

	DeleteTasksByProject(ctx context.Context, projectID string) (int64, error)
	DeleteProject(ctx context.Context, id string) error
}

// UserCascadeResult counts the documents touched by a user deletion
type UserCascadeResult struct {
	MembershipsRemoved int64 `json:"membershipsRemoved"`
	AssignmentsCleared int64 `json:"assignmentsCleared"`
	ReportsReassigned  int64 `json:"reportsReassigned"`
}

func (r *UserCascadeResult) effects() map[string]int64 {
	return map[string]int64{
		"memberships_removed": r.MembershipsRemoved,
		"assignments_cleared": r.AssignmentsCleared,
		"reports_reassigned":  r.ReportsReassigned,
	}
}

// ProjectCascadeResult counts the documents touched by a project deletion
type ProjectCascadeResult struct {
	TasksDeleted int64 `json:"tasksDeleted"`
}

// Coordinator runs cascading deletes
type Coordinator struct {
	store   Store
	metrics *observability.Metrics
	audit   audit.Logger
}

// NewCoordinator creates a cascade coordinator. metrics and auditLog may be nil.
func NewCoordinator(store Store, metrics *observability.Metrics, auditLog audit.Logger) *Coordinator {
	return &Coordinator{
		store:   store,
		metrics: metrics,
		audit:   audit.OrNoOp(auditLog),
	}
}

// DeleteUser removes userID from every project membership, clears it as
// assignee, hands its reported tasks to actor, and only then deletes the
// user record. The three rewrites are independent and run concurrently;
// if any fails the user record is kept.
func (c *Coordinator) DeleteUser(ctx context.Context, actor *models.User, userID string) (*UserCascadeResult, error) {
	if actor == nil || actor.ID == "" {
		return nil, fmt.Errorf("cascade user %s: actor is required to inherit reported tasks", userID)
	}
	if actor.ID == userID {
		return nil, fmt.Errorf("cascade user %s: actor cannot inherit its own tasks", userID)
	}

	ctx, span := observability.Tracer().Start(ctx, "cascade.DeleteUser", trace.WithAttributes(
		attribute.String("taskboard.user_id", userID),
		attribute.String("taskboard.actor_id", actor.ID),
	))
	defer span.End()
	start := time.Now()

	result := &UserCascadeResult{}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		n, err := c.store.PullMemberEverywhere(gctx, userID)
		if err != nil {
			return fmt.Errorf("remove memberships: %w", err)
		}
		result.MembershipsRemoved = n
		return nil
	})
	g.Go(func() error {
		n, err := c.store.ClearAssignee(gctx, userID)
		if err != nil {
			return fmt.Errorf("clear assignments: %w", err)
		}
		result.AssignmentsCleared = n
		return nil
	})
	g.Go(func() error {
		n, err := c.store.ReassignReporter(gctx, userID, actor.ID)
		if err != nil {
			return fmt.Errorf("reassign reports: %w", err)
		}
		result.ReportsReassigned = n
		return nil
	})

	err := g.Wait()
	if err == nil {
		if err = c.store.DeleteUser(ctx, userID); err != nil {
			err = fmt.Errorf("delete user record: %w", err)
		}
	}
	if err != nil {
		err = fmt.Errorf("cascade user %s: %w", userID, err)
	}

	c.finish(ctx, span, KindUser, start, err, result.effects(),
		audit.Cascade(audit.EventTypeCascadeUserDelete, actor, audit.ResourceTypeUser, userID, result.effects(), err))
	return result, err
}

// DeleteProject deletes every task of projectID and then the project itself
func (c *Coordinator) DeleteProject(ctx context.Context, actor *models.User, projectID string) (*ProjectCascadeResult, error) {
	ctx, span := observability.Tracer().Start(ctx, "cascade.DeleteProject", trace.WithAttributes(
		attribute.String("taskboard.project_id", projectID),
	))
	defer span.End()
	start := time.Now()

	result := &ProjectCascadeResult{}
	n, err := c.store.DeleteTasksByProject(ctx, projectID)
	if err != nil {
		err = fmt.Errorf("cascade project %s: delete tasks: %w", projectID, err)
	} else {
		result.TasksDeleted = n
		if err = c.store.DeleteProject(ctx, projectID); err != nil {
			err = fmt.Errorf("cascade project %s: delete project: %w", projectID, err)
		}
	}

	effects := map[string]int64{"tasks_deleted": result.TasksDeleted}
	c.finish(ctx, span, KindProject, start, err, effects,
		audit.Cascade(audit.EventTypeCascadeProjectDelete, actor, audit.ResourceTypeProject, projectID, effects, err))
	return result, err
}

func (c *Coordinator) finish(ctx context.Context, span trace.Span, kind string, start time.Time, err error, effects map[string]int64, event *audit.AuditEvent) {
	c.metrics.RecordCascade(kind, time.Since(start), err, effects)

	logger := observability.FromContext(ctx).WithField("cascade", kind)
	for k, v := range effects {
		span.SetAttributes(attribute.Int64("taskboard."+k, v))
		logger = logger.WithField(k, v)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logger.WithError(err).Error("cascade failed")
	} else {
		logger.Info("cascade completed")
	}

	if auditErr := c.audit.Log(ctx, event); auditErr != nil {
		logger.WithError(auditErr).Warn("failed to write audit event")
	}
}
