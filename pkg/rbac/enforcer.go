package rbac

import (
	"context"

	"github.com/platinummonkey/taskboard/pkg/audit"
	"github.com/platinummonkey/taskboard/pkg/models"
	"github.com/platinummonkey/taskboard/pkg/observability"
)

// Enforcer turns decisions into errors and records their outcome.
// A nil *Enforcer still enforces, it only skips recording.
type Enforcer struct {
	metrics *observability.Metrics
	audit   audit.Logger
}

// NewEnforcer creates an enforcer. Both arguments may be nil.
func NewEnforcer(metrics *observability.Metrics, auditLog audit.Logger) *Enforcer {
	return &Enforcer{metrics: metrics, audit: audit.OrNoOp(auditLog)}
}

// Enforce returns nil when d allows, otherwise a Forbidden error carrying
// the denial reason. Denials are counted and written to the audit trail.
func (e *Enforcer) Enforce(ctx context.Context, user *models.User, d Decision, resource audit.ResourceType, resourceID string) error {
	if e == nil {
		return d.Err()
	}
	e.metrics.RecordDecision(string(d.Action), d.Allowed)
	if d.Allowed {
		return nil
	}

	observability.FromContext(ctx).
		WithFields(map[string]interface{}{
			"action":      string(d.Action),
			"resource":    string(resource),
			"resource_id": resourceID,
		}).
		Debug(d.Reason)
	if err := e.audit.Log(ctx, audit.AccessDenied(user, string(d.Action), resource, resourceID, d.Reason)); err != nil {
		observability.FromContext(ctx).WithError(err).Warn("failed to write audit event")
	}
	return d.Err()
}
