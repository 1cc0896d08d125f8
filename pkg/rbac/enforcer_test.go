package rbac

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/taskboard/pkg/apperr"
	"github.com/platinummonkey/taskboard/pkg/audit"
	"github.com/platinummonkey/taskboard/pkg/models"
	"github.com/platinummonkey/taskboard/pkg/observability"
)

func TestEnforcer(t *testing.T) {
	ctx := context.Background()
	metrics := observability.NewMetrics(prometheus.NewRegistry())
	sink := audit.NewMemoryLogger()
	e := NewEnforcer(metrics, sink)

	admin := &models.User{ID: "admin", Role: models.RoleAdmin, OrganizationID: "org-a"}
	p := &models.Project{ID: "p1", Owner: "dh", OrganizationID: "org-a"}

	require.NoError(t, e.Enforce(ctx, admin, CanViewProject(admin, p), audit.ResourceTypeProject, p.ID))

	err := e.Enforce(ctx, admin, CanModifyProject(admin, p), audit.ResourceTypeProject, p.ID)
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindForbidden))
	assert.Equal(t, ReasonAdminViewOnly, apperr.PublicMessage(err))

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.AccessDecisionsTotal.WithLabelValues(string(ActionViewProject), "allowed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.AccessDecisionsTotal.WithLabelValues(string(ActionModifyProject), "denied")))

	events := sink.Events()
	require.Len(t, events, 1)
	assert.Equal(t, audit.EventTypeAuthzAccessDenied, events[0].EventType)
	assert.Equal(t, "p1", events[0].ResourceID)
	assert.Equal(t, string(ActionModifyProject), events[0].Metadata["action"])
}

func TestEnforcer_Nil(t *testing.T) {
	var e *Enforcer
	user := &models.User{ID: "tm", Role: models.RoleTeamMember, OrganizationID: "org-a"}
	assert.Error(t, e.Enforce(context.Background(), user, CanCreateProject(user), audit.ResourceTypeProject, ""))
}
