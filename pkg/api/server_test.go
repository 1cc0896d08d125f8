package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/taskboard/pkg/audit"
	"github.com/platinummonkey/taskboard/pkg/auth"
	"github.com/platinummonkey/taskboard/pkg/cascade"
	"github.com/platinummonkey/taskboard/pkg/middleware"
	"github.com/platinummonkey/taskboard/pkg/models"
	"github.com/platinummonkey/taskboard/pkg/observability"
	"github.com/platinummonkey/taskboard/pkg/orgs"
	"github.com/platinummonkey/taskboard/pkg/projects"
	"github.com/platinummonkey/taskboard/pkg/rbac"
	"github.com/platinummonkey/taskboard/pkg/storage/memory"
	"github.com/platinummonkey/taskboard/pkg/tasks"
	"github.com/platinummonkey/taskboard/pkg/users"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type testServer struct {
	server *Server
	store  *memory.Store
	tokens *auth.TokenManager
}

func newTestServer(t *testing.T, limiter middleware.Limiter) *testServer {
	t.Helper()
	store := memory.New()
	tokens := auth.NewTokenManager(testSecret, "", time.Hour)
	registry := prometheus.NewRegistry()
	metrics := observability.NewMetrics(registry)
	logger := observability.NewLogger(observability.ErrorLevel, io.Discard)
	sink := audit.NewMemoryLogger()

	visibility := rbac.NewVisibility(store)
	enforcer := rbac.NewEnforcer(metrics, sink)
	coordinator := cascade.NewCoordinator(store, metrics, sink)

	cfg := Config{
		Projects:      projects.NewService(store, coordinator, enforcer),
		Tasks:         tasks.NewService(store, visibility, enforcer),
		Users:         users.NewService(store, coordinator, enforcer, sink),
		Organizations: orgs.NewService(store, visibility, enforcer, tokens, sink),
		Resolver:      auth.NewResolver(tokens, store),
		OrgStore:      store,
		Logger:        logger,
		Metrics:       metrics,
		Registry:      registry,
		Health:        observability.NewHealthChecker(store, nil, "test"),
	}
	if limiter != nil {
		cfg.RateLimit = middleware.NewRateLimitMiddleware(limiter, metrics)
	}
	return &testServer{server: NewServer(cfg), store: store, tokens: tokens}
}

func (ts *testServer) do(t *testing.T, method, path, token string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	ts.server.ServeHTTP(rec, req)

	var env envelope
	if rec.Header().Get("Content-Type") == "application/json" {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	}
	return rec, env
}

func (ts *testServer) token(t *testing.T, userID string) string {
	t.Helper()
	token, _, err := ts.tokens.Issue(userID)
	require.NoError(t, err)
	return token
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v))
	return v
}

type listPayload[T any] struct {
	Items []T `json:"items"`
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
}

// bootstrap registers an organization and returns its admin token and code
func (ts *testServer) bootstrap(t *testing.T) (string, string) {
	t.Helper()
	rec, env := ts.do(t, http.MethodPost, "/api/v1/auth/organizations", "", map[string]string{
		"organizationName": "Acme",
		"organizationCode": "ACME01",
		"name":             "Ada",
		"email":            "ada@acme.test",
	})
	require.Equal(t, http.StatusCreated, rec.Code, env.Message)
	result := decode[orgs.RegisterResult](t, env.Data)
	require.NotEmpty(t, result.Token)
	return result.Token, result.Organization.Code
}

func (ts *testServer) createUser(t *testing.T, adminToken, name string, role models.Role) (*models.User, string) {
	t.Helper()
	rec, env := ts.do(t, http.MethodPost, "/api/v1/admin/users", adminToken, map[string]string{
		"name": name, "email": name + "@acme.test", "role": string(role),
	})
	require.Equal(t, http.StatusCreated, rec.Code, env.Message)
	user := decode[*models.User](t, env.Data)
	return user, ts.token(t, user.ID)
}

func TestRegistrationAndApprovalFlow(t *testing.T) {
	ts := newTestServer(t, nil)
	adminToken, code := ts.bootstrap(t)

	rec, env := ts.do(t, http.MethodGet, "/api/v1/auth/me", adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	me := decode[meResponse](t, env.Data)
	assert.Equal(t, models.RoleAdmin, me.User.Role)
	assert.Equal(t, "ACME01", me.Organization.Code)

	rec, env = ts.do(t, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"organizationCode": code, "name": "Sam", "email": "sam@acme.test",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	pending := decode[*models.User](t, env.Data)
	assert.False(t, pending.IsApproved)

	// A pending account cannot authenticate
	samToken := ts.token(t, pending.ID)
	rec, env = ts.do(t, http.MethodGet, "/api/v1/auth/me", samToken, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, auth.MessageInvalidCredentials, env.Message)

	rec, env = ts.do(t, http.MethodGet, "/api/v1/admin/users/pending", adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[listPayload[*models.User]](t, env.Data)
	require.Len(t, list.Items, 1)
	assert.Equal(t, pending.ID, list.Items[0].ID)

	rec, _ = ts.do(t, http.MethodPost, "/api/v1/admin/users/"+pending.ID+"/approve", adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec, _ = ts.do(t, http.MethodGet, "/api/v1/auth/me", samToken, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	// Team members cannot reach the admin routes
	rec, env = ts.do(t, http.MethodGet, "/api/v1/admin/dashboard", samToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, rbac.ReasonInsufficientRole, env.Message)

	rec, env = ts.do(t, http.MethodGet, "/api/v1/admin/dashboard", adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	dash := decode[orgs.Dashboard](t, env.Data)
	assert.Equal(t, 2, dash.Users.Total)
}

func TestRegisterErrors(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.bootstrap(t)

	rec, env := ts.do(t, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"organizationCode": "NOPE00", "name": "Kim", "email": "kim@acme.test",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, env.Success)

	rec, _ = ts.do(t, http.MethodPost, "/api/v1/auth/organizations", "", map[string]string{
		"organizationName": "Again", "organizationCode": "ACME01", "name": "Bo", "email": "bo@acme.test",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec, _ = ts.do(t, http.MethodPost, "/api/v1/auth/register", "", map[string]string{"unexpected": "field"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestProjectAndTaskFlow(t *testing.T) {
	ts := newTestServer(t, nil)
	adminToken, _ := ts.bootstrap(t)
	dh, dhToken := ts.createUser(t, adminToken, "dana", models.RoleDepartmentHead)
	tm, tmToken := ts.createUser(t, adminToken, "tom", models.RoleTeamMember)
	pl, plToken := ts.createUser(t, adminToken, "paula", models.RoleProjectLead)
	_, outsiderToken := ts.createUser(t, adminToken, "olaf", models.RoleTeamMember)

	rec, env := ts.do(t, http.MethodPost, "/api/v1/projects", adminToken, map[string]interface{}{"name": "Nope"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, rbac.ReasonAdminViewOnly, env.Message)

	rec, env = ts.do(t, http.MethodPost, "/api/v1/projects", dhToken, map[string]interface{}{
		"name":    "Apollo",
		"members": []map[string]string{{"user": tm.ID, "role": "member"}, {"user": pl.ID, "role": "manager"}},
	})
	require.Equal(t, http.StatusCreated, rec.Code, env.Message)
	project := decode[*models.Project](t, env.Data)
	assert.Equal(t, dh.ID, project.Owner)

	// Sub-role decides modification, not the organization role alone
	rec, _ = ts.do(t, http.MethodPut, "/api/v1/projects/"+project.ID, tmToken, map[string]interface{}{"name": "Tom's"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec, _ = ts.do(t, http.MethodPut, "/api/v1/projects/"+project.ID, plToken, map[string]interface{}{"name": "Apollo II"})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, env = ts.do(t, http.MethodGet, "/api/v1/projects", tmToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	projectsList := decode[listPayload[*models.Project]](t, env.Data)
	require.Len(t, projectsList.Items, 1)
	assert.Equal(t, "Apollo II", projectsList.Items[0].Name)
	assert.Equal(t, 20, projectsList.Limit)

	rec, env = ts.do(t, http.MethodGet, "/api/v1/projects", outsiderToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[listPayload[*models.Project]](t, env.Data).Items)

	rec, env = ts.do(t, http.MethodPost, "/api/v1/tasks", tmToken, map[string]interface{}{
		"title": "Write docs", "project": project.ID, "assignee": tm.ID, "priority": "high",
	})
	require.Equal(t, http.StatusCreated, rec.Code, env.Message)
	task := decode[*models.Task](t, env.Data)
	assert.Equal(t, tm.ID, task.Reporter)

	rec, env = ts.do(t, http.MethodPost, "/api/v1/tasks", dhToken, map[string]interface{}{
		"title": "Bad", "project": project.ID, "assignee": "nobody",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, rbac.ReasonAssigneeNotMember, env.Message)

	rec, _ = ts.do(t, http.MethodGet, "/api/v1/tasks/"+task.ID, outsiderToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, env = ts.do(t, http.MethodPost, "/api/v1/tasks/"+task.ID+"/comments", tmToken, map[string]string{"text": "on it"})
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Len(t, decode[*models.Task](t, env.Data).Comments, 1)

	rec, env = ts.do(t, http.MethodGet, "/api/v1/projects/"+project.ID+"/tasks?priority=high", tmToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, decode[listPayload[*models.Task]](t, env.Data).Total)

	rec, _ = ts.do(t, http.MethodDelete, "/api/v1/tasks/"+task.ID, plToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, env = ts.do(t, http.MethodDelete, "/api/v1/projects/"+project.ID+"/members/"+tm.ID, plToken, nil)
	require.Equal(t, http.StatusOK, rec.Code, env.Message)

	// Membership changes apply to the very next request
	rec, _ = ts.do(t, http.MethodGet, "/api/v1/projects/"+project.ID, tmToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, env = ts.do(t, http.MethodDelete, "/api/v1/projects/"+project.ID, dhToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(1), decode[cascade.ProjectCascadeResult](t, env.Data).TasksDeleted)

	rec, _ = ts.do(t, http.MethodGet, "/api/v1/tasks/"+task.ID, dhToken, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUserDeletionCascades(t *testing.T) {
	ts := newTestServer(t, nil)
	adminToken, _ := ts.bootstrap(t)
	_, dhToken := ts.createUser(t, adminToken, "dana", models.RoleDepartmentHead)
	tm, tmToken := ts.createUser(t, adminToken, "tom", models.RoleTeamMember)

	_, env := ts.do(t, http.MethodPost, "/api/v1/projects", dhToken, map[string]interface{}{
		"name": "Apollo", "members": []map[string]string{{"user": tm.ID}},
	})
	project := decode[*models.Project](t, env.Data)
	_, env = ts.do(t, http.MethodPost, "/api/v1/tasks", tmToken, map[string]interface{}{"title": "mine", "project": project.ID, "assignee": tm.ID})
	task := decode[*models.Task](t, env.Data)

	rec, env := ts.do(t, http.MethodDelete, "/api/v1/admin/users/"+tm.ID, adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code, env.Message)

	_, env = ts.do(t, http.MethodGet, "/api/v1/auth/me", adminToken, nil)
	admin := decode[meResponse](t, env.Data).User

	rec, env = ts.do(t, http.MethodGet, "/api/v1/tasks/"+task.ID, dhToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[*models.Task](t, env.Data)
	assert.Equal(t, admin.ID, got.Reporter)
	assert.Empty(t, got.Assignee)

	rec, _ = ts.do(t, http.MethodGet, "/api/v1/auth/me", tmToken, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, env = ts.do(t, http.MethodDelete, "/api/v1/admin/users/"+admin.ID, adminToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, rbac.ReasonSelfDelete, env.Message)
}

func TestRoutingErrors(t *testing.T) {
	ts := newTestServer(t, nil)

	rec, env := ts.do(t, http.MethodGet, "/api/v1/nothing-here", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.False(t, env.Success)

	rec, _ = ts.do(t, http.MethodPatch, "/api/v1/projects", "", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	rec, env = ts.do(t, http.MethodGet, "/api/v1/projects", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, auth.MessageMissingCredentials, env.Message)

	rec, _ = ts.do(t, http.MethodGet, "/api/v1/projects", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestOpsEndpoints(t *testing.T) {
	ts := newTestServer(t, nil)

	rec, _ := ts.do(t, http.MethodGet, "/health/live", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = ts.do(t, http.MethodGet, "/health/ready", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	ts.do(t, http.MethodGet, "/api/v1/projects", "", nil)
	rec, _ = ts.do(t, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "http_requests_total")
}

func TestRateLimit(t *testing.T) {
	limiter := middleware.NewRateLimiter(&middleware.RateLimitConfig{
		RequestsPerWindow: 1,
		WindowDuration:    time.Hour,
		BurstSize:         1,
	})
	ts := newTestServer(t, limiter)
	adminToken, _ := ts.bootstrap(t)

	rec, _ := ts.do(t, http.MethodGet, "/api/v1/auth/me", adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec, _ = ts.do(t, http.MethodGet, "/api/v1/auth/me", adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec, _ = ts.do(t, http.MethodGet, "/api/v1/auth/me", adminToken, nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
}

func TestOpenAPIDocument(t *testing.T) {
	ts := newTestServer(t, nil)

	rec, _ := ts.do(t, http.MethodGet, "/openapi.json", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "/admin/dashboard")
}
