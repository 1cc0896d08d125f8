package api

import (
	"net/http"
	"os"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/platinummonkey/taskboard/pkg/auth"
	"github.com/platinummonkey/taskboard/pkg/httputil"
	"github.com/platinummonkey/taskboard/pkg/middleware"
	"github.com/platinummonkey/taskboard/pkg/models"
	"github.com/platinummonkey/taskboard/pkg/observability"
	"github.com/platinummonkey/taskboard/pkg/orgs"
	"github.com/platinummonkey/taskboard/pkg/projects"
	"github.com/platinummonkey/taskboard/pkg/swagger"
	"github.com/platinummonkey/taskboard/pkg/tasks"
	"github.com/platinummonkey/taskboard/pkg/users"
)

// DefaultMaxBodyBytes caps request bodies when Config leaves it unset
const DefaultMaxBodyBytes = 1 << 20

// Config wires the server to its collaborators. Metrics, Registry, Health
// and RateLimit are optional.
type Config struct {
	Projects      *projects.Service
	Tasks         *tasks.Service
	Users         *users.Service
	Organizations *orgs.Service

	Resolver *auth.Resolver
	OrgStore middleware.OrganizationLoader

	Logger    *observability.Logger
	Metrics   *observability.Metrics
	Registry  *prometheus.Registry
	Health    *observability.HealthChecker
	RateLimit *middleware.RateLimitMiddleware

	// Tracing wraps the router with otelhttp
	Tracing      bool
	ServiceName  string
	MaxBodyBytes int64
}

// Server is the HTTP API server
type Server struct {
	router  *mux.Router
	handler http.Handler

	projects *projects.Service
	tasks    *tasks.Service
	users    *users.Service
	orgs     *orgs.Service
}

// NewServer creates the server and registers every route
func NewServer(cfg Config) *Server {
	if cfg.Logger == nil {
		cfg.Logger = observability.NewLogger(observability.InfoLevel, os.Stdout)
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if cfg.ServiceName == "" {
		cfg.ServiceName = "taskboard"
	}

	s := &Server{
		router:   mux.NewRouter(),
		projects: cfg.Projects,
		tasks:    cfg.Tasks,
		users:    cfg.Users,
		orgs:     cfg.Organizations,
	}
	s.router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteNotFound(w, "route not found")
	})
	s.router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteErrorMessage(w, http.StatusMethodNotAllowed, "method not allowed")
	})
	if cfg.Metrics != nil {
		// runs after route matching so the route template is known
		s.router.Use(observability.HTTPMetricsMiddleware(cfg.Metrics))
	}

	if cfg.Health != nil {
		observability.RegisterHealthRoutes(s.router, cfg.Health)
	}
	if cfg.Registry != nil {
		observability.RegisterMetricsEndpoint(s.router, cfg.Registry)
	}
	swagger.NewSwaggerHandlers().RegisterRoutes(s.router)
	s.setupRoutes(cfg)

	var handler http.Handler = s.router
	if cfg.Tracing {
		handler = otelhttp.NewHandler(handler, cfg.ServiceName)
	}
	s.handler = httputil.Chain(
		httputil.RecoveryMiddleware,
		httputil.RequestIDMiddleware,
		httputil.LoggingMiddleware(cfg.Logger),
		httputil.MaxBytesMiddleware(cfg.MaxBodyBytes),
	)(handler)
	return s
}

// setupRoutes configures the API routes
func (s *Server) setupRoutes(cfg Config) {
	api := s.router.PathPrefix("/api/v1").Subrouter()

	// Public registration
	api.HandleFunc("/auth/register", s.register).Methods(http.MethodPost)
	api.HandleFunc("/auth/organizations", s.registerOrganization).Methods(http.MethodPost)

	// Everything else requires an active principal of an active organization
	protected := api.NewRoute().Subrouter()
	protected.Use(middleware.NewAuthMiddleware(cfg.Resolver).Handler)
	protected.Use(middleware.OrgBoundary(cfg.OrgStore))
	if cfg.RateLimit != nil {
		protected.Use(cfg.RateLimit.Handler)
	}

	protected.HandleFunc("/auth/me", s.me).Methods(http.MethodGet)

	protected.HandleFunc("/projects", s.listProjects).Methods(http.MethodGet)
	protected.HandleFunc("/projects", s.createProject).Methods(http.MethodPost)
	protected.HandleFunc("/projects/{id}", s.getProject).Methods(http.MethodGet)
	protected.HandleFunc("/projects/{id}", s.updateProject).Methods(http.MethodPut)
	protected.HandleFunc("/projects/{id}", s.deleteProject).Methods(http.MethodDelete)
	protected.HandleFunc("/projects/{id}/members", s.addProjectMember).Methods(http.MethodPost)
	protected.HandleFunc("/projects/{id}/members/{user_id}", s.removeProjectMember).Methods(http.MethodDelete)
	protected.HandleFunc("/projects/{id}/tasks", s.listProjectTasks).Methods(http.MethodGet)

	protected.HandleFunc("/tasks", s.listTasks).Methods(http.MethodGet)
	protected.HandleFunc("/tasks", s.createTask).Methods(http.MethodPost)
	protected.HandleFunc("/tasks/{id}", s.getTask).Methods(http.MethodGet)
	protected.HandleFunc("/tasks/{id}", s.updateTask).Methods(http.MethodPut)
	protected.HandleFunc("/tasks/{id}", s.deleteTask).Methods(http.MethodDelete)
	protected.HandleFunc("/tasks/{id}/comments", s.commentTask).Methods(http.MethodPost)

	protected.HandleFunc("/users", s.listUsers).Methods(http.MethodGet)

	admin := protected.PathPrefix("/admin").Subrouter()
	admin.Use(middleware.RequireRole(models.RoleAdmin))
	admin.HandleFunc("/users/pending", s.pendingUsers).Methods(http.MethodGet)
	admin.HandleFunc("/users", s.createUser).Methods(http.MethodPost)
	admin.HandleFunc("/users/{id}", s.updateUser).Methods(http.MethodPut)
	admin.HandleFunc("/users/{id}/approve", s.approveUser).Methods(http.MethodPost)
	admin.HandleFunc("/users/{id}/reject", s.rejectUser).Methods(http.MethodPost)
	admin.HandleFunc("/users/{id}", s.deleteUser).Methods(http.MethodDelete)
	admin.HandleFunc("/dashboard", s.dashboard).Methods(http.MethodGet)
}

// Router exposes the router so callers can mount extra routes
func (s *Server) Router() *mux.Router {
	return s.router
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// principal returns the authenticated user, writing a 401 when there is none
func principal(w http.ResponseWriter, r *http.Request) *models.User {
	user := auth.UserFromContext(r.Context())
	if user == nil {
		httputil.WriteUnauthorized(w, auth.MessageMissingCredentials)
	}
	return user
}
