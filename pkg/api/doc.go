// Package api provides the HTTP JSON API of the tracker.
//
// # Architecture
//
// The API is built on gorilla/mux. Every response is an envelope:
//
//	{"success": true, "message": "...", "data": {...}}
//
// List endpoints return {items, page, limit, total} as data and accept the
// page and limit query parameters (default 20, at most 100).
//
// Requests pass through, in order: panic recovery, request id, access
// logging, HTTP metrics, then for authenticated routes the bearer token
// resolver, the organization boundary and the rate limiter. Handlers are
// thin; the access decisions are made by the domain services in
// pkg/projects, pkg/tasks, pkg/users and pkg/orgs.
//
// # Routes
//
// Public:
//
//	GET  /health, /health/live, /health/ready
//	GET  /metrics
//	GET  /openapi.yaml, /openapi.json, /swagger-ui
//	POST /api/v1/auth/register        join an organization, pending approval
//	POST /api/v1/auth/organizations   create an organization and its admin
//
// Authenticated:
//
//	GET                /api/v1/auth/me
//	GET, POST          /api/v1/projects
//	GET, PUT, DELETE   /api/v1/projects/{id}
//	POST               /api/v1/projects/{id}/members
//	DELETE             /api/v1/projects/{id}/members/{user_id}
//	GET                /api/v1/projects/{id}/tasks
//	GET, POST          /api/v1/tasks
//	GET, PUT, DELETE   /api/v1/tasks/{id}
//	POST               /api/v1/tasks/{id}/comments
//	GET                /api/v1/users
//
// Administrators only:
//
//	GET     /api/v1/admin/users/pending
//	POST    /api/v1/admin/users
//	PUT     /api/v1/admin/users/{id}
//	POST    /api/v1/admin/users/{id}/approve
//	POST    /api/v1/admin/users/{id}/reject
//	DELETE  /api/v1/admin/users/{id}
//	GET     /api/v1/admin/dashboard
package api
