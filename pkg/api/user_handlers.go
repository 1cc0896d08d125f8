package api

import (
	"net/http"

	"github.com/platinummonkey/taskboard/pkg/httputil"
	"github.com/platinummonkey/taskboard/pkg/models"
	"github.com/platinummonkey/taskboard/pkg/users"
)

// listUsers handles GET /api/v1/users
func (s *Server) listUsers(w http.ResponseWriter, r *http.Request) {
	user := principal(w, r)
	if user == nil {
		return
	}
	page, err := httputil.ParsePage(r)
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	result, err := s.users.List(r.Context(), user, users.ListOptions{
		Page:   page,
		Role:   models.Role(httputil.ParseQueryString(r, "role", "")),
		Search: httputil.ParseQueryString(r, "search", ""),
	})
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, result)
}

// pendingUsers handles GET /api/v1/admin/users/pending
func (s *Server) pendingUsers(w http.ResponseWriter, r *http.Request) {
	admin := principal(w, r)
	if admin == nil {
		return
	}
	page, err := httputil.ParsePage(r)
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	result, err := s.users.Pending(r.Context(), admin, page)
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, result)
}

// createUser handles POST /api/v1/admin/users
func (s *Server) createUser(w http.ResponseWriter, r *http.Request) {
	admin := principal(w, r)
	if admin == nil {
		return
	}
	var req users.CreateInput
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	user, err := s.users.Create(r.Context(), admin, req)
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	httputil.WriteCreated(w, "User created", user)
}

// updateUser handles PUT /api/v1/admin/users/{id}
func (s *Server) updateUser(w http.ResponseWriter, r *http.Request) {
	admin := principal(w, r)
	if admin == nil {
		return
	}
	id, err := httputil.ParsePathString(r, "id")
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	var req users.UpdateInput
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	user, err := s.users.Update(r.Context(), admin, id, req)
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	httputil.WriteSuccessMessage(w, "User updated", user)
}

// approveUser handles POST /api/v1/admin/users/{id}/approve
func (s *Server) approveUser(w http.ResponseWriter, r *http.Request) {
	admin := principal(w, r)
	if admin == nil {
		return
	}
	id, err := httputil.ParsePathString(r, "id")
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	user, err := s.users.Approve(r.Context(), admin, id)
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	httputil.WriteSuccessMessage(w, "User approved", user)
}

// rejectUser handles POST /api/v1/admin/users/{id}/reject
func (s *Server) rejectUser(w http.ResponseWriter, r *http.Request) {
	admin := principal(w, r)
	if admin == nil {
		return
	}
	id, err := httputil.ParsePathString(r, "id")
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	if err := s.users.Reject(r.Context(), admin, id); err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	httputil.WriteSuccessMessage(w, "Registration rejected", nil)
}

// deleteUser handles DELETE /api/v1/admin/users/{id}
func (s *Server) deleteUser(w http.ResponseWriter, r *http.Request) {
	admin := principal(w, r)
	if admin == nil {
		return
	}
	id, err := httputil.ParsePathString(r, "id")
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	result, err := s.users.Delete(r.Context(), admin, id)
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	httputil.WriteSuccessMessage(w, "User deleted", result)
}

// dashboard handles GET /api/v1/admin/dashboard
func (s *Server) dashboard(w http.ResponseWriter, r *http.Request) {
	admin := principal(w, r)
	if admin == nil {
		return
	}
	d, err := s.orgs.Dashboard(r.Context(), admin)
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, d)
}
