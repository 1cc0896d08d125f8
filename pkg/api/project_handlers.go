package api

import (
	"net/http"

	"github.com/platinummonkey/taskboard/pkg/httputil"
	"github.com/platinummonkey/taskboard/pkg/models"
	"github.com/platinummonkey/taskboard/pkg/projects"
)

// listProjects handles GET /api/v1/projects
func (s *Server) listProjects(w http.ResponseWriter, r *http.Request) {
	user := principal(w, r)
	if user == nil {
		return
	}
	page, err := httputil.ParsePage(r)
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	result, err := s.projects.List(r.Context(), user, projects.ListOptions{
		Page:   page,
		Status: models.ProjectStatus(httputil.ParseQueryString(r, "status", "")),
		Search: httputil.ParseQueryString(r, "search", ""),
	})
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, result)
}

// createProject handles POST /api/v1/projects
func (s *Server) createProject(w http.ResponseWriter, r *http.Request) {
	user := principal(w, r)
	if user == nil {
		return
	}
	var req projects.CreateInput
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	project, err := s.projects.Create(r.Context(), user, req)
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	httputil.WriteCreated(w, "Project created", project)
}

// getProject handles GET /api/v1/projects/{id}
func (s *Server) getProject(w http.ResponseWriter, r *http.Request) {
	user := principal(w, r)
	if user == nil {
		return
	}
	id, err := httputil.ParsePathString(r, "id")
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	project, err := s.projects.Get(r.Context(), user, id)
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, project)
}

// updateProject handles PUT /api/v1/projects/{id}
func (s *Server) updateProject(w http.ResponseWriter, r *http.Request) {
	user := principal(w, r)
	if user == nil {
		return
	}
	id, err := httputil.ParsePathString(r, "id")
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	var req projects.UpdateInput
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	project, err := s.projects.Update(r.Context(), user, id, req)
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	httputil.WriteSuccessMessage(w, "Project updated", project)
}

// deleteProject handles DELETE /api/v1/projects/{id}
func (s *Server) deleteProject(w http.ResponseWriter, r *http.Request) {
	user := principal(w, r)
	if user == nil {
		return
	}
	id, err := httputil.ParsePathString(r, "id")
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	result, err := s.projects.Delete(r.Context(), user, id)
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	httputil.WriteSuccessMessage(w, "Project deleted", result)
}

// addProjectMember handles POST /api/v1/projects/{id}/members
func (s *Server) addProjectMember(w http.ResponseWriter, r *http.Request) {
	user := principal(w, r)
	if user == nil {
		return
	}
	id, err := httputil.ParsePathString(r, "id")
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	var req projects.MemberInput
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	project, err := s.projects.AddMember(r.Context(), user, id, req)
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	httputil.WriteSuccessMessage(w, "Member saved", project)
}

// removeProjectMember handles DELETE /api/v1/projects/{id}/members/{user_id}
func (s *Server) removeProjectMember(w http.ResponseWriter, r *http.Request) {
	user := principal(w, r)
	if user == nil {
		return
	}
	id, err := httputil.ParsePathString(r, "id")
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	memberID, err := httputil.ParsePathString(r, "user_id")
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	project, err := s.projects.RemoveMember(r.Context(), user, id, memberID)
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	httputil.WriteSuccessMessage(w, "Member removed", project)
}

// listProjectTasks handles GET /api/v1/projects/{id}/tasks
func (s *Server) listProjectTasks(w http.ResponseWriter, r *http.Request) {
	user := principal(w, r)
	if user == nil {
		return
	}
	id, err := httputil.ParsePathString(r, "id")
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	opts, err := taskListOptions(r)
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	result, err := s.tasks.ListForProject(r.Context(), user, id, opts)
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, result)
}
