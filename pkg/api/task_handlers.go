package api

import (
	"net/http"

	"github.com/platinummonkey/taskboard/pkg/httputil"
	"github.com/platinummonkey/taskboard/pkg/models"
	"github.com/platinummonkey/taskboard/pkg/tasks"
)

func taskListOptions(r *http.Request) (tasks.ListOptions, error) {
	page, err := httputil.ParsePage(r)
	if err != nil {
		return tasks.ListOptions{}, err
	}
	return tasks.ListOptions{
		Page:     page,
		Status:   models.TaskStatus(httputil.ParseQueryString(r, "status", "")),
		Priority: models.Priority(httputil.ParseQueryString(r, "priority", "")),
		Project:  httputil.ParseQueryString(r, "project", ""),
		Assignee: httputil.ParseQueryString(r, "assignee", ""),
		Search:   httputil.ParseQueryString(r, "search", ""),
	}, nil
}

// listTasks handles GET /api/v1/tasks
func (s *Server) listTasks(w http.ResponseWriter, r *http.Request) {
	user := principal(w, r)
	if user == nil {
		return
	}
	opts, err := taskListOptions(r)
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	result, err := s.tasks.List(r.Context(), user, opts)
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, result)
}

// createTask handles POST /api/v1/tasks
func (s *Server) createTask(w http.ResponseWriter, r *http.Request) {
	user := principal(w, r)
	if user == nil {
		return
	}
	var req tasks.CreateInput
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	task, err := s.tasks.Create(r.Context(), user, req)
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	httputil.WriteCreated(w, "Task created", task)
}

// getTask handles GET /api/v1/tasks/{id}
func (s *Server) getTask(w http.ResponseWriter, r *http.Request) {
	user := principal(w, r)
	if user == nil {
		return
	}
	id, err := httputil.ParsePathString(r, "id")
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	task, err := s.tasks.Get(r.Context(), user, id)
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, task)
}

// updateTask handles PUT /api/v1/tasks/{id}
func (s *Server) updateTask(w http.ResponseWriter, r *http.Request) {
	user := principal(w, r)
	if user == nil {
		return
	}
	id, err := httputil.ParsePathString(r, "id")
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	var req tasks.UpdateInput
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	task, err := s.tasks.Update(r.Context(), user, id, req)
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	httputil.WriteSuccessMessage(w, "Task updated", task)
}

// deleteTask handles DELETE /api/v1/tasks/{id}
func (s *Server) deleteTask(w http.ResponseWriter, r *http.Request) {
	user := principal(w, r)
	if user == nil {
		return
	}
	id, err := httputil.ParsePathString(r, "id")
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	if err := s.tasks.Delete(r.Context(), user, id); err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	httputil.WriteSuccessMessage(w, "Task deleted", nil)
}

// commentTask handles POST /api/v1/tasks/{id}/comments
func (s *Server) commentTask(w http.ResponseWriter, r *http.Request) {
	user := principal(w, r)
	if user == nil {
		return
	}
	id, err := httputil.ParsePathString(r, "id")
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	var req tasks.CommentInput
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	task, err := s.tasks.Comment(r.Context(), user, id, req)
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	httputil.WriteCreated(w, "Comment added", task)
}
