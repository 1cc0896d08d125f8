package api

import (
	"net/http"

	"github.com/platinummonkey/taskboard/pkg/auth"
	"github.com/platinummonkey/taskboard/pkg/httputil"
	"github.com/platinummonkey/taskboard/pkg/models"
	"github.com/platinummonkey/taskboard/pkg/orgs"
)

// meResponse is the current principal and their organization
type meResponse struct {
	User         *models.User         `json:"user"`
	Organization *models.Organization `json:"organization,omitempty"`
}

// register handles POST /api/v1/auth/register
func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var req orgs.JoinInput
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	user, err := s.orgs.Join(r.Context(), req)
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	httputil.WriteCreated(w, "Registration submitted. An administrator must approve your account before you can sign in.", user)
}

// registerOrganization handles POST /api/v1/auth/organizations
func (s *Server) registerOrganization(w http.ResponseWriter, r *http.Request) {
	var req orgs.RegisterInput
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	result, err := s.orgs.Register(r.Context(), req)
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	httputil.WriteCreated(w, "Organization created", result)
}

// me handles GET /api/v1/auth/me
func (s *Server) me(w http.ResponseWriter, r *http.Request) {
	authCtx, ok := auth.FromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, auth.MessageMissingCredentials)
		return
	}
	httputil.WriteSuccess(w, meResponse{User: authCtx.User, Organization: authCtx.Organization})
}
