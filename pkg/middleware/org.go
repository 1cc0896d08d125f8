package middleware

import (
	"context"
	"net/http"

	"github.com/platinummonkey/taskboard/pkg/apperr"
	"github.com/platinummonkey/taskboard/pkg/auth"
	"github.com/platinummonkey/taskboard/pkg/contextkeys"
	"github.com/platinummonkey/taskboard/pkg/httputil"
	"github.com/platinummonkey/taskboard/pkg/models"
	"github.com/platinummonkey/taskboard/pkg/rbac"
	"github.com/platinummonkey/taskboard/pkg/storage"
)

// OrganizationLoader is the slice of the organization store the boundary needs
type OrganizationLoader interface {
	GetOrganization(ctx context.Context, id string) (*models.Organization, error)
}

// OrgBoundary requires the principal's organization to exist and be active,
// and attaches it to the auth context. It must run after AuthMiddleware.
func OrgBoundary(orgs OrganizationLoader) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authCtx := GetAuthContext(r)
			if authCtx == nil {
				httputil.WriteAppError(w, r, apperr.Unauthenticated(rbac.ReasonUnauthenticatedUser))
				return
			}
			if authCtx.User.OrganizationID == "" {
				httputil.WriteAppError(w, r, apperr.Forbidden(rbac.ReasonNoOrganization))
				return
			}

			org, err := orgs.GetOrganization(r.Context(), authCtx.User.OrganizationID)
			if err != nil {
				if storage.IsNotFound(err) {
					httputil.WriteAppError(w, r, apperr.Forbidden(rbac.ReasonNoOrganization))
					return
				}
				httputil.WriteAppError(w, r, apperr.Internal("failed to load organization", err))
				return
			}
			if !org.IsActive {
				httputil.WriteAppError(w, r, apperr.Forbidden(rbac.ReasonInactiveOrg))
				return
			}

			ctx := contextkeys.WithAuth(r.Context(), &auth.AuthContext{User: authCtx.User, Organization: org})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
