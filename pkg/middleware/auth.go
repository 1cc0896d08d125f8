package middleware

import (
	"net/http"

	"github.com/platinummonkey/taskboard/pkg/apperr"
	"github.com/platinummonkey/taskboard/pkg/auth"
	"github.com/platinummonkey/taskboard/pkg/contextkeys"
	"github.com/platinummonkey/taskboard/pkg/httputil"
	"github.com/platinummonkey/taskboard/pkg/models"
	"github.com/platinummonkey/taskboard/pkg/rbac"
)

// AuthMiddleware resolves the bearer token of every request into a principal
type AuthMiddleware struct {
	resolver *auth.Resolver
}

// NewAuthMiddleware creates a new authentication middleware
func NewAuthMiddleware(resolver *auth.Resolver) *AuthMiddleware {
	return &AuthMiddleware{resolver: resolver}
}

// Handler wraps an HTTP handler with authentication. Requests without a
// valid token for an active, approved user never reach next.
func (m *AuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			httputil.WriteAppError(w, r, apperr.Unauthenticated(auth.MessageMissingCredentials))
			return
		}

		token, ok := auth.BearerToken(header)
		if !ok {
			httputil.WriteAppError(w, r, apperr.Unauthenticated(auth.MessageInvalidCredentials))
			return
		}

		user, err := m.resolver.Resolve(r.Context(), token)
		if err != nil {
			httputil.WriteAppError(w, r, err)
			return
		}

		ctx := contextkeys.WithAuth(r.Context(), &auth.AuthContext{User: user})
		ctx = contextkeys.WithUserID(ctx, user.ID)
		ctx = contextkeys.WithOrgID(ctx, user.OrganizationID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetAuthContext extracts auth context from request
func GetAuthContext(r *http.Request) *auth.AuthContext {
	authCtx, ok := auth.FromContext(r.Context())
	if !ok {
		return nil
	}
	return authCtx
}

// RequireRole creates middleware that admits principals at or above minRole
func RequireRole(minRole models.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authCtx := GetAuthContext(r)
			if authCtx == nil {
				httputil.WriteAppError(w, r, apperr.Unauthenticated(auth.MessageMissingCredentials))
				return
			}

			if !rbac.AtLeast(authCtx.User.Role, minRole) {
				httputil.WriteAppError(w, r, apperr.Forbidden(rbac.ReasonInsufficientRole))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
