package auth

import (
	"context"

	"github.com/platinummonkey/taskboard/pkg/contextkeys"
	"github.com/platinummonkey/taskboard/pkg/models"
)

// AuthContext is the resolved principal of a request
type AuthContext struct {
	User *models.User
	// Organization is filled in by the organization boundary middleware
	Organization *models.Organization
}

// UserID returns the principal's id, empty when unauthenticated
func (a *AuthContext) UserID() string {
	if a == nil || a.User == nil {
		return ""
	}
	return a.User.ID
}

// FromContext returns the auth context attached by the auth middleware
func FromContext(ctx context.Context) (*AuthContext, bool) {
	authCtx, ok := ctx.Value(contextkeys.AuthKey).(*AuthContext)
	if !ok || authCtx == nil || authCtx.User == nil {
		return nil, false
	}
	return authCtx, true
}

// UserFromContext returns the authenticated user or nil
func UserFromContext(ctx context.Context) *models.User {
	if authCtx, ok := FromContext(ctx); ok {
		return authCtx.User
	}
	return nil
}
