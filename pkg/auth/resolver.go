package auth

import (
	"context"
	"fmt"
	"strings"

	"github.com/platinummonkey/taskboard/pkg/apperr"
	"github.com/platinummonkey/taskboard/pkg/models"
	"github.com/platinummonkey/taskboard/pkg/storage"
)

const (
	// MessageMissingCredentials is returned when no bearer token was sent
	MessageMissingCredentials = "authentication required"
	// MessageInvalidCredentials is the single message for every rejected
	// credential, so callers cannot tell a missing account from a
	// deactivated or pending one
	MessageInvalidCredentials = "invalid or expired credentials"
)

// UserLoader is the slice of the user store the resolver needs
type UserLoader interface {
	GetUser(ctx context.Context, id string) (*models.User, error)
}

// Resolver turns a bearer token into an active, approved principal
type Resolver struct {
	verifier Verifier
	users    UserLoader
}

// NewResolver creates an identity resolver
func NewResolver(verifier Verifier, users UserLoader) *Resolver {
	return &Resolver{verifier: verifier, users: users}
}

// Resolve verifies the token and loads the principal it names. Storage
// failures other than not-found surface as internal errors.
func (r *Resolver) Resolve(ctx context.Context, token string) (*models.User, error) {
	if strings.TrimSpace(token) == "" {
		return nil, apperr.Unauthenticated(MessageMissingCredentials)
	}

	userID, err := r.verifier.Verify(token)
	if err != nil {
		return nil, &apperr.Error{Kind: apperr.KindUnauthenticated, Message: MessageInvalidCredentials, Err: err}
	}

	user, err := r.users.GetUser(ctx, userID)
	if err != nil {
		if storage.IsNotFound(err) {
			return nil, apperr.Unauthenticated(MessageInvalidCredentials)
		}
		return nil, apperr.Internal("failed to load principal", fmt.Errorf("load user %s: %w", userID, err))
	}

	if !user.CanSignIn() {
		return nil, apperr.Unauthenticated(MessageInvalidCredentials)
	}
	return user, nil
}

// BearerToken extracts the token from an Authorization header value.
// The scheme is matched case-insensitively.
func BearerToken(header string) (string, bool) {
	parts := strings.SplitN(strings.TrimSpace(header), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	return token, token != ""
}
