package middleware

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/taskboard/pkg/auth"
	"github.com/platinummonkey/taskboard/pkg/models"
	"github.com/platinummonkey/taskboard/pkg/storage/memory"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

type fixture struct {
	store  *memory.Store
	tokens *auth.TokenManager
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	store := memory.New()
	now := time.Now().UTC()

	require.NoError(t, store.CreateOrganization(ctx, &models.Organization{
		ID: "org-a", Name: "Acme", Code: "ACME01", IsActive: true, CreatedAt: now, UpdatedAt: now,
	}))
	require.NoError(t, store.CreateOrganization(ctx, &models.Organization{
		ID: "org-off", Name: "Dormant", Code: "DORM01", IsActive: false, CreatedAt: now, UpdatedAt: now,
	}))

	users := []*models.User{
		{ID: "admin", Role: models.RoleAdmin, OrganizationID: "org-a"},
		{ID: "member", Role: models.RoleTeamMember, OrganizationID: "org-a"},
		{ID: "dormant", Role: models.RoleTeamMember, OrganizationID: "org-off"},
		{ID: "orphan", Role: models.RoleTeamMember, OrganizationID: "org-gone"},
	}
	for _, u := range users {
		u.Name = u.ID
		u.Email = u.ID + "@example.com"
		u.IsActive = true
		u.IsApproved = true
		u.CreatedAt, u.UpdatedAt = now, now
		require.NoError(t, store.CreateUser(ctx, u))
	}

	return &fixture{store: store, tokens: auth.NewTokenManager(testSecret, "", time.Hour)}
}

func (f *fixture) bearer(t *testing.T, req *http.Request, userID string) *http.Request {
	t.Helper()
	token, _, err := f.tokens.Issue(userID)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

func (f *fixture) authenticate() *AuthMiddleware {
	return NewAuthMiddleware(auth.NewResolver(f.tokens, f.store))
}
