package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/taskboard/pkg/apperr"
	"github.com/platinummonkey/taskboard/pkg/contextkeys"
	"github.com/platinummonkey/taskboard/pkg/models"
	"github.com/platinummonkey/taskboard/pkg/storage/memory"
)

type failingLoader struct{}

func (failingLoader) GetUser(context.Context, string) (*models.User, error) {
	return nil, errors.New("connection reset")
}

func seedUser(t *testing.T, store *memory.Store, id string, active, approved bool) {
	t.Helper()
	now := time.Now().UTC()
	require.NoError(t, store.CreateUser(context.Background(), &models.User{
		ID: id, Name: id, Email: id + "@example.com", Role: models.RoleTeamMember,
		OrganizationID: "org-a", IsActive: active, IsApproved: approved,
		CreatedAt: now, UpdatedAt: now,
	}))
}

func TestResolver_Resolve(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	seedUser(t, store, "active", true, true)
	seedUser(t, store, "inactive", false, true)
	seedUser(t, store, "pending", true, false)

	tm := NewTokenManager(testSecret, "", time.Hour)
	resolver := NewResolver(tm, store)

	issue := func(id string) string {
		token, _, err := tm.Issue(id)
		require.NoError(t, err)
		return token
	}

	t.Run("active and approved", func(t *testing.T) {
		user, err := resolver.Resolve(ctx, issue("active"))
		require.NoError(t, err)
		assert.Equal(t, "active", user.ID)
	})

	t.Run("missing token", func(t *testing.T) {
		_, err := resolver.Resolve(ctx, "  ")
		assert.True(t, apperr.Is(err, apperr.KindUnauthenticated))
	})

	// The three account failures must be indistinguishable to the caller
	for _, id := range []string{"ghost", "inactive", "pending"} {
		t.Run("rejects "+id, func(t *testing.T) {
			_, err := resolver.Resolve(ctx, issue(id))
			require.Error(t, err)
			assert.True(t, apperr.Is(err, apperr.KindUnauthenticated))
			assert.Equal(t, MessageInvalidCredentials, apperr.PublicMessage(err))
		})
	}

	t.Run("bad token", func(t *testing.T) {
		_, err := resolver.Resolve(ctx, "garbage")
		assert.True(t, apperr.Is(err, apperr.KindUnauthenticated))
		assert.Equal(t, MessageInvalidCredentials, apperr.PublicMessage(err))
	})

	t.Run("store failure is internal", func(t *testing.T) {
		_, err := NewResolver(tm, failingLoader{}).Resolve(ctx, issue("active"))
		assert.Equal(t, apperr.KindInternal, apperr.KindOf(err))
	})
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		header string
		token  string
		ok     bool
	}{
		{"Bearer abc", "abc", true},
		{"bearer abc", "abc", true},
		{"Bearer ", "", false},
		{"Basic abc", "", false},
		{"abc", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		token, ok := BearerToken(tt.header)
		assert.Equal(t, tt.ok, ok, tt.header)
		assert.Equal(t, tt.token, token, tt.header)
	}
}

func TestFromContext(t *testing.T) {
	_, ok := FromContext(context.Background())
	assert.False(t, ok)
	assert.Nil(t, UserFromContext(context.Background()))

	user := &models.User{ID: "u1"}
	ctx := contextkeys.WithAuth(context.Background(), &AuthContext{User: user})
	assert.Same(t, user, UserFromContext(ctx))

	authCtx, ok := FromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, "u1", authCtx.UserID())
}
