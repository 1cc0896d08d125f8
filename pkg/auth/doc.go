// Package auth resolves bearer credentials into principals.
//
// TokenManager issues and verifies HS256 JWTs whose subject is a user id.
// Resolver is the single identity resolver: it verifies the token, loads the
// user, and rejects missing, deactivated, and pending accounts with the same
// "invalid or expired credentials" message.
//
//	tm := auth.NewTokenManager(secret, "", 0)
//	resolver := auth.NewResolver(tm, store)
//	user, err := resolver.Resolve(ctx, token)
//
// The resolved principal travels in the request context as *AuthContext:
//
//	user := auth.UserFromContext(r.Context())
package auth
