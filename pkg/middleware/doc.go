// Package middleware provides HTTP middleware for authentication, the
// organization boundary, role gates and rate limiting.
//
// # Middleware Components
//
// AuthMiddleware: resolves the bearer token into an active, approved user
//
//	authn := middleware.NewAuthMiddleware(auth.NewResolver(tokens, store))
//	router.Use(authn.Handler)
//
// OrgBoundary: the principal's organization must exist and be active
//
//	router.Use(middleware.OrgBoundary(store))
//
// RequireRole: coarse gate on the role hierarchy
//
//	admin.Use(middleware.RequireRole(models.RoleAdmin))
//
// RateLimitMiddleware: per-principal limits backed by an in-process token
// bucket (RateLimiter) or a shared Redis window (DistributedRateLimiter)
//
//	limiter := middleware.NewDistributedRateLimiter(redisClient, cfg, "")
//	router.Use(middleware.NewRateLimitMiddleware(limiter, metrics).Handler)
//
// # Related Packages
//
//   - pkg/auth: Token verification and identity resolution
//   - pkg/rbac: Role hierarchy and denial reasons
package middleware
