// Package storage defines the persistence contract of the tracker and the
// sentinel errors its backends return.
//
// # Backends
//
//   - memory: maps guarded by a sync.RWMutex, filters evaluated with query.Match.
//     Used by tests and single-instance deployments.
//   - postgres: lib/pq with read replicas, golang-migrate migrations and
//     query.Cond compiled into SQL WHERE clauses.
//
// Both backends implement Store:
//
//	type Store interface {
//		UserStore
//		OrganizationStore
//		ProjectStore
//		TaskStore
//		HealthCheck(ctx context.Context) error
//		Close() error
//	}
//
// # Filters
//
// Every Find* and Count* method takes a query.Cond built by pkg/rbac and the
// services, so list endpoints never load a collection to filter it in Go.
// Find* also takes a query.Page and returns the total number of matches.
//
// # Errors
//
// Missing documents wrap ErrNotFound and unique violations wrap ErrConflict.
// Check them with IsNotFound and IsConflict:
//
//	project, err := store.GetProject(ctx, id)
//	if storage.IsNotFound(err) {
//		// 404
//	}
//
// # Memberships
//
// UpsertMember and PullMember change one entry of a project's member list
// without rewriting the project, so concurrent membership changes do not
// overwrite each other. PullMemberEverywhere, ClearAssignee,
// ReassignReporter and DeleteTasksByProject are the bulk rewrites used by
// pkg/cascade.
//
// # Redis
//
// NewRedisClient builds the client shared by the distributed rate limiter
// and the readiness check.
package storage
