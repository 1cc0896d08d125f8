// Package orgs manages organizations, the tenancy boundary of the tracker.
//
// # Registration
//
// Register creates an organization and its first administrator in one call.
// The administrator is approved at creation. Organization codes are 6 to 12
// uppercase letters or digits; when the caller does not pick one, an
// 8 character code is generated.
//
// Join registers a new team member into an existing organization by code:
//
//	user, err := svc.Join(ctx, orgs.JoinInput{Code: "ACME2024", Name: "Sam", Email: "sam@acme.test"})
//
// The account stays pending until an administrator of that organization
// approves it through pkg/users. Unknown and inactive codes are rejected
// with the same message.
//
// # Dashboard
//
// Dashboard returns organization-scoped counts for administrators. The
// counts run concurrently.
package orgs
