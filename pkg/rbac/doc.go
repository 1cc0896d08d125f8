// Package rbac decides who may do what with projects and tasks, and which
// of them a user may list.
//
// # Overview
//
// Four organization-wide roles exist, ordered by rank:
//
//	team-member(1) < project-lead(2) < department-head(3) < admin(4)
//
// Rank is only used for coarse gates (AtLeast), such as restricting user
// management to admins. It is never used for project or task permissions:
// admin is the highest rank and at the same time the only role that may not
// create or modify projects. Admin is an oversight role with the broadest
// read scope; department-heads and project-leads are the operational roles.
//
// # Ownership and membership
//
// The oracle functions (IsOwner, IsMember, IsListedMember, MemberSubRole) are
// free functions over plain models. The owner of a project is always a member
// for access purposes, even when absent from the member list, and an owner is
// never capped by a lesser explicit sub-role.
//
// # Access decisions
//
// Every single-resource operation has a predicate returning a Decision:
//
//	d := rbac.CanModifyProject(user, project)
//	if !d.Allowed {
//		return d.Err() // apperr.Forbidden with the rule's reason
//	}
//
// Decisions first apply the organization boundary, then the per-role rule
// table. Callers must pass freshly loaded documents.
//
// # Visibility
//
// List operations never post-filter. Visibility builds a query.Cond that the
// storage backend applies before pagination:
//
//	v := rbac.NewVisibility(store)
//	cond, err := v.Tasks(ctx, user)
//
// Task visibility is derived through project membership, so the project id
// set is resolved first and then used to scope tasks. Unknown roles always
// receive a filter that matches nothing.
package rbac
