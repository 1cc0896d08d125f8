// Package audit records security-relevant events: access denials,
// administrative user changes, registrations and cascading deletes.
//
// Events are built with the constructors in types.go and handed to a Logger:
//
//	sink := audit.NewLogrusLogger(logger)
//	sink.Log(ctx, audit.AccessDenied(user, "project:delete", audit.ResourceTypeProject, id, reason))
//
// LogrusLogger writes one structured entry per event, tagged audit=true, so
// the trail can be split from application logs downstream. MemoryLogger
// keeps events for tests.
package audit
