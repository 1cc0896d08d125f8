// Package httputil provides HTTP utilities for standardized request/response handling.
//
// # Response Envelope
//
// Every response body has the same shape:
//
//	{"success": true, "message": "Project created", "data": {...}}
//	{"success": false, "message": "Insufficient permissions"}
//
// Handlers usually report failures with WriteAppError, which maps an
// apperr.Kind onto its status code and hides internal causes:
//
//	project, err := svc.Get(ctx, user, id)
//	if err != nil {
//		httputil.WriteAppError(w, r, err)
//		return
//	}
//	httputil.WriteSuccess(w, project)
//
// # Request Parsing
//
//	var req CreateProjectRequest
//	if !httputil.ParseJSONOrError(w, r, &req) {
//		return // Error response already written
//	}
//	page, err := httputil.ParsePage(r)
//
// # Middleware
//
//	httputil.Chain(
//		httputil.RequestIDMiddleware,
//		httputil.LoggingMiddleware(logger),
//		httputil.RecoveryMiddleware,
//		httputil.MaxBytesMiddleware(1<<20),
//	)
//
// # Related Packages
//
//   - pkg/middleware: Authentication, organization boundary and rate limiting
package httputil
