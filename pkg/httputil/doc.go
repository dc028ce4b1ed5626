// Package httputil provides HTTP utilities for standardized request/response handling.
//
// # Response Helpers
//
// JSON responses:
//
//	httputil.WriteJSON(w, http.StatusOK, data)
//	httputil.WriteSuccess(w, resource)
//	httputil.WriteCreated(w, resource)
//
// Error responses:
//
//	httputil.WriteError(w, http.StatusBadRequest, err)
//	httputil.WriteBadRequest(w, "Invalid input")
//	httputil.WriteForbidden(w, "Insufficient permissions")
//	httputil.WriteNotFoundError(w, "broker not found")
//
// # Request Parsing
//
// JSON parsing:
//
//	var req SavePermissionsRequest
//	if !httputil.ParseJSONOrError(w, r, &req) {
//		return // Error response already written
//	}
//
// Path and query parameters:
//
//	id, ok := httputil.ParsePathStringOrError(w, r, "id")
//	limit, err := httputil.ParseQueryInt(r, "limit", 100)
//
// # Middleware
//
//	httputil.Chain(
//		httputil.LoggingMiddleware(logger),
//		httputil.RecoveryMiddleware(logger),
//		httputil.MaxBytesMiddleware(1*1024*1024),
//	)
//
// # Related Packages
//
//   - pkg/middleware: Authentication, request ID and rate limiting middleware
package httputil
