// Package middleware provides HTTP middleware for authentication,
// request identification and rate limiting.
//
// # Authentication
//
//	authMW := middleware.NewAuthMiddleware(validator, false)
//	router.Use(authMW.Handler)
//
// The validator is any SessionValidator; handlers read the result with
// middleware.GetPrincipal(r).
//
// # Request IDs
//
//	router.Use(middleware.RequestID)
//
// Honors an inbound X-Request-ID and generates a UUID otherwise.
//
// # Rate Limiting
//
//	rlMW := middleware.NewRateLimitMiddleware()
//	router.Use(rlMW.Handler)
//
// Token bucket per principal, falling back to client IP for anonymous
// requests.
package middleware
