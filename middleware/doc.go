// Package middleware adapts goGuard sessions to net/http.
//
// # Guards
//
//   - [Guard] resumes the persisted session named by an Authorization bearer
//     token and injects the *goGuard.Session into the request context.
//   - [RequireRole] rejects sessions whose account role is not allowed.
//
// # Architecture boundaries
//
// This package translates HTTP semantics into Engine calls. Token parsing,
// registry lookups and lockout decisions all stay in the engine.
//
// # What this package must NOT do
//
//   - Parse or sign tokens directly.
//   - Access Redis.
//   - Log request bodies or credentials.
package middleware
