// Package middleware exposes HTTP middleware adapters over panelcore.Engine.
//
// # Guards
//
//   - [RequestContext] attaches client IP, user agent and correlation id.
//   - [RequireSession] verifies the session cookie and attaches the caller.
//   - [RequirePermission] enforces a (module, action) grant for the caller.
//   - [Advisory] decodes the routing token for coarse routing only.
//
// # Architecture boundaries
//
// This package translates HTTP semantics into Engine calls. It does NOT implement
// authentication or authorization logic itself.
//
// # What this package must NOT do
//
//   - Trust routing token claims for access decisions.
//   - Access session or audit stores directly.
//   - Reveal which rule failed: rejections carry only "unauthorized" or "forbidden".
package middleware
