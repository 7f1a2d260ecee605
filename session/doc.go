// Package session provides session persistence for panelcore: an in-process
// [MemoryStore], a Redis-backed [RedisStore], and the compact binary encoding the
// Redis store writes.
//
// # Keys
//
// Sessions are addressed by the SHA-256 of the opaque bearer token ([HashToken]);
// the plaintext token is handed to the client once and never persisted.
//
// # Binary encoding
//
// Redis values are a versioned binary blob. The encoder is append-only: new versions
// add fields but never reinterpret old ones.
//
// # Architecture boundaries
//
// This package owns the [Store] contract and the [Session] model. It does NOT decide
// whether a session is expired or whether its user may still log in; those checks
// belong to the Engine.
//
// # What this package must NOT do
//
//   - Import panelcore, jwt, permission, or audit (no upward imports).
//   - Store plaintext tokens.
package session
