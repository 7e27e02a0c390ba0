// Package userguard provides a user-identity engine with signed bearer tokens,
// Redis-backed revocation and session bundles, role/permission authorization,
// brute-force lockout tracking, and a configurable request/response security
// pipeline.
//
// The package is designed for concurrent server workloads: Engine methods are
// safe to call from multiple goroutines after initialization through
// [Builder.Build].
//
// # Architecture boundaries
//
// userguard is the public surface. It exposes [Engine], [Builder], [Config],
// and value types (Account, AttemptResult, LoginResult, etc.). Token encoding
// lives in token/, the cached per-user session bundle in session/, lockout and
// attempt counters under internal/limiters, the security pipeline in secure/,
// field validation in validate/, role/permission resolution in permission/,
// and HTTP glue in middleware/ and httpapi/.
//
// # What this package must NOT do
//
//   - Expose Redis clients or cache key layouts in its public API.
//   - Perform I/O during construction (Builder is allocation-only until Build).
//   - Import middleware/ or httpapi/ (those depend on this package, never the
//     reverse).
//
// # Validity model
//
// A bearer token is valid only when its signature verifies, its cache mirror
// entry still exists, and its id is listed in the owning user's session
// bundle. Deleting either cache entry revokes the token immediately, without
// waiting for the cryptographic expiry.
package userguard
