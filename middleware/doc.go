// Package middleware adapts the engine to net/http pipelines: the
// security pipeline, token authentication, role/permission authorization,
// and input validation, each as a func(http.Handler) http.Handler.
//
// # Pipeline order
//
// Compose outermost first: WithScope, Recover, Security, Authenticate,
// Authorize, Validate, handler. Each layer either attaches its result to the request
// [Scope] and continues, or writes the JSON error envelope and stops — no
// failure crosses a layer boundary as anything but a terminal response.
//
// # Architecture boundaries
//
// This package translates HTTP semantics into engine calls. It does NOT
// decide anything itself: token parsing, role filtering, permission
// checks, and validation all delegate to the engine and its packages.
//
// # What this package must NOT do
//
//   - Touch Redis directly (the engine and the secure pipeline own I/O).
//   - Invent status codes per call site: every error passes through
//     [WriteError], the single error-to-status translation point.
package middleware
