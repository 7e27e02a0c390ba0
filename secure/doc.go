// Package secure implements the layered request/response security pipeline:
// an ordered chain of request checks (IP allow/deny, method, input size,
// request rate, injection, generic input validation) and response transforms
// (security headers, HTML escaping, gzip compression).
//
// Every check is independently toggleable and may consult the accumulated
// results of earlier checks in the same pass: the IP check's whitelist mark
// lets later checks relax when configured to. The first failing check
// short-circuits the chain; passing results accumulate into a [Stream] that
// later middleware and handlers can read.
//
// # What this package must NOT do
//
//   - Authenticate or authorize (middleware/ owns that, via the engine).
//   - Write HTTP responses (it classifies; the HTTP boundary translates).
package secure
