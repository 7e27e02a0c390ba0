// Package audit dispatches security events (logins, lockouts, role
// changes, token revocations) to a pluggable sink without blocking the
// request path. Events flow through a buffered channel; when the buffer
// is full and dropping is allowed, the event is counted and discarded
// rather than stalling authentication.
package audit
