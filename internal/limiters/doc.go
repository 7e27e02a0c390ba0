// Package limiters implements the account lock tracker and the failed-login
// attempt limiter on Redis counters with TTL-based expiry.
//
// A subject is either an account id or a client IP; each has its own lock and
// counter keys and the two are tracked independently. Locks have no partial
// states: a subject is locked exactly while its lock key exists.
//
// Counter increments are INCR + first-hit EXPIRE. Concurrent increments can
// race past the threshold by a small margin; the lock write is idempotent so
// the outcome is still a single lock window.
package limiters
