// Package session stores the per-user cache bundle: the last-known account
// snapshot, assigned roles, live token ids, the pending one-time code, and
// device tokens, all under a single "user-<id>" Redis key.
//
// The bundle is the revocation source of truth: a token id absent from the
// matching slice is dead even when its signature and mirror entry are intact.
//
// # Concurrency
//
// Mutations are read-modify-write on one key with no compare-and-swap;
// concurrent writers can lose updates. The operations that matter for
// security (logout, role change, cache drop) are whole-key deletes or
// overwrites, for which last-writer-wins is acceptable.
package session
