// Package permission resolves caller roles against the live role table and
// answers route-permission checks.
//
// Roles claimed by a token are never trusted directly: every authorization
// pass intersects them with the current role list for the section, so a role
// deleted from the system dies on the next request without token reissue.
//
// Role lists are cached in Redis under the fixed keys roles-list, roles-api,
// roles-admin, and roles-light. Mutating roles through the engine invalidates
// the cache; the TTL only bounds staleness for out-of-band table edits.
package permission
