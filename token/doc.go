// Package token signs and verifies compact bearer tokens and mirrors every
// issued token in Redis so deletion of the mirror revokes the token
// immediately, regardless of its cryptographic validity.
//
// # Failure policy
//
// Parse fails closed and collapses every rejection — bad signature, malformed
// payload, expiry, missing mirror — into the single [ErrInvalid] sentinel.
// Callers and clients cannot distinguish the causes; only Redis transport
// failures surface separately as [ErrUnavailable].
package token
