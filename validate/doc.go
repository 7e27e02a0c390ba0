// Package validate composes per-route-purpose filters of field validators:
// identity, name, email, mobile, password, and one-time code. Each validator
// rejects independently with a field-scoped message; a chain run returns the
// aggregate field→message map, empty on acceptance.
//
// Validators are data-driven and idempotent. The only lookups are the
// declared ones: duplicate checks against the account store and the pending
// one-time code for verification purposes.
package validate
