// Package password hashes and verifies credentials with Argon2id.
//
// Hashes are stored in PHC string format so parameters travel with the
// hash; Verify recomputes with the stored parameters, and NeedsRehash
// reports when a stored hash is weaker than the current configuration.
//
// # What this package must NOT do
//
//   - No length or complexity policy. Credential rules belong to the
//     validation chains; the hasher accepts any non-empty input.
//   - No storage. Callers persist the encoded hash themselves.
package password
