// Package internal holds the cache key layout and randomness helpers shared
// by the userguard sub-packages.
//
// The key formats are part of the external contract and must not change
// between releases: other deployments and the test-suite address the same
// Redis keyspace.
package internal
