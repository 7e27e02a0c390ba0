// Package internaldefs carries the shared metric name table consumed by
// the otel and prometheus exporters. It is not part of the public API.
package internaldefs
