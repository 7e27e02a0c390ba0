// Package otel bridges the engine's in-process counters to an
// OpenTelemetry meter via observable instruments. Values are pulled from
// a snapshot at collection time, so the hot path never touches the SDK.
package otel
