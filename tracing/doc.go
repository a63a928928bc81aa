// Package tracing is a thin wrapper around OpenTelemetry so that the rest of
// the code-base can emit spans through a couple of helper functions
// (StartSpan, EndSpan) without importing the upstream packages directly.
// Applications that do not require tracing simply never call Init and every
// span becomes a no-op.
package tracing
