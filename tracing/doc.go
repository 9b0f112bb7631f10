// Package tracing provides a thin wrapper around OpenTelemetry tracing so
// that the rest of the code-base can start and finish spans without being
// concerned with the underlying implementation.
package tracing
