// Package telemetry groups the archivist's observability packages.
//
//   - logging: slog construction with runtime level changes and context fields
//   - metrics: Prometheus collectors for tasks, archives and the record cache
//   - health: liveness, readiness and version endpoints for the admin server
package telemetry
