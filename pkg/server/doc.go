// Package server runs the admin HTTP listener that exposes Prometheus
// metrics and the health probes.
//
// It serves no audit data. Requests pass through recovery and access-log
// middleware; Start blocks until the context is cancelled or Shutdown is
// called, then drains in-flight requests within ShutdownTimeout.
package server
