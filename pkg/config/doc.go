// Package config loads and validates the archivist configuration.
//
// Configuration is read from a YAML file, completed with defaults,
// validated, and then overridden by environment variables named
// ARCHIVIST_<SECTION>_<FIELD> (for example ARCHIVIST_ARCHIVE_BASE_DIR or
// ARCHIVIST_TELEMETRY_LOGGING_LEVEL). The result is validated again, so an
// override can never produce an invalid configuration.
//
// # Sections
//
//	store:         primary record store (sqlite3, sqlite, memory)
//	archive:       archive tree location, retention floor, search window
//	cache:         record cache size, TTL and circuit breaker
//	retry:         retry backoff policy and default retry budget
//	scheduler:     dispatch poll interval, worker count, task deadline
//	orchestrator:  trigger schedules and retention periods
//	interceptor:   asynchronous audit writer for intercepted calls
//	admin:         admin HTTP listener (metrics, health)
//	telemetry:     logging, metrics and health endpoints
//
// # Global configuration
//
// Initialize loads the file once and stores it as a process-wide
// singleton; GetConfig, SetConfig, ReloadConfig and MustGetConfig access
// it. Components themselves take explicit configuration values, so tests
// never need the singleton.
//
// # Hot reload
//
// Watcher observes the configuration file with fsnotify, debounces bursts
// of writes, reloads the file and hands the new configuration to a
// callback. A file that fails to load or validate is logged and ignored;
// the previous configuration stays in effect.
package config
