package config

import "time"

// Config is the root configuration structure for the archivist.
type Config struct {
	// Store configures the primary record store.
	Store StoreConfig `yaml:"store"`

	// Archive configures the compressed archive tree.
	Archive ArchiveConfig `yaml:"archive"`

	// Cache configures the read-through record cache.
	Cache CacheConfig `yaml:"cache"`

	// Retry configures the retry coordinator.
	Retry RetryConfig `yaml:"retry"`

	// Scheduler configures task dispatch.
	Scheduler SchedulerConfig `yaml:"scheduler"`

	// Orchestrator configures the archive triggers and retention.
	Orchestrator OrchestratorConfig `yaml:"orchestrator"`

	// Interceptor configures asynchronous recording of intercepted calls.
	Interceptor InterceptorConfig `yaml:"interceptor"`

	// Admin configures the admin HTTP listener.
	Admin AdminConfig `yaml:"admin"`

	// Telemetry configures logging, metrics and health endpoints.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// StoreConfig contains configuration for the primary record store.
type StoreConfig struct {
	// Driver selects the backend.
	// Options: "sqlite3" (mattn/go-sqlite3, cgo), "sqlite" (modernc.org/sqlite), "memory"
	// Default: "sqlite"
	Driver string `yaml:"driver"`

	// Path is the SQLite database file.
	// Default: "data/audit.db"
	Path string `yaml:"path"`

	// MaxOpenConns is the maximum number of open connections.
	// Default: 10
	MaxOpenConns int `yaml:"max_open_conns"`

	// MaxIdleConns is the maximum number of idle connections.
	// Default: 5
	MaxIdleConns int `yaml:"max_idle_conns"`

	// JournalMode is the SQLite journal mode.
	// Options: "wal", "delete"
	// Default: "wal"
	JournalMode string `yaml:"journal_mode"`

	// BusyTimeout is how long SQLite waits on a locked database.
	// Default: 5s
	BusyTimeout time.Duration `yaml:"busy_timeout"`
}

// ArchiveConfig contains configuration for the archive store.
type ArchiveConfig struct {
	// BaseDir is the root of the archive tree.
	// Default: "data/archives"
	BaseDir string `yaml:"base_dir"`

	// RetentionFloorDays is the minimum age in days of a deletable archive.
	// Default: 365
	RetentionFloorDays int `yaml:"retention_floor_days"`

	// MaxSearchWindowDays bounds the length of an archive search.
	// Default: 365
	MaxSearchWindowDays int `yaml:"max_search_window_days"`

	// Timezone defines calendar days for archive files (IANA name).
	// Default: "UTC"
	Timezone string `yaml:"timezone"`

	// AssumedRecordSize is the average record size in bytes used to
	// estimate compression ratios.
	// Default: 200
	AssumedRecordSize int `yaml:"assumed_record_size"`
}

// CacheConfig contains configuration for the record cache.
type CacheConfig struct {
	// MaxEntries bounds the number of cached records.
	// Default: 1000
	MaxEntries int `yaml:"max_entries"`

	// TTL is how long an entry lives after it is written.
	// Default: 15m
	TTL time.Duration `yaml:"ttl"`

	// BreakerFailures is the number of consecutive load failures that opens
	// the circuit breaker.
	// Default: 5
	BreakerFailures uint32 `yaml:"breaker_failures"`

	// BreakerTimeout is how long the breaker stays open.
	// Default: 30s
	BreakerTimeout time.Duration `yaml:"breaker_timeout"`
}

// RetryConfig contains configuration for the retry coordinator.
type RetryConfig struct {
	// InitialDelay is the delay before the first retry.
	// Default: 1m
	InitialDelay time.Duration `yaml:"initial_delay"`

	// Multiplier grows the delay after each retry.
	// Default: 2
	Multiplier float64 `yaml:"multiplier"`

	// MaxDelay caps the delay between retries.
	// Default: 15m
	MaxDelay time.Duration `yaml:"max_delay"`

	// MaxRetries is the retry budget of scheduled tasks.
	// Default: 3
	MaxRetries int `yaml:"max_retries"`
}

// SchedulerConfig contains configuration for task dispatch.
type SchedulerConfig struct {
	// PollInterval is how often ready tasks are dispatched.
	// Default: 1s
	PollInterval time.Duration `yaml:"poll_interval"`

	// Workers bounds concurrently running tasks.
	// Default: 4
	Workers int `yaml:"workers"`
}

// OrchestratorConfig contains the trigger schedules and retention periods.
// A schedule set to "off" disables that trigger.
type OrchestratorConfig struct {
	// DailySchedule triggers the daily archive.
	// Default: "0 1 * * *"
	DailySchedule string `yaml:"daily_schedule"`

	// MonthlySchedule triggers the monthly bundle.
	// Default: "0 2 1 * *"
	MonthlySchedule string `yaml:"monthly_schedule"`

	// CleanupSchedule triggers retention cleanup.
	// Default: "0 3 * * *"
	CleanupSchedule string `yaml:"cleanup_schedule"`

	// CacheVerifySchedule triggers the cache consistency check.
	// Default: "@every 15m"
	CacheVerifySchedule string `yaml:"cache_verify_schedule"`

	// SweepSchedule triggers the expired-task sweep.
	// Default: "@every 1h"
	SweepSchedule string `yaml:"sweep_schedule"`

	// CleanupRetentionDays is the age of archives removed by cleanup.
	// Values below archive.retention_floor_days are clamped at run time.
	// Default: 365
	CleanupRetentionDays int `yaml:"cleanup_retention_days"`

	// PrimaryRetentionDays is the age after which records move from the
	// primary store into archives. A negative value disables offloading.
	// Default: 90
	PrimaryRetentionDays int `yaml:"primary_retention_days"`
}

// ScheduleOff disables a trigger.
const ScheduleOff = "off"

// InterceptorConfig contains configuration for the audit interceptor.
type InterceptorConfig struct {
	// Enabled records the archivist's own task outcomes as audit events.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// AsyncBuffer is the size of the async write channel buffer.
	// Default: 1000
	AsyncBuffer int `yaml:"async_buffer"`

	// WriteTimeout bounds enqueueing and each store write.
	// Default: 5s
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// MaxDescriptionLength truncates record descriptions.
	// Default: 500
	MaxDescriptionLength int `yaml:"max_description_length"`
}

// AdminConfig contains configuration for the admin HTTP listener.
type AdminConfig struct {
	// ListenAddress is the admin listener address. Empty disables it.
	// Default: "127.0.0.1:9090"
	ListenAddress string `yaml:"listen_address"`

	// ReadTimeout is the maximum duration for reading a request.
	// Default: 10s
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// WriteTimeout is the maximum duration for writing a response.
	// Default: 10s
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// ShutdownTimeout bounds graceful shutdown of the whole service.
	// Default: 30s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// TelemetryConfig contains configuration for observability.
type TelemetryConfig struct {
	// Logging contains logging configuration.
	Logging LoggingConfig `yaml:"logging"`

	// Metrics contains metrics configuration.
	Metrics MetricsConfig `yaml:"metrics"`

	// Health contains health endpoint configuration.
	Health HealthConfig `yaml:"health"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level to emit.
	// Options: "debug", "info", "warn", "error"
	// Default: "info"
	Level string `yaml:"level"`

	// Format controls the log output format.
	// Options: "json", "text"
	// Default: "json"
	Format string `yaml:"format"`

	// AddSource includes file and line number in log entries.
	// Default: false
	AddSource bool `yaml:"add_source"`
}

// MetricsConfig contains metrics configuration.
type MetricsConfig struct {
	// Path is the HTTP path of the Prometheus endpoint.
	// Default: "/metrics"
	Path string `yaml:"path"`

	// Namespace is the metric name prefix.
	// Default: "mercator"
	Namespace string `yaml:"namespace"`

	// Subsystem is the metric subsystem name.
	// Default: "archivist"
	Subsystem string `yaml:"subsystem"`

	// TaskDurationBuckets are histogram buckets for task duration (seconds).
	// Default: [0.1, 0.5, 1, 5, 15, 60, 300, 900]
	TaskDurationBuckets []float64 `yaml:"task_duration_buckets"`
}

// HealthConfig contains health endpoint configuration.
type HealthConfig struct {
	// LivenessPath is the liveness endpoint.
	// Default: "/health"
	LivenessPath string `yaml:"liveness_path"`

	// ReadinessPath is the readiness endpoint.
	// Default: "/ready"
	ReadinessPath string `yaml:"readiness_path"`
}

// Location returns the configured archive time zone, or UTC when it cannot
// be loaded.
func (c *ArchiveConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Schedule maps the "off" marker to an empty (disabled) schedule.
func Schedule(s string) string {
	if s == ScheduleOff {
		return ""
	}
	return s
}
