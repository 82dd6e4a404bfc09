package config

import (
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// FieldError represents a validation error for a specific configuration field.
type FieldError struct {
	// Field is the dotted path to the configuration field (e.g., "archive.base_dir").
	Field string

	// Message is a human-readable error message.
	Message string
}

// Error returns the error message for this field error.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError represents one or more validation errors in a configuration.
type ValidationError struct {
	// Errors contains all validation errors found in the configuration.
	Errors []FieldError
}

// Error returns a formatted string containing all validation errors.
func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "configuration validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration validation failed: %s", e.Errors[0].Error())
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("configuration validation failed with %d errors:\n", len(e.Errors)))
	for _, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err.Error()))
	}
	return sb.String()
}

// Validate validates the entire configuration. All field errors are
// collected and returned together as a ValidationError.
func Validate(cfg *Config) error {
	var errs []FieldError

	errs = append(errs, validateStore(&cfg.Store)...)
	errs = append(errs, validateArchive(&cfg.Archive)...)
	errs = append(errs, validateCache(&cfg.Cache)...)
	errs = append(errs, validateRetry(&cfg.Retry)...)
	errs = append(errs, validateScheduler(&cfg.Scheduler)...)
	errs = append(errs, validateOrchestrator(&cfg.Orchestrator, &cfg.Archive)...)
	errs = append(errs, validateInterceptor(&cfg.Interceptor)...)
	errs = append(errs, validateAdmin(&cfg.Admin)...)
	errs = append(errs, validateTelemetry(&cfg.Telemetry)...)

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}
	return nil
}

func validateStore(cfg *StoreConfig) []FieldError {
	var errs []FieldError

	switch cfg.Driver {
	case "sqlite3", "sqlite":
		if cfg.Path == "" {
			errs = append(errs, FieldError{Field: "store.path", Message: "path is required for SQLite drivers"})
		}
	case "memory":
	default:
		errs = append(errs, FieldError{
			Field:   "store.driver",
			Message: fmt.Sprintf("invalid driver %q (must be sqlite3, sqlite or memory)", cfg.Driver),
		})
	}

	if cfg.MaxOpenConns < 1 {
		errs = append(errs, FieldError{Field: "store.max_open_conns", Message: "must be at least 1"})
	}
	if cfg.MaxIdleConns < 0 || cfg.MaxIdleConns > cfg.MaxOpenConns {
		errs = append(errs, FieldError{Field: "store.max_idle_conns", Message: "must be between 0 and max_open_conns"})
	}
	if cfg.JournalMode != "wal" && cfg.JournalMode != "delete" {
		errs = append(errs, FieldError{
			Field:   "store.journal_mode",
			Message: fmt.Sprintf("invalid journal mode %q (must be wal or delete)", cfg.JournalMode),
		})
	}
	if cfg.BusyTimeout < 0 {
		errs = append(errs, FieldError{Field: "store.busy_timeout", Message: "must not be negative"})
	}
	return errs
}

func validateArchive(cfg *ArchiveConfig) []FieldError {
	var errs []FieldError

	if strings.TrimSpace(cfg.BaseDir) == "" {
		errs = append(errs, FieldError{Field: "archive.base_dir", Message: "must not be blank"})
	}
	if cfg.RetentionFloorDays < 1 {
		errs = append(errs, FieldError{Field: "archive.retention_floor_days", Message: "must be at least 1"})
	}
	if cfg.MaxSearchWindowDays < 1 {
		errs = append(errs, FieldError{Field: "archive.max_search_window_days", Message: "must be at least 1"})
	}
	if _, err := time.LoadLocation(cfg.Timezone); err != nil {
		errs = append(errs, FieldError{
			Field:   "archive.timezone",
			Message: fmt.Sprintf("unknown time zone %q", cfg.Timezone),
		})
	}
	if cfg.AssumedRecordSize < 1 {
		errs = append(errs, FieldError{Field: "archive.assumed_record_size", Message: "must be at least 1"})
	}
	return errs
}

func validateCache(cfg *CacheConfig) []FieldError {
	var errs []FieldError

	if cfg.MaxEntries < 1 {
		errs = append(errs, FieldError{Field: "cache.max_entries", Message: "must be at least 1"})
	}
	if cfg.TTL < 0 {
		errs = append(errs, FieldError{Field: "cache.ttl", Message: "must not be negative"})
	}
	if cfg.BreakerTimeout <= 0 {
		errs = append(errs, FieldError{Field: "cache.breaker_timeout", Message: "must be positive"})
	}
	return errs
}

func validateRetry(cfg *RetryConfig) []FieldError {
	var errs []FieldError

	if cfg.InitialDelay <= 0 {
		errs = append(errs, FieldError{Field: "retry.initial_delay", Message: "must be positive"})
	}
	if cfg.Multiplier < 1 {
		errs = append(errs, FieldError{Field: "retry.multiplier", Message: "must be at least 1"})
	}
	if cfg.MaxDelay < cfg.InitialDelay {
		errs = append(errs, FieldError{Field: "retry.max_delay", Message: "must not be less than initial_delay"})
	}
	if cfg.MaxRetries < 0 {
		errs = append(errs, FieldError{Field: "retry.max_retries", Message: "must not be negative"})
	}
	return errs
}

func validateScheduler(cfg *SchedulerConfig) []FieldError {
	var errs []FieldError

	if cfg.PollInterval <= 0 {
		errs = append(errs, FieldError{Field: "scheduler.poll_interval", Message: "must be positive"})
	}
	if cfg.Workers < 1 {
		errs = append(errs, FieldError{Field: "scheduler.workers", Message: "must be at least 1"})
	}
	return errs
}

func validateOrchestrator(cfg *OrchestratorConfig, archive *ArchiveConfig) []FieldError {
	var errs []FieldError

	schedules := []struct {
		field string
		value string
	}{
		{"orchestrator.daily_schedule", cfg.DailySchedule},
		{"orchestrator.monthly_schedule", cfg.MonthlySchedule},
		{"orchestrator.cleanup_schedule", cfg.CleanupSchedule},
		{"orchestrator.cache_verify_schedule", cfg.CacheVerifySchedule},
		{"orchestrator.sweep_schedule", cfg.SweepSchedule},
	}
	for _, s := range schedules {
		if s.value == ScheduleOff {
			continue
		}
		if _, err := cron.ParseStandard(s.value); err != nil {
			errs = append(errs, FieldError{
				Field:   s.field,
				Message: fmt.Sprintf("invalid cron schedule %q: %v", s.value, err),
			})
		}
	}

	if cfg.CleanupRetentionDays < 1 {
		errs = append(errs, FieldError{Field: "orchestrator.cleanup_retention_days", Message: "must be at least 1"})
	}

	// Records older than the cleanup cutoff must already be archived, or
	// cleanup trips the data-loss guard.
	cutoffDays := max(cfg.CleanupRetentionDays, archive.RetentionFloorDays)
	if cfg.PrimaryRetentionDays > cutoffDays {
		errs = append(errs, FieldError{
			Field:   "orchestrator.primary_retention_days",
			Message: fmt.Sprintf("must not exceed the effective cleanup retention of %d days", cutoffDays),
		})
	}
	return errs
}

func validateInterceptor(cfg *InterceptorConfig) []FieldError {
	var errs []FieldError

	if cfg.AsyncBuffer < 1 {
		errs = append(errs, FieldError{Field: "interceptor.async_buffer", Message: "must be at least 1"})
	}
	if cfg.WriteTimeout <= 0 {
		errs = append(errs, FieldError{Field: "interceptor.write_timeout", Message: "must be positive"})
	}
	if cfg.MaxDescriptionLength < 1 {
		errs = append(errs, FieldError{Field: "interceptor.max_description_length", Message: "must be at least 1"})
	}
	return errs
}

func validateAdmin(cfg *AdminConfig) []FieldError {
	var errs []FieldError

	if cfg.ListenAddress != "" {
		if _, _, err := net.SplitHostPort(cfg.ListenAddress); err != nil {
			errs = append(errs, FieldError{
				Field:   "admin.listen_address",
				Message: fmt.Sprintf("invalid address %q: %v", cfg.ListenAddress, err),
			})
		}
	}
	if cfg.ShutdownTimeout <= 0 {
		errs = append(errs, FieldError{Field: "admin.shutdown_timeout", Message: "must be positive"})
	}
	return errs
}

func validateTelemetry(cfg *TelemetryConfig) []FieldError {
	var errs []FieldError

	switch strings.ToLower(cfg.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.level",
			Message: fmt.Sprintf("invalid level %q (must be debug, info, warn or error)", cfg.Logging.Level),
		})
	}
	switch strings.ToLower(cfg.Logging.Format) {
	case "json", "text":
	default:
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.format",
			Message: fmt.Sprintf("invalid format %q (must be json or text)", cfg.Logging.Format),
		})
	}

	paths := []struct {
		field string
		value string
	}{
		{"telemetry.metrics.path", cfg.Metrics.Path},
		{"telemetry.health.liveness_path", cfg.Health.LivenessPath},
		{"telemetry.health.readiness_path", cfg.Health.ReadinessPath},
	}
	for _, p := range paths {
		if !strings.HasPrefix(p.value, "/") {
			errs = append(errs, FieldError{Field: p.field, Message: "must start with /"})
		}
	}

	for i := 1; i < len(cfg.Metrics.TaskDurationBuckets); i++ {
		if cfg.Metrics.TaskDurationBuckets[i] <= cfg.Metrics.TaskDurationBuckets[i-1] {
			errs = append(errs, FieldError{
				Field:   "telemetry.metrics.task_duration_buckets",
				Message: "buckets must be strictly increasing",
			})
			break
		}
	}
	return errs
}
