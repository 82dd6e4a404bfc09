package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "ARCHIVIST_"

// LoadConfig loads configuration from a YAML file, applies defaults and
// validates it. Environment variables are not consulted; use
// LoadConfigWithEnvOverrides for that.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}
	return Parse(data, path)
}

// Parse decodes YAML configuration data, applies defaults and validates it.
// source names the data in error messages.
func Parse(data []byte, source string) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", source, err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration from a YAML file and applies
// environment variable overrides, which always take precedence.
//
// The loading sequence is:
//  1. Load YAML from file
//  2. Apply default values
//  3. Validate
//  4. Apply environment variable overrides
//  5. Validate final configuration
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}

	if err := ApplyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed after environment overrides: %w", err)
	}
	return cfg, nil
}

// ApplyEnvOverrides applies ARCHIVIST_<SECTION>_<FIELD> variables to cfg.
// A variable whose value cannot be parsed is reported as a FieldError.
func ApplyEnvOverrides(cfg *Config) error {
	o := &overrider{}

	// Store overrides
	o.str("STORE_DRIVER", &cfg.Store.Driver)
	o.str("STORE_PATH", &cfg.Store.Path)
	o.integer("STORE_MAX_OPEN_CONNS", &cfg.Store.MaxOpenConns)
	o.integer("STORE_MAX_IDLE_CONNS", &cfg.Store.MaxIdleConns)
	o.str("STORE_JOURNAL_MODE", &cfg.Store.JournalMode)
	o.duration("STORE_BUSY_TIMEOUT", &cfg.Store.BusyTimeout)

	// Archive overrides
	o.str("ARCHIVE_BASE_DIR", &cfg.Archive.BaseDir)
	o.integer("ARCHIVE_RETENTION_FLOOR_DAYS", &cfg.Archive.RetentionFloorDays)
	o.integer("ARCHIVE_MAX_SEARCH_WINDOW_DAYS", &cfg.Archive.MaxSearchWindowDays)
	o.str("ARCHIVE_TIMEZONE", &cfg.Archive.Timezone)

	// Cache overrides
	o.integer("CACHE_MAX_ENTRIES", &cfg.Cache.MaxEntries)
	o.duration("CACHE_TTL", &cfg.Cache.TTL)
	o.duration("CACHE_BREAKER_TIMEOUT", &cfg.Cache.BreakerTimeout)

	// Retry overrides
	o.duration("RETRY_INITIAL_DELAY", &cfg.Retry.InitialDelay)
	o.float("RETRY_MULTIPLIER", &cfg.Retry.Multiplier)
	o.duration("RETRY_MAX_DELAY", &cfg.Retry.MaxDelay)
	o.integer("RETRY_MAX_RETRIES", &cfg.Retry.MaxRetries)

	// Scheduler overrides
	o.duration("SCHEDULER_POLL_INTERVAL", &cfg.Scheduler.PollInterval)
	o.integer("SCHEDULER_WORKERS", &cfg.Scheduler.Workers)

	// Orchestrator overrides
	o.str("ORCHESTRATOR_DAILY_SCHEDULE", &cfg.Orchestrator.DailySchedule)
	o.str("ORCHESTRATOR_MONTHLY_SCHEDULE", &cfg.Orchestrator.MonthlySchedule)
	o.str("ORCHESTRATOR_CLEANUP_SCHEDULE", &cfg.Orchestrator.CleanupSchedule)
	o.str("ORCHESTRATOR_CACHE_VERIFY_SCHEDULE", &cfg.Orchestrator.CacheVerifySchedule)
	o.str("ORCHESTRATOR_SWEEP_SCHEDULE", &cfg.Orchestrator.SweepSchedule)
	o.integer("ORCHESTRATOR_CLEANUP_RETENTION_DAYS", &cfg.Orchestrator.CleanupRetentionDays)
	o.integer("ORCHESTRATOR_PRIMARY_RETENTION_DAYS", &cfg.Orchestrator.PrimaryRetentionDays)

	// Interceptor overrides
	o.boolean("INTERCEPTOR_ENABLED", &cfg.Interceptor.Enabled)
	o.integer("INTERCEPTOR_ASYNC_BUFFER", &cfg.Interceptor.AsyncBuffer)
	o.duration("INTERCEPTOR_WRITE_TIMEOUT", &cfg.Interceptor.WriteTimeout)

	// Admin overrides
	o.str("ADMIN_LISTEN_ADDRESS", &cfg.Admin.ListenAddress)
	o.duration("ADMIN_SHUTDOWN_TIMEOUT", &cfg.Admin.ShutdownTimeout)

	// Telemetry overrides
	o.str("TELEMETRY_LOGGING_LEVEL", &cfg.Telemetry.Logging.Level)
	o.str("TELEMETRY_LOGGING_FORMAT", &cfg.Telemetry.Logging.Format)
	o.boolean("TELEMETRY_LOGGING_ADD_SOURCE", &cfg.Telemetry.Logging.AddSource)
	o.str("TELEMETRY_METRICS_PATH", &cfg.Telemetry.Metrics.Path)

	if len(o.errs) > 0 {
		return ValidationError{Errors: o.errs}
	}
	return nil
}

// overrider reads environment variables into config fields and collects
// parse failures.
type overrider struct {
	errs []FieldError
}

func (o *overrider) lookup(name string) (string, bool) {
	v, ok := os.LookupEnv(EnvPrefix + name)
	return v, ok && v != ""
}

func (o *overrider) fail(name, val, kind string) {
	o.errs = append(o.errs, FieldError{
		Field:   EnvPrefix + name,
		Message: fmt.Sprintf("invalid %s %q", kind, val),
	})
}

func (o *overrider) str(name string, dst *string) {
	if v, ok := o.lookup(name); ok {
		*dst = v
	}
}

func (o *overrider) integer(name string, dst *int) {
	if v, ok := o.lookup(name); ok {
		i, err := strconv.Atoi(v)
		if err != nil {
			o.fail(name, v, "integer")
			return
		}
		*dst = i
	}
}

func (o *overrider) float(name string, dst *float64) {
	if v, ok := o.lookup(name); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			o.fail(name, v, "number")
			return
		}
		*dst = f
	}
}

func (o *overrider) boolean(name string, dst *bool) {
	if v, ok := o.lookup(name); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			o.fail(name, v, "boolean")
			return
		}
		*dst = b
	}
}

func (o *overrider) duration(name string, dst *time.Duration) {
	if v, ok := o.lookup(name); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			o.fail(name, v, "duration")
			return
		}
		*dst = d
	}
}
