package config

import "time"

// Default values for configuration fields.
const (
	// Store defaults
	DefaultStoreDriver       = "sqlite"
	DefaultStorePath         = "data/audit.db"
	DefaultStoreMaxOpenConns = 10
	DefaultStoreMaxIdleConns = 5
	DefaultStoreJournalMode  = "wal"
	DefaultStoreBusyTimeout  = 5 * time.Second

	// Archive defaults
	DefaultArchiveBaseDir             = "data/archives"
	DefaultArchiveRetentionFloorDays  = 365
	DefaultArchiveMaxSearchWindowDays = 365
	DefaultArchiveTimezone            = "UTC"
	DefaultArchiveAssumedRecordSize   = 200

	// Cache defaults
	DefaultCacheMaxEntries      = 1000
	DefaultCacheTTL             = 15 * time.Minute
	DefaultCacheBreakerFailures = 5
	DefaultCacheBreakerTimeout  = 30 * time.Second

	// Retry defaults
	DefaultRetryInitialDelay = time.Minute
	DefaultRetryMultiplier   = 2.0
	DefaultRetryMaxDelay     = 15 * time.Minute
	DefaultRetryMaxRetries   = 3

	// Scheduler defaults
	DefaultSchedulerPollInterval = time.Second
	DefaultSchedulerWorkers      = 4

	// Orchestrator defaults
	DefaultDailySchedule        = "0 1 * * *"
	DefaultMonthlySchedule      = "0 2 1 * *"
	DefaultCleanupSchedule      = "0 3 * * *"
	DefaultCacheVerifySchedule  = "@every 15m"
	DefaultSweepSchedule        = "@every 1h"
	DefaultCleanupRetentionDays = 365
	DefaultPrimaryRetentionDays = 90

	// Interceptor defaults
	DefaultInterceptorAsyncBuffer          = 1000
	DefaultInterceptorWriteTimeout         = 5 * time.Second
	DefaultInterceptorMaxDescriptionLength = 500

	// Admin defaults
	DefaultAdminListenAddress   = "127.0.0.1:9090"
	DefaultAdminReadTimeout     = 10 * time.Second
	DefaultAdminWriteTimeout    = 10 * time.Second
	DefaultAdminShutdownTimeout = 30 * time.Second

	// Telemetry defaults
	DefaultLogLevel         = "info"
	DefaultLogFormat        = "json"
	DefaultMetricsPath      = "/metrics"
	DefaultMetricsNamespace = "mercator"
	DefaultMetricsSubsystem = "archivist"
	DefaultLivenessPath     = "/health"
	DefaultReadinessPath    = "/ready"
)

// DefaultTaskDurationBuckets are the default task duration histogram buckets.
var DefaultTaskDurationBuckets = []float64{0.1, 0.5, 1, 5, 15, 60, 300, 900}

// NewDefaultConfig returns a configuration with every default applied.
func NewDefaultConfig() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults sets defaults for any fields that have zero values.
// It is idempotent.
func ApplyDefaults(cfg *Config) {
	// Store defaults
	if cfg.Store.Driver == "" {
		cfg.Store.Driver = DefaultStoreDriver
	}
	if cfg.Store.Path == "" {
		cfg.Store.Path = DefaultStorePath
	}
	if cfg.Store.MaxOpenConns == 0 {
		cfg.Store.MaxOpenConns = DefaultStoreMaxOpenConns
	}
	if cfg.Store.MaxIdleConns == 0 {
		cfg.Store.MaxIdleConns = DefaultStoreMaxIdleConns
	}
	if cfg.Store.JournalMode == "" {
		cfg.Store.JournalMode = DefaultStoreJournalMode
	}
	if cfg.Store.BusyTimeout == 0 {
		cfg.Store.BusyTimeout = DefaultStoreBusyTimeout
	}

	// Archive defaults
	if cfg.Archive.BaseDir == "" {
		cfg.Archive.BaseDir = DefaultArchiveBaseDir
	}
	if cfg.Archive.RetentionFloorDays == 0 {
		cfg.Archive.RetentionFloorDays = DefaultArchiveRetentionFloorDays
	}
	if cfg.Archive.MaxSearchWindowDays == 0 {
		cfg.Archive.MaxSearchWindowDays = DefaultArchiveMaxSearchWindowDays
	}
	if cfg.Archive.Timezone == "" {
		cfg.Archive.Timezone = DefaultArchiveTimezone
	}
	if cfg.Archive.AssumedRecordSize == 0 {
		cfg.Archive.AssumedRecordSize = DefaultArchiveAssumedRecordSize
	}

	// Cache defaults
	if cfg.Cache.MaxEntries == 0 {
		cfg.Cache.MaxEntries = DefaultCacheMaxEntries
	}
	if cfg.Cache.TTL == 0 {
		cfg.Cache.TTL = DefaultCacheTTL
	}
	if cfg.Cache.BreakerFailures == 0 {
		cfg.Cache.BreakerFailures = DefaultCacheBreakerFailures
	}
	if cfg.Cache.BreakerTimeout == 0 {
		cfg.Cache.BreakerTimeout = DefaultCacheBreakerTimeout
	}

	// Retry defaults
	if cfg.Retry.InitialDelay == 0 {
		cfg.Retry.InitialDelay = DefaultRetryInitialDelay
	}
	if cfg.Retry.Multiplier == 0 {
		cfg.Retry.Multiplier = DefaultRetryMultiplier
	}
	if cfg.Retry.MaxDelay == 0 {
		cfg.Retry.MaxDelay = DefaultRetryMaxDelay
	}
	if cfg.Retry.MaxRetries == 0 {
		cfg.Retry.MaxRetries = DefaultRetryMaxRetries
	}

	// Scheduler defaults
	if cfg.Scheduler.PollInterval == 0 {
		cfg.Scheduler.PollInterval = DefaultSchedulerPollInterval
	}
	if cfg.Scheduler.Workers == 0 {
		cfg.Scheduler.Workers = DefaultSchedulerWorkers
	}

	// Orchestrator defaults
	if cfg.Orchestrator.DailySchedule == "" {
		cfg.Orchestrator.DailySchedule = DefaultDailySchedule
	}
	if cfg.Orchestrator.MonthlySchedule == "" {
		cfg.Orchestrator.MonthlySchedule = DefaultMonthlySchedule
	}
	if cfg.Orchestrator.CleanupSchedule == "" {
		cfg.Orchestrator.CleanupSchedule = DefaultCleanupSchedule
	}
	if cfg.Orchestrator.CacheVerifySchedule == "" {
		cfg.Orchestrator.CacheVerifySchedule = DefaultCacheVerifySchedule
	}
	if cfg.Orchestrator.SweepSchedule == "" {
		cfg.Orchestrator.SweepSchedule = DefaultSweepSchedule
	}
	if cfg.Orchestrator.CleanupRetentionDays == 0 {
		cfg.Orchestrator.CleanupRetentionDays = DefaultCleanupRetentionDays
	}
	if cfg.Orchestrator.PrimaryRetentionDays == 0 {
		cfg.Orchestrator.PrimaryRetentionDays = DefaultPrimaryRetentionDays
	}

	// Interceptor defaults
	if cfg.Interceptor.AsyncBuffer == 0 {
		cfg.Interceptor.AsyncBuffer = DefaultInterceptorAsyncBuffer
	}
	if cfg.Interceptor.WriteTimeout == 0 {
		cfg.Interceptor.WriteTimeout = DefaultInterceptorWriteTimeout
	}
	if cfg.Interceptor.MaxDescriptionLength == 0 {
		cfg.Interceptor.MaxDescriptionLength = DefaultInterceptorMaxDescriptionLength
	}

	// Admin defaults
	if cfg.Admin.ListenAddress == "" {
		cfg.Admin.ListenAddress = DefaultAdminListenAddress
	}
	if cfg.Admin.ReadTimeout == 0 {
		cfg.Admin.ReadTimeout = DefaultAdminReadTimeout
	}
	if cfg.Admin.WriteTimeout == 0 {
		cfg.Admin.WriteTimeout = DefaultAdminWriteTimeout
	}
	if cfg.Admin.ShutdownTimeout == 0 {
		cfg.Admin.ShutdownTimeout = DefaultAdminShutdownTimeout
	}

	// Telemetry defaults
	if cfg.Telemetry.Logging.Level == "" {
		cfg.Telemetry.Logging.Level = DefaultLogLevel
	}
	if cfg.Telemetry.Logging.Format == "" {
		cfg.Telemetry.Logging.Format = DefaultLogFormat
	}
	if cfg.Telemetry.Metrics.Path == "" {
		cfg.Telemetry.Metrics.Path = DefaultMetricsPath
	}
	if cfg.Telemetry.Metrics.Namespace == "" {
		cfg.Telemetry.Metrics.Namespace = DefaultMetricsNamespace
	}
	if cfg.Telemetry.Metrics.Subsystem == "" {
		cfg.Telemetry.Metrics.Subsystem = DefaultMetricsSubsystem
	}
	if len(cfg.Telemetry.Metrics.TaskDurationBuckets) == 0 {
		cfg.Telemetry.Metrics.TaskDurationBuckets = append([]float64(nil), DefaultTaskDurationBuckets...)
	}
	if cfg.Telemetry.Health.LivenessPath == "" {
		cfg.Telemetry.Health.LivenessPath = DefaultLivenessPath
	}
	if cfg.Telemetry.Health.ReadinessPath == "" {
		cfg.Telemetry.Health.ReadinessPath = DefaultReadinessPath
	}
}
