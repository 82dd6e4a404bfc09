package main

import (
	"time"

	"mercator-hq/archivist/pkg/archive"
	"mercator-hq/archivist/pkg/audit/cache"
	"mercator-hq/archivist/pkg/audit/interceptor"
	"mercator-hq/archivist/pkg/audit/storage"
	"mercator-hq/archivist/pkg/config"
	"mercator-hq/archivist/pkg/orchestrator"
	"mercator-hq/archivist/pkg/server"
	"mercator-hq/archivist/pkg/tasks/retry"
	"mercator-hq/archivist/pkg/telemetry/health"
	"mercator-hq/archivist/pkg/telemetry/logging"
	"mercator-hq/archivist/pkg/telemetry/metrics"
)

const day = 24 * time.Hour

func storeConfig(cfg *config.Config) *storage.Config {
	return &storage.Config{
		Driver:       cfg.Store.Driver,
		Path:         cfg.Store.Path,
		MaxOpenConns: cfg.Store.MaxOpenConns,
		MaxIdleConns: cfg.Store.MaxIdleConns,
		WALMode:      cfg.Store.JournalMode == "wal",
		BusyTimeout:  cfg.Store.BusyTimeout,
	}
}

func archiveConfig(cfg *config.Config) *archive.Config {
	return &archive.Config{
		BaseDir:           cfg.Archive.BaseDir,
		RetentionFloor:    time.Duration(cfg.Archive.RetentionFloorDays) * day,
		MaxSearchWindow:   time.Duration(cfg.Archive.MaxSearchWindowDays) * day,
		AssumedRecordSize: cfg.Archive.AssumedRecordSize,
		Location:          cfg.Archive.Location(),
	}
}

func cacheConfig(cfg *config.Config) *cache.Config {
	return &cache.Config{
		MaxEntries:      cfg.Cache.MaxEntries,
		TTL:             cfg.Cache.TTL,
		BreakerFailures: cfg.Cache.BreakerFailures,
		BreakerTimeout:  cfg.Cache.BreakerTimeout,
	}
}

func retryConfig(cfg *config.Config) *retry.Config {
	return &retry.Config{
		InitialDelay: cfg.Retry.InitialDelay,
		Multiplier:   cfg.Retry.Multiplier,
		MaxDelay:     cfg.Retry.MaxDelay,
	}
}

func orchestratorConfig(cfg *config.Config) *orchestrator.Config {
	o := cfg.Orchestrator
	return &orchestrator.Config{
		DailySchedule:        config.Schedule(o.DailySchedule),
		MonthlySchedule:      config.Schedule(o.MonthlySchedule),
		CleanupSchedule:      config.Schedule(o.CleanupSchedule),
		CacheVerifySchedule:  config.Schedule(o.CacheVerifySchedule),
		SweepSchedule:        config.Schedule(o.SweepSchedule),
		CleanupRetentionDays: o.CleanupRetentionDays,
		PrimaryRetentionDays: max(o.PrimaryRetentionDays, 0),
		PollInterval:         cfg.Scheduler.PollInterval,
		Workers:              cfg.Scheduler.Workers,
		MaxRetries:           cfg.Retry.MaxRetries,
		Location:             cfg.Archive.Location(),
	}
}

func interceptorConfig(cfg *config.Config) *interceptor.Config {
	return &interceptor.Config{
		Enabled:              cfg.Interceptor.Enabled,
		AsyncBuffer:          cfg.Interceptor.AsyncBuffer,
		WriteTimeout:         cfg.Interceptor.WriteTimeout,
		MaxDescriptionLength: cfg.Interceptor.MaxDescriptionLength,
	}
}

func metricsConfig(cfg *config.Config) *metrics.Config {
	return &metrics.Config{
		Namespace:           cfg.Telemetry.Metrics.Namespace,
		Subsystem:           cfg.Telemetry.Metrics.Subsystem,
		TaskDurationBuckets: cfg.Telemetry.Metrics.TaskDurationBuckets,
		ProcessCollectors:   true,
	}
}

func loggingConfig(cfg *config.Config) logging.Config {
	return logging.Config{
		Level:     cfg.Telemetry.Logging.Level,
		Format:    cfg.Telemetry.Logging.Format,
		AddSource: cfg.Telemetry.Logging.AddSource,
	}
}

func serverConfig(cfg *config.Config) server.Config {
	return server.Config{
		ListenAddress:   cfg.Admin.ListenAddress,
		ReadTimeout:     cfg.Admin.ReadTimeout,
		WriteTimeout:    cfg.Admin.WriteTimeout,
		ShutdownTimeout: cfg.Admin.ShutdownTimeout,
	}
}

func healthPaths(cfg *config.Config) health.Paths {
	return health.Paths{
		Liveness:  cfg.Telemetry.Health.LivenessPath,
		Readiness: cfg.Telemetry.Health.ReadinessPath,
	}
}
