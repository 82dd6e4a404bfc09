package orchestrator

import "time"

// Default trigger schedules (standard cron syntax or descriptors).
const (
	DefaultDailySchedule       = "0 1 * * *"
	DefaultMonthlySchedule     = "0 2 1 * *"
	DefaultCleanupSchedule     = "0 3 * * *"
	DefaultCacheVerifySchedule = "@every 15m"
	DefaultSweepSchedule       = "@every 1h"
)

// Config contains configuration for the orchestrator.
type Config struct {
	// DailySchedule fires the daily archive trigger. Empty disables it.
	DailySchedule string

	// MonthlySchedule fires the monthly archive trigger. Empty disables it.
	MonthlySchedule string

	// CleanupSchedule fires the retention cleanup trigger. Empty disables it.
	CleanupSchedule string

	// CacheVerifySchedule fires the cache consistency check. Empty disables it.
	CacheVerifySchedule string

	// SweepSchedule fires the expired-task sweep. Empty disables it.
	SweepSchedule string

	// CleanupRetentionDays is the age in days of archives removed by
	// scheduled cleanup. Values below the archive retention floor are
	// clamped to the floor when the task runs.
	// Default: 365
	CleanupRetentionDays int

	// PrimaryRetentionDays is the age in days after which cleanup moves
	// records out of the primary store into daily archives. 0 disables it.
	// Default: 90
	PrimaryRetentionDays int

	// PollInterval is how often the dispatch loop checks for ready tasks.
	// Default: 1 second
	PollInterval time.Duration

	// Workers bounds the number of concurrently running handlers.
	// Default: 4
	Workers int

	// MaxRetries is applied to tasks built by the triggers.
	// Default: 3
	MaxRetries int

	// Location defines calendar days for the daily and monthly triggers.
	// Default: UTC
	Location *time.Location
}

// DefaultConfig returns the default orchestrator configuration.
func DefaultConfig() *Config {
	return &Config{
		DailySchedule:        DefaultDailySchedule,
		MonthlySchedule:      DefaultMonthlySchedule,
		CleanupSchedule:      DefaultCleanupSchedule,
		CacheVerifySchedule:  DefaultCacheVerifySchedule,
		SweepSchedule:        DefaultSweepSchedule,
		CleanupRetentionDays: 365,
		PrimaryRetentionDays: 90,
		PollInterval:         time.Second,
		Workers:              4,
		MaxRetries:           3,
		Location:             time.UTC,
	}
}

func (c *Config) withDefaults() *Config {
	out := *c
	def := DefaultConfig()
	if out.CleanupRetentionDays <= 0 {
		out.CleanupRetentionDays = def.CleanupRetentionDays
	}
	if out.PrimaryRetentionDays < 0 {
		out.PrimaryRetentionDays = 0
	}
	if out.PollInterval <= 0 {
		out.PollInterval = def.PollInterval
	}
	if out.Workers <= 0 {
		out.Workers = def.Workers
	}
	if out.MaxRetries < 0 {
		out.MaxRetries = def.MaxRetries
	}
	if out.Location == nil {
		out.Location = def.Location
	}
	return &out
}
