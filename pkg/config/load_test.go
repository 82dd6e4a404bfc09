package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "archivist.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return path
}

func TestLoadConfig_ValidFile(t *testing.T) {
	path := writeConfig(t, `
store:
  driver: "memory"

archive:
  base_dir: "/var/lib/archivist/archives"
  timezone: "Europe/Berlin"

retry:
  initial_delay: "30s"
  max_delay: "10m"

orchestrator:
  cleanup_retention_days: 400
  monthly_schedule: "off"

telemetry:
  logging:
    level: "debug"
    format: "text"
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Store.Driver != "memory" {
		t.Errorf("expected driver %q, got %q", "memory", cfg.Store.Driver)
	}
	if cfg.Archive.BaseDir != "/var/lib/archivist/archives" {
		t.Errorf("expected base dir, got %q", cfg.Archive.BaseDir)
	}
	if cfg.Archive.Location().String() != "Europe/Berlin" {
		t.Errorf("expected Europe/Berlin location, got %s", cfg.Archive.Location())
	}
	if cfg.Retry.InitialDelay != 30*time.Second || cfg.Retry.MaxDelay != 10*time.Minute {
		t.Errorf("unexpected retry delays %v / %v", cfg.Retry.InitialDelay, cfg.Retry.MaxDelay)
	}
	if cfg.Orchestrator.CleanupRetentionDays != 400 {
		t.Errorf("expected cleanup retention 400, got %d", cfg.Orchestrator.CleanupRetentionDays)
	}
	if Schedule(cfg.Orchestrator.MonthlySchedule) != "" {
		t.Errorf("expected monthly schedule disabled, got %q", cfg.Orchestrator.MonthlySchedule)
	}
	if cfg.Telemetry.Logging.Level != "debug" {
		t.Errorf("expected logging level %q, got %q", "debug", cfg.Telemetry.Logging.Level)
	}

	// Untouched sections get defaults.
	if cfg.Cache.MaxEntries != DefaultCacheMaxEntries {
		t.Errorf("expected default cache size, got %d", cfg.Cache.MaxEntries)
	}
	if cfg.Orchestrator.DailySchedule != DefaultDailySchedule {
		t.Errorf("expected default daily schedule, got %q", cfg.Orchestrator.DailySchedule)
	}
}

func TestLoadConfig_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"malformed yaml", "store: [", "failed to parse"},
		{"invalid driver", "store:\n  driver: postgres\n", "store.driver"},
		{"invalid schedule", "orchestrator:\n  daily_schedule: \"every day\"\n", "orchestrator.daily_schedule"},
		{"primary beyond cleanup", "orchestrator:\n  primary_retention_days: 500\n", "orchestrator.primary_retention_days"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tt.content))
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}

	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected ErrNotExist for missing file, got %v", err)
	}
}

func TestLoadConfigWithEnvOverrides(t *testing.T) {
	path := writeConfig(t, "store:\n  driver: memory\n")

	t.Setenv("ARCHIVIST_ARCHIVE_BASE_DIR", "/tmp/override")
	t.Setenv("ARCHIVIST_SCHEDULER_WORKERS", "8")
	t.Setenv("ARCHIVIST_RETRY_INITIAL_DELAY", "5s")
	t.Setenv("ARCHIVIST_INTERCEPTOR_ENABLED", "true")
	t.Setenv("ARCHIVIST_TELEMETRY_LOGGING_LEVEL", "warn")

	cfg, err := LoadConfigWithEnvOverrides(path)
	if err != nil {
		t.Fatalf("LoadConfigWithEnvOverrides() error = %v", err)
	}

	if cfg.Archive.BaseDir != "/tmp/override" {
		t.Errorf("expected base dir override, got %q", cfg.Archive.BaseDir)
	}
	if cfg.Scheduler.Workers != 8 {
		t.Errorf("expected 8 workers, got %d", cfg.Scheduler.Workers)
	}
	if cfg.Retry.InitialDelay != 5*time.Second {
		t.Errorf("expected 5s initial delay, got %v", cfg.Retry.InitialDelay)
	}
	if !cfg.Interceptor.Enabled {
		t.Error("expected interceptor enabled")
	}
	if cfg.Telemetry.Logging.Level != "warn" {
		t.Errorf("expected warn level, got %q", cfg.Telemetry.Logging.Level)
	}
}

func TestLoadConfigWithEnvOverrides_Invalid(t *testing.T) {
	path := writeConfig(t, "store:\n  driver: memory\n")

	tests := []struct {
		env   string
		value string
		want  string
	}{
		{"ARCHIVIST_SCHEDULER_WORKERS", "many", "ARCHIVIST_SCHEDULER_WORKERS"},
		{"ARCHIVIST_CACHE_TTL", "forever", "ARCHIVIST_CACHE_TTL"},
		{"ARCHIVIST_SCHEDULER_WORKERS", "0", "scheduler.workers"},
		{"ARCHIVIST_TELEMETRY_LOGGING_FORMAT", "xml", "telemetry.logging.format"},
	}

	for _, tt := range tests {
		t.Run(tt.env+"="+tt.value, func(t *testing.T) {
			t.Setenv(tt.env, tt.value)

			_, err := LoadConfigWithEnvOverrides(path)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := NewDefaultConfig()

	if err := Validate(cfg); err != nil {
		t.Fatalf("default config is invalid: %v", err)
	}

	tests := []struct {
		name string
		got  any
		want any
	}{
		{"store.driver", cfg.Store.Driver, DefaultStoreDriver},
		{"archive.retention_floor_days", cfg.Archive.RetentionFloorDays, 365},
		{"retry.initial_delay", cfg.Retry.InitialDelay, time.Minute},
		{"retry.max_delay", cfg.Retry.MaxDelay, 15 * time.Minute},
		{"retry.max_retries", cfg.Retry.MaxRetries, 3},
		{"orchestrator.cleanup_schedule", cfg.Orchestrator.CleanupSchedule, "0 3 * * *"},
		{"orchestrator.primary_retention_days", cfg.Orchestrator.PrimaryRetentionDays, 90},
		{"admin.listen_address", cfg.Admin.ListenAddress, DefaultAdminListenAddress},
		{"telemetry.metrics.subsystem", cfg.Telemetry.Metrics.Subsystem, "archivist"},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s = %v, want %v", tt.name, tt.got, tt.want)
		}
	}

	// Idempotent.
	before := *cfg
	ApplyDefaults(cfg)
	if cfg.Store != before.Store || cfg.Orchestrator != before.Orchestrator {
		t.Error("ApplyDefaults is not idempotent")
	}
}

func TestLoadConfig_ExampleFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join("..", "..", "examples", "archivist.yaml"))
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if !cfg.Interceptor.Enabled {
		t.Error("Interceptor.Enabled = false, want true")
	}
	if cfg.Orchestrator.SweepSchedule != DefaultSweepSchedule {
		t.Errorf("SweepSchedule = %q, want %q", cfg.Orchestrator.SweepSchedule, DefaultSweepSchedule)
	}
	if cfg.Retry.InitialDelay != time.Minute {
		t.Errorf("Retry.InitialDelay = %v, want 1m", cfg.Retry.InitialDelay)
	}
	if len(cfg.Telemetry.Metrics.TaskDurationBuckets) != len(DefaultTaskDurationBuckets) {
		t.Errorf("TaskDurationBuckets = %v", cfg.Telemetry.Metrics.TaskDurationBuckets)
	}
}
