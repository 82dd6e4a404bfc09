package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"mercator-hq/archivist/pkg/cli"
	"mercator-hq/archivist/pkg/config"
	"mercator-hq/archivist/pkg/server"
	"mercator-hq/archivist/pkg/telemetry/health"
)

var runFlags struct {
	listenAddress string
	logLevel      string
	dryRun        bool
	noWatch       bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the archive scheduler",
	Long: `Run the archive scheduler until interrupted.

The daily, monthly, cleanup, cache verification and expired-task triggers
fire on their configured schedules and their tasks are dispatched to a
bounded worker pool with retries. The admin listener serves Prometheus
metrics and the health, readiness and version endpoints. Changes to the
config file are applied to the log level and retention periods without a
restart.

Examples:
  # Start with default config
  archivist run

  # Start with custom config
  archivist run --config /etc/archivist/archivist.yaml

  # Override listen address
  archivist run --listen 0.0.0.0:9090

  # Validate config without starting
  archivist run --dry-run`,
	Args: cobra.NoArgs,
	RunE: runScheduler,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runFlags.listenAddress, "listen", "l", "", "override admin listen address")
	runCmd.Flags().StringVar(&runFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	runCmd.Flags().BoolVar(&runFlags.dryRun, "dry-run", false, "validate config without starting")
	runCmd.Flags().BoolVar(&runFlags.noWatch, "no-watch", false, "do not reload the config file on change")
}

func runScheduler(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	if runFlags.listenAddress != "" {
		cfg.Admin.ListenAddress = runFlags.listenAddress
	}
	if runFlags.logLevel != "" {
		cfg.Telemetry.Logging.Level = runFlags.logLevel
	}
	if err := config.Validate(cfg); err != nil {
		return err
	}

	if runFlags.dryRun {
		fmt.Fprintln(cmd.OutOrStdout(), "✓ Configuration valid")
		return nil
	}

	a, err := newApp(cfg)
	if err != nil {
		return cli.NewCommandError("run", err)
	}
	defer a.close()

	ctx, stop := cli.SetupSignalHandler()
	defer stop()

	fmt.Fprintf(cmd.OutOrStdout(), "Archivist v%s\n", Version)
	slog.Info("starting archivist",
		"version", Version,
		"config", cfgFile,
		"store_driver", cfg.Store.Driver,
		"archive_dir", cfg.Archive.BaseDir,
		"timezone", cfg.Archive.Timezone,
	)

	var srv *server.Server
	errChan := make(chan error, 1)
	if cfg.Admin.ListenAddress != "" {
		srv = server.New(serverConfig(cfg), adminHandler(a))
		addr, err := srv.Listen()
		if err != nil {
			return cli.NewCommandError("run", err)
		}
		go func() {
			if err := srv.Start(ctx); err != nil {
				errChan <- fmt.Errorf("admin server error: %w", err)
			}
		}()
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Metrics endpoint: http://%s%s\n", addr, cfg.Telemetry.Metrics.Path)
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Health endpoint: http://%s%s\n", addr, cfg.Telemetry.Health.LivenessPath)
	}

	if err := a.orch.Start(ctx); err != nil {
		return cli.NewCommandError("run", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), "✓ Scheduler started")

	if !runFlags.noWatch {
		w, err := watchConfig(ctx, a)
		if err != nil {
			slog.Warn("configuration hot reload disabled", "error", err)
		} else {
			defer w.Stop()
		}
	}

	var runErr error
	select {
	case err := <-errChan:
		runErr = cli.NewCommandError("run", err)
	case <-ctx.Done():
		fmt.Fprintln(cmd.OutOrStdout(), "\nShutting down gracefully...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Admin.ShutdownTimeout)
	defer cancel()

	if err := a.orch.Stop(shutdownCtx); err != nil {
		slog.Error("scheduler shutdown incomplete", "error", err)
	}
	if srv != nil {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("admin server shutdown failed", "error", err)
		}
	}

	if runErr == nil {
		fmt.Fprintln(cmd.OutOrStdout(), "✓ Archivist stopped")
	}
	return runErr
}

// adminHandler serves metrics, health, readiness and version.
func adminHandler(a *app) http.Handler {
	checker := health.New(5 * time.Second)
	checker.RegisterCheck("store", health.StoreCheck(a.store))
	checker.RegisterCheck("archive", health.ArchiveCheck(a.archives))
	checker.RegisterCheck("scheduler", health.RunningCheck(a.orch))

	mux := http.NewServeMux()
	mux.Handle(a.cfg.Telemetry.Metrics.Path, a.metrics.Handler())
	health.Mount(mux, checker, healthPaths(a.cfg), versionInfo())
	return mux
}

// watchConfig reloads the config file on change and applies the settings
// that can change at run time.
func watchConfig(ctx context.Context, a *app) (*config.Watcher, error) {
	w, err := config.NewWatcher(cfgFile, config.DefaultDebounceInterval, func(cfg *config.Config) {
		applyReload(a, cfg)
	})
	if err != nil {
		return nil, err
	}

	go func() {
		if err := w.Watch(ctx); err != nil {
			slog.Warn("configuration watcher stopped", "error", err)
		}
	}()
	return w, nil
}

// applyReload applies a reloaded configuration to the running app.
func applyReload(a *app, cfg *config.Config) {
	if err := a.logger.SetLevel(cfg.Telemetry.Logging.Level); err != nil {
		slog.Warn("ignoring reloaded log level", "error", err)
	}
	a.orch.SetRetention(cfg.Orchestrator.CleanupRetentionDays, cfg.Orchestrator.PrimaryRetentionDays)
	slog.Info("configuration reloaded",
		"log_level", cfg.Telemetry.Logging.Level,
		"cleanup_retention_days", a.orch.CleanupRetentionDays(),
		"primary_retention_days", a.orch.PrimaryRetentionDays(),
	)
}
