package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"mercator-hq/archivist/pkg/archive"
	"mercator-hq/archivist/pkg/audit"
	"mercator-hq/archivist/pkg/audit/cache"
	"mercator-hq/archivist/pkg/audit/interceptor"
	"mercator-hq/archivist/pkg/audit/service"
	"mercator-hq/archivist/pkg/audit/storage"
	"mercator-hq/archivist/pkg/cli"
	"mercator-hq/archivist/pkg/config"
	"mercator-hq/archivist/pkg/orchestrator"
	"mercator-hq/archivist/pkg/tasks"
	"mercator-hq/archivist/pkg/tasks/retry"
	"mercator-hq/archivist/pkg/telemetry/logging"
	"mercator-hq/archivist/pkg/telemetry/metrics"
)

// app is the wired set of components shared by every command.
type app struct {
	cfg         *config.Config
	logger      *logging.Logger
	store       audit.Store
	metrics     *metrics.Collector
	cache       *cache.RecordCache
	archives    *archive.Store
	service     *service.AuditService
	scheduler   *tasks.Scheduler
	orch        *orchestrator.Orchestrator
	interceptor *interceptor.Interceptor
	attempts    *attemptErrors
}

// loadConfig reads the config file with environment overrides. When the
// default file is absent the built-in defaults are used instead; an
// explicitly named file must exist.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if errors.Is(err, fs.ErrNotExist) && !cmd.Flags().Changed("config") {
		cfg = config.NewDefaultConfig()
		if err = config.ApplyEnvOverrides(cfg); err == nil {
			err = config.Validate(cfg)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load config %s: %w", cfgFile, err)
	}
	config.SetConfig(cfg)
	return cfg, nil
}

func newApp(cfg *config.Config, extra ...orchestrator.Option) (*app, error) {
	logger, err := logging.New(loggingConfig(cfg))
	if err != nil {
		return nil, cli.NewConfigError("telemetry.logging", err.Error())
	}
	if verbose {
		if err := logger.SetLevel("debug"); err != nil {
			return nil, err
		}
	}
	logger.Install()

	store, err := storage.New(storeConfig(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to open primary store: %w", err)
	}

	a := &app{
		cfg:     cfg,
		logger:  logger,
		store:   store,
		metrics: metrics.NewCollector(metricsConfig(cfg), prometheus.NewRegistry()),
	}
	a.cache = cache.New(store, cacheConfig(cfg), cache.WithMetrics(a.metrics.Cache()))
	a.archives = archive.NewStore(archiveConfig(cfg),
		archive.WithCounter(store),
		archive.WithObserver(a.metrics.Archives()),
	)
	a.service = service.New(store, a.cache, a.archives)
	a.scheduler = tasks.NewScheduler()

	opts := append([]orchestrator.Option{orchestrator.WithMetrics(a.metrics.Tasks())}, extra...)
	if cfg.Interceptor.Enabled {
		a.interceptor = interceptor.New(a.service, nil, interceptorConfig(cfg))
		a.metrics.RegisterInterceptorStats(a.interceptor.Stats)
		opts = append(opts, orchestrator.WithAttemptObserver(interceptor.NewTaskObserver(a.interceptor)))
	}

	a.orch, err = orchestrator.New(orchestratorConfig(cfg), a.scheduler, retry.NewCoordinator(retryConfig(cfg)),
		orchestrator.Deps{
			Archive:   a.archives,
			Records:   store,
			Cache:     a.cache,
			Offloader: a.service,
		}, opts...)
	if err != nil {
		a.close()
		return nil, err
	}

	slog.Debug("components initialized",
		"store_driver", cfg.Store.Driver,
		"archive_dir", cfg.Archive.BaseDir,
		"interceptor_enabled", cfg.Interceptor.Enabled,
	)
	return a, nil
}

// close flushes the interceptor before closing the store it writes to.
func (a *app) close() {
	if a.interceptor != nil {
		a.interceptor.Close()
	}
	if err := a.store.Close(); err != nil {
		slog.Warn("failed to close primary store", "error", err)
	}
}

// runTask executes task synchronously with retries and turns an
// unsuccessful outcome into an error carrying the last attempt's cause.
func (a *app) runTask(ctx context.Context, task *tasks.ScheduledTask) (*tasks.Result, error) {
	result, err := a.orch.ExecuteWithRetry(ctx, task)
	if err != nil {
		return result, err
	}
	if result.Status == tasks.StatusSucceeded {
		return result, nil
	}
	if cause := a.attempts.take(task.ID); cause != nil {
		return result, fmt.Errorf("%s task %s: %w", task.Type, result.Status, cause)
	}
	return result, fmt.Errorf("%s task %s: %s", task.Type, result.Status, result.ErrorMessage)
}

// withApp loads the configuration, wires the components and runs fn under
// a context cancelled by SIGINT or SIGTERM.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app) error) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	attempts := &attemptErrors{errs: make(map[string]error)}
	a, err := newApp(cfg, orchestrator.WithAttemptObserver(attempts))
	if err != nil {
		return cli.NewCommandError(cmd.Name(), err)
	}
	defer a.close()
	a.attempts = attempts

	ctx, stop := cli.SetupSignalHandler()
	defer stop()

	if err := fn(ctx, a); err != nil {
		return cli.NewCommandError(cmd.CommandPath(), err)
	}
	return nil
}

// now returns the current time in the archive time zone.
func (a *app) now() time.Time {
	return time.Now().In(a.archives.Location())
}

// attemptErrors keeps the error of each task's latest failed attempt for
// one-shot commands.
type attemptErrors struct {
	mu   sync.Mutex
	errs map[string]error
}

func (e *attemptErrors) ObserveAttempt(_ context.Context, task *tasks.ScheduledTask, _ *tasks.Result, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err == nil {
		delete(e.errs, task.ID)
		return
	}
	e.errs[task.ID] = err
}

func (e *attemptErrors) take(taskID string) error {
	if e == nil {
		return nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	err := e.errs[taskID]
	delete(e.errs, taskID)
	return err
}

// render writes data to the command's output in the --output format.
func render(cmd *cobra.Command, data any) error {
	format, err := cli.ParseOutputFormat(outputFormat)
	if err != nil {
		return err
	}
	return cli.NewFormatter(format).FormatTo(cmd.OutOrStdout(), data)
}
