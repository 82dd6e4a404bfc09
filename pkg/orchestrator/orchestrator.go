package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/semaphore"

	"mercator-hq/archivist/pkg/audit"
	"mercator-hq/archivist/pkg/tasks"
	"mercator-hq/archivist/pkg/tasks/retry"
	"mercator-hq/archivist/pkg/telemetry/logging"
)

// Metrics receives task execution events.
type Metrics interface {
	RecordTask(taskType string, status string, duration time.Duration)
	RecordRetry(taskType string)
	SetQueueDepth(depth int)
}

// AttemptObserver is told about every finished task attempt.
type AttemptObserver interface {
	ObserveAttempt(ctx context.Context, task *tasks.ScheduledTask, result *tasks.Result, err error)
}

type nopMetrics struct{}

func (nopMetrics) RecordTask(string, string, time.Duration) {}
func (nopMetrics) RecordRetry(string)                       {}
func (nopMetrics) SetQueueDepth(int)                        {}

// Orchestrator owns the triggers, the dispatch loop and the handlers.
type Orchestrator struct {
	config    *Config
	scheduler *tasks.Scheduler
	retry     *retry.Coordinator
	sem       *semaphore.Weighted
	metrics   Metrics
	observers []AttemptObserver
	now       func() time.Time
	logger    *slog.Logger

	cleanupDays atomic.Int64
	primaryDays atomic.Int64

	hmu      sync.RWMutex
	handlers map[tasks.TaskType]Handler
	triggers []*Trigger

	mu      sync.Mutex
	running bool
	cron    *cron.Cron
	cancel  context.CancelFunc
	stopped chan struct{}
	wg      sync.WaitGroup
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithMetrics sets the metrics sink.
func WithMetrics(m Metrics) Option {
	return func(o *Orchestrator) {
		if m != nil {
			o.metrics = m
		}
	}
}

// WithAttemptObserver adds an observer of finished attempts.
func WithAttemptObserver(obs AttemptObserver) Option {
	return func(o *Orchestrator) {
		if obs != nil {
			o.observers = append(o.observers, obs)
		}
	}
}

// WithClock overrides the time source used for task times and cleanup
// cutoffs.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// WithLogger overrides the component logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) { o.logger = l }
}

// New creates an orchestrator over scheduler and coordinator and registers
// the built-in handlers for deps.
func New(cfg *Config, scheduler *tasks.Scheduler, coordinator *retry.Coordinator, deps Deps, opts ...Option) (*Orchestrator, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if deps.Archive == nil {
		return nil, errors.New("orchestrator requires an archive store")
	}
	cfg = cfg.withDefaults()

	o := &Orchestrator{
		config:    cfg,
		scheduler: scheduler,
		retry:     coordinator,
		sem:       semaphore.NewWeighted(int64(cfg.Workers)),
		metrics:   nopMetrics{},
		now:       time.Now,
		logger:    slog.Default().With("component", "orchestrator"),
		handlers:  make(map[tasks.TaskType]Handler),
	}
	for _, opt := range opts {
		opt(o)
	}
	o.cleanupDays.Store(int64(cfg.CleanupRetentionDays))
	o.primaryDays.Store(int64(cfg.PrimaryRetentionDays))

	o.registerBuiltins(deps)

	if err := o.buildTriggers(); err != nil {
		return nil, err
	}
	return o, nil
}

func (o *Orchestrator) buildTriggers() error {
	submit := func(build func(now time.Time) (*tasks.ScheduledTask, error)) func(context.Context, time.Time) {
		return func(_ context.Context, now time.Time) {
			task, err := build(now)
			if err != nil {
				o.logger.Error("failed to build task", "error", err)
				return
			}
			if err := o.Submit(task); err != nil {
				o.logger.Error("failed to submit task", "task_id", task.ID, "type", task.Type, "error", err)
			}
		}
	}
	retries := tasks.WithMaxRetries(o.config.MaxRetries)

	specs := []struct {
		name   string
		spec   string
		action func(context.Context, time.Time)
	}{
		{"daily_archive", o.config.DailySchedule, submit(func(now time.Time) (*tasks.ScheduledTask, error) {
			return NewDailyArchiveTask(now, retries)
		})},
		{"monthly_archive", o.config.MonthlySchedule, submit(func(now time.Time) (*tasks.ScheduledTask, error) {
			return NewMonthlyArchiveTask(now, retries)
		})},
		{"cleanup", o.config.CleanupSchedule, submit(func(now time.Time) (*tasks.ScheduledTask, error) {
			return NewCleanupTask(now, o.CleanupRetentionDays(), retries)
		})},
		{"cache_verify", o.config.CacheVerifySchedule, submit(func(now time.Time) (*tasks.ScheduledTask, error) {
			return NewCacheRefreshTask(now, ModeVerify, retries)
		})},
		{"expiry_sweep", o.config.SweepSchedule, func(context.Context, time.Time) {
			if n := o.scheduler.CleanupExpiredTasks(); n > 0 {
				o.logger.Info("expired tasks swept", "count", n)
			}
		}},
	}

	for _, s := range specs {
		if s.spec == "" {
			o.logger.Info("trigger not configured, skipping", "trigger", s.name)
			continue
		}
		tr, err := NewTrigger(s.name, s.spec, s.action)
		if err != nil {
			return err
		}
		o.triggers = append(o.triggers, tr)
	}
	return nil
}

// SetRetention changes the retention used by later cleanup runs. A
// non-positive cleanupDays is ignored; a non-positive primaryDays disables
// offloading primary-store records.
func (o *Orchestrator) SetRetention(cleanupDays, primaryDays int) {
	if cleanupDays > 0 {
		o.cleanupDays.Store(int64(cleanupDays))
	}
	o.primaryDays.Store(int64(max(primaryDays, 0)))
	o.logger.Info("retention updated",
		"cleanup_retention_days", o.cleanupDays.Load(),
		"primary_retention_days", o.primaryDays.Load(),
	)
}

// CleanupRetentionDays returns the age in days of archives removed by
// scheduled cleanup.
func (o *Orchestrator) CleanupRetentionDays() int {
	return int(o.cleanupDays.Load())
}

// PrimaryRetentionDays returns the age in days after which cleanup offloads
// primary-store records, or 0 when offloading is disabled.
func (o *Orchestrator) PrimaryRetentionDays() int {
	return int(o.primaryDays.Load())
}

// RegisterHandler sets the handler for a task type, replacing any existing
// one.
func (o *Orchestrator) RegisterHandler(typ tasks.TaskType, h Handler) {
	o.hmu.Lock()
	defer o.hmu.Unlock()
	o.handlers[typ] = h
}

func (o *Orchestrator) handler(typ tasks.TaskType) (Handler, bool) {
	o.hmu.RLock()
	defer o.hmu.RUnlock()
	h, ok := o.handlers[typ]
	return h, ok
}

// Triggers returns the configured triggers.
func (o *Orchestrator) Triggers() []*Trigger {
	return append([]*Trigger(nil), o.triggers...)
}

// NextRuns returns the next fire time of each trigger after after.
func (o *Orchestrator) NextRuns(after time.Time) map[string]time.Time {
	out := make(map[string]time.Time, len(o.triggers))
	for _, tr := range o.triggers {
		out[tr.Name] = tr.Next(after.In(o.config.Location))
	}
	return out
}

// Submit schedules a task for dispatch.
func (o *Orchestrator) Submit(task *tasks.ScheduledTask) error {
	if err := o.scheduler.Schedule(task); err != nil {
		return err
	}
	o.logger.Info("task submitted",
		"task_id", task.ID,
		"type", task.Type,
		"priority", task.Priority.String(),
		"scheduled_time", task.ScheduledTime,
	)
	return nil
}

// Start begins firing triggers and dispatching ready tasks. It returns
// immediately; call Stop to shut down.
func (o *Orchestrator) Start(ctx context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.running {
		return fmt.Errorf("orchestrator already running")
	}

	workCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	loopCtx, stopLoop := context.WithCancel(ctx)

	c := cron.New(cron.WithLocation(o.config.Location))
	for _, tr := range o.triggers {
		c.Schedule(tr.schedule, cron.FuncJob(func() {
			o.logger.Debug("trigger fired", "trigger", tr.Name)
			tr.Fire(workCtx, o.now().In(o.config.Location))
		}))
	}
	c.Start()

	o.cron = c
	o.cancel = func() {
		stopLoop()
		cancel()
	}
	o.stopped = make(chan struct{})
	o.running = true

	go o.loop(loopCtx, workCtx, o.stopped)

	for name, next := range o.NextRuns(o.now()) {
		o.logger.Info("trigger scheduled", "trigger", name, "next_run", next)
	}
	o.logger.Info("orchestrator started",
		"workers", o.config.Workers,
		"poll_interval", o.config.PollInterval,
		"triggers", len(o.triggers),
	)
	return nil
}

// Stop stops the triggers and the dispatch loop, then waits for running
// handlers until ctx is done. Handlers still running at that point are
// cancelled.
func (o *Orchestrator) Stop(ctx context.Context) error {
	o.mu.Lock()
	if !o.running {
		o.mu.Unlock()
		return nil
	}
	o.running = false
	c, cancel, stopped := o.cron, o.cancel, o.stopped
	o.mu.Unlock()

	<-c.Stop().Done()
	cancel()
	<-stopped

	done := make(chan struct{})
	go func() {
		o.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		o.logger.Info("orchestrator stopped")
		return nil
	case <-ctx.Done():
		o.logger.Warn("orchestrator stopped with handlers still running", "error", ctx.Err())
		return ctx.Err()
	}
}

// IsRunning reports whether the orchestrator is started.
func (o *Orchestrator) IsRunning() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.running
}

func (o *Orchestrator) loop(ctx, workCtx context.Context, stopped chan struct{}) {
	defer close(stopped)

	ticker := time.NewTicker(o.config.PollInterval)
	defer ticker.Stop()

	for {
		o.DispatchReady(workCtx)
		o.metrics.SetQueueDepth(o.scheduler.Len())

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// DispatchReady starts ready tasks on free workers and returns how many it
// started. A task is only taken from the scheduler once a worker is free.
func (o *Orchestrator) DispatchReady(ctx context.Context) int {
	started := 0
	for {
		if !o.sem.TryAcquire(1) {
			return started
		}
		task, ok := o.scheduler.NextReadyTask()
		if !ok {
			o.sem.Release(1)
			return started
		}

		o.wg.Add(1)
		go func() {
			defer o.wg.Done()
			defer o.sem.Release(1)
			o.process(ctx, task)
		}()
		started++
	}
}

// process runs one dispatched attempt and settles the task in the
// scheduler: Succeeded, Timeout, requeued for retry, or Failed.
func (o *Orchestrator) process(ctx context.Context, task *tasks.ScheduledTask) {
	result, err := o.runTask(ctx, task)

	switch result.Status {
	case tasks.StatusSucceeded:
		o.retry.ResetTask(task.ID)
	case tasks.StatusFailed:
		if at, ok := o.retryAt(task, result, err); ok {
			o.metrics.RecordRetry(string(task.Type))
			if err := o.scheduler.Requeue(task.ID, at, result); err != nil {
				o.logger.Error("failed to requeue task", "task_id", task.ID, "error", err)
			} else {
				return
			}
		} else {
			result.RetryCount = o.retry.RetryCount(task.ID)
		}
	}

	if err := o.scheduler.RecordResult(result); err != nil {
		o.logger.Error("failed to record task result",
			"task_id", task.ID,
			"status", result.Status,
			"error", err,
		)
	}
}

// ExecuteWithRetry runs task synchronously, retrying failed attempts as the
// retry coordinator allows and waiting until each retry is due. It returns
// the last attempt's result. The error is non-nil only when ctx ends while
// waiting for a retry.
func (o *Orchestrator) ExecuteWithRetry(ctx context.Context, task *tasks.ScheduledTask) (*tasks.Result, error) {
	for {
		result, err := o.runTask(ctx, task)

		if result.Status == tasks.StatusSucceeded {
			o.retry.ResetTask(task.ID)
			return result, nil
		}
		if result.Status != tasks.StatusFailed {
			result.RetryCount = o.retry.RetryCount(task.ID)
			return result, nil
		}
		at, ok := o.retryAt(task, result, err)
		if !ok {
			result.RetryCount = o.retry.RetryCount(task.ID)
			return result, nil
		}
		o.metrics.RecordRetry(string(task.Type))

		if err := o.sleepUntil(ctx, at); err != nil {
			return result, err
		}
	}
}

func (o *Orchestrator) sleepUntil(ctx context.Context, at time.Time) error {
	d := at.Sub(o.now())
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// runTask executes a single attempt under the task's deadline and records
// its metrics. The returned error is the handler's error, if any.
func (o *Orchestrator) runTask(ctx context.Context, task *tasks.ScheduledTask) (*tasks.Result, error) {
	ctx = logging.WithTaskType(logging.WithTaskID(ctx, task.ID), string(task.Type))
	start := o.now()
	result := &tasks.Result{
		TaskID:     task.ID,
		Type:       task.Type,
		StartTime:  start,
		RetryCount: o.retry.RetryCount(task.ID),
	}

	finish := func(status tasks.Status, payload map[string]any, err error) (*tasks.Result, error) {
		result.Status = status
		result.EndTime = o.now()
		result.Payload = payload
		if err != nil {
			result.ErrorMessage = err.Error()
		}
		o.metrics.RecordTask(string(task.Type), string(status), result.Duration())

		logger := o.logger.With(
			"task_id", task.ID,
			"type", task.Type,
			"status", status,
			"duration", result.Duration(),
		)
		if err != nil {
			logger.Error("task attempt failed", "error", err, "retry_count", result.RetryCount)
		} else {
			logger.Info("task completed", "payload", payload)
		}
		for _, obs := range o.observers {
			obs.ObserveAttempt(ctx, task, result, err)
		}
		return result, err
	}

	if task.IsExpiredAt(start) {
		return finish(tasks.StatusTimeout, nil, fmt.Errorf("deadline %s passed", task.Deadline.Format(time.RFC3339)))
	}

	h, ok := o.handler(task.Type)
	if !ok {
		return finish(tasks.StatusFailed, nil, audit.NewValidationError("type",
			fmt.Sprintf("no handler registered for %s", task.Type)))
	}

	runCtx, cancel := context.WithTimeout(ctx, task.Deadline.Sub(start))
	defer cancel()

	payload, err := h.Handle(runCtx, task)
	switch {
	case err == nil:
		return finish(tasks.StatusSucceeded, payload, nil)
	case errors.Is(err, context.DeadlineExceeded) && runCtx.Err() != nil && ctx.Err() == nil:
		return finish(tasks.StatusTimeout, payload, err)
	default:
		return finish(tasks.StatusFailed, payload, err)
	}
}

// retryable reports whether a failed attempt may succeed on retry. Invalid
// parameters and guard violations will not.
// retryAt asks the coordinator for another attempt after a failed one and
// returns when it is due. A retry that would start after the task's
// deadline is refused, so the task fails instead of waiting in the queue.
func (o *Orchestrator) retryAt(task *tasks.ScheduledTask, result *tasks.Result, err error) (time.Time, bool) {
	if !retryable(err) || !o.retry.HandleFailure(task, result) {
		return time.Time{}, false
	}
	at, ok := o.retry.NextRetryTime(task.ID)
	if !ok {
		return time.Time{}, false
	}
	if !task.Deadline.IsZero() && at.After(task.Deadline) {
		o.logger.Warn("retry would start after task deadline",
			"task_id", task.ID,
			"next_retry", at,
			"deadline", task.Deadline,
		)
		return time.Time{}, false
	}
	return at, true
}

func retryable(err error) bool {
	return err != nil && !audit.IsValidation(err)
}

// HandlerTypes lists the task types with a registered handler.
func (o *Orchestrator) HandlerTypes() []tasks.TaskType {
	o.hmu.RLock()
	defer o.hmu.RUnlock()

	out := make([]tasks.TaskType, 0, len(o.handlers))
	for t := range o.handlers {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
