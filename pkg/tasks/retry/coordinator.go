// Package retry decides whether failed tasks may run again and when.
//
// The Coordinator keeps, per task ID, how many retries have been granted and
// the earliest time the next attempt may start. Delays grow exponentially
// without jitter, delay(n) = min(InitialDelay * Multiplier^(n-1), MaxDelay),
// computed by a cenkalti/backoff ExponentialBackOff per task.
//
// The coordinator only advises. Re-enqueueing a task is the caller's job.
package retry

import (
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"

	"mercator-hq/archivist/pkg/tasks"
)

// Config contains the backoff policy.
type Config struct {
	// InitialDelay is the delay before the first retry.
	// Default: 1 minute
	InitialDelay time.Duration

	// Multiplier scales the delay after every retry.
	// Default: 2
	Multiplier float64

	// MaxDelay caps the delay.
	// Default: 15 minutes
	MaxDelay time.Duration
}

// DefaultConfig returns the default backoff policy.
func DefaultConfig() *Config {
	return &Config{
		InitialDelay: time.Minute,
		Multiplier:   2,
		MaxDelay:     15 * time.Minute,
	}
}

type state struct {
	count   int
	next    time.Time
	backoff *backoff.ExponentialBackOff
}

// Coordinator tracks retry state per task. It is safe for concurrent use.
type Coordinator struct {
	mu     sync.Mutex
	states map[string]*state
	config Config
	now    func() time.Time
	logger *slog.Logger
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) { c.now = now }
}

// NewCoordinator creates a coordinator with the given policy.
func NewCoordinator(cfg *Config, opts ...Option) *Coordinator {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	conf := *cfg
	def := DefaultConfig()
	if conf.InitialDelay <= 0 {
		conf.InitialDelay = def.InitialDelay
	}
	if conf.Multiplier < 1 {
		conf.Multiplier = def.Multiplier
	}
	if conf.MaxDelay < conf.InitialDelay {
		conf.MaxDelay = conf.InitialDelay
	}

	c := &Coordinator{
		states: make(map[string]*state),
		config: conf,
		now:    time.Now,
		logger: slog.Default().With("component", "tasks.retry"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Coordinator) newBackOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.config.InitialDelay
	b.Multiplier = c.config.Multiplier
	b.MaxInterval = c.config.MaxDelay
	b.RandomizationFactor = 0
	b.Reset()
	return b
}

// HandleFailure records a failed attempt of task. It returns false when the
// task has used all of its retries. Otherwise it grants one more retry,
// schedules it after the next backoff delay and returns true. When result is
// non-nil its RetryCount is set to the retries granted so far.
func (c *Coordinator) HandleFailure(task *tasks.ScheduledTask, result *tasks.Result) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	st, ok := c.states[task.ID]
	if !ok {
		st = &state{backoff: c.newBackOff()}
		c.states[task.ID] = st
	}

	if st.count >= task.MaxRetries {
		if result != nil {
			result.RetryCount = st.count
		}
		c.logger.Warn("task retries exhausted",
			"task_id", task.ID,
			"type", task.Type,
			"retry_count", st.count,
			"max_retries", task.MaxRetries,
		)
		return false
	}

	st.count++
	delay := min(st.backoff.NextBackOff(), c.config.MaxDelay)
	st.next = c.now().Add(delay)

	if result != nil {
		result.RetryCount = st.count
	}

	msg := ""
	if result != nil {
		msg = result.ErrorMessage
	}
	c.logger.Info("task retry scheduled",
		"task_id", task.ID,
		"type", task.Type,
		"retry_count", st.count,
		"delay", delay,
		"next_retry", st.next,
		"error", msg,
	)
	return true
}

// CanRetry reports whether task has retries left and has not expired.
func (c *Coordinator) CanRetry(task *tasks.ScheduledTask) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	count := 0
	if st, ok := c.states[task.ID]; ok {
		count = st.count
	}
	return count < task.MaxRetries && !task.IsExpiredAt(c.now())
}

// IsWaitingForRetry reports whether the task's next retry time is still in
// the future.
func (c *Coordinator) IsWaitingForRetry(taskID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	st, ok := c.states[taskID]
	return ok && c.now().Before(st.next)
}

// NextRetryTime returns when the task may next be retried.
func (c *Coordinator) NextRetryTime(taskID string) (time.Time, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	st, ok := c.states[taskID]
	if !ok || st.next.IsZero() {
		return time.Time{}, false
	}
	return st.next, true
}

// RetryCount returns the number of retries granted to the task.
func (c *Coordinator) RetryCount(taskID string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	if st, ok := c.states[taskID]; ok {
		return st.count
	}
	return 0
}

// ResetTask clears the task's retry state, typically after a success.
func (c *Coordinator) ResetTask(taskID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.states, taskID)
}

// ResetAll clears all retry state.
func (c *Coordinator) ResetAll() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.states = make(map[string]*state)
}

// Len returns the number of tasks with retry state.
func (c *Coordinator) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.states)
}
