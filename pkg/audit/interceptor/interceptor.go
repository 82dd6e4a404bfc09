package interceptor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"mercator-hq/archivist/pkg/audit"
)

// ErrClosed is returned by Observe after Close.
var ErrClosed = errors.New("audit interceptor closed")

// Config contains configuration for the interceptor.
type Config struct {
	// Enabled enables recording. A disabled interceptor still runs wrapped
	// functions.
	Enabled bool

	// AsyncBuffer is the size of the async write channel buffer.
	// Default: 1000
	AsyncBuffer int

	// WriteTimeout bounds both enqueueing into a full buffer and each store
	// write.
	// Default: 5 seconds
	WriteTimeout time.Duration

	// MaxDescriptionLength truncates record descriptions.
	// Default: 500
	MaxDescriptionLength int
}

// DefaultConfig returns the default interceptor configuration.
func DefaultConfig() *Config {
	return &Config{
		Enabled:              true,
		AsyncBuffer:          1000,
		WriteTimeout:         5 * time.Second,
		MaxDescriptionLength: 500,
	}
}

// Writer persists records. audit.Store satisfies it.
type Writer interface {
	Save(ctx context.Context, record *audit.Record) (*audit.Record, error)
}

// Call describes one intercepted invocation.
type Call struct {
	// Method is the intercepted method name, e.g. "UserService.DeleteUser".
	Method string

	// EventType overrides resolution from Method when set.
	EventType string

	// Severity overrides the event kind's default severity when set.
	Severity audit.Severity

	UserID      string
	TargetID    string
	Description string

	// Time is when the call happened. Default: now.
	Time time.Time
}

type userKey struct{}

// WithUser returns a context carrying the acting user for intercepted calls.
func WithUser(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userKey{}, userID)
}

// UserFromContext returns the acting user set by WithUser.
func UserFromContext(ctx context.Context) (string, bool) {
	u, ok := ctx.Value(userKey{}).(string)
	return u, ok && u != ""
}

// Interceptor turns intercepted calls into audit records.
type Interceptor struct {
	writer   Writer
	registry *audit.EventRegistry
	config   *Config
	records  chan *audit.Record
	done     chan struct{}
	wg       sync.WaitGroup
	logger   *slog.Logger

	mu     sync.RWMutex
	closed bool
	once   sync.Once

	written atomic.Int64
	dropped atomic.Int64
	failed  atomic.Int64
}

// New creates an interceptor writing to writer. A nil registry uses
// audit.DefaultEventRegistry and a nil config uses DefaultConfig.
func New(writer Writer, registry *audit.EventRegistry, config *Config) *Interceptor {
	if registry == nil {
		registry = audit.DefaultEventRegistry()
	}
	if config == nil {
		config = DefaultConfig()
	}
	cfg := *config
	def := DefaultConfig()
	if cfg.AsyncBuffer <= 0 {
		cfg.AsyncBuffer = def.AsyncBuffer
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = def.WriteTimeout
	}
	if cfg.MaxDescriptionLength <= 0 {
		cfg.MaxDescriptionLength = def.MaxDescriptionLength
	}

	i := &Interceptor{
		writer:   writer,
		registry: registry,
		config:   &cfg,
		records:  make(chan *audit.Record, cfg.AsyncBuffer),
		done:     make(chan struct{}),
		logger:   slog.Default().With("component", "audit.interceptor"),
	}

	i.wg.Add(1)
	go i.worker()

	i.logger.Info("audit interceptor initialized",
		"enabled", cfg.Enabled,
		"async_buffer", cfg.AsyncBuffer,
		"write_timeout", cfg.WriteTimeout,
	)
	return i
}

// Wrap returns fn instrumented so that every invocation is recorded under
// method once fn returns. fn's error is returned unchanged; recording
// failures are logged, never returned.
func (i *Interceptor) Wrap(method string, fn func(ctx context.Context) error) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		err := fn(ctx)
		if obsErr := i.Observe(ctx, Call{Method: method, Time: time.Now()}, err); obsErr != nil {
			i.logger.Warn("failed to record intercepted call", "method", method, "error", obsErr)
		}
		return err
	}
}

// Intercept runs fn and records the call, returning fn's results.
func Intercept[T any](ctx context.Context, i *Interceptor, call Call, fn func(ctx context.Context) (T, error)) (T, error) {
	v, err := fn(ctx)
	if obsErr := i.Observe(ctx, call, err); obsErr != nil {
		i.logger.Warn("failed to record intercepted call", "method", call.Method, "error", obsErr)
	}
	return v, err
}

// Observe records a finished call whose outcome was callErr. It returns
// once the record is queued, or with an error when the buffer stays full
// for WriteTimeout or the interceptor is closed.
func (i *Interceptor) Observe(ctx context.Context, call Call, callErr error) error {
	if !i.config.Enabled {
		return nil
	}

	record, err := i.BuildRecord(ctx, call, callErr)
	if err != nil {
		return err
	}

	i.mu.RLock()
	defer i.mu.RUnlock()
	if i.closed {
		i.dropped.Add(1)
		return ErrClosed
	}

	timer := time.NewTimer(i.config.WriteTimeout)
	defer timer.Stop()

	select {
	case i.records <- record:
		i.logger.Debug("audit record enqueued", "event_type", record.EventType, "method", call.Method)
		return nil
	case <-timer.C:
		i.dropped.Add(1)
		i.logger.Error("audit record channel full, dropping record",
			"event_type", record.EventType,
			"method", call.Method,
			"channel_capacity", i.config.AsyncBuffer,
		)
		return fmt.Errorf("enqueue audit record: %w", context.DeadlineExceeded)
	case <-ctx.Done():
		i.dropped.Add(1)
		return ctx.Err()
	}
}

// BuildRecord synthesizes the record for a call without queueing it.
func (i *Interceptor) BuildRecord(ctx context.Context, call Call, callErr error) (*audit.Record, error) {
	name := call.EventType
	if name == "" {
		name = call.Method
	}
	kind, known := i.registry.Lookup(name)
	if !known {
		kind = i.registry.Fallback()
	}

	severity := kind.Severity
	if call.Severity != "" {
		severity = call.Severity
	}
	if callErr != nil && severityRank(severity) < severityRank(audit.SeverityHigh) {
		severity = audit.SeverityHigh
	}

	user := call.UserID
	if user == "" {
		user, _ = UserFromContext(ctx)
	}

	desc := call.Description
	if !known && call.Method != "" {
		desc = joinDescription("method "+call.Method, desc)
	}
	if callErr != nil {
		desc = joinDescription(desc, "failed: "+callErr.Error())
	}

	at := call.Time
	if at.IsZero() {
		at = time.Now()
	}

	return audit.NewRecord(kind.Name,
		audit.WithSeverity(severity),
		audit.WithUser(user),
		audit.WithTarget(call.TargetID),
		audit.WithDescription(truncate(desc, i.config.MaxDescriptionLength)),
		audit.WithCreatedAt(at),
	)
}

// Stats reports how many records were written, dropped before queueing,
// and failed in the store.
func (i *Interceptor) Stats() (written, dropped, failed int64) {
	return i.written.Load(), i.dropped.Load(), i.failed.Load()
}

// Close stops accepting records, drains the buffer and waits for the worker.
func (i *Interceptor) Close() error {
	i.once.Do(func() {
		i.logger.Info("shutting down audit interceptor")

		i.mu.Lock()
		i.closed = true
		i.mu.Unlock()

		close(i.done)
		i.wg.Wait()

		i.logger.Info("audit interceptor shut down complete",
			"written", i.written.Load(),
			"dropped", i.dropped.Load(),
			"failed", i.failed.Load(),
		)
	})
	return nil
}

func (i *Interceptor) worker() {
	defer i.wg.Done()

	for {
		select {
		case record := <-i.records:
			i.write(record)
		case <-i.done:
			i.logger.Info("draining audit channel before shutdown", "pending_count", len(i.records))
			for {
				select {
				case record := <-i.records:
					i.write(record)
				default:
					return
				}
			}
		}
	}
}

func (i *Interceptor) write(record *audit.Record) {
	ctx, cancel := context.WithTimeout(context.Background(), i.config.WriteTimeout)
	defer cancel()

	start := time.Now()
	saved, err := i.writer.Save(ctx, record)
	if err != nil {
		i.failed.Add(1)
		i.logger.Error("failed to store audit record",
			"event_type", record.EventType,
			"error", err,
		)
		return
	}
	i.written.Add(1)

	duration := time.Since(start)
	i.logger.Debug("audit recorded",
		"record_id", saved.ID,
		"event_type", saved.EventType,
		"duration_ms", duration.Milliseconds(),
	)
	if duration > i.config.WriteTimeout/2 {
		i.logger.Warn("slow audit write",
			"record_id", saved.ID,
			"duration_ms", duration.Milliseconds(),
		)
	}
}

func severityRank(s audit.Severity) int {
	switch s {
	case audit.SeverityLow:
		return 0
	case audit.SeverityMedium:
		return 1
	case audit.SeverityHigh:
		return 2
	case audit.SeverityCritical:
		return 3
	}
	return 1
}

func joinDescription(a, b string) string {
	switch {
	case a == "":
		return b
	case b == "":
		return a
	}
	return a + "; " + b
}

// truncate shortens s to at most n bytes without splitting a UTF-8 sequence.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	cut := n
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
