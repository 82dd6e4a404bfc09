// Package cache provides a bounded, time-expiring read-through cache of
// audit records keyed by ID.
//
// Entries expire a fixed TTL after they are written and the least recently
// used entry is evicted once MaxEntries is reached (hashicorp/golang-lru
// expirable LRU). Concurrent misses for the same ID are collapsed into one
// primary-store load with singleflight, and loads run through a circuit
// breaker so a failing primary store is not hammered by read traffic.
//
// VerifyConsistency re-fetches every cached ID and repairs entries that
// drifted from the primary store; it runs alongside reads and repairs with
// puts rather than locking the cache. ForceRefresh clears and reloads the
// whole store and is meant for manual recovery.
package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/sony/gobreaker/v2"
	"golang.org/x/sync/singleflight"

	"mercator-hq/archivist/pkg/audit"
)

// Name labels this cache in metrics.
const Name = "audit_records"

// Loader is the primary-store surface the cache reads through.
type Loader interface {
	FindByID(ctx context.Context, id string) (*audit.Record, error)
	FindAll(ctx context.Context) ([]*audit.Record, error)
}

// Metrics receives cache events.
type Metrics interface {
	RecordHit(cacheName string)
	RecordMiss(cacheName string)
	RecordEviction(cacheName string)
	UpdateSize(cacheName string, size int)
}

type nopMetrics struct{}

func (nopMetrics) RecordHit(string)       {}
func (nopMetrics) RecordMiss(string)      {}
func (nopMetrics) RecordEviction(string)  {}
func (nopMetrics) UpdateSize(string, int) {}

// Config contains configuration for the record cache.
type Config struct {
	// MaxEntries bounds the number of cached records.
	// Default: 1000
	MaxEntries int

	// TTL is how long an entry lives after it is written.
	// Default: 15 minutes
	TTL time.Duration

	// BreakerFailures is the number of consecutive load failures that opens
	// the circuit breaker.
	// Default: 5
	BreakerFailures uint32

	// BreakerTimeout is how long the breaker stays open before probing.
	// Default: 30 seconds
	BreakerTimeout time.Duration
}

// DefaultConfig returns the default cache configuration.
func DefaultConfig() *Config {
	return &Config{
		MaxEntries:      1000,
		TTL:             15 * time.Minute,
		BreakerFailures: 5,
		BreakerTimeout:  30 * time.Second,
	}
}

// RecordCache is a read-through cache over the primary store.
type RecordCache struct {
	lru     *expirable.LRU[string, *audit.Record]
	loader  Loader
	group   singleflight.Group
	breaker *gobreaker.CircuitBreaker[*audit.Record]
	metrics Metrics
	logger  *slog.Logger
}

// Option configures a RecordCache.
type Option func(*RecordCache)

// WithMetrics installs a metrics sink.
func WithMetrics(m Metrics) Option {
	return func(c *RecordCache) {
		if m != nil {
			c.metrics = m
		}
	}
}

// New creates a record cache reading through loader.
func New(loader Loader, cfg *Config, opts ...Option) *RecordCache {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	cfgCopy := *cfg
	cfg = &cfgCopy
	def := DefaultConfig()
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = def.MaxEntries
	}
	if cfg.TTL <= 0 {
		cfg.TTL = def.TTL
	}
	if cfg.BreakerFailures == 0 {
		cfg.BreakerFailures = def.BreakerFailures
	}
	if cfg.BreakerTimeout <= 0 {
		cfg.BreakerTimeout = def.BreakerTimeout
	}

	logger := slog.Default().With("component", "audit.cache")

	c := &RecordCache{
		lru:     expirable.NewLRU[string, *audit.Record](cfg.MaxEntries, nil, cfg.TTL),
		loader:  loader,
		metrics: nopMetrics{},
		logger:  logger,
	}
	c.breaker = gobreaker.NewCircuitBreaker[*audit.Record](gobreaker.Settings{
		Name:    "audit-cache-loader",
		Timeout: cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.BreakerFailures
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, audit.ErrNotFound)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("cache loader breaker state changed",
				"breaker", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
	})

	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the record for id, loading it from the primary store on a
// miss. found is false when the record does not exist.
func (c *RecordCache) Get(ctx context.Context, id string) (rec *audit.Record, found bool, err error) {
	if cached, ok := c.lru.Get(id); ok {
		c.metrics.RecordHit(Name)
		return cached.Clone(), true, nil
	}
	c.metrics.RecordMiss(Name)

	v, err, _ := c.group.Do(id, func() (any, error) {
		return c.breaker.Execute(func() (*audit.Record, error) {
			return c.loader.FindByID(ctx, id)
		})
	})
	if errors.Is(err, audit.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to load record %s: %w", id, err)
	}

	loaded, _ := v.(*audit.Record)
	if loaded == nil {
		return nil, false, nil
	}
	c.Put(id, loaded)
	return loaded.Clone(), true, nil
}

// Put stores a copy of record under id.
func (c *RecordCache) Put(id string, record *audit.Record) {
	if record == nil {
		return
	}
	if evicted := c.lru.Add(id, record.Clone()); evicted {
		c.metrics.RecordEviction(Name)
	}
	c.metrics.UpdateSize(Name, c.lru.Len())
}

// Invalidate removes id from the cache.
func (c *RecordCache) Invalidate(id string) {
	c.lru.Remove(id)
	c.metrics.UpdateSize(Name, c.lru.Len())
}

// InvalidateAll empties the cache.
func (c *RecordCache) InvalidateAll() {
	c.lru.Purge()
	c.metrics.UpdateSize(Name, 0)
}

// Len returns the number of live entries.
func (c *RecordCache) Len() int {
	return c.lru.Len()
}

// VerifyReport summarizes a consistency check.
type VerifyReport struct {
	Checked  int `json:"checked"`
	Repaired int `json:"repaired"`
	Removed  int `json:"removed"`
	Failed   int `json:"failed"`
}

// VerifyConsistency re-fetches every cached record from the primary store.
// Entries that differ are overwritten, entries whose record no longer
// exists are removed, and per-ID load failures are logged and counted.
func (c *RecordCache) VerifyConsistency(ctx context.Context) (*VerifyReport, error) {
	report := &VerifyReport{}

	for _, id := range c.lru.Keys() {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		cached, ok := c.lru.Peek(id)
		if !ok {
			continue
		}
		report.Checked++

		fresh, err := c.loader.FindByID(ctx, id)
		switch {
		case errors.Is(err, audit.ErrNotFound):
			c.lru.Remove(id)
			report.Removed++
		case err != nil:
			c.logger.Warn("consistency check failed to load record", "record_id", id, "error", err)
			report.Failed++
		case !fresh.Equal(cached):
			c.lru.Add(id, fresh.Clone())
			report.Repaired++
		}
	}

	c.metrics.UpdateSize(Name, c.lru.Len())
	c.logger.Info("cache consistency verified",
		"checked", report.Checked,
		"repaired", report.Repaired,
		"removed", report.Removed,
		"failed", report.Failed,
	)
	return report, nil
}

// ForceRefresh clears the cache and reloads it from the primary store. It
// returns the number of records loaded; when the store holds more than
// MaxEntries records, only the most recently loaded ones stay cached.
func (c *RecordCache) ForceRefresh(ctx context.Context) (int, error) {
	c.lru.Purge()

	records, err := c.loader.FindAll(ctx)
	if err != nil {
		c.metrics.UpdateSize(Name, 0)
		return 0, fmt.Errorf("failed to reload cache: %w", err)
	}

	for _, r := range records {
		if r.ID == "" {
			continue
		}
		c.lru.Add(r.ID, r.Clone())
	}

	c.metrics.UpdateSize(Name, c.lru.Len())
	c.logger.Info("cache refreshed", "record_count", len(records), "cached", c.lru.Len())
	return len(records), nil
}
