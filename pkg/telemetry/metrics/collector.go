package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Config contains metric naming and bucket settings.
type Config struct {
	// Namespace prefixes every metric name.
	// Default: "mercator"
	Namespace string

	// Subsystem follows the namespace in every metric name.
	// Default: "archivist"
	Subsystem string

	// TaskDurationBuckets are the task duration histogram buckets in seconds.
	TaskDurationBuckets []float64

	// ProcessCollectors registers the Go runtime and process collectors.
	ProcessCollectors bool
}

// DefaultTaskDurationBuckets span quick cache refreshes to long monthly
// bundles.
var DefaultTaskDurationBuckets = []float64{0.1, 0.5, 1, 5, 15, 60, 300, 900}

// Collector owns the registry and every archivist metric.
type Collector struct {
	config   Config
	registry *prometheus.Registry

	tasks    *TaskMetrics
	archives *ArchiveMetrics
	cache    *CacheMetrics
}

// NewCollector creates and registers all metrics. If registry is nil a new
// private registry is created.
//
// Example:
//
//	cfg := &metrics.Config{
//		Namespace: "mercator",
//		Subsystem: "archivist",
//	}
//	collector := metrics.NewCollector(cfg, nil)
//	orch, _ := orchestrator.New(ocfg, sched, coord, deps,
//		orchestrator.WithMetrics(collector.Tasks()))
func NewCollector(cfg *Config, registry *prometheus.Registry) *Collector {
	var conf Config
	if cfg != nil {
		conf = *cfg
	}
	if conf.Namespace == "" {
		conf.Namespace = "mercator"
	}
	if conf.Subsystem == "" {
		conf.Subsystem = "archivist"
	}
	if len(conf.TaskDurationBuckets) == 0 {
		conf.TaskDurationBuckets = DefaultTaskDurationBuckets
	}
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	c := &Collector{
		config:   conf,
		registry: registry,
	}
	c.tasks = NewTaskMetrics(&conf, registry)
	c.archives = NewArchiveMetrics(&conf, registry)
	c.cache = NewCacheMetrics(&conf, registry)

	if conf.ProcessCollectors {
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	return c
}

// Tasks returns the task execution metrics.
func (c *Collector) Tasks() *TaskMetrics { return c.tasks }

// Archives returns the archive lifecycle metrics.
func (c *Collector) Archives() *ArchiveMetrics { return c.archives }

// Cache returns the cache metrics.
func (c *Collector) Cache() *CacheMetrics { return c.cache }

// Registry returns the underlying registry.
func (c *Collector) Registry() *prometheus.Registry { return c.registry }

// RegisterInterceptorStats exposes the audit interceptor's counters, read
// from stats on every scrape.
//
// Parameters:
//   - stats: Returns the records written, dropped (queue full or closed)
//     and failed (rejected by the store) so far
//
// Metrics:
//   - interceptor_records_written_total
//   - interceptor_records_dropped_total
//   - interceptor_records_failed_total
//
// Example:
//
//	collector.RegisterInterceptorStats(icpt.Stats)
func (c *Collector) RegisterInterceptorStats(stats func() (written, dropped, failed int64)) {
	counter := func(name, help string, pick func(w, d, f int64) int64) prometheus.CounterFunc {
		return prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: c.config.Namespace,
			Subsystem: c.config.Subsystem,
			Name:      name,
			Help:      help,
		}, func() float64 {
			return float64(pick(stats()))
		})
	}

	c.registry.MustRegister(
		counter("interceptor_records_written_total", "Audit records written by the interceptor",
			func(w, _, _ int64) int64 { return w }),
		counter("interceptor_records_dropped_total", "Audit records dropped before they were queued",
			func(_, d, _ int64) int64 { return d }),
		counter("interceptor_records_failed_total", "Audit records the store rejected",
			func(_, _, f int64) int64 { return f }),
	)
}

// Handler returns an HTTP handler for the Prometheus metrics endpoint.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
		ErrorHandling:     promhttp.ContinueOnError,
	})
}
