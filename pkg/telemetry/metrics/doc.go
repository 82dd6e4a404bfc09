// Package metrics exposes archivist runtime metrics in Prometheus format.
//
// A Collector owns a private prometheus.Registry and three metric groups,
// each satisfying the event interface of the component it observes:
//
//   - TaskMetrics implements orchestrator.Metrics
//     (tasks_total, task_duration_seconds, task_retries_total,
//     task_queue_depth)
//   - ArchiveMetrics implements archive.Observer
//     (archives_created_total, archived_records_total,
//     archive_files_deleted_total, archive_verify_total)
//   - CacheMetrics implements cache.Metrics
//     (cache_hits_total, cache_misses_total, cache_entries,
//     cache_evictions_total)
//
// Interceptor counters are read at scrape time through
// RegisterInterceptorStats. Handler serves the registry for scraping.
//
//	collector := metrics.NewCollector(&metrics.Config{Namespace: "mercator"}, nil)
//	orch, _ := orchestrator.New(cfg, sched, coord, deps,
//	    orchestrator.WithMetrics(collector.Tasks()))
//	mux.Handle("/metrics", collector.Handler())
package metrics
