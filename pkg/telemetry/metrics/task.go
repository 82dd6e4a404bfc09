package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// TaskMetrics tracks scheduled task executions.
//
// Metrics:
//   - tasks_total{type,status}: finished executions
//   - task_duration_seconds{type}: execution time including retries
//   - task_retries_total{type}: retries granted
//   - task_queue_depth: tasks waiting in the scheduler
type TaskMetrics struct {
	// Finished executions by type and final status
	executionsTotal *prometheus.CounterVec

	// Execution time histogram
	duration *prometheus.HistogramVec

	// Retries granted by the retry coordinator
	retriesTotal *prometheus.CounterVec

	// Tasks waiting in the scheduler queue
	queueDepth prometheus.Gauge
}

// NewTaskMetrics creates and registers task metrics with the provided registry.
func NewTaskMetrics(cfg *Config, registry *prometheus.Registry) *TaskMetrics {
	tm := &TaskMetrics{
		executionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "tasks_total",
				Help:      "Total number of finished task executions",
			},
			[]string{"type", "status"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "task_duration_seconds",
				Help:      "Task execution duration in seconds",
				Buckets:   cfg.TaskDurationBuckets,
			},
			[]string{"type"},
		),
		retriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "task_retries_total",
				Help:      "Total number of task retries granted",
			},
			[]string{"type"},
		),
		queueDepth: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "task_queue_depth",
				Help:      "Number of tasks waiting in the scheduler queue",
			},
		),
	}

	registry.MustRegister(tm.executionsTotal, tm.duration, tm.retriesTotal, tm.queueDepth)
	return tm
}

// RecordTask records one finished task attempt.
//
// Parameters:
//   - taskType: Task type (DAILY_ARCHIVE, MONTHLY_ARCHIVE, CLEANUP, CACHE_REFRESH)
//   - status: Attempt outcome (SUCCEEDED, FAILED, TIMEOUT)
//   - duration: Wall time of the attempt
//
// Example:
//
//	tm.RecordTask("DAILY_ARCHIVE", "SUCCEEDED", 1200*time.Millisecond)
func (tm *TaskMetrics) RecordTask(taskType, status string, duration time.Duration) {
	tm.executionsTotal.WithLabelValues(taskType, status).Inc()
	tm.duration.WithLabelValues(taskType).Observe(duration.Seconds())
}

// RecordRetry records a retry granted after a failed attempt.
//
// Parameters:
//   - taskType: Task type of the failed attempt
//
// Example:
//
//	tm.RecordRetry("CLEANUP")
func (tm *TaskMetrics) RecordRetry(taskType string) {
	tm.retriesTotal.WithLabelValues(taskType).Inc()
}

// SetQueueDepth sets the number of queued tasks. The dispatch loop calls
// it on every poll.
//
// Example:
//
//	tm.SetQueueDepth(scheduler.Len())
func (tm *TaskMetrics) SetQueueDepth(depth int) {
	tm.queueDepth.Set(float64(depth))
}
