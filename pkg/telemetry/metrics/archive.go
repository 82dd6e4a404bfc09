package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"mercator-hq/archivist/pkg/audit/codec"
)

// ArchiveMetrics tracks archive files written, deleted and verified.
//
// Metrics:
//   - archives_created_total{archive_type}: archive files written
//   - archived_records_total{archive_type}: records added to daily archives,
//     days bundled into monthly archives
//   - archive_files_deleted_total: files removed by retention cleanup
//   - archive_verify_total{result}: verification outcomes (valid, invalid)
type ArchiveMetrics struct {
	// Archive files written
	createdTotal *prometheus.CounterVec

	// Records (daily) or days (monthly) archived
	recordsTotal *prometheus.CounterVec

	// Files removed by retention cleanup
	deletedTotal prometheus.Counter

	// Verification outcomes
	verificationsTotal *prometheus.CounterVec
}

// NewArchiveMetrics creates and registers archive metrics with the provided
// registry.
func NewArchiveMetrics(cfg *Config, registry *prometheus.Registry) *ArchiveMetrics {
	am := &ArchiveMetrics{
		createdTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "archives_created_total",
				Help:      "Total number of archive files written",
			},
			[]string{"archive_type"},
		),
		recordsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "archived_records_total",
				Help:      "Total number of records written to archive files",
			},
			[]string{"archive_type"},
		),
		deletedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "archive_files_deleted_total",
				Help:      "Total number of archive files removed by retention cleanup",
			},
		),
		verificationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "archive_verify_total",
				Help:      "Total number of archive verifications by outcome",
			},
			[]string{"result"},
		),
	}

	registry.MustRegister(am.createdTotal, am.recordsTotal, am.deletedTotal, am.verificationsTotal)
	return am
}

// ArchiveCreated records a written archive.
//
// Parameters:
//   - archiveType: DAILY or MONTHLY
//   - count: Records newly added for a daily archive, days bundled for a
//     monthly one
//
// Example:
//
//	am.ArchiveCreated(codec.ArchiveDaily, 120)
func (am *ArchiveMetrics) ArchiveCreated(archiveType codec.ArchiveType, count int) {
	am.createdTotal.WithLabelValues(string(archiveType)).Inc()
	am.recordsTotal.WithLabelValues(string(archiveType)).Add(float64(count))
}

// ArchivesDeleted records archive files removed by one cleanup run.
//
// Example:
//
//	am.ArchivesDeleted(3)
func (am *ArchiveMetrics) ArchivesDeleted(count int) {
	am.deletedTotal.Add(float64(count))
}

// ArchiveVerified records one verification outcome. Archives with a
// missing section or a checksum mismatch count as invalid.
//
// Example:
//
//	am.ArchiveVerified(true)
func (am *ArchiveMetrics) ArchiveVerified(valid bool) {
	result := "valid"
	if !valid {
		result = "invalid"
	}
	am.verificationsTotal.WithLabelValues(result).Inc()
}
