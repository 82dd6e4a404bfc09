package archive

import (
	"context"
	"io/fs"
	"time"
)

// Statistics summarizes the daily archive tree.
type Statistics struct {
	TotalFiles       int       `json:"totalFiles"`
	TotalRecords     int64     `json:"totalRecords"`
	TotalBytes       int64     `json:"totalBytes"`
	CompressionRatio float64   `json:"compressionRatio"`
	Oldest           time.Time `json:"oldest,omitempty"`
	Newest           time.Time `json:"newest,omitempty"`
}

// CalculateStatistics walks the daily tree. File sizes are summed for every
// file; record counts and dates come from metadata, and files whose
// metadata cannot be read contribute only their size.
//
// CompressionRatio is an estimate: TotalRecords times the assumed average
// record size, divided by TotalBytes (0 when there are no bytes).
func (s *Store) CalculateStatistics(ctx context.Context) (*Statistics, error) {
	stats := &Statistics{}

	err := walkArchives(s.config.BaseDir, dailyDir, dailySuffix, func(path string, d fs.DirEntry) error {
		if err := ctx.Err(); err != nil {
			return err
		}

		info, err := d.Info()
		if err != nil {
			s.logger.Warn("skipping archive", "archive_path", path, "error", err)
			return nil
		}
		stats.TotalFiles++
		stats.TotalBytes += info.Size()

		meta, _, _, err := readDaily(path)
		if err != nil {
			s.logger.Warn("skipping archive metadata", "archive_path", path, "error", err)
			return nil
		}
		stats.TotalRecords += int64(meta.RecordCount)
		if stats.Oldest.IsZero() || meta.StartDate.Before(stats.Oldest) {
			stats.Oldest = meta.StartDate
		}
		if meta.StartDate.After(stats.Newest) {
			stats.Newest = meta.StartDate
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if stats.TotalBytes > 0 {
		stats.CompressionRatio = float64(stats.TotalRecords*int64(s.config.AssumedRecordSize)) / float64(stats.TotalBytes)
	}

	return stats, nil
}
