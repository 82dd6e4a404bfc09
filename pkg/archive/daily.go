package archive

import (
	"context"
	"errors"
	"io/fs"
	"sort"
	"time"

	"mercator-hq/archivist/pkg/audit"
	"mercator-hq/archivist/pkg/audit/codec"
)

// CreateDailyArchive writes the daily archive for date and returns the
// number of records it added. An empty record list is a no-op that returns
// 0 and writes nothing.
//
// If an archive for date already exists, its records are merged with the
// new ones (records with the same ID are kept once) and the file is replaced
// atomically, so re-running the same day is idempotent.
func (s *Store) CreateDailyArchive(ctx context.Context, date time.Time, records []*audit.Record) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	path := s.DailyArchivePath(date)
	release := s.locks.lock(path)
	defer release()

	all := records
	added := len(records)
	existing, err := s.loadExisting(path)
	if err != nil {
		return 0, err
	}
	if len(existing) > 0 {
		all = mergeRecords(existing, records)
		added = len(all) - len(existing)
		s.logger.Info("merging into existing daily archive",
			"archive_path", path,
			"existing_count", len(existing),
			"record_count", len(all),
		)
	}

	logs, err := codec.Serialize(all)
	if err != nil {
		return 0, err
	}

	start := startOfDay(date, s.config.Location)
	meta := &Metadata{
		ArchiveType:   codec.ArchiveDaily,
		CreatedAt:     s.now(),
		StartDate:     start,
		EndDate:       endOfDay(start),
		RecordCount:   len(all),
		FileSizeBytes: int64(len(logs)),
		Checksum:      codec.Checksum(logs),
		Version:       codec.FormatVersion,
	}

	envelope, err := codec.EncodeEnvelope(meta, logs)
	if err != nil {
		return 0, err
	}
	compressed, err := codec.Compress(envelope)
	if err != nil {
		return 0, err
	}
	if err := writeFile(path, compressed); err != nil {
		return 0, err
	}

	s.observer.ArchiveCreated(codec.ArchiveDaily, added)
	s.logger.Info("daily archive created",
		"archive_path", path,
		"date", start.Format("2006-01-02"),
		"record_count", len(all),
		"added_count", added,
		"compressed_bytes", len(compressed),
	)

	return added, nil
}

// loadExisting returns the records of an existing daily archive, or nil when
// there is none. A corrupt existing archive is an error: it is never
// silently overwritten.
func (s *Store) loadExisting(path string) ([]*audit.Record, error) {
	meta, logs, _, err := readDaily(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if !codec.VerifyChecksum(logs, meta.Checksum) {
		return nil, audit.NewFormatError(path, errors.New("existing archive failed checksum verification"))
	}
	return codec.Deserialize(logs)
}

func mergeRecords(existing, incoming []*audit.Record) []*audit.Record {
	out := make([]*audit.Record, 0, len(existing)+len(incoming))
	seen := make(map[string]bool, len(existing))
	for _, r := range existing {
		if r.ID != "" {
			seen[r.ID] = true
		}
		out = append(out, r)
	}

	for _, r := range incoming {
		if r.ID != "" {
			if seen[r.ID] {
				continue
			}
			seen[r.ID] = true
		} else if containsEqual(out, r) {
			continue
		}
		out = append(out, r)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

func containsEqual(records []*audit.Record, r *audit.Record) bool {
	for _, o := range records {
		if o.Equal(r) {
			return true
		}
	}
	return false
}

// VerifyArchive reports whether the daily archive for date is intact.
// It returns false when the file is absent, lacks its metadata or logs
// section, or its checksum does not match. Unreadable or corrupt files
// yield an IOError, CompressionError or FormatError.
func (s *Store) VerifyArchive(ctx context.Context, date time.Time) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	return s.verifyPath(s.DailyArchivePath(date))
}

func (s *Store) verifyPath(path string) (bool, error) {
	ok, _, err := s.verifyFile(path)
	return ok, err
}

// verifyFile verifies a daily archive and returns its raw bytes when valid.
func (s *Store) verifyFile(path string) (bool, []byte, error) {
	meta, logs, raw, err := readDaily(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return false, nil, nil
	case errors.Is(err, codec.ErrMissingSection):
		s.logger.Warn("archive is missing a section", "archive_path", path, "error", err)
		s.observer.ArchiveVerified(false)
		return false, nil, nil
	case err != nil:
		return false, nil, err
	}

	ok := codec.VerifyChecksum(logs, meta.Checksum)
	s.observer.ArchiveVerified(ok)
	if !ok {
		s.logger.Warn("archive checksum mismatch",
			"archive_path", path,
			"expected", meta.Checksum,
		)
		return false, nil, nil
	}
	return true, raw, nil
}
