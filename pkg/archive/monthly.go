package archive

import (
	"context"
	"os"
	"path/filepath"

	"mercator-hq/archivist/pkg/audit"
	"mercator-hq/archivist/pkg/audit/codec"
)

// CreateMonthlyArchive bundles the verified daily archives among
// dailyPaths into the monthly archive for ym and returns the number of days
// included. Missing or invalid days are skipped with a warning. Nothing is
// written when no day qualifies.
//
// Each verified day is copied into a temporary directory and the bundle is
// built from those copies, so the checksum always covers the bundled bytes
// even if a day is rewritten meanwhile. The directory is removed on every
// exit path.
func (s *Store) CreateMonthlyArchive(ctx context.Context, ym YearMonth, dailyPaths []string) (int, error) {
	if len(dailyPaths) == 0 {
		return 0, nil
	}

	workDir, err := os.MkdirTemp("", "archivist-monthly-"+ym.Compact()+"-*")
	if err != nil {
		return 0, audit.NewIOError(os.TempDir(), "mkdir_temp", err)
	}
	defer os.RemoveAll(workDir)

	var (
		included []string
		blobs    [][]byte
		total    int64
	)
	for _, path := range dailyPaths {
		if err := ctx.Err(); err != nil {
			return 0, err
		}

		ok, raw, err := s.verifyFile(path)
		if err != nil {
			s.logger.Warn("skipping unreadable daily archive", "archive_path", path, "error", err)
			continue
		}
		if !ok {
			if _, statErr := os.Stat(path); statErr == nil {
				s.logger.Warn("skipping invalid daily archive", "archive_path", path)
			} else {
				s.logger.Debug("daily archive missing", "archive_path", path)
			}
			continue
		}

		copyPath := filepath.Join(workDir, filepath.Base(path))
		if err := os.WriteFile(copyPath, raw, 0o640); err != nil {
			return 0, audit.NewIOError(copyPath, "write", err)
		}

		included = append(included, copyPath)
		blobs = append(blobs, raw)
		total += int64(len(raw))
	}

	if len(included) == 0 {
		s.logger.Warn("no valid daily archives for month", "year_month", ym.String())
		return 0, nil
	}

	first := ym.First(s.config.Location)
	meta := &Metadata{
		ArchiveType:   codec.ArchiveMonthly,
		CreatedAt:     s.now(),
		StartDate:     first,
		EndDate:       endOfDay(first.AddDate(0, 0, ym.Days()-1)),
		RecordCount:   len(included),
		FileSizeBytes: total,
		Checksum:      codec.ChecksumAll(blobs...),
		Version:       codec.FormatVersion,
	}

	metaBytes, err := codec.EncodeMetadata(meta)
	if err != nil {
		return 0, err
	}
	metaPath := filepath.Join(workDir, metadataFile)
	if err := os.WriteFile(metaPath, metaBytes, 0o644); err != nil {
		return 0, audit.NewIOError(metaPath, "write", err)
	}

	tarBytes, err := codec.Bundle(append(included, metaPath))
	if err != nil {
		return 0, err
	}
	compressed, err := codec.Compress(tarBytes)
	if err != nil {
		return 0, err
	}

	path := s.MonthlyArchivePath(ym)
	release := s.locks.lock(path)
	defer release()

	if err := writeFile(path, compressed); err != nil {
		return 0, err
	}

	s.observer.ArchiveCreated(codec.ArchiveMonthly, len(included))
	s.logger.Info("monthly archive created",
		"archive_path", path,
		"year_month", ym.String(),
		"day_count", len(included),
		"skipped_count", len(dailyPaths)-len(included),
		"compressed_bytes", len(compressed),
	)

	return len(included), nil
}

// VerifyMonthlyArchive reports whether the monthly archive for ym is intact:
// every bundled daily file must verify and the concatenation checksum must
// match. A missing file yields false.
func (s *Store) VerifyMonthlyArchive(ctx context.Context, ym YearMonth) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	path := s.MonthlyArchivePath(ym)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return false, nil
	}

	meta, dailies, err := readMonthly(path)
	if err != nil {
		return false, err
	}

	blobs := make([][]byte, 0, len(dailies))
	for _, f := range dailies {
		dmeta, logs, err := decodeDaily(f.Data)
		if err != nil || !codec.VerifyChecksum(logs, dmeta.Checksum) {
			s.logger.Warn("bundled daily archive failed verification",
				"archive_path", path, "entry", f.Name, "error", err)
			s.observer.ArchiveVerified(false)
			return false, nil
		}
		blobs = append(blobs, f.Data)
	}

	ok := len(dailies) == meta.RecordCount && codec.ChecksumAll(blobs...) == meta.Checksum
	s.observer.ArchiveVerified(ok)
	return ok, nil
}

// decodeDaily parses the bytes of a daily archive held in memory.
func decodeDaily(raw []byte) (*Metadata, []byte, error) {
	plain, err := codec.Decompress(raw)
	if err != nil {
		return nil, nil, err
	}
	return codec.DecodeEnvelope(plain)
}
