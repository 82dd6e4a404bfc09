package archive

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"time"

	"mercator-hq/archivist/pkg/audit"
)

// DeleteOldArchives removes daily archives whose start date precedes before,
// and monthly archives whose whole month does. It returns the number of
// files deleted.
//
// The call is rejected with a ValidationError, deleting nothing, when before
// is newer than now minus the retention floor, or when the primary store
// still holds records older than before. Per-file failures are logged and
// do not abort the sweep.
func (s *Store) DeleteOldArchives(ctx context.Context, before time.Time) (int, error) {
	floor := s.now().Add(-s.config.RetentionFloor)
	if before.After(floor) {
		return 0, audit.NewValidationError("before",
			fmt.Sprintf("cutoff %s is newer than the retention floor %s", before.Format(time.RFC3339), floor.Format(time.RFC3339)))
	}

	if s.counter != nil {
		remaining, err := s.counter.CountBefore(ctx, before)
		if err != nil {
			return 0, fmt.Errorf("failed to count un-archived records: %w", err)
		}
		if remaining > 0 {
			return 0, audit.NewValidationError("before",
				fmt.Sprintf("%d un-archived records older than %s remain in the primary store", remaining, before.Format(time.RFC3339)))
		}
	}

	deleted := 0

	err := walkArchives(s.config.BaseDir, dailyDir, dailySuffix, func(path string, d fs.DirEntry) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		meta, _, _, err := readDaily(path)
		if err != nil {
			s.logger.Warn("skipping unreadable archive", "archive_path", path, "error", err)
			return nil
		}
		if meta.StartDate.Before(before) && s.remove(path) {
			deleted++
		}
		return nil
	})
	if err != nil {
		return deleted, err
	}

	err = walkArchives(s.config.BaseDir, monthlyDir, monthlySuffix, func(path string, d fs.DirEntry) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		meta, _, err := readMonthly(path)
		if err != nil {
			s.logger.Warn("skipping unreadable archive", "archive_path", path, "error", err)
			return nil
		}
		if meta.EndDate.Before(before) && s.remove(path) {
			deleted++
		}
		return nil
	})
	if err != nil {
		return deleted, err
	}

	s.observer.ArchivesDeleted(deleted)
	s.logger.Info("old archives deleted",
		"before", before.Format(time.RFC3339),
		"deleted_count", deleted,
	)

	return deleted, nil
}

func (s *Store) remove(path string) bool {
	release := s.locks.lock(path)
	defer release()

	if err := os.Remove(path); err != nil {
		s.logger.Error("failed to delete archive", "archive_path", path, "error", err)
		return false
	}
	s.logger.Debug("archive deleted", "archive_path", path)
	return true
}
