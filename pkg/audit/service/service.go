package service

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"mercator-hq/archivist/pkg/archive"
	"mercator-hq/archivist/pkg/audit"
	"mercator-hq/archivist/pkg/audit/cache"
)

// epoch is the lower bound used when scanning for aged records.
var epoch = time.Unix(0, 0).UTC()

// AuditService is the collaborator surface over the primary store, the
// record cache and the archive store.
type AuditService struct {
	store   audit.Store
	cache   *cache.RecordCache
	archive *archive.Store
	logger  *slog.Logger
}

// New creates an AuditService. A nil cache gets a default-sized cache over
// store.
func New(store audit.Store, records *cache.RecordCache, archives *archive.Store) *AuditService {
	if records == nil {
		records = cache.New(store, nil)
	}
	return &AuditService{
		store:   store,
		cache:   records,
		archive: archives,
		logger:  slog.Default().With("component", "audit.service"),
	}
}

// Save validates and persists a record, then caches it.
func (s *AuditService) Save(ctx context.Context, record *audit.Record) (*audit.Record, error) {
	if record == nil {
		return nil, audit.NewValidationError("record", "record must not be nil")
	}
	saved, err := s.store.Save(ctx, record)
	if err != nil {
		return nil, err
	}
	s.cache.Put(saved.ID, saved)
	return saved, nil
}

// FindByID returns a record through the cache, or audit.ErrNotFound.
func (s *AuditService) FindByID(ctx context.Context, id string) (*audit.Record, error) {
	rec, found, err := s.cache.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, audit.ErrNotFound
	}
	return rec, nil
}

// SearchLogs returns primary-store records matching filter, newest first.
func (s *AuditService) SearchLogs(ctx context.Context, filter *audit.Filter, page audit.Page) ([]*audit.Record, error) {
	if filter != nil && filter.StartTime != nil && filter.EndTime != nil && !filter.EndTime.After(*filter.StartTime) {
		return nil, audit.NewValidationError("endTime", "end time must be after start time")
	}
	return s.store.Search(ctx, filter, page)
}

// CountLogs returns the number of primary-store records matching filter.
func (s *AuditService) CountLogs(ctx context.Context, filter *audit.Filter) (int64, error) {
	return s.store.Count(ctx, filter)
}

// FindLatestLogs returns the newest limit records.
func (s *AuditService) FindLatestLogs(ctx context.Context, limit int) ([]*audit.Record, error) {
	if limit <= 0 {
		return nil, audit.NewValidationError("limit", "limit must be positive")
	}
	return s.store.FindLatest(ctx, limit)
}

// ArchiveOldLogs moves primary-store records older than before into daily
// archives and returns how many it moved. Records are only deleted from the
// primary store once every affected day's archive verifies, and only the
// records that were archived are deleted.
func (s *AuditService) ArchiveOldLogs(ctx context.Context, before time.Time) (int, error) {
	records, err := s.store.FindBetween(ctx, epoch, before)
	if err != nil {
		return 0, fmt.Errorf("failed to load records before %s: %w", before.Format(time.RFC3339), err)
	}
	if len(records) == 0 {
		return 0, nil
	}

	loc := s.archive.Location()
	byDay := make(map[time.Time][]*audit.Record)
	for _, r := range records {
		y, m, d := r.CreatedAt.In(loc).Date()
		day := time.Date(y, m, d, 0, 0, 0, 0, loc)
		byDay[day] = append(byDay[day], r)
	}

	days := make([]time.Time, 0, len(byDay))
	for day := range byDay {
		days = append(days, day)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })

	added := 0
	for _, day := range days {
		n, err := s.archive.CreateDailyArchive(ctx, day, byDay[day])
		if err != nil {
			return 0, fmt.Errorf("failed to archive %s: %w", day.Format("2006-01-02"), err)
		}
		ok, err := s.archive.VerifyArchive(ctx, day)
		if err != nil {
			return 0, err
		}
		if !ok {
			return 0, fmt.Errorf("archive for %s failed verification, primary records kept", day.Format("2006-01-02"))
		}
		added += n
	}

	ids := make([]string, len(records))
	for i, r := range records {
		ids[i] = r.ID
	}
	deleted, err := s.store.DeleteIDs(ctx, ids)
	if err != nil {
		return 0, fmt.Errorf("records archived but not removed from primary store: %w", err)
	}
	for _, id := range ids {
		s.cache.Invalidate(id)
	}

	if deleted != int64(len(records)) {
		s.logger.Warn("primary delete count differs from archived count",
			"archived", len(records),
			"deleted", deleted,
			"before", before,
		)
	}
	s.logger.Info("old audit records archived",
		"record_count", deleted,
		"new_in_archive", added,
		"days", len(days),
		"before", before,
	)
	return int(deleted), nil
}

// SearchArchives searches the archive tree and returns matches newest first.
func (s *AuditService) SearchArchives(ctx context.Context, start, end time.Time, eventType string, severity audit.Severity) ([]*audit.Record, error) {
	results, err := s.archive.SearchArchives(ctx, start, end, eventType, severity)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].CreatedAt.After(results[j].CreatedAt)
	})
	return results, nil
}

// ArchiveStatistics summarizes the archive tree.
func (s *AuditService) ArchiveStatistics(ctx context.Context) (*archive.Statistics, error) {
	return s.archive.CalculateStatistics(ctx)
}

// VerifyCache checks every cached record against the primary store.
func (s *AuditService) VerifyCache(ctx context.Context) (*cache.VerifyReport, error) {
	return s.cache.VerifyConsistency(ctx)
}

// RefreshCache reloads the cache from the primary store.
func (s *AuditService) RefreshCache(ctx context.Context) (int, error) {
	return s.cache.ForceRefresh(ctx)
}
