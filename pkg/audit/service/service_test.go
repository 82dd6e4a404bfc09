package service

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"mercator-hq/archivist/pkg/archive"
	"mercator-hq/archivist/pkg/audit"
	"mercator-hq/archivist/pkg/audit/cache"
	"mercator-hq/archivist/pkg/audit/storage"
)

var fixedNow = time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)

func newTestService(t *testing.T) (*AuditService, *storage.MemoryStore, *archive.Store) {
	t.Helper()

	store := storage.NewMemoryStore()
	cfg := archive.DefaultConfig()
	cfg.BaseDir = filepath.Join(t.TempDir(), "archives")
	archives := archive.NewStore(cfg,
		archive.WithClock(func() time.Time { return fixedNow }),
		archive.WithCounter(store),
	)
	return New(store, cache.New(store, nil), archives), store, archives
}

func save(t *testing.T, svc *AuditService, eventType string, severity audit.Severity, at time.Time) *audit.Record {
	t.Helper()

	r, err := audit.NewRecord(eventType, audit.WithSeverity(severity), audit.WithCreatedAt(at))
	if err != nil {
		t.Fatalf("NewRecord() error = %v", err)
	}
	saved, err := svc.Save(context.Background(), r)
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	return saved
}

func TestSaveAndFindByID(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	saved := save(t, svc, "USER_LOGIN", audit.SeverityLow, fixedNow)
	if saved.ID == "" {
		t.Fatal("Save() did not assign an ID")
	}

	got, err := svc.FindByID(ctx, saved.ID)
	if err != nil {
		t.Fatalf("FindByID() error = %v", err)
	}
	if !got.Equal(saved) {
		t.Errorf("FindByID() = %+v, want %+v", got, saved)
	}

	if _, err := svc.FindByID(ctx, "missing"); !errors.Is(err, audit.ErrNotFound) {
		t.Errorf("FindByID(missing) error = %v, want ErrNotFound", err)
	}

	if _, err := svc.Save(ctx, &audit.Record{EventType: "  "}); !audit.IsValidation(err) {
		t.Errorf("Save(blank) error = %v, want ValidationError", err)
	}
}

func TestSearchLogsAndLatest(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		save(t, svc, "USER_LOGIN", audit.SeverityLow, fixedNow.Add(time.Duration(i)*time.Minute))
	}
	save(t, svc, "ACCESS_DENIED", audit.SeverityHigh, fixedNow.Add(10*time.Minute))

	high, err := svc.SearchLogs(ctx, &audit.Filter{Severity: audit.SeverityHigh}, audit.Page{})
	if err != nil || len(high) != 1 || high[0].EventType != "ACCESS_DENIED" {
		t.Errorf("SearchLogs(HIGH) = %v, %v", high, err)
	}

	latest, err := svc.FindLatestLogs(ctx, 2)
	if err != nil {
		t.Fatalf("FindLatestLogs() error = %v", err)
	}
	if len(latest) != 2 || !latest[0].CreatedAt.After(latest[1].CreatedAt) {
		t.Errorf("FindLatestLogs() not newest first: %v", latest)
	}

	if _, err := svc.FindLatestLogs(ctx, 0); !audit.IsValidation(err) {
		t.Errorf("FindLatestLogs(0) error = %v, want ValidationError", err)
	}

	start, end := fixedNow, fixedNow.Add(-time.Hour)
	if _, err := svc.SearchLogs(ctx, &audit.Filter{StartTime: &start, EndTime: &end}, audit.Page{}); !audit.IsValidation(err) {
		t.Errorf("SearchLogs(inverted) error = %v, want ValidationError", err)
	}

	if n, err := svc.CountLogs(ctx, &audit.Filter{EventType: "USER_LOGIN"}); err != nil || n != 5 {
		t.Errorf("CountLogs() = %d, %v, want 5", n, err)
	}
}

func TestArchiveOldLogs(t *testing.T) {
	svc, store, archives := newTestService(t)
	ctx := context.Background()

	day1 := time.Date(2025, 4, 16, 0, 0, 0, 0, time.UTC)
	day2 := day1.AddDate(0, 0, 1)

	var old []*audit.Record
	for i := 0; i < 3; i++ {
		old = append(old, save(t, svc, "USER_LOGIN", audit.SeverityLow, day1.Add(time.Duration(i+1)*time.Hour)))
	}
	for i := 0; i < 2; i++ {
		old = append(old, save(t, svc, "DATA_EXPORTED", audit.SeverityMedium, day2.Add(time.Duration(i+1)*time.Hour)))
	}
	recent := save(t, svc, "USER_LOGIN", audit.SeverityLow, fixedNow.Add(-24*time.Hour))

	n, err := svc.ArchiveOldLogs(ctx, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("ArchiveOldLogs() error = %v", err)
	}
	if n != 5 {
		t.Errorf("ArchiveOldLogs() = %d, want 5", n)
	}

	for _, day := range []time.Time{day1, day2} {
		if ok, err := archives.VerifyArchive(ctx, day); err != nil || !ok {
			t.Errorf("VerifyArchive(%s) = %v, %v", day.Format("2006-01-02"), ok, err)
		}
	}

	if left, _ := store.Count(ctx, nil); left != 1 {
		t.Errorf("primary store has %d records, want 1", left)
	}
	if _, err := svc.FindByID(ctx, old[0].ID); !errors.Is(err, audit.ErrNotFound) {
		t.Errorf("FindByID(archived) error = %v, want ErrNotFound", err)
	}
	if _, err := svc.FindByID(ctx, recent.ID); err != nil {
		t.Errorf("FindByID(recent) error = %v", err)
	}

	results, err := svc.SearchArchives(ctx, day1.Add(-time.Hour), day2.AddDate(0, 0, 1), "", "")
	if err != nil {
		t.Fatalf("SearchArchives() error = %v", err)
	}
	if len(results) != 5 {
		t.Fatalf("SearchArchives() = %d records, want 5", len(results))
	}
	for i := 1; i < len(results); i++ {
		if results[i].CreatedAt.After(results[i-1].CreatedAt) {
			t.Fatalf("SearchArchives() not sorted newest first at %d", i)
		}
	}

	exported, err := svc.SearchArchives(ctx, day1.Add(-time.Hour), day2.AddDate(0, 0, 1), "DATA_EXPORTED", "")
	if err != nil || len(exported) != 2 {
		t.Errorf("SearchArchives(DATA_EXPORTED) = %d, %v, want 2", len(exported), err)
	}

	stats, err := svc.ArchiveStatistics(ctx)
	if err != nil || stats.TotalFiles != 2 || stats.TotalRecords != 5 {
		t.Errorf("ArchiveStatistics() = %+v, %v", stats, err)
	}
}

func TestArchiveOldLogs_NothingToArchive(t *testing.T) {
	svc, _, _ := newTestService(t)
	save(t, svc, "USER_LOGIN", audit.SeverityLow, fixedNow)

	n, err := svc.ArchiveOldLogs(context.Background(), fixedNow.AddDate(0, 0, -90))
	if err != nil || n != 0 {
		t.Errorf("ArchiveOldLogs() = %d, %v, want 0, nil", n, err)
	}
}

func TestCacheMaintenance(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		save(t, svc, "USER_LOGIN", audit.SeverityLow, fixedNow.Add(time.Duration(i)*time.Minute))
	}
	// Saved behind the service's back, so not cached yet.
	r, _ := audit.NewRecord("USER_LOGOUT", audit.WithCreatedAt(fixedNow))
	if _, err := store.Save(ctx, r); err != nil {
		t.Fatal(err)
	}

	report, err := svc.VerifyCache(ctx)
	if err != nil {
		t.Fatalf("VerifyCache() error = %v", err)
	}
	if report.Checked != 3 || report.Repaired != 0 || report.Removed != 0 {
		t.Errorf("VerifyCache() = %+v, want 3 checked", report)
	}

	n, err := svc.RefreshCache(ctx)
	if err != nil || n != 4 {
		t.Errorf("RefreshCache() = %d, %v, want 4", n, err)
	}
}

// lateWriteStore saves a back-dated record right after the first
// FindBetween, as a concurrent writer would.
type lateWriteStore struct {
	*storage.MemoryStore
	late *audit.Record
}

func (s *lateWriteStore) FindBetween(ctx context.Context, start, end time.Time) ([]*audit.Record, error) {
	records, err := s.MemoryStore.FindBetween(ctx, start, end)
	if err == nil && s.late != nil {
		late := s.late
		s.late = nil
		if _, err := s.MemoryStore.Save(ctx, late); err != nil {
			return nil, err
		}
	}
	return records, err
}

func TestArchiveOldLogs_KeepsRecordsSavedDuringRun(t *testing.T) {
	ctx := context.Background()
	day := time.Date(2025, 4, 16, 0, 0, 0, 0, time.UTC)
	before := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	store := &lateWriteStore{MemoryStore: storage.NewMemoryStore()}
	cfg := archive.DefaultConfig()
	cfg.BaseDir = filepath.Join(t.TempDir(), "archives")
	archives := archive.NewStore(cfg, archive.WithClock(func() time.Time { return fixedNow }))
	svc := New(store, cache.New(store, nil), archives)

	save(t, svc, "USER_LOGIN", audit.SeverityLow, day.Add(time.Hour))
	save(t, svc, "USER_LOGIN", audit.SeverityLow, day.Add(2*time.Hour))
	late, err := audit.NewRecord("USER_LOGOUT", audit.WithID("late"), audit.WithCreatedAt(day.Add(3*time.Hour)))
	if err != nil {
		t.Fatal(err)
	}
	store.late = late

	n, err := svc.ArchiveOldLogs(ctx, before)
	if err != nil {
		t.Fatalf("ArchiveOldLogs() error = %v", err)
	}
	if n != 2 {
		t.Errorf("ArchiveOldLogs() = %d, want 2", n)
	}

	if _, err := store.FindByID(ctx, "late"); err != nil {
		t.Fatalf("record saved during the run was deleted without being archived: %v", err)
	}

	n, err = svc.ArchiveOldLogs(ctx, before)
	if err != nil || n != 1 {
		t.Fatalf("second ArchiveOldLogs() = %d, %v; want 1, nil", n, err)
	}
	results, err := svc.SearchArchives(ctx, day, day.AddDate(0, 0, 1), "", "")
	if err != nil || len(results) != 3 {
		t.Errorf("SearchArchives() = %d records, %v; want 3", len(results), err)
	}
}
