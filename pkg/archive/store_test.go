package archive

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"mercator-hq/archivist/pkg/audit"
	"mercator-hq/archivist/pkg/audit/codec"
)

var fixedNow = time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)

func newTestStore(t *testing.T, opts ...Option) *Store {
	t.Helper()

	cfg := DefaultConfig()
	cfg.BaseDir = filepath.Join(t.TempDir(), "archives")
	opts = append([]Option{WithClock(func() time.Time { return fixedNow })}, opts...)
	return NewStore(cfg, opts...)
}

func record(t *testing.T, id, eventType string, severity audit.Severity, at time.Time) *audit.Record {
	t.Helper()

	r, err := audit.NewRecord(eventType,
		audit.WithID(id),
		audit.WithSeverity(severity),
		audit.WithUser("alice"),
		audit.WithCreatedAt(at),
	)
	if err != nil {
		t.Fatalf("NewRecord() error = %v", err)
	}
	return r
}

func dayRecords(t *testing.T, day time.Time, n int) []*audit.Record {
	t.Helper()

	var out []*audit.Record
	for i := 0; i < n; i++ {
		out = append(out, record(t, fmt.Sprintf("%s-%d", day.Format("20060102"), i),
			"USER_LOGIN", audit.SeverityLow, day.Add(time.Duration(i+1)*time.Hour)))
	}
	return out
}

type countingObserver struct {
	mu       sync.Mutex
	created  int
	deleted  int
	verified map[bool]int
}

func (o *countingObserver) ArchiveCreated(_ codec.ArchiveType, n int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.created += n
}

func (o *countingObserver) ArchivesDeleted(n int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.deleted += n
}

func (o *countingObserver) ArchiveVerified(ok bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.verified == nil {
		o.verified = make(map[bool]int)
	}
	o.verified[ok]++
}

type stubCounter struct {
	n   int64
	err error
}

func (c stubCounter) CountBefore(context.Context, time.Time) (int64, error) {
	return c.n, c.err
}

func TestDailyArchive_ScenarioVerifyAndSearch(t *testing.T) {
	ctx := context.Background()
	obs := &countingObserver{}
	store := newTestStore(t, WithObserver(obs))

	date := time.Date(2025, 4, 16, 0, 0, 0, 0, time.UTC)
	records := []*audit.Record{
		record(t, "r1", "USER_LOGIN", audit.SeverityLow, date.Add(8*time.Hour)),
		record(t, "r2", "USER_LOGIN", audit.SeverityLow, date.Add(17*time.Hour)),
	}

	n, err := store.CreateDailyArchive(ctx, date, records)
	if err != nil {
		t.Fatalf("CreateDailyArchive() error = %v", err)
	}
	if n != 2 {
		t.Errorf("CreateDailyArchive() = %d, want 2", n)
	}

	wantPath := filepath.Join(store.BaseDir(), "daily", "2025", "04", "audit_log_2025-04-16.json.gz")
	if _, err := os.Stat(wantPath); err != nil {
		t.Fatalf("expected archive at %s: %v", wantPath, err)
	}

	ok, err := store.VerifyArchive(ctx, date)
	if err != nil || !ok {
		t.Fatalf("VerifyArchive() = %v, %v; want true, nil", ok, err)
	}

	got, err := store.SearchArchives(ctx,
		time.Date(2025, 4, 15, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 4, 17, 0, 0, 0, 0, time.UTC),
		"USER_LOGIN", audit.SeverityLow)
	if err != nil {
		t.Fatalf("SearchArchives() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("SearchArchives() returned %d records, want 2", len(got))
	}
	for i := range records {
		if !got[i].Equal(records[i]) {
			t.Errorf("record %d = %+v, want %+v", i, got[i], records[i])
		}
	}

	if obs.created != 2 || obs.verified[true] != 1 {
		t.Errorf("observer = %+v", obs)
	}
}

func TestDailyArchive_Metadata(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	date := time.Date(2025, 4, 16, 15, 4, 5, 0, time.UTC)
	records := dayRecords(t, time.Date(2025, 4, 16, 0, 0, 0, 0, time.UTC), 3)

	if _, err := store.CreateDailyArchive(ctx, date, records); err != nil {
		t.Fatalf("CreateDailyArchive() error = %v", err)
	}

	meta, logs, _, err := readDaily(store.DailyArchivePath(date))
	if err != nil {
		t.Fatalf("readDaily() error = %v", err)
	}

	serialized, _ := codec.Serialize(records)
	tests := []struct {
		name string
		got  any
		want any
	}{
		{"archive type", meta.ArchiveType, codec.ArchiveDaily},
		{"start", meta.StartDate.Equal(time.Date(2025, 4, 16, 0, 0, 0, 0, time.UTC)), true},
		{"end", meta.EndDate.Equal(time.Date(2025, 4, 16, 23, 59, 59, 999_000_000, time.UTC)), true},
		{"record count", meta.RecordCount, 3},
		{"file size", meta.FileSizeBytes, int64(len(serialized))},
		{"checksum", meta.Checksum, codec.Checksum(logs)},
		{"version", meta.Version, "1.0"},
		{"created at", meta.CreatedAt.Equal(fixedNow), true},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s = %v, want %v", tt.name, tt.got, tt.want)
		}
	}
}

func TestDailyArchive_EmptyInput(t *testing.T) {
	store := newTestStore(t)
	date := time.Date(2025, 4, 16, 0, 0, 0, 0, time.UTC)

	n, err := store.CreateDailyArchive(context.Background(), date, nil)
	if err != nil || n != 0 {
		t.Fatalf("CreateDailyArchive(nil) = %d, %v; want 0, nil", n, err)
	}
	if _, err := os.Stat(store.DailyArchivePath(date)); !os.IsNotExist(err) {
		t.Error("expected no file to be created")
	}
}

func TestDailyArchive_RerunIsIdempotent(t *testing.T) {
	ctx := context.Background()
	obs := &countingObserver{}
	store := newTestStore(t, WithObserver(obs))
	date := time.Date(2025, 4, 16, 0, 0, 0, 0, time.UTC)
	records := dayRecords(t, date, 2)

	for i, want := range []int{2, 0} {
		n, err := store.CreateDailyArchive(ctx, date, records)
		if err != nil {
			t.Fatalf("CreateDailyArchive() run %d error = %v", i, err)
		}
		if n != want {
			t.Errorf("CreateDailyArchive() run %d = %d, want %d added", i, n, want)
		}
	}
	extra := record(t, "late", "USER_LOGOUT", audit.SeverityLow, date.Add(30*time.Minute))
	n, err := store.CreateDailyArchive(ctx, date, append([]*audit.Record{extra}, records...))
	if err != nil {
		t.Fatalf("CreateDailyArchive() error = %v", err)
	}
	if n != 1 {
		t.Errorf("CreateDailyArchive(extra) = %d, want 1 added", n)
	}
	if obs.created != 3 {
		t.Errorf("observer created = %d, want 3", obs.created)
	}

	meta, logs, _, err := readDaily(store.DailyArchivePath(date))
	if err != nil {
		t.Fatalf("readDaily() error = %v", err)
	}
	got, _ := codec.Deserialize(logs)
	if meta.RecordCount != 3 || len(got) != 3 {
		t.Fatalf("archive holds %d records (metadata %d), want 3", len(got), meta.RecordCount)
	}
	if got[0].ID != "late" {
		t.Errorf("records not ordered by time: first = %s", got[0].ID)
	}
}

func TestDailyArchive_ConcurrentWritersSameDate(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	date := time.Date(2025, 4, 16, 0, 0, 0, 0, time.UTC)

	const writers = 8
	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			r := record(t, fmt.Sprintf("w%d", i), "USER_LOGIN", audit.SeverityLow, date.Add(time.Duration(i)*time.Minute))
			if _, err := store.CreateDailyArchive(ctx, date, []*audit.Record{r}); err != nil {
				errs <- err
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("CreateDailyArchive() error = %v", err)
	}

	_, logs, _, err := readDaily(store.DailyArchivePath(date))
	if err != nil {
		t.Fatalf("readDaily() error = %v", err)
	}
	got, _ := codec.Deserialize(logs)
	if len(got) != writers {
		t.Errorf("archive holds %d records, want %d", len(got), writers)
	}
	if store.locks.size() != 0 {
		t.Errorf("path locks leaked: %d", store.locks.size())
	}
}

func TestVerifyArchive(t *testing.T) {
	ctx := context.Background()
	date := time.Date(2025, 4, 16, 0, 0, 0, 0, time.UTC)

	t.Run("absent", func(t *testing.T) {
		store := newTestStore(t)
		ok, err := store.VerifyArchive(ctx, date)
		if err != nil || ok {
			t.Errorf("VerifyArchive() = %v, %v; want false, nil", ok, err)
		}
	})

	t.Run("idempotent", func(t *testing.T) {
		store := newTestStore(t)
		if _, err := store.CreateDailyArchive(ctx, date, dayRecords(t, date, 2)); err != nil {
			t.Fatal(err)
		}
		first, err1 := store.VerifyArchive(ctx, date)
		second, err2 := store.VerifyArchive(ctx, date)
		if first != second || err1 != nil || err2 != nil || !first {
			t.Errorf("VerifyArchive() = (%v, %v) then (%v, %v)", first, err1, second, err2)
		}
	})

	t.Run("tampered records", func(t *testing.T) {
		store := newTestStore(t)
		if _, err := store.CreateDailyArchive(ctx, date, dayRecords(t, date, 2)); err != nil {
			t.Fatal(err)
		}
		rewrite(t, store.DailyArchivePath(date), func(plain string) string {
			return strings.Replace(plain, "alice", "mallory", 1)
		})

		ok, err := store.VerifyArchive(ctx, date)
		if err != nil || ok {
			t.Errorf("VerifyArchive() = %v, %v; want false, nil", ok, err)
		}
	})

	t.Run("missing logs section", func(t *testing.T) {
		store := newTestStore(t)
		path := store.DailyArchivePath(date)
		writeGzip(t, path, `{"metadata":{"archiveType":"DAILY","checksum":"x"}}`)

		ok, err := store.VerifyArchive(ctx, date)
		if err != nil || ok {
			t.Errorf("VerifyArchive() = %v, %v; want false, nil", ok, err)
		}
	})

	t.Run("corrupt gzip", func(t *testing.T) {
		store := newTestStore(t)
		path := store.DailyArchivePath(date)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte("not gzip"), 0o644); err != nil {
			t.Fatal(err)
		}

		_, err := store.VerifyArchive(ctx, date)
		var ce *audit.CompressionError
		if !errors.As(err, &ce) {
			t.Errorf("VerifyArchive() error = %v, want CompressionError", err)
		}
	})
}

func TestMonthlyArchive_SkipsMissingAndInvalidDays(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	ym := YearMonth{Year: 2025, Month: time.April}

	for _, d := range []int{1, 2, 3} {
		day := time.Date(2025, 4, d, 0, 0, 0, 0, time.UTC)
		if _, err := store.CreateDailyArchive(ctx, day, dayRecords(t, day, 2)); err != nil {
			t.Fatal(err)
		}
	}
	rewrite(t, store.DailyArchivePath(time.Date(2025, 4, 2, 0, 0, 0, 0, time.UTC)), func(plain string) string {
		return strings.Replace(plain, "USER_LOGIN", "USER_LOGOUT", 1)
	})

	paths := store.DailyArchivePaths(ym)
	if len(paths) != 30 {
		t.Fatalf("DailyArchivePaths() returned %d paths, want 30", len(paths))
	}

	n, err := store.CreateMonthlyArchive(ctx, ym, paths)
	if err != nil {
		t.Fatalf("CreateMonthlyArchive() error = %v", err)
	}
	if n != 2 {
		t.Errorf("CreateMonthlyArchive() = %d, want 2", n)
	}

	wantPath := filepath.Join(store.BaseDir(), "monthly", "2025", "audit_log_202504.tar.gz")
	meta, dailies, err := readMonthly(wantPath)
	if err != nil {
		t.Fatalf("readMonthly() error = %v", err)
	}
	if len(dailies) != 2 || dailies[0].Name != "audit_log_2025-04-01.json.gz" || dailies[1].Name != "audit_log_2025-04-03.json.gz" {
		t.Errorf("bundled files = %v", names(dailies))
	}
	if meta.ArchiveType != codec.ArchiveMonthly || meta.RecordCount != 2 {
		t.Errorf("metadata = %+v", meta)
	}
	if !meta.StartDate.Equal(time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("StartDate = %v", meta.StartDate)
	}
	if meta.EndDate.Day() != 30 {
		t.Errorf("EndDate = %v, want April 30", meta.EndDate)
	}
	if meta.Checksum != codec.ChecksumAll(dailies[0].Data, dailies[1].Data) {
		t.Error("monthly checksum does not cover the concatenated daily bytes")
	}

	ok, err := store.VerifyMonthlyArchive(ctx, ym)
	if err != nil || !ok {
		t.Errorf("VerifyMonthlyArchive() = %v, %v; want true, nil", ok, err)
	}
}

func TestMonthlyArchive_NothingToBundle(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	ym := YearMonth{Year: 2025, Month: time.February}

	n, err := store.CreateMonthlyArchive(ctx, ym, nil)
	if err != nil || n != 0 {
		t.Errorf("CreateMonthlyArchive(nil) = %d, %v", n, err)
	}

	n, err = store.CreateMonthlyArchive(ctx, ym, store.DailyArchivePaths(ym))
	if err != nil || n != 0 {
		t.Errorf("CreateMonthlyArchive(missing days) = %d, %v", n, err)
	}
	if _, err := os.Stat(store.MonthlyArchivePath(ym)); !os.IsNotExist(err) {
		t.Error("expected no monthly archive")
	}
}

// rewritingObserver replaces a daily archive the first time a day passes
// verification, simulating a concurrent rewrite of that day.
type rewritingObserver struct {
	nopObserver
	path string
	data []byte
	done bool
}

func (o *rewritingObserver) ArchiveVerified(ok bool) {
	if !ok || o.done {
		return
	}
	o.done = true
	if err := writeFile(o.path, o.data); err != nil {
		panic(err)
	}
}

func TestMonthlyArchive_BundlesVerifiedBytes(t *testing.T) {
	ctx := context.Background()
	obs := &rewritingObserver{done: true}
	store := newTestStore(t, WithObserver(obs))
	ym := YearMonth{Year: 2025, Month: time.April}
	day := time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)
	path := store.DailyArchivePath(day)

	if _, err := store.CreateDailyArchive(ctx, day, dayRecords(t, day, 2)); err != nil {
		t.Fatal(err)
	}
	original, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	late := record(t, "late", "USER_LOGOUT", audit.SeverityLow, day.Add(20*time.Hour))
	if _, err := store.CreateDailyArchive(ctx, day, []*audit.Record{late}); err != nil {
		t.Fatal(err)
	}
	rewritten, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := writeFile(path, original); err != nil {
		t.Fatal(err)
	}

	obs.path, obs.data, obs.done = path, rewritten, false
	n, err := store.CreateMonthlyArchive(ctx, ym, []string{path})
	if err != nil || n != 1 {
		t.Fatalf("CreateMonthlyArchive() = %d, %v; want 1, nil", n, err)
	}
	if !obs.done {
		t.Fatal("daily archive was not rewritten during bundling")
	}

	_, dailies, err := readMonthly(store.MonthlyArchivePath(ym))
	if err != nil {
		t.Fatalf("readMonthly() error = %v", err)
	}
	if len(dailies) != 1 || string(dailies[0].Data) != string(original) {
		t.Error("bundle does not hold the bytes that were verified")
	}
	if ok, err := store.VerifyMonthlyArchive(ctx, ym); err != nil || !ok {
		t.Errorf("VerifyMonthlyArchive() = %v, %v; want true, nil", ok, err)
	}
}

func TestMonthlyArchive_RemovesWorkDir(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv("TMPDIR", tmp)

	ctx := context.Background()
	ym := YearMonth{Year: 2025, Month: time.April}
	day := time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		block   bool
		wantErr bool
	}{
		{name: "success"},
		{name: "unwritable monthly directory", block: true, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newTestStore(t)
			if _, err := store.CreateDailyArchive(ctx, day, dayRecords(t, day, 2)); err != nil {
				t.Fatal(err)
			}
			if tt.block {
				if err := os.WriteFile(filepath.Join(store.BaseDir(), "monthly"), []byte("x"), 0o644); err != nil {
					t.Fatal(err)
				}
			}

			_, err := store.CreateMonthlyArchive(ctx, ym, store.DailyArchivePaths(ym))
			if (err != nil) != tt.wantErr {
				t.Fatalf("CreateMonthlyArchive() error = %v, wantErr %v", err, tt.wantErr)
			}

			left, err := filepath.Glob(filepath.Join(tmp, "archivist-monthly-*"))
			if err != nil {
				t.Fatal(err)
			}
			if len(left) != 0 {
				t.Errorf("temporary work directories left behind: %v", left)
			}
		})
	}
}

func TestSearchArchives_WindowValidation(t *testing.T) {
	store := newTestStore(t)
	start := time.Date(2025, 4, 16, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		end  time.Time
	}{
		{name: "end before start", end: start.Add(-time.Hour)},
		{name: "empty window", end: start},
		{name: "longer than a year", end: start.AddDate(0, 0, 366)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := store.SearchArchives(context.Background(), start, tt.end, "", "")
			if !audit.IsValidation(err) {
				t.Errorf("SearchArchives() error = %v, want ValidationError", err)
			}
		})
	}
}

func TestSearchArchives_FiltersAndSkipsCorruptFiles(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	day := time.Date(2025, 4, 16, 0, 0, 0, 0, time.UTC)

	records := []*audit.Record{
		record(t, "a", "USER_LOGIN", audit.SeverityLow, day.Add(1*time.Hour)),
		record(t, "b", "USER_LOGIN", audit.SeverityHigh, day.Add(2*time.Hour)),
		record(t, "c", "DATA_EXPORTED", audit.SeverityLow, day.Add(3*time.Hour)),
		record(t, "d", "USER_LOGIN", audit.SeverityLow, day.Add(4*time.Hour)),
	}
	if _, err := store.CreateDailyArchive(ctx, day, records); err != nil {
		t.Fatal(err)
	}

	corrupt := store.DailyArchivePath(day.AddDate(0, 0, 1))
	if err := os.MkdirAll(filepath.Dir(corrupt), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(corrupt, []byte("garbage"), 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name       string
		start, end time.Time
		eventType  string
		severity   audit.Severity
		want       []string
	}{
		{name: "all", start: day, end: day.AddDate(0, 0, 2), want: []string{"a", "b", "c", "d"}},
		{name: "event type", start: day, end: day.AddDate(0, 0, 2), eventType: "USER_LOGIN", want: []string{"a", "b", "d"}},
		{name: "severity", start: day, end: day.AddDate(0, 0, 2), severity: audit.SeverityHigh, want: []string{"b"}},
		{name: "exclusive bounds", start: day.Add(1 * time.Hour), end: day.Add(4 * time.Hour), want: []string{"b", "c"}},
		{name: "window starts mid-day", start: day.Add(150 * time.Minute), end: day.AddDate(0, 0, 1), want: []string{"c", "d"}},
		{name: "no overlap", start: day.AddDate(0, 0, 5), end: day.AddDate(0, 0, 6), want: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := store.SearchArchives(ctx, tt.start, tt.end, tt.eventType, tt.severity)
			if err != nil {
				t.Fatalf("SearchArchives() error = %v", err)
			}
			if fmt.Sprint(ids(got)) != fmt.Sprint(tt.want) {
				t.Errorf("SearchArchives() = %v, want %v", ids(got), tt.want)
			}
		})
	}
}

func TestSearchArchives_ReadsMonthlyBundles(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	ym := YearMonth{Year: 2025, Month: time.March}
	day := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

	if _, err := store.CreateDailyArchive(ctx, day, dayRecords(t, day, 2)); err != nil {
		t.Fatal(err)
	}
	if _, err := store.CreateMonthlyArchive(ctx, ym, store.DailyArchivePaths(ym)); err != nil {
		t.Fatal(err)
	}

	got, err := store.SearchArchives(ctx, day, day.AddDate(0, 0, 1), "", "")
	if err != nil {
		t.Fatalf("SearchArchives() error = %v", err)
	}
	// Once from the daily file and once from the monthly bundle.
	if len(got) != 4 {
		t.Errorf("SearchArchives() returned %d records, want 4", len(got))
	}

	if err := os.Remove(store.DailyArchivePath(day)); err != nil {
		t.Fatal(err)
	}
	got, err = store.SearchArchives(ctx, day, day.AddDate(0, 0, 1), "", "")
	if err != nil {
		t.Fatalf("SearchArchives() error = %v", err)
	}
	if len(got) != 2 {
		t.Errorf("SearchArchives() from monthly only returned %d records, want 2", len(got))
	}
}

func TestDeleteOldArchives_RetentionFloor(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	old := fixedNow.AddDate(-2, 0, 0)
	if _, err := store.CreateDailyArchive(ctx, old, dayRecords(t, startOfDay(old, time.UTC), 1)); err != nil {
		t.Fatal(err)
	}

	n, err := store.DeleteOldArchives(ctx, fixedNow.AddDate(0, -6, 0))
	if !audit.IsValidation(err) {
		t.Fatalf("DeleteOldArchives() error = %v, want ValidationError", err)
	}
	if n != 0 {
		t.Errorf("DeleteOldArchives() = %d, want 0", n)
	}
	if _, err := os.Stat(store.DailyArchivePath(old)); err != nil {
		t.Error("archive was deleted despite the floor violation")
	}
}

func TestDeleteOldArchives_DataLossGuard(t *testing.T) {
	ctx := context.Background()

	store := newTestStore(t, WithCounter(stubCounter{n: 5}))
	_, err := store.DeleteOldArchives(ctx, fixedNow.AddDate(-2, 0, 0))
	if !audit.IsValidation(err) {
		t.Errorf("DeleteOldArchives() error = %v, want ValidationError", err)
	}

	failing := newTestStore(t, WithCounter(stubCounter{err: errors.New("db down")}))
	_, err = failing.DeleteOldArchives(ctx, fixedNow.AddDate(-2, 0, 0))
	if err == nil || audit.IsValidation(err) {
		t.Errorf("DeleteOldArchives() error = %v, want counter failure", err)
	}
}

func TestDeleteOldArchives_DeletesOnlyOlderFiles(t *testing.T) {
	ctx := context.Background()
	obs := &countingObserver{}
	store := newTestStore(t, WithCounter(stubCounter{}), WithObserver(obs))

	oldDays := []time.Time{
		time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 11, 0, 0, 0, 0, time.UTC),
	}
	recent := time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC)
	for _, d := range append(oldDays, recent) {
		if _, err := store.CreateDailyArchive(ctx, d, dayRecords(t, d, 1)); err != nil {
			t.Fatal(err)
		}
	}
	jan := YearMonth{Year: 2024, Month: time.January}
	if _, err := store.CreateMonthlyArchive(ctx, jan, store.DailyArchivePaths(jan)); err != nil {
		t.Fatal(err)
	}

	// An unreadable file is skipped, not counted and not fatal.
	junk := filepath.Join(store.BaseDir(), "daily", "2024", "02", "audit_log_2024-02-01.json.gz")
	if err := os.MkdirAll(filepath.Dir(junk), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(junk, []byte("junk"), 0o644); err != nil {
		t.Fatal(err)
	}

	n, err := store.DeleteOldArchives(ctx, fixedNow.AddDate(-1, 0, 0))
	if err != nil {
		t.Fatalf("DeleteOldArchives() error = %v", err)
	}
	if n != 3 {
		t.Errorf("DeleteOldArchives() = %d, want 3 (two daily, one monthly)", n)
	}
	if _, err := os.Stat(store.DailyArchivePath(recent)); err != nil {
		t.Error("recent archive should survive")
	}
	if _, err := os.Stat(junk); err != nil {
		t.Error("unreadable archive should be left in place")
	}
	if obs.deleted != 3 {
		t.Errorf("observer deleted = %d, want 3", obs.deleted)
	}
}

func TestDeleteOldArchives_NoArchives(t *testing.T) {
	store := newTestStore(t)
	n, err := store.DeleteOldArchives(context.Background(), fixedNow.AddDate(-1, 0, -1))
	if err != nil || n != 0 {
		t.Errorf("DeleteOldArchives() = %d, %v; want 0, nil", n, err)
	}
}

func TestCalculateStatistics(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	empty, err := store.CalculateStatistics(ctx)
	if err != nil {
		t.Fatalf("CalculateStatistics() error = %v", err)
	}
	if empty.TotalFiles != 0 || empty.CompressionRatio != 0 || !empty.Oldest.IsZero() {
		t.Errorf("empty stats = %+v", empty)
	}

	first := time.Date(2025, 4, 14, 0, 0, 0, 0, time.UTC)
	last := time.Date(2025, 4, 16, 0, 0, 0, 0, time.UTC)
	if _, err := store.CreateDailyArchive(ctx, first, dayRecords(t, first, 3)); err != nil {
		t.Fatal(err)
	}
	if _, err := store.CreateDailyArchive(ctx, last, dayRecords(t, last, 2)); err != nil {
		t.Fatal(err)
	}
	junk := store.DailyArchivePath(time.Date(2025, 4, 15, 0, 0, 0, 0, time.UTC))
	if err := os.WriteFile(junk, []byte("junk"), 0o644); err != nil {
		t.Fatal(err)
	}

	stats, err := store.CalculateStatistics(ctx)
	if err != nil {
		t.Fatalf("CalculateStatistics() error = %v", err)
	}

	var wantBytes int64
	for _, d := range []time.Time{first, last, last.AddDate(0, 0, -1)} {
		info, err := os.Stat(store.DailyArchivePath(d))
		if err != nil {
			t.Fatal(err)
		}
		wantBytes += info.Size()
	}

	if stats.TotalFiles != 3 {
		t.Errorf("TotalFiles = %d, want 3", stats.TotalFiles)
	}
	if stats.TotalRecords != 5 {
		t.Errorf("TotalRecords = %d, want 5", stats.TotalRecords)
	}
	if stats.TotalBytes != wantBytes {
		t.Errorf("TotalBytes = %d, want %d", stats.TotalBytes, wantBytes)
	}
	if !stats.Oldest.Equal(first) || !stats.Newest.Equal(last) {
		t.Errorf("Oldest/Newest = %v/%v", stats.Oldest, stats.Newest)
	}
	wantRatio := float64(5*200) / float64(wantBytes)
	if stats.CompressionRatio != wantRatio {
		t.Errorf("CompressionRatio = %v, want %v", stats.CompressionRatio, wantRatio)
	}
}

func TestPaths(t *testing.T) {
	store := NewStore(&Config{BaseDir: "/data/archives"})

	if got := store.DailyArchivePath(time.Date(2025, 4, 6, 23, 0, 0, 0, time.UTC)); got != "/data/archives/daily/2025/04/audit_log_2025-04-06.json.gz" {
		t.Errorf("DailyArchivePath() = %s", got)
	}
	if got := store.MonthlyArchivePath(YearMonth{Year: 2025, Month: time.April}); got != "/data/archives/monthly/2025/audit_log_202504.tar.gz" {
		t.Errorf("MonthlyArchivePath() = %s", got)
	}
	if got := len(store.DailyArchivePaths(YearMonth{Year: 2024, Month: time.February})); got != 29 {
		t.Errorf("DailyArchivePaths(2024-02) = %d paths, want 29", got)
	}
}

func TestParseYearMonth(t *testing.T) {
	tests := []struct {
		input   string
		want    YearMonth
		wantErr bool
	}{
		{input: "2025-04", want: YearMonth{2025, time.April}},
		{input: "202504", want: YearMonth{2025, time.April}},
		{input: "2025-13", wantErr: true},
		{input: "April", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseYearMonth(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseYearMonth() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("ParseYearMonth() = %v, want %v", got, tt.want)
			}
		})
	}

	if got := (YearMonth{2025, time.January}).Previous(); got != (YearMonth{2024, time.December}) {
		t.Errorf("Previous() = %v", got)
	}
}

// rewrite decompresses a daily archive, edits its JSON text and writes it
// back compressed, leaving the stored checksum untouched.
func rewrite(t *testing.T, path string, edit func(string) string) {
	t.Helper()

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	plain, err := codec.Decompress(raw)
	if err != nil {
		t.Fatal(err)
	}
	writeGzip(t, path, edit(string(plain)))
}

func writeGzip(t *testing.T, path, content string) {
	t.Helper()

	compressed, err := codec.Compress([]byte(content))
	if err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, compressed, 0o644); err != nil {
		t.Fatal(err)
	}
}

func ids(records []*audit.Record) []string {
	out := []string{}
	for _, r := range records {
		out = append(out, r.ID)
	}
	return out
}

func names(files []codec.File) []string {
	var out []string
	for _, f := range files {
		out = append(out, f.Name)
	}
	return out
}
