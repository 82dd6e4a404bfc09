package archive

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

const (
	dailyDir      = "daily"
	monthlyDir    = "monthly"
	filePrefix    = "audit_log_"
	dailySuffix   = ".json.gz"
	monthlySuffix = ".tar.gz"
	metadataFile  = "metadata.json"
)

// YearMonth identifies a calendar month.
type YearMonth struct {
	Year  int
	Month time.Month
}

// ParseYearMonth parses "YYYY-MM" or "YYYYMM".
func ParseYearMonth(s string) (YearMonth, error) {
	s = strings.TrimSpace(s)
	layout := "2006-01"
	if !strings.Contains(s, "-") {
		layout = "200601"
	}
	t, err := time.Parse(layout, s)
	if err != nil {
		return YearMonth{}, fmt.Errorf("invalid year-month %q: %w", s, err)
	}
	return YearMonth{Year: t.Year(), Month: t.Month()}, nil
}

// YearMonthOf returns the month containing t.
func YearMonthOf(t time.Time) YearMonth {
	return YearMonth{Year: t.Year(), Month: t.Month()}
}

// String formats as "YYYY-MM".
func (ym YearMonth) String() string {
	return fmt.Sprintf("%04d-%02d", ym.Year, int(ym.Month))
}

// Compact formats as "YYYYMM".
func (ym YearMonth) Compact() string {
	return fmt.Sprintf("%04d%02d", ym.Year, int(ym.Month))
}

// First returns midnight of the first day of the month in loc.
func (ym YearMonth) First(loc *time.Location) time.Time {
	return time.Date(ym.Year, ym.Month, 1, 0, 0, 0, 0, loc)
}

// Days returns the number of days in the month.
func (ym YearMonth) Days() int {
	return time.Date(ym.Year, ym.Month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// Previous returns the month before ym.
func (ym YearMonth) Previous() YearMonth {
	t := time.Date(ym.Year, ym.Month-1, 1, 0, 0, 0, 0, time.UTC)
	return YearMonthOf(t)
}

// startOfDay returns midnight of t's calendar day in loc.
func startOfDay(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

// endOfDay returns the last millisecond of the day starting at start.
func endOfDay(start time.Time) time.Time {
	return start.AddDate(0, 0, 1).Add(-time.Millisecond)
}

// DailyArchivePath returns the path of the daily archive for date.
func (s *Store) DailyArchivePath(date time.Time) string {
	d := date.In(s.config.Location)
	return filepath.Join(s.config.BaseDir, dailyDir,
		fmt.Sprintf("%04d", d.Year()),
		fmt.Sprintf("%02d", int(d.Month())),
		filePrefix+d.Format("2006-01-02")+dailySuffix)
}

// MonthlyArchivePath returns the path of the monthly archive for ym.
func (s *Store) MonthlyArchivePath(ym YearMonth) string {
	return filepath.Join(s.config.BaseDir, monthlyDir,
		fmt.Sprintf("%04d", ym.Year),
		filePrefix+ym.Compact()+monthlySuffix)
}

// DailyArchivePaths returns the daily archive path for every calendar day of
// ym, whether or not the file exists.
func (s *Store) DailyArchivePaths(ym YearMonth) []string {
	first := ym.First(s.config.Location)
	paths := make([]string, 0, ym.Days())
	for i := 0; i < ym.Days(); i++ {
		paths = append(paths, s.DailyArchivePath(first.AddDate(0, 0, i)))
	}
	return paths
}

// dateFromDailyName extracts the day encoded in a daily archive file name.
func dateFromDailyName(name string, loc *time.Location) (time.Time, bool) {
	if !strings.HasPrefix(name, filePrefix) || !strings.HasSuffix(name, dailySuffix) {
		return time.Time{}, false
	}
	raw := strings.TrimSuffix(strings.TrimPrefix(name, filePrefix), dailySuffix)
	t, err := time.ParseInLocation("2006-01-02", raw, loc)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// monthFromMonthlyName extracts the month encoded in a monthly archive name.
func monthFromMonthlyName(name string) (YearMonth, bool) {
	if !strings.HasPrefix(name, filePrefix) || !strings.HasSuffix(name, monthlySuffix) {
		return YearMonth{}, false
	}
	raw := strings.TrimSuffix(strings.TrimPrefix(name, filePrefix), monthlySuffix)
	ym, err := ParseYearMonth(raw)
	if err != nil {
		return YearMonth{}, false
	}
	return ym, true
}
