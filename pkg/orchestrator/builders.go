package orchestrator

import (
	"strconv"
	"time"

	"mercator-hq/archivist/pkg/archive"
	"mercator-hq/archivist/pkg/tasks"
)

// Cache refresh modes.
const (
	ModeVerify = "verify"
	ModeReload = "reload"
)

// NewDailyArchiveTask builds a High priority task archiving the day before
// now.
func NewDailyArchiveTask(now time.Time, opts ...tasks.TaskOption) (*tasks.ScheduledTask, error) {
	return DailyArchiveTaskFor(now.AddDate(0, 0, -1), now, opts...)
}

// DailyArchiveTaskFor builds a High priority task archiving date, due at now.
func DailyArchiveTaskFor(date, now time.Time, opts ...tasks.TaskOption) (*tasks.ScheduledTask, error) {
	base := []tasks.TaskOption{
		tasks.WithPriority(tasks.PriorityHigh),
		tasks.WithParam(tasks.ParamDate, date.Format("2006-01-02")),
	}
	return tasks.NewTask(tasks.TypeDailyArchive, now, append(base, opts...)...)
}

// NewMonthlyArchiveTask builds a High priority task bundling the month
// before now.
func NewMonthlyArchiveTask(now time.Time, opts ...tasks.TaskOption) (*tasks.ScheduledTask, error) {
	return MonthlyArchiveTaskFor(archive.YearMonthOf(now).Previous(), now, opts...)
}

// MonthlyArchiveTaskFor builds a High priority task bundling ym, due at now.
func MonthlyArchiveTaskFor(ym archive.YearMonth, now time.Time, opts ...tasks.TaskOption) (*tasks.ScheduledTask, error) {
	base := []tasks.TaskOption{
		tasks.WithPriority(tasks.PriorityHigh),
		tasks.WithParam(tasks.ParamYearMonth, ym.String()),
	}
	return tasks.NewTask(tasks.TypeMonthlyArchive, now, append(base, opts...)...)
}

// NewCleanupTask builds a Medium priority task deleting archives older than
// retentionDays before now.
func NewCleanupTask(now time.Time, retentionDays int, opts ...tasks.TaskOption) (*tasks.ScheduledTask, error) {
	cutoff := now.AddDate(0, 0, -retentionDays)
	base := []tasks.TaskOption{
		tasks.WithPriority(tasks.PriorityMedium),
		tasks.WithParam(tasks.ParamCutoff, cutoff.Format(time.RFC3339)),
		tasks.WithParam(tasks.ParamRetentionDays, strconv.Itoa(retentionDays)),
	}
	return tasks.NewTask(tasks.TypeCleanup, now, append(base, opts...)...)
}

// NewCacheRefreshTask builds a Low priority cache task. mode is ModeVerify
// or ModeReload.
func NewCacheRefreshTask(now time.Time, mode string, opts ...tasks.TaskOption) (*tasks.ScheduledTask, error) {
	base := []tasks.TaskOption{
		tasks.WithPriority(tasks.PriorityLow),
		tasks.WithParam(tasks.ParamMode, mode),
	}
	return tasks.NewTask(tasks.TypeCacheRefresh, now, append(base, opts...)...)
}
