package orchestrator

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"mercator-hq/archivist/pkg/archive"
	"mercator-hq/archivist/pkg/audit"
	"mercator-hq/archivist/pkg/audit/cache"
	"mercator-hq/archivist/pkg/tasks"
)

// Handler executes one task type. The returned payload is stored on the
// task's result.
type Handler interface {
	Handle(ctx context.Context, task *tasks.ScheduledTask) (map[string]any, error)
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, task *tasks.ScheduledTask) (map[string]any, error)

// Handle calls f(ctx, task).
func (f HandlerFunc) Handle(ctx context.Context, task *tasks.ScheduledTask) (map[string]any, error) {
	return f(ctx, task)
}

// RecordSource supplies the primary records for a daily archive.
type RecordSource interface {
	FindBetween(ctx context.Context, start, end time.Time) ([]*audit.Record, error)
}

// CacheMaintainer is the cache surface used by CACHE_REFRESH tasks.
type CacheMaintainer interface {
	VerifyConsistency(ctx context.Context) (*cache.VerifyReport, error)
	ForceRefresh(ctx context.Context) (int, error)
}

// Offloader moves records older than a cutoff out of the primary store and
// into daily archives.
type Offloader interface {
	ArchiveOldLogs(ctx context.Context, before time.Time) (int, error)
}

// Deps are the collaborators of the built-in handlers. Only Archive is
// required; handlers whose collaborator is missing are not registered.
type Deps struct {
	Archive   *archive.Store
	Records   RecordSource
	Cache     CacheMaintainer
	Offloader Offloader
}

func (o *Orchestrator) registerBuiltins(deps Deps) {
	if deps.Records != nil {
		o.handlers[tasks.TypeDailyArchive] = HandlerFunc(func(ctx context.Context, t *tasks.ScheduledTask) (map[string]any, error) {
			return o.handleDaily(ctx, deps.Archive, deps.Records, t)
		})
	}
	o.handlers[tasks.TypeMonthlyArchive] = HandlerFunc(func(ctx context.Context, t *tasks.ScheduledTask) (map[string]any, error) {
		return o.handleMonthly(ctx, deps.Archive, t)
	})
	o.handlers[tasks.TypeCleanup] = HandlerFunc(func(ctx context.Context, t *tasks.ScheduledTask) (map[string]any, error) {
		return o.handleCleanup(ctx, deps.Archive, deps.Offloader, t)
	})
	if deps.Cache != nil {
		o.handlers[tasks.TypeCacheRefresh] = HandlerFunc(func(ctx context.Context, t *tasks.ScheduledTask) (map[string]any, error) {
			return handleCacheRefresh(ctx, deps.Cache, t)
		})
	}
}

func (o *Orchestrator) handleDaily(ctx context.Context, store *archive.Store, source RecordSource, t *tasks.ScheduledTask) (map[string]any, error) {
	date, err := time.ParseInLocation("2006-01-02", t.Param(tasks.ParamDate), o.config.Location)
	if err != nil {
		return nil, audit.NewValidationError(tasks.ParamDate, fmt.Sprintf("invalid date %q", t.Param(tasks.ParamDate)))
	}

	records, err := source.FindBetween(ctx, date, date.AddDate(0, 0, 1))
	if err != nil {
		return nil, fmt.Errorf("load records for %s: %w", date.Format("2006-01-02"), err)
	}

	n, err := store.CreateDailyArchive(ctx, date, records)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"date":  date.Format("2006-01-02"),
		"count": n,
		"path":  store.DailyArchivePath(date),
	}, nil
}

func (o *Orchestrator) handleMonthly(ctx context.Context, store *archive.Store, t *tasks.ScheduledTask) (map[string]any, error) {
	ym, err := archive.ParseYearMonth(t.Param(tasks.ParamYearMonth))
	if err != nil {
		return nil, err
	}

	n, err := store.CreateMonthlyArchive(ctx, ym, store.DailyArchivePaths(ym))
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"yearMonth": ym.String(),
		"count":     n,
	}, nil
}

func (o *Orchestrator) handleCleanup(ctx context.Context, store *archive.Store, offloader Offloader, t *tasks.ScheduledTask) (map[string]any, error) {
	now := o.now()

	cutoff, err := cleanupCutoff(t, now)
	if err != nil {
		return nil, err
	}

	floor := now.Add(-store.RetentionFloor())
	if cutoff.After(floor) {
		o.logger.Warn("cleanup cutoff inside retention floor, clamping",
			"task_id", t.ID,
			"requested_cutoff", cutoff,
			"clamped_cutoff", floor,
			"retention_floor", store.RetentionFloor(),
		)
		cutoff = floor
	}

	payload := map[string]any{"cutoff": cutoff.Format(time.RFC3339)}

	if days := o.PrimaryRetentionDays(); offloader != nil && days > 0 {
		before := now.AddDate(0, 0, -days)
		moved, err := offloader.ArchiveOldLogs(ctx, before)
		if err != nil {
			return nil, fmt.Errorf("offload primary records before %s: %w", before.Format(time.RFC3339), err)
		}
		payload["offloaded"] = moved
	}

	deleted, err := store.DeleteOldArchives(ctx, cutoff)
	if err != nil {
		return nil, err
	}
	payload["deletedCount"] = deleted
	return payload, nil
}

// cleanupCutoff reads the cutoff from the task, falling back to
// retention_days before now.
func cleanupCutoff(t *tasks.ScheduledTask, now time.Time) (time.Time, error) {
	if s := t.Param(tasks.ParamCutoff); s != "" {
		cutoff, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return time.Time{}, audit.NewValidationError(tasks.ParamCutoff, fmt.Sprintf("invalid cutoff %q", s))
		}
		return cutoff, nil
	}
	days, err := strconv.Atoi(t.Param(tasks.ParamRetentionDays))
	if err != nil || days <= 0 {
		return time.Time{}, audit.NewValidationError(tasks.ParamRetentionDays,
			fmt.Sprintf("invalid retention days %q", t.Param(tasks.ParamRetentionDays)))
	}
	return now.AddDate(0, 0, -days), nil
}

func handleCacheRefresh(ctx context.Context, c CacheMaintainer, t *tasks.ScheduledTask) (map[string]any, error) {
	switch mode := t.Param(tasks.ParamMode); mode {
	case "", ModeVerify:
		report, err := c.VerifyConsistency(ctx)
		if err != nil {
			return nil, err
		}
		return map[string]any{
			"mode":     ModeVerify,
			"checked":  report.Checked,
			"repaired": report.Repaired,
			"removed":  report.Removed,
			"failed":   report.Failed,
		}, nil
	case ModeReload:
		n, err := c.ForceRefresh(ctx)
		if err != nil {
			return nil, err
		}
		return map[string]any{"mode": ModeReload, "count": n}, nil
	default:
		return nil, audit.NewValidationError(tasks.ParamMode, fmt.Sprintf("unknown cache refresh mode %q", mode))
	}
}
