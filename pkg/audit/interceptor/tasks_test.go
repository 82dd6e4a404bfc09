package interceptor

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"mercator-hq/archivist/pkg/audit"
	"mercator-hq/archivist/pkg/audit/storage"
	"mercator-hq/archivist/pkg/tasks"
)

func TestTaskObserver(t *testing.T) {
	at := time.Date(2026, 3, 2, 1, 0, 0, 0, time.UTC)

	daily, _ := tasks.NewTask(tasks.TypeDailyArchive, at, tasks.WithTaskID("d-1"), tasks.WithParam(tasks.ParamDate, "2026-03-01"))
	cleanup, _ := tasks.NewTask(tasks.TypeCleanup, at, tasks.WithTaskID("c-1"), tasks.WithParam(tasks.ParamRetentionDays, "400"))
	refresh, _ := tasks.NewTask(tasks.TypeCacheRefresh, at, tasks.WithTaskID("r-1"))

	tests := []struct {
		name         string
		task         *tasks.ScheduledTask
		result       *tasks.Result
		err          error
		wantRecord   bool
		wantType     string
		wantSeverity audit.Severity
		wantTarget   string
		wantDesc     string
	}{
		{
			name:         "daily archive success",
			task:         daily,
			result:       &tasks.Result{TaskID: "d-1", Status: tasks.StatusSucceeded, EndTime: at, Payload: map[string]any{"count": 12}},
			wantRecord:   true,
			wantType:     "ARCHIVE_CREATED",
			wantSeverity: audit.SeverityLow,
			wantTarget:   "2026-03-01",
			wantDesc:     "DAILY_ARCHIVE task d-1 SUCCEEDED, 12 records",
		},
		{
			name:         "cleanup failure",
			task:         cleanup,
			result:       &tasks.Result{TaskID: "c-1", Status: tasks.StatusFailed, EndTime: at},
			err:          errors.New("disk full"),
			wantRecord:   true,
			wantType:     "ARCHIVE_DELETED",
			wantSeverity: audit.SeverityHigh,
			wantTarget:   "c-1",
			wantDesc:     "CLEANUP task c-1 FAILED; failed: disk full",
		},
		{
			name:   "cache refresh is not audited",
			task:   refresh,
			result: &tasks.Result{TaskID: "r-1", Status: tasks.StatusSucceeded, EndTime: at},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := storage.NewMemoryStore()
			icpt := New(store, nil, nil)
			NewTaskObserver(icpt).ObserveAttempt(context.Background(), tt.task, tt.result, tt.err)
			icpt.Close()

			all, err := store.FindAll(context.Background())
			if err != nil {
				t.Fatal(err)
			}
			if !tt.wantRecord {
				if len(all) != 0 {
					t.Fatalf("stored %d records, want 0", len(all))
				}
				return
			}
			if len(all) != 1 {
				t.Fatalf("stored %d records, want 1", len(all))
			}
			r := all[0]
			if r.EventType != tt.wantType || r.Severity != tt.wantSeverity || r.TargetID != tt.wantTarget {
				t.Errorf("record = %+v", r)
			}
			if !strings.HasPrefix(r.Description, strings.SplitN(tt.wantDesc, ";", 2)[0]) {
				t.Errorf("Description = %q, want prefix of %q", r.Description, tt.wantDesc)
			}
			if tt.err != nil && !strings.Contains(r.Description, tt.err.Error()) {
				t.Errorf("Description = %q, want the error", r.Description)
			}
			if !r.CreatedAt.Equal(at) {
				t.Errorf("CreatedAt = %v, want %v", r.CreatedAt, at)
			}
		})
	}
}
