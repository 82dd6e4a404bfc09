package tasks

import (
	"fmt"
	"maps"
	"time"

	"github.com/google/uuid"

	"mercator-hq/archivist/pkg/audit"
)

// TaskType identifies the operation a task performs.
type TaskType string

const (
	TypeDailyArchive   TaskType = "DAILY_ARCHIVE"
	TypeMonthlyArchive TaskType = "MONTHLY_ARCHIVE"
	TypeCleanup        TaskType = "CLEANUP"
	TypeCacheRefresh   TaskType = "CACHE_REFRESH"
)

// Types lists every task type.
var Types = []TaskType{TypeDailyArchive, TypeMonthlyArchive, TypeCleanup, TypeCacheRefresh}

// ParseTaskType parses a task type name.
func ParseTaskType(s string) (TaskType, error) {
	for _, t := range Types {
		if string(t) == s {
			return t, nil
		}
	}
	return "", audit.NewValidationError("type", fmt.Sprintf("unknown task type %q", s))
}

// Priority orders tasks; lower values run first.
type Priority int

const (
	PriorityHigh   Priority = 0
	PriorityMedium Priority = 5
	PriorityLow    Priority = 10
)

func (p Priority) String() string {
	switch p {
	case PriorityHigh:
		return "HIGH"
	case PriorityMedium:
		return "MEDIUM"
	case PriorityLow:
		return "LOW"
	default:
		return fmt.Sprintf("PRIORITY(%d)", int(p))
	}
}

// Status is the lifecycle state of a task.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusRunning   Status = "RUNNING"
	StatusSucceeded Status = "SUCCEEDED"
	StatusFailed    Status = "FAILED"
	StatusTimeout   Status = "TIMEOUT"
	StatusCancelled Status = "CANCELLED"
)

// IsFinal reports whether no further transition is allowed.
func (s Status) IsFinal() bool {
	switch s {
	case StatusSucceeded, StatusFailed, StatusTimeout, StatusCancelled:
		return true
	}
	return false
}

// Defaults applied by NewTask.
const (
	DefaultMaxRetries = 3
	DefaultDeadline   = time.Hour
)

// Parameter keys understood by the archive handlers.
const (
	ParamDate          = "date"           // YYYY-MM-DD
	ParamYearMonth     = "year_month"     // YYYY-MM
	ParamCutoff        = "cutoff"         // RFC 3339
	ParamRetentionDays = "retention_days" // integer
	ParamMode          = "mode"           // verify | reload
)

// ScheduledTask is one unit of work. The scheduler only ever changes its
// status, which it tracks separately; the task value itself is not mutated
// once scheduled.
type ScheduledTask struct {
	ID            string            `json:"id"`
	Type          TaskType          `json:"type"`
	Priority      Priority          `json:"priority"`
	ScheduledTime time.Time         `json:"scheduledTime"`
	Parameters    map[string]string `json:"parameters,omitempty"`
	MaxRetries    int               `json:"maxRetries"`
	Deadline      time.Time         `json:"deadline"`
}

// TaskOption customizes a task built by NewTask.
type TaskOption func(*ScheduledTask)

// WithTaskID overrides the generated ID.
func WithTaskID(id string) TaskOption {
	return func(t *ScheduledTask) { t.ID = id }
}

// WithPriority sets the priority. Default: PriorityMedium.
func WithPriority(p Priority) TaskOption {
	return func(t *ScheduledTask) { t.Priority = p }
}

// WithParam sets one parameter.
func WithParam(key, value string) TaskOption {
	return func(t *ScheduledTask) {
		if t.Parameters == nil {
			t.Parameters = make(map[string]string)
		}
		t.Parameters[key] = value
	}
}

// WithMaxRetries sets the retry budget.
func WithMaxRetries(n int) TaskOption {
	return func(t *ScheduledTask) { t.MaxRetries = n }
}

// WithDeadline sets an absolute deadline.
func WithDeadline(d time.Time) TaskOption {
	return func(t *ScheduledTask) { t.Deadline = d }
}

// NewTask builds a task. The deadline defaults to scheduledTime plus one hour
// and must be after scheduledTime.
func NewTask(typ TaskType, scheduledTime time.Time, opts ...TaskOption) (*ScheduledTask, error) {
	t := &ScheduledTask{
		ID:            uuid.NewString(),
		Type:          typ,
		Priority:      PriorityMedium,
		ScheduledTime: scheduledTime,
		MaxRetries:    DefaultMaxRetries,
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.Deadline.IsZero() {
		t.Deadline = scheduledTime.Add(DefaultDeadline)
	}

	if t.ID == "" {
		return nil, audit.NewValidationError("id", "task ID must not be blank")
	}
	if _, err := ParseTaskType(string(t.Type)); err != nil {
		return nil, err
	}
	if t.MaxRetries < 0 {
		return nil, audit.NewValidationError("maxRetries", "must not be negative")
	}
	if !t.Deadline.After(t.ScheduledTime) {
		return nil, audit.NewValidationError("deadline", "deadline must be after the scheduled time")
	}
	return t, nil
}

// Param returns a parameter value or "".
func (t *ScheduledTask) Param(key string) string {
	return t.Parameters[key]
}

// IsExpired reports whether the deadline has passed.
func (t *ScheduledTask) IsExpired() bool {
	return t.IsExpiredAt(time.Now())
}

// IsExpiredAt reports whether the deadline has passed at now.
func (t *ScheduledTask) IsExpiredAt(now time.Time) bool {
	return now.After(t.Deadline)
}

// IsReadyToRun reports whether the task may be dispatched now.
func (t *ScheduledTask) IsReadyToRun() bool {
	return t.IsReadyToRunAt(time.Now())
}

// IsReadyToRunAt reports whether the scheduled time has arrived at now and
// the deadline has not passed.
func (t *ScheduledTask) IsReadyToRunAt(now time.Time) bool {
	return !t.IsExpiredAt(now) && !now.Before(t.ScheduledTime)
}

// Clone returns a deep copy.
func (t *ScheduledTask) Clone() *ScheduledTask {
	c := *t
	c.Parameters = maps.Clone(t.Parameters)
	return &c
}

// Result is the outcome of one execution attempt. The scheduler keeps the
// latest result per task.
type Result struct {
	TaskID       string         `json:"taskId"`
	Type         TaskType       `json:"type,omitempty"`
	Status       Status         `json:"status"`
	StartTime    time.Time      `json:"startTime"`
	EndTime      time.Time      `json:"endTime"`
	ErrorMessage string         `json:"errorMessage,omitempty"`
	RetryCount   int            `json:"retryCount"`
	Payload      map[string]any `json:"payload,omitempty"`
}

// Duration returns the attempt's wall time.
func (r *Result) Duration() time.Duration {
	return r.EndTime.Sub(r.StartTime)
}

// Clone returns a copy with its own payload map.
func (r *Result) Clone() *Result {
	c := *r
	c.Payload = maps.Clone(r.Payload)
	return &c
}
