package interceptor

import (
	"context"
	"fmt"

	"mercator-hq/archivist/pkg/tasks"
)

// taskEvents maps task types to the event recorded for their attempts.
// Cache refreshes are not audited.
var taskEvents = map[tasks.TaskType]string{
	tasks.TypeDailyArchive:   "ARCHIVE_CREATED",
	tasks.TypeMonthlyArchive: "ARCHIVE_CREATED",
	tasks.TypeCleanup:        "ARCHIVE_DELETED",
}

// TaskObserver records the outcome of archive task attempts as audit
// events. It satisfies the orchestrator's AttemptObserver.
type TaskObserver struct {
	interceptor *Interceptor
}

// NewTaskObserver creates a TaskObserver recording through i.
func NewTaskObserver(i *Interceptor) *TaskObserver {
	return &TaskObserver{interceptor: i}
}

// ObserveAttempt records one finished attempt.
func (o *TaskObserver) ObserveAttempt(ctx context.Context, task *tasks.ScheduledTask, result *tasks.Result, err error) {
	call, ok := taskCall(task, result)
	if !ok {
		return
	}
	if obsErr := o.interceptor.Observe(ctx, call, err); obsErr != nil {
		o.interceptor.logger.Warn("failed to record task attempt",
			"task_id", task.ID,
			"type", task.Type,
			"error", obsErr,
		)
	}
}

func taskCall(task *tasks.ScheduledTask, result *tasks.Result) (Call, bool) {
	event, ok := taskEvents[task.Type]
	if !ok {
		return Call{}, false
	}

	call := Call{
		Method:    "Orchestrator." + string(task.Type),
		EventType: event,
		TargetID:  taskTarget(task),
	}
	if result != nil {
		call.Time = result.EndTime
		call.Description = fmt.Sprintf("%s task %s %s", task.Type, task.ID, result.Status)
		if n, ok := result.Payload["count"]; ok {
			call.Description += fmt.Sprintf(", %v records", n)
		}
		if n, ok := result.Payload["deletedCount"]; ok {
			call.Description += fmt.Sprintf(", %v files deleted", n)
		}
	}
	return call, true
}

func taskTarget(task *tasks.ScheduledTask) string {
	for _, key := range []string{tasks.ParamDate, tasks.ParamYearMonth, tasks.ParamCutoff} {
		if v := task.Param(key); v != "" {
			return v
		}
	}
	return task.ID
}
