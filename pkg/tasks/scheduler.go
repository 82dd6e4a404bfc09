package tasks

import (
	"container/heap"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Scheduler is an in-memory priority queue of pending tasks plus the status
// and latest result of every task it has seen. All methods are safe for
// concurrent use; popping the head and marking it Running happen under one
// lock, so a task is never dispatched twice.
type Scheduler struct {
	mu       sync.Mutex
	queue    taskQueue
	queued   map[string]*queueItem
	tasks    map[string]*ScheduledTask
	statuses map[string]Status
	results  map[string]*Result
	seq      uint64
	now      func() time.Time
	logger   *slog.Logger
}

// SchedulerOption configures a Scheduler.
type SchedulerOption func(*Scheduler)

// WithSchedulerClock overrides the time source.
func WithSchedulerClock(now func() time.Time) SchedulerOption {
	return func(s *Scheduler) { s.now = now }
}

// NewScheduler creates an empty scheduler.
func NewScheduler(opts ...SchedulerOption) *Scheduler {
	s := &Scheduler{
		queued:   make(map[string]*queueItem),
		tasks:    make(map[string]*ScheduledTask),
		statuses: make(map[string]Status),
		results:  make(map[string]*Result),
		now:      time.Now,
		logger:   slog.Default().With("component", "tasks.scheduler"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Schedule enqueues a task with status Pending. An ID whose previous run
// reached a final state may be scheduled again.
func (s *Scheduler) Schedule(task *ScheduledTask) error {
	if task == nil {
		return fmt.Errorf("schedule: nil task")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if st, ok := s.statuses[task.ID]; ok && !st.IsFinal() {
		return fmt.Errorf("%w: %s is %s", ErrDuplicateTask, task.ID, st)
	}

	s.enqueueLocked(task.Clone())
	delete(s.results, task.ID)

	s.logger.Debug("task scheduled",
		"task_id", task.ID,
		"type", task.Type,
		"priority", task.Priority.String(),
		"scheduled_time", task.ScheduledTime,
	)
	return nil
}

func (s *Scheduler) enqueueLocked(task *ScheduledTask) {
	s.seq++
	item := &queueItem{task: task, seq: s.seq}
	heap.Push(&s.queue, item)
	s.queued[task.ID] = item
	s.tasks[task.ID] = task
	s.statuses[task.ID] = StatusPending
}

// NextReadyTask pops the head of the queue and marks it Running if it is
// ready to run. Otherwise it returns false and leaves the queue untouched.
func (s *Scheduler) NextReadyTask() (*ScheduledTask, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	head := s.queue.peek()
	if head == nil || !head.task.IsReadyToRunAt(s.now()) {
		return nil, false
	}

	heap.Pop(&s.queue)
	delete(s.queued, head.task.ID)
	s.statuses[head.task.ID] = StatusRunning

	return head.task.Clone(), true
}

// UpdateStatus moves a task to status. Moving a queued task to Cancelled or
// Timeout also removes it from the queue.
func (s *Scheduler) UpdateStatus(taskID string, status Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.transitionLocked(taskID, status)
}

func (s *Scheduler) transitionLocked(taskID string, to Status) error {
	from, ok := s.statuses[taskID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrTaskNotFound, taskID)
	}
	if from == to {
		return nil
	}
	if !canTransition(from, to) {
		return &TransitionError{TaskID: taskID, From: from, To: to}
	}

	if item, queued := s.queued[taskID]; queued {
		s.queue.remove(item)
		delete(s.queued, taskID)
	}
	s.statuses[taskID] = to
	return nil
}

// RecordResult stores result as the task's latest result and moves the task
// to the result's status.
func (s *Scheduler) RecordResult(result *Result) error {
	if result == nil {
		return fmt.Errorf("record result: nil result")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.transitionLocked(result.TaskID, result.Status); err != nil {
		return err
	}
	s.results[result.TaskID] = result.Clone()
	return nil
}

// Requeue returns a Running task to the queue with a new scheduled time,
// storing result as its latest attempt. The deadline is unchanged; callers
// must not requeue past it.
func (s *Scheduler) Requeue(taskID string, at time.Time, result *Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	from, ok := s.statuses[taskID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrTaskNotFound, taskID)
	}
	if from != StatusRunning {
		return &TransitionError{TaskID: taskID, From: from, To: StatusPending}
	}

	task := s.tasks[taskID].Clone()
	task.ScheduledTime = at
	s.enqueueLocked(task)
	if result != nil {
		s.results[taskID] = result.Clone()
	}

	s.logger.Debug("task requeued", "task_id", taskID, "scheduled_time", at)
	return nil
}

// Cancel removes a Pending task from the queue and marks it Cancelled.
func (s *Scheduler) Cancel(taskID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.transitionLocked(taskID, StatusCancelled); err != nil {
		return err
	}
	now := s.now()
	s.results[taskID] = &Result{
		TaskID:    taskID,
		Type:      s.tasks[taskID].Type,
		Status:    StatusCancelled,
		StartTime: now,
		EndTime:   now,
	}
	return nil
}

// Status returns the current status of a task.
func (s *Scheduler) Status(taskID string) (Status, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.statuses[taskID]
	return st, ok
}

// Result returns the latest result of a task.
func (s *Scheduler) Result(taskID string) (*Result, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.results[taskID]
	if !ok {
		return nil, false
	}
	return r.Clone(), true
}

// Task returns the task as last scheduled.
func (s *Scheduler) Task(taskID string) (*ScheduledTask, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[taskID]
	if !ok {
		return nil, false
	}
	return t.Clone(), true
}

// CleanupExpiredTasks removes every queued task whose deadline has passed,
// marks it Timeout with a Timeout result, and returns how many it removed.
func (s *Scheduler) CleanupExpiredTasks() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	var expired []*queueItem
	for _, item := range s.queue {
		if item.task.IsExpiredAt(now) {
			expired = append(expired, item)
		}
	}

	for _, item := range expired {
		t := item.task
		s.queue.remove(item)
		delete(s.queued, t.ID)
		s.statuses[t.ID] = StatusTimeout

		retries := 0
		if prev, ok := s.results[t.ID]; ok {
			retries = prev.RetryCount
		}
		s.results[t.ID] = &Result{
			TaskID:       t.ID,
			Type:         t.Type,
			Status:       StatusTimeout,
			StartTime:    now,
			EndTime:      now,
			ErrorMessage: fmt.Sprintf("deadline %s passed before dispatch", t.Deadline.Format(time.RFC3339)),
			RetryCount:   retries,
		}

		s.logger.Warn("task expired before dispatch",
			"task_id", t.ID,
			"type", t.Type,
			"deadline", t.Deadline,
		)
	}

	return len(expired)
}

// Len returns the number of queued tasks.
func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.queue.Len()
}

// Reset clears the queue, statuses and results.
func (s *Scheduler) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.queue = nil
	s.queued = make(map[string]*queueItem)
	s.tasks = make(map[string]*ScheduledTask)
	s.statuses = make(map[string]Status)
	s.results = make(map[string]*Result)
}
