package retry

import (
	"sync"
	"testing"
	"time"

	"mercator-hq/archivist/pkg/tasks"
)

var t0 = time.Date(2025, 4, 17, 1, 0, 0, 0, time.UTC)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

func newTask(t *testing.T, maxRetries int) *tasks.ScheduledTask {
	t.Helper()
	task, err := tasks.NewTask(tasks.TypeDailyArchive, t0,
		tasks.WithMaxRetries(maxRetries),
		tasks.WithDeadline(t0.Add(24*time.Hour)))
	if err != nil {
		t.Fatal(err)
	}
	return task
}

func TestCoordinator_BackoffGrowthIsCapped(t *testing.T) {
	clock := &fakeClock{now: t0}
	c := NewCoordinator(nil, WithClock(clock.Now))
	task := newTask(t, 10)

	want := []time.Duration{
		1 * time.Minute,
		2 * time.Minute,
		4 * time.Minute,
		8 * time.Minute,
		15 * time.Minute,
		15 * time.Minute,
	}

	var prev time.Duration
	for i, w := range want {
		if !c.HandleFailure(task, nil) {
			t.Fatalf("HandleFailure() #%d = false", i+1)
		}
		next, ok := c.NextRetryTime(task.ID)
		if !ok {
			t.Fatal("NextRetryTime() missing")
		}
		delay := next.Sub(clock.Now())
		if delay != w {
			t.Errorf("delay #%d = %v, want %v", i+1, delay, w)
		}
		if delay < prev {
			t.Errorf("delay #%d = %v decreased from %v", i+1, delay, prev)
		}
		prev = delay
	}
}

func TestCoordinator_ExhaustsRetries(t *testing.T) {
	clock := &fakeClock{now: t0}
	c := NewCoordinator(&Config{InitialDelay: time.Millisecond, Multiplier: 2, MaxDelay: time.Second}, WithClock(clock.Now))
	task := newTask(t, 3)

	for i := 1; i <= 3; i++ {
		result := &tasks.Result{TaskID: task.ID, Status: tasks.StatusFailed}
		if !c.HandleFailure(task, result) {
			t.Fatalf("HandleFailure() #%d = false, want true", i)
		}
		if result.RetryCount != i {
			t.Errorf("RetryCount = %d, want %d", result.RetryCount, i)
		}
	}
	if c.CanRetry(task) {
		t.Error("CanRetry() = true after 3 retries")
	}

	result := &tasks.Result{TaskID: task.ID, Status: tasks.StatusFailed}
	if c.HandleFailure(task, result) {
		t.Error("HandleFailure() #4 = true, want false")
	}
	if result.RetryCount != 3 {
		t.Errorf("RetryCount = %d, want 3", result.RetryCount)
	}
	if c.RetryCount(task.ID) != 3 {
		t.Errorf("RetryCount() = %d, want 3", c.RetryCount(task.ID))
	}
}

func TestCoordinator_CanRetry(t *testing.T) {
	clock := &fakeClock{now: t0}
	c := NewCoordinator(nil, WithClock(clock.Now))

	task := newTask(t, 1)
	if !c.CanRetry(task) {
		t.Error("CanRetry() = false for a fresh task")
	}

	noRetries := newTask(t, 0)
	if c.CanRetry(noRetries) {
		t.Error("CanRetry() = true with MaxRetries 0")
	}

	clock.Set(task.Deadline.Add(time.Second))
	if c.CanRetry(task) {
		t.Error("CanRetry() = true for an expired task")
	}
}

func TestCoordinator_IsWaitingForRetry(t *testing.T) {
	clock := &fakeClock{now: t0}
	c := NewCoordinator(nil, WithClock(clock.Now))
	task := newTask(t, 3)

	if c.IsWaitingForRetry(task.ID) {
		t.Error("IsWaitingForRetry() = true with no failures")
	}

	c.HandleFailure(task, nil)
	if !c.IsWaitingForRetry(task.ID) {
		t.Error("IsWaitingForRetry() = false right after a failure")
	}

	clock.Set(t0.Add(time.Minute))
	if c.IsWaitingForRetry(task.ID) {
		t.Error("IsWaitingForRetry() = true once the delay elapsed")
	}
}

func TestCoordinator_Reset(t *testing.T) {
	clock := &fakeClock{now: t0}
	c := NewCoordinator(nil, WithClock(clock.Now))
	a, b := newTask(t, 3), newTask(t, 3)

	c.HandleFailure(a, nil)
	c.HandleFailure(a, nil)
	c.HandleFailure(b, nil)

	c.ResetTask(a.ID)
	if c.RetryCount(a.ID) != 0 {
		t.Errorf("RetryCount() after ResetTask = %d", c.RetryCount(a.ID))
	}

	// Backoff restarts from the initial delay.
	c.HandleFailure(a, nil)
	next, _ := c.NextRetryTime(a.ID)
	if next.Sub(t0) != time.Minute {
		t.Errorf("delay after reset = %v, want 1m", next.Sub(t0))
	}

	c.ResetAll()
	if c.Len() != 0 || c.RetryCount(b.ID) != 0 {
		t.Errorf("state survived ResetAll: Len() = %d", c.Len())
	}
}
