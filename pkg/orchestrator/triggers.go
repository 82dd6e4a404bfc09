package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// Trigger is a named cron schedule bound to an action.
type Trigger struct {
	Name string
	Spec string

	schedule cron.Schedule
	action   func(ctx context.Context, now time.Time)
}

// NewTrigger parses spec (standard five-field cron or a descriptor such as
// "@every 15m") and binds it to action.
func NewTrigger(name, spec string, action func(ctx context.Context, now time.Time)) (*Trigger, error) {
	schedule, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("invalid cron schedule %q for trigger %s: %w", spec, name, err)
	}
	return &Trigger{Name: name, Spec: spec, schedule: schedule, action: action}, nil
}

// Next returns the first fire time strictly after after, in after's
// location.
func (t *Trigger) Next(after time.Time) time.Time {
	return t.schedule.Next(after)
}

// Fire runs the trigger's action as if it fired at now.
func (t *Trigger) Fire(ctx context.Context, now time.Time) {
	if t.action != nil {
		t.action(ctx, now)
	}
}
