// Package orchestrator drives the archive lifecycle on fixed cadences.
//
// Triggers are cron schedules (robfig/cron) that enqueue tasks into the
// tasks.Scheduler: a daily archive of yesterday's records, a monthly bundle
// of last month's daily archives, a retention cleanup, a cache consistency
// check, and an hourly sweep of expired tasks. Trigger cadence is decoupled
// from the handlers, and Trigger.Next can be evaluated for any instant.
//
// A dispatch loop polls the scheduler and runs ready tasks on a bounded
// worker pool. Each task type has one Handler. A failed attempt is reported
// to the retry.Coordinator, which is the only retry policy in the system:
// if it grants a retry the task is requeued at the coordinator's next retry
// time, otherwise the task stays Failed. ExecuteWithRetry runs the same
// policy synchronously for callers that want to wait for the outcome.
//
// Cleanup cutoffs newer than the archive retention floor are clamped to the
// floor, so a short configured retention never makes scheduled cleanup fail.
package orchestrator
