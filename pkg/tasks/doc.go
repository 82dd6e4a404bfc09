// Package tasks defines scheduled archive tasks and the in-memory Scheduler
// that dispatches them.
//
// # Ordering
//
// Pending tasks sit in a priority queue ordered by priority value ascending
// (High=0 before Medium=5 before Low=10), then by scheduled time, then by
// insertion order. NextReadyTask only ever looks at the head of the queue:
// if the head is not ready to run, nothing is dispatched.
//
// # Status machine
//
//	Pending -> Running -> Succeeded | Failed | Timeout
//	Pending -> Cancelled | Timeout
//	Running -> Pending            (Requeue, for retries only)
//
// Succeeded, Failed, Timeout and Cancelled are final.
//
// The queue is not persisted; a restart drops pending work.
package tasks
