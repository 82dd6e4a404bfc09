package tasks

import (
	"errors"
	"fmt"
)

// ErrTaskNotFound is returned for IDs the scheduler does not know.
var ErrTaskNotFound = errors.New("task not found")

// ErrDuplicateTask is returned when scheduling an ID that is still active.
var ErrDuplicateTask = errors.New("task already scheduled")

// TransitionError reports a status change the state machine forbids.
type TransitionError struct {
	TaskID string
	From   Status
	To     Status
}

// Error implements the error interface.
func (e *TransitionError) Error() string {
	return fmt.Sprintf("invalid task transition [task=%s]: %s -> %s", e.TaskID, e.From, e.To)
}

// transitions lists the allowed status changes outside Requeue.
var transitions = map[Status][]Status{
	StatusPending: {StatusRunning, StatusCancelled, StatusTimeout},
	StatusRunning: {StatusSucceeded, StatusFailed, StatusTimeout},
}

func canTransition(from, to Status) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}
