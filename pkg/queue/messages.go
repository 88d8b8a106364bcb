package queue

import (
	"time"

	"github.com/dmitrymomot/nimbu/pkg/task"
)

// OutcomeKind classifies an execution result reported by a worker.
type OutcomeKind int

const (
	OutcomeCompleted OutcomeKind = iota + 1
	OutcomeRetryableFailure
	OutcomeFatalFailure
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeCompleted:
		return "completed"
	case OutcomeRetryableFailure:
		return "retryable_failure"
	case OutcomeFatalFailure:
		return "fatal_failure"
	default:
		return "unknown"
	}
}

// Outcome is the result of one execution attempt. The task travels with it:
// reporting an outcome hands ownership of the task back to the scheduler.
type Outcome struct {
	Kind  OutcomeKind
	Task  *task.Task
	Error string
}

// Completed reports a successful execution.
func Completed(t *task.Task) Outcome {
	return Outcome{Kind: OutcomeCompleted, Task: t}
}

// RetryableFailure reports a failure the retry policy may reschedule.
func RetryableFailure(t *task.Task, msg string) Outcome {
	return Outcome{Kind: OutcomeRetryableFailure, Task: t, Error: msg}
}

// FatalFailure reports a failure that must never be retried.
func FatalFailure(t *task.Task, msg string) Outcome {
	return Outcome{Kind: OutcomeFatalFailure, Task: t, Error: msg}
}

// command is anything the scheduler accepts on its mailbox.
type command interface {
	command()
}

type scheduleCommand struct {
	task  *task.Task
	delay time.Duration
}

type resultCommand struct {
	outcome Outcome
}

type shutdownCommand struct{}

func (scheduleCommand) command() {}
func (resultCommand) command()   {}
func (shutdownCommand) command() {}
