package task

import (
	"fmt"

	"github.com/dmitrymomot/nimbu/pkg/statemachine"
)

// State is the lifecycle position of a task without its payload data.
type State string

const (
	StatePending         State = "pending"
	StateAssigned        State = "assigned"
	StateRunning         State = "running"
	StateCompleted       State = "completed"
	StateFailed          State = "failed"
	StateFailedPermanent State = "failed_permanent"
)

// States lists every lifecycle state.
var States = []State{
	StatePending,
	StateAssigned,
	StateRunning,
	StateCompleted,
	StateFailed,
	StateFailedPermanent,
}

func (s State) Name() string {
	return string(s)
}

// IsTerminal reports whether no transition can leave s.
func (s State) IsTerminal() bool {
	return s == StateCompleted || s == StateFailedPermanent
}

// Event drives a task from one state to another.
type Event string

const (
	EventAssign        Event = "assign"
	EventStart         Event = "start"
	EventComplete      Event = "complete"
	EventFail          Event = "fail"
	EventFailPermanent Event = "fail_permanent"
)

// Events lists every lifecycle event.
var Events = []Event{
	EventAssign,
	EventStart,
	EventComplete,
	EventFail,
	EventFailPermanent,
}

func (e Event) Name() string {
	return string(e)
}

// Target is the state an event moves a task into when the edge exists.
func (e Event) Target() State {
	switch e {
	case EventAssign:
		return StateAssigned
	case EventStart:
		return StateRunning
	case EventComplete:
		return StateCompleted
	case EventFail:
		return StateFailed
	case EventFailPermanent:
		return StateFailedPermanent
	default:
		return State("")
	}
}

// lifecycle is the structural transition table. Retry budgets are checked on top of it.
// Failed -> Assigned lets a retried task be claimed again for a fresh attempt.
var lifecycle = statemachine.MustNew(
	statemachine.WithTransitions([]statemachine.Transition{
		{From: StatePending, To: StateAssigned, Event: EventAssign},
		{From: StateFailed, To: StateAssigned, Event: EventAssign},
		{From: StateAssigned, To: StateRunning, Event: EventStart},
		{From: StateRunning, To: StateCompleted, Event: EventComplete},
		{From: StateRunning, To: StateFailed, Event: EventFail},
		{From: StateFailed, To: StateFailed, Event: EventFail},
		{From: StateRunning, To: StateFailedPermanent, Event: EventFailPermanent},
		{From: StateFailed, To: StateFailedPermanent, Event: EventFailPermanent},
	}),
)

// CanTransition reports whether the lifecycle has an edge for event out of from.
func CanTransition(from State, event Event) bool {
	return lifecycle.Can(from, event)
}

// Status is an immutable lifecycle value. Attempt is set only for Failed,
// Error only for Failed and FailedPermanent.
type Status struct {
	State   State  `json:"state"`
	Attempt int    `json:"attempt,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Pending returns the initial status.
func Pending() Status { return Status{State: StatePending} }

// Assigned returns the status of a task claimed by a worker.
func Assigned() Status { return Status{State: StateAssigned} }

// Running returns the status of a task being executed.
func Running() Status { return Status{State: StateRunning} }

// Completed returns the terminal success status.
func Completed() Status { return Status{State: StateCompleted} }

// Failed returns a retryable failure status for the given attempt.
func Failed(attempt int, reason string) Status {
	return Status{State: StateFailed, Attempt: attempt, Error: reason}
}

// FailedPermanent returns the terminal failure status.
func FailedPermanent(reason string) Status {
	return Status{State: StateFailedPermanent, Error: reason}
}

// IsTerminal reports whether the status is Completed or FailedPermanent.
func (s Status) IsTerminal() bool {
	return s.State.IsTerminal()
}

func (s Status) String() string {
	switch s.State {
	case StateFailed:
		return fmt.Sprintf("failed(attempt=%d, error=%s)", s.Attempt, s.Error)
	case StateFailedPermanent:
		return fmt.Sprintf("failed_permanent(error=%s)", s.Error)
	default:
		return string(s.State)
	}
}

// Assign moves Pending or Failed to Assigned.
func (s Status) Assign() (Status, error) {
	return s.apply(EventAssign, Assigned())
}

// Start moves Assigned to Running.
func (s Status) Start() (Status, error) {
	return s.apply(EventStart, Running())
}

// Complete moves Running to Completed.
func (s Status) Complete() (Status, error) {
	return s.apply(EventComplete, Completed())
}

// Fail moves Running or Failed to Failed{attempt}. It checks structure only;
// whether the retry budget allows attempt is the RetryPolicy's call.
func (s Status) Fail(attempt int, reason string) (Status, error) {
	next, err := s.apply(EventFail, Failed(attempt, reason))
	if err != nil {
		return s, err
	}
	if attempt < 1 || (s.State == StateFailed && attempt < s.Attempt) {
		return s, ErrInvalidAttempt
	}
	return next, nil
}

// FailPermanent moves Running or Failed to FailedPermanent.
func (s Status) FailPermanent(reason string) (Status, error) {
	return s.apply(EventFailPermanent, FailedPermanent(reason))
}

func (s Status) apply(event Event, next Status) (Status, error) {
	if _, err := lifecycle.Next(s.State, event); err != nil {
		return s, &IllegalTransitionError{From: s.State, To: event.Target()}
	}
	return next, nil
}
