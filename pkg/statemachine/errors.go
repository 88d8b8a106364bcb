package statemachine

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidTransition = errors.New("invalid transition: from, to, or event cannot be nil")
	ErrInvalidEvent      = errors.New("invalid lookup: state and event cannot be nil")
)

// ErrNoTransitionAvailable indicates no edge exists for the given state/event combination.
type ErrNoTransitionAvailable struct {
	StateName string
	EventName string
}

func (e *ErrNoTransitionAvailable) Error() string {
	return fmt.Sprintf("no transition available from state '%s' for event '%s'", e.StateName, e.EventName)
}

func NewErrNoTransitionAvailable(stateName, eventName string) *ErrNoTransitionAvailable {
	return &ErrNoTransitionAvailable{
		StateName: stateName,
		EventName: eventName,
	}
}

// ErrDuplicateTransition indicates two different targets were registered for one state/event pair.
type ErrDuplicateTransition struct {
	StateName string
	EventName string
}

func (e *ErrDuplicateTransition) Error() string {
	return fmt.Sprintf("state '%s' already has a different transition for event '%s'", e.StateName, e.EventName)
}

func NewErrDuplicateTransition(stateName, eventName string) *ErrDuplicateTransition {
	return &ErrDuplicateTransition{
		StateName: stateName,
		EventName: eventName,
	}
}

func IsNoTransitionAvailableError(err error) bool {
	var e *ErrNoTransitionAvailable
	return errors.As(err, &e)
}

func IsDuplicateTransitionError(err error) bool {
	var e *ErrDuplicateTransition
	return errors.As(err, &e)
}
