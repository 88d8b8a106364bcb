package statemachine

// State represents a state in the state machine.
type State interface {
	Name() string
}

// Event represents an event that can trigger a state transition.
type Event interface {
	Name() string
}

// Transition defines a state change triggered by an event.
type Transition struct {
	From  State
	To    State
	Event Event
}
