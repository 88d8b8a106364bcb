// Package statemachine provides an immutable finite-state transition table.
//
// The package revolves around two minimal interfaces, State and Event, that
// give you full freedom to model domain specific states and events. A Table
// answers one question: given a current state and an event, which state comes
// next? It never holds a "current" state itself, so lookups are pure and a
// Table can be shared by any number of goroutines.
//
// # Architecture
//
// Table stores edges in a nested map map[FromState][Event]Transition for O(1)
// lookups. Each (from, event) pair has exactly one target; registering a second
// target for the same pair fails with ErrDuplicateTransition. Configuration uses
// the functional options pattern.
//
// Policy checks that depend on runtime data (retry budgets, ownership and so on)
// belong to the caller and are layered on top of a successful lookup.
//
// # Usage
//
//	type state string
//
//	func (s state) Name() string { return string(s) }
//
//	const (
//	    Draft    = state("draft")
//	    InReview = state("in_review")
//	    Submit   = state("submit")
//	)
//
//	table := statemachine.MustNew(
//	    statemachine.WithTransition(Draft, InReview, Submit),
//	)
//
//	next, err := table.Next(Draft, Submit) // InReview, nil
//
// # Error Handling
//
// When Next returns an error you can inspect it using helper functions:
//
//	if statemachine.IsNoTransitionAvailableError(err) { /* ... */ }
package statemachine
