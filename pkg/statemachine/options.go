package statemachine

import (
	"fmt"
)

// Option configures a transition table during construction.
type Option func(*Table) error

// New creates a transition table from the given options.
func New(opts ...Option) (*Table, error) {
	t := newTable()

	for _, opt := range opts {
		if err := opt(t); err != nil {
			return nil, err
		}
	}

	return t, nil
}

// MustNew creates a transition table from the given options.
// Panics if any option fails to apply; tables are built at package init time.
func MustNew(opts ...Option) *Table {
	t, err := New(opts...)
	if err != nil {
		panic(fmt.Sprintf("failed to create transition table: %v", err))
	}
	return t
}

// WithTransition adds a single edge to the table.
func WithTransition(from, to State, event Event) Option {
	return func(t *Table) error {
		return t.add(from, to, event)
	}
}

// WithTransitions adds multiple edges to the table at once.
func WithTransitions(transitions []Transition) Option {
	return func(t *Table) error {
		for i, tr := range transitions {
			if err := t.add(tr.From, tr.To, tr.Event); err != nil {
				// Handle nil states/events safely in error message
				fromName := "<nil>"
				toName := "<nil>"
				eventName := "<nil>"

				if tr.From != nil {
					fromName = tr.From.Name()
				}
				if tr.To != nil {
					toName = tr.To.Name()
				}
				if tr.Event != nil {
					eventName = tr.Event.Name()
				}

				return fmt.Errorf("failed to add transition[%d] %s->%s on %s: %w",
					i, fromName, toName, eventName, err)
			}
		}
		return nil
	}
}
