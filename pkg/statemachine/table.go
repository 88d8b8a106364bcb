package statemachine

// Table is an immutable transition table. Lookups never mutate anything, so a
// single Table is safe to share between goroutines without locking.
// Uses a nested map structure for O(1) lookups: [fromState][event]Transition
type Table struct {
	transitions map[string]map[string]Transition
	order       []Transition
}

func newTable() *Table {
	return &Table{
		transitions: make(map[string]map[string]Transition),
	}
}

func (t *Table) add(from, to State, event Event) error {
	if from == nil || to == nil || event == nil {
		return ErrInvalidTransition
	}

	fromStateName := from.Name()
	eventName := event.Name()

	if _, ok := t.transitions[fromStateName]; !ok {
		t.transitions[fromStateName] = make(map[string]Transition)
	}

	// One target per (from, event): a pure table has no guard-based branching
	if existing, ok := t.transitions[fromStateName][eventName]; ok {
		if existing.To.Name() == to.Name() {
			return nil
		}
		return NewErrDuplicateTransition(fromStateName, eventName)
	}

	tr := Transition{From: from, To: to, Event: event}
	t.transitions[fromStateName][eventName] = tr
	t.order = append(t.order, tr)
	return nil
}

// Next returns the state reached from `from` when `event` fires.
// It returns *ErrNoTransitionAvailable when the table has no such edge.
func (t *Table) Next(from State, event Event) (State, error) {
	if from == nil || event == nil {
		return nil, ErrInvalidEvent
	}

	tr, ok := t.transitions[from.Name()][event.Name()]
	if !ok {
		return nil, NewErrNoTransitionAvailable(from.Name(), event.Name())
	}
	return tr.To, nil
}

// Can reports whether the table defines an edge for event out of from.
func (t *Table) Can(from State, event Event) bool {
	_, err := t.Next(from, event)
	return err == nil
}

// Transitions returns every edge in the order it was added.
func (t *Table) Transitions() []Transition {
	out := make([]Transition, len(t.order))
	copy(out, t.order)
	return out
}
