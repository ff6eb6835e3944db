package statemachine

import (
	"slices"
)

// Transition allows a move from one state to another.
type Transition[S ~string] struct {
	From S
	To   S
}

// Table is an immutable transition graph over string-backed states.
//
// Unlike an in-memory machine that owns its current state, a Table is
// consulted with the current state each time. This fits entities whose state
// lives in a database row: load the row, ask the table, write the new state.
// A Table is safe for concurrent use once built.
type Table[S ~string] struct {
	initial S
	edges   map[S][]S
	states  []S
}

// New builds a table with the given initial state and transitions.
func New[S ~string](initial S, transitions ...Transition[S]) (*Table[S], error) {
	if initial == "" {
		return nil, ErrEmptyState
	}

	t := &Table[S]{
		initial: initial,
		edges:   make(map[S][]S),
	}
	t.addState(initial)

	for _, tr := range transitions {
		if tr.From == "" || tr.To == "" {
			return nil, ErrInvalidTransition
		}
		if slices.Contains(t.edges[tr.From], tr.To) {
			continue
		}
		t.edges[tr.From] = append(t.edges[tr.From], tr.To)
		t.addState(tr.From)
		t.addState(tr.To)
	}

	return t, nil
}

// MustNew is like New but panics on an invalid definition. Transition tables
// are package-level declarations, so a broken one should stop the process.
func MustNew[S ~string](initial S, transitions ...Transition[S]) *Table[S] {
	t, err := New(initial, transitions...)
	if err != nil {
		panic("statemachine: " + err.Error())
	}
	return t
}

func (t *Table[S]) addState(s S) {
	if !slices.Contains(t.states, s) {
		t.states = append(t.states, s)
	}
}

// Initial returns the state new entities start in.
func (t *Table[S]) Initial() S {
	return t.initial
}

// Known reports whether s appears anywhere in the table.
func (t *Table[S]) Known(s S) bool {
	return slices.Contains(t.states, s)
}

// Can reports whether moving from -> to is allowed.
func (t *Table[S]) Can(from, to S) bool {
	return slices.Contains(t.edges[from], to)
}

// Check returns nil when from -> to is allowed and a *TransitionError otherwise.
func (t *Table[S]) Check(from, to S) error {
	if t.Can(from, to) {
		return nil
	}
	return &TransitionError{From: string(from), To: string(to)}
}

// Targets lists the states reachable from s in one step.
func (t *Table[S]) Targets(s S) []S {
	return slices.Clone(t.edges[s])
}

// Sources lists the states that may move to s in one step. Storage adapters
// use it to express the transition as a conditional UPDATE.
func (t *Table[S]) Sources(s S) []S {
	var out []S
	for _, from := range t.states {
		if slices.Contains(t.edges[from], s) {
			out = append(out, from)
		}
	}
	return out
}

// Terminal reports whether no transition leaves s.
func (t *Table[S]) Terminal(s S) bool {
	return len(t.edges[s]) == 0
}
