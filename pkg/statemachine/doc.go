// Package statemachine validates state transitions against a declared graph.
//
// A Table holds no current state; callers pass it in. That keeps the table
// shareable between goroutines and suits persisted entities whose state is a
// column:
//
//	var lifecycle = statemachine.MustNew(Pending,
//	    statemachine.Transition[Status]{From: Pending, To: Sent},
//	    statemachine.Transition[Status]{From: Sent, To: Delivered},
//	)
//
//	if err := lifecycle.Check(rec.Status, Delivered); err != nil {
//	    return err // *statemachine.TransitionError, matches ErrNotAllowed
//	}
//
// Sources(to) returns every state allowed to move to "to", which SQL adapters
// turn into "WHERE status = ANY($1)" so the check and the write happen in one
// statement.
package statemachine
